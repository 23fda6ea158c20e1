package soap

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/nexuscrm/forcemapper/internal/config"
	"github.com/nexuscrm/forcemapper/internal/domain/ports"
	"github.com/nexuscrm/forcemapper/internal/domain/security"
	"go.uber.org/zap"
)

// Provider hands out a shared, lazily authenticated client. It implements
// ports.ConnectionProvider.
type Provider struct {
	logger     *zap.Logger
	unit       config.PersistenceUnit
	httpClient *http.Client

	mu      sync.Mutex
	client  *Client
	context *security.SecurityContext
}

// NewProvider creates a provider for the connection settings of a unit
func NewProvider(logger *zap.Logger, unit config.PersistenceUnit) *Provider {
	return &Provider{
		logger:     logger,
		unit:       unit,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// FromSecurityContext creates a provider that reuses an established session
func FromSecurityContext(logger *zap.Logger, unit config.PersistenceUnit, sc *security.SecurityContext) *Provider {
	p := NewProvider(logger, unit)
	partner, metadata := ServiceURLs(sc.Endpoint, unit.APIVersion)
	p.client = NewClient(logger, partner, metadata, sc.SessionID)
	p.client.HTTPClient = p.httpClient
	p.context = sc
	return p
}

// Acquire implements ports.ConnectionProvider. A configured session id is used
// as is; otherwise the first call logs in with username and password.
func (p *Provider) Acquire(ctx context.Context) (ports.Connection, func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		if err := p.connect(ctx); err != nil {
			return nil, nil, err
		}
	}
	return p.client, func() {}, nil
}

// SecurityContext returns the context of the current session, if any
func (p *Provider) SecurityContext() *security.SecurityContext {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.context
}

// connect must be called with the lock held
func (p *Provider) connect(ctx context.Context) error {
	if p.unit.SessionID != "" {
		partner, metadata := ServiceURLs(p.unit.Endpoint, p.unit.APIVersion)
		p.client = NewClient(p.logger, partner, metadata, p.unit.SessionID)
		p.client.HTTPClient = p.httpClient
		p.context = &security.SecurityContext{Endpoint: p.unit.Endpoint, SessionID: p.unit.SessionID}
		return nil
	}
	if p.unit.Username == "" {
		return Error.New("no session id and no username configured")
	}
	client, sc, err := Login(ctx, p.logger, p.httpClient, p.unit.Endpoint, p.unit.APIVersion, p.unit.Username, p.unit.Password)
	if err != nil {
		return err
	}
	p.client, p.context = client, sc
	return nil
}
