// Package security holds the authenticated session a request acts under.
package security

import (
	"context"
	"net/http"

	"github.com/nexuscrm/forcemapper/pkg/errors"
)

// SecurityContext is an authenticated remote session
type SecurityContext struct {
	Endpoint     string `json:"endpoint"`
	SessionID    string `json:"sessionId"`
	OrgID        string `json:"orgId,omitempty"`
	UserID       string `json:"userId,omitempty"`
	UserName     string `json:"userName,omitempty"`
	Language     string `json:"language,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Validate checks that the context can open a connection
func (sc *SecurityContext) Validate() error {
	if sc.Endpoint == "" {
		return errors.NewValidationError("endpoint", "endpoint is required")
	}
	if sc.SessionID == "" {
		return errors.NewValidationError("sessionId", "session id is required")
	}
	return nil
}

// Store keeps security contexts between requests
type Store interface {
	// Retrieve returns the context of the request, or nil when there is none
	Retrieve(r *http.Request) (*SecurityContext, error)
	Save(w http.ResponseWriter, r *http.Request, sc *SecurityContext) error
	Clear(w http.ResponseWriter, r *http.Request) error
}

type contextKey struct{}

// WithContext attaches a security context to ctx
func WithContext(ctx context.Context, sc *SecurityContext) context.Context {
	return context.WithValue(ctx, contextKey{}, sc)
}

// FromContext returns the security context attached to ctx, if any
func FromContext(ctx context.Context) (*SecurityContext, bool) {
	sc, ok := ctx.Value(contextKey{}).(*SecurityContext)
	return sc, ok && sc != nil
}
