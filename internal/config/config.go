package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nexuscrm/forcemapper/pkg/constants"
	"github.com/nexuscrm/forcemapper/pkg/errors"
)

// PersistenceUnit is the configuration surface consumed by the schema engine
type PersistenceUnit struct {
	Name      string
	Namespace string

	AutoCreateTables    bool
	AutoCreateColumns   bool
	WarnOnSchemaDrift   bool
	DeleteSchema        bool
	PurgeOnDeleteSchema bool
	// DeployStrict turns per-item deploy failures into one fatal error
	DeployStrict bool

	APIVersion string
	Endpoint   string
	Username   string
	Password   string
	SessionID  string

	PollInitial    time.Duration
	PollMultiplier float64
	PollMax        time.Duration
}

// Default returns a persistence unit that neither creates nor deletes anything
func Default() PersistenceUnit {
	return PersistenceUnit{
		Name:           "default",
		APIVersion:     constants.DefaultAPIVersion,
		Endpoint:       "https://login.salesforce.com",
		DeployStrict:   true,
		PollInitial:    constants.DeployPollInitial,
		PollMultiplier: constants.DeployPollMultiplier,
		PollMax:        constants.DeployPollMax,
	}
}

// LoadDotEnv loads the first .env file found among the candidates
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env", "../.env", "../../.env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			if err := godotenv.Load(p); err == nil {
				log.Printf("📁 Loaded .env from %s", p)
				return
			}
		}
	}
}

// FromEnv builds a persistence unit from FORCE_* environment variables
func FromEnv() (PersistenceUnit, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (PersistenceUnit, error) {
	pu := Default()

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var firstErr error
	flag := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil && firstErr == nil {
			firstErr = errors.NewValidationError(key, fmt.Sprintf("expected a boolean, got %q", v))
			return
		}
		*dst = b
	}

	if raw, ok := lookup("FORCE_URL"); ok && raw != "" {
		if err := pu.ApplyConnectionURL(raw); err != nil {
			return pu, err
		}
	}

	str("FORCE_UNIT_NAME", &pu.Name)
	str("FORCE_NAMESPACE", &pu.Namespace)
	str("FORCE_API_VERSION", &pu.APIVersion)
	str("FORCE_ENDPOINT", &pu.Endpoint)
	str("FORCE_USERNAME", &pu.Username)
	str("FORCE_PASSWORD", &pu.Password)
	str("FORCE_SESSION_ID", &pu.SessionID)
	flag("FORCE_AUTO_CREATE_TABLES", &pu.AutoCreateTables)
	flag("FORCE_AUTO_CREATE_COLUMNS", &pu.AutoCreateColumns)
	flag("FORCE_WARN_ON_SCHEMA_DRIFT", &pu.WarnOnSchemaDrift)
	flag("FORCE_DELETE_SCHEMA", &pu.DeleteSchema)
	flag("FORCE_PURGE_ON_DELETE_SCHEMA", &pu.PurgeOnDeleteSchema)
	flag("FORCE_DEPLOY_STRICT", &pu.DeployStrict)
	if firstErr != nil {
		return pu, firstErr
	}

	duration := func(key string, dst *time.Duration) error {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return errors.NewValidationError(key, err.Error())
			}
			*dst = d
		}
		return nil
	}
	if err := duration("FORCE_POLL_INITIAL", &pu.PollInitial); err != nil {
		return pu, err
	}
	if err := duration("FORCE_POLL_MAX", &pu.PollMax); err != nil {
		return pu, err
	}
	if v, ok := lookup("FORCE_POLL_MULTIPLIER"); ok && v != "" {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return pu, errors.NewValidationError("FORCE_POLL_MULTIPLIER", err.Error())
		}
		pu.PollMultiplier = m
	}

	return pu, pu.Validate()
}

// ApplyConnectionURL reads a connection URL of the form
//
//	force://login.salesforce.com;user=u@example.com;password=secret;namespace=acme
//
// The query form force://host?user=..&password=.. is accepted too.
func (p *PersistenceUnit) ApplyConnectionURL(raw string) error {
	if !strings.HasPrefix(raw, "force://") {
		return errors.NewValidationError("FORCE_URL", "connection URL must start with force://")
	}
	rest := strings.TrimPrefix(raw, "force://")
	rest = strings.NewReplacer("?", ";", "&", ";").Replace(rest)

	parts := strings.Split(rest, ";")
	if parts[0] == "" {
		return errors.NewValidationError("FORCE_URL", "connection URL has no host")
	}
	p.Endpoint = "https://" + parts[0]

	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return errors.NewValidationError("FORCE_URL", fmt.Sprintf("malformed parameter %q", part))
		}
		switch strings.ToLower(key) {
		case "user", "username":
			p.Username = value
		case "password":
			p.Password = value
		case "namespace":
			p.Namespace = value
		case "sessionid":
			p.SessionID = value
		case "version":
			p.APIVersion = value
		default:
			return errors.NewValidationError("FORCE_URL", fmt.Sprintf("unknown parameter %q", key))
		}
	}
	return nil
}

// Validate checks flag combinations
func (p PersistenceUnit) Validate() error {
	if p.PurgeOnDeleteSchema && !p.DeleteSchema {
		return errors.NewValidationError("FORCE_PURGE_ON_DELETE_SCHEMA", "purge requires delete-schema")
	}
	if p.DeleteSchema && (p.AutoCreateTables || p.AutoCreateColumns) {
		return errors.NewValidationError("FORCE_DELETE_SCHEMA", "delete-schema cannot be combined with auto-create")
	}
	if p.Namespace != "" && strings.Contains(p.Namespace, constants.NameSeparator) {
		return errors.NewValidationError("FORCE_NAMESPACE", "namespace must not contain a double underscore")
	}
	if p.PollInitial <= 0 {
		return errors.NewValidationError("FORCE_POLL_INITIAL", "poll interval must be positive")
	}
	if p.PollMultiplier < 1 {
		return errors.NewValidationError("FORCE_POLL_MULTIPLIER", "poll multiplier must be at least 1")
	}
	if p.PollMax < p.PollInitial {
		return errors.NewValidationError("FORCE_POLL_MAX", "poll cap must not be below the initial interval")
	}
	return nil
}

// AutoCreate reports whether any schema creation is permitted
func (p PersistenceUnit) AutoCreate() bool {
	return p.AutoCreateTables || p.AutoCreateColumns
}
