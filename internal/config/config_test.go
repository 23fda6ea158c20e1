package config

import (
	"testing"
	"time"

	"github.com/nexuscrm/forcemapper/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	pu, err := fromLookup(lookupFrom(nil))
	require.NoError(t, err)
	assert.False(t, pu.AutoCreate())
	assert.True(t, pu.DeployStrict)
	assert.Equal(t, 500*time.Millisecond, pu.PollInitial)
	assert.Equal(t, 30*time.Second, pu.PollMax)
	assert.Equal(t, 1.5, pu.PollMultiplier)
}

func TestFromLookup_Flags(t *testing.T) {
	pu, err := fromLookup(lookupFrom(map[string]string{
		"FORCE_NAMESPACE":            "acme",
		"FORCE_AUTO_CREATE_TABLES":   "true",
		"FORCE_AUTO_CREATE_COLUMNS":  "1",
		"FORCE_WARN_ON_SCHEMA_DRIFT": "true",
		"FORCE_DEPLOY_STRICT":        "false",
		"FORCE_POLL_MAX":             "10s",
	}))
	require.NoError(t, err)
	assert.Equal(t, "acme", pu.Namespace)
	assert.True(t, pu.AutoCreateTables)
	assert.True(t, pu.AutoCreateColumns)
	assert.True(t, pu.WarnOnSchemaDrift)
	assert.False(t, pu.DeployStrict)
	assert.Equal(t, 10*time.Second, pu.PollMax)
}

func TestFromLookup_BadBoolean(t *testing.T) {
	_, err := fromLookup(lookupFrom(map[string]string{"FORCE_DELETE_SCHEMA": "maybe"}))
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestApplyConnectionURL(t *testing.T) {
	var pu PersistenceUnit
	err := pu.ApplyConnectionURL("force://login.salesforce.com;user=dev@example.com;password=s3cret;namespace=acme")
	require.NoError(t, err)
	assert.Equal(t, "https://login.salesforce.com", pu.Endpoint)
	assert.Equal(t, "dev@example.com", pu.Username)
	assert.Equal(t, "s3cret", pu.Password)
	assert.Equal(t, "acme", pu.Namespace)

	err = pu.ApplyConnectionURL("force://test.salesforce.com?user=a&password=b")
	require.NoError(t, err)
	assert.Equal(t, "https://test.salesforce.com", pu.Endpoint)
	assert.Equal(t, "a", pu.Username)

	assert.Error(t, pu.ApplyConnectionURL("https://login.salesforce.com"))
	assert.Error(t, pu.ApplyConnectionURL("force://host;colour=blue"))
}

func TestValidate(t *testing.T) {
	pu := Default()
	pu.PurgeOnDeleteSchema = true
	assert.Error(t, pu.Validate())

	pu = Default()
	pu.DeleteSchema = true
	pu.AutoCreateColumns = true
	assert.Error(t, pu.Validate())

	pu = Default()
	pu.Namespace = "bad__ns"
	assert.Error(t, pu.Validate())
}

func TestFromLookup_PollCurve(t *testing.T) {
	pu, err := fromLookup(lookupFrom(map[string]string{
		"FORCE_POLL_INITIAL":    "250ms",
		"FORCE_POLL_MULTIPLIER": "2",
		"FORCE_POLL_MAX":        "8s",
	}))
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, pu.PollInitial)
	assert.Equal(t, 2.0, pu.PollMultiplier)
	assert.Equal(t, 8*time.Second, pu.PollMax)

	tests := []struct {
		name string
		env  map[string]string
		key  string
	}{
		{"zero cap", map[string]string{"FORCE_POLL_MAX": "0s"}, "FORCE_POLL_MAX"},
		{"cap below start", map[string]string{"FORCE_POLL_INITIAL": "2s", "FORCE_POLL_MAX": "1s"}, "FORCE_POLL_MAX"},
		{"shrinking multiplier", map[string]string{"FORCE_POLL_MULTIPLIER": "0.5"}, "FORCE_POLL_MULTIPLIER"},
		{"zero start", map[string]string{"FORCE_POLL_INITIAL": "0s"}, "FORCE_POLL_INITIAL"},
		{"bad multiplier", map[string]string{"FORCE_POLL_MULTIPLIER": "fast"}, "FORCE_POLL_MULTIPLIER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fromLookup(lookupFrom(tt.env))
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
