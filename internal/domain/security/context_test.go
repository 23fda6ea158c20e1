package security

import (
	"context"
	"testing"

	"github.com/nexuscrm/forcemapper/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	assert.NoError(t, (&SecurityContext{Endpoint: "https://na1.example.com", SessionID: "s"}).Validate())

	err := (&SecurityContext{SessionID: "s"}).Validate()
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "endpoint")

	err = (&SecurityContext{Endpoint: "https://na1.example.com"}).Validate()
	assert.Contains(t, err.Error(), "session id")
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	_, ok = FromContext(WithContext(context.Background(), nil))
	assert.False(t, ok)

	sc := &SecurityContext{UserName: "admin@example.com"}
	got, ok := FromContext(WithContext(context.Background(), sc))
	assert.True(t, ok)
	assert.Same(t, sc, got)
}
