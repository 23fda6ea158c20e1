package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigurationError_Message(t *testing.T) {
	err := NewConfigurationError("Widget", "parts", "one-to-many requires mappedBy").WithTable("Widget__c")
	assert.Equal(t, "configuration error on entity 'Widget', table 'Widget__c', field 'parts': one-to-many requires mappedBy", err.Error())
	assert.True(t, IsConfiguration(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, http.StatusUnprocessableEntity, GetHTTPStatus(err))
}

func TestSchemaDriftError_SortsMissing(t *testing.T) {
	err := &SchemaDriftError{Entity: "Widget", Table: "Widget__c", Missing: []string{"sku__c", "category__c"}}
	assert.Contains(t, err.Error(), "[category__c, sku__c]")
	assert.True(t, IsSchemaDrift(err))
	assert.Equal(t, "SCHEMA_DRIFT", GetErrorCode(err))
}

func TestDeployError_AggregatesFailures(t *testing.T) {
	err := NewDeployError("0Af000000000001", []DeployFailure{
		{FileName: "objects/Widget__c.object", FullName: "Widget__c.sku__c", Problem: "duplicate field"},
		{FileName: "objects/Part__c.object", FullName: "Part__c.widget__c", Problem: "unknown reference"},
	})
	assert.True(t, IsDeploy(err))
	assert.Contains(t, err.Error(), "objects/Widget__c.object (Widget__c.sku__c): duplicate field")
	assert.Contains(t, err.Error(), "objects/Part__c.object (Part__c.widget__c): unknown reference")
	assert.Len(t, err.Failures, 2)
}

func TestGetErrorCode_Unknown(t *testing.T) {
	assert.Equal(t, "UNKNOWN_ERROR", GetErrorCode(fmt.Errorf("plain")))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(fmt.Errorf("plain")))
	assert.True(t, IsTransport(NewTransportError("describe", fmt.Errorf("timeout"))))
}
