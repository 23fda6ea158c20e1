package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/zeebo/errs"
)

// AppError is the base interface for all application errors
type AppError interface {
	error
	HTTPStatus() int
	Code() string
}

// ConfigurationError is a fatal, user-caused mapping error. It is never retried.
type ConfigurationError struct {
	Entity  string
	Table   string
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	var where []string
	if e.Entity != "" {
		where = append(where, fmt.Sprintf("entity '%s'", e.Entity))
	}
	if e.Table != "" {
		where = append(where, fmt.Sprintf("table '%s'", e.Table))
	}
	if e.Field != "" {
		where = append(where, fmt.Sprintf("field '%s'", e.Field))
	}
	if len(where) == 0 {
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
	return fmt.Sprintf("configuration error on %s: %s", strings.Join(where, ", "), e.Message)
}

func (e *ConfigurationError) HTTPStatus() int {
	return http.StatusUnprocessableEntity
}

func (e *ConfigurationError) Code() string {
	return "CONFIGURATION_ERROR"
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(entity, field, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Entity: entity, Field: field, Message: fmt.Sprintf(format, args...)}
}

// WithTable attaches the remote table name to the error
func (e *ConfigurationError) WithTable(table string) *ConfigurationError {
	e.Table = table
	return e
}

// SchemaDriftError reports declared fields that are missing remotely while
// auto-creation is disabled.
type SchemaDriftError struct {
	Entity  string
	Table   string
	Missing []string
}

func (e *SchemaDriftError) Error() string {
	missing := append([]string(nil), e.Missing...)
	sort.Strings(missing)
	return fmt.Sprintf("schema drift detected for entity '%s' on table '%s': missing fields [%s]",
		e.Entity, e.Table, strings.Join(missing, ", "))
}

func (e *SchemaDriftError) HTTPStatus() int {
	return http.StatusConflict
}

func (e *SchemaDriftError) Code() string {
	return "SCHEMA_DRIFT"
}

// NotFoundError represents a resource that was not found
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s '%s' not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) HTTPStatus() int {
	return http.StatusNotFound
}

func (e *NotFoundError) Code() string {
	return "NOT_FOUND"
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents invalid input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) HTTPStatus() int {
	return http.StatusBadRequest
}

func (e *ValidationError) Code() string {
	return "VALIDATION_ERROR"
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// DeployFailure is one failed item reported by a deploy job
type DeployFailure struct {
	FileName string
	FullName string
	Problem  string
}

// DeployError aggregates every failed item of a deploy job
type DeployError struct {
	JobID    string
	Failures []DeployFailure
	cause    error
}

// NewDeployError combines the failures into one error.
func NewDeployError(jobID string, failures []DeployFailure) *DeployError {
	var group errs.Group
	for _, f := range failures {
		group.Add(fmt.Errorf("%s (%s): %s", f.FileName, f.FullName, f.Problem))
	}
	return &DeployError{JobID: jobID, Failures: failures, cause: group.Err()}
}

func (e *DeployError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("deploy %s failed", e.JobID)
	}
	return fmt.Sprintf("deploy %s failed: %v", e.JobID, e.cause)
}

func (e *DeployError) Unwrap() error {
	return e.cause
}

func (e *DeployError) HTTPStatus() int {
	return http.StatusBadGateway
}

func (e *DeployError) Code() string {
	return "DEPLOY_FAILED"
}

// TransportError wraps network or authentication failures talking to the remote store
type TransportError struct {
	Operation string
	Cause     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Operation, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

func (e *TransportError) HTTPStatus() int {
	return http.StatusBadGateway
}

func (e *TransportError) Code() string {
	return "TRANSPORT_ERROR"
}

// NewTransportError creates a new TransportError
func NewTransportError(operation string, cause error) *TransportError {
	return &TransportError{Operation: operation, Cause: cause}
}

// InternalError represents unexpected errors
type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("internal error: %s (caused by: %v)", e.Message, e.Cause)
	}
	return fmt.Sprintf("internal error: %s", e.Message)
}

func (e *InternalError) HTTPStatus() int {
	return http.StatusInternalServerError
}

func (e *InternalError) Code() string {
	return "INTERNAL_ERROR"
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

// NewInternalError creates a new InternalError
func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{Message: message, Cause: cause}
}

// Helper functions for error checking

// IsConfiguration checks if an error is a ConfigurationError
func IsConfiguration(err error) bool {
	var cfg *ConfigurationError
	return errors.As(err, &cfg)
}

// IsSchemaDrift checks if an error is a SchemaDriftError
func IsSchemaDrift(err error) bool {
	var drift *SchemaDriftError
	return errors.As(err, &drift)
}

// IsNotFound checks if an error is a NotFoundError
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// IsValidation checks if an error is a ValidationError
func IsValidation(err error) bool {
	var validation *ValidationError
	return errors.As(err, &validation)
}

// IsDeploy checks if an error is a DeployError
func IsDeploy(err error) bool {
	var deploy *DeployError
	return errors.As(err, &deploy)
}

// IsTransport checks if an error is a TransportError
func IsTransport(err error) bool {
	var transport *TransportError
	return errors.As(err, &transport)
}

// GetHTTPStatus returns the HTTP status code for an error
// Returns 500 if the error doesn't implement AppError
func GetHTTPStatus(err error) int {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// GetErrorCode returns the error code for an error
func GetErrorCode(err error) string {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}
	return "UNKNOWN_ERROR"
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToResponse converts an error to an ErrorResponse
func ToResponse(err error) ErrorResponse {
	return ErrorResponse{
		Code:    GetErrorCode(err),
		Message: err.Error(),
	}
}
