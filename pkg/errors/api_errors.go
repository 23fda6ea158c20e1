package errors

import "errors"

// Standard schema errors
var (
	ErrBatchConsumed   = errors.New("deploy batch already written")
	ErrNoConnection    = errors.New("no connection available")
	ErrTableNotMapped  = errors.New("table not registered")
	ErrInvalidTableRef = errors.New("invalid table reference")
)
