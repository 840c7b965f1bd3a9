package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation references a record ID that does
// not exist. Update raises it; Delete and FindByID treat absence as a normal
// empty result instead.
var ErrNotFound = errors.New("record not found")

// ValidationError reports caller-supplied data that violates the
// required-field or length rules, before anything is persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConnectionError reports a failure to open the local store. All subsequent
// calls fail until the open is retried.
type ConnectionError struct {
	Path string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("open store %s: %v", e.Path, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// OperationError wraps a single failed store request with the name of the
// operation that issued it.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// APIError reports a non-success envelope or unexpected status from the
// remote sync service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote api: unexpected status %d", e.Status)
	}
	return fmt.Sprintf("remote api: %s (status %d)", e.Message, e.Status)
}
