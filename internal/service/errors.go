package service

import (
	"errors"
	"fmt"
)

// ErrDuplicateRequest is returned when an idempotency key was already used.
var ErrDuplicateRequest = errors.New("duplicate request")

// ValidationError reports missing or malformed input. The store is never
// touched when it is returned.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RetrievalError wraps a store failure of a read operation.
type RetrievalError struct {
	Resource string
	Err      error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("failed to retrieve %s: %v", e.Resource, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}
