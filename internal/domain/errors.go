package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound marks an entity the upstream catalog (or the local store) does not have
var ErrNotFound = errors.New("not found")

// ValidationError is returned when an upstream response is well-formed JSON
// but does not carry the fields the model requires.
type ValidationError struct {
	Entity string
	ID     string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("invalid %s response: %v", e.Entity, e.Err)
	}
	return fmt.Sprintf("invalid %s %s response: %v", e.Entity, e.ID, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// UpstreamError is a non-2xx answer other than 404
type UpstreamError struct {
	StatusCode int
	Status     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: %d %s", e.StatusCode, e.Status)
}

// PersistError wraps a failed write to the catalog store
type PersistError struct {
	Records int
	Err     error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to persist %d products: %v", e.Records, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// IsAbsent reports whether err means the entity should be treated as missing:
// either the upstream answered 404 or its payload failed validation.
func IsAbsent(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var verr *ValidationError
	return errors.As(err, &verr)
}
