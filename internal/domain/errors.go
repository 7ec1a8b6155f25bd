package domain

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// ValidationError rejects input before the backing store is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// PersistenceError is a failed backing store read or write. The caller may retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }

// AggregationError is one failed report increment.
type AggregationError struct {
	Report string
	Key    string
	Err    error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Report, e.Key, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsPersistence(err error) bool {
	var p *PersistenceError
	return errors.As(err, &p)
}
