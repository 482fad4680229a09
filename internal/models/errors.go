package models

import (
	"errors"
	"fmt"
)

// ValidationError is a user-correctable problem with submitted input
type ValidationError struct {
	Message string
	// Required and Missing are set for companion name failures
	Required int
	Missing  int
}

func (e *ValidationError) Error() string {
	if e.Required > 0 {
		return fmt.Sprintf("%s (%d required, %d missing)", e.Message, e.Required, e.Missing)
	}
	return e.Message
}

// NotFoundError means no guest matched a query or key
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("guest not found: %s", e.What)
}

// ConflictError means the write was refused because of the record's state
type ConflictError struct {
	ID     string
	Reason string
}

func (e *ConflictError) Error() string {
	if e.ID == "" {
		return "conflict: " + e.Reason
	}
	return fmt.Sprintf("conflict on guest %s: %s", e.ID, e.Reason)
}

// StoreError wraps a failure of the guest directory backend. It is retryable.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("guest store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Validation builds a ValidationError with a plain message
func Validation(msg string) error {
	return &ValidationError{Message: msg}
}

// NotFound builds a NotFoundError
func NotFound(what string) error {
	return &NotFoundError{What: what}
}

// StoreFailure wraps err as a StoreError unless it already carries a kind
// from this package.
func StoreFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsNotFound(err) || IsConflict(err) || IsValidation(err) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

// IsRetryable reports whether repeating the same request may succeed
func IsRetryable(err error) bool {
	var e *StoreError
	return errors.As(err, &e)
}
