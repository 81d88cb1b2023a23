package record

import (
	"errors"
	"fmt"
)

// StoreError represents a failure reported by a RecordStore.
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the record path related to the error (if applicable)
	Path string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode represents the category of a store error.
type ErrorCode int

const (
	// ErrNotFound indicates the requested record doesn't exist
	ErrNotFound ErrorCode = iota

	// ErrInvalidArgument indicates a record failed validation
	ErrInvalidArgument

	// ErrIOError indicates the backend failed to read or write
	ErrIOError
)

// IsNotFound reports whether err is a StoreError with code ErrNotFound.
func IsNotFound(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr) && storeErr.Code == ErrNotFound
}

// NotFound builds the error returned by FindOne for an empty slot.
func NotFound(fullPath string) error {
	return &StoreError{Code: ErrNotFound, Message: "record not found", Path: fullPath}
}

// IOError wraps a backend failure.
func IOError(op string, err error) error {
	return &StoreError{Code: ErrIOError, Message: fmt.Sprintf("%s: %v", op, err)}
}
