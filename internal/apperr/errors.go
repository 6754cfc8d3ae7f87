// Package apperr defines the error kinds surfaced by the contact and
// profile pipelines and maps them onto HTTP responses.
package apperr

import (
	"errors"
	"net/http"
)

// ValidationError reports rejected user input.
type ValidationError struct {
	Message string
	Fields  map[string]string
	// Missing flags required fields that were absent.
	Missing map[string]bool
}

func (e *ValidationError) Error() string { return e.Message }

// DatabaseError wraps a failed persistence operation.
type DatabaseError struct {
	Message string
	Err     error
}

func (e *DatabaseError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// EmailError wraps a failed notification email.
type EmailError struct {
	Message string
	Err     error
}

func (e *EmailError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *EmailError) Unwrap() error { return e.Err }

// Validation builds a ValidationError.
func Validation(message string, fields map[string]string) error {
	return &ValidationError{Message: message, Fields: fields}
}

// Database wraps err as a DatabaseError unless it already is one.
func Database(message string, err error) error {
	var dbErr *DatabaseError
	if errors.As(err, &dbErr) {
		return err
	}
	return &DatabaseError{Message: message, Err: err}
}

// Email wraps err as an EmailError unless it already is one.
func Email(message string, err error) error {
	var emailErr *EmailError
	if errors.As(err, &emailErr) {
		return err
	}
	return &EmailError{Message: message, Err: err}
}

const (
	msgDatabase   = "Database operation failed. Please try again later."
	msgEmail      = "Failed to send notification email. Your message was saved."
	msgUnexpected = "Something went wrong. Please try again later."
)

// Status maps err to an HTTP status and the message shown to the visitor.
func Status(err error) (int, string) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, validationErr.Message
	}

	var dbErr *DatabaseError
	if errors.As(err, &dbErr) {
		return http.StatusInternalServerError, msgDatabase
	}

	var emailErr *EmailError
	if errors.As(err, &emailErr) {
		if emailErr.Message != "" {
			return http.StatusInternalServerError, emailErr.Message
		}
		return http.StatusInternalServerError, msgEmail
	}

	return http.StatusInternalServerError, msgUnexpected
}
