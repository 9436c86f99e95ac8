package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Category groups errors by how the caller should react to them
type Category string

const (
	CategoryValidation  Category = "validation"
	CategoryUpstream    Category = "upstream"
	CategoryPersistence Category = "persistence"
	CategoryNotFound    Category = "not_found"
)

// Error is the error type returned by every operation of the service
type Error struct {
	Category   Category
	HttpStatus int
	Message    string
	Err        error
}

// New returns a new error with the given category, http status and message
func New(category Category, httpStatus int, message string) *Error {
	return &Error{
		Category:   category,
		HttpStatus: httpStatus,
		Message:    message,
	}
}

// Error returns the message, followed by the cause when present
func (err *Error) Error() string {
	if err.Err != nil {
		return fmt.Sprintf("%s: %v", err.Message, err.Err)
	}

	return err.Message
}

// Unwrap returns the wrapped cause
func (err *Error) Unwrap() error {
	return err.Err
}

// Is reports whether target is an *Error with the same category and message
func (err *Error) Is(target error) bool {
	var other *Error

	if !errors.As(target, &other) {
		return false
	}

	return err.Category == other.Category && err.Message == other.Message
}

// Validation returns a new validation error
func Validation(message string) *Error {
	return New(CategoryValidation, http.StatusBadRequest, message)
}

// Upstream wraps a failure of an external AI service call
func Upstream(operation string, err error) *Error {
	return &Error{
		Category:   CategoryUpstream,
		HttpStatus: http.StatusBadGateway,
		Message:    operation + " failed",
		Err:        err,
	}
}

// Persistence wraps a failure of a datastore operation
func Persistence(operation string, err error) *Error {
	return &Error{
		Category:   CategoryPersistence,
		HttpStatus: http.StatusInternalServerError,
		Message:    operation + " failed",
		Err:        err,
	}
}

// IsCategory reports whether err is an *Error of the given category
func IsCategory(err error, category Category) bool {
	var e *Error

	if !errors.As(err, &e) {
		return false
	}

	return e.Category == category
}

// HttpStatusOf returns the http status for err, 500 for unknown errors
func HttpStatusOf(err error) int {
	var e *Error

	if errors.As(err, &e) && e.HttpStatus > 0 {
		return e.HttpStatus
	}

	return http.StatusInternalServerError
}
