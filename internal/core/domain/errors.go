package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrTitleNotFound    = fmt.Errorf("title %w", ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("category %w", ErrNotFound)
	ErrGenreNotFound    = fmt.Errorf("genre %w", ErrNotFound)
	ErrReviewNotFound   = fmt.Errorf("review %w", ErrNotFound)
	ErrCommentNotFound  = fmt.Errorf("comment %w", ErrNotFound)

	ErrPermissionDenied       = errors.New("you do not have permission to perform this action")
	ErrAuthenticationRequired = errors.New("authentication credentials were not provided")
	ErrInvalidToken           = errors.New("token is invalid or expired")

	ErrUserExists      = errors.New("user already exists")
	ErrSlugExists      = errors.New("slug already exists")
	ErrReviewExists    = errors.New("review already exists")
	ErrCodeConsumed    = errors.New("confirmation code already consumed")
	ErrEmailDelivery   = errors.New("confirmation email could not be delivered")
	ErrSignupThrottled = errors.New("a confirmation code was sent recently, try again later")
)

// ValidationError carries field-scoped messages for input that violates a
// constraint. It is rendered as a 400 with one key per field.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns a ValidationError with a single field message.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// Add records msg for field, keeping the first message per field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// OrNil returns nil when no field failed, so callers can return it directly.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// DuplicateError reports a unique-constraint violation on Field.
type DuplicateError struct {
	Field string
	Err   error
}

func (e *DuplicateError) Error() string { return e.Field + ": " + e.Err.Error() }

func (e *DuplicateError) Unwrap() error { return e.Err }

// IsValidation reports whether err carries field-scoped validation messages.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
