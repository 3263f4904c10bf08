// Package common defines shared constants and sentinel errors used across
// client and server layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Session resolution errors.
	ErrNoCredential        = errors.New("no authorization header")
	ErrMalformedCredential = errors.New("invalid authorization header")
	ErrInvalidToken        = errors.New("invalid token")

	// Exam errors.
	ErrChallengeNotFound = errors.New("challenge not found")
)

// ValidationError collects every client-correctable problem found in a
// request so they can be reported together.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

// Add appends a problem to the list.
func (e *ValidationError) Add(problem string) {
	e.Problems = append(e.Problems, problem)
}

// OrNil returns nil when no problems were recorded, so callers can write
// `return v.OrNil()` without producing a typed-nil error.
func (e *ValidationError) OrNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}
