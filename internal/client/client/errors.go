package client

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// APIError is a non-success HTTP response. Problems is set when the server
// rejected a registration with a list of validation problems.
type APIError struct {
	StatusCode int
	Message    string
	Problems   []string
}

func (e *APIError) Error() string {
	if len(e.Problems) > 0 {
		return fmt.Sprintf("status %d: %s", e.StatusCode, strings.Join(e.Problems, "; "))
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}
