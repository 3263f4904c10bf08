// Package rest implements the HTTP surface: account routes, license exam
// routes and the health probe, each contributed to the router as a Routable.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/licensegate/internal/common"
	"github.com/dmitrijs2005/licensegate/internal/logging"
	"github.com/dmitrijs2005/licensegate/internal/server/models"
)

const maxBodyBytes = 1 << 20

// Plain text bodies shared by several handlers.
const (
	MsgNoAuthHeader      = "No authorization header"
	MsgInvalidAuthHeader = "Invalid authorization header"
	MsgInvalidToken      = "Invalid token"
	MsgInternal          = "An internal error occurred"
	MsgNotFound          = "Not found"
)

// SessionResolver authenticates a bearer token.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.Account, *models.Session, error)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = io.WriteString(w, msg)
}

// readJSON decodes the request body into v. A body that is not a JSON
// document of the expected shape is an error.
func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

// authenticate resolves the Authorization header. When it fails the response
// has already been written and ok is false.
func authenticate(w http.ResponseWriter, r *http.Request, sessions SessionResolver, log logging.Logger) (account *models.Account, ok bool) {
	account, _, err := sessions.Resolve(r.Context(), r.Header.Get(common.AuthorizationHeaderName))
	if err != nil {
		writeAuthError(r.Context(), w, err, log)
		return nil, false
	}
	return account, true
}

func writeAuthError(ctx context.Context, w http.ResponseWriter, err error, log logging.Logger) {
	switch {
	case errors.Is(err, common.ErrNoCredential):
		writeText(w, http.StatusUnauthorized, MsgNoAuthHeader)
	case errors.Is(err, common.ErrMalformedCredential):
		writeText(w, http.StatusUnauthorized, MsgInvalidAuthHeader)
	case errors.Is(err, common.ErrInvalidToken):
		writeText(w, http.StatusBadRequest, MsgInvalidToken)
	default:
		log.Error(ctx, "authentication failed", "error", err)
		writeText(w, http.StatusInternalServerError, MsgInternal)
	}
}

// NotFound is the router fallback.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusNotFound, MsgNotFound)
}
