package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/licensegate/internal/server/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/", 2*time.Second)
}

func TestHTTPClient_Register(t *testing.T) {
	var got rest.RegisterRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/register", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.Register(context.Background(), "Alice", "alice", []byte("correct horse battery")))
	assert.Equal(t, rest.RegisterRequest{Name: "Alice", UserName: "alice", Password: "correct horse battery"}, got)
}

func TestHTTPClient_Register_Problems(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `["Username too short","Password too short"]`)
	})

	err := c.Register(context.Background(), "Al", "al", []byte("x"))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, []string{"Username too short", "Password too short"}, apiErr.Problems)
	assert.Contains(t, err.Error(), "Username too short; Password too short")
}

func TestHTTPClient_Login(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"token":"tok","licensed":false,"incoming_message":["hello","world"]}`)
	})

	resp, err := c.Login(context.Background(), "alice", []byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.Token)
	assert.False(t, resp.Licensed)
	assert.Equal(t, []string{"hello", "world"}, resp.IncomingMessage)
}

func TestHTTPClient_User_SendsToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, "No authorization header")
			return
		}
		_, _ = io.WriteString(w, `{"id":"u1","name":"Alice","username":"alice","licensed":true}`)
	})

	u, err := c.User(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, &rest.UserResponse{ID: "u1", Name: "Alice", UserName: "alice", Licensed: true}, u)

	_, err = c.User(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestHTTPClient_NextInstruction(t *testing.T) {
	licensed := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/next_instruction", r.URL.Path)
		if licensed {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = io.WriteString(w, `{"id":15,"token":"ch","streak":3}`)
	})

	in, err := c.NextInstruction(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, &Instruction{ID: 15, Token: "ch", Streak: 3}, in)

	licensed = true
	in, err = c.NextInstruction(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, in.Done)
}

func TestHTTPClient_Acknowledge(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		var body rest.AckRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Token == "missing" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, "Unknown instruction")
			return
		}
		_, _ = io.WriteString(w, "ack "+body.Token)
	})
	ctx := context.Background()

	for _, ch := range []string{"fizz", "buzz", "other"} {
		text, err := c.Acknowledge(ctx, "tok", ch, "ch")
		require.NoError(t, err)
		assert.Equal(t, "ack ch", text)
	}
	assert.Equal(t, []string{"/fizz", "/buzz", "/instructions"}, paths)

	_, err := c.Acknowledge(ctx, "tok", "fizz", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Acknowledge(ctx, "tok", "fizzbuzz", "ch")
	assert.ErrorContains(t, err, "unknown channel")
}

func TestHTTPClient_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(url, time.Second)
	err := c.Health(context.Background())
	assert.True(t, errors.Is(err, ErrUnavailable), "got %v", err)
}
