// Package client talks to a licensegate server: the HTTP surface used by
// people taking the exam and the RPC surface used by other services.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/licensegate/internal/common"
	"github.com/dmitrijs2005/licensegate/internal/server/rest"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxBody = 1 << 20

// Instruction is a pending exam challenge. Done is set when the account is
// already licensed and no challenge was issued.
type Instruction struct {
	Done   bool
	ID     uint16
	Token  string
	Streak int
}

type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Register creates an account. Validation failures are returned as an
// *APIError carrying every problem reported by the server.
func (c *HTTPClient) Register(ctx context.Context, name, userName string, password []byte) error {
	req := rest.RegisterRequest{Name: name, UserName: userName, Password: string(password)}
	_, err := c.do(ctx, http.MethodPost, "/register", "", req, nil)
	return err
}

func (c *HTTPClient) Login(ctx context.Context, userName string, password []byte) (*rest.LoginResponse, error) {
	req := rest.LoginRequest{UserName: userName, Password: string(password)}
	resp := &rest.LoginResponse{}
	if _, err := c.do(ctx, http.MethodPost, "/login", "", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *HTTPClient) User(ctx context.Context, token string) (*rest.UserResponse, error) {
	resp := &rest.UserResponse{}
	if _, err := c.do(ctx, http.MethodGet, "/user", token, nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *HTTPClient) NextInstruction(ctx context.Context, token string) (*Instruction, error) {
	resp := &rest.InstructionResponse{}
	status, err := c.do(ctx, http.MethodPost, "/next_instruction", token, nil, resp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return &Instruction{Done: true}, nil
	}
	return &Instruction{ID: resp.ID, Token: resp.Token, Streak: resp.Streak}, nil
}

// Acknowledge answers the challenge identified by challengeToken on the
// given channel ("fizz", "buzz" or "other") and returns the server's text.
func (c *HTTPClient) Acknowledge(ctx context.Context, token, channel, challengeToken string) (string, error) {
	path, err := channelPath(channel)
	if err != nil {
		return "", err
	}
	var text string
	if _, err := c.do(ctx, http.MethodPost, path, token, rest.AckRequest{Token: challengeToken}, &text); err != nil {
		return "", err
	}
	return text, nil
}

func (c *HTTPClient) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", "", nil, nil)
	return err
}

func channelPath(channel string) (string, error) {
	switch channel {
	case "fizz":
		return "/fizz", nil
	case "buzz":
		return "/buzz", nil
	case "other":
		return "/instructions", nil
	}
	return "", fmt.Errorf("unknown channel %q", channel)
}

// do sends body as JSON and decodes the response into out. A *string out
// receives the raw body text. The response status is returned on success.
func (c *HTTPClient) do(ctx context.Context, method, path, token string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, mapTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return 0, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, decodeError(resp.StatusCode, data)
	}

	switch v := out.(type) {
	case nil:
	case *string:
		*v = string(data)
	default:
		if resp.StatusCode != http.StatusNoContent {
			if err := json.Unmarshal(data, out); err != nil {
				return resp.StatusCode, fmt.Errorf("decode response: %w", err)
			}
		}
	}
	return resp.StatusCode, nil
}

func decodeError(status int, data []byte) error {
	apiErr := &APIError{StatusCode: status, Message: strings.TrimSpace(string(data))}

	var problems []string
	if json.Unmarshal(data, &problems) == nil && len(problems) > 0 {
		apiErr.Problems = problems
	}

	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", ErrUnauthorized, apiErr)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, apiErr)
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return fmt.Errorf("%w: %w", ErrUnavailable, apiErr)
	}
	return apiErr
}

func mapTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
