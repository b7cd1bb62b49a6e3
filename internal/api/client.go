// Package api is a thin client for the game server monitoring REST API.
// It attaches the bearer token, normalizes failures into *Error values and
// invalidates the session whenever the API answers 401.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/gsdash/internal/models"
	"github.com/woozymasta/gsdash/internal/vars"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodySize    = 4 << 20
	networkMessage = "network error: please check your connection"
)

// Authenticator supplies the bearer token and is told when the API rejects it.
type Authenticator interface {
	Token() string
	Invalidate()
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithRateLimit limits outbound requests to rps per second with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// Client talks to a single API base URL. It is safe for concurrent use.
type Client struct {
	auth    Authenticator
	http    *http.Client
	limiter *rate.Limiter
	baseURL string
	mu      sync.RWMutex
}

// New creates a client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the API base URL without trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// UseAuth attaches the authenticator consulted on every request.
func (c *Client) UseAuth(a Authenticator) {
	c.mu.Lock()
	c.auth = a
	c.mu.Unlock()
}

func (c *Client) authenticator() Authenticator {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.auth
}

// Servers returns all servers with their live status.
func (c *Client) Servers(ctx context.Context) ([]models.ServerWithStatus, error) {
	var out []models.ServerWithStatus
	if err := c.do(ctx, "fetch servers", http.MethodGet, "/api/servers", nil, &out); err != nil {
		return nil, err
	}

	return out, nil
}

// Server returns a single server with its live status.
func (c *Client) Server(ctx context.Context, id uint) (*models.ServerWithStatus, error) {
	var out models.ServerWithStatus
	if err := c.do(ctx, fmt.Sprintf("fetch server %d", id), http.MethodGet, fmt.Sprintf("/api/servers/%d", id), nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	var out models.LoginResponse
	if err := c.do(ctx, "login", http.MethodPost, "/api/auth/login", req, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, &Error{Kind: KindDecode, Op: "login", Message: "login failed: no token in response"}
	}

	return &out, nil
}

// ChangePassword changes the password of the authenticated admin.
func (c *Client) ChangePassword(ctx context.Context, req models.ChangePasswordRequest) error {
	return c.do(ctx, "change password", http.MethodPost, "/api/auth/change-password", req, nil)
}

// AdminServers returns all server records without status.
func (c *Client) AdminServers(ctx context.Context) ([]models.Server, error) {
	var out []models.Server
	if err := c.do(ctx, "fetch admin servers", http.MethodGet, "/api/admin/servers", nil, &out); err != nil {
		return nil, err
	}

	return out, nil
}

// CreateServer creates a server record.
func (c *Client) CreateServer(ctx context.Context, req models.ServerRequest) (*models.Server, error) {
	var out models.Server
	if err := c.do(ctx, "create server", http.MethodPost, "/api/admin/servers", req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// UpdateServer replaces the editable fields of a server record.
func (c *Client) UpdateServer(ctx context.Context, id uint, req models.ServerRequest) (*models.Server, error) {
	var out models.Server
	if err := c.do(ctx, fmt.Sprintf("update server %d", id), http.MethodPut, fmt.Sprintf("/api/admin/servers/%d", id), req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// DeleteServer removes a server record.
func (c *Client) DeleteServer(ctx context.Context, id uint) error {
	return c.do(ctx, fmt.Sprintf("delete server %d", id), http.MethodDelete, fmt.Sprintf("/api/admin/servers/%d", id), nil, nil)
}

// Ping checks that the API is reachable with a HEAD request on the public list.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodHead, "/api/servers", nil, nil)
}

// do performs a request and decodes the envelope data into out (if not nil).
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", vars.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	auth := c.authenticator()
	if auth != nil {
		if token := auth.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		// caller gave up, not a connectivity problem
		if ctx.Err() != nil {
			return ctx.Err()
		}

		log.Debug().
			Err(err).
			Str("method", method).
			Str("path", path).
			Msg("API request failed")

		return &Error{Kind: KindNetwork, Op: op, Message: networkMessage, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &Error{Kind: KindNetwork, Op: op, Message: networkMessage, Err: err}
	}

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("API request handled")

	if resp.StatusCode >= http.StatusBadRequest {
		return c.failure(op, resp.StatusCode, raw, auth)
	}

	if out == nil || method == http.MethodHead || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	return decodeData(op, raw, out)
}

func (c *Client) failure(op string, status int, raw []byte, auth Authenticator) error {
	var env models.Envelope[json.RawMessage]
	_ = json.Unmarshal(raw, &env)

	apiErr := &Error{
		Kind:    KindHTTP,
		Op:      op,
		Status:  status,
		Message: httpMessage(status, env.Error, env.Message),
	}

	if status == http.StatusUnauthorized {
		apiErr.Kind = KindUnauthorized
		if auth != nil {
			auth.Invalidate()
		}
		log.Warn().Str("op", op).Msg("API rejected credentials, session cleared")
	}

	return apiErr
}

// decodeData unwraps {data: ...}. Bodies without a data field are decoded
// as the payload itself (the login route answers with a bare object).
func decodeData(op string, raw []byte, out any) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err == nil {
		if data, ok := fields["data"]; ok {
			if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
				return nil
			}
			raw = data
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: KindDecode, Op: op, Message: fmt.Sprintf("%s: unexpected response", op), Err: err}
	}

	return nil
}
