// Package sonar is a small client for the SonarQube administrative web API
// (see [URL]/web_api on a running server).
//
// Every call is HTTP Basic authenticated with the credentials currently held by
// the Client. Parameters travel in the query string, responses are JSON. Calls
// are never retried here; WaitReady is the only bounded retry loop.
package sonar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"sonar-setup/internal/domain"
)

// DefaultTimeout bounds a single HTTP round trip.
const DefaultTimeout = 30 * time.Second

// Param is one query parameter. Parameters are encoded in the order given.
type Param struct {
	Key   string
	Value string
}

// P is shorthand for building a Param.
func P(key, value string) Param {
	return Param{Key: key, Value: value}
}

// Client talks to one SonarQube server as one user.
type Client struct {
	BaseURL       string
	HTTPClient    *http.Client
	Logger        *slog.Logger
	RequestID     string
	ProbeInterval time.Duration

	limiter  *rate.Limiter
	username string
	password string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.HTTPClient = h }
}

// WithLogger sets the logger used for per-request debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithRateLimit caps the client to rps requests per second. Zero or a
// negative value disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithProbeInterval overrides the delay between readiness probes.
func WithProbeInterval(d time.Duration) Option {
	return func(c *Client) { c.ProbeInterval = d }
}

// NewClient creates a client for baseURL. A single trailing slash is removed.
func NewClient(baseURL, username, password string, opts ...Option) *Client {
	c := &Client{
		BaseURL:       strings.TrimSuffix(baseURL, "/"),
		HTTPClient:    &http.Client{Timeout: DefaultTimeout},
		Logger:        slog.New(slog.DiscardHandler),
		RequestID:     uuid.NewString(),
		ProbeInterval: DefaultProbeInterval,
		username:      username,
		password:      password,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Username returns the login the client authenticates as.
func (c *Client) Username() string { return c.username }

// Password returns the password currently held by the client.
func (c *Client) Password() string { return c.password }

// SetPassword replaces the held password. It is the only place the session
// credentials change after construction.
func (c *Client) SetPassword(password string) {
	c.password = password
}

// BuildURL joins the base URL, path and escaped query parameters.
func (c *Client) BuildURL(path string, query []Param) string {
	var b strings.Builder
	b.WriteString(c.BaseURL)
	b.WriteString(path)
	for i, p := range query {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(escape(p.Key))
		b.WriteByte('=')
		b.WriteString(escape(p.Value))
	}
	return b.String()
}

func escape(s string) string {
	return url.QueryEscape(s)
}

// Do executes an authenticated request with the held credentials.
func (c *Client) Do(ctx context.Context, method, path string, query []Param) (*http.Response, error) {
	return c.send(ctx, method, path, query, &basicAuth{username: c.username, password: c.password})
}

// Get executes an authenticated GET.
func (c *Client) Get(ctx context.Context, path string, query []Param) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, path, query)
}

// Post executes an authenticated POST.
func (c *Client) Post(ctx context.Context, path string, query []Param) (*http.Response, error) {
	return c.Do(ctx, http.MethodPost, path, query)
}

type basicAuth struct {
	username string
	password string
}

func (c *Client) send(ctx context.Context, method, path string, query []Param, auth *basicAuth) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BuildURL(path, query), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.RequestID != "" {
		req.Header.Set("X-Request-Id", c.RequestID)
	}
	if auth != nil {
		req.SetBasicAuth(auth.username, auth.password)
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Debug("api request failed", "method", method, "path", path, "error", err)
		return nil, fmt.Errorf("execute request %s %s: %w", method, path, err)
	}
	c.Logger.Debug("api request", "method", method, "path", path,
		"status", resp.StatusCode, "duration", time.Since(start))
	return resp, nil
}

// ReadBody reads and closes the response body.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close() //nolint:errcheck
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return data, nil
}

// IsSuccess reports whether status is in the 2xx range.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}

// CheckError consumes resp and returns an *APIError when the status is not
// 2xx. The op string describes what the caller was doing.
func CheckError(resp *http.Response, op string) error {
	body, err := ReadBody(resp)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if IsSuccess(resp.StatusCode) {
		return nil
	}
	return newAPIError(resp.StatusCode, body, op)
}

// decodeResponse consumes resp and unmarshals a successful body into target.
func decodeResponse(resp *http.Response, op string, target interface{}) error {
	body, err := ReadBody(resp)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !IsSuccess(resp.StatusCode) {
		return newAPIError(resp.StatusCode, body, op)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return domain.ErrDeserialization(op, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, query []Param, op string, target interface{}) error {
	resp, err := c.Get(ctx, path, query)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return decodeResponse(resp, op, target)
}

func (c *Client) postJSON(ctx context.Context, path string, query []Param, op string, target interface{}) error {
	resp, err := c.Post(ctx, path, query)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return decodeResponse(resp, op, target)
}

func (c *Client) post(ctx context.Context, path string, query []Param, op string) error {
	resp, err := c.Post(ctx, path, query)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return CheckError(resp, op)
}
