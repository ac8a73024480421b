// Package apiclient is the remote access layer: verb-based JSON calls
// against the task-management API.
package apiclient

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

	"github.com/rs/zerolog"

	"github.com/p-blackswan/taskboard/internal/apierr"
	"github.com/p-blackswan/taskboard/internal/metrics"
	"github.com/p-blackswan/taskboard/internal/models"
	"github.com/p-blackswan/taskboard/internal/requestid"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 60 * time.Second

const maxBodyBytes = 10 << 20

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client wraps the task-management REST API.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	auth       Authenticator
	timeout    time.Duration
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetrics records request counts and durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a new API client. auth may be nil for unauthenticated use.
func NewClient(baseURL string, auth Authenticator, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		auth:    auth,
		timeout: DefaultTimeout,
		logger:  logger.With().Str("component", "apiclient").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get issues a GET and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with body encoded as JSON.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT with body encoded as JSON.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

// Patch issues a PATCH with body encoded as JSON.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, body, out)
}

// Delete issues a DELETE. out may be nil.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

// Ping checks that the API host answers at all. Any HTTP response counts.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apierr.NewTransport(classify(err))
	}
	resp.Body.Close()
	return nil
}

// do executes an API request. Every failure is an *apierr.Error.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ctx, reqID := requestid.Ensure(ctx)
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return apierr.NewTransport(fmt.Errorf("encoding request: %w", err))
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return apierr.NewTransport(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestid.Header, reqID)

	if c.auth != nil {
		if err := c.auth.Apply(req); err != nil {
			return apierr.NewTransport(fmt.Errorf("applying auth: %w", err))
		}
	}

	route := routeLabel(path)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.ObserveRequest(method, route, 0, elapsed.Seconds())
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).
			Str("request_id", reqID).Dur("elapsed", elapsed).Msg("api request failed")
		return apierr.NewTransport(classify(err))
	}
	defer resp.Body.Close()

	c.metrics.ObserveRequest(method, route, resp.StatusCode, elapsed.Seconds())
	c.logger.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).
		Str("request_id", reqID).Dur("elapsed", elapsed).Msg("api request")

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return apierr.NewTransport(fmt.Errorf("reading response: %w", classify(err)))
	}

	if resp.StatusCode >= 400 {
		var msg models.MessageBody
		_ = json.Unmarshal(raw, &msg)
		return apierr.NewServer(resp.StatusCode, strings.TrimSpace(msg.Message))
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apierr.NewTransport(fmt.Errorf("%w: %v", apierr.ErrMalformedResponse, err))
	}
	return nil
}

// classify folds the various timeout errors into apierr.ErrTimeout.
func classify(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", apierr.ErrTimeout, err)
	}
	return err
}

// staticSegments are path parts kept verbatim in metric labels; anything
// else is an identifier.
var staticSegments = map[string]bool{
	"auth": true, "login": true, "register": true, "logout": true,
	"project": true, "projects": true, "tasks": true, "status": true,
	"user": true, "get-all-members": true, "dashboard": true, "overview": true,
}

// routeLabel turns /projects/p1/tasks/t9 into /projects/:id/tasks/:id.
func routeLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if p != "" && !staticSegments[p] {
			parts[i] = ":id"
		}
	}
	return "/" + strings.Join(parts, "/")
}
