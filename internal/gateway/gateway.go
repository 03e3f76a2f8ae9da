// Package gateway is the single HTTP exit point of the console. It attaches
// the bearer token, and on an expired access token performs one refresh and
// one retry of the original call.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	AnonymousPrefix = "/auth/"
	LoginPath       = "/auth/login"
	RegisterPath    = "/auth/register"
	RefreshPath     = "/auth/refresh"

	bearerPrefix    = "Bearer "
	requestIDHeader = "X-Request-ID"
	refreshKey      = "refresh"
	defaultTimeout  = 30 * time.Second
)

// Sessions is the slice of the session service the gateway needs
type Sessions interface {
	AccessToken() string
	RefreshToken() string
	UpdateTokens(access, refresh string) error
	Logout() error
}

// Gateway sends API requests on behalf of the logged-in user
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	sessions   Sessions
	logger     zerolog.Logger

	logoutOnRefreshRejected bool
	refreshes               singleflight.Group
}

// Option configures a Gateway
type Option func(*Gateway)

// WithHTTPClient sets a custom HTTP client. Its own timeout is left as is.
// A nil client keeps the default one.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(g *Gateway) {
		g.httpClient = httpClient
	}
}

// WithTimeout sets the timeout of the default client
func WithTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		g.timeout = timeout
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger.With().Str("component", "gateway").Logger()
	}
}

// WithLogoutOnRefreshRejected controls whether a refresh token refused by the
// backend (4xx) ends the session. Enabled by default.
func WithLogoutOnRefreshRejected(enabled bool) Option {
	return func(g *Gateway) {
		g.logoutOnRefreshRejected = enabled
	}
}

// New creates a gateway for the API rooted at baseURL
func New(baseURL string, sessions Sessions, opts ...Option) *Gateway {
	g := &Gateway{
		baseURL:                 strings.TrimRight(baseURL, "/"),
		timeout:                 defaultTimeout,
		sessions:                sessions,
		logger:                  zerolog.Nop(),
		logoutOnRefreshRejected: true,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.httpClient == nil {
		g.httpClient = &http.Client{Timeout: g.timeout}
	}
	return g
}

// Response is a fully read HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the JSON body into v
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Request sends one logical request. Any HTTP status comes back as a
// Response; errors are NetworkError, RefreshError or request construction
// failures.
func (g *Gateway) Request(ctx context.Context, method, path string, body any) (*Response, error) {
	path = normalizePath(path)

	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	attempt := firstAttempt()
	token := g.credentialFor(path)

	resp, err := g.send(ctx, method, path, payload, token, attempt)
	if err != nil {
		return nil, err
	}
	if !g.shouldRefresh(path, resp, attempt) {
		return resp, nil
	}

	g.logger.Debug().Str("method", method).Str("path", path).Msg("Access token rejected, refreshing")

	if err := g.refresh(ctx, token); err != nil {
		return nil, err
	}

	// The retry's outcome is final whatever it is
	return g.send(ctx, method, path, payload, g.credentialFor(path), attempt.retry())
}

// Do sends a request, turns non-2xx statuses into *StatusError and decodes
// the body into out when out is non-nil
func (g *Gateway) Do(ctx context.Context, method, path string, body, out any) error {
	resp, err := g.Request(ctx, method, path, body)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &StatusError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
	if out != nil && len(bytes.TrimSpace(resp.Body)) > 0 {
		return resp.Decode(out)
	}
	return nil
}

func (g *Gateway) credentialFor(path string) string {
	if strings.HasPrefix(path, AnonymousPrefix) {
		return ""
	}
	return g.sessions.AccessToken()
}

func (g *Gateway) shouldRefresh(path string, resp *Response, attempt AttemptContext) bool {
	return resp.StatusCode == http.StatusUnauthorized &&
		stripQuery(path) != LoginPath &&
		!attempt.Retried
}

func (g *Gateway) send(ctx context.Context, method, path string, payload []byte, token string, attempt AttemptContext) (*Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := ulid.Make().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", bearerPrefix+token)
	}

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Method: method, Path: path, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	g.logger.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Int("attempt", attempt.Number).
		Bool("authenticated", token != "").
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("API request")

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return data, nil
}

func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		return "/" + path
	}
	return path
}

func stripQuery(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
