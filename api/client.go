// Package api is the HTTP client for the campaigns portal API. All calls go
// through one wrapping Client that attaches the bearer token, bounds every
// request with a timeout, retries exactly once after a 401 recovered by a
// token refresh, and validates response payloads at the boundary.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/i9smart/go-campaigns-client/apierror"
	"github.com/i9smart/go-campaigns-client/token"
	"github.com/i9smart/go-campaigns-client/token/store"
)

// DefaultTimeout bounds every request issued by the client.
const DefaultTimeout = 30 * time.Second

const (
	loginPath   = "/api/auth/login"
	refreshPath = "/api/auth/refresh"
	mePath      = "/api/auth/me"
	logoutPath  = "/api/auth/logout"
)

// validator is implemented by response types that carry boundary validation.
type validator interface {
	Validate() error
}

// Client is the intercepting API client. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	store      store.Store
	logger     zerolog.Logger
	metrics    *Instrumentation
	timeout    time.Duration
	nowFunc    func() time.Time

	refreshGroup singleflight.Group

	mu            sync.RWMutex
	onAuthFailure func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithTimeout overrides the per-request time budget.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithInstrumentation sets the metric set.
func WithInstrumentation(m *Instrumentation) Option {
	return func(c *Client) { c.metrics = m }
}

// WithNowFunc sets the clock used for token-expiry checks (for tests).
func WithNowFunc(fn func() time.Time) Option {
	return func(c *Client) { c.nowFunc = fn }
}

// New creates a Client for the portal at baseURL, reading and writing tokens
// through st.
func New(baseURL string, st store.Store, opts ...Option) (*Client, error) {
	if st == nil {
		return nil, errors.New("token store is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{},
		store:      st,
		logger:     zerolog.Nop(),
		timeout:    DefaultTimeout,
		nowFunc:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = NewInstrumentation(nil)
	}
	return c, nil
}

// SetAuthFailureHandler registers the hook invoked when a 401 could not be
// recovered by a token refresh. The session coordinator uses it to tear the
// session down.
func (c *Client) SetAuthFailureHandler(fn func()) {
	c.mu.Lock()
	c.onAuthFailure = fn
	c.mu.Unlock()
}

func (c *Client) notifyAuthFailure() {
	c.mu.RLock()
	fn := c.onAuthFailure
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// isAuthPath reports whether path belongs to the auth endpoints that are
// exempt from the 401 refresh-and-retry loop.
func isAuthPath(path string) bool {
	return path == loginPath || path == refreshPath
}

type request struct {
	method      string
	path        string
	query       url.Values
	contentType string
	body        []byte
}

// do issues the request with the single 401 recovery: one shared refresh, one
// retry. Auth endpoints are exempt to keep the loop from recursing.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	req := request{method: method, path: path, query: query}
	if in != nil {
		switch v := in.(type) {
		case url.Values:
			req.body = []byte(v.Encode())
			req.contentType = "application/x-www-form-urlencoded"
		default:
			data, err := json.Marshal(in)
			if err != nil {
				return fmt.Errorf("encode request body: %w", err)
			}
			req.body = data
			req.contentType = "application/json"
		}
	}

	err := c.send(ctx, req, out)
	if err == nil || isAuthPath(path) {
		return err
	}

	var ae *apierror.Error
	if !errors.As(err, &ae) || ae.StatusCode != http.StatusUnauthorized {
		return err
	}

	if _, rerr := c.RefreshTokens(ctx); rerr != nil {
		c.notifyAuthFailure()
		return apierror.Wrap(apierror.CategoryAuthorization, "session expired", rerr).
			WithStatus(http.StatusUnauthorized)
	}

	c.metrics.authRetries.Inc()
	if err := c.send(ctx, req, out); err != nil {
		if errors.As(err, &ae) && ae.StatusCode == http.StatusUnauthorized {
			// The retry was rejected too; no second refresh cycle.
			c.notifyAuthFailure()
		}
		return err
	}
	return nil
}

// send issues a single request attempt without any retry handling.
func (c *Client) send(ctx context.Context, req request, out any) error {
	reqID := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + req.path
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", reqID)

	if tok, terr := c.store.AccessToken(ctx); terr == nil && tok != "" && !token.IsExpired(tok, c.nowFunc()) {
		httpReq.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.observeRequest(req.method, "transport_error")
		return c.classifyTransportError(err, reqID)
	}
	defer resp.Body.Close()

	c.metrics.observeRequest(req.method, strconv.Itoa(resp.StatusCode))
	c.logger.Debug().
		Str("request_id", reqID).
		Str("method", req.method).
		Str("path", req.path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api request")

	if resp.StatusCode >= 400 {
		return c.errorFromResponse(req.path, resp, reqID)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // draining for connection reuse
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apierror.Wrap(apierror.CategoryNetwork, "read response body", err).WithRequestID(reqID)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apierror.Wrap(apierror.CategoryMalformedResponse, "decode response", err).
			WithStatus(resp.StatusCode).WithRequestID(reqID)
	}
	if v, ok := out.(validator); ok {
		if err := v.Validate(); err != nil {
			return apierror.Wrap(apierror.CategoryMalformedResponse, "invalid response payload", err).
				WithStatus(resp.StatusCode).WithRequestID(reqID)
		}
	}
	return nil
}

func (c *Client) classifyTransportError(err error, reqID string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apierror.Wrap(apierror.CategoryTimeout,
			fmt.Sprintf("request exceeded the %s budget", c.timeout), err).WithRequestID(reqID)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return apierror.Wrap(apierror.CategoryNetwork, "cannot reach server", err).WithRequestID(reqID)
}

type errorPayload struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (c *Client) errorFromResponse(path string, resp *http.Response, reqID string) error {
	msg := fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	if data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil {
		var payload errorPayload
		if json.Unmarshal(data, &payload) == nil {
			switch {
			case payload.Detail != "":
				msg = payload.Detail
			case payload.Message != "":
				msg = payload.Message
			}
		}
	}

	cat := apierror.CategoryServer
	switch {
	case resp.StatusCode == http.StatusUnauthorized && path == loginPath:
		cat = apierror.CategoryCredential
	case resp.StatusCode == http.StatusUnauthorized:
		cat = apierror.CategoryAuthorization
	}
	return apierror.New(cat, msg).WithStatus(resp.StatusCode).WithRequestID(reqID)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, in, out)
}

func (c *Client) put(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, in, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}
