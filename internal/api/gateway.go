// Package api is the single chokepoint for outbound calls to the AutoSense
// backend. It attaches credentials, negotiates content type and applies the
// authentication-failure policy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"slices"
	"strings"
	"time"
)

const (
	maxJSONBody   = 8 << 20
	maxBinaryBody = 64 << 20
)

// AuthFailurePolicy decides what a 401 does to the session.
type AuthFailurePolicy int

const (
	// Logout clears the session synchronously before the call returns.
	Logout AuthFailurePolicy = iota
	// Ignore leaves the session alone; used for advisory and startup calls.
	Ignore
)

func (p AuthFailurePolicy) String() string {
	if p == Ignore {
		return "ignore"
	}
	return "logout"
}

// FormData is sent as multipart/form-data instead of JSON.
type FormData map[string]string

// CallOptions configures a single Call.
type CallOptions struct {
	Method        string // default GET
	Body          any    // JSON-encoded unless FormData
	OnAuthFailure AuthFailurePolicy
	Timeout       time.Duration // 0 means the gateway default
	Header        http.Header
}

// TokenSource supplies the current bearer token; empty means anonymous.
type TokenSource interface {
	Token() string
}

// Gateway executes requests against one backend base URL.
type Gateway struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenSource
	onUnauthorized func()
	timeout        time.Duration
	logger         *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		g.httpClient = c
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(g *Gateway) {
		g.tokens = ts
	}
}

// WithDefaultTimeout sets the deadline applied when CallOptions.Timeout is 0.
func WithDefaultTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.timeout = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGateway creates a gateway for baseURL.
func NewGateway(baseURL string, opts ...Option) *Gateway {
	g := &Gateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    30 * time.Second,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// BaseURL returns the backend root without a trailing slash.
func (g *Gateway) BaseURL() string {
	return g.baseURL
}

// OnUnauthorized registers the hook run when a non-silent call gets a 401.
// The session manager installs its Logout here once both exist.
func (g *Gateway) OnUnauthorized(fn func()) {
	g.onUnauthorized = fn
}

// Call performs one request and returns the raw JSON body. Any failure returns
// a nil payload; the error says which kind (see errors.go). Non-2xx responses
// with a JSON body are returned as-is so callers can read {success:false}.
func (g *Gateway) Call(ctx context.Context, endpoint string, opts CallOptions) (json.RawMessage, error) {
	body, err := g.do(ctx, endpoint, opts, "application/json", maxJSONBody)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, ErrInvalidResponse
	}
	return json.RawMessage(body), nil
}

// Envelope is Call followed by decoding into an Envelope.
func (g *Gateway) Envelope(ctx context.Context, endpoint string, opts CallOptions) (Envelope, error) {
	raw, err := g.Call(ctx, endpoint, opts)
	if err != nil {
		return nil, err
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if env == nil {
		env = Envelope{}
	}
	return env, nil
}

// Download fetches a binary body (e.g. the PDF report). Non-2xx statuses are
// failures.
func (g *Gateway) Download(ctx context.Context, endpoint string, opts CallOptions) ([]byte, error) {
	return g.do(ctx, endpoint, opts, "*/*", maxBinaryBody)
}

// Health reports backend liveness from GET /health. It never attaches
// credentials and never touches the session.
func (g *Gateway) Health(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Cache-Control", "no-store")
	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.logger.Debug("health check failed", slog.String("error", err.Error()))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (g *Gateway) do(ctx context.Context, endpoint string, opts CallOptions, accept string, limit int64) ([]byte, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = g.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	reqBody, contentType, err := encodeBody(opts.Body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, &TransportError{Op: "build request", Err: err}
	}
	for k, vs := range opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", contentType)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", accept)
	}

	// Read at send time so a logout between calls is honored.
	if g.tokens != nil {
		if tok := g.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			g.logger.Warn("api call timed out",
				slog.String("method", method),
				slog.String("endpoint", endpoint),
				slog.Duration("timeout", timeout),
			)
			return nil, ErrTimeout
		}
		g.logger.Debug("api call failed",
			slog.String("method", method),
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return nil, &TransportError{Op: method + " " + endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, &TransportError{Op: "read body", Err: err}
	}

	g.logger.Debug("api call",
		slog.String("method", method),
		slog.String("endpoint", endpoint),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		if opts.OnAuthFailure == Logout && g.onUnauthorized != nil {
			g.logger.Info("session rejected by server, logging out", slog.String("endpoint", endpoint))
			g.onUnauthorized()
		}
		return nil, appErrorFrom(resp.StatusCode, body)
	}

	if accept != "application/json" && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return nil, appErrorFrom(resp.StatusCode, body)
	}
	return body, nil
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "application/json", nil
	case FormData:
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		keys := make([]string, 0, len(b))
		for k := range b {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if err := w.WriteField(k, b[k]); err != nil {
				return nil, "", fmt.Errorf("api: encode form field %s: %w", k, err)
			}
		}
		if err := w.Close(); err != nil {
			return nil, "", fmt.Errorf("api: close form: %w", err)
		}
		return &buf, w.FormDataContentType(), nil
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("api: encode body: %w", err)
		}
		return bytes.NewReader(encoded), "application/json", nil
	}
}
