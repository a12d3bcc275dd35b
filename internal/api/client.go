package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client wraps a Gateway with one method per backend route. Methods return the
// decoded Envelope; a {success:false} body becomes an *AppError.
type Client struct {
	gw             *Gateway
	diskMapTimeout time.Duration
}

// NewClient creates a route client. diskMapTimeout bounds the heavy disk scan.
func NewClient(gw *Gateway, diskMapTimeout time.Duration) *Client {
	if diskMapTimeout <= 0 {
		diskMapTimeout = 60 * time.Second
	}
	return &Client{gw: gw, diskMapTimeout: diskMapTimeout}
}

// Gateway exposes the underlying gateway.
func (c *Client) Gateway() *Gateway {
	return c.gw
}

func (c *Client) envelope(ctx context.Context, endpoint string, opts CallOptions) (Envelope, error) {
	env, err := c.gw.Envelope(ctx, endpoint, opts)
	if err != nil {
		return nil, err
	}
	if !env.Success() {
		return nil, &AppError{StatusCode: http.StatusOK, Message: env.Message()}
	}
	return env, nil
}

func post() CallOptions {
	return CallOptions{Method: http.MethodPost}
}

// Health is GET /health.
func (c *Client) Health(ctx context.Context) bool {
	return c.gw.Health(ctx)
}

// Login submits multipart credentials to /api/auth/login. A 401 here means
// bad credentials, so the session is never touched.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	env, err := c.gw.Envelope(ctx, "/api/auth/login", CallOptions{
		Method:        http.MethodPost,
		Body:          FormData{"username": username, "password": password},
		OnAuthFailure: Ignore,
	})
	if err != nil {
		return "", err
	}
	tok, _ := env["access_token"].(string)
	if tok == "" {
		msg := env.Message()
		if msg == "" {
			msg = "Unknown error"
		}
		return "", &AppError{StatusCode: http.StatusOK, Message: msg}
	}
	return tok, nil
}

// GoogleLoginURL is the redirect-based OAuth entry point.
func (c *Client) GoogleLoginURL() string {
	return c.gw.BaseURL() + "/api/auth/google"
}

// Me is GET /api/auth/me. It has no success flag.
func (c *Client) Me(ctx context.Context) (Envelope, error) {
	return c.gw.Envelope(ctx, "/api/auth/me", CallOptions{})
}

// SystemInfo is the silent dashboard poll.
func (c *Client) SystemInfo(ctx context.Context) (Envelope, error) {
	return c.gw.Envelope(ctx, "/api/system/info", CallOptions{OnAuthFailure: Ignore})
}

// Alerts returns stored and current alerts.
func (c *Client) Alerts(ctx context.Context) (Envelope, error) {
	return c.envelope(ctx, "/api/alerts", CallOptions{})
}

func (c *Client) BoostRAM(ctx context.Context) (Envelope, error) {
	return c.envelope(ctx, "/api/boost-ram", post())
}

func (c *Client) ScanJunk(ctx context.Context) (Envelope, error) {
	return c.envelope(ctx, "/api/junk-files/scan", CallOptions{})
}

func (c *Client) CleanJunk(ctx context.Context) (Envelope, error) {
	return c.envelope(ctx, "/api/junk-files/clean", post())
}

func (c *Client) AutoOptimize(ctx context.Context) (Envelope, error) {
	return c.envelope(ctx, "/api/ai/auto-optimize", post())
}

func (c *Client) Predict(ctx context.Context) (Envelope, error) {
	return c.envelope(ctx, "/api/ai/predict", CallOptions{})
}

// Report downloads the generated PDF.
func (c *Client) Report(ctx context.Context) ([]byte, error) {
	return c.gw.Download(ctx, "/api/ai/report", CallOptions{Header: http.Header{"Accept": {"application/pdf"}}})
}

// Drives lists scannable drives. It is called at startup, so it is silent.
func (c *Client) Drives(ctx context.Context) (Envelope, error) {
	return c.envelope(ctx, "/api/drives", CallOptions{OnAuthFailure: Ignore})
}

// DiskMap scans drive to depth under the disk-map deadline.
func (c *Client) DiskMap(ctx context.Context, drive string, depth int) (Envelope, error) {
	q := url.Values{}
	q.Set("drive", drive)
	q.Set("max_depth", fmt.Sprint(depth))
	return c.envelope(ctx, "/api/disk-map?"+q.Encode(), CallOptions{Timeout: c.diskMapTimeout})
}

func (c *Client) Apps(ctx context.Context) (Envelope, error) {
	return c.envelope(ctx, "/api/apps", CallOptions{})
}

// RemoveApp starts the uninstaller for name.
func (c *Client) RemoveApp(ctx context.Context, name string) (Envelope, error) {
	return c.envelope(ctx, "/api/apps/"+url.PathEscape(name)+"/remove", post())
}

func (c *Client) Firewall(ctx context.Context) (Envelope, error) {
	return c.envelope(ctx, "/api/security/firewall", CallOptions{})
}

func (c *Client) Ports(ctx context.Context) (Envelope, error) {
	return c.envelope(ctx, "/api/security/ports", CallOptions{})
}

func (c *Client) SecurityScan(ctx context.Context) (Envelope, error) {
	return c.envelope(ctx, "/api/security/scan", post())
}
