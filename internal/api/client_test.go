package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(NewGateway(srv.URL), time.Second)
}

func TestClient_Login(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		_ = r.ParseMultipartForm(1 << 20)
		if r.FormValue("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"Incorrect username or password"}`))
			return
		}
		w.Write([]byte(`{"access_token":"jwt-token","token_type":"bearer"}`))
	})

	tok, err := c.Login(context.Background(), "ada", "secret")
	if err != nil || tok != "jwt-token" {
		t.Fatalf("Login = %q, %v", tok, err)
	}

	_, err = c.Login(context.Background(), "ada", "wrong")
	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("err = %v, want AppError", err)
	}
	if appErr.Message != "Incorrect username or password" {
		t.Errorf("Message = %q", appErr.Message)
	}
}

func TestClient_LoginFailureNeverLogsOut(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"nope"}`))
	})
	fired := false
	c.Gateway().OnUnauthorized(func() { fired = true })

	if _, err := c.Login(context.Background(), "a", "b"); err == nil {
		t.Fatal("expected error")
	}
	if fired {
		t.Error("login failure triggered logout")
	}
}

func TestClient_SuccessFalseIsAppError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":"Access denied"}`))
	})

	_, err := c.BoostRAM(context.Background())
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Message != "Access denied" {
		t.Errorf("err = %v", err)
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Error("success:false must not look like a 401")
	}
}

func TestClient_Routes(t *testing.T) {
	tests := []struct {
		name       string
		call       func(c *Client) error
		wantMethod string
		wantPath   string
		wantQuery  string
	}{
		{"alerts", func(c *Client) error { _, err := c.Alerts(context.Background()); return err }, "GET", "/api/alerts", ""},
		{"boost", func(c *Client) error { _, err := c.BoostRAM(context.Background()); return err }, "POST", "/api/boost-ram", ""},
		{"junk scan", func(c *Client) error { _, err := c.ScanJunk(context.Background()); return err }, "GET", "/api/junk-files/scan", ""},
		{"junk clean", func(c *Client) error { _, err := c.CleanJunk(context.Background()); return err }, "POST", "/api/junk-files/clean", ""},
		{"optimize", func(c *Client) error { _, err := c.AutoOptimize(context.Background()); return err }, "POST", "/api/ai/auto-optimize", ""},
		{"predict", func(c *Client) error { _, err := c.Predict(context.Background()); return err }, "GET", "/api/ai/predict", ""},
		{"drives", func(c *Client) error { _, err := c.Drives(context.Background()); return err }, "GET", "/api/drives", ""},
		{"disk map", func(c *Client) error { _, err := c.DiskMap(context.Background(), "C:", 3); return err }, "GET", "/api/disk-map", "drive=C%3A&max_depth=3"},
		{"apps", func(c *Client) error { _, err := c.Apps(context.Background()); return err }, "GET", "/api/apps", ""},
		{"remove app", func(c *Client) error { _, err := c.RemoveApp(context.Background(), "My App"); return err }, "POST", "/api/apps/My App/remove", ""},
		{"firewall", func(c *Client) error { _, err := c.Firewall(context.Background()); return err }, "GET", "/api/security/firewall", ""},
		{"ports", func(c *Client) error { _, err := c.Ports(context.Background()); return err }, "GET", "/api/security/ports", ""},
		{"scan", func(c *Client) error { _, err := c.SecurityScan(context.Background()); return err }, "POST", "/api/security/scan", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var method, path, query string
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				method, path, query = r.Method, r.URL.Path, r.URL.RawQuery
				w.Write([]byte(`{"success":true}`))
			})
			if err := tt.call(c); err != nil {
				t.Fatalf("call: %v", err)
			}
			if method != tt.wantMethod || path != tt.wantPath {
				t.Errorf("got %s %s, want %s %s", method, path, tt.wantMethod, tt.wantPath)
			}
			if query != tt.wantQuery {
				t.Errorf("query = %q, want %q", query, tt.wantQuery)
			}
		})
	}
}

func TestClient_SystemInfoIsSilent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{}`))
	})
	fired := false
	c.Gateway().OnUnauthorized(func() { fired = true })

	if _, err := c.SystemInfo(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v", err)
	}
	if fired {
		t.Error("silent system info call triggered logout")
	}
}

func TestClient_GoogleLoginURL(t *testing.T) {
	c := NewClient(NewGateway("http://localhost:8000/"), 0)
	if got := c.GoogleLoginURL(); got != "http://localhost:8000/api/auth/google" {
		t.Errorf("GoogleLoginURL = %s", got)
	}
}
