package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

// mutableToken mimics a session: logout clears it.
type mutableToken struct {
	tok atomic.Value
}

func newMutableToken(tok string) *mutableToken {
	m := &mutableToken{}
	m.tok.Store(tok)
	return m
}

func (m *mutableToken) Token() string { return m.tok.Load().(string) }
func (m *mutableToken) clear() { m.tok.Store("") }

func TestCall_AttachesBearerAndJSONContentType(t *testing.T) {
	var gotAuth, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, WithTokenSource(staticToken("abc")))
	raw, err := gw.Call(context.Background(), "/api/alerts", CallOptions{})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if string(raw) != `{"success":true}` {
		t.Errorf("body = %s", raw)
	}
	if gotAuth != "Bearer abc" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotType != "application/json" {
		t.Errorf("Content-Type = %q", gotType)
	}
}

func TestCall_NoTokenNoAuthorization(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, WithTokenSource(staticToken("")))
	if _, err := gw.Call(context.Background(), "/x", CallOptions{}); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty", gotAuth)
	}
}

func TestCall_FormDataIsMultipart(t *testing.T) {
	var user, pass, ctype string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctype = r.Header.Get("Content-Type")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		user = r.FormValue("username")
		pass = r.FormValue("password")
		w.Write([]byte(`{"access_token":"t"}`))
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL)
	_, err := gw.Call(context.Background(), "/api/auth/login", CallOptions{
		Method: http.MethodPost,
		Body:   FormData{"username": "ada", "password": "pw"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(ctype, "multipart/form-data") {
		t.Errorf("Content-Type = %q", ctype)
	}
	if user != "ada" || pass != "pw" {
		t.Errorf("form = %q/%q", user, pass)
	}
}

func TestCall_AuthFailurePolicy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	}))
	defer srv.Close()

	tests := []struct {
		name        string
		policy      AuthFailurePolicy
		wantLogout  bool
		wantTokenOK bool
	}{
		{"silent call keeps session", Ignore, false, true},
		{"default call logs out", Logout, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := newMutableToken("abc123")
			gw := NewGateway(srv.URL, WithTokenSource(tok))
			loggedOut := false
			gw.OnUnauthorized(func() {
				loggedOut = true
				tok.clear()
			})

			raw, err := gw.Call(context.Background(), "/api/alerts", CallOptions{OnAuthFailure: tt.policy})
			if raw != nil {
				t.Errorf("payload = %s, want nil", raw)
			}
			if !errors.Is(err, ErrUnauthorized) {
				t.Errorf("err = %v, want ErrUnauthorized", err)
			}
			if loggedOut != tt.wantLogout {
				t.Errorf("logout fired = %v, want %v", loggedOut, tt.wantLogout)
			}
			if (tok.Token() != "") != tt.wantTokenOK {
				t.Errorf("token = %q", tok.Token())
			}
			var appErr *AppError
			if !errors.As(err, &appErr) || appErr.Message != "Could not validate credentials" {
				t.Errorf("AppError = %+v", appErr)
			}
		})
	}
}

func TestCall_LogoutStopsCredentials(t *testing.T) {
	var calls atomic.Int32
	var lastAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastAuth.Store(r.Header.Get("Authorization"))
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{}`))
			return
		}
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	tok := newMutableToken("abc")
	gw := NewGateway(srv.URL, WithTokenSource(tok))
	gw.OnUnauthorized(tok.clear)

	_, _ = gw.Call(context.Background(), "/api/alerts", CallOptions{})
	if _, err := gw.Call(context.Background(), "/api/apps", CallOptions{}); err != nil {
		t.Fatal(err)
	}
	if got := lastAuth.Load().(string); got != "" {
		t.Errorf("Authorization after logout = %q", got)
	}
}

func TestCall_NonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>oops</html>"))
	}))
	defer srv.Close()

	raw, err := NewGateway(srv.URL).Call(context.Background(), "/", CallOptions{})
	if raw != nil || !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("Call = %s, %v", raw, err)
	}
}

func TestCall_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	raw, err := NewGateway(url).Call(context.Background(), "/api/system/info", CallOptions{})
	var te *TransportError
	if raw != nil || !errors.As(err, &te) {
		t.Errorf("Call = %s, %v; want TransportError", raw, err)
	}
}

func TestCall_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewGateway(srv.URL).Call(context.Background(), "/api/disk-map", CallOptions{Timeout: 50 * time.Millisecond})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}

func TestCall_NonOKJSONIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"error":"disk busy"}`))
	}))
	defer srv.Close()

	env, err := NewGateway(srv.URL).Envelope(context.Background(), "/x", CallOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if env.Success() || env.Message() != "disk busy" {
		t.Errorf("env = %v", env)
	}
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		io.WriteString(w, "%PDF-1.4")
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL)
	data, err := gw.Download(context.Background(), "/api/ai/report", CallOptions{})
	if err != nil || string(data) != "%PDF-1.4" {
		t.Errorf("Download = %q, %v", data, err)
	}
	if _, err := gw.Download(context.Background(), "/missing", CallOptions{}); err == nil {
		t.Error("expected error for 500")
	}
}

func TestHealth(t *testing.T) {
	var cacheControl string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cacheControl = r.Header.Get("Cache-Control")
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	if !NewGateway(srv.URL).Health(context.Background()) {
		t.Error("Health = false, want true")
	}
	if cacheControl != "no-store" {
		t.Errorf("Cache-Control = %q", cacheControl)
	}
	if NewGateway(srv.URL + "/nested").Health(context.Background()) {
		t.Error("Health on 404 = true")
	}
}

func TestEnvelopeMessage(t *testing.T) {
	tests := []struct {
		name string
		env  Envelope
		want string
	}{
		{"error field", Envelope{"error": "boom"}, "boom"},
		{"detail string", Envelope{"detail": "Incorrect username or password"}, "Incorrect username or password"},
		{"detail list", Envelope{"detail": []any{map[string]any{"msg": "field required"}}}, "field required"},
		{"nothing", Envelope{}, ""},
	}
	for _, tt := range tests {
		if got := tt.env.Message(); got != tt.want {
			t.Errorf("%s: Message() = %q, want %q", tt.name, got, tt.want)
		}
	}
}
