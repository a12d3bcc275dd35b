// Package session owns the bearer-token lifecycle: restore at startup,
// password and OAuth-redirect login, and logout (explicit or forced by a 401).
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"autosense/internal/store"
)

// Listener is told whether a session is active after every state change.
// The controller uses it to gate the UI and to start or stop polling.
type Listener func(authenticated bool)

// Authenticator performs the backend side of login.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
	GoogleLoginURL() string
}

// Claims are decoded from the token for display only. The server alone decides
// validity; an expired-looking token is still sent until a 401 says otherwise.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Manager holds at most one token. Every operation persists first and then
// notifies listeners, all under opMu, so observers never see a persisted token
// with stale UI state or the reverse.
type Manager struct {
	store  *store.Store
	auth   Authenticator
	logger *slog.Logger

	opMu sync.Mutex // serializes state transitions and their notifications

	mu        sync.RWMutex
	token     string
	listeners []Listener
}

// NewManager creates a manager backed by st. auth may be nil when only
// restore, capture and logout are needed.
func NewManager(st *store.Store, auth Authenticator, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{store: st, auth: auth, logger: logger}
}

// SetAuthenticator installs auth after construction. The gateway needs the
// manager as its token source before the route client exists.
func (m *Manager) SetAuthenticator(auth Authenticator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auth = auth
}

func (m *Manager) authenticator() Authenticator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.auth
}

// Subscribe registers l. Listeners must not call Login, Logout or
// CaptureRedirectToken.
func (m *Manager) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Token returns the active bearer token, or "" when logged out.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Authenticated reports whether a token is held.
func (m *Manager) Authenticated() bool {
	return m.Token() != ""
}

// RestoreSession loads the persisted token, if any. The token is treated as
// valid until the first authenticated call fails.
func (m *Manager) RestoreSession() bool {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	tok, _ := m.store.Get(store.KeyAuthToken)
	m.setToken(tok)
	m.notify()
	if tok != "" {
		m.logger.Debug("session restored")
	}
	return tok != ""
}

// Login submits credentials. On failure the session is left untouched and the
// backend's message is returned.
func (m *Manager) Login(ctx context.Context, username, password string) (string, error) {
	auth := m.authenticator()
	if auth == nil {
		return "", errors.New("session: no authenticator configured")
	}
	tok, err := auth.Login(ctx, username, password)
	if err != nil {
		m.logger.Info("login failed", slog.String("username", username), slog.String("error", err.Error()))
		return "", err
	}
	if err := m.activate(tok); err != nil {
		return "", err
	}
	m.logger.Info("login succeeded", slog.String("username", username))
	return tok, nil
}

// LoginViaExternalProvider returns the URL that starts the OAuth redirect
// flow. The provider sends the browser back to the landing page with
// ?token=..., which CaptureRedirectToken consumes.
func (m *Manager) LoginViaExternalProvider() (string, error) {
	auth := m.authenticator()
	if auth == nil {
		return "", errors.New("session: no authenticator configured")
	}
	return auth.GoogleLoginURL(), nil
}

// CaptureRedirectToken consumes a token carried in the landing URL's query.
// It persists the token and returns the URL with the token parameter removed.
// With no token present it returns the URL unchanged and false. Running it on
// every start is safe.
func (m *Manager) CaptureRedirectToken(landing string) (string, bool, error) {
	u, err := url.Parse(landing)
	if err != nil {
		return landing, false, fmt.Errorf("session: parse landing url: %w", err)
	}
	q := u.Query()
	tok := q.Get("token")
	if tok == "" {
		return landing, false, nil
	}

	if err := m.activate(tok); err != nil {
		return landing, false, err
	}
	m.logger.Info("token captured from redirect")

	q.Del("token")
	u.RawQuery = q.Encode()
	return u.String(), true, nil
}

// Logout clears the persisted token and tells listeners the session ended.
// It is safe to call repeatedly and from the gateway's 401 hook.
func (m *Manager) Logout() error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := m.store.Delete(store.KeyAuthToken); err != nil {
		// The in-memory session still ends so no further call carries it.
		m.setToken("")
		m.notify()
		return fmt.Errorf("session: clear token: %w", err)
	}
	wasActive := m.Authenticated()
	m.setToken("")
	m.notify()
	if wasActive {
		m.logger.Info("logged out")
	}
	return nil
}

// Claims decodes the token's subject and expiry without verifying it.
func (m *Manager) Claims() (Claims, bool) {
	tok := m.Token()
	if tok == "" {
		return Claims{}, false
	}
	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &rc); err != nil {
		return Claims{}, false
	}
	c := Claims{Subject: rc.Subject}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}
	return c, true
}

func (m *Manager) activate(tok string) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := m.store.Set(store.KeyAuthToken, tok); err != nil {
		return fmt.Errorf("session: persist token: %w", err)
	}
	m.setToken(tok)
	m.notify()
	return nil
}

func (m *Manager) setToken(tok string) {
	m.mu.Lock()
	m.token = tok
	m.mu.Unlock()
}

// notify runs listeners in registration order. Callers hold opMu.
func (m *Manager) notify() {
	m.mu.RLock()
	authed := m.token != ""
	ls := make([]Listener, len(m.listeners))
	copy(ls, m.listeners)
	m.mu.RUnlock()

	for _, l := range ls {
		l(authed)
	}
}
