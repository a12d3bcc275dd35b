package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// ListenForRedirect serves a loopback landing page on addr and waits for the
// OAuth provider to redirect there with ?token=. It returns once a token has
// been captured or ctx is done. Point the backend's FRONTEND_URL at addr.
func (m *Manager) ListenForRedirect(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("session: listen %s: %w", addr, err)
	}
	return m.serveRedirect(ctx, ln)
}

func (m *Manager) serveRedirect(ctx context.Context, ln net.Listener) error {
	captured := make(chan struct{}, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, ok, err := m.CaptureRedirectToken(r.URL.String())
		switch {
		case err != nil:
			m.logger.Warn("redirect capture failed", slog.String("error", err.Error()))
			http.Error(w, "Login failed: "+err.Error(), http.StatusInternalServerError)
		case !ok:
			http.Error(w, "No token in redirect.", http.StatusBadRequest)
		default:
			fmt.Fprintln(w, "AutoSense X login complete. You can close this tab.")
			select {
			case captured <- struct{}{}:
			default:
			}
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	var result error
	select {
	case <-captured:
	case <-ctx.Done():
		result = ctx.Err()
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			result = fmt.Errorf("session: redirect listener: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	return result
}
