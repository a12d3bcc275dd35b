package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"autosense/internal/api"
)

// Event names a user action.
type Event string

const (
	EventRefresh             Event = "refresh"
	EventBoostRAM            Event = "boost_ram"
	EventCleanJunk           Event = "clean_junk"
	EventAutoOptimize        Event = "auto_optimize"
	EventPredict             Event = "predict"
	EventAIOptimize          Event = "ai_optimize"
	EventReport              Event = "report"
	EventDrives              Event = "drives"
	EventDiskMap             Event = "disk_map"
	EventApps                Event = "apps"
	EventUninstall           Event = "uninstall"
	EventFirewall            Event = "firewall"
	EventPorts               Event = "ports"
	EventSecurityScan        Event = "security_scan"
	EventToggleAutoRefresh   Event = "toggle_auto_refresh"
	EventToggleNotifications Event = "toggle_notifications"
	EventLogout              Event = "logout"
	EventClearNotifications  Event = "clear_notifications"
	EventAsk                 Event = "ask"
)

// Level is a toast severity.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Toast is a transient notification.
type Toast struct {
	Text  string
	Level Level
}

// Empty reports whether there is nothing to show.
func (t Toast) Empty() bool { return t.Text == "" }

// Args carries event parameters.
type Args struct {
	Confirmed  bool
	Drive      string
	Depth      int
	App        string
	Query      string
	ReportPath string
}

// Outcome is what a handler hands back to the UI. A non-empty Confirm asks the
// UI to prompt and re-dispatch the same event with Args.Confirmed set.
type Outcome struct {
	Toast   Toast
	Follow  []Toast
	Confirm string
	Err     error
}

// Toasts lists the primary toast followed by the rest.
func (o Outcome) Toasts() []Toast {
	var out []Toast
	if !o.Toast.Empty() {
		out = append(out, o.Toast)
	}
	for _, t := range o.Follow {
		if !t.Empty() {
			out = append(out, t)
		}
	}
	return out
}

// Handler describes one event. Progress is shown while Run is in flight;
// ConfirmedProgress replaces it on the confirmed second step. AuthRequired,
// when set, is the toast shown instead of running without a session.
type Handler struct {
	Progress          string
	ConfirmedProgress string
	AuthRequired      string
	Run               func(ctx context.Context, args Args) Outcome
}

// Handlers returns the event table.
func (c *Controller) Handlers() map[Event]Handler {
	return c.handlers
}

// ProgressToast is the info toast to show while ev runs. It is empty when the
// event has none or notifications are off.
func (c *Controller) ProgressToast(ev Event, args Args) Toast {
	h, ok := c.handlers[ev]
	if !ok || !c.Snapshot().Notifications {
		return Toast{}
	}
	if h.AuthRequired != "" && !c.session.Authenticated() {
		return Toast{}
	}
	text := h.Progress
	if args.Confirmed && h.ConfirmedProgress != "" {
		text = h.ConfirmedProgress
	}
	if text == "" {
		return Toast{}
	}
	return Toast{Text: text, Level: LevelInfo}
}

// Dispatch runs the handler for ev. Gated events without a session never
// reach the network.
func (c *Controller) Dispatch(ctx context.Context, ev Event, args Args) Outcome {
	h, ok := c.handlers[ev]
	if !ok {
		return Outcome{Err: fmt.Errorf("controller: unknown event %q", ev)}
	}
	if h.AuthRequired != "" && !c.session.Authenticated() {
		return c.finish(Outcome{Toast: Toast{Text: h.AuthRequired, Level: LevelError}})
	}
	out := h.Run(ctx, args)
	if out.Err != nil {
		c.logger.Debug("event failed", slog.String("event", string(ev)), slog.String("error", out.Err.Error()))
	}
	return c.finish(out)
}

// finish drops toasts when notifications are off. Confirm prompts and errors
// survive.
func (c *Controller) finish(o Outcome) Outcome {
	if c.Snapshot().Notifications {
		return o
	}
	o.Toast = Toast{}
	o.Follow = nil
	return o
}

// failure builds an error outcome with prefix in front of the described error.
func failure(prefix string, err error) Outcome {
	return Outcome{Err: err, Toast: Toast{Text: prefix + Describe(err), Level: LevelError}}
}

// Describe turns a gateway error into user-facing text.
func Describe(err error) string {
	var appErr *api.AppError
	var transportErr *api.TransportError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, api.ErrUnauthorized):
		return "Session expired. Please login again."
	case errors.As(err, &appErr):
		if appErr.Message == "" {
			return "Unknown error"
		}
		return appErr.Message
	case errors.Is(err, api.ErrTimeout):
		return "Request timed out"
	case errors.As(err, &transportErr):
		return "Unable to connect to server"
	case errors.Is(err, api.ErrInvalidResponse):
		return "Invalid response from server"
	}
	return err.Error()
}
