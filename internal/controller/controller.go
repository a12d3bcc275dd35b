// Package controller ties the session, scheduler, gateway and projector
// together. It owns the dashboard state and turns user events into outcomes
// the UI can render without knowing anything about HTTP.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"autosense/internal/api"
	"autosense/internal/assistant"
	"autosense/internal/collector"
	"autosense/internal/config"
	"autosense/internal/engine"
	"autosense/internal/journal"
	"autosense/internal/lifesaver"
	"autosense/internal/poller"
	"autosense/internal/projector"
	"autosense/internal/session"
	"autosense/internal/store"
)

// Deps are the collaborators a Controller is assembled from. Offline, Journal
// and Assistant are optional.
type Deps struct {
	Config    config.Config
	Client    *api.Client
	Session   *session.Manager
	Store     *store.Store
	Offline   *collector.LocalCollector
	Journal   *journal.Journal
	Assistant *assistant.Assistant
	Logger    *slog.Logger
}

// Life is the rendered device life-saver panel.
type Life struct {
	Estimate  lifesaver.Estimate
	Saved     string
	Projected string
}

// State is a point-in-time copy of everything the dashboard shows.
type State struct {
	Online        bool
	Offline       bool // metrics come from the local sampler
	Authenticated bool
	User          string

	AutoRefresh   bool
	Notifications bool

	Metrics     projector.MetricsView
	Raw         projector.Metrics
	HasMetrics  bool
	Checks      []engine.CheckResult
	Alerts      []projector.Alert
	Badge       string
	BadgeOn     bool
	LastRefresh time.Time

	Prediction *projector.Prediction
	Risk       *engine.CheckResult
	JunkScan   *projector.JunkScan
	Drives     []string
	DiskMap    *projector.DiskMap
	Apps       []projector.App
	AppCount   int
	Firewall   *projector.Firewall
	Ports      []projector.Port
	PortCount  int
	Security   *projector.SecurityScan

	LifeSavedMonths float64
	Life            *Life

	LastAnswer *assistant.Answer
	ReportPath string
}

// Option configures a Controller.
type Option func(*options)

type options struct {
	refresh poller.RefreshFunc
	ticker  poller.TickerFactory
	now     func() time.Time
}

// WithRefreshFunc replaces what a scheduler tick does. The TUI uses it to post
// a message into its program instead of refreshing on the ticker goroutine.
func WithRefreshFunc(fn poller.RefreshFunc) Option {
	return func(o *options) {
		o.refresh = fn
	}
}

// WithTickerFactory swaps the scheduler's ticker, for tests.
func WithTickerFactory(f poller.TickerFactory) Option {
	return func(o *options) {
		o.ticker = f
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Controller is safe for concurrent use. Network calls never run under its
// lock.
type Controller struct {
	cfg       config.Config
	client    *api.Client
	session   *session.Manager
	store     *store.Store
	offline   *collector.LocalCollector
	journal   *journal.Journal
	assistant *assistant.Assistant
	life      *lifesaver.Calculator
	sched     *poller.Scheduler
	logger    *slog.Logger
	now       func() time.Time

	handlers map[Event]Handler

	mu        sync.RWMutex
	state     State
	dashboard *projector.Dashboard

	runMu       sync.Mutex
	runCtx      context.Context
	runCancel   context.CancelFunc
	initialized bool
	disposeOnce sync.Once
}

// New assembles a Controller. It installs the session's Logout as the
// gateway's 401 hook.
func New(d Deps, opts ...Option) (*Controller, error) {
	if d.Client == nil || d.Session == nil || d.Store == nil {
		return nil, errors.New("controller: client, session and store are required")
	}
	if err := d.Config.Validate(); err != nil {
		return nil, err
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Controller{
		cfg:       d.Config,
		client:    d.Client,
		session:   d.Session,
		store:     d.Store,
		offline:   d.Offline,
		journal:   d.Journal,
		assistant: d.Assistant,
		life:      lifesaver.NewCalculator(d.Config.LifeSaver),
		logger:    logger,
		now:       o.now,
		dashboard: projector.NewDashboard(d.Config.HistoryCapacity),
	}
	if c.assistant == nil {
		c.assistant = assistant.NewWithGenerator(nil, logger)
	}

	refresh := o.refresh
	if refresh == nil {
		refresh = func(ctx context.Context) {
			if err := c.Refresh(ctx); err != nil {
				c.logger.Debug("scheduled refresh failed", slog.String("error", err.Error()))
			}
		}
	}
	schedOpts := []poller.Option{
		poller.WithInterval(d.Config.PollInterval),
		poller.WithManualRate(rate.Limit(d.Config.ManualRefreshPerSecond), 1),
		poller.WithLogger(logger),
	}
	if o.ticker != nil {
		schedOpts = append(schedOpts, poller.WithTickerFactory(o.ticker))
	}
	sched, err := poller.New(refresh, schedOpts...)
	if err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}
	c.sched = sched

	c.state.AutoRefresh = true
	c.state.Notifications = true
	c.handlers = c.buildHandlers()

	c.client.Gateway().OnUnauthorized(func() {
		if err := c.session.Logout(); err != nil {
			c.logger.Warn("forced logout failed", slog.String("error", err.Error()))
		}
	})
	c.session.Subscribe(c.onSession)
	return c, nil
}

// Init brings the dashboard up: it captures a landing token, restores the
// session, loads preferences, checks the server, loads drives and the first
// snapshot, and starts polling when auto-refresh is on. landing may be empty.
func (c *Controller) Init(ctx context.Context, landing string) error {
	c.runMu.Lock()
	if c.initialized {
		c.runMu.Unlock()
		return errors.New("controller: already initialized")
	}
	c.runCtx, c.runCancel = context.WithCancel(context.WithoutCancel(ctx))
	c.runMu.Unlock()

	if landing != "" {
		if _, captured, err := c.session.CaptureRedirectToken(landing); err != nil {
			c.logger.Warn("landing token not captured", slog.String("error", err.Error()))
		} else if captured {
			c.logger.Info("signed in from redirect")
		}
	}
	c.session.RestoreSession()

	autoRefresh := c.store.Bool(store.KeyAutoRefresh, true)
	c.mu.Lock()
	c.state.AutoRefresh = autoRefresh
	c.state.Notifications = c.store.Bool(store.KeyNotifications, true)
	c.state.LifeSavedMonths = c.store.Float(store.KeyLifeSavedMonths, 0)
	c.mu.Unlock()
	c.sched.SetEnabled(autoRefresh)

	online := c.client.Health(ctx)
	c.mu.Lock()
	c.state.Online = online
	c.mu.Unlock()

	if c.session.Authenticated() {
		c.loadUser(ctx)
	}
	c.loadDrives(ctx)
	if err := c.Refresh(ctx); err != nil {
		c.logger.Info("initial refresh failed", slog.String("error", err.Error()))
	}

	c.runMu.Lock()
	c.initialized = true
	c.runMu.Unlock()

	if autoRefresh {
		c.sched.Start(c.runContext())
	}
	return nil
}

// Dispose stops polling and releases the journal and assistant. Safe to call
// more than once.
func (c *Controller) Dispose() error {
	var errs []error
	c.disposeOnce.Do(func() {
		c.sched.Stop()
		c.runMu.Lock()
		if c.runCancel != nil {
			c.runCancel()
		}
		c.initialized = false
		c.runMu.Unlock()

		if c.journal != nil {
			if err := c.journal.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := c.assistant.Close(); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

func (c *Controller) runContext() context.Context {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.runCtx == nil {
		return context.Background()
	}
	return c.runCtx
}

// onSession follows authentication changes: polling stops on logout and
// resumes on login when auto-refresh is on.
func (c *Controller) onSession(authenticated bool) {
	c.mu.Lock()
	c.state.Authenticated = authenticated
	if !authenticated {
		c.state.User = ""
	}
	autoRefresh := c.state.AutoRefresh
	c.mu.Unlock()

	c.runMu.Lock()
	ready := c.initialized
	c.runMu.Unlock()
	if !ready {
		return
	}
	if !authenticated {
		c.sched.Stop()
		return
	}
	if autoRefresh && !c.sched.Running() {
		c.sched.Start(c.runContext())
	}
}

// Refresh loads one system snapshot. A 401 or {success:false} still proves
// the server is up. When the server cannot be reached and offline mode is on,
// the local sampler fills in. The error is nil whenever a snapshot was
// applied.
func (c *Controller) Refresh(ctx context.Context) error {
	env, err := c.client.SystemInfo(ctx)
	var appErr *api.AppError
	switch {
	case err == nil:
		c.setOnline(true)
		if m, ok := projector.MetricsFromEnvelope(env); ok {
			c.apply(ctx, m, journal.SourceServer)
		} else {
			c.logger.Debug("system info carried no snapshot", slog.String("error", env.Message()))
		}
	case errors.As(err, &appErr):
		c.setOnline(true)
	default:
		c.setOnline(false)
		if !c.cfg.OfflineMode || c.offline == nil {
			return err
		}
		m, lerr := c.offline.Snapshot(ctx)
		if lerr != nil {
			return errors.Join(err, lerr)
		}
		c.apply(ctx, m, journal.SourceOffline)
		return nil
	}

	if c.session.Authenticated() {
		c.loadAlerts(ctx)
	}
	return err
}

func (c *Controller) setOnline(online bool) {
	c.mu.Lock()
	c.state.Online = online
	c.state.Offline = false
	c.mu.Unlock()
}

func (c *Controller) apply(ctx context.Context, m projector.Metrics, src journal.Source) {
	at := c.now()
	c.mu.Lock()
	view := c.dashboard.Apply(m, at)
	c.state.Metrics = view
	c.state.Raw = m
	c.state.HasMetrics = true
	c.state.Offline = src == journal.SourceOffline
	c.state.Checks = engine.Evaluate(m)
	c.state.LastRefresh = at
	c.updateLifeLocked()
	c.mu.Unlock()

	if c.journal != nil {
		if err := c.journal.RecordSnapshot(ctx, m, src, at); err != nil {
			c.logger.Warn("journal snapshot failed", slog.String("error", err.Error()))
		}
	}
}

func (c *Controller) loadAlerts(ctx context.Context) {
	env, err := c.client.Alerts(ctx)
	if err != nil {
		c.logger.Debug("alerts unavailable", slog.String("error", err.Error()))
		return
	}
	alerts := projector.ParseAlerts(env)
	c.setAlerts(alerts)

	if c.journal != nil && len(alerts) > 0 {
		if _, err := c.journal.RecordAlerts(ctx, alerts, c.now()); err != nil {
			c.logger.Warn("journal alerts failed", slog.String("error", err.Error()))
		}
	}
}

func (c *Controller) setAlerts(alerts []projector.Alert) {
	text, on := projector.Badge(len(alerts))
	c.mu.Lock()
	c.state.Alerts = alerts
	c.state.Badge = text
	c.state.BadgeOn = on
	c.mu.Unlock()
}

func (c *Controller) loadUser(ctx context.Context) {
	env, err := c.client.Me(ctx)
	if err != nil {
		c.logger.Debug("user info unavailable", slog.String("error", err.Error()))
		return
	}
	name := projector.String(env["username"])
	if name == "" {
		if claims, ok := c.session.Claims(); ok {
			name = claims.Subject
		}
	}
	c.mu.Lock()
	c.state.User = name
	c.mu.Unlock()
}

// loadDrives is silent; the default drive list stays empty on failure.
func (c *Controller) loadDrives(ctx context.Context) {
	env, err := c.client.Drives(ctx)
	if err != nil {
		c.logger.Debug("drives unavailable", slog.String("error", err.Error()))
		return
	}
	drives := projector.ParseDrives(env)
	c.mu.Lock()
	c.state.Drives = drives
	c.mu.Unlock()
}

// updateLifeLocked recomputes the life-saver panel. Callers hold mu.
func (c *Controller) updateLifeLocked() {
	if !c.state.HasMetrics {
		return
	}
	m := c.state.Raw
	est := c.life.Estimate(m.CPUPercent, m.MemoryPercent, m.DiskPercent, c.state.LifeSavedMonths)
	c.state.Life = &Life{
		Estimate:  est,
		Saved:     c.life.FormatSaved(est),
		Projected: lifesaver.FormatProjected(est),
	}
}

// addLifeBoost credits months to the persisted bonus and returns the toast.
func (c *Controller) addLifeBoost(months float64) Toast {
	c.mu.Lock()
	c.state.LifeSavedMonths += months
	total := c.state.LifeSavedMonths
	c.updateLifeLocked()
	c.mu.Unlock()

	if err := c.store.SetFloat(store.KeyLifeSavedMonths, total); err != nil {
		c.logger.Warn("persist life boost failed", slog.String("error", err.Error()))
	}
	return Toast{Text: c.life.BoostMessage(months), Level: LevelSuccess}
}

// Login submits credentials and, on success, loads the user and resumes
// polling through the session listener.
func (c *Controller) Login(ctx context.Context, username, password string) Outcome {
	if _, err := c.session.Login(ctx, username, password); err != nil {
		var appErr *api.AppError
		if errors.As(err, &appErr) {
			return c.finish(Outcome{Err: err, Toast: Toast{Text: "Login failed: " + appErr.Error(), Level: LevelError}})
		}
		return c.finish(Outcome{Err: err, Toast: Toast{Text: "Login error: " + Describe(err), Level: LevelError}})
	}
	c.loadUser(ctx)
	return c.finish(Outcome{Toast: Toast{Text: "Login successful!", Level: LevelSuccess}})
}

// GoogleLoginURL is where the browser goes to start the OAuth flow.
func (c *Controller) GoogleLoginURL() (string, error) {
	return c.session.LoginViaExternalProvider()
}

// SetVisible forwards terminal focus to the scheduler.
func (c *Controller) SetVisible(v bool) {
	c.sched.SetVisible(v)
}

// Polling reports whether the scheduler is armed.
func (c *Controller) Polling() bool {
	return c.sched.Running()
}

// Scheduler exposes the polling scheduler's counters.
func (c *Controller) Scheduler() *poller.Scheduler {
	return c.sched
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// History returns the metric's chart window, oldest first.
func (c *Controller) History(metric projector.Metric) []float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Collect(c.dashboard.History(metric))
}

// Journal returns the snapshot journal, or nil when disabled.
func (c *Controller) Journal() *journal.Journal {
	return c.journal
}

// AssistantContext is the dashboard state questions are answered against.
func (c *Controller) AssistantContext() assistant.Context {
	s := c.Snapshot()
	return assistant.Context{
		Online:     s.Online,
		Metrics:    s.Raw,
		Alerts:     s.Alerts,
		Prediction: s.Prediction,
	}
}
