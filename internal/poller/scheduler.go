// Package poller drives periodic dashboard refreshes. It owns at most one
// ticker at a time and fires refreshes only while the dashboard is visible and
// auto-refresh is enabled.
package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const defaultInterval = 3 * time.Second

// RefreshFunc performs one refresh. It receives a context that Stop does not
// cancel, so an in-flight refresh always completes.
type RefreshFunc func(ctx context.Context)

// Ticker is the subset of *time.Ticker the scheduler needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates tickers. Tests inject a manual one.
type TickerFactory func(d time.Duration) Ticker

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

// NewStdTicker wraps time.NewTicker.
func NewStdTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}

// Stats counts ticker activity since construction.
type Stats struct {
	Ticks   int64
	Skipped int64
	Fired   int64
}

// Scheduler is the poll-cycle state machine Stopped -> Running -> Stopped.
type Scheduler struct {
	interval  time.Duration
	refresh   RefreshFunc
	newTicker TickerFactory
	limiter   *rate.Limiter
	logger    *slog.Logger

	lifecycle sync.Mutex // serializes Start and Stop

	mu      sync.Mutex
	cancel  context.CancelFunc
	runCtx  context.Context
	running bool
	visible bool
	enabled bool
	wg      sync.WaitGroup

	timers  atomic.Int32
	ticks   atomic.Int64
	skipped atomic.Int64
	fired   atomic.Int64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the tick period.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithTickerFactory replaces time.NewTicker.
func WithTickerFactory(f TickerFactory) Option {
	return func(s *Scheduler) {
		if f != nil {
			s.newTicker = f
		}
	}
}

// WithManualRate limits AllowManual to r requests per second with the given
// burst.
func WithManualRate(r rate.Limit, burst int) Option {
	return func(s *Scheduler) {
		s.limiter = rate.NewLimiter(r, burst)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a stopped scheduler. It starts visible and enabled.
func New(refresh RefreshFunc, opts ...Option) (*Scheduler, error) {
	if refresh == nil {
		return nil, errors.New("poller: refresh func is required")
	}
	s := &Scheduler{
		interval:  defaultInterval,
		refresh:   refresh,
		newTicker: NewStdTicker,
		limiter:   rate.NewLimiter(rate.Limit(1), 1),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		visible:   true,
		enabled:   true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Start arms the ticker, stopping any previous cycle first.
func (s *Scheduler) Start(ctx context.Context) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.stopLocked()

	ctx, cancel := context.WithCancel(ctx)
	t := s.newTicker(s.interval)
	s.timers.Add(1)

	s.mu.Lock()
	s.cancel = cancel
	s.runCtx = ctx
	s.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	go s.loop(ctx, t)
	s.logger.Debug("poller started", slog.Duration("interval", s.interval))
}

// Stop cancels future ticks. Refreshes already in flight run to completion.
// Calling Stop on a stopped scheduler does nothing.
func (s *Scheduler) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	s.mu.Lock()
	cancel := s.cancel
	wasRunning := s.running
	s.cancel = nil
	s.runCtx = nil
	s.running = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	if wasRunning {
		s.logger.Debug("poller stopped")
	}
}

// Running reports whether a cycle is armed.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// ActiveTimers returns the number of live tickers. It is never above one.
func (s *Scheduler) ActiveTimers() int {
	return int(s.timers.Load())
}

// Stats returns tick counters.
func (s *Scheduler) Stats() Stats {
	return Stats{Ticks: s.ticks.Load(), Skipped: s.skipped.Load(), Fired: s.fired.Load()}
}

// SetVisible records dashboard visibility. Becoming visible while running and
// enabled triggers one immediate refresh so the view is not stale.
func (s *Scheduler) SetVisible(v bool) {
	s.mu.Lock()
	regained := v && !s.visible
	s.visible = v
	ctx := s.runCtx
	fire := regained && s.running && s.enabled
	s.mu.Unlock()

	if fire {
		s.logger.Debug("visibility regained, refreshing")
		s.fire(ctx)
	}
}

// SetEnabled records the auto-refresh preference. Ticks are skipped while
// disabled.
func (s *Scheduler) SetEnabled(v bool) {
	s.mu.Lock()
	s.enabled = v
	s.mu.Unlock()
}

// AllowManual reports whether a user-requested refresh may proceed now.
func (s *Scheduler) AllowManual() bool {
	return s.limiter.Allow()
}

func (s *Scheduler) loop(ctx context.Context, t Ticker) {
	defer s.wg.Done()
	defer func() {
		t.Stop()
		s.timers.Add(-1)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	s.ticks.Add(1)

	s.mu.Lock()
	ok := s.visible && s.enabled
	s.mu.Unlock()

	if !ok {
		s.skipped.Add(1)
		return
	}
	s.fire(ctx)
}

// fire runs one refresh without waiting for it. Overlapping refreshes are
// allowed; the last one to apply wins.
func (s *Scheduler) fire(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.fired.Add(1)
	go s.refresh(context.WithoutCancel(ctx))
}
