// Package refresh schedules periodic refreshes of the server list and tracks
// whether the monitoring API is reachable.
package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultInterval is the auto-refresh period.
const DefaultInterval = 30 * time.Second

// Func performs one refresh.
type Func func(ctx context.Context) error

// Option configures a Refresher.
type Option func(*Refresher)

// WithInterval sets the refresh period.
func WithInterval(d time.Duration) Option {
	return func(r *Refresher) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithGate suppresses scheduled refreshes while gate returns false
// (e.g. while the API is unreachable).
func WithGate(gate func() bool) Option {
	return func(r *Refresher) {
		r.gate = gate
	}
}

// WithManual sets the function used by RefreshNow. It defaults to the scheduled one.
func WithManual(fn Func) Option {
	return func(r *Refresher) {
		r.manual = fn
	}
}

// Disabled starts the refresher with the timer suspended.
func Disabled() Option {
	return func(r *Refresher) {
		r.enabled = false
	}
}

// Refresher runs a refresh every interval while enabled. Disabling suspends
// the timer; whatever the refresh function produced last is left untouched.
type Refresher struct {
	lastRefresh time.Time
	nextRefresh time.Time
	lastErr     error
	auto        Func
	manual      Func
	gate        func() bool
	now         func() time.Time
	wake        chan struct{}
	trigger     chan struct{}
	interval    time.Duration
	mu          sync.Mutex
	enabled     bool
}

// New creates a refresher calling fn on schedule.
func New(fn Func, opts ...Option) *Refresher {
	r := &Refresher{
		auto:     fn,
		interval: DefaultInterval,
		now:      time.Now,
		wake:     make(chan struct{}, 1),
		trigger:  make(chan struct{}, 1),
		enabled:  true,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.manual == nil {
		r.manual = fn
	}

	return r
}

// Run drives the schedule until ctx is done. An enabled refresher refreshes
// immediately, then every interval.
func (r *Refresher) Run(ctx context.Context) error {
	var (
		ticker *time.Ticker
		tickC  <-chan time.Time
	)
	stop := func() {
		if ticker != nil {
			ticker.Stop()
			ticker = nil
		}
		tickC = nil
	}
	defer stop()

	schedule := func() {
		stop()

		r.mu.Lock()
		defer r.mu.Unlock()

		if !r.enabled {
			r.nextRefresh = time.Time{}
			return
		}
		ticker = time.NewTicker(r.interval)
		tickC = ticker.C
		r.nextRefresh = r.now().Add(r.interval)
	}

	enabled := r.IsEnabled()
	if enabled {
		r.tick(ctx)
	}
	schedule()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-r.wake:
			now := r.IsEnabled()
			if now && !enabled {
				r.tick(ctx)
			}
			enabled = now
			schedule()

		case <-r.trigger:
			r.tick(ctx)
			schedule()

		case <-tickC:
			r.tick(ctx)
			r.mu.Lock()
			r.nextRefresh = r.now().Add(r.interval)
			r.mu.Unlock()
		}
	}
}

func (r *Refresher) tick(ctx context.Context) {
	if r.gate != nil && !r.gate() {
		log.Trace().Msg("Refresh skipped, API unreachable")
		return
	}

	if err := r.run(ctx, r.auto); err != nil && ctx.Err() == nil {
		log.Debug().Err(err).Msg("Scheduled refresh failed")
	}
}

// RefreshNow refreshes immediately with the manual function.
func (r *Refresher) RefreshNow(ctx context.Context) error {
	return r.run(ctx, r.manual)
}

func (r *Refresher) run(ctx context.Context, fn Func) error {
	started := r.now()
	err := fn(ctx)

	r.mu.Lock()
	r.lastErr = err
	if err == nil {
		r.lastRefresh = started
		if r.enabled {
			r.nextRefresh = started.Add(r.interval)
		}
	}
	r.mu.Unlock()

	return err
}

// Trigger schedules an immediate refresh on the Run loop and restarts the period.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Enable resumes the schedule.
func (r *Refresher) Enable() {
	r.setEnabled(true)
}

// Disable suspends the schedule.
func (r *Refresher) Disable() {
	r.setEnabled(false)
}

// Toggle flips the schedule state and returns the new one.
func (r *Refresher) Toggle() bool {
	r.mu.Lock()
	r.enabled = !r.enabled
	enabled := r.enabled
	r.mu.Unlock()

	r.poke()

	return enabled
}

func (r *Refresher) setEnabled(v bool) {
	r.mu.Lock()
	changed := r.enabled != v
	r.enabled = v
	r.mu.Unlock()

	if changed {
		r.poke()
	}
}

func (r *Refresher) poke() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// IsEnabled reports whether the schedule is active.
func (r *Refresher) IsEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.enabled
}

// LastRefresh returns the start time of the last successful refresh.
func (r *Refresher) LastRefresh() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.lastRefresh
}

// LastError returns the outcome of the last refresh.
func (r *Refresher) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.lastErr
}

// NextRefresh returns when the next scheduled refresh is due, zero when disabled.
func (r *Refresher) NextRefresh() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.nextRefresh
}

// TimeUntilNext returns the remaining time to the next scheduled refresh.
func (r *Refresher) TimeUntilNext() time.Duration {
	next := r.NextRefresh()
	if next.IsZero() {
		return 0
	}

	return max(time.Until(next), 0)
}
