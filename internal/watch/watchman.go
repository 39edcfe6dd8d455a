// Package watch implements the watchman node: a background monitor that
// scores reality-static coherence and feeds drops below the threshold to
// the entropic recycler.
package watch

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/observability"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/recycler"
)

// CoherenceThreshold is the score below which static is recycled.
const CoherenceThreshold = 0.85

// Event types published by the watchman.
const (
	EventMonitor       observability.EventType = "watch.monitor"
	EventCoherenceDrop observability.EventType = "watch.coherence_drop"
	EventRecycled      observability.EventType = "watch.recycled"
)

// Clock supplies wall time, injected for uptime tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// ErrorSource reports the error count observed for a given uptime. A nil
// source counts zero errors.
type ErrorSource func(uptime time.Duration) int

// Report is the result of one monitor pass.
type Report struct {
	Coherence    float64          `json:"coherence"`
	Threshold    float64          `json:"threshold"`
	ActionResult *recycler.Result `json:"action_result,omitempty"`
}

// Watchman monitors coherence and invokes the recycler on drops.
type Watchman struct {
	name      string
	rec       *recycler.EntropicRecycler
	clock     Clock
	obs       observability.Observer
	interval  time.Duration
	errSource ErrorSource

	mu          sync.Mutex
	createdAt   time.Time
	lastChecked time.Time
	lastAction  *recycler.Result
}

// Option configures the watchman.
type Option func(*Watchman)

// WithClock injects the time source.
func WithClock(c Clock) Option {
	return func(w *Watchman) { w.clock = c }
}

// WithObserver installs the event sink. Defaults to a no-op.
func WithObserver(obs observability.Observer) Option {
	return func(w *Watchman) { w.obs = obs }
}

// WithInterval overrides the monitor cadence. Defaults to one minute.
func WithInterval(d time.Duration) Option {
	return func(w *Watchman) { w.interval = d }
}

// WithErrorSource installs the error count callback used by Run.
func WithErrorSource(src ErrorSource) Option {
	return func(w *Watchman) { w.errSource = src }
}

// New returns a watchman named name feeding rec.
func New(name string, rec *recycler.EntropicRecycler, opts ...Option) *Watchman {
	w := &Watchman{
		name:     name,
		rec:      rec,
		clock:    systemClock{},
		obs:      observability.NoOp{},
		interval: time.Minute,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.createdAt = w.clock.Now()
	return w
}

// Name returns the node name.
func (w *Watchman) Name() string { return w.name }

// Uptime returns the time elapsed since construction.
func (w *Watchman) Uptime() time.Duration {
	return w.clock.Now().Sub(w.createdAt)
}

// MonitorStatic scores coherence for the given uptime and error count and
// recycles the static when the score falls below the threshold. The
// score is uptime hours over uptime hours plus errors plus one, clamped
// into [0, 1].
func (w *Watchman) MonitorStatic(uptime time.Duration, errorCount int) Report {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.lastChecked = w.clock.Now()
	if errorCount < 0 {
		errorCount = 0
	}
	uptimeHours := uptime.Hours()
	coherence := uptimeHours / (uptimeHours + float64(errorCount) + 1)
	coherence = math.Max(0, math.Min(1, coherence))

	w.publish(EventMonitor, observability.LevelInfo, map[string]any{
		"node":         w.name,
		"uptime_hours": uptimeHours,
		"error_count":  errorCount,
		"coherence":    coherence,
	})

	report := Report{Coherence: coherence, Threshold: CoherenceThreshold}
	if coherence < CoherenceThreshold {
		w.publish(EventCoherenceDrop, observability.LevelWarn, map[string]any{
			"node":         w.name,
			"reason":       "COHERENCE_DROP",
			"coherence":    coherence,
			"uptime_hours": uptimeHours,
			"error_count":  errorCount,
		})
		reason := fmt.Sprintf("COHERENCE_DROP coherence=%.6f uptime_hours=%.6f error_count=%d",
			coherence, uptimeHours, errorCount)
		result := w.rec.ConsumeFailure(reason)
		w.lastAction = &result
		report.ActionResult = &result
		w.publish(EventRecycled, observability.LevelInfo, map[string]any{
			"node":       w.name,
			"status":     result.Status,
			"fuel_level": result.FuelLevel,
		})
	}
	return report
}

// Run monitors immediately and then on every interval tick until ctx is
// cancelled.
func (w *Watchman) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.monitorOnce()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.monitorOnce()
		}
	}
}

// LastAction returns the most recent recycle result, or nil.
func (w *Watchman) LastAction() *recycler.Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastAction
}

func (w *Watchman) monitorOnce() {
	uptime := w.Uptime()
	errors := 0
	if w.errSource != nil {
		errors = w.errSource(uptime)
	}
	w.MonitorStatic(uptime, errors)
}

func (w *Watchman) publish(t observability.EventType, level observability.Level, data map[string]any) {
	w.obs.Publish(context.Background(), observability.Event{
		Type:   t,
		Level:  level,
		At:     w.clock.Now(),
		Source: "watch",
		Data:   data,
	})
}
