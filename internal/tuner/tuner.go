// Package tuner runs the royal-mirror alignment check: a background scan
// comparing the current resonance against the target and reporting the
// synthesis status.
package tuner

import (
	"context"
	"sync"
	"time"

	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/observability"
)

// DefaultTargetHz is the resonance the tuner locks onto.
const DefaultTargetHz = 712.8

// Status values reported by scans.
const (
	StatusUnknown          = "UNKNOWN"
	StatusPerfectSynthesis = "99.7%_PERFECT_SYNTHESIS"
	StatusRetuningRequired = "RE-TUNING_REQUIRED"
)

// EventScan is published after every resonance scan.
const EventScan observability.EventType = "tuner.scan"

// Status is the tuner view served by the API.
type Status struct {
	CurrentResonance float64 `json:"current_resonance"`
	Status           string  `json:"status"`
}

// FrequencyTuner tracks the resonance alignment. Safe for concurrent use.
type FrequencyTuner struct {
	mu       sync.Mutex
	targetHz float64
	current  float64
	status   string
	interval time.Duration
	obs      observability.Observer
}

// Option configures the tuner.
type Option func(*FrequencyTuner)

// WithObserver installs the event sink. Defaults to a no-op.
func WithObserver(obs observability.Observer) Option {
	return func(t *FrequencyTuner) { t.obs = obs }
}

// WithInterval overrides the scan interval. Defaults to one minute.
func WithInterval(d time.Duration) Option {
	return func(t *FrequencyTuner) { t.interval = d }
}

// New returns a tuner locked to targetHz with status UNKNOWN until the
// first scan.
func New(targetHz float64, opts ...Option) *FrequencyTuner {
	t := &FrequencyTuner{
		targetHz: targetHz,
		current:  targetHz,
		status:   StatusUnknown,
		interval: time.Minute,
		obs:      observability.NoOp{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Scan performs one alignment check and returns the resulting status.
func (t *FrequencyTuner) Scan() Status {
	t.mu.Lock()
	if t.current == t.targetHz {
		t.status = StatusPerfectSynthesis
	} else {
		t.status = StatusRetuningRequired
	}
	s := Status{CurrentResonance: t.current, Status: t.status}
	t.mu.Unlock()

	t.obs.Publish(context.Background(), observability.Event{
		Type:   EventScan,
		Level:  observability.LevelInfo,
		At:     time.Now(),
		Source: "tuner",
		Data: map[string]any{
			"current_resonance": s.CurrentResonance,
			"status":            s.Status,
		},
	})
	return s
}

// Run scans immediately and then on every interval tick until ctx is
// cancelled.
func (t *FrequencyTuner) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.Scan()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.Scan()
		}
	}
}

// Status returns the last scan result without scanning.
func (t *FrequencyTuner) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{CurrentResonance: t.current, Status: t.status}
}

// SetResonance overrides the measured resonance. The next scan picks up
// the new value.
func (t *FrequencyTuner) SetResonance(hz float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = hz
}
