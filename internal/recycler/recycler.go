// Package recycler implements the entropic recycler: failure reports are
// consumed and converted into fuel at a fixed gnosis efficiency.
package recycler

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/observability"
)

const (
	// defaultEfficiency is the gnosis extraction multiplier.
	defaultEfficiency = 3.0
	// startingFuel matches the dashboard's initial telemetry reading.
	startingFuel = 42.1

	// StatusActive is the recycler's steady operating status.
	StatusActive = "ACTIVE"
	// StatusStabilized is reported after a failure has been consumed.
	StatusStabilized = "STABILIZED"
	// ShiftPositive is the resonance shift reported after consumption.
	ShiftPositive = "POSITIVE"

	nodeName = "Node_Beta_04"
)

// EventConsumed is published every time a failure is recycled.
const EventConsumed observability.EventType = "recycler.consumed"

// Result reports one consumption.
type Result struct {
	Status         string  `json:"status"`
	FuelLevel      float64 `json:"fuel_level"`
	ResonanceShift string  `json:"resonance_shift"`
}

// FuelStatus is the read-only fuel gauge view.
type FuelStatus struct {
	Status    string  `json:"status"`
	FuelLevel float64 `json:"fuel_level"`
}

// EntropicRecycler converts failure text into fuel. Safe for concurrent
// use.
type EntropicRecycler struct {
	mu         sync.Mutex
	efficiency float64
	fuel       float64
	status     string
	obs        observability.Observer
}

// Option configures the recycler.
type Option func(*EntropicRecycler)

// WithObserver installs the event sink. Defaults to a no-op.
func WithObserver(obs observability.Observer) Option {
	return func(r *EntropicRecycler) { r.obs = obs }
}

// New returns a recycler at the starting fuel level.
func New(opts ...Option) *EntropicRecycler {
	r := &EntropicRecycler{
		efficiency: defaultEfficiency,
		fuel:       startingFuel,
		status:     StatusActive,
		obs:        observability.NoOp{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ConsumeFailure extracts gnosis from the failure text, adds it to the
// fuel level and reports the result. Gnosis scales with the rune count
// of the report.
func (r *EntropicRecycler) ConsumeFailure(errorData string) Result {
	r.mu.Lock()
	extracted := float64(utf8.RuneCountInString(errorData)) * r.efficiency
	r.fuel += extracted
	fuel := r.fuel
	r.mu.Unlock()

	r.obs.Publish(context.Background(), observability.Event{
		Type:   EventConsumed,
		Level:  observability.LevelInfo,
		At:     time.Now(),
		Source: "recycler",
		Data: map[string]any{
			"node":             nodeName,
			"extracted_gnosis": extracted,
			"fuel_level":       fuel,
		},
	})
	return Result{
		Status:         StatusStabilized,
		FuelLevel:      fuel,
		ResonanceShift: ShiftPositive,
	}
}

// Fuel returns the current fuel level.
func (r *EntropicRecycler) Fuel() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fuel
}

// RestoreFuel overwrites the fuel level, used when resuming from
// persisted telemetry.
func (r *EntropicRecycler) RestoreFuel(level float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fuel = level
}

// Gauge returns the fuel gauge view served by the API.
func (r *EntropicRecycler) Gauge() FuelStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return FuelStatus{Status: r.status, FuelLevel: r.fuel}
}
