package kernel

import (
	"context"

	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/observability"
)

// Event types published by the engine.
const (
	// EventStepComplete carries the diagnostics of a completed step.
	EventStepComplete observability.EventType = "kernel.step.complete"

	// EventGateRequested carries a hint of the freshly issued unlock token.
	EventGateRequested observability.EventType = "kernel.gate.requested"

	// EventGateDenied carries the reason a confirmation was refused.
	EventGateDenied observability.EventType = "kernel.gate.denied"

	// EventGateActivated marks the transition to the activated gate state.
	EventGateActivated observability.EventType = "kernel.gate.activated"
)

func (e *Engine) emit(t observability.EventType, level observability.Level, data map[string]any) {
	e.obs.Publish(context.Background(), observability.Event{
		Type:   t,
		Level:  level,
		At:     e.clock.Now(),
		Source: "kernel",
		Data:   data,
	})
}
