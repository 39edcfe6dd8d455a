// Package observability defines the event stream emitted by the synthesis
// kernel and the service loops around it. Subsystems publish typed events
// to an Observer; sinks decide whether those become log lines, metrics or
// rendered dashboard output.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// Level is the severity of an event.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the conventional upper-case name of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

// SlogLevel maps the level onto the corresponding slog.Level.
func (l Level) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// EventType names the kind of event. Each subsystem declares its own
// constants, namespaced by subsystem ("kernel.step.complete",
// "gate.confirm.denied", "watch.cycle").
type EventType string

// Event is a single observation. Data carries event-specific attributes
// and must not be mutated after publication.
type Event struct {
	Type   EventType
	Level  Level
	At     time.Time
	Source string
	Data   map[string]any
}

// Observer consumes events. Implementations must be safe for concurrent
// use; emitters may publish from multiple goroutines.
type Observer interface {
	Publish(ctx context.Context, ev Event)
}
