package observability

import (
	"context"
	"log/slog"
)

// SlogObserver forwards events to a slog.Logger. The event type becomes
// the message, the source and all Data keys become attributes.
type SlogObserver struct {
	logger *slog.Logger
}

// NewSlogObserver returns an observer writing to logger.
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	return &SlogObserver{logger: logger}
}

func (o *SlogObserver) Publish(ctx context.Context, ev Event) {
	attrs := make([]slog.Attr, 0, len(ev.Data)+1)
	attrs = append(attrs, slog.String("source", ev.Source))
	for k, v := range ev.Data {
		attrs = append(attrs, slog.Any(k, v))
	}
	o.logger.LogAttrs(ctx, ev.Level.SlogLevel(), string(ev.Type), attrs...)
}
