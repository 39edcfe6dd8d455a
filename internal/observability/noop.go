package observability

import "context"

// NoOp discards every event.
type NoOp struct{}

func (NoOp) Publish(ctx context.Context, ev Event) {}
