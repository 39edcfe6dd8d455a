package observability

import "context"

// Multi fans events out to several observers in order.
type Multi struct {
	sinks []Observer
}

// NewMulti returns an observer forwarding to every non-nil sink.
func NewMulti(sinks ...Observer) *Multi {
	kept := make([]Observer, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Multi{sinks: kept}
}

func (m *Multi) Publish(ctx context.Context, ev Event) {
	for _, s := range m.sinks {
		s.Publish(ctx, ev)
	}
}
