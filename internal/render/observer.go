package render

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/observability"
)

// WillObserver renders published events as LIONCROW_WILL blocks on a
// writer. Events below the minimum level are dropped.
type WillObserver struct {
	mu  sync.Mutex
	out io.Writer
	min observability.Level
}

// NewWillObserver returns an observer writing to out, rendering only
// events at or above min.
func NewWillObserver(out io.Writer, min observability.Level) *WillObserver {
	return &WillObserver{out: out, min: min}
}

func (o *WillObserver) Publish(ctx context.Context, ev observability.Event) {
	if ev.Level < o.min {
		return
	}
	block := WillAt(ev.At, Title(string(ev.Type)), ev.Data)
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintln(o.out, block)
}
