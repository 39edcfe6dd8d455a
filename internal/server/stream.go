package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// HandleStream handles GET /api/stream: upgrades to a websocket and
// pushes a state frame immediately, then on every tick until the client
// goes away.
func (h *Handlers) HandleStream(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()
	slog.Info("stream client connected", "remote", ws.RemoteAddr().String())

	// Reads only surface the disconnect; clients never send frames.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := ws.WriteJSON(h.frame()); err != nil {
		return
	}

	ticker := time.NewTicker(h.streamInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-done:
			slog.Info("stream client disconnected")
			return
		case <-ticker.C:
			if err := ws.WriteJSON(h.frame()); err != nil {
				return
			}
		}
	}
}

func (h *Handlers) frame() StreamFrame {
	return StreamFrame{
		At:        time.Now().UTC(),
		Snapshot:  h.engine.Snapshot(),
		Fuel:      h.rec.Gauge(),
		Resonance: h.tun.Status(),
	}
}
