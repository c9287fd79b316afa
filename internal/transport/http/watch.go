package http

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/alphaarc/platform/internal/hub"
)

const (
	watchWriteTimeout = 10 * time.Second
	watchPingInterval = 30 * time.Second
	watchReadTimeout  = 90 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WatchRun upgrades to WebSocket and mirrors a run's events to the client.
// Watching is read-only and best-effort: a watcher that joins late sees only
// events emitted after it joined.
// GET /rpc/agents/runs/:run_id/watch
func (h *Handler) WatchRun(c echo.Context) error {
	runID := c.Param("run_id")

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return err
	}

	w := h.hub.NewWatcher(ws, runID)
	h.hub.Register(w)

	go h.watchWritePump(w)
	go h.watchReadPump(w)
	return nil
}

// watchWritePump drains the watcher's send channel onto the socket and keeps
// the connection alive with pings.
func (h *Handler) watchWritePump(w *hub.Watcher) {
	ticker := time.NewTicker(watchPingInterval)
	defer func() {
		ticker.Stop()
		w.Close()
	}()

	for {
		select {
		case data, ok := <-w.Send:
			w.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
			if !ok {
				w.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := w.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			w.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
			if err := w.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// watchReadPump discards client frames; its job is noticing the disconnect.
func (h *Handler) watchReadPump(w *hub.Watcher) {
	defer func() {
		h.hub.Unregister(w)
		w.Close()
	}()

	w.SetReadDeadline(time.Now().Add(watchReadTimeout))
	w.Conn.SetPongHandler(func(string) error {
		w.SetReadDeadline(time.Now().Add(watchReadTimeout))
		return nil
	})

	for {
		if _, _, err := w.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
