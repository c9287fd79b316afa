// Package hub fans live run events out to WebSocket watchers. Watching is a
// best-effort mirror of a run's stream: the run itself never blocks on a slow
// watcher, and a watcher that cannot keep up is disconnected.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/alphaarc/platform/internal/domain"
)

// ErrBufferFull is returned when a watcher's send buffer is full.
var ErrBufferFull = errors.New("send buffer full")

// Watcher is one WebSocket client observing a run.
type Watcher struct {
	ID    string
	RunID string
	Conn  *websocket.Conn
	Send  chan []byte

	mu sync.Mutex
}

// Hub manages run watchers.
type Hub struct {
	watchers map[string]*Watcher
	runs     map[string]map[string]bool // run ID -> set of watcher IDs

	register   chan *Watcher
	unregister chan *Watcher
	broadcast  chan *runMessage

	mu  sync.RWMutex
	log *zap.Logger
}

type runMessage struct {
	runID string
	data  []byte
}

// NewHub creates a new Hub.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		watchers:   make(map[string]*Watcher),
		runs:       make(map[string]map[string]bool),
		register:   make(chan *Watcher),
		unregister: make(chan *Watcher),
		broadcast:  make(chan *runMessage, 256),
		log:        log,
	}
}

// Run starts the hub's main loop and blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case w := <-h.register:
			h.mu.Lock()
			h.watchers[w.ID] = w
			if h.runs[w.RunID] == nil {
				h.runs[w.RunID] = make(map[string]bool)
			}
			h.runs[w.RunID][w.ID] = true
			h.mu.Unlock()
			h.log.Debug("watcher registered",
				zap.String("watcher", w.ID), zap.String("run", w.RunID))

		case w := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.watchers[w.ID]; ok {
				delete(h.watchers, w.ID)
				if h.runs[w.RunID] != nil {
					delete(h.runs[w.RunID], w.ID)
					if len(h.runs[w.RunID]) == 0 {
						delete(h.runs, w.RunID)
					}
				}
				close(w.Send)
			}
			h.mu.Unlock()
			h.log.Debug("watcher unregistered", zap.String("watcher", w.ID))

		case msg := <-h.broadcast:
			h.mu.RLock()
			for watcherID := range h.runs[msg.runID] {
				w, ok := h.watchers[watcherID]
				if !ok {
					continue
				}
				select {
				case w.Send <- msg.data:
				default:
					// Watcher too slow, drop it rather than stall the run.
					h.log.Warn("watcher buffer full, closing",
						zap.String("watcher", watcherID))
					go h.Unregister(w)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// NewWatcher creates a watcher for the given run. The caller must Register it.
func (h *Hub) NewWatcher(ws *websocket.Conn, runID string) *Watcher {
	return &Watcher{
		ID:    uuid.New().String(),
		RunID: runID,
		Conn:  ws,
		Send:  make(chan []byte, 256),
	}
}

// Register registers a watcher with the hub.
func (h *Hub) Register(w *Watcher) {
	h.register <- w
}

// Unregister removes a watcher from the hub.
func (h *Hub) Unregister(w *Watcher) {
	h.unregister <- w
}

// BroadcastEvent mirrors one run event to all watchers of the run. It never
// blocks the caller: with no watchers the event is dropped on the floor.
func (h *Hub) BroadcastEvent(runID string, ev domain.LogEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- &runMessage{runID: runID, data: data}:
	default:
		h.log.Warn("broadcast queue full, dropping event", zap.String("run", runID))
	}
}

// WatcherCount returns the number of active watchers for a run.
func (h *Hub) WatcherCount(runID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.runs[runID])
}

// WriteMessage writes a frame to the watcher's connection with proper locking.
func (w *Watcher) WriteMessage(messageType int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline on the underlying connection.
func (w *Watcher) SetWriteDeadline(t time.Time) error {
	return w.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline on the underlying connection.
func (w *Watcher) SetReadDeadline(t time.Time) error {
	return w.Conn.SetReadDeadline(t)
}

// Close closes the underlying connection.
func (w *Watcher) Close() error {
	return w.Conn.Close()
}
