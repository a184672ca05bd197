package control

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/clipsqueeze/clipsqueeze/internal/notify"
)

// Event types pushed to /v1/events subscribers.
const (
	EventOptimizationStarted  = "optimization-start"
	EventOptimizationComplete = "optimization-complete"
	EventHideProgress         = "hide-progress"
)

// Event is one message on the websocket stream.
type Event struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	OriginalSize uint64    `json:"original_size,omitempty"`
	NewSize      uint64    `json:"new_size,omitempty"`
	At           time.Time `json:"at"`
}

// Hub fans events out to every connected websocket subscriber. It also acts
// as a Notifier so pipeline signals reach subscribers without extra plumbing.
type Hub struct {
	logger *zap.Logger

	mu    sync.Mutex
	conns map[string]*websocket.Conn
}

var _ notify.Notifier = (*Hub)(nil)

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger,
		conns:  make(map[string]*websocket.Conn),
	}
}

// add registers a connection and returns its subscriber id.
func (h *Hub) add(conn *websocket.Conn) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := uuid.NewString()
	h.conns[id] = conn
	h.logger.Debug("event subscriber connected",
		zap.String("subscriber", id),
		zap.Int("total", len(h.conns)))
	return id
}

// remove unregisters a connection and closes it.
func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conn, ok := h.conns[id]; ok {
		conn.Close()
		delete(h.conns, id)
		h.logger.Debug("event subscriber disconnected",
			zap.String("subscriber", id),
			zap.Int("total", len(h.conns)))
	}
}

// Broadcast sends an event to every subscriber. A missing id or timestamp is
// filled in. Write failures are logged; dead connections are reaped by their
// read loop, not here.
func (h *Hub) Broadcast(ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Warn("broadcast failed",
				zap.String("subscriber", id),
				zap.Error(err))
		}
	}
}

// SubscriberCount reports how many websocket clients are connected.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) OptimizationStarted(context.Context) {
	h.Broadcast(Event{Type: EventOptimizationStarted})
}

func (h *Hub) OptimizationCompleted(_ context.Context, originalSize, newSize uint64) {
	h.Broadcast(Event{
		Type:         EventOptimizationComplete,
		OriginalSize: originalSize,
		NewSize:      newSize,
	})
}
