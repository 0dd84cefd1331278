// Package ws streams transcript events to the embedded widget over
// WebSocket and accepts user messages on the same connection.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/astroremedis/astrochat/internal/domain"
)

const writeTimeout = 5 * time.Second

// event is the wire envelope for server-to-client stream events.
type event struct {
	Type    string          `json:"type"`
	On      bool            `json:"on,omitempty"`
	Message *domain.Message `json:"message,omitempty"`
}

// Hub tracks the live connection per session. At most one connection per
// session; a new one replaces and closes the old.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*websocket.Conn
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]*websocket.Conn)}
}

// Register adds a connection for a session, closing any previous one.
func (h *Hub) Register(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.conns[sessionID]; ok && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "connection replaced")
	}
	h.conns[sessionID] = conn
	slog.Info("stream connected", "session", sessionID)
}

// Unregister removes a connection if it is still the current one.
func (h *Hub) Unregister(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.conns[sessionID]; ok && current == conn {
		delete(h.conns, sessionID)
		slog.Info("stream disconnected", "session", sessionID)
	}
}

// Connected reports whether a session has a live connection.
func (h *Hub) Connected(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conns[sessionID] != nil
}

// Typing implements the transcript sink's typing indicator event.
func (h *Hub) Typing(sessionID string, active bool) {
	h.send(sessionID, event{Type: "typing", On: active})
}

// Message implements the transcript sink's text message event.
func (h *Hub) Message(sessionID string, msg domain.Message) {
	h.send(sessionID, event{Type: "message", Message: &msg})
}

// Chart implements the transcript sink's chart reveal event.
func (h *Hub) Chart(sessionID string, msg domain.Message) {
	h.send(sessionID, event{Type: "chart", Message: &msg})
}

// Refresh tells the client its session was reset.
func (h *Hub) Refresh(sessionID string) {
	h.send(sessionID, event{Type: "refresh"})
}

func (h *Hub) send(sessionID string, ev event) {
	h.mu.RLock()
	conn := h.conns[sessionID]
	h.mu.RUnlock()
	if conn == nil {
		// No live client; the transcript on the session is the source of
		// truth, so dropping the event is fine.
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Error("encode stream event", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		slog.Debug("stream write failed", "session", sessionID, "error", err)
	}
}
