package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/astroremedis/astrochat/internal/domain"
)

// Dispatcher is the conversation core the stream feeds into.
type Dispatcher interface {
	Session(id string) (*domain.Session, error)
	HandleMessage(ctx context.Context, sessionID, text string) error
	Refresh(sessionID string) error
}

// Handler upgrades widget connections and relays client frames to the
// dispatcher.
type Handler struct {
	hub           *Hub
	svc           Dispatcher
	allowedOrigin string
	isDev         bool
}

func NewHandler(hub *Hub, svc Dispatcher, allowedOrigin string, isDev bool) *Handler {
	return &Handler{hub: hub, svc: svc, allowedOrigin: allowedOrigin, isDev: isDev}
}

// clientFrame is the wire envelope for client-to-server frames.
type clientFrame struct {
	Type string `json:"type"` // "message", "refresh", "ping"
	Text string `json:"text,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "missing session", http.StatusBadRequest)
		return
	}
	if _, err := h.svc.Session(sessionID); err != nil {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err, "session", sessionID)
		return
	}
	defer func() {
		if closeErr := conn.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("websocket close failed", "error", closeErr, "session", sessionID)
		}
	}()

	h.hub.Register(sessionID, conn)
	defer h.hub.Unregister(sessionID, conn)

	h.readLoop(r.Context(), conn, sessionID)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	slog.Warn("websocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, sessionID string) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("websocket closed by client", "session", sessionID)
			} else {
				slog.Warn("websocket read error", "error", err, "session", sessionID)
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			slog.Debug("discarding malformed frame", "session", sessionID, "error", err)
			continue
		}

		switch frame.Type {
		case "message":
			if err := h.svc.HandleMessage(ctx, sessionID, frame.Text); err != nil {
				slog.Warn("message dispatch failed", "session", sessionID, "error", err)
				return
			}
		case "refresh":
			if err := h.svc.Refresh(sessionID); err != nil {
				slog.Warn("refresh dispatch failed", "session", sessionID, "error", err)
				return
			}
		case "ping":
			h.send(conn, event{Type: "pong"})
		default:
			slog.Debug("unknown frame type", "session", sessionID, "type", frame.Type)
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, ev event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		slog.Debug("pong write failed", "error", err)
	}
}
