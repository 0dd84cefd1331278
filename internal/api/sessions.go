package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/astroremedis/astrochat/internal/chat"
	"github.com/astroremedis/astrochat/internal/config"
	"github.com/astroremedis/astrochat/internal/domain"
)

// SessionHandler serves the session lifecycle and widget configuration.
type SessionHandler struct {
	svc    *chat.Service
	widget config.WidgetConfig
}

func NewSessionHandler(svc *chat.Service, widget config.WidgetConfig) *SessionHandler {
	return &SessionHandler{svc: svc, widget: widget}
}

// RegisterRoutes registers the widget API routes.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", h.CreateSession)
		r.Get("/sessions/{id}", h.GetSession)
		r.Delete("/sessions/{id}", h.DeleteSession)
		r.Post("/sessions/{id}/messages", h.PostMessage)
		r.Post("/sessions/{id}/form", h.SubmitForm)
		r.Post("/sessions/{id}/refresh", h.RefreshSession)
		r.Get("/widget/config", h.WidgetConfig)
		r.Get("/health", h.BackendHealth)
	})
}

// snapshot is the session view returned by the REST surface. The websocket
// stream carries the same messages incrementally.
type snapshot struct {
	ID         string           `json:"id"`
	Step       domain.Step      `json:"step"`
	Generation string           `json:"generation"`
	Profile    domain.Profile   `json:"profile"`
	Transcript []domain.Message `json:"transcript"`
}

func snapshotOf(s *domain.Session) snapshot {
	return snapshot{
		ID:         s.ID,
		Step:       s.Step(),
		Generation: s.Generation().String(),
		Profile:    s.Profile(),
		Transcript: s.Transcript(),
	}
}

// CreateSession opens a new session, optionally pre-filled with profile
// fields the embedding page already knows.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Profile domain.Profile `json:"profile"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	s := h.svc.CreateSession(req.Profile)
	JSON(w, http.StatusCreated, snapshotOf(s))
}

// GetSession returns the current snapshot.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Session(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, http.StatusNotFound, "session not found")
		return
	}
	JSON(w, http.StatusOK, snapshotOf(s))
}

// DeleteSession drops a session.
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	h.svc.Delete(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// PostMessage accepts one user message; replies arrive over the stream and
// in subsequent snapshots.
func (h *SessionHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		Error(w, http.StatusBadRequest, "text is required")
		return
	}

	if err := h.svc.HandleMessage(r.Context(), chi.URLParam(r, "id"), req.Text); err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			Error(w, http.StatusNotFound, "session not found")
			return
		}
		slog.Error("message handling failed", "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	JSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// SubmitForm fills the whole profile from the modal form. Validation errors
// are reported per field.
func (h *SessionHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	var req domain.Profile
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if fieldErrs := validateForm(req); len(fieldErrs) > 0 {
		JSON(w, http.StatusBadRequest, map[string]interface{}{"errors": fieldErrs})
		return
	}

	if err := h.svc.SubmitForm(r.Context(), chi.URLParam(r, "id"), req); err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			Error(w, http.StatusNotFound, "session not found")
			return
		}
		slog.Error("form submission failed", "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	JSON(w, http.StatusAccepted, map[string]string{"status": "generating"})
}

// RefreshSession resets the session to its initial state.
func (h *SessionHandler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Refresh(chi.URLParam(r, "id")); err != nil {
		Error(w, http.StatusNotFound, "session not found")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

// WidgetConfig serves the embed configuration. IframeURL is guaranteed
// non-empty by config validation at startup.
func (h *SessionHandler) WidgetConfig(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.widget)
}

// BackendHealth proxies the astrology backend's probe.
func (h *SessionHandler) BackendHealth(w http.ResponseWriter, r *http.Request) {
	hs, err := h.svc.Health(r.Context())
	if err != nil {
		slog.Warn("backend health probe failed", "error", err)
		Error(w, http.StatusBadGateway, "backend unreachable")
		return
	}
	JSON(w, http.StatusOK, hs)
}

func validateForm(p domain.Profile) map[string]string {
	errs := make(map[string]string)
	if p.Name == "" {
		errs["name"] = "name is required"
	}
	switch domain.ValidDate(p.DOB) {
	case domain.DateOK:
	case domain.DateInFuture:
		errs["dob"] = "date of birth cannot be in the future"
	case domain.DateTooOld:
		errs["dob"] = "date of birth must be after 1900"
	default:
		errs["dob"] = "date of birth must be YYYY-MM-DD"
	}
	if !domain.ValidTime(p.TOB) {
		errs["tob"] = "time of birth must be HH:MM:SS"
	}
	if len(p.Place) < 3 {
		errs["place"] = "place of birth is required"
	}
	return errs
}
