// Package chat wires the conversation subsystems together: it owns the flow
// from an incoming user message through the dialog controller, generation
// orchestrator and transcript pacer, and mirrors every exchange into the
// event log.
package chat

import (
	"context"
	"errors"
	"log/slog"

	"github.com/astroremedis/astrochat/internal/astro"
	"github.com/astroremedis/astrochat/internal/dialog"
	"github.com/astroremedis/astrochat/internal/domain"
	"github.com/astroremedis/astrochat/internal/generate"
	"github.com/astroremedis/astrochat/internal/session"
	"github.com/astroremedis/astrochat/internal/store"
	"github.com/astroremedis/astrochat/internal/transcript"
)

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = errors.New("session not found")

// Notifier delivers out-of-band stream events. Implemented by the websocket
// hub; a no-op implementation is fine for tests.
type Notifier interface {
	transcript.Sink
	Refresh(sessionID string)
}

// Service is the application core behind both the HTTP API and the
// websocket stream.
type Service struct {
	sessions *session.Manager
	backend  astro.Client
	repo     store.Repository
	notify   Notifier

	controller *dialog.Controller
	orch       *generate.Orchestrator
	pacer      *transcript.Pacer
}

// NewService builds the conversation core. Timing configs are exposed so
// tests can shrink the delays.
func NewService(sessions *session.Manager, backend astro.Client, repo store.Repository, notify Notifier, genCfg generate.Config, paceCfg transcript.Config) *Service {
	s := &Service{
		sessions: sessions,
		backend:  backend,
		repo:     repo,
		notify:   notify,
	}
	sink := &loggingSink{next: notify, repo: repo}
	s.pacer = transcript.NewPacer(sink, paceCfg)
	s.orch = generate.NewOrchestrator(backend, s.pacer, genCfg)
	s.controller = dialog.NewController(backend, s.orch)
	return s
}

// CreateSession opens a session, applies the resume rules for any
// pre-filled profile, and paces the greeting into the transcript.
func (s *Service) CreateSession(profile domain.Profile) *domain.Session {
	sess := s.sessions.Create(profile)
	for _, reply := range s.controller.Start(sess) {
		s.pacer.PublishText(sess, reply)
	}
	return sess
}

// Session returns a live session by ID.
func (s *Service) Session(id string) (*domain.Session, error) {
	sess := s.sessions.Get(id)
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// HandleMessage records a user message and paces the dialog replies.
func (s *Service) HandleMessage(ctx context.Context, sessionID, text string) error {
	sess, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	sess.Touch()
	sess.AppendUser(text)
	s.logEvent(sessionID, "user", text, nil)

	for _, reply := range s.controller.Handle(ctx, sess, text) {
		s.pacer.PublishText(sess, reply)
	}
	return nil
}

// SubmitForm fills the whole profile at once from the modal form, records
// the submission, and triggers generation. Field validation happens in the
// API layer; this assumes a valid profile.
func (s *Service) SubmitForm(ctx context.Context, sessionID string, profile domain.Profile) error {
	sess, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	sess.Touch()
	sess.SetProfile(profile)

	go s.backend.SubmitForm(context.Background(), astro.BirthDetails{
		Name:     profile.Name,
		DOB:      profile.DOB,
		TOB:      profile.TOB,
		Place:    profile.Place,
		Timezone: sess.Profile().Timezone,
	})
	go func() {
		if err := s.repo.AppendSubmission(context.Background(), &store.Submission{
			SessionID: sessionID,
			Profile:   sess.Profile(),
		}); err != nil {
			slog.Warn("submission not persisted", "session", sessionID, "error", err)
		}
	}()

	// Only move into the waiting state when the latch can actually accept
	// the trigger; a repeat form post after a finished generation must not
	// trap the dialog at please-wait.
	if sess.Generation().CanTrigger() {
		sess.SetStep(domain.StepGenerating)
		s.orch.Trigger(sess)
	}
	return nil
}

// Refresh resets a session to its initial state, tells the client, and
// paces a fresh greeting.
func (s *Service) Refresh(sessionID string) error {
	sess, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	sess.Refresh()
	s.notify.Refresh(sessionID)
	for _, reply := range s.controller.Start(sess) {
		s.pacer.PublishText(sess, reply)
	}
	return nil
}

// Delete drops a session entirely.
func (s *Service) Delete(sessionID string) {
	s.sessions.Delete(sessionID)
}

// Health proxies the backend's probe.
func (s *Service) Health(ctx context.Context) (astro.HealthStatus, error) {
	return s.backend.Health(ctx)
}

func (s *Service) logEvent(sessionID, kind, text string, chart []byte) {
	go func() {
		if err := s.repo.AppendEvent(context.Background(), &store.Event{
			SessionID: sessionID,
			Kind:      kind,
			Text:      text,
			Chart:     chart,
		}); err != nil {
			slog.Warn("event not persisted", "session", sessionID, "error", err)
		}
	}()
}

// loggingSink mirrors assistant output into the event log on its way to the
// stream. Persistence failures never reach the conversation.
type loggingSink struct {
	next transcript.Sink
	repo store.Repository
}

func (l *loggingSink) Typing(sessionID string, active bool) {
	l.next.Typing(sessionID, active)
}

func (l *loggingSink) Message(sessionID string, msg domain.Message) {
	go l.persist(&store.Event{SessionID: sessionID, Kind: "assistant", Text: msg.Text})
	l.next.Message(sessionID, msg)
}

func (l *loggingSink) Chart(sessionID string, msg domain.Message) {
	go l.persist(&store.Event{SessionID: sessionID, Kind: "chart", Chart: msg.Chart})
	l.next.Chart(sessionID, msg)
}

func (l *loggingSink) persist(ev *store.Event) {
	if err := l.repo.AppendEvent(context.Background(), ev); err != nil {
		slog.Warn("event not persisted", "session", ev.SessionID, "error", err)
	}
}
