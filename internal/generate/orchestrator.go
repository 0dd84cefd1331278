// Package generate sequences the two chart calls for a completed profile:
// chart data first, then the visual chart, at most once per session, with a
// minimum perceived "working" duration before the chart is revealed.
package generate

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"time"

	"github.com/astroremedis/astrochat/internal/astro"
	"github.com/astroremedis/astrochat/internal/domain"
)

// Backend is the slice of the astrology client the orchestrator uses.
type Backend interface {
	Kundli(ctx context.Context, details astro.BirthDetails) (json.RawMessage, error)
	Chart(ctx context.Context, details astro.BirthDetails) (json.RawMessage, error)
}

// Publisher delivers orchestrator output to the session's transcript and any
// connected client. Implemented by the transcript pacer.
type Publisher interface {
	PublishText(s *domain.Session, text string)
	PublishChart(s *domain.Session, msg domain.Message)
}

// Config holds the orchestrator's timing knobs. Tests shrink these; the
// defaults reproduce the production feel.
type Config struct {
	// Debounce absorbs double triggers from the auto-start and manual
	// confirmation paths firing back to back.
	Debounce time.Duration

	// MinRevealLow/High bound the randomized floor on how long the widget
	// appears to "work" before the chart shows, regardless of backend speed.
	MinRevealLow  time.Duration
	MinRevealHigh time.Duration
}

func DefaultConfig() Config {
	return Config{
		Debounce:      150 * time.Millisecond,
		MinRevealLow:  8 * time.Second,
		MinRevealHigh: 10 * time.Second,
	}
}

const (
	msgChartDataReady = "Aapki kundli ki ganana ho gayi hai! ✨ Ab main aapka chart bana raha hun..."
	msgGenerateFailed = "Maaf kijiye, abhi kundli banane mein dikkat aa rahi hai. 🙏 Kripya thodi der baad phir se koshish kijiye."
)

// Orchestrator runs one generation per session. Idempotence is enforced by
// the session's generation state machine, not here.
type Orchestrator struct {
	backend Backend
	pub     Publisher
	cfg     Config
}

func NewOrchestrator(backend Backend, pub Publisher, cfg Config) *Orchestrator {
	return &Orchestrator{backend: backend, pub: pub, cfg: cfg}
}

// Trigger requests generation for the session. Triggers while a generation
// is requested, in flight, or done are ignored; a failed generation accepts
// a fresh trigger. The actual work starts after a short debounce so that the
// auto-start path and a racing manual confirmation collapse into one run.
func (o *Orchestrator) Trigger(s *domain.Session) {
	if !s.TryRequestGeneration() {
		slog.Debug("generation trigger ignored", "session", s.ID, "state", s.Generation())
		return
	}

	// The epoch pins the whole run to the session state it was triggered
	// against: a refresh while a remote call is in flight makes every later
	// mutation and publish a no-op instead of leaking a stale chart into the
	// reset session.
	epoch := s.Epoch()
	s.ScheduleAt(epoch, o.cfg.Debounce, func() { o.run(s, epoch) })
}

func (o *Orchestrator) run(s *domain.Session, epoch uint64) {
	if !s.BeginGeneration(epoch, time.Now()) {
		return
	}
	details := birthDetails(s.Profile())
	ctx := context.Background()

	chartData, err := o.backend.Kundli(ctx, details)
	if err != nil {
		o.fail(s, epoch, "kundli", err)
		return
	}
	if !s.SetChartData(epoch, chartData) {
		slog.Debug("kundli result dropped after refresh", "session", s.ID)
		return
	}
	o.pub.PublishText(s, msgChartDataReady)

	visual, err := o.backend.Chart(ctx, details)
	if err != nil {
		o.fail(s, epoch, "chart", err)
		return
	}
	if !s.SetVisualChart(epoch, visual) {
		slog.Debug("chart result dropped after refresh", "session", s.ID)
		return
	}

	// Hold the reveal until the randomized floor has elapsed, so a fast
	// backend still reads as careful work.
	elapsed := time.Since(s.GenerationStarted())
	if remaining := o.minReveal() - elapsed; remaining > 0 {
		s.ScheduleAt(epoch, remaining, func() { o.reveal(s, epoch, visual) })
		return
	}
	o.reveal(s, epoch, visual)
}

func (o *Orchestrator) reveal(s *domain.Session, epoch uint64, visual json.RawMessage) {
	msg, ok := s.RevealChart(epoch, visual)
	if !ok {
		slog.Debug("chart reveal dropped", "session", s.ID)
		return
	}
	o.pub.PublishChart(s, msg)
	slog.Info("chart revealed", "session", s.ID)
}

func (o *Orchestrator) fail(s *domain.Session, epoch uint64, stage string, err error) {
	slog.Error("generation failed", "session", s.ID, "stage", stage, "error", err)
	if !s.FailGeneration(epoch) {
		return
	}
	o.pub.PublishText(s, msgGenerateFailed)
}

func (o *Orchestrator) minReveal() time.Duration {
	span := o.cfg.MinRevealHigh - o.cfg.MinRevealLow
	if span <= 0 {
		return o.cfg.MinRevealLow
	}
	return o.cfg.MinRevealLow + time.Duration(rand.Int63n(int64(span)+1))
}

func birthDetails(p domain.Profile) astro.BirthDetails {
	return astro.BirthDetails{
		Name:     p.Name,
		DOB:      p.DOB,
		TOB:      p.TOB,
		Place:    p.Place,
		Timezone: p.Timezone,
	}
}
