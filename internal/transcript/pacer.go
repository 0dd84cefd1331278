// Package transcript paces assistant replies into the session transcript.
// Every reply is preceded by a typing indicator whose duration depends on
// the content, and long replies are split into sequentially revealed chunks.
package transcript

import (
	"strings"
	"time"

	"github.com/astroremedis/astrochat/internal/domain"
)

// Sink receives transcript events for delivery to a connected client. A
// disconnected session simply drops events; the transcript itself is always
// recorded on the session.
type Sink interface {
	Typing(sessionID string, active bool)
	Message(sessionID string, msg domain.Message)
	Chart(sessionID string, msg domain.Message)
}

// Config holds the pacing knobs. Tests shrink the delays.
type Config struct {
	// PredictionDelay applies to replies that read like astrological
	// predictions, and to every chunk of a multi-chunk reply.
	PredictionDelay time.Duration

	// BaseDelay applies to everything else.
	BaseDelay time.Duration

	// MaxChunks caps how many pieces a reply is split into.
	MaxChunks int
}

func DefaultConfig() Config {
	return Config{
		PredictionDelay: 8 * time.Second,
		BaseDelay:       2 * time.Second,
		MaxChunks:       3,
	}
}

// predictionWords marks replies that deserve the long "consulting the
// chart" pause. Matched as case-insensitive substrings.
var predictionWords = []string{
	"yog", "shaadi", "career", "health", "mangal", "grah",
	"kundli", "prediction", "marriage", "job", "business", "future",
}

// Pacer schedules reply delivery. It satisfies the orchestrator's Publisher
// interface.
type Pacer struct {
	sink Sink
	cfg  Config
}

func NewPacer(sink Sink, cfg Config) *Pacer {
	if cfg.MaxChunks < 1 {
		cfg.MaxChunks = 1
	}
	return &Pacer{sink: sink, cfg: cfg}
}

// PublishText records and reveals an assistant reply, chunk by chunk.
// Chunk k+1's typing indicator only starts once chunk k is revealed.
func (p *Pacer) PublishText(s *domain.Session, text string) {
	chunks := SplitChunks(text, p.cfg.MaxChunks)
	delay := p.cfg.BaseDelay
	if len(chunks) > 1 || IsPrediction(text) {
		delay = p.cfg.PredictionDelay
	}
	p.deliver(s, chunks, delay)
}

// PublishChart pushes an already-appended chart message to the client.
// Chart reveals are not paced; the orchestrator's minimum-delay floor
// already covered the wait.
func (p *Pacer) PublishChart(s *domain.Session, msg domain.Message) {
	p.sink.Typing(s.ID, false)
	p.sink.Chart(s.ID, msg)
}

func (p *Pacer) deliver(s *domain.Session, chunks []string, delay time.Duration) {
	if len(chunks) == 0 {
		return
	}
	p.sink.Typing(s.ID, true)

	s.Schedule(delay, func() {
		msg := s.AppendAssistant(chunks[0])
		p.sink.Typing(s.ID, false)
		p.sink.Message(s.ID, msg)
		p.deliver(s, chunks[1:], delay)
	})
}

// IsPrediction reports whether the reply text matches the prediction
// keyword table.
func IsPrediction(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range predictionWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// SplitChunks breaks a reply on blank-line boundaries into at most max
// pieces. The final piece absorbs any overflow so no text is dropped.
func SplitChunks(text string, max int) []string {
	parts := strings.Split(text, "\n\n")
	var chunks []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
	}
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) > max {
		rest := strings.Join(chunks[max-1:], "\n\n")
		chunks = append(chunks[:max-1], rest)
	}
	return chunks
}
