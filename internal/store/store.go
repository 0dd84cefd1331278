// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/astroremedis/astrochat/internal/domain"
)

// Submission is a persisted birth-detail form submission.
type Submission struct {
	ID        int64
	SessionID string
	Profile   domain.Profile
	CreatedAt time.Time
}

// Event is a persisted chat event: a message sent or received, a chart
// reveal, or a generation failure. Used for operator review, never read
// back into the live conversation.
type Event struct {
	ID        int64
	SessionID string
	Kind      string // "user", "assistant", "chart", "error"
	Text      string
	Chart     json.RawMessage
	CreatedAt time.Time
}

// Repository defines the interface for persisting submissions and the chat
// event log.
type Repository interface {
	// AppendSubmission records a birth-detail form submission.
	AppendSubmission(ctx context.Context, sub *Submission) error

	// AppendEvent records one chat event.
	AppendEvent(ctx context.Context, ev *Event) error

	// RecentEvents returns up to limit events for a session, oldest first.
	RecentEvents(ctx context.Context, sessionID string, limit int) ([]*Event, error)

	// CleanupEvents removes events older than the retention window.
	CleanupEvents(ctx context.Context, retention time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
