// Package session owns the set of live chat sessions and their lifecycle:
// creation, lookup, refresh, and TTL-based expiry of abandoned sessions.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/astroremedis/astrochat/internal/domain"
)

const sweepInterval = time.Minute

// Manager holds all active sessions. Sessions are in-memory only; a widget
// that loses its session starts the intake over.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*domain.Session)}
}

// Create allocates a session, optionally pre-filled with whatever profile
// fields the embedding page already knows.
func (m *Manager) Create(profile domain.Profile) *domain.Session {
	s := domain.NewSession(uuid.NewString())
	if !profile.Empty() {
		s.SetProfile(profile)
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	slog.Info("session created", "session", s.ID, "prefilled", !profile.Empty())
	return s
}

// Get returns the session, or nil if it does not exist or has expired.
func (m *Manager) Get(id string) *domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// Delete removes a session and stops its pending timers.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Refresh()
		slog.Info("session deleted", "session", id)
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// StartTTLWorker sweeps idle sessions every minute until ctx is canceled.
func (m *Manager) StartTTLWorker(ctx context.Context, ttl time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("session TTL worker started", "interval", sweepInterval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				m.sweep(ttl)
			case <-ctx.Done():
				slog.Info("session TTL worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func (m *Manager) sweep(ttl time.Duration) {
	cutoff := time.Now().Add(-ttl)

	m.mu.Lock()
	var expired []*domain.Session
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			delete(m.sessions, id)
			expired = append(expired, s)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Refresh()
		slog.Info("idle session expired", "session", s.ID)
	}
}
