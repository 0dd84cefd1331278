package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/astroremedis/astrochat/internal/shared"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		name TEXT NOT NULL,
		dob TEXT NOT NULL,
		tob TEXT NOT NULL,
		place TEXT NOT NULL,
		timezone TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_submissions_session ON submissions(session_id);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		text TEXT,
		chart_json TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, id);
	CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AppendSubmission records a birth-detail form submission.
func (s *SQLiteStore) AppendSubmission(ctx context.Context, sub *Submission) error {
	query := `
	INSERT INTO submissions (session_id, name, dob, tob, place, timezone, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	createdAt := sub.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := s.execWithRetry(ctx, query,
		sub.SessionID, sub.Profile.Name, sub.Profile.DOB,
		sub.Profile.TOB, sub.Profile.Place, sub.Profile.Timezone,
		createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	sub.ID, _ = res.LastInsertId()
	return nil
}

// AppendEvent records one chat event.
func (s *SQLiteStore) AppendEvent(ctx context.Context, ev *Event) error {
	query := `
	INSERT INTO events (session_id, kind, text, chart_json, created_at)
	VALUES (?, ?, ?, ?, ?)`

	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var chart interface{}
	if len(ev.Chart) > 0 {
		chart = string(ev.Chart)
	}

	res, err := s.execWithRetry(ctx, query,
		ev.SessionID, ev.Kind, ev.Text, chart, createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	ev.ID, _ = res.LastInsertId()
	return nil
}

// execWithRetry retries writes that hit SQLITE_BUSY with exponential
// backoff. Concurrent event-log appends make this a real occurrence.
func (s *SQLiteStore) execWithRetry(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	const maxRetries = 3
	baseDelay := 50 * time.Millisecond

	var res sql.Result
	var err error
	for i := 0; i < maxRetries; i++ {
		res, err = s.db.ExecContext(ctx, query, args...)
		if err == nil || !shared.IsSQLiteConflictError(err) {
			return res, err
		}
		if i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("database busy, retrying write", "attempt", i+1, "delay", delay)
			time.Sleep(delay)
		}
	}
	return res, err
}

// RecentEvents returns up to limit events for a session, oldest first.
func (s *SQLiteStore) RecentEvents(ctx context.Context, sessionID string, limit int) ([]*Event, error) {
	query := `
	SELECT id, session_id, kind, text, chart_json, created_at
	FROM events WHERE session_id = ?
	ORDER BY id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var ev Event
		var text, chart sql.NullString
		var createdAt int64
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Kind, &text, &chart, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		ev.Text = text.String
		if chart.Valid {
			ev.Chart = []byte(chart.String)
		}
		ev.CreatedAt = time.Unix(createdAt, 0)
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	// Query is newest-first for the LIMIT; callers want oldest-first.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

// CleanupEvents removes events older than the retention window.
func (s *SQLiteStore) CleanupEvents(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup events: %w", err)
	}
	return res.RowsAffected()
}
