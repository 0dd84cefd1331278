package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/astroremedis/astrochat/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "astrochat.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestAppendSubmission(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	sub := &Submission{
		SessionID: "s1",
		Profile: domain.Profile{
			Name: "Rajesh", DOB: "1990-05-15", TOB: "14:30:00",
			Place: "Delhi", Timezone: "Asia/Kolkata",
		},
	}
	if err := repo.AppendSubmission(context.Background(), sub); err != nil {
		t.Fatalf("AppendSubmission: %v", err)
	}
	if sub.ID == 0 {
		t.Error("submission ID not assigned")
	}
}

func TestEventLogRoundTrip(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	events := []*Event{
		{SessionID: "s1", Kind: "user", Text: "Mera naam Rajesh hai"},
		{SessionID: "s1", Kind: "assistant", Text: "Dhanyavaad Rajesh ji!"},
		{SessionID: "s1", Kind: "chart", Chart: []byte(`{"svg":"x"}`)},
		{SessionID: "other", Kind: "user", Text: "hello"},
	}
	for _, ev := range events {
		if err := repo.AppendEvent(ctx, ev); err != nil {
			t.Fatalf("AppendEvent: %v", err)
		}
	}

	got, err := repo.RecentEvents(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("events = %d", len(got))
	}
	if got[0].Text != "Mera naam Rajesh hai" || got[2].Kind != "chart" {
		t.Errorf("order wrong: %+v", got)
	}
	if string(got[2].Chart) != `{"svg":"x"}` {
		t.Errorf("chart = %s", got[2].Chart)
	}
}

func TestRecentEventsLimitKeepsNewest(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		if err := repo.AppendEvent(ctx, &Event{SessionID: "s1", Kind: "user", Text: text}); err != nil {
			t.Fatalf("AppendEvent: %v", err)
		}
	}

	got, err := repo.RecentEvents(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("events = %d", len(got))
	}
	if got[0].Text != "two" || got[1].Text != "three" {
		t.Errorf("got %q, %q", got[0].Text, got[1].Text)
	}
}

func TestCleanupEvents(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	old := &Event{SessionID: "s1", Kind: "user", Text: "old", CreatedAt: time.Now().Add(-48 * time.Hour)}
	fresh := &Event{SessionID: "s1", Kind: "user", Text: "fresh"}
	for _, ev := range []*Event{old, fresh} {
		if err := repo.AppendEvent(ctx, ev); err != nil {
			t.Fatalf("AppendEvent: %v", err)
		}
	}

	deleted, err := repo.CleanupEvents(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("CleanupEvents: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d", deleted)
	}

	got, err := repo.RecentEvents(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(got) != 1 || got[0].Text != "fresh" {
		t.Errorf("remaining = %+v", got)
	}
}
