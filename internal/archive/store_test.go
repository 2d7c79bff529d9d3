package archive

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/roymercy27-cyber/jarvis-agent/internal/session"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndReadBack(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	started := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	ended := started.Add(3 * time.Minute)
	turns := []session.Turn{
		{Role: session.RoleUser, Content: "what's the weather", Timestamp: started.Add(time.Second)},
		{Role: session.RoleAssistant, Content: "Sunny and warm.", Timestamp: started.Add(2 * time.Second)},
	}

	if err := store.SaveSession(ctx, "sess-1", "owner-1", started, ended, turns); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	sums, err := store.RecentSessions(ctx, 10)
	if err != nil {
		t.Fatalf("RecentSessions: %v", err)
	}
	if len(sums) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sums))
	}
	if sums[0].ID != "sess-1" || sums[0].TurnCount != 2 || !sums[0].StartedAt.Equal(started) {
		t.Errorf("summary = %+v", sums[0])
	}

	got, err := store.Transcript(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Transcript: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("turns = %d, want 2", len(got))
	}
	if got[0].Role != session.RoleUser || got[0].Content != "what's the weather" {
		t.Errorf("first turn = %+v", got[0])
	}
	if got[1].Role != session.RoleAssistant {
		t.Errorf("second turn = %+v", got[1])
	}
}

func TestRecentSessionsNewestFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		started := base.Add(time.Duration(i) * time.Hour)
		if err := store.SaveSession(ctx, id, "owner-1", started, started.Add(time.Minute), nil); err != nil {
			t.Fatalf("SaveSession %s: %v", id, err)
		}
	}

	sums, err := store.RecentSessions(ctx, 2)
	if err != nil {
		t.Fatalf("RecentSessions: %v", err)
	}
	if len(sums) != 2 || sums[0].ID != "new" || sums[1].ID != "mid" {
		t.Errorf("order = %+v", sums)
	}
}

func TestDuplicateSessionIDRejected(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := store.SaveSession(ctx, "dup", "owner-1", now, now, nil); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := store.SaveSession(ctx, "dup", "owner-1", now, now, nil); err == nil {
		t.Fatal("expected error for duplicate session id")
	}
}

func TestTranscriptMissingSession(t *testing.T) {
	store := setupTestStore(t)

	got, err := store.Transcript(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Transcript: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("turns = %+v, want none", got)
	}
}
