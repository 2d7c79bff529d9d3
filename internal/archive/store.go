// Package archive keeps a local SQLite record of completed session
// transcripts. The remote memory service stores distilled facts; the
// archive keeps the verbatim conversation for later review.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roymercy27-cyber/jarvis-agent/internal/session"
)

// SessionSummary is one archived session without its turns.
type SessionSummary struct {
	ID        string
	OwnerID   string
	StartedAt time.Time
	EndedAt   time.Time
	TurnCount int
}

// Store is an append-only SQLite archive. Safe for concurrent use;
// SQLite serializes the writes.
type Store struct {
	db *sql.DB
}

// Open creates an archive store at the given database path. The schema
// is created automatically on first use.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}
	return NewStore(db)
}

// NewStore wraps an existing database handle, creating the schema if
// needed. The store takes ownership of db.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate archive schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		owner_id   TEXT NOT NULL,
		started_at TEXT NOT NULL,
		ended_at   TEXT NOT NULL,
		turn_count INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS turns (
		session_id TEXT NOT NULL REFERENCES sessions(id),
		seq        INTEGER NOT NULL,
		role       TEXT NOT NULL,
		content    TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (session_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_owner ON sessions(owner_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveSession persists one completed session and its turn log.
func (s *Store) SaveSession(ctx context.Context, id, ownerID string, startedAt, endedAt time.Time, turns []session.Turn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, owner_id, started_at, ended_at, turn_count) VALUES (?, ?, ?, ?, ?)`,
		id, ownerID, startedAt.UTC().Format(time.RFC3339Nano), endedAt.UTC().Format(time.RFC3339Nano), len(turns))
	if err != nil {
		return fmt.Errorf("insert session %s: %w", id, err)
	}

	for i, turn := range turns {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO turns (session_id, seq, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
			id, i, turn.Role, turn.Content, turn.Timestamp.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("insert turn %d of session %s: %w", i, id, err)
		}
	}

	return tx.Commit()
}

// RecentSessions lists archived sessions, newest first.
func (s *Store) RecentSessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, started_at, ended_at, turn_count
		 FROM sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		var started, ended string
		if err := rows.Scan(&sum.ID, &sum.OwnerID, &started, &ended, &sum.TurnCount); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sum.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		sum.EndedAt, _ = time.Parse(time.RFC3339Nano, ended)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Transcript returns the turn log of one archived session in order.
func (s *Store) Transcript(ctx context.Context, sessionID string) ([]session.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, created_at FROM turns WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query turns for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []session.Turn
	for rows.Next() {
		var turn session.Turn
		var created string
		if err := rows.Scan(&turn.Role, &turn.Content, &created); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turn.Timestamp, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, turn)
	}
	return out, rows.Err()
}
