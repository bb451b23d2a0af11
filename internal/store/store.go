// Package store persists goal sessions, executed-action history and the
// embedding cache in SQLite. Persistence is fire-and-forget from the
// pipeline's perspective: callers log failures and continue, and nothing
// in the core depends on a write having landed.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	// HistoryLimit caps retained actions per session.
	HistoryLimit = 10
	// SessionLimit caps retained sessions.
	SessionLimit = 50
)

// Session is one goal run.
type Session struct {
	ID        string    `json:"id"`
	Goal      string    `json:"goal"`
	Status    string    `json:"status"` // running, stopped, done
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ActionRecord is one executed or proposed action.
type ActionRecord struct {
	ID        int64           `json:"id,omitempty"`
	SessionID string          `json:"session_id"`
	Action    string          `json:"action"` // click, type, navigate, search, feedback, finish
	Status    string          `json:"status"` // pending, done
	Detail    json.RawMessage `json:"detail,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and bootstraps the
// schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			goal       TEXT NOT NULL,
			status     TEXT NOT NULL DEFAULT 'running',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS actions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			action     TEXT NOT NULL,
			status     TEXT NOT NULL,
			detail     TEXT,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_actions_session ON actions(session_id, id);
		CREATE TABLE IF NOT EXISTS embedding_cache (
			content_hash TEXT NOT NULL,
			model        TEXT NOT NULL,
			embedding    BLOB NOT NULL,
			created_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (content_hash, model)
		);
	`)
	return err
}

// DB exposes the underlying handle for the embedding cache.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// CreateSession records a new goal session and prunes old ones past the
// session cap.
func (s *Store) CreateSession(goal string) (*Session, error) {
	id := uuid.New().String()
	now := time.Now().Unix()
	if _, err := s.db.Exec(
		`INSERT INTO sessions (id, goal, status, created_at, updated_at) VALUES (?, ?, 'running', ?, ?)`,
		id, goal, now, now,
	); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	_, _ = s.db.Exec(`
		DELETE FROM sessions WHERE id NOT IN (
			SELECT id FROM sessions ORDER BY updated_at DESC LIMIT ?
		)`, SessionLimit)
	return &Session{
		ID:        id,
		Goal:      goal,
		Status:    "running",
		CreatedAt: time.Unix(now, 0),
		UpdatedAt: time.Unix(now, 0),
	}, nil
}

// SetSessionStatus updates a session's status.
func (s *Store) SetSessionStatus(sessionID, status string) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().Unix(), sessionID,
	)
	return err
}

// ListSessions returns sessions, most recently updated first.
func (s *Store) ListSessions() ([]Session, error) {
	rows, err := s.db.Query(
		`SELECT id, goal, status, created_at, updated_at FROM sessions ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var createdAt, updatedAt int64
		if err := rows.Scan(&sess.ID, &sess.Goal, &sess.Status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		sess.CreatedAt = time.Unix(createdAt, 0)
		sess.UpdatedAt = time.Unix(updatedAt, 0)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// AppendAction records an action and prunes the session's history past
// the cap.
func (s *Store) AppendAction(rec ActionRecord) error {
	var detail sql.NullString
	if len(rec.Detail) > 0 {
		detail = sql.NullString{String: string(rec.Detail), Valid: true}
	}
	now := time.Now().Unix()
	if _, err := s.db.Exec(
		`INSERT INTO actions (session_id, action, status, detail, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Action, rec.Status, detail, now,
	); err != nil {
		return fmt.Errorf("failed to append action: %w", err)
	}
	_, _ = s.db.Exec(`
		DELETE FROM actions WHERE session_id = ? AND id NOT IN (
			SELECT id FROM actions WHERE session_id = ? ORDER BY id DESC LIMIT ?
		)`, rec.SessionID, rec.SessionID, HistoryLimit)
	_, _ = s.db.Exec(`UPDATE sessions SET updated_at = ? WHERE id = ?`, now, rec.SessionID)
	return nil
}

// MarkLastActionDone flips the most recent pending action of a session
// to done.
func (s *Store) MarkLastActionDone(sessionID string) error {
	_, err := s.db.Exec(`
		UPDATE actions SET status = 'done' WHERE id = (
			SELECT id FROM actions WHERE session_id = ? AND status = 'pending' ORDER BY id DESC LIMIT 1
		)`, sessionID)
	return err
}

// Actions returns a session's retained history, oldest first.
func (s *Store) Actions(sessionID string) ([]ActionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, action, status, detail, created_at FROM actions WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []ActionRecord
	for rows.Next() {
		var rec ActionRecord
		var detail sql.NullString
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Action, &rec.Status, &detail, &createdAt); err != nil {
			return nil, err
		}
		if detail.Valid {
			rec.Detail = json.RawMessage(detail.String)
		}
		rec.CreatedAt = time.Unix(createdAt, 0)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
