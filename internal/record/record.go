// Package record keeps a local log of hint exchanges in SQLite. It is a
// lightweight mirror of the server-side dashboard: sessions themselves are
// never persisted, only the completed exchanges.
package record

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Exchange is one completed hint round-trip.
type Exchange struct {
	ID        int64  `json:"id"`
	SessionID string `json:"sessionId"`
	Title     string `json:"title"`
	Question  string `json:"question,omitempty"`
	Hint      string `json:"hint"`
	CreatedAt int64  `json:"createdAt"`
}

// Log is the SQLite-backed exchange log.
type Log struct {
	db *sql.DB
}

// Open creates (or opens) the log database at dbPath.
func Open(dbPath string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_journal=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	l := &Log{db: db}
	if err := l.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return l, nil
}

func (l *Log) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS exchanges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		title TEXT NOT NULL,
		question TEXT NOT NULL DEFAULT '',
		hint TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_exchanges_created ON exchanges(created_at);
	`
	if _, err := l.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Add appends one exchange.
func (l *Log) Add(ctx context.Context, e Exchange) error {
	at := e.CreatedAt
	if at == 0 {
		at = time.Now().Unix()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO exchanges (session_id, title, question, hint, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.SessionID, e.Title, e.Question, e.Hint, at,
	)
	if err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}
	return nil
}

// Recent returns the latest exchanges, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Exchange, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, session_id, title, question, hint, created_at
		 FROM exchanges ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query exchanges: %w", err)
	}
	defer rows.Close()

	out := make([]Exchange, 0, limit)
	for rows.Next() {
		var e Exchange
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Title, &e.Question, &e.Hint, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (l *Log) Close() error {
	return l.db.Close()
}
