// Package memories provides the knowledge_base tool: a small sqlite-backed
// store of named memories the agent can remember, recall, search and forget.
package memories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no memory has the requested name.
var ErrNotFound = errors.New("memory not found")

// Entry is one stored memory.
type Entry struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Value      string    `json:"value"`
	Importance int       `json:"importance"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store manages memory persistence.
type Store struct {
	db *sql.DB
}

// Open creates a store at path. An empty path or ":memory:" keeps everything
// in memory for the lifetime of the store.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps an in-memory database shared and serializes writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			value TEXT NOT NULL,
			importance INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_memories_importance ON memories(importance DESC);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Remember creates or replaces the memory called name.
func (s *Store) Remember(ctx context.Context, name, value string, importance int) (*Entry, error) {
	now := time.Now().UTC()

	existing, err := s.Recall(ctx, name)
	switch {
	case errors.Is(err, ErrNotFound):
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("new id: %w", err)
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO memories (id, name, value, importance, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id.String(), name, value, importance, now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
		if err != nil {
			return nil, fmt.Errorf("insert: %w", err)
		}
		return &Entry{ID: id, Name: name, Value: value, Importance: importance, CreatedAt: now, UpdatedAt: now}, nil
	case err != nil:
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE memories SET value = ?, importance = ?, updated_at = ? WHERE name = ?
	`, value, importance, now.Format(time.RFC3339Nano), name)
	if err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}

	existing.Value = value
	existing.Importance = importance
	existing.UpdatedAt = now
	return existing, nil
}

// Recall returns the memory called name.
func (s *Store) Recall(ctx context.Context, name string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, value, importance, created_at, updated_at
		FROM memories WHERE name = ?
	`, name)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return e, nil
}

// Search returns memories whose name or value contains query, most
// important first. An empty query lists everything.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	pattern := "%" + escapeLike(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, value, importance, created_at, updated_at
		FROM memories
		WHERE name LIKE ? ESCAPE '\' OR value LIKE ? ESCAPE '\'
		ORDER BY importance DESC, updated_at DESC
		LIMIT ?
	`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Forget deletes the memory called name.
func (s *Store) Forget(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored memories.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		e                    Entry
		id                   string
		createdAt, updatedAt string
	)
	if err := row.Scan(&id, &e.Name, &e.Value, &e.Importance, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if e.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &e, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
