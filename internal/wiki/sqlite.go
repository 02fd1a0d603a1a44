package wiki

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Revision is a stored version of a page.
type Revision struct {
	ID        int64
	PageID    string
	Content   string
	Summary   string
	CreatedAt time.Time
}

// SQLiteStore keeps pages and their revision history in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS pages (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			summary TEXT,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS revisions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			page_id TEXT NOT NULL,
			content TEXT NOT NULL,
			summary TEXT,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_revisions_page ON revisions(page_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx, `SELECT content FROM pages WHERE id = ?`, id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read page %s: %w", id, err)
	}
	return content, nil
}

// Set upserts the page and appends a revision in one transaction.
func (s *SQLiteStore) Set(ctx context.Context, id, text, summary string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO pages (id, content, summary, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET content = excluded.content, summary = excluded.summary, updated_at = excluded.updated_at
	`, id, text, summary, now)
	if err != nil {
		return fmt.Errorf("failed to write page %s: %w", id, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO revisions (page_id, content, summary, created_at) VALUES (?, ?, ?, ?)
	`, id, text, summary, now)
	if err != nil {
		return fmt.Errorf("failed to record revision of %s: %w", id, err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to look up page %s: %w", id, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) List(ctx context.Context, namespace string) ([]string, error) {
	query := `SELECT id FROM pages ORDER BY id`
	var args []any
	if namespace != "" {
		query = `SELECT id FROM pages WHERE substr(id, 1, ?) = ? ORDER BY id`
		prefix := namespace + ":"
		args = []any{len(prefix), prefix}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Revisions returns the revisions of a page, newest first.
func (s *SQLiteStore) Revisions(ctx context.Context, id string) ([]Revision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, page_id, content, summary, created_at FROM revisions
		WHERE page_id = ? ORDER BY id DESC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list revisions of %s: %w", id, err)
	}
	defer rows.Close()

	var revs []Revision
	for rows.Next() {
		var rev Revision
		var summary sql.NullString
		if err := rows.Scan(&rev.ID, &rev.PageID, &rev.Content, &summary, &rev.CreatedAt); err != nil {
			return nil, err
		}
		rev.Summary = summary.String
		revs = append(revs, rev)
	}
	return revs, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
