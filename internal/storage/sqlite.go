package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"github.com/nnfan/chinaetfs-weibo/internal/model"
	"github.com/nnfan/chinaetfs-weibo/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// IsNew reports whether the given permalink has not been recorded yet.
func (s *SQLite) IsNew(ctx context.Context, link string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(id) FROM weibo WHERE link = ?`, link,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check link: %w", err)
	}
	return count == 0, nil
}

// Record inserts the seen-row for a delivered post. A link that was already
// recorded by a previous or concurrent run is left untouched.
func (s *SQLite) Record(ctx context.Context, post *model.Post) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO weibo (summary, link, created_at, stored_at) VALUES (?, ?, ?, ?)`,
		post.Title, post.Link, post.CreatedAt, now,
	)
	if err != nil {
		return fmt.Errorf("record post: %w", err)
	}
	return nil
}

// ListSeen returns up to limit stored records, newest first.
func (s *SQLite) ListSeen(ctx context.Context, limit int) ([]model.SeenRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT summary, link, created_at, stored_at FROM weibo ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.SeenRecord
	for rows.Next() {
		var r model.SeenRecord
		var stored string
		if err := rows.Scan(&r.Summary, &r.Link, &r.CreatedAt, &stored); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.StoredAt, _ = time.Parse(timeLayout, stored)
		records = append(records, r)
	}
	return records, rows.Err()
}
