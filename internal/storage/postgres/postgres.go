package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/MikhailRaia/bookmark-manager/internal/model"
	"github.com/MikhailRaia/bookmark-manager/internal/storage"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4/pgxpool"
)

type Storage struct {
	pool *pgxpool.Pool
}

func NewStorage(ctx context.Context, dsn string) (*Storage, error) {
	if dsn == "" {
		return nil, errors.New("database connection string is empty")
	}

	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	s := &Storage{
		pool: pool,
	}

	if err := s.createTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *Storage) createTable(ctx context.Context) error {
	createTableQuery := `
		CREATE TABLE IF NOT EXISTS bookmarks (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			title TEXT NOT NULL CHECK (title <> ''),
			url TEXT NOT NULL CHECK (url <> ''),
			user_id TEXT NOT NULL CHECK (user_id <> ''),
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);
	`

	if _, err := s.pool.Exec(ctx, createTableQuery); err != nil {
		return err
	}

	// list-by-owner is the only read path
	createIndexQuery := `
		CREATE INDEX IF NOT EXISTS idx_bookmarks_user_created ON bookmarks(user_id, created_at DESC);
	`

	_, err := s.pool.Exec(ctx, createIndexQuery)
	return err
}

// ListByOwner returns the owner's bookmarks ordered by created_at descending.
func (s *Storage) ListByOwner(ctx context.Context, owner string) ([]model.Bookmark, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, title, url, user_id, created_at
		   FROM bookmarks
		  WHERE user_id = $1
		  ORDER BY created_at DESC, id`, owner)
	if err != nil {
		return nil, fmt.Errorf("error querying bookmarks: %w", err)
	}
	defer rows.Close()

	result := make([]model.Bookmark, 0)
	for rows.Next() {
		var b model.Bookmark
		if err := rows.Scan(&b.ID, &b.Title, &b.URL, &b.Owner, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning bookmark: %w", err)
		}
		result = append(result, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookmarks: %w", err)
	}

	return result, nil
}

// Insert stores a bookmark and returns the row as written.
func (s *Storage) Insert(ctx context.Context, b model.NewBookmark) (model.Bookmark, error) {
	if !b.Complete() {
		return model.Bookmark{}, storage.ErrInvalidBookmark
	}

	var stored model.Bookmark
	err := s.pool.QueryRow(ctx,
		`INSERT INTO bookmarks (title, url, user_id)
		 VALUES ($1, $2, $3)
		 RETURNING id::text, title, url, user_id, created_at`,
		b.Title, b.URL, b.Owner,
	).Scan(&stored.ID, &stored.Title, &stored.URL, &stored.Owner, &stored.CreatedAt)
	if err != nil {
		return model.Bookmark{}, classifyInsertError(err)
	}

	return stored, nil
}

// classifyInsertError maps constraint violations to ErrInvalidBookmark.
func classifyInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) &&
		(pgErr.Code == pgerrcode.CheckViolation || pgErr.Code == pgerrcode.NotNullViolation) {
		return fmt.Errorf("%w: %s", storage.ErrInvalidBookmark, pgErr.ConstraintName)
	}
	return fmt.Errorf("error inserting bookmark: %w", err)
}

// Delete removes the bookmark when it belongs to owner.
func (s *Storage) Delete(ctx context.Context, id, owner string) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM bookmarks WHERE id::text = $1 AND user_id = $2", id, owner)
	if err != nil {
		return fmt.Errorf("error deleting bookmark: %w", err)
	}
	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
