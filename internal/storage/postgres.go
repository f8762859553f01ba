// Package storage is the append-only persistence gateway for completed
// analyses.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/newslens/newslens/internal/conf"
	"github.com/newslens/newslens/pkg/logger"
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Storage wraps the Postgres connection. Rows are inserted once and never
// updated or deleted.
type Storage struct {
	db *sql.DB
}

// New opens the database, bootstraps the schema, and returns the storage
// with its cleanup function.
func New(cfg conf.DBConfig) (*Storage, func(), error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS results (
			id SERIAL PRIMARY KEY,
			url TEXT NOT NULL,
			publication TEXT,
			result JSONB NOT NULL,
			created_at TIMESTAMPTZ DEFAULT now()
		)
	`); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("init results table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS results_url_idx ON results (url)`); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("init results index: %w", err)
	}

	cleanup := func() {
		logger.Log.Info("closing storage")
		db.Close()
	}
	return &Storage{db: db}, cleanup, nil
}

// InsertResult appends one completed analysis. Repeated submissions of the
// same URL produce independent rows.
func (s *Storage) InsertResult(ctx context.Context, url, publication string, result []byte) error {
	query, args, err := qb.Insert("results").
		Columns("url", "publication", "result").
		Values(url, publication, result).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// ResultsForURL returns every persisted result blob for url in insertion
// order.
func (s *Storage) ResultsForURL(ctx context.Context, url string) ([][]byte, error) {
	query, args, err := qb.Select("result").
		From("results").
		Where(sq.Eq{"url": url}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var blobs [][]byte
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		blobs = append(blobs, blob)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return blobs, nil
}
