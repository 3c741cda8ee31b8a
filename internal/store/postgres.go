package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amishk599/jobfeed/internal/model"
	"github.com/amishk599/jobfeed/internal/tags"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS listings (
	id            INTEGER PRIMARY KEY,
	title         TEXT NOT NULL DEFAULT '',
	company       TEXT NOT NULL DEFAULT '',
	work_modality TEXT NOT NULL DEFAULT '',
	location      TEXT NOT NULL DEFAULT '',
	source        TEXT NOT NULL DEFAULT '',
	tags          TEXT[] NOT NULL DEFAULT '{}',
	url           TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS listings_created_at_idx ON listings (created_at DESC);
CREATE TABLE IF NOT EXISTS api_cache (
	query      TEXT NOT NULL,
	country    TEXT NOT NULL,
	response   JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (query, country)
);`

// PostgresStore keeps listings and cached provider responses in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn, verifies the connection and ensures the
// schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating postgres schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Begin opens a unit of work for one listing.
func (s *PostgresStore) Begin(ctx context.Context) (model.ListingTx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning postgres tx: %w", err)
	}
	return &postgresTx{tx: tx}, nil
}

type postgresTx struct {
	tx pgx.Tx
}

func (t *postgresTx) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := t.tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM listings WHERE id = $1)", id).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking listing %d: %w", id, err)
	}
	return exists, nil
}

func (t *postgresTx) Insert(ctx context.Context, l model.Listing) error {
	lt := l.Tags
	if lt == nil {
		lt = []string{}
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO listings (id, title, company, work_modality, location, source, tags, url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		l.ID, l.Title, l.Company, l.WorkModality, l.Location, l.Source, lt, l.URL, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting listing %d: %w", l.ID, err)
	}
	return nil
}

func (t *postgresTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing postgres tx: %w", err)
	}
	return nil
}

func (t *postgresTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rolling back postgres tx: %w", err)
	}
	return nil
}

// ListSince returns listings created at or after since, newest first.
func (s *PostgresStore) ListSince(ctx context.Context, since time.Time) ([]model.Listing, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, company, work_modality, location, source, tags, url, created_at
		 FROM listings WHERE created_at >= $1 ORDER BY created_at DESC, id DESC`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("querying listings since %s: %w", since.Format(time.RFC3339), err)
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		var (
			l   model.Listing
			raw []string
		)
		if err := rows.Scan(&l.ID, &l.Title, &l.Company, &l.WorkModality, &l.Location, &l.Source, &raw, &l.URL, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning listing: %w", err)
		}
		l.Tags = tags.Parse(tags.List(raw))
		l.CreatedAt = l.CreatedAt.UTC()
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating listings: %w", err)
	}
	return listings, nil
}

// RepairTags re-parses every stored tag array and rewrites the rows whose
// stored form is not already clean.
func (s *PostgresStore) RepairTags(ctx context.Context, logger *slog.Logger) (RepairReport, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, tags FROM listings ORDER BY id")
	if err != nil {
		return RepairReport{}, fmt.Errorf("querying tags: %w", err)
	}
	type row struct {
		id  int64
		raw []string
	}
	all, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (row, error) {
		var out row
		err := r.Scan(&out.id, &out.raw)
		return out, err
	})
	if err != nil {
		return RepairReport{}, fmt.Errorf("scanning tags: %w", err)
	}

	var report RepairReport
	for _, r := range all {
		report.Scanned++
		cleaned, changed := tags.Repair(tags.List(r.raw))
		if !changed {
			continue
		}
		if _, err := s.pool.Exec(ctx, "UPDATE listings SET tags = $1 WHERE id = $2", cleaned, r.id); err != nil {
			return report, fmt.Errorf("updating tags of listing %d: %w", r.id, err)
		}
		logger.Debug("repaired tags", "id", r.id, "before", r.raw, "after", cleaned)
		report.Repaired++
	}
	return report, nil
}

// LoadEntry returns the cached response for (query, country), or nil.
func (s *PostgresStore) LoadEntry(ctx context.Context, query, country string) (*model.CacheEntry, error) {
	e := model.CacheEntry{Query: query, Country: country}
	var response []byte
	err := s.pool.QueryRow(ctx,
		"SELECT response, created_at FROM api_cache WHERE query = $1 AND country = $2",
		query, country,
	).Scan(&response, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading api_cache: %w", err)
	}
	e.Response = json.RawMessage(response)
	return &e, nil
}

// SaveEntry inserts or refreshes the cached response in place.
func (s *PostgresStore) SaveEntry(ctx context.Context, e model.CacheEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_cache (query, country, response, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (query, country) DO UPDATE SET response = EXCLUDED.response, created_at = EXCLUDED.created_at`,
		e.Query, e.Country, []byte(e.Response), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("writing api_cache: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
