package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/jobfeed/internal/model"
	"github.com/amishk599/jobfeed/internal/tags"
)

// sqliteTimeLayout is fixed-width so text comparison orders like time.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS listings (
	id            INTEGER PRIMARY KEY,
	title         TEXT NOT NULL DEFAULT '',
	company       TEXT NOT NULL DEFAULT '',
	work_modality TEXT NOT NULL DEFAULT '',
	location      TEXT NOT NULL DEFAULT '',
	source        TEXT NOT NULL DEFAULT '',
	tags          TEXT NOT NULL DEFAULT '[]',
	url           TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_listings_created_at ON listings (created_at);
CREATE TABLE IF NOT EXISTS api_cache (
	query      TEXT NOT NULL,
	country    TEXT NOT NULL,
	response   TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (query, country)
);`

// SQLiteStore keeps listings and cached provider responses in one SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// listings and api_cache tables exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One writer at a time; also keeps transactions and reads on one connection.
	db.SetMaxOpenConns(1)

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sqlite schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Begin opens a unit of work for one listing.
func (s *SQLiteStore) Begin(ctx context.Context) (model.ListingTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning sqlite tx: %w", err)
	}
	return &sqliteTx{tx: tx}, nil
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Exists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(ctx, "SELECT 1 FROM listings WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking listing %d: %w", id, err)
	}
	return true, nil
}

func (t *sqliteTx) Insert(ctx context.Context, l model.Listing) error {
	tagsJSON, err := encodeTags(l.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags of listing %d: %w", l.ID, err)
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO listings (id, title, company, work_modality, location, source, tags, url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Title, l.Company, l.WorkModality, l.Location, l.Source, tagsJSON, l.URL,
		l.CreatedAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting listing %d: %w", l.ID, err)
	}
	return nil
}

func (t *sqliteTx) Commit(context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("committing sqlite tx: %w", err)
	}
	return nil
}

func (t *sqliteTx) Rollback(context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rolling back sqlite tx: %w", err)
	}
	return nil
}

// ListSince returns listings created at or after since, newest first.
func (s *SQLiteStore) ListSince(ctx context.Context, since time.Time) ([]model.Listing, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, company, work_modality, location, source, tags, url, created_at
		 FROM listings WHERE created_at >= ? ORDER BY created_at DESC, id DESC`,
		since.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("querying listings since %s: %w", since.Format(time.RFC3339), err)
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		var (
			l         model.Listing
			rawTags   string
			createdAt string
		)
		if err := rows.Scan(&l.ID, &l.Title, &l.Company, &l.WorkModality, &l.Location, &l.Source, &rawTags, &l.URL, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning listing: %w", err)
		}
		l.Tags = tags.Parse(tags.FromJSON(json.RawMessage(rawTags)))
		if l.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at of listing %d: %w", l.ID, err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating listings: %w", err)
	}
	return listings, nil
}

// RepairTags re-parses every stored tag list and rewrites the rows whose
// stored form is not already clean.
func (s *SQLiteStore) RepairTags(ctx context.Context, logger *slog.Logger) (RepairReport, error) {
	type row struct {
		id  int64
		raw string
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, tags FROM listings ORDER BY id")
	if err != nil {
		return RepairReport{}, fmt.Errorf("querying tags: %w", err)
	}
	var all []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.raw); err != nil {
			rows.Close()
			return RepairReport{}, fmt.Errorf("scanning tags: %w", err)
		}
		all = append(all, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return RepairReport{}, fmt.Errorf("iterating tags: %w", err)
	}

	var report RepairReport
	for _, r := range all {
		report.Scanned++
		cleaned, changed := tags.Repair(tags.FromJSON(json.RawMessage(r.raw)))
		if !changed {
			continue
		}
		encoded, err := encodeTags(cleaned)
		if err != nil {
			return report, fmt.Errorf("encoding tags of listing %d: %w", r.id, err)
		}
		if _, err := s.db.ExecContext(ctx, "UPDATE listings SET tags = ? WHERE id = ?", encoded, r.id); err != nil {
			return report, fmt.Errorf("updating tags of listing %d: %w", r.id, err)
		}
		logger.Debug("repaired tags", "id", r.id, "before", r.raw, "after", encoded)
		report.Repaired++
	}
	return report, nil
}

// LoadEntry returns the cached response for (query, country), or nil.
func (s *SQLiteStore) LoadEntry(ctx context.Context, query, country string) (*model.CacheEntry, error) {
	var response, createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT response, created_at FROM api_cache WHERE query = ? AND country = ?",
		query, country,
	).Scan(&response, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading api_cache: %w", err)
	}

	t, err := time.Parse(sqliteTimeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing api_cache created_at: %w", err)
	}
	return &model.CacheEntry{
		Query:     query,
		Country:   country,
		Response:  json.RawMessage(response),
		CreatedAt: t,
	}, nil
}

// SaveEntry inserts or refreshes the cached response in place.
func (s *SQLiteStore) SaveEntry(ctx context.Context, e model.CacheEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_cache (query, country, response, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (query, country) DO UPDATE SET response = excluded.response, created_at = excluded.created_at`,
		e.Query, e.Country, string(e.Response), e.CreatedAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("writing api_cache: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func encodeTags(t []string) (string, error) {
	if t == nil {
		t = []string{}
	}
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
