// Package catalog persists the media catalog of a directory tree in SQLite.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"github.com/jaragunde/picture-collection-tools/internal/metrics"
)

// FileName is the conventional name of the catalog file at a scanned root.
const FileName = ".collection.db"

var (
	// ErrStore marks failures to open, read or commit the catalog.
	ErrStore = errors.New("catalog store error")
	// ErrCatalogNotFound is returned when a reader opens a missing catalog.
	ErrCatalogNotFound = errors.New("catalog not found")
)

const schema = `
CREATE TABLE IF NOT EXISTS pictures (
	file_path TEXT PRIMARY KEY,
	file_size INTEGER,
	date_taken TEXT
)`

// Entry is one indexed file.
type Entry struct {
	Path      string
	Size      int64
	DateTaken string // raw extractor output, "" when unknown
}

// HasDate reports whether the entry carries a capture date.
func (e Entry) HasDate() bool {
	return e.DateTaken != ""
}

// Row is the projection the analytics side reads.
type Row struct {
	DateTaken string
	Size      int64
	Path      string
}

// Store is a handle on one catalog file.
type Store struct {
	db   *sql.DB
	path string
}

// PathFor returns the catalog location for a scanned root.
func PathFor(root string) string {
	return filepath.Join(root, FileName)
}

// Open opens the catalog at path, creating the file and schema when absent.
func Open(ctx context.Context, path string) (*Store, error) {
	return open(ctx, path)
}

// OpenExisting opens a catalog that must already exist.
func OpenExisting(ctx context.Context, path string) (*Store, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCatalogNotFound, path)
		}
		return nil, fmt.Errorf("%w: stat %s: %w", ErrStore, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrCatalogNotFound, path)
	}
	return open(ctx, path)
}

func open(ctx context.Context, path string) (*Store, error) {
	// Single connection: an open Session holds it until Commit or Close, so
	// reads must not be issued while a Session is open.
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrStore, path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: connect %s: %w", ErrStore, path, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: initialize schema: %w", ErrStore, err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the catalog file location.
func (s *Store) Path() string {
	return s.path
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Paths loads every stored key.
func (s *Store) Paths(ctx context.Context) (_ map[string]struct{}, err error) {
	start := time.Now()
	defer func() { recordQuery("load_paths", start, err) }()

	rows, err := s.db.QueryContext(ctx, "SELECT file_path FROM pictures")
	if err != nil {
		return nil, fmt.Errorf("%w: load paths: %w", ErrStore, err)
	}
	defer rows.Close()

	paths := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("%w: scan path: %w", ErrStore, err)
		}
		paths[p] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: load paths: %w", ErrStore, err)
	}
	return paths, nil
}

// Rows returns the dated rows ordered by path.
func (s *Store) Rows(ctx context.Context) (_ []Row, err error) {
	start := time.Now()
	defer func() { recordQuery("load_rows", start, err) }()

	rows, err := s.db.QueryContext(ctx, `
		SELECT date_taken, file_size, file_path
		FROM pictures
		WHERE date_taken IS NOT NULL
		ORDER BY file_path`)
	if err != nil {
		return nil, fmt.Errorf("%w: load rows: %w", ErrStore, err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var r Row
		var size sql.NullInt64
		if err := rows.Scan(&r.DateTaken, &size, &r.Path); err != nil {
			return nil, fmt.Errorf("%w: scan row: %w", ErrStore, err)
		}
		r.Size = size.Int64
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: load rows: %w", ErrStore, err)
	}
	return result, nil
}

// Entries returns every entry ordered by path.
func (s *Store) Entries(ctx context.Context) (_ []Entry, err error) {
	start := time.Now()
	defer func() { recordQuery("load_entries", start, err) }()

	rows, err := s.db.QueryContext(ctx, "SELECT file_path, file_size, date_taken FROM pictures ORDER BY file_path")
	if err != nil {
		return nil, fmt.Errorf("%w: load entries: %w", ErrStore, err)
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		var e Entry
		var size sql.NullInt64
		var date sql.NullString
		if err := rows.Scan(&e.Path, &size, &date); err != nil {
			return nil, fmt.Errorf("%w: scan entry: %w", ErrStore, err)
		}
		e.Size = size.Int64
		e.DateTaken = date.String
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: load entries: %w", ErrStore, err)
	}
	return result, nil
}

// Count returns the number of entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pictures").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %w", ErrStore, err)
	}
	return n, nil
}

// recordQuery records catalog query metrics
func recordQuery(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.CatalogQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.CatalogQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
