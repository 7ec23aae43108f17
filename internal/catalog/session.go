package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jaragunde/picture-collection-tools/internal/metrics"
)

// Session is a write scope on the catalog. Writes accumulate in one
// transaction until Commit, which makes them durable and starts the next
// transaction. Close discards whatever has not been committed.
type Session struct {
	store   *Store
	ctx     context.Context
	tx      *sql.Tx
	pending int
	closed  bool
}

// Begin opens a write session.
func (s *Store) Begin(ctx context.Context) (*Session, error) {
	sess := &Session{store: s, ctx: ctx}
	if err := sess.begin(); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Session) begin() error {
	tx, err := s.store.db.BeginTx(s.ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", ErrStore, err)
	}
	s.tx = tx
	s.pending = 0
	return nil
}

// Pending returns the number of writes since the last commit.
func (s *Session) Pending() int {
	return s.pending
}

// Upsert inserts the entry or replaces size and date of the existing entry
// with the same path.
func (s *Session) Upsert(e Entry) error {
	if s.closed {
		return fmt.Errorf("%w: session closed", ErrStore)
	}
	date := sql.NullString{String: e.DateTaken, Valid: e.DateTaken != ""}
	_, err := s.tx.ExecContext(s.ctx, `
		INSERT INTO pictures (file_path, file_size, date_taken)
		VALUES (?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			file_size = excluded.file_size,
			date_taken = excluded.date_taken`,
		e.Path, e.Size, date,
	)
	if err != nil {
		return fmt.Errorf("%w: upsert %s: %w", ErrStore, e.Path, err)
	}
	s.pending++
	return nil
}

// Delete removes the entry for path. Deleting a missing path is not an error.
func (s *Session) Delete(path string) error {
	if s.closed {
		return fmt.Errorf("%w: session closed", ErrStore)
	}
	if _, err := s.tx.ExecContext(s.ctx, "DELETE FROM pictures WHERE file_path = ?", path); err != nil {
		return fmt.Errorf("%w: delete %s: %w", ErrStore, path, err)
	}
	s.pending++
	return nil
}

// Commit makes all pending writes durable and opens a fresh transaction.
func (s *Session) Commit() error {
	if s.closed {
		return fmt.Errorf("%w: session closed", ErrStore)
	}
	if err := s.tx.Commit(); err != nil {
		s.closed = true
		metrics.CatalogCommitsTotal.WithLabelValues("rollback").Inc()
		return fmt.Errorf("%w: commit: %w", ErrStore, err)
	}
	metrics.CatalogCommitsTotal.WithLabelValues("commit").Inc()
	if err := s.begin(); err != nil {
		s.closed = true
		return err
	}
	return nil
}

// Close rolls back uncommitted writes and ends the session. It is safe to
// call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	if s.pending > 0 {
		metrics.CatalogCommitsTotal.WithLabelValues("rollback").Inc()
	}
	if err != nil {
		return fmt.Errorf("%w: rollback: %w", ErrStore, err)
	}
	return nil
}
