package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jaragunde/picture-collection-tools/internal/catalog"
	"github.com/jaragunde/picture-collection-tools/internal/extractor"
	"github.com/jaragunde/picture-collection-tools/internal/logger"
	"github.com/jaragunde/picture-collection-tools/internal/mediatypes"
	"github.com/jaragunde/picture-collection-tools/internal/metrics"
	"github.com/jaragunde/picture-collection-tools/internal/scanner"
	"github.com/jaragunde/picture-collection-tools/internal/statistics"
)

// DefaultCommitEvery is the number of upserts between catalog commits.
const DefaultCommitEvery = 100

// ProgressFunc is called after each periodic commit with the running count
// of indexed files.
type ProgressFunc func(indexed int64)

// Engine brings a catalog in sync with the files under a root directory.
type Engine struct {
	store       *catalog.Store
	scanner     *scanner.FileScanner
	extractors  extractor.Set
	logger      *logrus.Logger
	commitEvery int
	progress    ProgressFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithCommitEvery sets the batch size between commits.
func WithCommitEvery(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.commitEvery = n
		}
	}
}

// WithProgress sets a hook called after each periodic commit.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) {
		e.progress = fn
	}
}

// NewEngine returns a new Engine.
func NewEngine(
	store *catalog.Store,
	fileScanner *scanner.FileScanner,
	extractors extractor.Set,
	logger *logrus.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		store:       store,
		scanner:     fileScanner,
		extractors:  extractors,
		logger:      logger,
		commitEvery: DefaultCommitEvery,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconcile walks root, upserts every media file and removes catalog entries
// whose files are gone. Per-file failures are recorded in the returned
// statistics; store failures and cancellation abort the run and discard
// only the uncommitted batch.
func (e *Engine) Reconcile(ctx context.Context, root string) (stats *statistics.Statistics, err error) {
	stats = statistics.NewStatistics()
	defer func() {
		stats.Finalize()
		recordRun(stats, err)
	}()

	root, err = CanonicalRoot(root)
	if err != nil {
		return stats, err
	}

	existing, err := e.store.Paths(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to load catalog: %w", err)
	}

	sess, err := e.store.Begin(ctx)
	if err != nil {
		return stats, err
	}
	defer func() {
		if closeErr := sess.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	found := make(map[string]struct{})
	walkErr := e.scanner.Walk(ctx, root, func(path string, kind mediatypes.Kind) error {
		found[path] = struct{}{}
		return e.indexFile(ctx, sess, stats, path, kind)
	})
	if walkErr != nil {
		return stats, fmt.Errorf("scan of %s aborted: %w", root, walkErr)
	}

	if err := e.commit(sess, stats); err != nil {
		return stats, err
	}
	e.logger.Infof("Done. Indexed %d pictures.", stats.Indexed())

	if err := e.prune(sess, stats, existing, found); err != nil {
		return stats, err
	}

	return stats, nil
}

// indexFile handles one media file. Only store errors are returned.
func (e *Engine) indexFile(ctx context.Context, sess *catalog.Session, stats *statistics.Statistics, path string, kind mediatypes.Kind) error {
	log := logger.WithFile(e.logger, path)

	stats.IncrementFilesFound()
	if kind == mediatypes.KindVideo {
		stats.IncrementVideosFound()
	} else {
		stats.IncrementImagesFound()
	}

	info, err := os.Stat(path)
	if err != nil {
		log.Warnf("Could not read size for %s: %v", path, err)
		stats.IncrementSizeErrors()
		stats.AddError(path, "stat", err.Error())
		metrics.FileFailuresTotal.WithLabelValues("stat").Inc()
		return nil
	}

	entry := catalog.Entry{Path: path, Size: info.Size()}
	if ext := e.extractors.For(kind); ext != nil {
		if date, ok := ext.Extract(ctx, path); ok {
			entry.DateTaken = date
		}
	}
	if !entry.HasDate() {
		stats.IncrementWithoutDate()
		metrics.MetadataMissingTotal.WithLabelValues(kind.String()).Inc()
	}

	if err := sess.Upsert(entry); err != nil {
		return err
	}
	stats.AddBytesIndexed(info.Size())
	metrics.FilesIndexedTotal.WithLabelValues(kind.String()).Inc()

	if n := stats.IncrementFilesIndexed(); n%int64(e.commitEvery) == 0 {
		e.logger.Infof("Indexed %d pictures...", n)
		if err := e.commit(sess, stats); err != nil {
			return err
		}
		if e.progress != nil {
			e.progress(n)
		}
	}
	return nil
}

// prune deletes entries for paths that were not seen during the walk.
func (e *Engine) prune(sess *catalog.Session, stats *statistics.Statistics, existing, found map[string]struct{}) error {
	var stale []string
	for path := range existing {
		if _, ok := found[path]; !ok {
			stale = append(stale, path)
		}
	}

	if len(stale) == 0 {
		e.logger.Info("No deleted files found.")
		return nil
	}

	e.logger.Infof("Found %d deleted files. Removing from database...", len(stale))
	for _, path := range stale {
		if err := sess.Delete(path); err != nil {
			return err
		}
	}
	if err := e.commit(sess, stats); err != nil {
		return err
	}

	stats.AddPruned(int64(len(stale)))
	metrics.FilesPrunedTotal.Add(float64(len(stale)))
	e.logger.Infof("Removed %d entries.", len(stale))
	return nil
}

func (e *Engine) commit(sess *catalog.Session, stats *statistics.Statistics) error {
	if err := sess.Commit(); err != nil {
		return err
	}
	stats.IncrementCommits()
	return nil
}

// CanonicalRoot returns the absolute, symlink-free form of root. Catalog
// keys are built under this form.
func CanonicalRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", root, err)
	}
	return resolved, nil
}

func recordRun(stats *statistics.Statistics, err error) {
	status := "success"
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = "canceled"
	case err != nil:
		status = "error"
	}
	metrics.ScanRunsTotal.WithLabelValues(status).Inc()
	metrics.ScanLastRunDuration.Set(stats.GetDuration().Seconds())
	metrics.ScanLastRunTimestamp.Set(float64(time.Now().Unix()))
}
