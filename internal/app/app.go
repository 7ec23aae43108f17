// Package app wires configuration, catalog, extractors and aggregation into
// the index and series operations shared by the CLI and the web server.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/jaragunde/picture-collection-tools/internal/aggregate"
	"github.com/jaragunde/picture-collection-tools/internal/catalog"
	"github.com/jaragunde/picture-collection-tools/internal/config"
	"github.com/jaragunde/picture-collection-tools/internal/extractor"
	"github.com/jaragunde/picture-collection-tools/internal/logger"
	"github.com/jaragunde/picture-collection-tools/internal/metrics"
	"github.com/jaragunde/picture-collection-tools/internal/reconcile"
	"github.com/jaragunde/picture-collection-tools/internal/scanner"
	"github.com/jaragunde/picture-collection-tools/internal/statistics"
)

// NewProber returns the video prober selected by cfg.
func NewProber(cfg *config.Config) extractor.Prober {
	if cfg.Video.Prober == "exiftool" {
		return extractor.NewExiftoolProber(cfg.Video.ExiftoolPath)
	}
	return extractor.NewFFprobeProber(cfg.Video.FFprobePath)
}

// NewExtractors builds the extractor set for cfg. The returned function
// releases the prober.
func NewExtractors(cfg *config.Config, log *logrus.Logger) (extractor.Set, func() error) {
	prober := NewProber(cfg)
	release := func() error {
		if c, ok := prober.(io.Closer); ok {
			return c.Close()
		}
		return nil
	}
	return extractor.Set{
		Image: extractor.NewEXIFExtractor(log),
		Video: extractor.NewVideoExtractor(prober, log),
	}, release
}

// Index reconciles the catalog stored at root with the files below it,
// creating the catalog on first use. root must be an existing directory.
func Index(ctx context.Context, cfg *config.Config, log *logrus.Logger, root string, progress reconcile.ProgressFunc) (*statistics.Statistics, error) {
	canonical, err := reconcile.CanonicalRoot(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrValidation, err)
	}

	dbPath := catalog.PathFor(canonical)
	logger.WithOperation(log, "index").Infof("Database will be saved to: %s", dbPath)

	store, err := catalog.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	extractors, release := NewExtractors(cfg, log)
	defer func() {
		if err := release(); err != nil {
			log.WithError(err).Warn("Failed to stop video prober")
		}
	}()

	engine := reconcile.NewEngine(
		store,
		scanner.NewFileScanner(cfg.Classifier(), log),
		extractors,
		log,
		reconcile.WithCommitEvery(cfg.Catalog.CommitEvery),
		reconcile.WithProgress(progress),
	)
	stats, err := engine.Reconcile(ctx, canonical)
	if err != nil {
		return stats, err
	}

	entries, err := store.Count(ctx)
	if err != nil {
		return stats, err
	}
	stats.SetCatalogEntries(entries)
	return stats, nil
}

// LoadSeries reads the catalog at root and aggregates it. The catalog must
// already exist. opts.Root is set to the canonical root.
func LoadSeries(ctx context.Context, root string, opts aggregate.Options) (*aggregate.Series, error) {
	canonical, err := reconcile.CanonicalRoot(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrValidation, err)
	}

	store, err := catalog.OpenExisting(ctx, catalog.PathFor(canonical))
	if err != nil {
		return nil, err
	}
	defer store.Close()

	rows, err := store.Rows(ctx)
	if err != nil {
		return nil, err
	}

	opts.Root = canonical
	series := aggregate.Aggregate(rows, opts)
	metrics.SeriesRequestsTotal.WithLabelValues(string(series.GroupBy)).Inc()
	return series, nil
}
