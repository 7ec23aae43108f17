package app

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaragunde/picture-collection-tools/internal/aggregate"
	"github.com/jaragunde/picture-collection-tools/internal/catalog"
	"github.com/jaragunde/picture-collection-tools/internal/config"
	"github.com/jaragunde/picture-collection-tools/internal/extractor"
	"github.com/jaragunde/picture-collection-tools/internal/mediatypes"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestNewProberFollowsConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.IsType(t, &extractor.FFprobeProber{}, NewProber(cfg))

	cfg.Video.Prober = "exiftool"
	assert.IsType(t, &extractor.ExiftoolProber{}, NewProber(cfg))
}

func TestNewExtractors(t *testing.T) {
	set, release := NewExtractors(config.DefaultConfig(), quietLogger())
	defer release()

	assert.Equal(t, mediatypes.KindImage, set.For(mediatypes.KindImage).Kind())
	assert.Equal(t, mediatypes.KindVideo, set.For(mediatypes.KindVideo).Kind())
	assert.NoError(t, release())
}

func TestIndexThenLoadSeries(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "trip"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "trip", "a.jpg"), make([]byte, 1024), 0o644))

	var progress []int64
	cfg := config.DefaultConfig()
	cfg.Catalog.CommitEvery = 1
	stats, err := Index(context.Background(), cfg, quietLogger(), root, func(n int64) {
		progress = append(progress, n)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Indexed())
	assert.Equal(t, int64(1), stats.CatalogEntries)
	assert.Equal(t, []int64{1}, progress)

	// The EXIF-less file has no date, so it is left out of the series.
	series, err := LoadSeries(context.Background(), root, aggregate.Options{SplitByDir: true})
	require.NoError(t, err)
	assert.True(t, series.Empty())

	canonical, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	store, err := catalog.Open(context.Background(), catalog.PathFor(canonical))
	require.NoError(t, err)
	sess, err := store.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, sess.Upsert(catalog.Entry{
		Path:      filepath.Join(canonical, "trip", "a.jpg"),
		Size:      2 * 1024 * 1024,
		DateTaken: "2024:03:01 08:00:00",
	}))
	require.NoError(t, sess.Commit())
	require.NoError(t, sess.Close())
	require.NoError(t, store.Close())

	series, err = LoadSeries(context.Background(), root, aggregate.Options{SplitByDir: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03"}, series.Keys)
	assert.Equal(t, []string{"trip"}, series.Groups)
	assert.Equal(t, []float64{2.0}, series.Periodic["trip"])
}

func TestIndexMissingRoot(t *testing.T) {
	_, err := Index(context.Background(), config.DefaultConfig(), quietLogger(), filepath.Join(t.TempDir(), "nope"), nil)
	assert.True(t, errors.Is(err, config.ErrValidation))
}

func TestLoadSeriesWithoutCatalog(t *testing.T) {
	root := t.TempDir()
	_, err := LoadSeries(context.Background(), root, aggregate.Options{})
	assert.True(t, errors.Is(err, catalog.ErrCatalogNotFound))

	_, statErr := os.Stat(filepath.Join(root, catalog.FileName))
	assert.True(t, os.IsNotExist(statErr))
}
