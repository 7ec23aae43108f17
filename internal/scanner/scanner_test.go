package scanner

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

	"github.com/jaragunde/picture-collection-tools/internal/mediatypes"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestWalkReportsMediaOnly(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.jpg"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, "trip", "b.PNG"))
	touch(t, filepath.Join(root, "trip", "clip.MOV"))
	touch(t, filepath.Join(root, "trip", "deep", "c.gif"))
	touch(t, filepath.Join(root, ".collection.db"))

	s := NewFileScanner(mediatypes.DefaultClassifier(), quietLogger())

	got := map[string]mediatypes.Kind{}
	err := s.Walk(context.Background(), root, func(path string, kind mediatypes.Kind) error {
		rel, err := filepath.Rel(root, path)
		require.NoError(t, err)
		got[filepath.ToSlash(rel)] = kind
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]mediatypes.Kind{
		"a.jpg":           mediatypes.KindImage,
		"trip/b.PNG":      mediatypes.KindImage,
		"trip/clip.MOV":   mediatypes.KindVideo,
		"trip/deep/c.gif": mediatypes.KindImage,
	}, got)
}

func TestWalkMissingRoot(t *testing.T) {
	s := NewFileScanner(mediatypes.DefaultClassifier(), quietLogger())
	err := s.Walk(context.Background(), filepath.Join(t.TempDir(), "nope"), func(string, mediatypes.Kind) error {
		return nil
	})
	assert.Error(t, err)
}

func TestWalkStopsOnVisitError(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.jpg"))
	touch(t, filepath.Join(root, "b.jpg"))

	boom := errors.New("boom")
	calls := 0
	s := NewFileScanner(mediatypes.DefaultClassifier(), quietLogger())
	err := s.Walk(context.Background(), root, func(string, mediatypes.Kind) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestWalkHonoursCancellation(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.jpg"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewFileScanner(mediatypes.DefaultClassifier(), quietLogger())
	err := s.Walk(ctx, root, func(string, mediatypes.Kind) error {
		t.Fatal("visit must not be called after cancellation")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
