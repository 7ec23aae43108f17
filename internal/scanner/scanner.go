package scanner

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/jaragunde/picture-collection-tools/internal/logger"
	"github.com/jaragunde/picture-collection-tools/internal/mediatypes"
)

// VisitFunc is called for every recognised media file. Returning an error
// stops the walk and the error is returned from Walk.
type VisitFunc func(path string, kind mediatypes.Kind) error

// FileScanner walks a directory tree and reports media files.
type FileScanner struct {
	classifier *mediatypes.Classifier
	logger     *logrus.Logger
}

// NewFileScanner returns a FileScanner using the given classifier.
func NewFileScanner(classifier *mediatypes.Classifier, logger *logrus.Logger) *FileScanner {
	return &FileScanner{
		classifier: classifier,
		logger:     logger,
	}
}

// Walk visits root recursively in lexical order. Directories that cannot be
// read are logged and skipped. Symlinked directories are not followed.
func (s *FileScanner) Walk(ctx context.Context, root string, visit VisitFunc) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logger.WithFile(s.logger, path).Warnf("Error accessing path: %v", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if d.IsDir() {
			return nil
		}

		kind := s.classifier.Classify(d.Name())
		if kind == mediatypes.KindIgnored {
			return nil
		}

		return visit(path, kind)
	})
}
