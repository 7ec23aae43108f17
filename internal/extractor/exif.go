package extractor

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/sirupsen/logrus"

	"github.com/jaragunde/picture-collection-tools/internal/logger"
	"github.com/jaragunde/picture-collection-tools/internal/mediatypes"
)

// EXIFExtractor reads capture dates from an image's EXIF dictionary.
type EXIFExtractor struct {
	logger *logrus.Logger
}

// NewEXIFExtractor returns a new EXIFExtractor.
func NewEXIFExtractor(logger *logrus.Logger) *EXIFExtractor {
	return &EXIFExtractor{logger: logger}
}

// Kind implements Extractor.
func (e *EXIFExtractor) Kind() mediatypes.Kind {
	return mediatypes.KindImage
}

// Extract returns DateTimeOriginal when present, otherwise DateTime. The
// value is not parsed, only trimmed of surrounding whitespace.
func (e *EXIFExtractor) Extract(_ context.Context, filePath string) (string, bool) {
	date, err := e.readTags(filePath)
	if err != nil {
		logger.WithFile(e.logger, filePath).Debugf("No EXIF date: %v", err)
		return "", false
	}
	return date, true
}

func (e *EXIFExtractor) readTags(filePath string) (date string, err error) {
	// goexif panics on some malformed dictionaries.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decode EXIF: %v", r)
		}
	}()

	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	x, err := exif.Decode(file)
	if err != nil {
		return "", fmt.Errorf("failed to decode EXIF: %w", err)
	}

	for _, name := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTime} {
		tag, err := x.Get(name)
		if err != nil {
			continue
		}
		value, err := tag.StringVal()
		if err != nil {
			continue
		}
		if value = strings.TrimSpace(strings.TrimRight(value, "\x00")); value != "" {
			logger.WithFile(e.logger, filePath).Debugf("Extracted %s from EXIF: %s", name, value)
			return value, nil
		}
	}

	return "", fmt.Errorf("no DateTimeOriginal or DateTime tag")
}
