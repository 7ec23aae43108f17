package extractor

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/jaragunde/picture-collection-tools/internal/logger"
	"github.com/jaragunde/picture-collection-tools/internal/mediatypes"
)

// VideoExtractor reads creation times through a Prober.
type VideoExtractor struct {
	prober Prober
	logger *logrus.Logger
}

// NewVideoExtractor returns a VideoExtractor backed by prober.
func NewVideoExtractor(prober Prober, logger *logrus.Logger) *VideoExtractor {
	return &VideoExtractor{
		prober: prober,
		logger: logger,
	}
}

// Kind implements Extractor.
func (v *VideoExtractor) Kind() mediatypes.Kind {
	return mediatypes.KindVideo
}

// Extract returns the container creation time, or the first stream creation
// time when the container has none.
func (v *VideoExtractor) Extract(ctx context.Context, filePath string) (string, bool) {
	log := logger.WithFile(v.logger, filePath)

	result, err := v.prober.Probe(ctx, filePath)
	if err != nil {
		log.Debugf("Probe failed: %v", err)
		return "", false
	}

	date, ok := result.CreationTime()
	if !ok {
		log.Debug("No creation_time tag in container or streams")
		return "", false
	}

	log.Debugf("Extracted creation_time: %s", date)
	return date, true
}
