package extractor

import (
	"context"

	"github.com/jaragunde/picture-collection-tools/internal/mediatypes"
)

// Extractor resolves a best-effort capture date for one file. Implementations
// never fail: any problem reading the file yields ok == false.
type Extractor interface {
	Extract(ctx context.Context, filePath string) (date string, ok bool)
	Kind() mediatypes.Kind
}

// Prober describes a media container. It is the only place an external
// process is involved in date extraction.
type Prober interface {
	Probe(ctx context.Context, filePath string) (*ProbeResult, error)
}

// ProbeResult holds the tags a prober found at container and stream level.
type ProbeResult struct {
	FormatTags map[string]string
	StreamTags []map[string]string
}

// CreationTimeTag is the tag holding a container or stream creation time.
const CreationTimeTag = "creation_time"

// CreationTime returns the container creation time, falling back to the
// first stream that exposes one.
func (r *ProbeResult) CreationTime() (string, bool) {
	if r == nil {
		return "", false
	}
	if v := r.FormatTags[CreationTimeTag]; v != "" {
		return v, true
	}
	for _, tags := range r.StreamTags {
		if v := tags[CreationTimeTag]; v != "" {
			return v, true
		}
	}
	return "", false
}

// Set selects the extractor for a classified file.
type Set struct {
	Image Extractor
	Video Extractor
}

// For returns the extractor for kind, or nil for ignored files.
func (s Set) For(kind mediatypes.Kind) Extractor {
	switch kind {
	case mediatypes.KindImage:
		return s.Image
	case mediatypes.KindVideo:
		return s.Video
	default:
		return nil
	}
}
