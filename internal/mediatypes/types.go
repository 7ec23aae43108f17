package mediatypes

import (
	"path/filepath"
	"strings"
)

// Kind is the media class a file is indexed as.
type Kind int

const (
	// KindIgnored marks files that are not part of the catalog.
	KindIgnored Kind = iota
	// KindImage marks still images read through their EXIF dictionary.
	KindImage
	// KindVideo marks videos read through an external prober.
	KindVideo
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return "ignored"
	}
}

// DefaultImageExtensions lists the image extensions indexed out of the box.
var DefaultImageExtensions = []string{".jpg", ".jpeg", ".png", ".tiff", ".bmp", ".gif", ".webp"}

// DefaultVideoExtensions lists the video extensions indexed out of the box.
var DefaultVideoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".3gp"}

// Classifier maps file extensions to a Kind.
type Classifier struct {
	images map[string]bool
	videos map[string]bool
}

// NewClassifier builds a Classifier from extension lists. Extensions are
// matched case-insensitively and may be given with or without the dot.
func NewClassifier(imageExts, videoExts []string) *Classifier {
	c := &Classifier{
		images: make(map[string]bool, len(imageExts)),
		videos: make(map[string]bool, len(videoExts)),
	}
	for _, ext := range NormalizeExtensions(imageExts) {
		c.images[ext] = true
	}
	for _, ext := range NormalizeExtensions(videoExts) {
		c.videos[ext] = true
	}
	return c
}

// DefaultClassifier returns a Classifier over the default extension sets.
func DefaultClassifier() *Classifier {
	return NewClassifier(DefaultImageExtensions, DefaultVideoExtensions)
}

// Classify returns the Kind for the given path based on its extension.
func (c *Classifier) Classify(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return KindIgnored
	}
	if c.images[ext] {
		return KindImage
	}
	if c.videos[ext] {
		return KindVideo
	}
	return KindIgnored
}

// NormalizeExtensions lower-cases extensions and makes sure each one starts
// with a dot. Empty entries are dropped.
func NormalizeExtensions(extensions []string) []string {
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	return normalized
}
