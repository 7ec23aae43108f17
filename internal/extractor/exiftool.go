package extractor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/barasher/go-exiftool"
)

// exiftool reports the QuickTime container date as CreateDate and the
// per-track dates as TrackCreateDate and MediaCreateDate.
var exiftoolStreamFields = []string{"TrackCreateDate", "MediaCreateDate"}

// ExiftoolProber describes containers through a long-lived exiftool process.
// The process is started on first use; Close stops it.
type ExiftoolProber struct {
	binary string

	mu      sync.Mutex
	et      *exiftool.Exiftool
	initErr error
}

// NewExiftoolProber returns a prober using binary, or exiftool from PATH
// when binary is empty.
func NewExiftoolProber(binary string) *ExiftoolProber {
	return &ExiftoolProber{binary: binary}
}

func (p *ExiftoolProber) instance() (*exiftool.Exiftool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.et != nil || p.initErr != nil {
		return p.et, p.initErr
	}

	var opts []func(*exiftool.Exiftool) error
	if p.binary != "" {
		opts = append(opts, exiftool.SetExiftoolBinaryPath(p.binary))
	}
	p.et, p.initErr = exiftool.NewExiftool(opts...)
	if p.initErr != nil {
		p.initErr = fmt.Errorf("start exiftool: %w", p.initErr)
	}
	return p.et, p.initErr
}

// Probe implements Prober.
func (p *ExiftoolProber) Probe(ctx context.Context, filePath string) (*ProbeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	et, err := p.instance()
	if err != nil {
		return nil, err
	}

	files := et.ExtractMetadata(filePath)
	if len(files) == 0 {
		return nil, fmt.Errorf("exiftool returned no metadata for %s", filePath)
	}
	if files[0].Err != nil {
		return nil, fmt.Errorf("exiftool: %w", files[0].Err)
	}

	return probeResultFromFields(files[0].Fields), nil
}

// Close stops the exiftool process if it was started.
func (p *ExiftoolProber) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.et == nil {
		return nil
	}
	err := p.et.Close()
	p.et = nil
	return err
}

func probeResultFromFields(fields map[string]interface{}) *ProbeResult {
	result := &ProbeResult{FormatTags: map[string]string{}}

	if v := fieldString(fields, "CreateDate"); v != "" {
		result.FormatTags[CreationTimeTag] = v
	}
	for _, name := range exiftoolStreamFields {
		if v := fieldString(fields, name); v != "" {
			result.StreamTags = append(result.StreamTags, map[string]string{CreationTimeTag: v})
		}
	}
	return result
}

func fieldString(fields map[string]interface{}, name string) string {
	s, ok := fields[name].(string)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	// exiftool prints unset QuickTime dates as all zeros.
	if strings.HasPrefix(s, "0000:00:00") {
		return ""
	}
	return s
}
