package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

var (
	formatTagsPath = jp.MustParseString("$.format.tags")
	streamsPath    = jp.MustParseString("$.streams")
)

// FFprobeProber describes containers with ffprobe's JSON output.
type FFprobeProber struct {
	binary string
}

// NewFFprobeProber returns a prober running binary, "ffprobe" when empty.
func NewFFprobeProber(binary string) *FFprobeProber {
	if binary == "" {
		binary = "ffprobe"
	}
	return &FFprobeProber{binary: binary}
}

// Probe implements Prober. A missing binary, non-zero exit or malformed
// output are all reported as errors.
func (p *FFprobeProber) Probe(ctx context.Context, filePath string) (*ProbeResult, error) {
	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe error: %w - %s", err, strings.TrimSpace(stderr.String()))
	}

	return ParseFFprobeOutput(stdout.Bytes())
}

// ParseFFprobeOutput extracts container and stream tags from the output of
// `ffprobe -print_format json -show_format -show_streams`.
func ParseFFprobeOutput(output []byte) (*ProbeResult, error) {
	data, err := oj.Parse(output)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if _, ok := data.(map[string]any); !ok {
		return nil, fmt.Errorf("unexpected ffprobe output: top level is %T", data)
	}

	result := &ProbeResult{
		FormatTags: stringTags(formatTagsPath.First(data)),
	}

	if streams, ok := streamsPath.First(data).([]any); ok {
		for _, s := range streams {
			stream, ok := s.(map[string]any)
			if !ok {
				continue
			}
			result.StreamTags = append(result.StreamTags, stringTags(stream["tags"]))
		}
	}

	return result, nil
}

// stringTags keeps the string-valued entries of a decoded tags object.
func stringTags(v any) map[string]string {
	obj, ok := v.(map[string]any)
	if !ok {
		return map[string]string{}
	}
	tags := make(map[string]string, len(obj))
	for k, val := range obj {
		if s, ok := val.(string); ok {
			tags[k] = s
		}
	}
	return tags
}
