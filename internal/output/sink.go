package output

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/jaragunde/picture-collection-tools/internal/aggregate"
	"github.com/jaragunde/picture-collection-tools/internal/metrics"
)

// Sink delivers a series either as chart files or as text.
type Sink struct {
	renderer Renderer
	dir      string
	out      io.Writer
	logger   *logrus.Logger
}

// NewSink returns a sink writing charts under dir. A nil renderer always
// selects the text output, written to out.
func NewSink(renderer Renderer, dir string, out io.Writer, logger *logrus.Logger) *Sink {
	return &Sink{
		renderer: renderer,
		dir:      dir,
		out:      out,
		logger:   logger,
	}
}

// Emit renders the charts for series and returns the written paths. If the
// renderer is missing or fails, the text form is printed instead, charts
// already written by this call are removed and no paths are returned.
func (s *Sink) Emit(series *aggregate.Series) ([]string, error) {
	if s.renderer == nil {
		s.logger.Debug("No chart renderer configured, printing data")
		return nil, s.fallback(series)
	}

	var written []string
	for _, chart := range Charts(series, s.dir) {
		if err := s.renderer.Render(chart); err != nil {
			s.logger.WithError(err).Warn("Chart rendering failed. Skipping chart generation.")
			s.discard(written)
			return nil, s.fallback(series)
		}
		s.logger.Debugf("Rendered %s", chart.Path)
		written = append(written, chart.Path)
	}
	metrics.ChartsRenderedTotal.WithLabelValues("rendered").Inc()
	return written, nil
}

func (s *Sink) discard(paths []string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.WithError(err).Warnf("Failed to remove partial chart %s", path)
		}
	}
}

func (s *Sink) fallback(series *aggregate.Series) error {
	metrics.ChartsRenderedTotal.WithLabelValues("fallback").Inc()
	return WriteText(s.out, series)
}
