package output

import (
	"bytes"
	"errors"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaragunde/picture-collection-tools/internal/aggregate"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func monthlySeries() *aggregate.Series {
	return &aggregate.Series{
		GroupBy:    aggregate.GroupByMonth,
		Keys:       []string{"2023-01", "2023-02"},
		Groups:     []string{aggregate.TotalGroup},
		Periodic:   map[string][]float64{aggregate.TotalGroup: {1.0, 2.0}},
		Cumulative: map[string][]float64{aggregate.TotalGroup: {1.0, 3.0}},
	}
}

type failingRenderer struct{ calls int }

func (f *failingRenderer) Render(Chart) error {
	f.calls++
	return errors.New("no backend")
}

// secondFailsRenderer writes the first chart and fails on the next one.
type secondFailsRenderer struct{ calls int }

func (r *secondFailsRenderer) Render(c Chart) error {
	r.calls++
	if r.calls > 1 {
		return errors.New("disk full")
	}
	return os.WriteFile(c.Path, []byte("png"), 0o644)
}

type recordingRenderer struct{ charts []Chart }

func (r *recordingRenderer) Render(c Chart) error {
	r.charts = append(r.charts, c)
	return nil
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, monthlySeries()))

	want := "Data that would be plotted (Cumulative):\n" +
		"2023-01: 1.00 MB\n" +
		"2023-02: 3.00 MB\n" +
		"\n" +
		"Data that would be plotted (Monthly):\n" +
		"2023-01: 1.00 MB\n" +
		"2023-02: 2.00 MB\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteTextGrouped(t *testing.T) {
	series := &aggregate.Series{
		GroupBy: aggregate.GroupByYear,
		Keys:    []string{"2022", "2023"},
		Groups:  []string{"A", aggregate.RootGroup},
		Periodic: map[string][]float64{
			"A":                 {2.0, 0},
			aggregate.RootGroup: {0, 0.5},
		},
		Cumulative: map[string][]float64{
			"A":                 {2.0, 2.0},
			aggregate.RootGroup: {0, 0.5},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, series))

	want := "Data that would be plotted (Cumulative):\n" +
		"[A]\n2022: 2.00 MB\n2023: 2.00 MB\n" +
		"[Root]\n2022: 0.00 MB\n2023: 0.50 MB\n" +
		"\n" +
		"Data that would be plotted (Yearly):\n" +
		"[A]\n2022: 2.00 MB\n2023: 0.00 MB\n" +
		"[Root]\n2022: 0.00 MB\n2023: 0.50 MB\n"
	assert.Equal(t, want, buf.String())
}

func TestCharts(t *testing.T) {
	charts := Charts(monthlySeries(), "/photos")
	require.Len(t, charts, 2)

	assert.Equal(t, filepath.Join("/photos", GrowthFileName), charts[0].Path)
	assert.Equal(t, "Picture Collection Growth Over Time", charts[0].Title)
	assert.Equal(t, "Collection Size (MB)", charts[0].YLabel)
	assert.Equal(t, "Month", charts[0].XLabel)
	assert.Equal(t, []float64{1.0, 3.0}, charts[0].Values[aggregate.TotalGroup])

	assert.Equal(t, filepath.Join("/photos", PeriodicFileName), charts[1].Path)
	assert.Equal(t, "Monthly Picture Collection Size", charts[1].Title)
	assert.Equal(t, "Monthly Size (MB)", charts[1].YLabel)
	assert.Equal(t, []float64{1.0, 2.0}, charts[1].Values[aggregate.TotalGroup])
}

func TestSinkFallsBackWhenRendererFails(t *testing.T) {
	var buf bytes.Buffer
	renderer := &failingRenderer{}
	sink := NewSink(renderer, t.TempDir(), &buf, quietLogger())

	paths, err := sink.Emit(monthlySeries())
	require.NoError(t, err)
	assert.Empty(t, paths)
	assert.Equal(t, 1, renderer.calls)
	assert.Contains(t, buf.String(), "2023-02: 3.00 MB")
}

func TestSinkRemovesPartialChartsOnFallback(t *testing.T) {
	var buf bytes.Buffer
	dir := t.TempDir()
	renderer := &secondFailsRenderer{}
	sink := NewSink(renderer, dir, &buf, quietLogger())

	paths, err := sink.Emit(monthlySeries())
	require.NoError(t, err)
	assert.Empty(t, paths)
	assert.Equal(t, 2, renderer.calls)
	assert.Contains(t, buf.String(), "Data that would be plotted (Cumulative):")

	_, statErr := os.Stat(filepath.Join(dir, GrowthFileName))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSinkWithoutRendererPrintsText(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(nil, t.TempDir(), &buf, quietLogger())

	paths, err := sink.Emit(monthlySeries())
	require.NoError(t, err)
	assert.Nil(t, paths)
	assert.Contains(t, buf.String(), "Data that would be plotted (Monthly):")
}

func TestSinkRendersBothCharts(t *testing.T) {
	var buf bytes.Buffer
	renderer := &recordingRenderer{}
	dir := t.TempDir()
	sink := NewSink(renderer, dir, &buf, quietLogger())

	paths, err := sink.Emit(monthlySeries())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, GrowthFileName),
		filepath.Join(dir, PeriodicFileName),
	}, paths)
	assert.Len(t, renderer.charts, 2)
	assert.Empty(t, buf.String())
}

func containsColor(t *testing.T, path string, want color.NRGBA) bool {
	t.Helper()
	img, err := imaging.Open(path)
	require.NoError(t, err)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if color.NRGBAModel.Convert(img.At(x, y)) == want {
				return true
			}
		}
	}
	return false
}

func TestPNGRendererWritesImage(t *testing.T) {
	dir := t.TempDir()
	chart := Charts(monthlySeries(), dir)[0]

	require.NoError(t, NewPNGRenderer().Render(chart))

	img, err := imaging.Open(chart.Path)
	require.NoError(t, err)
	assert.Equal(t, defaultWidth, img.Bounds().Dx())
	assert.Equal(t, defaultHeight, img.Bounds().Dy())
	assert.True(t, containsColor(t, chart.Path, cumulativeColor))
}

func TestPNGRendererStacksGroups(t *testing.T) {
	dir := t.TempDir()
	chart := Chart{
		Path:   filepath.Join(dir, "stacked.png"),
		Title:  "stacked",
		Keys:   []string{"2022", "2023"},
		Groups: []string{"A", "B"},
		Values: map[string][]float64{
			"A": {1, 2},
			"B": {3, 4},
		},
		Color: cumulativeColor,
	}

	require.NoError(t, NewPNGRenderer().Render(chart))

	assert.True(t, containsColor(t, chart.Path, palette[0]))
	assert.True(t, containsColor(t, chart.Path, palette[1]))
	assert.False(t, containsColor(t, chart.Path, cumulativeColor))
}

func TestPNGRendererRejectsEmptyChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.png")
	err := NewPNGRenderer().Render(Chart{Path: path, Title: "empty"})
	assert.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestPNGRendererFailsOnUnwritablePath(t *testing.T) {
	chart := Charts(monthlySeries(), filepath.Join(t.TempDir(), "missing", "dir"))[0]
	assert.Error(t, NewPNGRenderer().Render(chart))
}

func TestKeyTicksThinsCrowdedLabels(t *testing.T) {
	keys := []string{"2023-01", "2023-02", "2023-03", "2023-04", "2023-05"}

	ticks := keyTicks(keys, 200)
	require.Len(t, ticks, 5)
	for i, tick := range ticks {
		assert.Equal(t, float64(i), tick.Value)
		assert.Equal(t, keys[i], tick.Label)
	}

	ticks = keyTicks(keys, 30)
	require.Len(t, ticks, 5)
	assert.Equal(t, "2023-01", ticks[0].Label)
	assert.Empty(t, ticks[1].Label)
	assert.Empty(t, ticks[2].Label)
	assert.Equal(t, "2023-04", ticks[3].Label)
}

func TestBarValuesPadsMissingKeys(t *testing.T) {
	chart := Chart{
		Keys:   []string{"a", "b", "c"},
		Values: map[string][]float64{"x": {1, -2}},
	}
	assert.Equal(t, []float64{1, 0, 0}, []float64(barValues(chart, "x")))
	assert.Equal(t, []float64{0, 0, 0}, []float64(barValues(chart, "missing")))
}
