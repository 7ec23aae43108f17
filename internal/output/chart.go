// Package output renders aggregated size series as bar charts, or as plain
// text when no chart can be produced.
package output

import (
	"image/color"
	"path/filepath"

	"github.com/jaragunde/picture-collection-tools/internal/aggregate"
)

// Artifact names written next to the catalog.
const (
	GrowthFileName   = "collection_growth.png"
	PeriodicFileName = "collection_monthly_size.png"
)

var (
	cumulativeColor = color.NRGBA{R: 135, G: 206, B: 235, A: 255} // skyblue
	periodicColor   = color.NRGBA{R: 144, G: 238, B: 144, A: 255} // lightgreen
)

// Chart describes one bar chart. Values holds one slice per group, each with
// one value per key. With a single group the bars use Color; otherwise the
// groups are stacked in Groups order and colored from the palette.
type Chart struct {
	Path   string
	Title  string
	XLabel string
	YLabel string
	Keys   []string
	Groups []string
	Values map[string][]float64
	Color  color.Color
}

// Stacked reports whether the chart draws more than one segment per bar.
func (c Chart) Stacked() bool {
	return len(c.Groups) > 1
}

// Renderer draws a chart to c.Path.
type Renderer interface {
	Render(c Chart) error
}

// Charts builds the cumulative and periodic charts for series, to be
// written under dir.
func Charts(series *aggregate.Series, dir string) []Chart {
	label := series.GroupBy.Label()
	return []Chart{
		{
			Path:   filepath.Join(dir, GrowthFileName),
			Title:  "Picture Collection Growth Over Time",
			XLabel: label,
			YLabel: "Collection Size (MB)",
			Keys:   series.Keys,
			Groups: series.Groups,
			Values: series.Cumulative,
			Color:  cumulativeColor,
		},
		{
			Path:   filepath.Join(dir, PeriodicFileName),
			Title:  series.GroupBy.Adjective() + " Picture Collection Size",
			XLabel: label,
			YLabel: series.GroupBy.Adjective() + " Size (MB)",
			Keys:   series.Keys,
			Groups: series.Groups,
			Values: series.Periodic,
			Color:  periodicColor,
		},
	}
}
