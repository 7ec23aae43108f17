package output

import (
	"fmt"
	"image/color"

	"github.com/disintegration/imaging"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	defaultWidth  = 1200
	defaultHeight = 600

	// One point per pixel.
	dpi = 72

	// Widest x tick label, in characters, before labels are thinned.
	labelChars = 8
)

// palette colors stacked groups in order, wrapping around.
var palette = []color.NRGBA{
	{R: 31, G: 119, B: 180, A: 255},
	{R: 255, G: 127, B: 14, A: 255},
	{R: 44, G: 160, B: 44, A: 255},
	{R: 214, G: 39, B: 40, A: 255},
	{R: 148, G: 103, B: 189, A: 255},
	{R: 140, G: 86, B: 75, A: 255},
	{R: 227, G: 119, B: 194, A: 255},
	{R: 127, G: 127, B: 127, A: 255},
	{R: 188, G: 189, B: 34, A: 255},
	{R: 23, G: 190, B: 207, A: 255},
}

// PNGRenderer draws bar charts with gonum/plot and saves them with imaging.
type PNGRenderer struct {
	Width  int
	Height int
}

// NewPNGRenderer returns a renderer producing 1200x600 images.
func NewPNGRenderer() *PNGRenderer {
	return &PNGRenderer{Width: defaultWidth, Height: defaultHeight}
}

// Render draws c and writes it to c.Path. The format follows the file
// extension.
func (r *PNGRenderer) Render(c Chart) error {
	if len(c.Keys) == 0 {
		return fmt.Errorf("chart %q has no data", c.Title)
	}

	width, height := r.Width, r.Height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}

	p, err := r.plot(c, width)
	if err != nil {
		return fmt.Errorf("failed to build chart %s: %w", c.Path, err)
	}

	canvas := vgimg.NewWith(
		vgimg.UseWH(vg.Length(width), vg.Length(height)),
		vgimg.UseDPI(dpi),
	)
	p.Draw(draw.New(canvas))

	if err := imaging.Save(canvas.Image(), c.Path); err != nil {
		return fmt.Errorf("failed to save chart %s: %w", c.Path, err)
	}
	return nil
}

func (r *PNGRenderer) plot(c Chart, width int) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = c.XLabel
	p.Y.Label.Text = c.YLabel
	p.Y.Min = 0

	grid := plotter.NewGrid()
	grid.Vertical.Color = nil
	p.Add(grid)

	slot := float64(width) / float64(len(c.Keys))
	barWidth := vg.Length(0.6 * slot)

	var below *plotter.BarChart
	for gi, group := range c.Groups {
		bars, err := plotter.NewBarChart(barValues(c, group), barWidth)
		if err != nil {
			return nil, err
		}
		bars.Color = barColor(c, gi)
		bars.LineStyle.Color = bars.Color
		if below != nil {
			bars.StackOn(below)
		}
		p.Add(bars)
		if c.Stacked() {
			p.Legend.Add(group, bars)
		}
		below = bars
	}
	p.Legend.Top = true

	p.X.Tick.Marker = plot.ConstantTicks(keyTicks(c.Keys, slot))
	return p, nil
}

// barValues returns one value per key for group. Missing entries are zero.
func barValues(c Chart, group string) plotter.Values {
	values := make(plotter.Values, len(c.Keys))
	copy(values, c.Values[group])
	for i, v := range values {
		if v < 0 {
			values[i] = 0
		}
	}
	return values
}

// keyTicks labels bar positions, leaving labels out when they would overlap.
func keyTicks(keys []string, slot float64) []plot.Tick {
	step := 1
	if widest := float64(labelChars * 8); widest > slot {
		step = int(widest/slot) + 1
	}
	ticks := make([]plot.Tick, len(keys))
	for i, key := range keys {
		ticks[i] = plot.Tick{Value: float64(i)}
		if i%step == 0 {
			ticks[i].Label = key
		}
	}
	return ticks
}

func barColor(c Chart, group int) color.Color {
	if !c.Stacked() && c.Color != nil {
		return c.Color
	}
	return palette[group%len(palette)]
}
