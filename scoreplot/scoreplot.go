// Package scoreplot renders a scan matcher's score surface to a PNG heatmap
// or an HTML scatter plot: Score sampled over a caller-chosen (dx, dy)
// window around a pose, at a fixed theta slice.
// Built on gonum.org/v1/plot's plot/plotter/vg stack for PNG output.
package scoreplot

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/openslam-go/scanmatch/geom"
	"github.com/openslam-go/scanmatch/gridmap"
	"github.com/openslam-go/scanmatch/scanmatch"
)

// Surface is a sampled grid of matcher scores over a (dx, dy) window
// centered on a pose, at the pose's fixed theta.
type Surface struct {
	Pose       geom.OrientedPoint
	Range      float64
	Step       float64
	Scores     [][]float64 // Scores[yIdx][xIdx]
	Width      int
	Height     int
}

// Sample evaluates matcher.Score over every (dx, dy) offset from pose within
// [-linearRange, +linearRange] at the given step, holding theta fixed at
// pose.Theta, and returns the resulting grid. It is laid out like the
// (dx, dy, dtheta) grid scanmatch.Likelihood samples internally, but with
// its own range and step and with dtheta fixed at 0, so the result can be
// rendered as a 2D heatmap.
func Sample(m *scanmatch.Matcher, grid *gridmap.Grid, pose geom.OrientedPoint, linearRange, step float64, readings []float64) (Surface, error) {
	if step <= 0 {
		return Surface{}, fmt.Errorf("scoreplot: step must be positive, got %v", step)
	}
	if linearRange <= 0 {
		return Surface{}, fmt.Errorf("scoreplot: linearRange must be positive, got %v", linearRange)
	}

	// The small epsilon keeps ratios like 0.3/0.1 (2.9999999999999996 in
	// float64) from losing their last step.
	n := int(math.Floor(linearRange/step+1e-9)) * 2 + 1
	scores := make([][]float64, n)
	for yi := 0; yi < n; yi++ {
		row := make([]float64, n)
		dy := -linearRange + float64(yi)*step
		for xi := 0; xi < n; xi++ {
			dx := -linearRange + float64(xi)*step
			p := geom.OrientedPoint{X: pose.X + dx, Y: pose.Y + dy, Theta: pose.Theta}
			row[xi] = m.Score(grid, p, readings)
		}
		scores[yi] = row
	}
	return Surface{Pose: pose, Range: linearRange, Step: step, Scores: scores, Width: n, Height: n}, nil
}

// gridMatrix adapts Surface to plotter.GridXYZ so it can back a heat map.
type gridMatrix struct {
	s Surface
}

func (g gridMatrix) Dims() (c, r int) { return g.s.Width, g.s.Height }
func (g gridMatrix) Z(c, r int) float64 { return g.s.Scores[r][c] }
func (g gridMatrix) X(c int) float64 {
	return g.s.Pose.X - g.s.Range + float64(c)*g.s.Step
}
func (g gridMatrix) Y(r int) float64 {
	return g.s.Pose.Y - g.s.Range + float64(r)*g.s.Step
}

// Save renders surface as a PNG heatmap at path, title labeled with the
// sampled pose.
func Save(surface Surface, title, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x offset (m)"
	p.Y.Label.Text = "y offset (m)"

	heat := plotter.NewHeatMap(gridMatrix{s: surface}, moreland.SmoothBlueRed())
	p.Add(heat)

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("scoreplot: save %q: %w", path, err)
	}
	return nil
}

// RenderHTML writes surface as an interactive go-echarts scatter-heatmap
// (one point per sampled cell, colored by score via a VisualMap gradient) to
// w. This is the same "scatter + VisualMap color range" idiom used for this
// stack's other debug grid visualizations, here serving a standalone PNG
// alternative rather than an HTTP handler.
func RenderHTML(surface Surface, title string, w io.Writer) error {
	points := make([]opts.ScatterData, 0, surface.Width*surface.Height)
	minScore, maxScore := surface.Scores[0][0], surface.Scores[0][0]
	for r := 0; r < surface.Height; r++ {
		for c := 0; c < surface.Width; c++ {
			z := surface.Scores[r][c]
			if z < minScore {
				minScore = z
			}
			if z > maxScore {
				maxScore = z
			}
			gm := gridMatrix{s: surface}
			points = append(points, opts.ScatterData{Value: []interface{}{gm.X(c), gm.Y(r), z}})
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "800px", Height: "800px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "x offset (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "y offset (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        minScore,
			Max:        maxScore,
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}},
		}),
	)
	scatter.AddSeries("score", points, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("scoreplot: render HTML: %w", err)
	}
	return nil
}
