// Package chart renders metric series as PNG line charts.
package chart

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"FinSight/internal/fault"
	"FinSight/internal/model"
)

// rotateAfter is the point count above which x labels are rotated.
const rotateAfter = 6

// Options controls the rendered image.
type Options struct {
	Width     int
	Height    int
	DPI       float64
	LineColor string
	MaxTicks  int
}

// Renderer draws charts with fixed options. Safe for concurrent use.
type Renderer struct {
	opts  Options
	color drawing.Color
}

// New validates opts and returns a Renderer.
func New(opts Options) (*Renderer, error) {
	if opts.Width <= 0 || opts.Height <= 0 || opts.DPI <= 0 {
		return nil, fmt.Errorf("chart size and dpi must be positive")
	}
	if opts.MaxTicks < 2 {
		return nil, fmt.Errorf("max ticks must be at least 2, got %d", opts.MaxTicks)
	}
	hex := strings.TrimPrefix(opts.LineColor, "#")
	if len(hex) != 6 {
		return nil, fmt.Errorf("line colour %q is not a 6-digit hex colour", opts.LineColor)
	}
	return &Renderer{opts: opts, color: drawing.ColorFromHex(hex)}, nil
}

// HumanizeMetric turns a metric column name into an axis label:
// net_income becomes Net Income.
func HumanizeMetric(metric string) string {
	words := strings.Fields(strings.ReplaceAll(metric, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// Render draws series in order, one x slot per point labelled with its period.
func (r *Renderer) Render(series model.MetricSeries, companyLabel, metricLabel string) (model.ChartArtifact, error) {
	n := len(series.Points)
	if n == 0 {
		return model.ChartArtifact{}, fault.Wrap(fault.ErrRender, nil, "empty series for %s %s", companyLabel, metricLabel)
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, p := range series.Points {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return model.ChartArtifact{}, fault.Wrap(fault.ErrRender, nil, "non-finite value at %q", p.Period)
		}
		xs[i] = float64(i)
		ys[i] = p.Value
	}

	style := gochart.Style{
		StrokeColor: r.color,
		StrokeWidth: 2,
		DotColor:    r.color,
		DotWidth:    4,
	}
	if n == 1 {
		style.StrokeColor = drawing.ColorTransparent
		style.DotWidth = 6
	}

	tickStyle := gochart.Style{}
	if n > rotateAfter {
		tickStyle.TextRotationDegrees = 45
	}

	yMin, yMax := paddedRange(ys)
	label := HumanizeMetric(metricLabel)

	graph := gochart.Chart{
		Title:  fmt.Sprintf("%s - %s", companyLabel, label),
		Width:  r.opts.Width,
		Height: r.opts.Height,
		DPI:    r.opts.DPI,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 50, Left: 20, Right: 30, Bottom: 20},
		},
		XAxis: gochart.XAxis{
			Name:      "Period",
			Range:     &gochart.ContinuousRange{Min: -0.5, Max: float64(n) - 0.5},
			Ticks:     r.ticks(series.Points),
			TickStyle: tickStyle,
		},
		YAxis: gochart.YAxis{
			Name:           label,
			Range:          &gochart.ContinuousRange{Min: yMin, Max: yMax},
			ValueFormatter: formatValue,
		},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    label,
				XValues: xs,
				YValues: ys,
				Style:   style,
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return model.ChartArtifact{}, fault.Wrap(fault.ErrRender, err, "render %s %s", companyLabel, metricLabel)
	}
	return model.ChartArtifact{
		Image:      buf.Bytes(),
		Format:     "png",
		Width:      r.opts.Width,
		Height:     r.opts.Height,
		PointCount: n,
	}, nil
}

// ticks labels every k-th point so at most MaxTicks labels are drawn. The
// last point is always labelled; a thinned label closer than one step to it
// is dropped. Unlabelled ticks at -0.5 and n-0.5 pin the x range, since
// go-chart spans the axis over the explicit ticks.
func (r *Renderer) ticks(points []model.MetricPoint) []gochart.Tick {
	n := len(points)
	step := 1
	if n > r.opts.MaxTicks {
		step = (n + r.opts.MaxTicks - 1) / r.opts.MaxTicks
	}
	last := n - 1
	out := make([]gochart.Tick, 0, r.opts.MaxTicks+3)
	out = append(out, gochart.Tick{Value: -0.5})
	for i := 0; i < last; i += step {
		if i > 0 && last-i < step {
			break
		}
		out = append(out, gochart.Tick{Value: float64(i), Label: points[i].Period})
	}
	out = append(out, gochart.Tick{Value: float64(last), Label: points[last].Period})
	return append(out, gochart.Tick{Value: float64(n) - 0.5})
}

// paddedRange widens the value span by 10% on each side. A zero span is
// padded around the value so flat and single-point series stay drawable.
func paddedRange(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = math.Abs(hi) * 0.1
	}
	if pad == 0 {
		pad = 1
	}
	return lo - pad, hi + pad
}

func formatValue(v interface{}) string {
	f, ok := v.(float64)
	if !ok {
		return fmt.Sprint(v)
	}
	return decimal.NewFromFloat(f).Round(2).String()
}
