// Package plot renders engine chart configs to PNG images with go-chart.
package plot

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/spektr-org/studentperf/engine"
)

// ============================================================================
// RENDERER — ChartConfig → PNG
// ============================================================================
// The engine decides WHAT to draw (bins, points, boxes, bars); this package
// only decides HOW. Every chart type maps onto go-chart primitives:
//   bar       → chart.BarChart
//   histogram → filled ContinuousSeries rectangles + KDE line
//   scatter   → dot-only ContinuousSeries
//   box       → outline / median / whisker line series + flier dots
// ============================================================================

const dpi = 100

var (
	// ErrEmptyChart is returned for configs carrying no data to draw.
	ErrEmptyChart = errors.New("chart has no data")
	// ErrUnknownChartType is returned for unsupported ChartType values.
	ErrUnknownChartType = errors.New("unknown chart type")
)

var (
	gridColor    = drawing.ColorFromHex("E5E5E5")
	outlineColor = drawing.ColorFromHex("3F3F3F")
	kdeColor     = drawing.ColorFromHex("2A4C80")
)

// Render writes cfg as a PNG image to w.
func Render(cfg *engine.ChartConfig, w io.Writer) error {
	if cfg == nil {
		return ErrEmptyChart
	}
	switch cfg.ChartType {
	case "bar":
		return renderBar(cfg, w)
	case "histogram":
		return renderHistogram(cfg, w)
	case "scatter":
		return renderScatter(cfg, w)
	case "box":
		return renderBox(cfg, w)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChartType, cfg.ChartType)
	}
}

// SavePNG renders cfg into dir/name (".png" appended when missing),
// creating dir as needed, and returns the written path.
func SavePNG(dir, name string, cfg *engine.ChartConfig) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create plot dir: %w", err)
	}
	if !strings.HasSuffix(strings.ToLower(name), ".png") {
		name += ".png"
	}
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := Render(cfg, f); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// FileName turns a chart title into a file-system friendly base name.
func FileName(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('_')
			lastDash = true
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "chart"
	}
	return name
}

// ============================================================================
// BAR
// ============================================================================

func renderBar(cfg *engine.ChartConfig, w io.Writer) error {
	if len(cfg.Series) == 0 || len(cfg.Series[0].Data) == 0 {
		return ErrEmptyChart
	}
	points := cfg.Series[0].Data

	bars := make([]chart.Value, 0, len(points))
	maxVal := 0.0
	for i, p := range points {
		col := colorAt(cfg.Colors, i)
		bars = append(bars, chart.Value{
			Label: p.Label,
			Value: p.Value,
			Style: chart.Style{FillColor: col, StrokeColor: col, StrokeWidth: 1},
		})
		maxVal = math.Max(maxVal, p.Value)
	}
	if maxVal <= 0 {
		maxVal = 1
	}

	width, height := size(cfg, 1000, 600)
	barWidth := (width - 200) * 2 / (3 * len(bars))
	if barWidth < 8 {
		barWidth = 8
	}

	bc := chart.BarChart{
		Title:      cfg.Title,
		Width:      width,
		Height:     height,
		DPI:        dpi,
		BarWidth:   barWidth,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 24}},
		XAxis:      chart.Style{TextRotationDegrees: 45},
		YAxis: chart.YAxis{
			Name:  cfg.YAxis,
			Range: &chart.ContinuousRange{Min: 0, Max: maxVal * 1.1},
		},
		Bars: bars,
	}
	return bc.Render(chart.PNG, w)
}

// ============================================================================
// HISTOGRAM
// ============================================================================

func renderHistogram(cfg *engine.ChartConfig, w io.Writer) error {
	if len(cfg.Bins) == 0 {
		return ErrEmptyChart
	}

	fill := colorAt(cfg.Colors, 0)
	series := make([]chart.Series, 0, len(cfg.Bins)+1)
	maxY := 0.0
	for _, b := range cfg.Bins {
		h := float64(b.Count)
		maxY = math.Max(maxY, h)
		series = append(series, chart.ContinuousSeries{
			XValues: []float64{b.Low, b.Low, b.High, b.High},
			YValues: []float64{0, h, h, 0},
			Style: chart.Style{
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 1,
				FillColor:   fill.WithAlpha(190),
			},
		})
	}

	if len(cfg.Curve) > 1 {
		xs, ys := splitXY(cfg.Curve)
		for _, y := range ys {
			maxY = math.Max(maxY, y)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    "KDE",
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeColor: kdeColor, StrokeWidth: 2},
		})
	}
	if maxY == 0 {
		maxY = 1
	}

	width, height := size(cfg, 800, 500)
	ch := chart.Chart{
		Title:      cfg.Title,
		Width:      width,
		Height:     height,
		DPI:        dpi,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:  cfg.XAxis,
			Range: &chart.ContinuousRange{Min: cfg.Bins[0].Low, Max: cfg.Bins[len(cfg.Bins)-1].High},
		},
		YAxis: chart.YAxis{
			Name:           cfg.YAxis,
			Range:          &chart.ContinuousRange{Min: 0, Max: maxY * 1.1},
			GridMajorStyle: gridStyle(cfg.ShowGrid),
		},
		Series: series,
	}
	return ch.Render(chart.PNG, w)
}

// ============================================================================
// SCATTER
// ============================================================================

func renderScatter(cfg *engine.ChartConfig, w io.Writer) error {
	if len(cfg.Points) == 0 {
		return ErrEmptyChart
	}

	dot := colorAt(cfg.Colors, 0)
	if cfg.Alpha > 0 && cfg.Alpha < 1 {
		dot = dot.WithAlpha(uint8(math.Round(cfg.Alpha * 255)))
	}

	xs, ys := splitXY(cfg.Points)
	xMin, xMax := bounds(xs)
	yMin, yMax := bounds(ys)

	xAxis := chart.XAxis{
		Name:           cfg.XAxis,
		Range:          padded(xMin, xMax),
		GridMajorStyle: gridStyle(cfg.ShowGrid),
	}
	if len(cfg.XTicks) > 0 {
		xAxis.Ticks = make([]chart.Tick, 0, len(cfg.XTicks))
		for _, t := range cfg.XTicks {
			xAxis.Ticks = append(xAxis.Ticks, chart.Tick{Value: t, Label: engine.FormatNumber(t, 0)})
		}
		xAxis.Range = &chart.ContinuousRange{Min: cfg.XTicks[0] - 0.5, Max: cfg.XTicks[len(cfg.XTicks)-1] + 0.5}
	}

	width, height := size(cfg, 800, 600)
	ch := chart.Chart{
		Title:      cfg.Title,
		Width:      width,
		Height:     height,
		DPI:        dpi,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      xAxis,
		YAxis: chart.YAxis{
			Name:           cfg.YAxis,
			Range:          padded(yMin, yMax),
			GridMajorStyle: gridStyle(cfg.ShowGrid),
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    4,
					DotColor:    dot,
				},
			},
		},
	}
	return ch.Render(chart.PNG, w)
}

// ============================================================================
// BOX PLOT
// ============================================================================

const boxHalfWidth = 0.3

func renderBox(cfg *engine.ChartConfig, w io.Writer) error {
	if len(cfg.Boxes) == 0 {
		return ErrEmptyChart
	}

	var series []chart.Series
	ticks := make([]chart.Tick, 0, len(cfg.Boxes))
	yMin, yMax := math.Inf(1), math.Inf(-1)

	for i, box := range cfg.Boxes {
		x := float64(i)
		left, right := x-boxHalfWidth, x+boxHalfWidth
		col := colorAt(cfg.Colors, i)
		ticks = append(ticks, chart.Tick{Value: x, Label: box.Label})

		series = append(series,
			// box body
			line([]float64{left, left, right, right, left},
				[]float64{box.Q1, box.Q3, box.Q3, box.Q1, box.Q1}, col, 3),
			// median
			line([]float64{left, right}, []float64{box.Median, box.Median}, outlineColor, 2),
			// whiskers with caps
			line([]float64{x, x}, []float64{box.Q1, box.WhiskerLow}, outlineColor, 1),
			line([]float64{x, x}, []float64{box.Q3, box.WhiskerHigh}, outlineColor, 1),
			line([]float64{x - boxHalfWidth/2, x + boxHalfWidth/2}, []float64{box.WhiskerLow, box.WhiskerLow}, outlineColor, 1),
			line([]float64{x - boxHalfWidth/2, x + boxHalfWidth/2}, []float64{box.WhiskerHigh, box.WhiskerHigh}, outlineColor, 1),
		)

		if len(box.Fliers) > 0 {
			xs := make([]float64, len(box.Fliers))
			for j := range xs {
				xs[j] = x
			}
			series = append(series, chart.ContinuousSeries{
				XValues: xs,
				YValues: box.Fliers,
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    3,
					DotColor:    outlineColor,
				},
			})
		}

		lo, hi := box.WhiskerLow, box.WhiskerHigh
		if len(box.Fliers) > 0 {
			fLo, fHi := bounds(box.Fliers)
			lo, hi = math.Min(lo, fLo), math.Max(hi, fHi)
		}
		yMin, yMax = math.Min(yMin, lo), math.Max(yMax, hi)
	}

	width, height := size(cfg, 700, 500)
	ch := chart.Chart{
		Title:      cfg.Title,
		Width:      width,
		Height:     height,
		DPI:        dpi,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:  cfg.XAxis,
			Ticks: ticks,
			Range: &chart.ContinuousRange{Min: -0.5, Max: float64(len(cfg.Boxes)) - 0.5},
		},
		YAxis: chart.YAxis{
			Name:           cfg.YAxis,
			Range:          padded(yMin, yMax),
			GridMajorStyle: gridStyle(cfg.ShowGrid),
		},
		Series: series,
	}
	return ch.Render(chart.PNG, w)
}

// ============================================================================
// HELPERS
// ============================================================================

func line(xs, ys []float64, col drawing.Color, width float64) chart.ContinuousSeries {
	return chart.ContinuousSeries{
		XValues: xs,
		YValues: ys,
		Style:   chart.Style{StrokeColor: col, StrokeWidth: width},
	}
}

func gridStyle(show bool) chart.Style {
	if !show {
		return chart.Style{Hidden: true}
	}
	return chart.Style{StrokeColor: gridColor, StrokeWidth: 1}
}

func colorAt(colors []string, i int) drawing.Color {
	if len(colors) == 0 {
		return chart.ColorBlue
	}
	return parseColor(colors[i%len(colors)])
}

func parseColor(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

func size(cfg *engine.ChartConfig, defWidth, defHeight int) (int, int) {
	w, h := cfg.Width, cfg.Height
	if w <= 0 {
		w = defWidth
	}
	if h <= 0 {
		h = defHeight
	}
	return w, h
}

func splitXY(points []engine.XYPoint) ([]float64, []float64) {
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Y
	}
	return xs, ys
}

func bounds(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	return lo, hi
}

// padded widens [lo, hi] by 5% (or by 1 for a flat range) so edge marks
// are not clipped.
func padded(lo, hi float64) *chart.ContinuousRange {
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = 1
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}
