package engine

import (
	"sort"
)

// ============================================================================
// CHART BUILDER — Produces ChartConfig from QuerySpec + Groups / Views
// ============================================================================
// Output is render-agnostic: the plot package turns a ChartConfig into an
// image. Sizes are in pixels at 100 dpi.
// ============================================================================

// Sequential palette for bar charts (viridis stops, dark to light).
var viridis = []string{
	"#440154", "#482878", "#3E4A89", "#31688E", "#26828E",
	"#1F9E89", "#35B779", "#6DCD59", "#B4DE2C", "#FDE725",
}

// Soft qualitative palette for categorical boxes.
var pastel = []string{
	"#A1C9F4", "#FFB482", "#8DE5A1", "#FF9F9B", "#D0BBFF",
	"#DEBB9B", "#FAB0E4", "#CFCFCF", "#FFFEA3", "#B9F2F0",
}

const (
	defaultColor = "#4C72B0"
	scatterAlpha = 0.6
	kdePoints    = 200
	maxTickCount = 10
)

// BuildChart produces a bar ChartConfig from a QuerySpec and aggregated groups.
// Bars keep the order of groups, so sort them before calling.
func BuildChart(spec QuerySpec, groups []Group) *ChartConfig {
	if len(groups) == 0 {
		return nil
	}

	config := &ChartConfig{
		ChartType: "bar",
		Title:     spec.Title,
		XAxis:     spec.XLabel,
		YAxis:     spec.YLabel,
		ShowGrid:  true,
		Width:     1000,
		Height:    600,
	}
	if config.XAxis == "" && len(spec.GroupBy) > 0 {
		config.XAxis = spec.GroupBy[0]
	}
	if config.YAxis == "" {
		config.YAxis = LabelForMeasure(spec.Aggregation, spec.Measure)
	}

	config.Series = buildSingleSeries(groups, spec.Title)
	config.Colors = sampleColors(viridis, len(groups))
	return config
}

// BuildHistogram bins spec.Measure and overlays a kernel density curve
// scaled to bin counts. Returns nil when the view has no values.
func BuildHistogram(spec QuerySpec, view RecordView, bins int) *ChartConfig {
	values := MeasureValues(view, spec.Measure)
	hist := Histogram(values, bins)
	if hist == nil {
		return nil
	}

	config := &ChartConfig{
		ChartType: "histogram",
		Title:     spec.Title,
		XAxis:     orDefault(spec.XLabel, spec.Measure),
		YAxis:     orDefault(spec.YLabel, "Count"),
		Bins:      hist,
		Colors:    []string{defaultColor},
		ShowGrid:  true,
		Width:     800,
		Height:    500,
	}
	config.Curve = KDE(values, kdePoints, hist[0].Width())
	return config
}

// BuildScatter plots xKey against spec.Measure for records holding both.
// Integer-valued x with few distinct values gets one tick per value.
func BuildScatter(spec QuerySpec, view RecordView, xKey string) *ChartConfig {
	points := make([]XYPoint, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		if !view.HasMeasure(i, xKey) || !view.HasMeasure(i, spec.Measure) {
			continue
		}
		points = append(points, XYPoint{X: view.Measure(i, xKey), Y: view.Measure(i, spec.Measure)})
	}
	if len(points) == 0 {
		return nil
	}

	return &ChartConfig{
		ChartType: "scatter",
		Title:     spec.Title,
		XAxis:     orDefault(spec.XLabel, xKey),
		YAxis:     orDefault(spec.YLabel, spec.Measure),
		Points:    points,
		XTicks:    discreteTicks(points),
		Colors:    []string{defaultColor},
		Alpha:     scatterAlpha,
		ShowGrid:  true,
		Width:     800,
		Height:    600,
	}
}

// BuildBoxPlot draws one box of spec.Measure per value of spec.GroupBy[0],
// categories in first-seen order.
func BuildBoxPlot(spec QuerySpec, view RecordView) *ChartConfig {
	if len(spec.GroupBy) == 0 {
		return nil
	}
	groups := groupBySingle(view, spec.GroupBy[0])

	boxes := make([]BoxStats, 0, len(groups))
	for _, g := range groups {
		values := MeasureValues(g.View, spec.Measure)
		if len(values) == 0 {
			continue
		}
		boxes = append(boxes, ComputeBox(g.Label, values))
	}
	if len(boxes) == 0 {
		return nil
	}

	return &ChartConfig{
		ChartType: "box",
		Title:     spec.Title,
		XAxis:     orDefault(spec.XLabel, spec.GroupBy[0]),
		YAxis:     orDefault(spec.YLabel, spec.Measure),
		Boxes:     boxes,
		Colors:    sampleColors(pastel, len(boxes)),
		ShowGrid:  true,
		Width:     700,
		Height:    500,
	}
}

// ============================================================================
// SERIES BUILDERS
// ============================================================================

func buildSingleSeries(groups []Group, seriesName string) []ChartSeries {
	if seriesName == "" {
		seriesName = "Value"
	}

	points := make([]ChartPoint, 0, len(groups))
	for _, g := range groups {
		points = append(points, ChartPoint{
			Label: g.Label,
			Value: RoundTo2(g.Value),
		})
	}

	return []ChartSeries{{
		Name: seriesName,
		Data: points,
	}}
}

// sampleColors picks count colors spread evenly across a palette.
func sampleColors(palette []string, count int) []string {
	colors := make([]string, count)
	if count == 0 {
		return colors
	}
	if count == 1 || count > len(palette) {
		for i := range colors {
			colors[i] = palette[i%len(palette)]
		}
		return colors
	}
	step := float64(len(palette)-1) / float64(count-1)
	for i := range colors {
		colors[i] = palette[int(float64(i)*step+0.5)]
	}
	return colors
}

func discreteTicks(points []XYPoint) []float64 {
	seen := make(map[float64]bool)
	for _, p := range points {
		if p.X != float64(int64(p.X)) {
			return nil
		}
		seen[p.X] = true
		if len(seen) > maxTickCount {
			return nil
		}
	}
	ticks := make([]float64, 0, len(seen))
	for x := range seen {
		ticks = append(ticks, x)
	}
	sort.Float64s(ticks)
	return ticks
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
