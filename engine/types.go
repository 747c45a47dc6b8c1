package engine

// ============================================================================
// ENGINE TYPES — Records, query contract, and render-ready output
// ============================================================================

// Record is a single data row with string dimensions and numeric measures.
//
//	Record{Dimensions["Mjob"]="health", Measures["G3"]=15}
type Record struct {
	Dimensions map[string]string  `json:"dimensions"`
	Measures   map[string]float64 `json:"measures"`
}

// ============================================================================
// QUERYSPEC — What the engine should compute
// ============================================================================

// QuerySpec defines one computation over a RecordView.
type QuerySpec struct {
	Intent      string   `json:"intent"`      // "text", "table", "chart"
	Filters     Filters  `json:"filters"`     // Which records to include
	Aggregation string   `json:"aggregation"` // "sum", "count", "avg", "median", "std", "max", "min", "none"
	Measure     string   `json:"measure"`     // Which measure to aggregate (empty → use default)
	GroupBy     []string `json:"groupBy"`     // Dimension keys; groups are formed on the first
	SortBy      string   `json:"sortBy"`      // "value_desc", "value_asc", "label_asc", "label_desc"
	Limit       int      `json:"limit"`       // 0 = all
	Visualize   string   `json:"visualize"`   // "bar", "table", "text"
	Title       string   `json:"title"`
	XLabel      string   `json:"xLabel,omitempty"` // Axis overrides for charts
	YLabel      string   `json:"yLabel,omitempty"`
	Reply       string   `json:"reply"` // Template: "Highest average: {top_category} ({top_value})."
}

// Filters define which records to include.
// Keys are dimension names. Values are allowed values.
// OR within a dimension, AND across dimensions. Empty = all.
type Filters struct {
	Dimensions map[string][]string `json:"dimensions"`
}

// IsEmpty returns true if no filters are set.
func (f Filters) IsEmpty() bool {
	for _, vals := range f.Dimensions {
		if len(vals) > 0 {
			return false
		}
	}
	return true
}

// ============================================================================
// RESULT — Render-ready output
// ============================================================================

// Result is the engine's render-ready output.
type Result struct {
	Success bool   `json:"success"`
	Type    string `json:"type"` // "chart", "table", "text"
	Reply   string `json:"reply"`
	Title   string `json:"title"`

	// Exactly one of these is populated based on Type:
	ChartConfig *ChartConfig `json:"chartConfig,omitempty"`
	TableData   *TableData   `json:"tableData,omitempty"`
	Data        *TextData    `json:"data,omitempty"`

	// Groups are the aggregated groups behind chart and table output.
	Groups []Group `json:"groups,omitempty"`

	// View holds the records that passed the filters.
	View RecordView `json:"-"`
}

// ============================================================================
// GROUP — Intermediate computation result
// ============================================================================

// Group represents a grouped/aggregated result.
type Group struct {
	Key   string     `json:"key"`
	Label string     `json:"label"`
	Value float64    `json:"value"`
	Count int        `json:"count"`
	View  RecordView `json:"-"` // Sub-view for records in this group
}

// ============================================================================
// CHART TYPES
// ============================================================================

// ChartConfig defines how to render a chart. ChartType selects which of the
// payload fields are read: Series for "bar" and "histogram", Points for
// "scatter", Boxes for "box". Curve is an optional overlay line.
type ChartConfig struct {
	ChartType string        `json:"chartType"` // "bar", "histogram", "scatter", "box"
	Title     string        `json:"title"`
	XAxis     string        `json:"xAxis,omitempty"`
	YAxis     string        `json:"yAxis,omitempty"`
	Series    []ChartSeries `json:"series,omitempty"`
	Points    []XYPoint     `json:"points,omitempty"`
	Curve     []XYPoint     `json:"curve,omitempty"`
	Bins      []Bin         `json:"bins,omitempty"`
	Boxes     []BoxStats    `json:"boxes,omitempty"`
	XTicks    []float64     `json:"xTicks,omitempty"`
	Colors    []string      `json:"colors,omitempty"`
	Alpha     float64       `json:"alpha,omitempty"` // marker opacity, 0 = opaque
	ShowGrid  bool          `json:"showGrid"`
	Width     int           `json:"width,omitempty"` // pixels
	Height    int           `json:"height,omitempty"`
}

// ChartSeries represents a data series in a chart.
type ChartSeries struct {
	Name  string       `json:"name"`
	Data  []ChartPoint `json:"data"`
	Color string       `json:"color,omitempty"`
}

// ChartPoint represents a single labelled data point.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// XYPoint is a point on two continuous axes.
type XYPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ============================================================================
// TABLE TYPES
// ============================================================================

// TableData defines how to render a table.
type TableData struct {
	Title   string     `json:"title"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Summary *Summary   `json:"summary,omitempty"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number"
	Align string `json:"align"` // "left", "center", "right"
}

// Summary provides totals or aggregations for a table.
type Summary struct {
	Label  string            `json:"label"`
	Values map[string]string `json:"values"`
}

// ============================================================================
// TEXT TYPES
// ============================================================================

// TextData is structured data for single-value answers (type="text").
type TextData struct {
	Value    string  `json:"value"`
	RawValue float64 `json:"rawValue"`
	Measure  string  `json:"measure"`
	Count    int     `json:"count"`
}
