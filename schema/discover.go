package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// AUTO-DISCOVERY — Column classification from parsed rows
// ============================================================================
// Classification pipeline per column:
//   1. Drop null markers, count nulls and distinct values
//   2. Every remaining value integer → int64, float → float64,
//      true/false → bool, otherwise object
//   3. Numeric dtypes become measures, everything else dimensions
//   4. Object columns are checked for date / period patterns (temporal)
//   5. Two distinct values → binary categorical
// ============================================================================

// DiscoverOptions controls discovery behavior.
type DiscoverOptions struct {
	Name       string // Dataset name override
	MaxSamples int    // Sample values kept per column. Default: 10
	Source     string // Recorded in DiscoveredFrom. Default: "CSV"
}

// DefaultDiscoverOptions returns sensible defaults.
func DefaultDiscoverOptions() DiscoverOptions {
	return DiscoverOptions{
		Name:       "Auto-discovered Dataset",
		MaxSamples: 10,
		Source:     "CSV",
	}
}

// nullMarkers are the cell values read as missing.
var nullMarkers = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"n/a":  true,
	"NaN":  true,
	"nan":  true,
	"null": true,
	"NULL": true,
	"None": true,
}

// IsNull reports whether a raw cell value is a missing-value marker.
func IsNull(v string) bool {
	return nullMarkers[strings.TrimSpace(v)]
}

// Discover generates a Config by inspecting every row.
func Discover(header []string, rows [][]string, opts ...DiscoverOptions) (*Config, error) {
	opt := DefaultDiscoverOptions()
	if len(opts) > 0 {
		o := opts[0]
		if o.Name != "" {
			opt.Name = o.Name
		}
		if o.MaxSamples > 0 {
			opt.MaxSamples = o.MaxSamples
		}
		if o.Source != "" {
			opt.Source = o.Source
		}
	}

	if len(header) == 0 {
		return nil, fmt.Errorf("dataset has no columns")
	}

	seen := make(map[string]bool, len(header))
	columns := make([]ColumnMeta, len(header))
	for i, h := range header {
		key := strings.TrimSpace(h)
		if key == "" {
			return nil, fmt.Errorf("column %d has an empty name", i+1)
		}
		if seen[key] {
			return nil, fmt.Errorf("duplicate column %q", key)
		}
		seen[key] = true
		columns[i] = analyzeColumn(key, i, rows, opt.MaxSamples)
	}

	return &Config{
		Name:           opt.Name,
		Columns:        columns,
		DiscoveredFrom: opt.Source,
		DiscoveredAt:   time.Now().Format(time.RFC3339),
	}, nil
}

// ============================================================================
// COLUMN ANALYSIS
// ============================================================================

// analyzeColumn inspects all values in a column and classifies it.
func analyzeColumn(key string, index int, rows [][]string, maxSamples int) ColumnMeta {
	col := ColumnMeta{Key: key}

	values := make([]string, 0, len(rows))
	uniqueSet := make(map[string]bool)

	for _, row := range rows {
		if index >= len(row) || IsNull(row[index]) {
			col.NullCount++
			continue
		}
		val := strings.TrimSpace(row[index])
		values = append(values, val)
		uniqueSet[val] = true
	}

	col.UniqueCount = len(uniqueSet)
	col.SampleValues = collectSamples(uniqueSet, maxSamples)
	col.Dtype = detectDtype(values)

	if col.Dtype.IsNumeric() {
		col.Role = RoleMeasure
	} else {
		col.Role = RoleDimension
	}

	if col.Dtype == DtypeObject {
		col.IsTemporal, col.TemporalFormat = detectTemporal(values, col.SampleValues)
	}

	col.IsBinary = col.UniqueCount == 2

	switch {
	case col.UniqueCount <= 10:
		col.CardinalityHint = "low"
	case col.UniqueCount <= 100:
		col.CardinalityHint = "medium"
	default:
		col.CardinalityHint = "high"
	}

	return col
}

// ============================================================================
// TYPE DETECTION
// ============================================================================

// detectDtype requires every non-null value to match. A column with no
// values at all is object.
func detectDtype(values []string) Dtype {
	if len(values) == 0 {
		return DtypeObject
	}

	allInt, allFloat, allBool := true, true, true
	for _, v := range values {
		if allInt && !isInt(v) {
			allInt = false
		}
		if allFloat && !isFloat(v) {
			allFloat = false
		}
		if allBool && !isBool(v) {
			allBool = false
		}
		if !allInt && !allFloat && !allBool {
			break
		}
	}

	switch {
	case allInt:
		return DtypeInt64
	case allFloat:
		return DtypeFloat64
	case allBool:
		return DtypeBool
	default:
		return DtypeObject
	}
}

func isInt(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func isFloat(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func isBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "false"
}

// ============================================================================
// TEMPORAL DETECTION
// ============================================================================

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"02/01/2006",
	"Jan-2006",
	"January 2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

func isDate(s string) bool {
	for _, layout := range dateFormats {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

var periodPatterns = []struct {
	re     *regexp.Regexp
	format string
}{
	{regexp.MustCompile(`^[A-Z][a-z]{2}-\d{4}$`), "MMM-yyyy"}, // Jan-2026
	{regexp.MustCompile(`^\d{4}-\d{2}$`), "yyyy-MM"},          // 2026-01
	{regexp.MustCompile(`^Q[1-4]-\d{4}$`), "QN-yyyy"},         // Q1-2026
	{regexp.MustCompile(`^Q[1-4]\s+\d{4}$`), "QN yyyy"},       // Q1 2026
	{regexp.MustCompile(`^[A-Z][a-z]+ \d{4}$`), "MMMM yyyy"},  // January 2026
}

// detectTemporal checks whether 80%+ of values are dates, or 80%+ of the
// samples match a known period pattern.
func detectTemporal(values, samples []string) (bool, string) {
	if len(values) == 0 {
		return false, ""
	}

	dates := 0
	for _, v := range values {
		if isDate(v) {
			dates++
		}
	}
	if float64(dates)/float64(len(values)) >= 0.8 {
		return true, "date"
	}

	return detectTemporalPattern(samples)
}

// detectTemporalPattern checks if values match known month/quarter patterns.
func detectTemporalPattern(samples []string) (bool, string) {
	if len(samples) == 0 {
		return false, ""
	}

	for _, pattern := range periodPatterns {
		matches := 0
		for _, s := range samples {
			if pattern.re.MatchString(strings.TrimSpace(s)) {
				matches++
			}
		}
		if float64(matches)/float64(len(samples)) >= 0.8 {
			return true, pattern.format
		}
	}

	return false, ""
}

// collectSamples picks up to maxSamples values in sorted order.
func collectSamples(uniqueSet map[string]bool, maxSamples int) []string {
	samples := make([]string, 0, len(uniqueSet))
	for v := range uniqueSet {
		samples = append(samples, v)
	}

	sort.Strings(samples)

	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	return samples
}
