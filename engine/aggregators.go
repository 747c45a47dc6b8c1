package engine

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// ============================================================================
// AGGREGATORS — Grouping, Aggregation, and Sorting via RecordView
// ============================================================================
// All functions operate on RecordView. Grouping produces SubViews (index
// lists into the parent view). Missing measure cells are skipped, never
// counted as zero.
// ============================================================================

// GroupAndAggregate is the main entry point for the aggregation pipeline.
// Pipeline: group → aggregate → sort → limit.
func GroupAndAggregate(
	view RecordView,
	groupBy []string,
	measure string,
	aggregation string,
	sortBy string,
	limit int,
) []Group {
	if view.Len() == 0 {
		return nil
	}

	// 1. Group
	var groups []Group
	if len(groupBy) == 0 {
		groups = []Group{{Key: "all", Label: "Total", View: view}}
	} else {
		groups = groupBySingle(view, groupBy[0])
	}

	// 2. Aggregate
	for i := range groups {
		aggregateGroup(&groups[i], measure, aggregation)
	}

	// 3. Sort
	SortGroups(groups, sortBy)

	// 4. Limit
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}

	return groups
}

// ============================================================================
// GROUPING
// ============================================================================

// groupBySingle groups in first-seen order. Records with an empty value for
// the dimension are left out.
func groupBySingle(view RecordView, dimension string) []Group {
	grouped := make(map[string][]int)
	order := make([]string, 0)

	for i := 0; i < view.Len(); i++ {
		key := view.Dimension(i, dimension)
		if key == "" {
			continue
		}
		if _, exists := grouped[key]; !exists {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], i)
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		groups = append(groups, Group{
			Key:   key,
			Label: key,
			View:  newSubView(view, grouped[key]),
		})
	}
	return groups
}

// ============================================================================
// AGGREGATION
// ============================================================================

func aggregateGroup(group *Group, measure string, aggregation string) {
	group.Count = group.View.Len()
	if group.Count == 0 {
		return
	}
	group.Value = Aggregate(group.View, measure, aggregation)
}

// Aggregate reduces a measure over a view. Unknown aggregations sum.
func Aggregate(view RecordView, measure string, aggregation string) float64 {
	switch aggregation {
	case "count":
		return float64(CountMeasure(view, measure))
	case "avg", "mean":
		return AvgMeasure(view, measure)
	case "median":
		return Quantile(sortedValues(view, measure), 0.5)
	case "std":
		return StdMeasure(view, measure)
	case "max":
		return MaxMeasure(view, measure)
	case "min":
		return MinMeasure(view, measure)
	case "none":
		return 0
	default:
		return SumMeasure(view, measure)
	}
}

// CountMeasure counts present values of a measure. An empty measure key
// counts records.
func CountMeasure(view RecordView, measure string) int {
	if measure == "" {
		return view.Len()
	}
	n := 0
	for i := 0; i < view.Len(); i++ {
		if view.HasMeasure(i, measure) {
			n++
		}
	}
	return n
}

// SumMeasure sums a named measure across a view.
func SumMeasure(view RecordView, measure string) float64 {
	var total float64
	for i := 0; i < view.Len(); i++ {
		if view.HasMeasure(i, measure) {
			total += view.Measure(i, measure)
		}
	}
	return total
}

// AvgMeasure computes the mean of the present values of a measure.
// Returns NaN when no value is present.
func AvgMeasure(view RecordView, measure string) float64 {
	n := CountMeasure(view, measure)
	if n == 0 {
		return math.NaN()
	}
	return SumMeasure(view, measure) / float64(n)
}

// StdMeasure is the sample standard deviation (n-1 denominator).
func StdMeasure(view RecordView, measure string) float64 {
	return StdDev(MeasureValues(view, measure))
}

// MaxMeasure returns the largest value of a named measure, NaN if none.
func MaxMeasure(view RecordView, measure string) float64 {
	m := math.NaN()
	for i := 0; i < view.Len(); i++ {
		if !view.HasMeasure(i, measure) {
			continue
		}
		if v := view.Measure(i, measure); math.IsNaN(m) || v > m {
			m = v
		}
	}
	return m
}

// MinMeasure returns the smallest value of a named measure, NaN if none.
func MinMeasure(view RecordView, measure string) float64 {
	m := math.NaN()
	for i := 0; i < view.Len(); i++ {
		if !view.HasMeasure(i, measure) {
			continue
		}
		if v := view.Measure(i, measure); math.IsNaN(m) || v < m {
			m = v
		}
	}
	return m
}

func sortedValues(view RecordView, measure string) []float64 {
	values := MeasureValues(view, measure)
	sort.Float64s(values)
	return values
}

// ============================================================================
// SORTING
// ============================================================================

// SortGroups sorts aggregate groups by the specified sort mode. Ties and
// unknown modes keep grouping order (stable sort).
func SortGroups(groups []Group, sortBy string) {
	switch sortBy {
	case "value_desc":
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value > groups[j].Value })
	case "value_asc":
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value < groups[j].Value })
	case "label_asc", "alpha_asc":
		sort.SliceStable(groups, func(i, j int) bool { return lessKey(groups[i].Key, groups[j].Key) })
	case "label_desc":
		sort.SliceStable(groups, func(i, j int) bool { return lessKey(groups[j].Key, groups[i].Key) })
	default:
		// preserve grouping order
	}
}

// lessKey orders numerically when both keys are numbers, else by bytes,
// matching how a sorted groupby orders its index.
func lessKey(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return fa < fb
	}
	return a < b
}

// ============================================================================
// FORMATTING UTILITIES
// ============================================================================

// FormatNumber formats a statistic with fixed decimals; NaN prints as "NaN".
func FormatNumber(v float64, decimals int) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// RoundTo2 rounds to 2 decimal places.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// LabelForAggregation returns a human-readable label for an aggregation type.
func LabelForAggregation(aggregation string) string {
	switch aggregation {
	case "sum":
		return "Total"
	case "count":
		return "Count"
	case "avg", "mean":
		return "Average"
	case "median":
		return "Median"
	case "std":
		return "Std Dev"
	case "max":
		return "Maximum"
	case "min":
		return "Minimum"
	default:
		return "Value"
	}
}

// LabelForMeasure joins aggregation and measure: "Average G3".
func LabelForMeasure(aggregation, measure string) string {
	label := LabelForAggregation(aggregation)
	if measure == "" {
		return label
	}
	return strings.TrimSpace(label + " " + measure)
}
