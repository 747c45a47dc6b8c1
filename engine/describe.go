package engine

import (
	"math"
	"sort"
)

// ============================================================================
// DESCRIBE — Summary statistics per numeric column
// ============================================================================
// count, mean, std, min, 25%, 50%, 75%, max. Missing cells are excluded
// from every statistic; std uses the sample (n-1) denominator.
// ============================================================================

// ColumnStats is one row of a describe table.
type ColumnStats struct {
	Key   string  `json:"key"`
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Q25   float64 `json:"q25"`
	Q50   float64 `json:"q50"`
	Q75   float64 `json:"q75"`
	Max   float64 `json:"max"`
}

// StatLabels are the describe row labels in output order.
var StatLabels = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// Values returns the statistics in StatLabels order.
func (s ColumnStats) Values() []float64 {
	return []float64{float64(s.Count), s.Mean, s.Std, s.Min, s.Q25, s.Q50, s.Q75, s.Max}
}

// Describe computes summary statistics for each key, in the order given.
// When keys is empty every measure key of the view is described.
func Describe(view RecordView, keys []string) []ColumnStats {
	if len(keys) == 0 {
		keys = view.MeasureKeys()
	}
	stats := make([]ColumnStats, 0, len(keys))
	for _, key := range keys {
		stats = append(stats, DescribeValues(key, MeasureValues(view, key)))
	}
	return stats
}

// DescribeValues computes the statistics of one value slice. The slice is
// not modified. An empty slice yields NaN for everything except Count.
func DescribeValues(key string, values []float64) ColumnStats {
	s := ColumnStats{Key: key, Count: len(values)}
	if len(values) == 0 {
		nan := math.NaN()
		s.Mean, s.Std, s.Min, s.Q25, s.Q50, s.Q75, s.Max = nan, nan, nan, nan, nan, nan, nan
		return s
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	s.Mean = Mean(sorted)
	s.Std = StdDev(sorted)
	s.Min = sorted[0]
	s.Q25 = Quantile(sorted, 0.25)
	s.Q50 = Quantile(sorted, 0.50)
	s.Q75 = Quantile(sorted, 0.75)
	s.Max = sorted[len(sorted)-1]
	return s
}

// Mean is the arithmetic mean, NaN for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev is the sample standard deviation. NaN for fewer than two values.
func StdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return math.NaN()
	}
	mean := Mean(values)
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// Quantile interpolates linearly between the closest ranks of an already
// sorted slice. q is clamped to [0,1].
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
