package engine

import (
	"math"
	"sort"
)

// ============================================================================
// DISTRIBUTIONS — Histogram bins, kernel density, box statistics
// ============================================================================

// Bin is one histogram bucket covering [Low, High). The last bin of a
// histogram is closed on both ends.
type Bin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// Width returns High - Low.
func (b Bin) Width() float64 { return b.High - b.Low }

// Histogram splits values into equal-width bins over [min, max]. When all
// values are equal the range is widened by 0.5 on each side.
func Histogram(values []float64, bins int) []Bin {
	if len(values) == 0 || bins <= 0 {
		return nil
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Low = lo + float64(i)*width
		out[i].High = lo + float64(i+1)*width
	}
	out[bins-1].High = hi

	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		out[idx].Count++
	}
	return out
}

// ScottBandwidth is n^(-1/5) times the sample standard deviation.
func ScottBandwidth(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	return math.Pow(float64(len(values)), -0.2) * StdDev(values)
}

// KDE evaluates a gaussian kernel density estimate at `points` evenly
// spaced positions over [min, max]. Densities are multiplied by
// len(values)*binWidth so the curve sits on the scale of histogram counts;
// pass binWidth 1 for a plain density. Degenerate input (fewer than two
// values or zero variance) yields nil.
func KDE(values []float64, points int, binWidth float64) []XYPoint {
	if points < 2 {
		return nil
	}
	bw := ScottBandwidth(values)
	if math.IsNaN(bw) || bw == 0 {
		return nil
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	n := float64(len(values))
	norm := 1 / (n * bw * math.Sqrt(2*math.Pi))
	scale := n * binWidth
	step := (hi - lo) / float64(points-1)

	curve := make([]XYPoint, points)
	for i := range curve {
		x := lo + float64(i)*step
		var density float64
		for _, v := range values {
			u := (x - v) / bw
			density += math.Exp(-0.5 * u * u)
		}
		curve[i] = XYPoint{X: x, Y: density * norm * scale}
	}
	return curve
}

// BoxStats summarises one box of a box plot.
type BoxStats struct {
	Label       string    `json:"label"`
	Count       int       `json:"count"`
	Q1          float64   `json:"q1"`
	Median      float64   `json:"median"`
	Q3          float64   `json:"q3"`
	WhiskerLow  float64   `json:"whiskerLow"`
	WhiskerHigh float64   `json:"whiskerHigh"`
	Fliers      []float64 `json:"fliers,omitempty"`
}

// IQR returns Q3 - Q1.
func (b BoxStats) IQR() float64 { return b.Q3 - b.Q1 }

// ComputeBox derives quartiles and whiskers. Whiskers sit on the most
// extreme values within 1.5 IQR of the box; values beyond are fliers.
func ComputeBox(label string, values []float64) BoxStats {
	box := BoxStats{Label: label, Count: len(values)}
	if len(values) == 0 {
		nan := math.NaN()
		box.Q1, box.Median, box.Q3, box.WhiskerLow, box.WhiskerHigh = nan, nan, nan, nan, nan
		return box
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	box.Q1 = Quantile(sorted, 0.25)
	box.Median = Quantile(sorted, 0.5)
	box.Q3 = Quantile(sorted, 0.75)

	fence := 1.5 * box.IQR()
	lowFence, highFence := box.Q1-fence, box.Q3+fence

	box.WhiskerLow, box.WhiskerHigh = box.Q1, box.Q3
	for _, v := range sorted {
		if v >= lowFence {
			box.WhiskerLow = v
			break
		}
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i] <= highFence {
			box.WhiskerHigh = sorted[i]
			break
		}
	}
	for _, v := range sorted {
		if v < lowFence || v > highFence {
			box.Fliers = append(box.Fliers, v)
		}
	}
	return box
}
