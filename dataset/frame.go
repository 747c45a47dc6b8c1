// Package dataset holds the raw tabular data between loading and analysis:
// row storage, exploration helpers and the bridge to engine records.
package dataset

import (
	"strconv"

	"github.com/spektr-org/studentperf/engine"
	"github.com/spektr-org/studentperf/schema"
)

// Frame is an in-memory table of raw cell values.
type Frame struct {
	Header []string
	Rows   [][]string
	Schema *schema.Config
}

// Shape returns (rows, columns).
func (f *Frame) Shape() (int, int) {
	return len(f.Rows), len(f.Header)
}

// Head returns up to n leading rows. The slices are shared with the frame.
func (f *Frame) Head(n int) [][]string {
	if n < 0 {
		n = 0
	}
	if n > len(f.Rows) {
		n = len(f.Rows)
	}
	return f.Rows[:n]
}

// NullCount is the number of missing cells in one column.
type NullCount struct {
	Column string
	Count  int
}

// NullCounts returns per-column missing counts in header order.
func (f *Frame) NullCounts() []NullCount {
	out := make([]NullCount, len(f.Header))
	for j, h := range f.Header {
		out[j].Column = h
	}
	for _, row := range f.Rows {
		for j := range f.Header {
			if j >= len(row) || schema.IsNull(row[j]) {
				out[j].Count++
			}
		}
	}
	return out
}

// TotalNulls sums NullCounts.
func (f *Frame) TotalNulls() int {
	total := 0
	for _, nc := range f.NullCounts() {
		total += nc.Count
	}
	return total
}

// DropNA returns a new Frame without rows holding any missing cell.
// Column dtypes and roles are carried over from f; counts and samples are
// recomputed for the remaining rows.
func (f *Frame) DropNA() (*Frame, error) {
	kept := make([][]string, 0, len(f.Rows))
	for _, row := range f.Rows {
		if rowComplete(row, len(f.Header)) {
			kept = append(kept, row)
		}
	}
	name := ""
	if f.Schema != nil {
		name = f.Schema.Name
	}
	cleaned, err := NewFrame(f.Header, kept, name)
	if err != nil {
		return nil, err
	}
	cleaned.Schema.KeepTypes(f.Schema)
	return cleaned, nil
}

func rowComplete(row []string, width int) bool {
	if len(row) < width {
		return false
	}
	for _, v := range row[:width] {
		if schema.IsNull(v) {
			return false
		}
	}
	return true
}

// ============================================================================
// ENGINE BRIDGE
// ============================================================================

// Records converts rows into engine records. Every non-null cell becomes a
// dimension (so any column can group or filter); numeric columns are also
// parsed into measures. Missing cells are absent from both maps.
func (f *Frame) Records() []engine.Record {
	numeric := make([]bool, len(f.Header))
	if f.Schema != nil {
		for j, h := range f.Header {
			numeric[j] = f.Schema.IsNumeric(h)
		}
	}

	records := make([]engine.Record, 0, len(f.Rows))
	for _, row := range f.Rows {
		rec := engine.Record{
			Dimensions: make(map[string]string, len(f.Header)),
			Measures:   make(map[string]float64),
		}
		for j, h := range f.Header {
			if j >= len(row) || schema.IsNull(row[j]) {
				continue
			}
			rec.Dimensions[h] = row[j]
			if numeric[j] {
				if v, err := strconv.ParseFloat(row[j], 64); err == nil {
					rec.Measures[h] = v
				}
			}
		}
		records = append(records, rec)
	}
	return records
}

// View returns the frame as an engine RecordView with keys in header order.
func (f *Frame) View() engine.RecordView {
	var measures []string
	if f.Schema != nil {
		measures = f.Schema.MeasureKeys()
	}
	return engine.NewOrderedSliceView(f.Records(), f.Header, measures)
}
