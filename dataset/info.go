package dataset

import (
	"github.com/spektr-org/studentperf/schema"
)

// Info summarises structure: index range, per-column non-null counts and
// dtypes, dtype totals and an estimated memory footprint.
type Info struct {
	Entries     int
	Columns     []InfoColumn
	Dtypes      []schema.DtypeCount
	MemoryBytes int64
	// MemoryLowerBound is set when object columns exist: their string
	// payloads are not counted, only the references.
	MemoryLowerBound bool
}

// InfoColumn is one line of the per-column listing.
type InfoColumn struct {
	Index   int
	Name    string
	NonNull int
	Dtype   schema.Dtype
}

const (
	cellBytes  = 8   // one int64 / float64 / reference per cell
	indexBytes = 128 // range index overhead
)

// Info builds the structural summary.
func (f *Frame) Info() Info {
	rows, cols := f.Shape()
	info := Info{
		Entries:     rows,
		Columns:     make([]InfoColumn, 0, cols),
		MemoryBytes: int64(rows)*int64(cols)*cellBytes + indexBytes,
	}

	nulls := f.NullCounts()
	for j, h := range f.Header {
		dtype := schema.DtypeObject
		if f.Schema != nil {
			if col, ok := f.Schema.Column(h); ok {
				dtype = col.Dtype
			}
		}
		if dtype == schema.DtypeBool {
			info.MemoryBytes -= int64(rows) * (cellBytes - 1)
		}
		if dtype == schema.DtypeObject {
			info.MemoryLowerBound = true
		}
		info.Columns = append(info.Columns, InfoColumn{
			Index:   j,
			Name:    h,
			NonNull: rows - nulls[j].Count,
			Dtype:   dtype,
		})
	}

	if f.Schema != nil {
		info.Dtypes = f.Schema.DtypeCounts()
	}
	return info
}
