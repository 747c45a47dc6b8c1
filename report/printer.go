// Package report writes the analysis to the console and to spreadsheets.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/spektr-org/studentperf/dataset"
	"github.com/spektr-org/studentperf/engine"
)

// ============================================================================
// CONSOLE PRINTER — Human-readable tables on stdout
// ============================================================================
// Layouts follow the familiar data-frame printouts: an index column for
// row listings, one "name  value" line per column for series, a dtype
// footer where one applies.
// ============================================================================

// Printer formats report sections onto an io.Writer. Numbers are printed
// without digit grouping, as data-frame printouts do.
type Printer struct {
	w io.Writer
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Line prints one formatted line.
func (pr *Printer) Line(format string, args ...any) {
	fmt.Fprintf(pr.w, format+"\n", args...)
}

// Section prints "\n--- title ---".
func (pr *Printer) Section(title string) {
	pr.Line("\n--- %s ---", title)
}

// Head prints a row listing with a leading positional index.
func (pr *Printer) Head(header []string, rows [][]string) {
	tw := pr.table()
	fmt.Fprintln(tw, "\t"+strings.Join(header, "\t")+"\t")
	for i, row := range rows {
		fmt.Fprintf(tw, "%d\t%s\t\n", i, strings.Join(row, "\t"))
	}
	tw.Flush()
}

// Info prints the structural summary of a frame.
func (pr *Printer) Info(info dataset.Info) {
	pr.Line("<class 'dataset.Frame'>")
	if info.Entries == 0 {
		pr.Line("RangeIndex: 0 entries")
	} else {
		pr.Line("RangeIndex: %d entries, 0 to %d", info.Entries, info.Entries-1)
	}
	pr.Line("Data columns (total %d columns):", len(info.Columns))

	tw := pr.table()
	fmt.Fprintln(tw, " #\tColumn\tNon-Null Count\tDtype\t")
	fmt.Fprintln(tw, "---\t------\t--------------\t-----\t")
	for _, c := range info.Columns {
		fmt.Fprintf(tw, " %d\t%s\t%d non-null\t%s\t\n", c.Index, c.Name, c.NonNull, c.Dtype)
	}
	tw.Flush()

	parts := make([]string, 0, len(info.Dtypes))
	for _, dc := range info.Dtypes {
		parts = append(parts, fmt.Sprintf("%s(%d)", dc.Dtype, dc.Count))
	}
	pr.Line("dtypes: %s", strings.Join(parts, ", "))

	suffix := ""
	if info.MemoryLowerBound {
		suffix = "+"
	}
	pr.Line("memory usage: %s", humanBytes(info.MemoryBytes, suffix))
}

// NullCounts prints one "column  count" line per column.
func (pr *Printer) NullCounts(counts []dataset.NullCount) {
	tw := pr.table()
	for _, nc := range counts {
		fmt.Fprintf(tw, "%s\t%d\t\n", nc.Column, nc.Count)
	}
	tw.Flush()
	pr.Line("dtype: int64")
}

// Shape prints "<label>: (rows, cols)".
func (pr *Printer) Shape(label string, rows, cols int) {
	pr.Line("%s: (%d, %d)", label, rows, cols)
}

// Describe prints one row per column: count, mean, std, min, quartiles, max.
func (pr *Printer) Describe(stats []engine.ColumnStats) {
	if len(stats) == 0 {
		pr.Line("(no numeric columns)")
		return
	}
	tw := pr.table()
	fmt.Fprintln(tw, "\t"+strings.Join(engine.StatLabels, "\t")+"\t")
	for _, s := range stats {
		cells := make([]string, 0, len(engine.StatLabels))
		for i, v := range s.Values() {
			if i == 0 {
				cells = append(cells, engine.FormatNumber(v, 1))
				continue
			}
			cells = append(cells, engine.FormatNumber(v, 6))
		}
		fmt.Fprintf(tw, "%s\t%s\t\n", s.Key, strings.Join(cells, "\t"))
	}
	tw.Flush()
}

// GroupMeans prints a grouped series from an aggregated table: index name
// line, one "label  value" line per row, then the series name and dtype.
func (pr *Printer) GroupMeans(groupBy, measure string, table *engine.TableData) {
	pr.Line("%s", groupBy)
	tw := pr.table()
	for _, row := range table.Rows {
		if len(row) < 2 {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t\n", row[0], row[1])
	}
	tw.Flush()
	pr.Line("Name: %s, dtype: float64", measure)
}

// Findings prints bullet lines.
func (pr *Printer) Findings(lines []string) {
	for _, l := range lines {
		pr.Line("* %s", l)
	}
}

func (pr *Printer) table() *tabwriter.Writer {
	return tabwriter.NewWriter(pr.w, 0, 0, 2, ' ', tabwriter.AlignRight)
}

// humanBytes renders a byte count in binary units with one decimal.
func humanBytes(n int64, suffix string) string {
	units := []string{"bytes", "KB", "MB", "GB"}
	v := float64(n)
	i := 0
	for v >= 1024 && i < len(units)-1 {
		v /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d%s %s", n, suffix, units[0])
	}
	return fmt.Sprintf("%.1f%s %s", math.Round(v*10)/10, suffix, units[i])
}
