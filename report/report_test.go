package report

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/spektr-org/studentperf/dataset"
	"github.com/spektr-org/studentperf/engine"
	"github.com/spektr-org/studentperf/schema"
)

// ============================================================================
// PRINTER
// ============================================================================

func TestPrinterHead(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).Head([]string{"school", "G3"}, [][]string{{"GP", "6"}, {"MS", "10"}})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "school")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(lines[2]), "1"))
	assert.Contains(t, lines[2], "MS")
}

func TestPrinterInfo(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).Info(dataset.Info{
		Entries: 395,
		Columns: []dataset.InfoColumn{
			{Index: 0, Name: "school", NonNull: 395, Dtype: schema.DtypeObject},
			{Index: 1, Name: "G3", NonNull: 395, Dtype: schema.DtypeInt64},
		},
		Dtypes:           []schema.DtypeCount{{Dtype: schema.DtypeInt64, Count: 16}, {Dtype: schema.DtypeObject, Count: 17}},
		MemoryBytes:      104408,
		MemoryLowerBound: true,
	})

	out := buf.String()
	assert.Contains(t, out, "RangeIndex: 395 entries, 0 to 394")
	assert.Contains(t, out, "Data columns (total 2 columns):")
	assert.Contains(t, out, "395 non-null")
	assert.Contains(t, out, "dtypes: int64(16), object(17)")
	assert.Contains(t, out, "memory usage: 102.0+ KB")
}

func TestPrinterLargeCountsUngrouped(t *testing.T) {
	var buf bytes.Buffer
	pr := NewPrinter(&buf)
	pr.Info(dataset.Info{
		Entries: 1500,
		Columns: []dataset.InfoColumn{{Index: 0, Name: "G3", NonNull: 1500, Dtype: schema.DtypeInt64}},
		Dtypes:  []schema.DtypeCount{{Dtype: schema.DtypeInt64, Count: 1}},
	})
	pr.Shape("Shape", 1500, 2)

	out := buf.String()
	assert.Contains(t, out, "RangeIndex: 1500 entries, 0 to 1499")
	assert.Contains(t, out, "1500 non-null")
	assert.Contains(t, out, "Shape: (1500, 2)")
	assert.NotContains(t, out, "1,500")
}

func TestPrinterNullCountsAndShape(t *testing.T) {
	var buf bytes.Buffer
	pr := NewPrinter(&buf)
	pr.NullCounts([]dataset.NullCount{{Column: "age", Count: 0}, {Column: "G3", Count: 2}})
	pr.Shape("Shape after dropping NA", 393, 33)

	out := buf.String()
	assert.Regexp(t, `G3\s+2`, out)
	assert.Contains(t, out, "dtype: int64")
	assert.Contains(t, out, "Shape after dropping NA: (393, 33)")
}

func TestPrinterDescribe(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).Describe([]engine.ColumnStats{engine.DescribeValues("G3", []float64{1, 2, 3, 4})})

	out := buf.String()
	assert.Contains(t, out, "25%")
	assert.Contains(t, out, "4.0")
	assert.Contains(t, out, "2.500000")
	assert.Contains(t, out, "1.290994")

	buf.Reset()
	NewPrinter(&buf).Describe(nil)
	assert.Contains(t, buf.String(), "no numeric columns")
}

func TestPrinterGroupMeansAndFindings(t *testing.T) {
	var buf bytes.Buffer
	pr := NewPrinter(&buf)
	pr.GroupMeans("Mjob", "G3", groupTable([]engine.Group{{Label: "at_home", Value: 9.8}, {Label: "health", Value: 12.16}}))
	pr.Findings([]string{"first", "second"})

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Mjob\n"))
	assert.Contains(t, out, "9.800000")
	assert.Contains(t, out, "12.160000")
	assert.Contains(t, out, "Name: G3, dtype: float64")
	assert.Contains(t, out, "* first\n* second\n")
}

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "512 bytes", humanBytes(512, ""))
	assert.Equal(t, "1.5 KB", humanBytes(1536, ""))
	assert.Equal(t, "2.0+ MB", humanBytes(2*1024*1024, "+"))
}

// ============================================================================
// XLSX
// ============================================================================

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	summary := &Summary{
		Missing:  []dataset.NullCount{{Column: "age", Count: 1}},
		Describe: []engine.ColumnStats{engine.DescribeValues("G3", []float64{6, 10}), engine.DescribeValues("empty", nil)},
		GroupBy:  "Mjob",
		Measure:  "G3",
		GroupMeans: []engine.Group{
			{Label: "at_home", Value: 6, Count: 1},
			{Label: "health", Value: 10, Count: 1},
		},
	}
	require.NoError(t, WriteXLSX(path, summary))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"describe", "group_means", "missing"}, f.GetSheetList())

	rows, err := f.GetRows("describe")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "column", rows[0][0])
	assert.Equal(t, "25%", rows[0][5])
	assert.Equal(t, "G3", rows[1][0])
	assert.Equal(t, "2", rows[1][1])
	assert.Equal(t, "8", rows[1][2])

	rows, err = f.GetRows("group_means")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Mjob", "mean G3", "count"}, rows[0])
	assert.Equal(t, []string{"health", "10", "1"}, rows[2])

	rows, err = f.GetRows("missing")
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "1"}, rows[1])
}

func TestCellFloat(t *testing.T) {
	assert.Equal(t, "", cellFloat(math.NaN()))
	assert.Equal(t, 1.5, cellFloat(1.5))
}

// ============================================================================
// CSV
// ============================================================================

func groupTable(groups []engine.Group) *engine.TableData {
	spec := engine.QuerySpec{GroupBy: []string{"Mjob"}, Aggregation: "avg"}
	return engine.BuildTable(spec, groups, "G3")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, groupTable([]engine.Group{
		{Label: "at_home", Value: 6, Count: 2},
		{Label: "health", Value: 37.0 / 3, Count: 3},
	}))
	require.NoError(t, err)
	assert.Equal(t, "Mjob,Average G3,Count\nat_home,6.000000,2\nhealth,12.333333,3\n", buf.String())
}

func TestWriteCSVWithoutGrouping(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "Result,No data\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteCSV(&buf, groupTable(nil)))
	assert.Equal(t, "Result,No data\n", buf.String())
}
