package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/studentperf/engine"
	"github.com/spektr-org/studentperf/schema"
)

var studentCSV = []byte("\xef\xbb\xbf" + `school;sex;age;Mjob;studytime;internet;G3
"GP";"F";18;"at_home";2;"no";6
"GP";"F";17;"at_home";2;"yes";6
"GP";"F";15;"health";3;"yes";
"GP";"M";16;"other";2;"yes";15
"MS";"M";NA;"services";1;"no";10
`)

func parseStudents(t *testing.T) *Frame {
	t.Helper()
	frame, err := ParseCSV(studentCSV, ParseOptions{Delimiter: ';', Name: "student-mat"})
	require.NoError(t, err)
	return frame
}

// ============================================================================
// PARSING
// ============================================================================

func TestParseCSV(t *testing.T) {
	frame := parseStudents(t)

	rows, cols := frame.Shape()
	assert.Equal(t, 5, rows)
	assert.Equal(t, 7, cols)
	assert.Equal(t, "school", frame.Header[0], "BOM is stripped")
	assert.Equal(t, []string{"GP", "F", "18", "at_home", "2", "no", "6"}, frame.Rows[0], "quotes are removed")
	assert.Equal(t, "student-mat", frame.Schema.Name)
	assert.True(t, frame.Schema.IsNumeric("G3"))
	assert.False(t, frame.Schema.IsNumeric("Mjob"))
}

func TestParseCSVDefaultDelimiter(t *testing.T) {
	frame, err := ParseCSV([]byte("a,b\n1, 2\n"), ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, frame.Rows[0])
}

func TestParseCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"ragged row", "a;b\n1;2;3\n"},
		{"duplicate header", "a;a\n1;2\n"},
		{"empty header cell", "a;\n1;2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV([]byte(tt.data), ParseOptions{Delimiter: ';'})
			assert.Error(t, err)
		})
	}
}

// ============================================================================
// EXPLORATION
// ============================================================================

func TestHead(t *testing.T) {
	frame := parseStudents(t)
	assert.Len(t, frame.Head(2), 2)
	assert.Len(t, frame.Head(50), 5)
	assert.Empty(t, frame.Head(-1))
}

func TestNullCountsAndDropNA(t *testing.T) {
	frame := parseStudents(t)

	nulls := frame.NullCounts()
	require.Len(t, nulls, 7)
	assert.Equal(t, NullCount{Column: "age", Count: 1}, nulls[2])
	assert.Equal(t, NullCount{Column: "G3", Count: 1}, nulls[6])
	assert.Equal(t, 2, frame.TotalNulls())

	cleaned, err := frame.DropNA()
	require.NoError(t, err)
	rows, cols := cleaned.Shape()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 7, cols)
	assert.Zero(t, cleaned.TotalNulls())
	assert.Equal(t, "student-mat", cleaned.Schema.Name)

	rows, _ = frame.Shape()
	assert.Equal(t, 5, rows, "original frame is untouched")
}

func TestDropNAKeepsDtypes(t *testing.T) {
	frame, err := ParseCSV([]byte("G3;code\n5;1\n;oops\n7;2\n"), ParseOptions{Delimiter: ';'})
	require.NoError(t, err)
	col, _ := frame.Schema.Column("code")
	require.Equal(t, schema.DtypeObject, col.Dtype)

	cleaned, err := frame.DropNA()
	require.NoError(t, err)
	col, ok := cleaned.Schema.Column("code")
	require.True(t, ok)
	assert.Equal(t, schema.DtypeObject, col.Dtype)
	assert.Equal(t, schema.RoleDimension, col.Role)
	assert.Equal(t, 2, col.UniqueCount)
	assert.Equal(t, []string{"G3"}, cleaned.Schema.MeasureKeys())
	assert.False(t, cleaned.View().HasMeasure(0, "code"))
}

func TestDropNAEverythingMissing(t *testing.T) {
	frame, err := ParseCSV([]byte("a;b\n1;\n;2\n"), ParseOptions{Delimiter: ';'})
	require.NoError(t, err)
	cleaned, err := frame.DropNA()
	require.NoError(t, err)
	rows, _ := cleaned.Shape()
	assert.Zero(t, rows)
}

func TestInfo(t *testing.T) {
	frame := parseStudents(t)
	info := frame.Info()

	assert.Equal(t, 5, info.Entries)
	require.Len(t, info.Columns, 7)
	assert.Equal(t, InfoColumn{Index: 2, Name: "age", NonNull: 4, Dtype: schema.DtypeInt64}, info.Columns[2])
	assert.Equal(t, schema.DtypeObject, info.Columns[0].Dtype)
	assert.Equal(t, int64(5*7*8+128), info.MemoryBytes)
	assert.True(t, info.MemoryLowerBound)

	counts := map[schema.Dtype]int{}
	for _, dc := range info.Dtypes {
		counts[dc.Dtype] = dc.Count
	}
	assert.Equal(t, 3, counts[schema.DtypeInt64])
	assert.Equal(t, 4, counts[schema.DtypeObject])
}

func TestInfoBoolColumns(t *testing.T) {
	frame, err := ParseCSV([]byte("flag;n\ntrue;1\nfalse;2\n"), ParseOptions{Delimiter: ';'})
	require.NoError(t, err)
	info := frame.Info()
	assert.Equal(t, int64(2*1+2*8+128), info.MemoryBytes)
	assert.False(t, info.MemoryLowerBound)
}

// ============================================================================
// ENGINE BRIDGE
// ============================================================================

func TestRecordsAndView(t *testing.T) {
	frame := parseStudents(t)
	records := frame.Records()
	require.Len(t, records, 5)

	assert.Equal(t, "at_home", records[0].Dimensions["Mjob"])
	assert.Equal(t, 6.0, records[0].Measures["G3"])
	assert.Equal(t, "6", records[0].Dimensions["G3"], "numeric cells are dimensions too")
	_, hasG3 := records[2].Measures["G3"]
	assert.False(t, hasG3, "missing cells are absent")

	view := frame.View()
	assert.Equal(t, frame.Header, view.DimensionKeys())
	assert.Equal(t, []string{"age", "studytime", "G3"}, view.MeasureKeys())

	groups := engine.GroupAndAggregate(view, []string{"Mjob"}, "G3", "avg", "label_asc", 0)
	require.Len(t, groups, 4)
	assert.Equal(t, "at_home", groups[0].Key)
	assert.InDelta(t, 6.0, groups[0].Value, 1e-9)
}
