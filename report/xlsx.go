package report

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/spektr-org/studentperf/dataset"
	"github.com/spektr-org/studentperf/engine"
)

// Summary is everything one analysis run produces that is worth keeping.
type Summary struct {
	Source     string
	RowsBefore int
	RowsAfter  int
	Columns    int
	Missing    []dataset.NullCount // before cleaning
	Describe   []engine.ColumnStats
	GroupBy    string
	Measure    string
	GroupMeans []engine.Group    // empty when grouping was skipped
	GroupTable *engine.TableData // rendered group means, nil when skipped
	Plots      []string          // written image paths
	Skipped    []string          // plots not drawn, with reason
}

const (
	sheetDescribe   = "describe"
	sheetGroupMeans = "group_means"
	sheetMissing    = "missing"
)

// WriteXLSX saves the summary as a workbook with describe, group_means and
// missing sheets.
func WriteXLSX(path string, s *Summary) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", sheetDescribe); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{sheetGroupMeans, sheetMissing} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	// describe
	header := append([]any{"column"}, toAny(engine.StatLabels)...)
	rows := make([][]any, 0, len(s.Describe))
	for _, st := range s.Describe {
		row := []any{st.Key}
		for _, v := range st.Values() {
			row = append(row, cellFloat(v))
		}
		rows = append(rows, row)
	}
	if err := writeSheet(f, sheetDescribe, header, rows, bold); err != nil {
		return err
	}

	// group_means
	rows = rows[:0]
	for _, g := range s.GroupMeans {
		rows = append(rows, []any{g.Label, cellFloat(g.Value), g.Count})
	}
	header = []any{orDash(s.GroupBy), "mean " + orDash(s.Measure), "count"}
	if err := writeSheet(f, sheetGroupMeans, header, rows, bold); err != nil {
		return err
	}

	// missing
	rows = rows[:0]
	for _, nc := range s.Missing {
		rows = append(rows, []any{nc.Column, nc.Count})
	}
	if err := writeSheet(f, sheetMissing, []any{"column", "missing"}, rows, bold); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("%s header style: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// cellFloat keeps NaN out of the workbook; an empty cell reads as missing.
func cellFloat(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return v
}

func toAny(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
