package report

import (
	"encoding/csv"
	"io"

	"github.com/spektr-org/studentperf/engine"
)

// WriteCSV writes an aggregated table as sheet-ready CSV: the column labels,
// then one line per row. A nil table writes a single "No data" row.
func WriteCSV(w io.Writer, table *engine.TableData) error {
	cw := csv.NewWriter(w)

	if table == nil || len(table.Columns) == 0 {
		if err := cw.Write([]string{"Result", "No data"}); err != nil {
			return err
		}
		cw.Flush()
		return cw.Error()
	}

	headers := make([]string, 0, len(table.Columns))
	for _, c := range table.Columns {
		headers = append(headers, c.Label)
	}
	if err := cw.Write(headers); err != nil {
		return err
	}
	for _, row := range table.Rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
