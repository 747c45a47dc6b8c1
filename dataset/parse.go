package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spektr-org/studentperf/schema"
)

// ============================================================================
// CSV LOADER — Parses delimited bytes into a Frame
// ============================================================================
// The caller fetches the bytes (download, archive member, local file).
// This loader splits them into header + rows and discovers the schema.
// ============================================================================

// ParseOptions controls CSV parsing.
type ParseOptions struct {
	Delimiter rune   // Default: ','
	Name      string // Dataset name recorded in the schema
}

// ParseCSV parses CSV bytes into a Frame. Every row must have as many
// fields as the header; a ragged row is an error naming its line.
func ParseCSV(data []byte, opts ParseOptions) (*Frame, error) {
	delim := opts.Delimiter
	if delim == 0 {
		delim = ','
	}

	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delim
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("dataset is empty")
		}
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		rows = append(rows, row)
	}

	return NewFrame(header, rows, opts.Name)
}

// NewFrame builds a Frame and discovers its schema.
func NewFrame(header []string, rows [][]string, name string) (*Frame, error) {
	sch, err := schema.Discover(header, rows, schema.DiscoverOptions{Name: name})
	if err != nil {
		return nil, fmt.Errorf("discover schema: %w", err)
	}
	return &Frame{Header: header, Rows: rows, Schema: sch}, nil
}
