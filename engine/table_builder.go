package engine

import (
	"strconv"
)

// ============================================================================
// TABLE BUILDER — Produces TableData from QuerySpec + Groups
// ============================================================================
// Rows carry the group label, the aggregate at six decimals and the
// group size, ready for console or CSV output.
// ============================================================================

// BuildTable produces a TableData with one row per group.
func BuildTable(spec QuerySpec, groups []Group, measure string) *TableData {
	return buildAggregatedTable(spec, groups, measure)
}

// ============================================================================
// AGGREGATED TABLE — Summary rows
// ============================================================================

func buildAggregatedTable(spec QuerySpec, groups []Group, measure string) *TableData {
	if len(groups) == 0 {
		return &TableData{
			Title:   spec.Title,
			Columns: []Column{},
			Rows:    [][]string{},
		}
	}

	groupLabel := "Group"
	if len(spec.GroupBy) > 0 {
		groupLabel = spec.GroupBy[0]
	}

	columns := []Column{
		{Key: "group", Label: groupLabel, Type: "text", Align: "left"},
		{Key: "value", Label: LabelForMeasure(spec.Aggregation, measure), Type: "number", Align: "right"},
		{Key: "count", Label: "Count", Type: "number", Align: "right"},
	}

	rows := make([][]string, 0, len(groups))
	var totalCount int
	for _, g := range groups {
		rows = append(rows, []string{
			g.Label,
			FormatNumber(g.Value, 6),
			strconv.Itoa(g.Count),
		})
		totalCount += g.Count
	}

	return &TableData{
		Title:   spec.Title,
		Columns: columns,
		Rows:    rows,
		Summary: &Summary{
			Label: "Total",
			Values: map[string]string{
				"count": strconv.Itoa(totalCount),
			},
		},
	}
}
