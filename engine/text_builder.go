package engine

// ============================================================================
// TEXT BUILDER — Produces TextData for single-value queries
// ============================================================================

// BuildText reduces the filtered view to one value of the requested aggregation.
func BuildText(spec QuerySpec, view RecordView, measure string) *TextData {
	if view.Len() == 0 {
		return &TextData{Value: "0", Measure: measure}
	}

	value := Aggregate(view, measure, spec.Aggregation)

	var formatted string
	if spec.Aggregation == "count" {
		formatted = FormatNumber(value, 0)
	} else {
		formatted = FormatNumber(value, 2)
	}

	return &TextData{
		Value:    formatted,
		RawValue: value,
		Measure:  measure,
		Count:    view.Len(),
	}
}
