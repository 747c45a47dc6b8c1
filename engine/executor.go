package engine

import (
	"fmt"
	"regexp"
	"strings"
)

// ============================================================================
// EXECUTOR — Dispatcher + Placeholder Resolution
// ============================================================================
// Entry point: Execute(spec, view, opts...)
//
// Pipeline:
//   0. Validate filter, measure and group-by keys
//   1. Apply filters from QuerySpec → SubView
//   2. Group and aggregate
//   3. Dispatch to builder (chart / table / text)
//   4. Resolve reply template placeholders
//   5. Return Result
// ============================================================================

// Execute runs a QuerySpec against a RecordView and returns a render-ready Result.
//
// Options:
//   - WithDefaultMeasure(key) — sets the measure when QuerySpec.Measure is empty
//   - WithLogger(log) — debug events for each stage
func Execute(spec QuerySpec, view RecordView, opts ...Option) (*Result, error) {
	cfg := applyOptions(opts)
	log := cfg.Logger

	measure := spec.Measure
	if measure == "" {
		measure = cfg.DefaultMeasure
	}
	spec.Measure = measure

	for _, dim := range filterKeys(spec.Filters) {
		if !HasDimensionKey(view, dim) {
			return nil, fmt.Errorf("filter column %q does not exist", dim)
		}
	}

	if view.Len() == 0 {
		return &Result{
			Success: true,
			Type:    "text",
			Reply:   "No data available to analyze.",
			View:    view,
		}, nil
	}

	if spec.Aggregation != "count" && !HasMeasureKey(view, measure) {
		return nil, fmt.Errorf("measure %q is not a numeric column", measure)
	}
	for _, dim := range spec.GroupBy {
		if !HasDimensionKey(view, dim) {
			return nil, fmt.Errorf("group-by column %q does not exist", dim)
		}
	}

	log.Debug().
		Int("records", view.Len()).
		Str("intent", spec.Intent).
		Str("visualize", spec.Visualize).
		Str("aggregation", spec.Aggregation).
		Str("measure", measure).
		Msg("executing query")

	// 1. Apply filters → SubView (zero-copy)
	filtered := ApplyFilters(view, spec.Filters)
	if filtered.Len() == 0 {
		return &Result{
			Success: true,
			Type:    "text",
			Reply:   "No records match the filters " + FilterLabel(spec.Filters) + ".",
			View:    filtered,
		}, nil
	}
	log.Debug().Int("kept", filtered.Len()).Int("total", view.Len()).Msg("filters applied")

	// 2. Group and aggregate
	groups := GroupAndAggregate(filtered, spec.GroupBy, measure, spec.Aggregation, spec.SortBy, spec.Limit)

	// 3. Dispatch to builder
	result := &Result{Success: true, Title: spec.Title, Groups: groups, View: filtered}

	switch spec.Intent {
	case "chart":
		result.Type = "chart"
		result.ChartConfig = BuildChart(spec, groups)
		if result.ChartConfig == nil {
			result.Type = "text"
			result.Reply = "Not enough data to generate a chart."
			return result, nil
		}

	case "table":
		result.Type = "table"
		result.TableData = BuildTable(spec, groups, measure)

	default:
		result.Type = "text"
		result.Data = BuildText(spec, filtered, measure)
	}

	// 4. Resolve reply template placeholders
	result.Reply = ResolvePlaceholders(spec.Reply, groups, filtered, measure)
	return result, nil
}

// ============================================================================
// PLACEHOLDER RESOLUTION
// ============================================================================

// ResolvePlaceholders substitutes computed values into the reply template.
// Supported: {top_category} {top_value} {bottom_category} {bottom_value}
// {count} {avg} {max} {min} {total} {measure}. Unresolved placeholders are
// stripped.
func ResolvePlaceholders(template string, groups []Group, view RecordView, measure string) string {
	if template == "" {
		return buildDefaultReply(view, measure)
	}

	replacements := map[string]string{
		"{count}":   fmt.Sprintf("%d", view.Len()),
		"{measure}": measure,
	}

	if CountMeasure(view, measure) > 0 {
		replacements["{total}"] = FormatNumber(SumMeasure(view, measure), 2)
		replacements["{avg}"] = FormatNumber(AvgMeasure(view, measure), 2)
		replacements["{max}"] = FormatNumber(MaxMeasure(view, measure), 2)
		replacements["{min}"] = FormatNumber(MinMeasure(view, measure), 2)
	}

	if len(groups) > 0 {
		top, bottom := groups[0], groups[0]
		for _, g := range groups[1:] {
			if g.Value > top.Value {
				top = g
			}
			if g.Value < bottom.Value {
				bottom = g
			}
		}
		replacements["{top_category}"] = top.Label
		replacements["{top_value}"] = FormatNumber(top.Value, 2)
		replacements["{bottom_category}"] = bottom.Label
		replacements["{bottom_value}"] = FormatNumber(bottom.Value, 2)
	}

	result := template
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	return stripUnresolvedPlaceholders(result)
}

// ============================================================================
// QUERYSPEC NORMALIZATION
// ============================================================================

// NormalizeQuerySpec applies deterministic rules to inconsistent specs.
func NormalizeQuerySpec(spec QuerySpec) QuerySpec {
	if spec.Intent == "" {
		spec.Intent = "text"
	}

	// Charts must have a groupBy dimension
	if spec.Intent == "chart" && len(spec.GroupBy) == 0 {
		spec.Intent = "text"
		spec.Visualize = "text"
	}

	if spec.Intent == "chart" && spec.Visualize == "" {
		spec.Visualize = "bar"
	}

	if spec.Aggregation == "" {
		spec.Aggregation = "avg"
	}

	return spec
}

// ============================================================================
// INTERNAL HELPERS
// ============================================================================

func buildDefaultReply(view RecordView, measure string) string {
	if view.Len() == 0 {
		return "No matching records found."
	}
	if CountMeasure(view, measure) == 0 {
		return fmt.Sprintf("Found %d records.", view.Len())
	}
	return fmt.Sprintf("Found %d records with mean %s of %s.",
		view.Len(), measure, FormatNumber(AvgMeasure(view, measure), 2))
}

var placeholderRegex = regexp.MustCompile(`\{[a-z_]+\}`)

func stripUnresolvedPlaceholders(text string) string {
	cleaned := placeholderRegex.ReplaceAllString(text, "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	cleaned = strings.TrimRight(cleaned, " ,;:-")
	if cleaned == "" {
		return text
	}
	return cleaned
}
