package engine

import (
	"sort"
	"strings"
)

// ============================================================================
// FILTERS — Dimension-Based Filtering via RecordView
// ============================================================================
// Single-pass filter: checks ALL dimension constraints per record in one loop.
// Returns a SubView (index list into parent) — zero data copy.
// ============================================================================

// ApplyFilters returns a view of records matching all dimension filters.
// Dimensions are AND-combined; values within a dimension are OR-combined,
// compared case-insensitively. Empty filter = no restriction.
func ApplyFilters(view RecordView, filters Filters) RecordView {
	if filters.IsEmpty() {
		return view
	}

	sets := make(map[string]map[string]bool)
	for dim, allowed := range filters.Dimensions {
		if len(allowed) > 0 {
			sets[dim] = toLowerSet(allowed)
		}
	}

	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		pass := true
		for dim, set := range sets {
			if !set[strings.ToLower(view.Dimension(i, dim))] {
				pass = false
				break
			}
		}
		if pass {
			indices = append(indices, i)
		}
	}

	return newSubView(view, indices)
}

// FilterLabel renders filters as "school=GP; sex=F,M" with sorted keys,
// or "all records" when empty.
func FilterLabel(filters Filters) string {
	if filters.IsEmpty() {
		return "all records"
	}
	dims := filterKeys(filters)
	parts := make([]string, 0, len(dims))
	for _, dim := range dims {
		parts = append(parts, dim+"="+strings.Join(filters.Dimensions[dim], ","))
	}
	return strings.Join(parts, "; ")
}

// filterKeys returns the dimensions with at least one allowed value, sorted.
func filterKeys(filters Filters) []string {
	dims := make([]string, 0, len(filters.Dimensions))
	for dim, vals := range filters.Dimensions {
		if len(vals) > 0 {
			dims = append(dims, dim)
		}
	}
	sort.Strings(dims)
	return dims
}

func toLowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToLower(item)] = true
	}
	return set
}
