// Package studentperf explores the UCI student performance dataset.
//
// Usage:
//
//	studentperf --out plots --xlsx summary.xlsx
//
// The pipeline downloads the archive (or reads a local copy), extracts the
// semicolon separated CSV, prints an exploratory report, averages the final
// grade per category and renders four PNG plots. Runs can be recorded in
// SQLite and exported as a workbook or CSV.
//
// Packages:
//
//	fetch     download and ZIP member extraction
//	dataset   CSV parsing, null handling, frame info
//	schema    column dtype and role detection
//	engine    grouping, descriptive statistics, chart and table builders
//	plot      PNG rendering of chart configs
//	report    console printer, XLSX and CSV export
//	store     SQLite run history
//	analysis  the end-to-end pipeline
package studentperf
