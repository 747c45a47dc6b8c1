// Package analysis runs the student performance pipeline: load, explore,
// clean, summarise, group and plot.
package analysis

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/spektr-org/studentperf/config"
	"github.com/spektr-org/studentperf/dataset"
	"github.com/spektr-org/studentperf/engine"
	"github.com/spektr-org/studentperf/fetch"
	"github.com/spektr-org/studentperf/plot"
	"github.com/spektr-org/studentperf/report"
	"github.com/spektr-org/studentperf/store"
)

// Stage names used in StageError.
const (
	StageLoading       = "data loading"
	StageAnalysis      = "data analysis"
	StageVisualization = "visualization"
	StageExport        = "export"
	StagePersistence   = "persistence"
)

// StageError tags a failure with the pipeline stage it happened in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }
func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// Loader fetches the raw CSV bytes. *fetch.Client satisfies it.
type Loader interface {
	Load(ctx context.Context, src fetch.Source) ([]byte, error)
}

// RunStore records finished runs. *store.Store satisfies it.
type RunStore interface {
	SaveRun(ctx context.Context, run store.Run) (string, error)
}

// Deps are the collaborators of Run. Store may be nil.
type Deps struct {
	Loader Loader
	Store  RunStore
	Out    io.Writer
	Log    zerolog.Logger
}

// Summary is the outcome of one run.
type Summary struct {
	report.Summary
	RunID string
}

// Run executes the whole pipeline, printing the report to deps.Out.
func Run(ctx context.Context, cfg *config.Config, deps Deps) (*Summary, error) {
	pr := report.NewPrinter(deps.Out)
	log := deps.Log

	// ── Load ─────────────────────────────────────────────────────────────
	src := fetch.Source{URL: cfg.DatasetURL, Path: cfg.DatasetFile, Member: cfg.DatasetMember}
	if src.Path == "" {
		pr.Line("--- Loading Data from UCI Repository (using ZIP archive) ---")
		pr.Line("Attempting to download ZIP archive from: %s", src.URL)
	} else {
		pr.Line("--- Loading Data from %s ---", src.Path)
	}

	raw, err := deps.Loader.Load(ctx, src)
	if err != nil {
		return nil, stageErr(StageLoading, err)
	}
	frame, err := dataset.ParseCSV(raw, dataset.ParseOptions{Delimiter: cfg.Delimiter(), Name: cfg.DatasetMember})
	if err != nil {
		return nil, stageErr(StageLoading, err)
	}
	pr.Line("Successfully loaded '%s' into a data frame.", cfg.DatasetMember)
	log.Info().Str("source", src.String()).Int("rows", len(frame.Rows)).Int("columns", len(frame.Header)).Msg("dataset loaded")

	summary := &Summary{}
	summary.Source = src.String()
	summary.GroupBy = cfg.GroupBy
	summary.Measure = cfg.GroupMeasure

	// ── Task 1: explore and clean ────────────────────────────────────────
	cleaned, err := explore(pr, cfg, frame, summary)
	if err != nil {
		return nil, stageErr(StageLoading, err)
	}

	view, err := selectRows(pr, cfg, cleaned, log)
	if err != nil {
		return nil, stageErr(StageAnalysis, err)
	}

	// ── Task 2: statistics and grouping ──────────────────────────────────
	groups, err := analyze(pr, cfg, cleaned, view, summary, log)
	if err != nil {
		return nil, stageErr(StageAnalysis, err)
	}

	// ── Task 3: plots ────────────────────────────────────────────────────
	if err := visualize(pr, cfg, cleaned, view, groups, summary, log); err != nil {
		return nil, stageErr(StageVisualization, err)
	}

	// ── Outputs ──────────────────────────────────────────────────────────
	if cfg.XLSXPath != "" {
		if err := report.WriteXLSX(cfg.XLSXPath, &summary.Summary); err != nil {
			return nil, stageErr(StageExport, err)
		}
		pr.Line("\nSummary workbook written to %s", cfg.XLSXPath)
		log.Info().Str("path", cfg.XLSXPath).Msg("workbook written")
	}

	if cfg.CSVPath != "" {
		if err := writeCSVFile(cfg.CSVPath, &summary.Summary); err != nil {
			return nil, stageErr(StageExport, err)
		}
		pr.Line("Group means written to %s", cfg.CSVPath)
	}

	if deps.Store != nil {
		id, err := deps.Store.SaveRun(ctx, store.Run{
			Source:     summary.Source,
			RowsBefore: summary.RowsBefore,
			RowsAfter:  summary.RowsAfter,
			Columns:    summary.Columns,
			GroupBy:    summary.GroupBy,
			Measure:    summary.Measure,
			Stats:      summary.Describe,
			GroupMeans: store.GroupMeansFrom(summary.GroupMeans),
		})
		if err != nil {
			return nil, stageErr(StagePersistence, err)
		}
		summary.RunID = id
		log.Info().Str("run_id", id).Msg("run recorded")
	}

	return summary, nil
}

func writeCSVFile(path string, s *report.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := report.WriteCSV(f, s.GroupTable); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// ============================================================================
// TASK 1 — Explore
// ============================================================================

func explore(pr *report.Printer, cfg *config.Config, frame *dataset.Frame, summary *Summary) (*dataset.Frame, error) {
	pr.Section("Task 1: Explore")

	pr.Line("\nFirst %d rows of the dataset:", cfg.HeadRows)
	pr.Head(frame.Header, frame.Head(cfg.HeadRows))

	pr.Line("\nDataset Information (Data Types, Non-Null Counts):")
	pr.Info(frame.Info())

	summary.Missing = frame.NullCounts()
	pr.Line("\nMissing values per column (before cleaning):")
	pr.NullCounts(summary.Missing)

	rows, cols := frame.Shape()
	summary.RowsBefore, summary.Columns = rows, cols
	pr.Shape("\nShape before dropping NA (if any)", rows, cols)

	cleaned, err := frame.DropNA()
	if err != nil {
		return nil, fmt.Errorf("drop missing rows: %w", err)
	}
	rows, cols = cleaned.Shape()
	summary.RowsAfter = rows
	pr.Shape("Shape after dropping NA", rows, cols)

	pr.Line("\nMissing values per column (after cleaning):")
	pr.NullCounts(cleaned.NullCounts())
	return cleaned, nil
}

// selectRows narrows the cleaned frame to the configured filters. Unknown
// filter columns are an error.
func selectRows(pr *report.Printer, cfg *config.Config, frame *dataset.Frame, log zerolog.Logger) (engine.RecordView, error) {
	filters := engine.Filters{Dimensions: cfg.Filters}
	result, err := engine.Execute(engine.NormalizeQuerySpec(engine.QuerySpec{
		Aggregation: "count",
		Filters:     filters,
	}), frame.View(), engine.WithDefaultMeasure(cfg.GroupMeasure), engine.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("apply filters: %w", err)
	}
	if !filters.IsEmpty() {
		pr.Line("\nRows matching %s: %d", engine.FilterLabel(filters), result.View.Len())
		log.Info().Str("filters", engine.FilterLabel(filters)).Int("rows", result.View.Len()).Msg("filters applied")
	}
	return result.View, nil
}

// ============================================================================
// TASK 2 — Statistics and grouping
// ============================================================================

func analyze(pr *report.Printer, cfg *config.Config, frame *dataset.Frame, view engine.RecordView, summary *Summary, log zerolog.Logger) ([]engine.Group, error) {
	pr.Section("Task 2: Basic Data Analysis")

	pr.Line("\nBasic statistics for numerical columns:")
	summary.Describe = engine.Describe(view, frame.Schema.MeasureKeys())
	pr.Describe(summary.Describe)

	by, measure := cfg.GroupBy, cfg.GroupMeasure
	if !frame.Schema.Has(by) || !frame.Schema.Has(measure) {
		pr.Line("\nWarning: Cannot perform grouping. Check if '%s' and '%s' exist.", by, measure)
		return nil, nil
	}
	if !frame.Schema.IsNumeric(measure) {
		pr.Line("\nWarning: Column '%s' is not numeric. Cannot calculate mean for grouping.", measure)
		return nil, nil
	}

	result, err := engine.Execute(engine.NormalizeQuerySpec(engine.QuerySpec{
		Intent:  "table",
		GroupBy: []string{by},
		SortBy:  "label_asc",
		Reply:   "Highest mean {measure}: {top_category} ({top_value}); lowest: {bottom_category} ({bottom_value}).",
	}), view, engine.WithDefaultMeasure(measure), engine.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("group %s by %s: %w", measure, by, err)
	}

	pr.Line("\nMean of %s grouped by %s:", quoted(measure), quoted(by))
	if result.TableData == nil {
		pr.Line("%s", result.Reply)
		return nil, nil
	}
	pr.GroupMeans(by, measure, result.TableData)
	summary.GroupMeans = result.Groups
	summary.GroupTable = result.TableData

	pr.Line("\nPotential Findings:")
	pr.Findings([]string{
		"Examine the descriptive statistics for grades (G1, G2, G3), absences, study time etc.",
		fmt.Sprintf("Does the average %s seem to differ based on %s?", phrase(measure), phrase(by)),
		result.Reply,
	})
	return result.Groups, nil
}

// ============================================================================
// TASK 3 — Visualization
// ============================================================================

func visualize(pr *report.Printer, cfg *config.Config, frame *dataset.Frame, view engine.RecordView, groups []engine.Group, summary *Summary, log zerolog.Logger) error {
	pr.Section("Task 3: Data Visualization")
	if cfg.NoPlots {
		pr.Line("Plot rendering disabled; skipping visualization.")
		return nil
	}
	pr.Line("Generating plots...")

	sch := frame.Schema
	skip := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		pr.Line("\n%s", msg)
		summary.Skipped = append(summary.Skipped, msg)
	}
	save := func(cfgChart *engine.ChartConfig) error {
		path, err := plot.SavePNG(cfg.PlotDir, plot.FileName(cfgChart.Title), cfgChart)
		if err != nil {
			return err
		}
		summary.Plots = append(summary.Plots, path)
		pr.Line("Saved %s", path)
		log.Info().Str("chart", cfgChart.ChartType).Str("path", path).Msg("plot written")
		return nil
	}

	// Line chart: only meaningful with a time axis.
	if temporal := sch.TemporalKeys(); len(temporal) == 0 {
		skip("Skipped Line Chart: because it does not have a suitable time-series column.")
	} else {
		skip("Skipped Line Chart: time-series column(s) %s found but line charts are not rendered.", strings.Join(temporal, ", "))
	}

	measure, by := cfg.GroupMeasure, cfg.GroupBy

	// Bar chart: group means, tallest first.
	if len(groups) > 0 {
		result, err := engine.Execute(engine.NormalizeQuerySpec(engine.QuerySpec{
			Intent:  "chart",
			GroupBy: []string{by},
			SortBy:  "value_desc",
			Title:   fmt.Sprintf("Average %s by %s", labelWithKey(measure), labelWithKey(by)),
			XLabel:  label(by),
			YLabel:  "Average " + labelWithKey(measure),
		}), view, engine.WithDefaultMeasure(measure), engine.WithLogger(log))
		if err != nil {
			return fmt.Errorf("bar chart: %w", err)
		}
		if result.ChartConfig == nil {
			skip("Skipping bar chart: %s", result.Reply)
		} else if err := save(result.ChartConfig); err != nil {
			return err
		}
	} else {
		skip("Skipping bar chart: Grouping by '%s' did not produce results.", by)
	}

	// Histogram with density curve.
	switch {
	case !sch.Has(measure):
		skip("Skipping histogram: Check if '%s' exists.", measure)
	case !sch.IsNumeric(measure):
		skip("Skipping histogram: Column '%s' is not numeric.", measure)
	default:
		chart := engine.BuildHistogram(engine.QuerySpec{
			Measure: measure,
			Title:   "Distribution of " + labelWithKey(measure),
			XLabel:  labelWithKey(measure),
			YLabel:  "Number of Students",
		}, view, cfg.HistBins)
		if chart == nil {
			skip("Skipping histogram: No '%s' values left after filtering.", measure)
		} else if err := save(chart); err != nil {
			return err
		}
	}

	// Scatter: x column against the measure.
	x := cfg.ScatterX
	switch {
	case !sch.Has(x) || !sch.Has(measure):
		skip("Skipping scatter plot: Check if '%s' and '%s' exist.", x, measure)
	case !sch.IsNumeric(x) || !sch.IsNumeric(measure):
		skip("Skipping scatter plot: One or both columns ('%s', '%s') are not numeric.", x, measure)
	default:
		chart := engine.BuildScatter(engine.QuerySpec{
			Measure: measure,
			Title:   fmt.Sprintf("Relationship between %s and %s", label(x), labelWithKey(measure)),
			XLabel:  axis(x),
			YLabel:  labelWithKey(measure),
		}, view, x)
		if chart == nil {
			skip("Skipping scatter plot: No ('%s', '%s') pairs left after filtering.", x, measure)
		} else if err := save(chart); err != nil {
			return err
		}
	}

	// Box plot: measure per category.
	box := cfg.BoxBy
	switch {
	case !sch.Has(box) || !sch.Has(measure):
		skip("Skipping box plot: Check if '%s' and '%s' exist.", box, measure)
	case !sch.IsNumeric(measure):
		skip("Skipping box plot: Numerical column '%s' is not numeric.", measure)
	default:
		chart := engine.BuildBoxPlot(engine.QuerySpec{
			Measure: measure,
			GroupBy: []string{box},
			Title:   fmt.Sprintf("%s by %s", labelWithKey(measure), label(box)),
			XLabel:  axis(box),
			YLabel:  labelWithKey(measure),
		}, view)
		if chart == nil {
			skip("Skipping box plot: No '%s' values left after filtering.", measure)
		} else if err := save(chart); err != nil {
			return err
		}
	}

	return nil
}
