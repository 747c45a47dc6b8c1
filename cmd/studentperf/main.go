package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/spektr-org/studentperf/analysis"
	"github.com/spektr-org/studentperf/config"
	"github.com/spektr-org/studentperf/dataset"
	"github.com/spektr-org/studentperf/fetch"
	"github.com/spektr-org/studentperf/logger"
	"github.com/spektr-org/studentperf/store"
)

// ============================================================================
// STUDENTPERF CLI — Student performance exploration in one command
// ============================================================================

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	discover    bool
	history     int
	showVersion bool
}

// run parses flags, executes the selected mode and returns the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fs, opts := newFlagSet(cfg, stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if opts.showVersion {
		fmt.Fprintf(stdout, "studentperf %s\n", version)
		return 0
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fs.Usage()
		return 1
	}

	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	// ── History mode ──────────────────────────────────────────────────────
	if opts.history > 0 {
		if cfg.DBPath == "" {
			fmt.Fprintln(stderr, "Error: --history requires --db")
			return 1
		}
		if err := printHistory(ctx, cfg.DBPath, opts.history, stdout); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if cfg.InsecureSkipVerify && cfg.DatasetFile == "" {
		log.Warn().Str("url", cfg.DatasetURL).Msg("TLS certificate verification is disabled for the download")
	}
	client := fetch.NewClient(cfg.HTTPTimeout, cfg.InsecureSkipVerify, log)

	// ── Discover mode ─────────────────────────────────────────────────────
	if opts.discover {
		if err := discover(ctx, cfg, client, stdout); err != nil {
			printLines(stderr, explain(err, source(cfg)))
			return 1
		}
		return 0
	}

	// ── Analysis ──────────────────────────────────────────────────────────
	deps := analysis.Deps{Loader: client, Out: stdout, Log: log}
	if cfg.DBPath != "" {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		defer st.Close()
		deps.Store = st
	}

	summary, err := analysis.Run(ctx, cfg, deps)
	if err != nil {
		log.Debug().Err(err).Msg("analysis failed")
		printLines(stderr, explain(err, source(cfg)))
		return 1
	}
	if summary.RunID != "" {
		fmt.Fprintf(stdout, "\nRun recorded as %s in %s\n", summary.RunID, cfg.DBPath)
	}

	fmt.Fprintln(stdout, "\nAnalysis and Visualization Complete.")
	return 0
}

func newFlagSet(cfg *config.Config, stderr io.Writer) (*flag.FlagSet, *options) {
	opts := &options{}
	fs := flag.NewFlagSet("studentperf", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.DatasetFile, "file", cfg.DatasetFile, "Local .zip or .csv to read instead of downloading")
	fs.StringVar(&cfg.DatasetURL, "url", cfg.DatasetURL, "ZIP archive to download")
	fs.StringVar(&cfg.DatasetMember, "member", cfg.DatasetMember, "CSV member inside the archive")
	fs.StringVar(&cfg.PlotDir, "out", cfg.PlotDir, "Directory for PNG plots")
	fs.StringVar(&cfg.XLSXPath, "xlsx", cfg.XLSXPath, "Write the summary workbook to this path")
	fs.StringVar(&cfg.CSVPath, "csv", cfg.CSVPath, "Write the group means as CSV to this path")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite file recording each run")
	fs.StringVar(&cfg.GroupBy, "group-by", cfg.GroupBy, "Categorical column to group by")
	fs.StringVar(&cfg.GroupMeasure, "measure", cfg.GroupMeasure, "Numeric column to average")
	fs.BoolVar(&cfg.NoPlots, "no-plots", cfg.NoPlots, "Skip plot rendering")
	fs.BoolVar(&cfg.InsecureSkipVerify, "insecure", cfg.InsecureSkipVerify, "Skip TLS certificate verification on download")
	fs.Func("filter", "Restrict rows, as column=value[,value] (repeatable)", cfg.AddFilter)
	fs.BoolVar(&opts.discover, "discover", false, "Print the detected column schema as JSON and exit")
	fs.IntVar(&opts.history, "history", 0, "List the N most recent recorded runs from --db and exit")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `studentperf — explore the UCI student performance dataset

Usage:
  studentperf
  studentperf --file student.zip --out plots --xlsx summary.xlsx
  studentperf --filter school=GP --csv means.csv --db runs.db
  studentperf --discover
  studentperf --db runs.db --history 10

Flags:
`)
		fs.PrintDefaults()
		fmt.Fprintf(stderr, `
Environment:
  DATASET_URL, DATASET_MEMBER, DATASET_FILE, CSV_DELIMITER, HTTP_TIMEOUT,
  TLS_INSECURE_SKIP_VERIFY, GROUP_BY, GROUP_MEASURE, SCATTER_X, BOX_BY,
  HIST_BINS, HEAD_ROWS, PLOT_DIR, NO_PLOTS, XLSX_PATH, CSV_PATH, DB_PATH,
  LOG_LEVEL, LOG_FORMAT (a .env file is read when present)
`)
	}
	return fs, opts
}

// ============================================================================
// MODES
// ============================================================================

func source(cfg *config.Config) fetch.Source {
	return fetch.Source{URL: cfg.DatasetURL, Path: cfg.DatasetFile, Member: cfg.DatasetMember}
}

func discover(ctx context.Context, cfg *config.Config, client *fetch.Client, w io.Writer) error {
	raw, err := client.Load(ctx, source(cfg))
	if err != nil {
		return err
	}
	frame, err := dataset.ParseCSV(raw, dataset.ParseOptions{Delimiter: cfg.Delimiter(), Name: cfg.DatasetMember})
	if err != nil {
		return err
	}
	return writeJSON(w, frame.Schema)
}

func printHistory(ctx context.Context, path string, limit int, w io.Writer) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	// Row counts are grouped ("1,044/1,044") for scanning long histories.
	p := message.NewPrinter(language.English)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSOURCE\tROWS\tGROUPING")
	for _, r := range runs {
		grouping := "-"
		if r.GroupBy != "" {
			grouping = fmt.Sprintf("mean %s by %s", r.Measure, r.GroupBy)
		}
		p.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Source, r.RowsAfter, r.RowsBefore, grouping)
	}
	return tw.Flush()
}

// ============================================================================
// OUTPUT
// ============================================================================

func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// explain turns a pipeline error into the lines shown to the user. Archive
// messages name the local file when the dataset was not downloaded.
func explain(err error, src fetch.Source) []string {
	archive, file := "the downloaded ZIP archive", "the downloaded file"
	if src.Path != "" {
		archive = fmt.Sprintf("the ZIP archive '%s'", src.Path)
		file = fmt.Sprintf("'%s'", src.Path)
	}

	var missing *fetch.MemberNotFoundError
	var stage *analysis.StageError
	switch {
	case errors.As(err, &missing):
		return []string{
			fmt.Sprintf("Error: '%s' not found inside %s.", missing.Member, archive),
			fmt.Sprintf("Files found: %v", missing.Found),
		}
	case errors.Is(err, fetch.ErrBadArchive):
		return []string{fmt.Sprintf("Error: Failed to open %s as a ZIP archive. It might be corrupted or incomplete.", file)}
	case errors.Is(err, fetch.ErrDownload):
		return []string{
			fmt.Sprintf("An error occurred while downloading the ZIP file: %v", err),
			"Please check your internet connection and the URL.",
		}
	case errors.Is(err, context.Canceled):
		return []string{"Interrupted."}
	case errors.As(err, &stage):
		return []string{fmt.Sprintf("An unexpected error occurred during %s: %v", stage.Stage, stage.Err)}
	default:
		return []string{fmt.Sprintf("An unexpected error occurred: %v", err)}
	}
}

func printLines(w io.Writer, lines []string) {
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}
