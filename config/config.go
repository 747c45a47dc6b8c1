package config

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultDatasetURL is the UCI archive holding the student performance data.
const DefaultDatasetURL = "https://archive.ics.uci.edu/ml/machine-learning-databases/00320/student.zip"

// Config holds all tool configuration.
type Config struct {
	DatasetURL    string        `env:"DATASET_URL"` // defaults to DefaultDatasetURL
	DatasetMember string        `env:"DATASET_MEMBER" envDefault:"student-mat.csv"`
	DatasetFile   string        `env:"DATASET_FILE"` // local .zip or .csv; overrides DatasetURL
	CSVDelimiter  string        `env:"CSV_DELIMITER" envDefault:";"`
	HTTPTimeout   time.Duration `env:"HTTP_TIMEOUT" envDefault:"60s"`
	// InsecureSkipVerify disables TLS certificate checks on the download.
	InsecureSkipVerify bool `env:"TLS_INSECURE_SKIP_VERIFY" envDefault:"true"`

	GroupBy      string `env:"GROUP_BY" envDefault:"Mjob"`
	GroupMeasure string `env:"GROUP_MEASURE" envDefault:"G3"`
	ScatterX     string `env:"SCATTER_X" envDefault:"studytime"`
	BoxBy        string `env:"BOX_BY" envDefault:"internet"`
	HistBins     int    `env:"HIST_BINS" envDefault:"10"`
	HeadRows     int    `env:"HEAD_ROWS" envDefault:"5"`

	PlotDir  string `env:"PLOT_DIR" envDefault:"plots"`
	NoPlots  bool   `env:"NO_PLOTS" envDefault:"false"`
	XLSXPath string `env:"XLSX_PATH"`
	CSVPath  string `env:"CSV_PATH"` // group means as CSV
	DBPath   string `env:"DB_PATH"`

	// Filters restricts the analysis to matching rows: dimension -> allowed values.
	Filters map[string][]string

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"pretty"`
}

// Load reads configuration from environment variables with defaults.
// A .env file is loaded if present but is not required.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{DatasetURL: DefaultDatasetURL}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatasetFile) == "" && strings.TrimSpace(c.DatasetURL) == "" {
		return fmt.Errorf("dataset url or file is required")
	}
	if strings.TrimSpace(c.DatasetMember) == "" {
		return fmt.Errorf("dataset member is required")
	}
	if utf8.RuneCountInString(c.CSVDelimiter) != 1 {
		return fmt.Errorf("csv delimiter must be a single character, got %q", c.CSVDelimiter)
	}
	if c.HistBins <= 0 {
		return fmt.Errorf("histogram bins must be positive, got %d", c.HistBins)
	}
	if c.HeadRows <= 0 {
		return fmt.Errorf("head rows must be positive, got %d", c.HeadRows)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive, got %s", c.HTTPTimeout)
	}
	return nil
}

// Delimiter returns the CSV delimiter rune. Validate first.
func (c *Config) Delimiter() rune {
	r, _ := utf8.DecodeRuneInString(c.CSVDelimiter)
	return r
}

// ParseFilter parses "dim=v1,v2" into its dimension and values.
func ParseFilter(raw string) (string, []string, error) {
	dim, vals, ok := strings.Cut(raw, "=")
	dim = strings.TrimSpace(dim)
	if !ok || dim == "" {
		return "", nil, fmt.Errorf("filter %q: expected dimension=value[,value]", raw)
	}
	var values []string
	for _, v := range strings.Split(vals, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return "", nil, fmt.Errorf("filter %q: no values", raw)
	}
	return dim, values, nil
}

// AddFilter merges a parsed filter into the config.
func (c *Config) AddFilter(raw string) error {
	dim, values, err := ParseFilter(raw)
	if err != nil {
		return err
	}
	if c.Filters == nil {
		c.Filters = make(map[string][]string)
	}
	c.Filters[dim] = append(c.Filters[dim], values...)
	return nil
}
