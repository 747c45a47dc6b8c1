package engine

import "github.com/rs/zerolog"

// ============================================================================
// ENGINE OPTIONS — Functional options for Execute()
// ============================================================================

// Option configures engine behavior via functional options pattern.
type Option func(*config)

type config struct {
	DefaultMeasure string // measure key used when QuerySpec.Measure is empty
	Logger         zerolog.Logger
}

// WithDefaultMeasure sets the measure to aggregate when QuerySpec.Measure is empty.
func WithDefaultMeasure(measure string) Option {
	return func(c *config) {
		c.DefaultMeasure = measure
	}
}

// WithLogger routes engine debug events to log.
func WithLogger(log zerolog.Logger) Option {
	return func(c *config) {
		c.Logger = log
	}
}

func applyOptions(opts []Option) *config {
	cfg := &config{
		Logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
