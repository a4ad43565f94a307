package profile

import (
	"time"

	"github.com/koustreak/dschema/internal/errs"
	"github.com/koustreak/dschema/internal/sketch"
)

// Options controls what the Profiler computes and how hard it pushes the
// database. Validate is called once by New.
type Options struct {
	// Schema qualifies table names in generated SQL. Empty leaves them
	// unqualified (sqlite, or the connection's default database on mysql).
	Schema string `yaml:"-"`

	// SampleLimit is the number of example values the reflector fetches per
	// column before profiling.
	SampleLimit int `yaml:"sample_limit" env:"DSCHEMA_PROFILE_SAMPLE_LIMIT"`

	// TopK bounds the frequent-values list. Zero skips the step.
	TopK int `yaml:"top_k" env:"DSCHEMA_PROFILE_TOP_K"`

	// EnableSketch streams every non-null value into a MinHash sketch.
	EnableSketch bool `yaml:"enable_sketch" env:"DSCHEMA_PROFILE_ENABLE_SKETCH"`

	// NumHashes is the MinHash signature length.
	NumHashes int `yaml:"num_hashes"`

	// TableConcurrency is how many tables are profiled at once. Keep it at or
	// below the pool's MaxConns.
	TableConcurrency int `yaml:"table_concurrency" env:"DSCHEMA_PROFILE_TABLE_CONCURRENCY"`

	// ColumnConcurrency is how many columns of one table are profiled at
	// once, each on its own connection.
	ColumnConcurrency int `yaml:"column_concurrency"`

	// StreamBatchSize is how many streamed rows pass between cancellation
	// checks during the sketch scan.
	StreamBatchSize int `yaml:"stream_batch_size"`

	// StepRetries is how many times a column step that timed out is retried.
	StepRetries       int           `yaml:"step_retries"`
	RetryInitialDelay time.Duration `yaml:"retry_initial_delay"`

	// QueryTimeout bounds each statement. Zero means no per-statement limit.
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// DefaultOptions returns the settings used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		SampleLimit:       5,
		TopK:              10,
		EnableSketch:      true,
		NumHashes:         sketch.DefaultNumHashes,
		TableConcurrency:  1,
		ColumnConcurrency: 1,
		StreamBatchSize:   1000,
		StepRetries:       0,
		RetryInitialDelay: 200 * time.Millisecond,
	}
}

// Validate reports the first invalid setting.
func (o Options) Validate() error {
	switch {
	case o.SampleLimit < 0:
		return errs.Newf(errs.ErrKindInvalidInput, "sample_limit must be >= 0, got %d", o.SampleLimit)
	case o.TopK < 0:
		return errs.Newf(errs.ErrKindInvalidInput, "top_k must be >= 0, got %d", o.TopK)
	case o.EnableSketch && (o.NumHashes < 1 || o.NumHashes > sketch.MaxNumHashes):
		return errs.Newf(errs.ErrKindInvalidInput, "num_hashes must be between 1 and %d, got %d", sketch.MaxNumHashes, o.NumHashes)
	case o.TableConcurrency < 1:
		return errs.Newf(errs.ErrKindInvalidInput, "table_concurrency must be >= 1, got %d", o.TableConcurrency)
	case o.ColumnConcurrency < 1:
		return errs.Newf(errs.ErrKindInvalidInput, "column_concurrency must be >= 1, got %d", o.ColumnConcurrency)
	case o.StreamBatchSize < 1:
		return errs.Newf(errs.ErrKindInvalidInput, "stream_batch_size must be >= 1, got %d", o.StreamBatchSize)
	case o.StepRetries < 0:
		return errs.Newf(errs.ErrKindInvalidInput, "step_retries must be >= 0, got %d", o.StepRetries)
	case o.RetryInitialDelay < 0:
		return errs.New(errs.ErrKindInvalidInput, "retry_initial_delay must not be negative")
	case o.QueryTimeout < 0:
		return errs.New(errs.ErrKindInvalidInput, "query_timeout must not be negative")
	}
	return nil
}
