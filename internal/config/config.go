// Package config loads the dschema run configuration: a YAML file overlaid
// with DSCHEMA_* environment variables, on top of DefaultConfig.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/koustreak/dschema/internal/database"
	"github.com/koustreak/dschema/internal/errs"
	"github.com/koustreak/dschema/internal/filestore"
	"github.com/koustreak/dschema/internal/logger"
	"github.com/koustreak/dschema/internal/profile"
	"github.com/koustreak/dschema/internal/render"
	"go.yaml.in/yaml/v3"
)

// Config is the full run configuration.
type Config struct {
	Log      logger.Config   `yaml:"log"`
	Database database.Config `yaml:"database"`
	Profile  profile.Options `yaml:"profile"`
	Reflect  ReflectConfig   `yaml:"reflect"`
	Render   render.Options  `yaml:"render"`
	Output   OutputConfig    `yaml:"output"`
	Server   ServerConfig    `yaml:"server"`
}

// ReflectConfig filters the tables that are reflected. Patterns use
// path.Match syntax.
type ReflectConfig struct {
	IncludeTables []string `yaml:"include_tables" env:"DSCHEMA_REFLECT_INCLUDE" env-separator:","`
	ExcludeTables []string `yaml:"exclude_tables" env:"DSCHEMA_REFLECT_EXCLUDE" env-separator:","`
}

// OutputConfig selects what a run writes and where.
type OutputConfig struct {
	// Formats are render kinds; empty means every kind.
	Formats []string `yaml:"formats" env:"DSCHEMA_OUTPUT_FORMATS" env-separator:","`

	// Dir receives one file per format. Empty writes to stdout.
	Dir string `yaml:"dir" env:"DSCHEMA_OUTPUT_DIR"`

	// Publish uploads renders and sketches to Store under Prefix.
	Publish bool             `yaml:"publish" env:"DSCHEMA_OUTPUT_PUBLISH"`
	Prefix  string           `yaml:"prefix" env:"DSCHEMA_OUTPUT_PREFIX"`
	Store   filestore.Config `yaml:"store"`

	// CandidateThreshold is the minimum sketch similarity reported as a
	// foreign key candidate.
	CandidateThreshold float64 `yaml:"candidate_threshold" env:"DSCHEMA_OUTPUT_CANDIDATE_THRESHOLD"`
}

// ServerConfig controls the read-only HTTP API started after a run.
type ServerConfig struct {
	Enabled         bool          `yaml:"enabled" env:"DSCHEMA_SERVER_ENABLED"`
	Addr            string        `yaml:"addr" env:"DSCHEMA_SERVER_ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultConfig returns a configuration that only lacks a database DSN.
func DefaultConfig() *Config {
	db := database.DefaultConfig(database.DriverPostgres, "")
	db.Schema = ""

	store := filestore.LocalConfig("artifacts")

	return &Config{
		Log:      *logger.DefaultConfig(),
		Database: *db,
		Profile:  profile.DefaultOptions(),
		Render:   render.DefaultOptions(),
		Output: OutputConfig{
			Dir:                "out",
			Prefix:             "runs",
			Store:              *store,
			CandidateThreshold: 0.8,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// Load reads path (when non-empty) over DefaultConfig, applies environment
// overrides, then each override in order, and validates the result.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("failed to read %s", path), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("failed to parse %s", path), err)
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to read environment", err)
	}
	for _, o := range overrides {
		o(cfg)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize fills values that depend on other settings.
func (c *Config) normalize() {
	if c.Database.Schema == "" && c.Database.Driver == database.DriverPostgres {
		c.Database.Schema = "public"
	}
	if c.Database.Driver == database.DriverSQLite {
		c.Database.Schema = ""
	}
	c.Profile.Schema = c.Database.Schema
}

// Kinds resolves Output.Formats, defaulting to every render kind.
func (c *Config) Kinds() ([]render.Kind, error) {
	if len(c.Output.Formats) == 0 {
		return render.Kinds(), nil
	}
	kinds := make([]render.Kind, 0, len(c.Output.Formats))
	for _, f := range c.Output.Formats {
		k, err := render.ParseKind(f)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Validate reports the first invalid section.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "unknown log format %q", c.Log.Format)
	}

	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Profile.Validate(); err != nil {
		return err
	}
	if _, err := c.Kinds(); err != nil {
		return err
	}
	if c.Output.CandidateThreshold < 0 || c.Output.CandidateThreshold > 1 {
		return errs.Newf(errs.ErrKindInvalidInput, "candidate_threshold must be between 0 and 1, got %g", c.Output.CandidateThreshold)
	}
	if c.Output.Publish {
		if err := c.Output.Store.Validate(); err != nil {
			return err
		}
	}
	if c.Server.Enabled && c.Server.Addr == "" {
		return errs.New(errs.ErrKindInvalidInput, "server addr is required when the server is enabled")
	}
	return nil
}
