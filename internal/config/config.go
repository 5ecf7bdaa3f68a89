package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/blinkwatch/internal/alert"
	"github.com/roach88/blinkwatch/internal/sampler"
	"github.com/roach88/blinkwatch/internal/store"
)

// Config is the complete blinkwatch configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database" json:"database"`
	Rollup   RollupConfig   `yaml:"rollup" json:"rollup"`
	Sampler  SamplerConfig  `yaml:"sampler" json:"sampler"`
	Alert    AlertConfig    `yaml:"alert" json:"alert"`
	Log      LogConfig      `yaml:"log" json:"log"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
}

// DatabaseConfig locates and tunes the SQLite store.
type DatabaseConfig struct {
	Path        string        `yaml:"path" json:"path"`
	MaxConns    int           `yaml:"max_conns" json:"max_conns"`
	BusyTimeout time.Duration `yaml:"busy_timeout" json:"busy_timeout"`
}

// RollupConfig controls interval compaction.
type RollupConfig struct {
	BatchSize int `yaml:"batch_size" json:"batch_size"`

	// SweepInterval is how often run re-signals the rollup worker so failed
	// rollups are retried without new inserts. Zero disables the sweep.
	SweepInterval time.Duration `yaml:"sweep_interval" json:"sweep_interval"`
}

// SamplerConfig mirrors sampler.Config.
type SamplerConfig struct {
	Window          time.Duration `yaml:"window" json:"window"`
	AbsenceFrames   int           `yaml:"absence_frames" json:"absence_frames"`
	BlinkRefractory time.Duration `yaml:"blink_refractory" json:"blink_refractory"`
}

// AlertConfig mirrors alert.Config.
type AlertConfig struct {
	MinElapsed  time.Duration `yaml:"min_elapsed" json:"min_elapsed"`
	MinInterval time.Duration `yaml:"min_interval" json:"min_interval"`
	NormalRate  float64       `yaml:"normal_rate" json:"normal_rate"`
	LowRate     float64       `yaml:"low_rate" json:"low_rate"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// MetricsConfig configures the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// DefaultDatabasePath is used when no path is configured.
const DefaultDatabasePath = "blinkwatch.db"

// DefaultSweepInterval is the default rollup sweep period.
const DefaultSweepInterval = time.Minute

// Default returns the built-in configuration.
func Default() Config {
	sc := sampler.DefaultConfig()
	ac := alert.DefaultConfig()
	return Config{
		Database: DatabaseConfig{
			Path:        DefaultDatabasePath,
			MaxConns:    store.DefaultMaxConns,
			BusyTimeout: store.DefaultBusyTimeout,
		},
		Rollup: RollupConfig{
			BatchSize:     store.DefaultBatchSize,
			SweepInterval: DefaultSweepInterval,
		},
		Sampler: SamplerConfig{
			Window:          sc.Window,
			AbsenceFrames:   sc.AbsenceFrames,
			BlinkRefractory: sc.BlinkRefractory,
		},
		Alert: AlertConfig{
			MinElapsed:  ac.MinElapsed,
			MinInterval: ac.MinInterval,
			NormalRate:  ac.NormalRate,
			LowRate:     ac.LowRate,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config file over Default.
// An empty path returns the defaults unchanged.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default, checking it against the CUE schema first
// and the cross-field rules after.
func Parse(data []byte) (Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg := Default()
	if raw == nil {
		return cfg, nil
	}

	if err := validateSchema(raw); err != nil {
		return Config{}, err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate applies the checks the schema cannot express.
func (c Config) Validate() error {
	var errs []error

	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Database.MaxConns < 1 {
		errs = append(errs, fmt.Errorf("database.max_conns must be at least 1, got %d", c.Database.MaxConns))
	}
	if c.Database.BusyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("database.busy_timeout must be positive, got %s", c.Database.BusyTimeout))
	}
	if c.Rollup.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("rollup.batch_size must be at least 1, got %d", c.Rollup.BatchSize))
	}
	if c.Rollup.SweepInterval < 0 {
		errs = append(errs, fmt.Errorf("rollup.sweep_interval must not be negative, got %s", c.Rollup.SweepInterval))
	}
	if err := c.SamplerConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("sampler: %w", err))
	}
	if c.Alert.LowRate > c.Alert.NormalRate {
		errs = append(errs, fmt.Errorf("alert.low_rate (%g) must not exceed alert.normal_rate (%g)",
			c.Alert.LowRate, c.Alert.NormalRate))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// SamplerConfig converts to sampler thresholds.
func (c Config) SamplerConfig() sampler.Config {
	return sampler.Config{
		Window:          c.Sampler.Window,
		AbsenceFrames:   c.Sampler.AbsenceFrames,
		BlinkRefractory: c.Sampler.BlinkRefractory,
	}
}

// AlertConfig converts to blink-rate thresholds.
func (c Config) AlertConfig() alert.Config {
	return alert.Config{
		MinElapsed:  c.Alert.MinElapsed,
		MinInterval: c.Alert.MinInterval,
		NormalRate:  c.Alert.NormalRate,
		LowRate:     c.Alert.LowRate,
	}
}

// StoreOptions converts database and rollup settings to store options.
func (c Config) StoreOptions() []store.Option {
	return []store.Option{
		store.WithMaxConns(c.Database.MaxConns),
		store.WithBusyTimeout(c.Database.BusyTimeout),
		store.WithBatchSize(c.Rollup.BatchSize),
	}
}
