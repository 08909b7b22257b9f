// Package config provides configuration types and defaults for vsdcard.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/vsdcard/internal/executor"
	"github.com/zjrosen/vsdcard/internal/flags"
	"github.com/zjrosen/vsdcard/internal/log"
	"github.com/zjrosen/vsdcard/internal/tracing"
)

// Config holds all configuration options for vsdcard.
type Config struct {
	SDCard  SDCardConfig    `mapstructure:"sdcard"`
	Pause   PauseConfig     `mapstructure:"pause"`
	History HistoryConfig   `mapstructure:"history"`
	Tracing tracing.Config  `mapstructure:"tracing"`
	Metrics MetricsConfig   `mapstructure:"metrics"`
	Flags   map[string]bool `mapstructure:"flags"`
}

// SDCardConfig describes the virtual card.
type SDCardConfig struct {
	Name string `mapstructure:"name"`
	// Path is the directory exposed as the card root. ~ is expanded.
	Path         string `mapstructure:"path"`
	CacheEnabled bool   `mapstructure:"cache_enabled"`
	CachePath    string `mapstructure:"cache_path"`
	// OnErrorGCode is a text/template run after a file line fails. It sees
	// .Reason, .File and .Line.
	OnErrorGCode     string        `mapstructure:"on_error_gcode"`
	PauseTimeout     time.Duration `mapstructure:"pause_timeout"`
	GateRetry        time.Duration `mapstructure:"gate_retry"`
	CacheWaitTimeout time.Duration `mapstructure:"cache_wait_timeout"`
}

// PauseConfig tunes the resume line computation.
type PauseConfig struct {
	// ExcludedAxes never contribute to the resume line. Nil keeps the
	// default of stepper_z.
	ExcludedAxes []string `mapstructure:"excluded_axes"`
}

// HistoryConfig locates the job history database.
type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables the endpoint.
	Addr string `mapstructure:"addr"`
}

// DefaultConfigDir returns ~/.config/vsdcard or empty string if the home
// dir is unavailable.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "vsdcard")
}

// DefaultHistoryPath returns the default job history database path.
func DefaultHistoryPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "history.db")
}

// DefaultTracesFilePath returns the default path for trace file export.
func DefaultTracesFilePath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "traces", "traces.jsonl")
}

// DefaultCachePath returns the directory cached copies are written to.
func DefaultCachePath() string {
	return filepath.Join(os.TempDir(), "vsdcard-cache")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	tc := tracing.DefaultConfig()
	tc.FilePath = DefaultTracesFilePath()
	return Config{
		SDCard: SDCardConfig{
			Name:             "sdcard",
			Path:             "~/gcodes",
			CacheEnabled:     false,
			CachePath:        DefaultCachePath(),
			PauseTimeout:     30 * time.Second,
			GateRetry:        100 * time.Millisecond,
			CacheWaitTimeout: 5 * time.Second,
		},
		History: HistoryConfig{
			Path: DefaultHistoryPath(),
		},
		Tracing: tc,
		Flags:   flags.Defaults(),
	}
}

// OnErrorScript parses the recovery template. Nil when none is configured.
func (c SDCardConfig) OnErrorScript() (*executor.Script, error) {
	if c.OnErrorGCode == "" {
		return nil, nil
	}
	s, err := executor.ParseScript("on_error_gcode", c.OnErrorGCode)
	if err != nil {
		return nil, fmt.Errorf("sdcard.on_error_gcode: %w", err)
	}
	return s, nil
}

// Validate checks the whole configuration.
func Validate(c Config) error {
	if err := ValidateSDCard(c.SDCard); err != nil {
		return err
	}
	if err := ValidateTracing(c.Tracing); err != nil {
		return err
	}
	if err := ValidateMetrics(c.Metrics); err != nil {
		return err
	}
	return nil
}

// ValidateSDCard checks the card section.
func ValidateSDCard(sd SDCardConfig) error {
	if sd.Path == "" {
		return fmt.Errorf("sdcard.path is required")
	}
	if sd.CacheEnabled && sd.CachePath == "" {
		return fmt.Errorf("sdcard.cache_path is required when cache_enabled is true")
	}
	for key, d := range map[string]time.Duration{
		"pause_timeout":      sd.PauseTimeout,
		"gate_retry":         sd.GateRetry,
		"cache_wait_timeout": sd.CacheWaitTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("sdcard.%s must not be negative, got %s", key, d)
		}
	}
	if _, err := sd.OnErrorScript(); err != nil {
		return err
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tc tracing.Config) error {
	if tc.SampleRate < 0.0 || tc.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tc.SampleRate)
	}

	if tc.Exporter != "" {
		switch tc.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tc.Exporter)
		}
	}

	// Only validate path requirements when tracing is enabled
	if tc.Enabled {
		if tc.Exporter == "file" && tc.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tc.Exporter == "otlp" && tc.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}
	return nil
}

// ValidateMetrics checks the listen address when one is set.
func ValidateMetrics(m MetricsConfig) error {
	if m.Addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(m.Addr); err != nil {
		return fmt.Errorf("metrics.addr: %w", err)
	}
	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# vsdcard configuration

# The virtual SD card
sdcard:
  name: sdcard
  path: ~/gcodes            # Directory exposed as the card root

  # Copy files from removable media to local storage before printing
  cache_enabled: false
  # cache_path: /tmp/vsdcard-cache

  # G-code run after a file line fails. Template data: .Reason .File .Line
  # on_error_gcode: |
  #   M118 Print failed at line {{.Line}}: {{.Reason}}
  #   TURN_OFF_HEATERS

  pause_timeout: 30s        # How long pause/cancel wait for the loop to stop
  gate_retry: 100ms         # Back-off while another command holds the executor
  cache_wait_timeout: 5s    # Wait for the first cached bytes before reading the source

# Resume line computation
# pause:
#   excluded_axes: [stepper_z]

# Job history database (used when the job-history flag is on)
# history:
#   path: ~/.config/vsdcard/history.db

# Prometheus metrics endpoint. Empty disables it.
# metrics:
#   addr: 127.0.0.1:9464

# Distributed tracing
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.config/vsdcard/traces/traces.jsonl
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)

# Feature flags
flags:
  job-history: true         # Persist jobs to SQLite; off keeps them in memory
  removable-detect: true    # Off treats every card as fixed storage
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
