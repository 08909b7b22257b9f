package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/zjrosen/vsdcard/internal/log"
)

// LocalConfigPath is checked before the user config directory.
const LocalConfigPath = ".vsdcard/config.yaml"

// SetDefaults registers every default with v so keys absent from the file
// still unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("sdcard.name", d.SDCard.Name)
	v.SetDefault("sdcard.path", d.SDCard.Path)
	v.SetDefault("sdcard.cache_enabled", d.SDCard.CacheEnabled)
	v.SetDefault("sdcard.cache_path", d.SDCard.CachePath)
	v.SetDefault("sdcard.on_error_gcode", d.SDCard.OnErrorGCode)
	v.SetDefault("sdcard.pause_timeout", d.SDCard.PauseTimeout)
	v.SetDefault("sdcard.gate_retry", d.SDCard.GateRetry)
	v.SetDefault("sdcard.cache_wait_timeout", d.SDCard.CacheWaitTimeout)
	v.SetDefault("history.path", d.History.Path)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
	v.SetDefault("flags", d.Flags)
}

// Load reads the configuration into a Config. An explicit cfgFile wins.
// Otherwise the lookup order is:
//  1. .vsdcard/config.yaml (current directory)
//  2. ~/.config/vsdcard/config.yaml (user config)
//
// When neither exists a default file is written to LocalConfigPath. The
// returned path is the file in use, or empty when running on defaults.
func Load(v *viper.Viper, cfgFile string) (Config, string, error) {
	SetDefaults(v)

	switch {
	case cfgFile != "":
		v.SetConfigFile(cfgFile)
	case fileExists(LocalConfigPath):
		v.SetConfigFile(LocalConfigPath)
	default:
		if dir := DefaultConfigDir(); dir != "" {
			v.AddConfigPath(dir)
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, "", fmt.Errorf("reading config: %w", err)
		}
		if writeErr := WriteDefaultConfig(LocalConfigPath); writeErr == nil {
			v.SetConfigFile(LocalConfigPath)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, "", fmt.Errorf("reading config: %w", err)
			}
		} else {
			log.Warn(log.CatConfig, "Running on defaults", "error", writeErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, "", fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, "", fmt.Errorf("invalid configuration: %w", err)
	}
	used := v.ConfigFileUsed()
	log.Debug(log.CatConfig, "Config loaded", "path", used)
	return cfg, used, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(filepath.Clean(path))
	return err == nil
}
