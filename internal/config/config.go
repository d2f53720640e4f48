package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"courier/internal/target"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultLogLevel   = "info"
	defaultLogFormat  = "line"
	defaultBodyFormat = "text"
	defaultWorkers    = 1
)

// LogSinkConfig holds one log sink settings.
// Params: enabled flag, level, format, and file path for file sinks.
// Returns: sink settings consumed by the logging package.
type LogSinkConfig struct {
	Enabled bool   `toml:"enabled"`
	Level   string `toml:"level"`
	Format  string `toml:"format"`
	Path    string `toml:"path"`
}

// LogConfig holds console and file sink settings.
// Params: per-sink configuration.
// Returns: logging setup for the process.
type LogConfig struct {
	Console LogSinkConfig `toml:"console"`
	File    LogSinkConfig `toml:"file"`
}

// SourceConfig declares one configuration source document.
// Params: path, source-level tags, syntax override, and cache policy.
// Returns: source to mount into the delivery list.
type SourceConfig struct {
	Path         string `toml:"path"`
	Tags         string `toml:"tags"`
	Syntax       string `toml:"syntax"`
	CacheSeconds int    `toml:"cache_seconds"`
	Recursion    int    `toml:"recursion"`
}

// NotifyConfig holds delivery policy for the dispatch pass.
// Params: strictness, parallelism, and input body format.
// Returns: dispatcher construction settings.
type NotifyConfig struct {
	Strict     bool   `toml:"strict"`
	Workers    int    `toml:"workers"`
	BodyFormat string `toml:"body_format"`
}

// Config is the root application configuration.
// Params: log sinks, delivery policy, direct URLs, and sources.
// Returns: validated settings for the CLI binary.
type Config struct {
	Log     LogConfig      `toml:"log"`
	Notify  NotifyConfig   `toml:"notify"`
	URLs    []string       `toml:"urls"`
	Sources []SourceConfig `toml:"source"`
}

// FromCLI loads configuration for the CLI entrypoint.
// Params: optional TOML file path; empty path yields defaults.
// Returns: validated config or load/validation error.
func FromCLI(filePath string) (Config, error) {
	filePath = strings.TrimSpace(filePath)

	var cfg Config
	if filePath != "" {
		body, err := os.ReadFile(filePath)
		if err != nil {
			return Config{}, fmt.Errorf("read config %q: %w", filePath, err)
		}
		if err := toml.Unmarshal(body, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %q: %w", filePath, err)
		}
	}

	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyDefaults fills unset fields with safe defaults.
// Params: loaded config pointer.
// Returns: in-place defaulted config.
func applyDefaults(cfg *Config) {
	if !cfg.Log.Console.Enabled && !cfg.Log.File.Enabled {
		cfg.Log.Console.Enabled = true
	}
	if cfg.Log.Console.Level == "" {
		cfg.Log.Console.Level = defaultLogLevel
	}
	if cfg.Log.Console.Format == "" {
		cfg.Log.Console.Format = defaultLogFormat
	}
	if cfg.Log.File.Level == "" {
		cfg.Log.File.Level = defaultLogLevel
	}
	if cfg.Log.File.Format == "" {
		cfg.Log.File.Format = defaultLogFormat
	}
	if cfg.Notify.Workers <= 0 {
		cfg.Notify.Workers = defaultWorkers
	}
	if cfg.Notify.BodyFormat == "" {
		cfg.Notify.BodyFormat = defaultBodyFormat
	}
}

// validateConfig rejects unusable settings before startup.
// Params: defaulted config.
// Returns: first validation error found.
func validateConfig(cfg Config) error {
	if cfg.Log.File.Enabled && strings.TrimSpace(cfg.Log.File.Path) == "" {
		return errors.New("log.file.path is required when the file sink is enabled")
	}
	if _, ok := target.ParseFormat(cfg.Notify.BodyFormat); !ok {
		return fmt.Errorf("notify.body_format %q is not one of text/html/markdown", cfg.Notify.BodyFormat)
	}
	for i, source := range cfg.Sources {
		if strings.TrimSpace(source.Path) == "" {
			return fmt.Errorf("source[%d].path is required", i)
		}
		switch source.Syntax {
		case "", "text", "yaml", "toml":
		default:
			return fmt.Errorf("source[%d].syntax %q is not one of text/yaml/toml", i, source.Syntax)
		}
		if source.CacheSeconds < 0 {
			return fmt.Errorf("source[%d].cache_seconds must not be negative", i)
		}
	}
	return nil
}

// BodyFormat returns the parsed input body format.
// Params: none.
// Returns: format constant; validation guarantees recognition.
func (c Config) BodyFormat() target.Format {
	format, _ := target.ParseFormat(c.Notify.BodyFormat)
	return format
}
