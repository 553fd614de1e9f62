// Package config loads strtpl settings using Viper from an optional YAML
// file, STRTPL_ environment variables and command-line flags.
//
// Precedence, highest first: flags that were explicitly set, environment
// variables, the config file, then built-in defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/strtpl/internal/template"
)

// EnvPrefix prefixes every environment override, e.g. STRTPL_LOG_LEVEL.
const EnvPrefix = "STRTPL"

// Config holds runtime settings shared by the CLI commands.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	Database string `mapstructure:"database" yaml:"database"`
	FastPath bool   `mapstructure:"fast_path" yaml:"fast_path"`
	MaxSlots int    `mapstructure:"max_slots" yaml:"max_slots"`
	Format   string `mapstructure:"format" yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Database: "strtpl.db",
		FastPath: true,
		MaxSlots: template.MaxSlots,
		Format:   "text",
	}
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"log-level": "log_level",
	"db":        "database",
	"fast-path": "fast_path",
	"max-slots": "max_slots",
	"format":    "format",
}

// Load resolves the configuration. An empty path skips the config file;
// a non-empty path that cannot be read is an error. flags may be nil.
func Load(flags *pflag.FlagSet, path string) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("database", def.Database)
	v.SetDefault("fast_path", def.FastPath)
	v.SetDefault("max_slots", def.MaxSlots)
	v.SetDefault("format", def.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("format must be text or json, got %q", c.Format))
	}
	if c.MaxSlots < 1 || c.MaxSlots > template.MaxSlots {
		errs = append(errs, fmt.Errorf("max_slots must be between 1 and %d, got %d", template.MaxSlots, c.MaxSlots))
	}
	if strings.TrimSpace(c.Database) == "" {
		errs = append(errs, errors.New("database cannot be empty"))
	}
	return errors.Join(errs...)
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Level returns the configured slog level, defaulting to info.
func (c *Config) Level() slog.Level {
	l, _ := ParseLevel(c.LogLevel)
	return l
}
