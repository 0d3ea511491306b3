// Package config loads CLI settings from defaults, an optional config file
// (YAML, TOML or JSON by extension) and CONNECTOR_* environment variables, in
// that order of precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/sdpower/connector-go/internal/logging"
	"github.com/spf13/viper"
)

const EnvPrefix = "CONNECTOR"

type Config struct {
	DryRun  DryRunConfig   `mapstructure:"dryrun"`
	Output  OutputConfig   `mapstructure:"output"`
	Logging logging.Config `mapstructure:"logging"`
	Watch   WatchConfig    `mapstructure:"watch"`
}

type DryRunConfig struct {
	PreviewLimit int  `mapstructure:"preview_limit"`
	Strict       bool `mapstructure:"strict"`
	// Workers bounds concurrent dry-runs in batch mode
	Workers int `mapstructure:"workers"`
}

type OutputConfig struct {
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

type WatchConfig struct {
	DebounceMS int `mapstructure:"debounce_ms"`
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("dryrun.preview_limit", 5)
	v.SetDefault("dryrun.strict", false)
	v.SetDefault("dryrun.workers", 4)

	v.SetDefault("output.format", "table")
	v.SetDefault("output.no_color", false)

	defaults := logging.DefaultConfig()
	v.SetDefault("logging.level", defaults.Level)
	v.SetDefault("logging.format", defaults.Format)
	v.SetDefault("logging.output", defaults.Output)
	v.SetDefault("logging.development", defaults.Development)

	v.SetDefault("watch.debounce_ms", 300)
}

// New builds a viper instance with defaults and environment binding. When
// configPath is empty the first of ./connector.yaml and
// $XDG_CONFIG_HOME/connector/config.yaml that exists is read.
func New(configPath string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if configPath == "" {
		configPath = findConfigFile()
	}
	if configPath == "" {
		return v, nil
	}

	v.SetConfigFile(configPath)
	if filepath.Ext(configPath) == "" {
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}
	return v, nil
}

func findConfigFile() string {
	candidates := []string{"connector.yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "connector", "config.yaml"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Load reads and validates the configuration
func Load(configPath string) (*Config, error) {
	v, err := New(configPath)
	if err != nil {
		return nil, err
	}
	return LoadWithViper(v)
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.DryRun.PreviewLimit < 0 {
		return errors.Newf("dryrun.preview_limit must be >= 0, got %d", c.DryRun.PreviewLimit)
	}
	if c.DryRun.Workers < 1 {
		return errors.WithHint(
			errors.Newf("dryrun.workers must be >= 1, got %d", c.DryRun.Workers),
			"set CONNECTOR_DRYRUN_WORKERS or dryrun.workers in connector.yaml")
	}
	switch c.Output.Format {
	case "table", "json", "csv", "yaml":
	default:
		return errors.Newf("output.format must be one of table, json, csv, yaml, got %q", c.Output.Format)
	}
	if c.Watch.DebounceMS < 0 {
		return errors.Newf("watch.debounce_ms must be >= 0, got %d", c.Watch.DebounceMS)
	}
	return nil
}
