package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g. PERT_ANALYSIS_EPSILON.
const EnvPrefix = "PERT"

// Config represents the complete analyzer configuration
type Config struct {
	Analysis    AnalysisConfig    `mapstructure:"analysis"`
	Probability ProbabilityConfig `mapstructure:"probability"`
	Output      OutputConfig      `mapstructure:"output"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Server      ServerConfig      `mapstructure:"server"`
	State       StateConfig       `mapstructure:"state"`
}

// AnalysisConfig tunes the critical path computation
type AnalysisConfig struct {
	// Epsilon is the relative slack tolerance (default: 1e-9)
	Epsilon float64 `mapstructure:"epsilon"`
	// MaxCriticalPaths caps path enumeration (default: 1000, 0 = default)
	MaxCriticalPaths int `mapstructure:"max_critical_paths"`
}

// ProbabilityConfig controls deadline evaluation defaults
type ProbabilityConfig struct {
	// DefaultDeadline is used when no --deadline is given, 0 = skip
	DefaultDeadline float64 `mapstructure:"default_deadline"`
	// Confidence for the deadline command (default: 0.95)
	Confidence float64 `mapstructure:"confidence"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	// Format is "text" or "json" (default: "text")
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	// File receives JSON logs; empty means stderr
	File string `mapstructure:"file"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// StateConfig controls where the last analysis is stored
type StateConfig struct {
	Dir string `mapstructure:"dir"`
}

// Default returns a Config with all default values
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Epsilon:          1e-9,
			MaxCriticalPaths: 1000,
		},
		Probability: ProbabilityConfig{
			DefaultDeadline: 0,
			Confidence:      0.95,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		State: StateConfig{
			Dir: ".pert",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("analysis.epsilon", defaults.Analysis.Epsilon)
	viper.SetDefault("analysis.max_critical_paths", defaults.Analysis.MaxCriticalPaths)

	viper.SetDefault("probability.default_deadline", defaults.Probability.DefaultDeadline)
	viper.SetDefault("probability.confidence", defaults.Probability.Confidence)

	viper.SetDefault("output.format", defaults.Output.Format)
	viper.SetDefault("output.color", defaults.Output.Color)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.file", defaults.Logging.File)

	viper.SetDefault("server.addr", defaults.Server.Addr)

	viper.SetDefault("state.dir", defaults.State.Dir)
}

// Init configures viper's search paths and environment binding, then reads
// the config file if one exists. A missing file is not an error.
func Init(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pert")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath(ConfigDir())
	}

	SetDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// Load unmarshals the current viper state and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the user-level configuration directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "pert")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pert"
	}
	return filepath.Join(home, ".config", "pert")
}

// ConfigFile returns the default user config file path
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "pert.yaml")
}
