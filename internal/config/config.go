// Package config loads the appointment CLI configuration from a YAML file
// and APPOINTMENT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Checkpoint store drivers
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config is the complete CLI configuration.
type Config struct {
	OpenAI OpenAIConfig `mapstructure:"openai"`
	Store  StoreConfig  `mapstructure:"store"`
	Log    LogConfig    `mapstructure:"log"`

	// DirectoryFile optionally replaces the built-in doctor directory.
	DirectoryFile string `mapstructure:"directory_file"`

	// HistoryDir holds the per-thread step logs.
	HistoryDir string `mapstructure:"history_dir"`
}

// OpenAIConfig configures the completion client.
type OpenAIConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	Temperature       float64       `mapstructure:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// StoreConfig selects the checkpoint store. Dir is used by the file driver,
// DSN by the sqlite (a file path), postgres and redis drivers.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Dir    string `mapstructure:"dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// SlogLevel parses Level.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", c.Level)
	}
	return level, nil
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
			MaxTokens:   256,
			MaxRetries:  2,
			Timeout:     60 * time.Second,
		},
		Store: StoreConfig{
			Driver: DriverFile,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks the configuration for values the CLI cannot use.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverMemory, DriverFile:
	case DriverSQLite, DriverPostgres, DriverRedis:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for the %s driver", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		errs = append(errs, fmt.Errorf("openai.temperature must be between 0 and 2"))
	}
	if c.OpenAI.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("openai.max_tokens must be positive"))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Loader reads configuration through viper.
type Loader struct {
	v *viper.Viper
}

// NewLoader returns a loader with defaults and environment bindings set.
func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix("APPOINTMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The conventional OpenAI variable works without the prefix
	_ = v.BindEnv("openai.api_key", "APPOINTMENT_OPENAI_API_KEY", "OPENAI_API_KEY")

	return &Loader{v: v}
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("openai.api_key", cfg.OpenAI.APIKey)
	v.SetDefault("openai.base_url", cfg.OpenAI.BaseURL)
	v.SetDefault("openai.model", cfg.OpenAI.Model)
	v.SetDefault("openai.temperature", cfg.OpenAI.Temperature)
	v.SetDefault("openai.max_tokens", cfg.OpenAI.MaxTokens)
	v.SetDefault("openai.max_retries", cfg.OpenAI.MaxRetries)
	v.SetDefault("openai.requests_per_second", cfg.OpenAI.RequestsPerSecond)
	v.SetDefault("openai.timeout", cfg.OpenAI.Timeout)
	v.SetDefault("store.driver", cfg.Store.Driver)
	v.SetDefault("store.dsn", cfg.Store.DSN)
	v.SetDefault("store.dir", cfg.Store.Dir)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.json", cfg.Log.JSON)
	v.SetDefault("directory_file", cfg.DirectoryFile)
	v.SetDefault("history_dir", cfg.HistoryDir)
}

// Load finds a config file and loads it, falling back to defaults plus
// environment overrides when none exists. The file is the first of
// $APPOINTMENT_CONFIG, <user config dir>/appointment/config.yaml and
// ./appointment.yaml.
func (l *Loader) Load() (*Config, error) {
	if path := os.Getenv("APPOINTMENT_CONFIG"); path != "" {
		return l.LoadFromFile(path)
	}
	for _, path := range searchPaths() {
		if _, err := os.Stat(path); err == nil {
			return l.LoadFromFile(path)
		}
	}
	return l.unmarshal()
}

// LoadFromFile loads configuration from an explicit file.
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return l.unmarshal()
}

func (l *Loader) unmarshal() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func searchPaths() []string {
	var paths []string
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "appointment", "config.yaml"))
	}
	return append(paths, "appointment.yaml")
}
