package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Player   PlayerConfig   `mapstructure:"player" yaml:"player"`
	Sources  SourcesConfig  `mapstructure:"sources" yaml:"sources"`
}

// DatabaseConfig configures the sqlite watch-state store.
type DatabaseConfig struct {
	Path           string `mapstructure:"path" yaml:"path"`
	MaxConnections int    `mapstructure:"max_connections" yaml:"max_connections"`
	WALMode        bool   `mapstructure:"wal_mode" yaml:"wal_mode"`
}

// LoggingConfig configures the application logger.
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`     // text, json
	File       string `mapstructure:"file" yaml:"file"`         // empty = stderr
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// PlayerConfig configures the progress sampler.
type PlayerConfig struct {
	SaveIntervalSeconds int `mapstructure:"save_interval_seconds" yaml:"save_interval_seconds"`
	ProbeTimeoutSeconds int `mapstructure:"probe_timeout_seconds" yaml:"probe_timeout_seconds"`
}

// SourcesConfig configures the embed hosts for source selection.
type SourcesConfig struct {
	PrimaryBase  string `mapstructure:"primary_base" yaml:"primary_base"`
	FallbackBase string `mapstructure:"fallback_base" yaml:"fallback_base"`
}

// ConfigDir returns the famflix configuration directory.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "famflix")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".famflix")
	}
	return filepath.Join(home, ".config", "famflix")
}

// StateDir returns the directory for databases and logs.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "famflix")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".famflix")
	}
	return filepath.Join(home, ".local", "share", "famflix")
}

// InitializeDirs creates the configuration and state directories.
func InitializeDirs() error {
	for _, dir := range []string{ConfigDir(), StateDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// SetDefaults registers default values on a viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", filepath.Join(StateDir(), "famflix.db"))
	v.SetDefault("database.max_connections", 4)
	v.SetDefault("database.wal_mode", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	v.SetDefault("player.save_interval_seconds", 60)
	v.SetDefault("player.probe_timeout_seconds", 10)

	v.SetDefault("sources.primary_base", "https://vixsrc.to")
	v.SetDefault("sources.fallback_base", "https://vidsrc.cc/v2/embed")
}

// Load reads configuration from file and environment. cfgFile may be empty,
// in which case the default location is used; a missing config file is not
// an error.
func Load(cfgFile string) (*Config, *viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
	}

	v.SetEnvPrefix("FAMFLIX")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, nil, err
	}

	return &cfg, v, nil
}

func validate(cfg *Config) error {
	if cfg.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if cfg.Database.MaxConnections < 1 {
		cfg.Database.MaxConnections = 1
	}
	if cfg.Player.SaveIntervalSeconds < 1 {
		return fmt.Errorf("player.save_interval_seconds must be positive")
	}
	if cfg.Player.ProbeTimeoutSeconds < 1 {
		return fmt.Errorf("player.probe_timeout_seconds must be positive")
	}
	return nil
}

// WriteDefault writes a commented default configuration file. Used by
// `famflix config init`; refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if path == "" {
		path = filepath.Join(ConfigDir(), "config.yaml")
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to build defaults: %w", err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
