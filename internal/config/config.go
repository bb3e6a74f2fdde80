package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	TargetsFile string `mapstructure:"targets_file"`
	SinksFile   string `mapstructure:"sinks_file"`

	ProbeIntervalSeconds  int64         `mapstructure:"probe_interval"`
	ProbeInterval         time.Duration `mapstructure:"-"`
	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-"`
	MaxRetries            int           `mapstructure:"max_retries"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	HistoryTTLSeconds      int64         `mapstructure:"history_ttl_seconds"`
	HistoryCleanupSeconds  int64         `mapstructure:"history_cleanup_interval_seconds"`
	HistoryTTL             time.Duration `mapstructure:"-"`
	HistoryCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "samvad-pulse")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("targets_file", "./configs/targets.yaml")
	v.SetDefault("sinks_file", "./configs/sinks.yaml")
	v.SetDefault("probe_interval", 60) // seconds
	v.SetDefault("request_timeout_seconds", 15)
	v.SetDefault("max_retries", 1)
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/pulse.db")
	v.SetDefault("history_ttl_seconds", int64((7*24*time.Hour)/time.Second))
	v.SetDefault("history_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.ProbeIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid probe_interval (must be positive seconds)")
	}
	cfg.ProbeInterval = time.Duration(cfg.ProbeIntervalSeconds) * time.Second

	if cfg.RequestTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid request_timeout_seconds (must be positive seconds)")
	}
	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second

	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("invalid max_retries (must not be negative)")
	}

	if cfg.HistoryTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid history_ttl_seconds (must be positive seconds)")
	}
	if cfg.HistoryCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid history_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.HistoryTTL = time.Duration(cfg.HistoryTTLSeconds) * time.Second
	cfg.HistoryCleanupInterval = time.Duration(cfg.HistoryCleanupSeconds) * time.Second

	return &cfg, nil
}
