package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. SINGLY_ACCESS_TOKEN.
const EnvPrefix = "SINGLY"

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName            string        `mapstructure:"app_name"`
	LogLevel           string        `mapstructure:"log_level"`
	APIBaseURL         string        `mapstructure:"api_base_url"`
	UserAgent          string        `mapstructure:"user_agent"`
	AccessToken        string        `mapstructure:"access_token"`
	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout"`
	HTTPTimeout        time.Duration `mapstructure:"-"`

	StorageType       string        `mapstructure:"storage_type"`
	SessionPath       string        `mapstructure:"session_path"`
	SessionTTLSeconds int64         `mapstructure:"session_ttl_seconds"`
	SessionTTL        time.Duration `mapstructure:"-"`

	StorageCleanupIntervalSeconds int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageCleanupInterval        time.Duration `mapstructure:"-"`
}

// Load reads configuration from configs/.env and the environment.
func Load() (*Config, error) {
	return LoadFrom("configs/.env")
}

// LoadFrom is Load with an explicit dotenv path. A missing file is ignored.
func LoadFrom(envFile string) (*Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)

	v.SetDefault("app_name", "singly")
	v.SetDefault("log_level", "warn")
	v.SetDefault("api_base_url", "https://api.singly.com")
	v.SetDefault("user_agent", "singly-connect/1.0")
	v.SetDefault("access_token", "")
	v.SetDefault("http_timeout", 30) // seconds
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("session_path", "./data/session.db")
	v.SetDefault("session_ttl_seconds", int64((30*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.APIBaseURL = strings.TrimSpace(cfg.APIBaseURL)
	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api_base_url %q (must be an absolute URL)", cfg.APIBaseURL)
	}

	if cfg.HTTPTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid http_timeout (must be positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	if cfg.SessionTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid session_ttl_seconds (must be positive seconds)")
	}
	cfg.SessionTTL = time.Duration(cfg.SessionTTLSeconds) * time.Second

	if cfg.StorageCleanupIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupIntervalSeconds) * time.Second
	cfg.AccessToken = strings.TrimSpace(cfg.AccessToken)

	return &cfg, nil
}
