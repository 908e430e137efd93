package config

// Package config handles configuration loading for MarketLens.
// It supports YAML config files with environment variable overrides.

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm"      yaml:"llm"`
	Snapshot SnapshotConfig `mapstructure:"snapshot" yaml:"snapshot"`
	API      APIConfig      `mapstructure:"api"      yaml:"api"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// LLMConfig holds the analysis service configuration.
type LLMConfig struct {
	Provider    string   `mapstructure:"provider"    yaml:"provider"` // "deepseek"
	BaseURL     string   `mapstructure:"base_url"    yaml:"base_url"`
	APIKey      string   `mapstructure:"api_key"     yaml:"api_key"`
	Model       string   `mapstructure:"model"       yaml:"model"`
	Temperature *float64 `mapstructure:"temperature" yaml:"temperature"` // nil keeps the provider default
	MaxTokens   int      `mapstructure:"max_tokens"  yaml:"max_tokens"`
	TimeoutSec  int      `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// Timeout returns the request timeout as a duration.
func (c LLMConfig) Timeout() time.Duration {
	return seconds(c.TimeoutSec, 60)
}

// SnapshotConfig holds the snapshot endpoints and their refresh cadence.
type SnapshotConfig struct {
	NewsURL             string   `mapstructure:"news_url"              yaml:"news_url"`
	SentimentURL        string   `mapstructure:"sentiment_url"         yaml:"sentiment_url"`
	ReportsURL          string   `mapstructure:"reports_url"           yaml:"reports_url"`
	FeedURLs            []string `mapstructure:"feed_urls"             yaml:"feed_urls"`
	NewsRefreshSec      int      `mapstructure:"news_refresh_sec"      yaml:"news_refresh_sec"`
	SentimentRefreshSec int      `mapstructure:"sentiment_refresh_sec" yaml:"sentiment_refresh_sec"`
	ReportsRefreshSec   int      `mapstructure:"reports_refresh_sec"   yaml:"reports_refresh_sec"`
	TimeoutSec          int      `mapstructure:"timeout_sec"           yaml:"timeout_sec"`
	KeepStale           bool     `mapstructure:"keep_stale"            yaml:"keep_stale"` // keep last good data on failed refresh
}

// NewsRefresh returns the news polling interval.
func (c SnapshotConfig) NewsRefresh() time.Duration { return seconds(c.NewsRefreshSec, 60) }

// SentimentRefresh returns the sentiment polling interval.
func (c SnapshotConfig) SentimentRefresh() time.Duration { return seconds(c.SentimentRefreshSec, 120) }

// ReportsRefresh returns the reports polling interval.
func (c SnapshotConfig) ReportsRefresh() time.Duration { return seconds(c.ReportsRefreshSec, 600) }

// Timeout returns the per-request HTTP timeout.
func (c SnapshotConfig) Timeout() time.Duration { return seconds(c.TimeoutSec, 15) }

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host             string   `mapstructure:"host"               yaml:"host"`
	Port             int      `mapstructure:"port"               yaml:"port"`
	CORSOrigins      []string `mapstructure:"cors_origins"       yaml:"cors_origins"`
	AnalyzePerMinute int      `mapstructure:"analyze_per_minute" yaml:"analyze_per_minute"` // 0 disables limiting
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.marketlens/config.yaml (home directory)
//  3. /etc/marketlens/config.yaml (system)
//
// Environment variables override config file values.
// Format: MARKETLENS_<SECTION>_<KEY>, e.g., MARKETLENS_LLM_API_KEY
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".marketlens"))
	v.AddConfigPath("/etc/marketlens")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("MARKETLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Override sensitive values from environment
	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm.provider", "deepseek")
	v.SetDefault("llm.base_url", "https://api.deepseek.com")
	v.SetDefault("llm.model", "deepseek-chat")
	v.SetDefault("llm.temperature", 1.3)
	v.SetDefault("llm.max_tokens", 500)
	v.SetDefault("llm.timeout_sec", 60)

	// Snapshot defaults
	v.SetDefault("snapshot.news_url", "http://localhost:8000/news.json")
	v.SetDefault("snapshot.sentiment_url", "http://localhost:8000/sentiment.json")
	v.SetDefault("snapshot.reports_url", "http://localhost:8000/reports.json")
	v.SetDefault("snapshot.feed_urls", []string{})
	v.SetDefault("snapshot.news_refresh_sec", 60)
	v.SetDefault("snapshot.sentiment_refresh_sec", 120)
	v.SetDefault("snapshot.reports_refresh_sec", 600)
	v.SetDefault("snapshot.timeout_sec", 15)
	v.SetDefault("snapshot.keep_stale", true)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("api.analyze_per_minute", 20)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
// DEEPSEEK_API_KEY is honoured when the prefixed variable is unset.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("DEEPSEEK_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}
	if key := os.Getenv("MARKETLENS_LLM_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}
}

func seconds(n, def int) time.Duration {
	if n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Second
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
