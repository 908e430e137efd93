package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearKeyEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MARKETLENS_LLM_API_KEY", "")
	t.Setenv("DEEPSEEK_API_KEY", "")
}

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	clearKeyEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// LLM defaults
	if cfg.LLM.Provider != "deepseek" {
		t.Errorf("LLM.Provider: got %q, want %q", cfg.LLM.Provider, "deepseek")
	}
	if cfg.LLM.BaseURL != "https://api.deepseek.com" {
		t.Errorf("LLM.BaseURL: got %q", cfg.LLM.BaseURL)
	}
	if cfg.LLM.Model != "deepseek-chat" {
		t.Errorf("LLM.Model: got %q, want %q", cfg.LLM.Model, "deepseek-chat")
	}
	if cfg.LLM.Temperature == nil || *cfg.LLM.Temperature != 1.3 {
		t.Errorf("LLM.Temperature: got %v, want 1.3", cfg.LLM.Temperature)
	}
	if cfg.LLM.MaxTokens != 500 {
		t.Errorf("LLM.MaxTokens: got %d, want 500", cfg.LLM.MaxTokens)
	}
	if cfg.LLM.APIKey != "" {
		t.Errorf("LLM.APIKey should be empty by default, got %q", cfg.LLM.APIKey)
	}

	// Snapshot defaults
	if cfg.Snapshot.NewsRefresh() != 60*time.Second {
		t.Errorf("NewsRefresh: got %v", cfg.Snapshot.NewsRefresh())
	}
	if cfg.Snapshot.SentimentRefresh() != 120*time.Second {
		t.Errorf("SentimentRefresh: got %v", cfg.Snapshot.SentimentRefresh())
	}
	if cfg.Snapshot.ReportsRefresh() != 600*time.Second {
		t.Errorf("ReportsRefresh: got %v", cfg.Snapshot.ReportsRefresh())
	}
	if !cfg.Snapshot.KeepStale {
		t.Error("Snapshot.KeepStale should be true by default")
	}

	// API defaults
	if cfg.API.Host != "0.0.0.0" {
		t.Errorf("API.Host: got %q, want %q", cfg.API.Host, "0.0.0.0")
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port: got %d, want 8080", cfg.API.Port)
	}
	if cfg.API.AnalyzePerMinute != 20 {
		t.Errorf("API.AnalyzePerMinute: got %d, want 20", cfg.API.AnalyzePerMinute)
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "text")
	}
}

// ── LoadFromFile ──

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "test_config.yaml")
	content := []byte(`
llm:
  base_url: "http://127.0.0.1:9999"
  api_key: "sk-from-file-1234567890"
  temperature: 0.7
  max_tokens: 800
snapshot:
  news_url: "http://example.test/news.json"
  feed_urls:
    - "http://example.test/rss.xml"
  news_refresh_sec: 30
  keep_stale: false
api:
  port: 9090
logging:
  level: "debug"
  format: "json"
`)
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	clearKeyEnv(t)

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.LLM.BaseURL != "http://127.0.0.1:9999" {
		t.Errorf("LLM.BaseURL: got %q", cfg.LLM.BaseURL)
	}
	if cfg.LLM.APIKey != "sk-from-file-1234567890" {
		t.Errorf("LLM.APIKey: got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Temperature == nil || *cfg.LLM.Temperature != 0.7 {
		t.Errorf("LLM.Temperature: got %v, want 0.7", cfg.LLM.Temperature)
	}
	if cfg.LLM.Model != "deepseek-chat" {
		t.Errorf("LLM.Model should keep its default, got %q", cfg.LLM.Model)
	}
	if cfg.Snapshot.NewsURL != "http://example.test/news.json" {
		t.Errorf("Snapshot.NewsURL: got %q", cfg.Snapshot.NewsURL)
	}
	if len(cfg.Snapshot.FeedURLs) != 1 {
		t.Errorf("Snapshot.FeedURLs: got %v", cfg.Snapshot.FeedURLs)
	}
	if cfg.Snapshot.NewsRefresh() != 30*time.Second {
		t.Errorf("NewsRefresh: got %v", cfg.Snapshot.NewsRefresh())
	}
	if cfg.Snapshot.KeepStale {
		t.Error("Snapshot.KeepStale should be false")
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port: got %d, want 9090", cfg.API.Port)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("LoadFromFile() with nonexistent path should return error")
	}
}

func TestDurationFallbacks(t *testing.T) {
	var s SnapshotConfig
	if s.Timeout() != 15*time.Second {
		t.Errorf("zero Timeout should fall back to 15s, got %v", s.Timeout())
	}
	var l LLMConfig
	if l.Timeout() != 60*time.Second {
		t.Errorf("zero LLM Timeout should fall back to 60s, got %v", l.Timeout())
	}
}

// ── overrideFromEnv ──

func TestOverrideFromEnv(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("DEEPSEEK_API_KEY", "sk-legacy-key")

	cfg := &Config{}
	overrideFromEnv(cfg)
	if cfg.LLM.APIKey != "sk-legacy-key" {
		t.Errorf("APIKey from DEEPSEEK_API_KEY: got %q", cfg.LLM.APIKey)
	}

	t.Setenv("MARKETLENS_LLM_API_KEY", "sk-prefixed-key")
	overrideFromEnv(cfg)
	if cfg.LLM.APIKey != "sk-prefixed-key" {
		t.Errorf("prefixed variable should win, got %q", cfg.LLM.APIKey)
	}
}

func TestOverrideFromEnvNoEnvSet(t *testing.T) {
	clearKeyEnv(t)

	cfg := &Config{LLM: LLMConfig{APIKey: "from-config"}}
	overrideFromEnv(cfg)

	if cfg.LLM.APIKey != "from-config" {
		t.Errorf("APIKey should stay as 'from-config' when env is unset, got %q", cfg.LLM.APIKey)
	}
}

// ── maskKey ──

func TestMaskKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "***"},
		{"abcd", "***"},
		{"12345678", "***"},
		{"123456789", "123...789"},
		{"sk-abcdef1234567890xyz", "sk-...xyz"},
	}
	for _, tc := range tests {
		if got := maskKey(tc.input); got != tc.want {
			t.Errorf("maskKey(%q): got %q, want %q", tc.input, got, tc.want)
		}
	}
}

// ── CheckAPIKeys / checkKey ──

func TestCheckAPIKeys(t *testing.T) {
	clearKeyEnv(t)

	statuses := CheckAPIKeys(&Config{})
	if len(statuses) != 1 {
		t.Fatalf("CheckAPIKeys: got %d statuses, want 1", len(statuses))
	}
	if statuses[0].IsSet || statuses[0].Source != KeySourceNone {
		t.Errorf("empty key: got %+v", statuses[0])
	}

	statuses = CheckAPIKeys(&Config{LLM: LLMConfig{APIKey: "sk-test-very-long-key-value"}})
	if statuses[0].Source != KeySourceConfig {
		t.Errorf("Source: got %q, want %q", statuses[0].Source, KeySourceConfig)
	}
	if statuses[0].Masked != "sk-...lue" {
		t.Errorf("Masked: got %q, want %q", statuses[0].Masked, "sk-...lue")
	}

	t.Setenv("DEEPSEEK_API_KEY", "sk-test-very-long-key-value")
	statuses = CheckAPIKeys(&Config{LLM: LLMConfig{APIKey: "sk-test-very-long-key-value"}})
	if statuses[0].Source != KeySourceEnv {
		t.Errorf("Source: got %q, want %q", statuses[0].Source, KeySourceEnv)
	}
}

func TestHomeDirReturnsNonEmpty(t *testing.T) {
	if homeDir() == "" {
		t.Error("homeDir() should not return empty string")
	}
}
