package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(databaseDSNEnv, "")
	t.Setenv(telegramTokenEnv, "")

	cfg := Load()
	if cfg.Store.Backend != "file" {
		t.Fatalf("expected file backend by default, got %q", cfg.Store.Backend)
	}
	if cfg.Store.MaxAge.Std() != 24*time.Hour {
		t.Fatalf("expected 24h max age, got %v", cfg.Store.MaxAge.Std())
	}
	if cfg.Filter.MaxPrice != nil || cfg.Filter.MinDiscountPercentage != nil {
		t.Fatal("price and discount limits must be disabled by default")
	}
	if cfg.LLM.Provider != "none" {
		t.Fatalf("expected llm disabled by default, got %q", cfg.LLM.Provider)
	}
	if cfg.Scoring.MinVotesThreshold != 5 || cfg.Scoring.MinCommentsThreshold != 2 {
		t.Fatalf("unexpected scoring defaults: %+v", cfg.Scoring)
	}
	if cfg.Filter.MinAuthenticityScore != 0.4 {
		t.Fatalf("unexpected authenticity threshold default: %v", cfg.Filter.MinAuthenticityScore)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfigFile(t, `
feeds:
  urls:
    - https://example.org/deals.rss
  pollInterval: 90s
store:
  backend: postgres
  maxAge: 12h
filter:
  maxPrice: 150.50
  minAuthenticityScore: 0.55
relevance:
  keywords: [laptop, monitor]
  fallbackDefaultPass: true
`)
	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "")

	cfg := Load()
	if len(cfg.Feeds.URLs) != 1 || cfg.Feeds.URLs[0] != "https://example.org/deals.rss" {
		t.Fatalf("feed urls not merged: %v", cfg.Feeds.URLs)
	}
	if cfg.Feeds.PollInterval.Std() != 90*time.Second {
		t.Fatalf("poll interval not parsed: %v", cfg.Feeds.PollInterval.Std())
	}
	if cfg.Store.Backend != "postgres" {
		t.Fatalf("backend not merged: %q", cfg.Store.Backend)
	}
	if cfg.Filter.MaxPrice == nil || *cfg.Filter.MaxPrice != 150.50 {
		t.Fatalf("max price not merged: %v", cfg.Filter.MaxPrice)
	}
	if cfg.Filter.MinAuthenticityScore != 0.55 {
		t.Fatalf("authenticity threshold not merged: %v", cfg.Filter.MinAuthenticityScore)
	}
	if !cfg.Relevance.FallbackDefaultPass || len(cfg.Relevance.Keywords) != 2 {
		t.Fatalf("relevance section not merged: %+v", cfg.Relevance)
	}
	// Untouched sections keep their defaults.
	if cfg.Feeds.FetchTimeout.Std() != 30*time.Second {
		t.Fatalf("fetch timeout default lost: %v", cfg.Feeds.FetchTimeout.Std())
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := writeConfigFile(t, `
store:
  dsn: postgres://file@host/db
telegram:
  botToken: from-file
`)
	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "postgres://env@host/db")
	t.Setenv(telegramTokenEnv, "from-env")

	cfg := Load()
	if cfg.Store.DSN != "postgres://env@host/db" {
		t.Fatalf("env DSN should win, got %q", cfg.Store.DSN)
	}
	if cfg.Telegram.BotToken != "from-env" {
		t.Fatalf("env bot token should win, got %q", cfg.Telegram.BotToken)
	}
}

func TestNormalizeRejectsUnknownValues(t *testing.T) {
	path := writeConfigFile(t, `
store:
  backend: dynamo
  maxAge: 24h
  retention: 1h
llm:
  provider: bard
`)
	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "")

	cfg := Load()
	if cfg.Store.Backend != "file" {
		t.Fatalf("unknown backend should fall back to file, got %q", cfg.Store.Backend)
	}
	if cfg.LLM.Provider != "none" {
		t.Fatalf("unknown provider should fall back to none, got %q", cfg.LLM.Provider)
	}
	if cfg.Store.Retention.Std() != 24*time.Hour {
		t.Fatalf("retention below max age should clamp, got %v", cfg.Store.Retention.Std())
	}
}

func TestBadConfigFileFallsBackToDefaults(t *testing.T) {
	path := writeConfigFile(t, "{not yaml")
	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "")

	cfg := Load()
	if cfg.Store.Backend != "file" || len(cfg.Feeds.URLs) != 1 {
		t.Fatalf("expected defaults after parse failure, got %+v", cfg)
	}
}
