package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":8080" || cfg.DataSource.Provider != "yahoo" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Cache.SeriesTTL != 5*time.Minute || cfg.Cache.MetadataTTL != time.Hour {
		t.Errorf("unexpected cache TTLs %v %v", cfg.Cache.SeriesTTL, cfg.Cache.MetadataTTL)
	}
	if cfg.Store.HistoryLimit != 10 || cfg.Store.DSN != "data/marketlens.db" {
		t.Errorf("unexpected store defaults %+v", cfg.Store)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
	if cfg.TelegramEnabled() {
		t.Error("telegram must be off by default")
	}
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9000"
data_source:
  provider: rest
  base_url: http://localhost:7000
  timeout: 10s
cache:
  backend: redis
  redis_addr: localhost:6379
  series_ttl: 2m
export:
  watchlist: [AAPL, MSFT]
`)
	t.Setenv("DATA_API_KEY", "secret")
	t.Setenv("EXPORT_WATCHLIST", "nvda, tsla ,")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":9000" || cfg.DataSource.Timeout != 10*time.Second {
		t.Errorf("yaml values not applied: %+v", cfg)
	}
	if cfg.Cache.SeriesTTL != 2*time.Minute || cfg.Cache.MetadataTTL != time.Hour {
		t.Errorf("unexpected TTLs %v %v", cfg.Cache.SeriesTTL, cfg.Cache.MetadataTTL)
	}
	if cfg.DataSource.APIKey != "secret" {
		t.Errorf("env override not applied")
	}
	if strings.Join(cfg.Export.Watchlist, ",") != "nvda,tsla" {
		t.Errorf("unexpected watchlist %v", cfg.Export.Watchlist)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config: %v", err)
	}
}

func TestValidate(t *testing.T) {
	path := writeConfig(t, `
data_source:
  provider: rest
cache:
  backend: memcached
telegram:
  bot_token: abc
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, field := range []string{"BaseURL", "Backend", "ChatID"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("expected %s in error, got %v", field, err)
		}
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}
