package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sync.PageSize != 100 || cfg.Sync.BatchSize != 20 {
		t.Fatalf("defaults not applied: %+v", cfg.Sync)
	}
	if cfg.GHL.TokenURL == "" {
		t.Fatal("default token URL missing")
	}
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
listen_addr: ":9090"
woocommerce:
  base_url: https://store.example.com
sync:
  page_size: 25
  page_delay: 1s
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("GHL_CLIENT_ID", "env-client")
	t.Setenv("WOO_BASE_URL", "https://env.example.com")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":9090" || cfg.Sync.PageSize != 25 || cfg.Sync.PageDelay != time.Second {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	// Env wins over the file for credentials and endpoints.
	if cfg.GHL.ClientID != "env-client" || cfg.Woo.BaseURL != "https://env.example.com" {
		t.Fatalf("env overrides not applied: GHL=%q Woo=%q", cfg.GHL.ClientID, cfg.Woo.BaseURL)
	}
	// File-only sections keep their defaults.
	if cfg.Sync.BatchSize != 20 {
		t.Fatalf("untouched default lost: %d", cfg.Sync.BatchSize)
	}
}
