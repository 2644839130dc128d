// Package config loads service configuration from a YAML file with
// environment-variable overrides for credentials.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// GHL holds GoHighLevel OAuth and API settings.
type GHL struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri"`
	AuthURL      string `yaml:"auth_url"`
	TokenURL     string `yaml:"token_url"`
	APIBaseURL   string `yaml:"api_base_url"`
	Scope        string `yaml:"scope"`
}

// Woo holds WooCommerce REST API settings.
type Woo struct {
	BaseURL        string `yaml:"base_url"`
	ConsumerKey    string `yaml:"consumer_key"`
	ConsumerSecret string `yaml:"consumer_secret"`
}

// Sync holds tunables for the paginated sync driver.
type Sync struct {
	PageSize       int           `yaml:"page_size"`
	BatchSize      int           `yaml:"batch_size"`
	PageDelay      time.Duration `yaml:"page_delay"`
	BatchDelay     time.Duration `yaml:"batch_delay"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
}

// UnmarshalYAML accepts Go duration strings ("2s", "500ms") for the delay
// fields and leaves fields absent from the file at their current values.
func (s *Sync) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		PageSize       int    `yaml:"page_size"`
		BatchSize      int    `yaml:"batch_size"`
		PageDelay      string `yaml:"page_delay"`
		BatchDelay     string `yaml:"batch_delay"`
		RetryBaseDelay string `yaml:"retry_base_delay"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.PageSize != 0 {
		s.PageSize = raw.PageSize
	}
	if raw.BatchSize != 0 {
		s.BatchSize = raw.BatchSize
	}
	for _, field := range []struct {
		src string
		dst *time.Duration
	}{
		{raw.PageDelay, &s.PageDelay},
		{raw.BatchDelay, &s.BatchDelay},
		{raw.RetryBaseDelay, &s.RetryBaseDelay},
	} {
		if field.src == "" {
			continue
		}
		d, err := time.ParseDuration(field.src)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", field.src, err)
		}
		*field.dst = d
	}
	return nil
}

// Config is the top-level service configuration.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DBPath     string `yaml:"db_path"`
	GHL        GHL    `yaml:"gohighlevel"`
	Woo        Woo    `yaml:"woocommerce"`
	Sync       Sync   `yaml:"sync"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		ListenAddr: ":8080",
		DBPath:     "crmsync.db",
		GHL: GHL{
			AuthURL:    "https://marketplace.gohighlevel.com/oauth/chooselocation",
			TokenURL:   "https://services.leadconnectorhq.com/oauth/token",
			APIBaseURL: "https://services.leadconnectorhq.com",
			Scope:      "contacts.readonly locations.readonly",
		},
		Sync: Sync{
			PageSize:       100,
			BatchSize:      20,
			PageDelay:      2 * time.Second,
			BatchDelay:     500 * time.Millisecond,
			RetryBaseDelay: 5 * time.Second,
		},
	}
}

// Load reads the YAML config at path (if it exists) on top of defaults,
// then applies environment overrides for secrets.
func Load(path string) (*Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	applyEnv(&cfg.GHL.ClientID, "GHL_CLIENT_ID")
	applyEnv(&cfg.GHL.ClientSecret, "GHL_CLIENT_SECRET")
	applyEnv(&cfg.GHL.RedirectURI, "GHL_REDIRECT_URI")
	applyEnv(&cfg.Woo.BaseURL, "WOO_BASE_URL")
	applyEnv(&cfg.Woo.ConsumerKey, "WOO_CONSUMER_KEY")
	applyEnv(&cfg.Woo.ConsumerSecret, "WOO_CONSUMER_SECRET")
	applyEnv(&cfg.DBPath, "CRMSYNC_DB_PATH")
	applyEnv(&cfg.ListenAddr, "CRMSYNC_LISTEN_ADDR")

	if cfg.Sync.PageSize <= 0 {
		cfg.Sync.PageSize = 100
	}
	if cfg.Sync.BatchSize <= 0 {
		cfg.Sync.BatchSize = 20
	}
	return cfg, nil
}

func applyEnv(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}
