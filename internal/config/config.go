package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

var refreshParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Config holds the showcase service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	API      APIConfig      `yaml:"api"`
	Fallback FallbackConfig `yaml:"fallback"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Contact  ContactConfig  `yaml:"contact"`
	Logging  LoggingConfig  `yaml:"logging"`
	Flags    FlagsConfig    `yaml:"flags"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// APIConfig points at the remote tabular rows endpoint.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	TableID int    `yaml:"table_id"`
	Token   string `yaml:"token"`
	Timeout string `yaml:"timeout"`

	// Fields maps internal product fields to the table's column names.
	Fields map[string]string `yaml:"fields"`
}

type FallbackConfig struct {
	Path string `yaml:"path"`
}

type CatalogConfig struct {
	SearchDebounce   string `yaml:"search_debounce"`
	BannerTTL        string `yaml:"banner_ttl"`
	PlaceholderImage string `yaml:"placeholder_image"`
	Currency         string `yaml:"currency"`
	DecimalComma     bool   `yaml:"decimal_comma"`
	// Refresh is a cron spec for periodic reloads; empty disables it.
	Refresh string `yaml:"refresh"`
}

type ContactConfig struct {
	BaseURL string `yaml:"base_url"`
	Phone   string `yaml:"phone"`
	Message string `yaml:"message"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// FlagsConfig configures the rollout feature-flag client. An empty API key
// keeps every flag at its default.
type FlagsConfig struct {
	APIKey string `yaml:"api_key"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:      ":8080",
			StaticDir: "static",
		},
		API: APIConfig{
			BaseURL: "https://api.baserow.io",
			Timeout: "10s",
		},
		Fallback: FallbackConfig{Path: "data/products.json"},
		Catalog: CatalogConfig{
			SearchDebounce:   "300ms",
			BannerTTL:        "10s",
			PlaceholderImage: "/static/placeholder.svg",
			Currency:         "R$",
			DecimalComma:     true,
		},
		Contact: ContactConfig{
			BaseURL: "https://wa.me",
			Message: "Hello! I want the product: %s - %s",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a YAML file on top of the defaults and applies environment
// overrides. A missing path is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SHOWCASE_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("PORT"); v != "" && os.Getenv("SHOWCASE_ADDR") == "" {
		c.Server.Addr = ":" + v
	}
	if v := os.Getenv("SHOWCASE_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("SHOWCASE_API_TABLE"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			c.API.TableID = id
		}
	}
	if v := os.Getenv("SHOWCASE_API_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("SHOWCASE_FALLBACK_PATH"); v != "" {
		c.Fallback.Path = v
	}
	if v := os.Getenv("SHOWCASE_CONTACT_PHONE"); v != "" {
		c.Contact.Phone = v
	}
	if v := os.Getenv("SHOWCASE_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("ROLLOUT_API_KEY"); v != "" {
		c.Flags.APIKey = v
	}
}

// Validate checks durations and the fields the service cannot run without.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	for name, v := range map[string]string{
		"api.timeout":             c.API.Timeout,
		"catalog.search_debounce": c.Catalog.SearchDebounce,
		"catalog.banner_ttl":      c.Catalog.BannerTTL,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.Catalog.Refresh != "" {
		if _, err := refreshParser.Parse(c.Catalog.Refresh); err != nil {
			return fmt.Errorf("catalog.refresh: %w", err)
		}
	}
	return nil
}

// APITimeout is the per-request timeout for the remote API.
func (c *Config) APITimeout() time.Duration { return mustDuration(c.API.Timeout) }

func (c *Config) SearchDebounce() time.Duration { return mustDuration(c.Catalog.SearchDebounce) }

func (c *Config) BannerTTL() time.Duration { return mustDuration(c.Catalog.BannerTTL) }

// mustDuration is only called on validated values.
func mustDuration(v string) time.Duration {
	d, _ := time.ParseDuration(v)
	return d
}
