package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the deployment-level configuration loaded once at process start.
// Runtime thresholds live in the settings table instead (see Settings).
type File struct {
	Symbol   string        `yaml:"symbol"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Venues   VenuesConfig   `yaml:"venues"`
	Bands    []float64      `yaml:"depth_bands"`
}

// DatabaseConfig holds postgres connection settings.
type DatabaseConfig struct {
	DSN            string        `yaml:"dsn"`
	QueryTimeout   time.Duration `yaml:"query_timeout"`
	MaxOpenConns   int           `yaml:"max_open_conns"`
	MaxIdleConns   int           `yaml:"max_idle_conns"`
}

// RedisConfig holds the optional hot-cache connection. An empty address
// disables the cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// MonitorConfig holds the health/metrics HTTP server settings.
type MonitorConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// VenuesConfig holds per-venue connection settings.
type VenuesConfig struct {
	MEXC   VenueConfig `yaml:"mexc"`
	KuCoin VenueConfig `yaml:"kucoin"`
}

// VenueConfig holds one venue's endpoint and optional credentials. Credentials
// enable the user-liquidity tracker; leaving them empty is not an error.
type VenueConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	APISecret      string        `yaml:"api_secret"`
	APIPassphrase  string        `yaml:"api_passphrase"` // kucoin only
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"`
}

// HasCredentials reports whether authenticated endpoints can be used.
func (v VenueConfig) HasCredentials() bool {
	return v.APIKey != "" && v.APISecret != ""
}

// Load reads a YAML config file, expanding ${ENV} references in its contents
// so secrets can stay out of the file itself.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	content := os.ExpandEnv(string(data))

	var cfg File
	if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}

	return &cfg, nil
}

func (c *File) applyDefaults() {
	if c.Symbol == "" {
		c.Symbol = "BTC/USDT"
	}
	if len(c.Bands) == 0 {
		c.Bands = []float64{2, 5, 10}
	}
	if c.Database.QueryTimeout == 0 {
		c.Database.QueryTimeout = 10 * time.Second
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 8
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 2
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 5 * time.Minute
	}
	if c.Monitor.ListenAddr == "" {
		c.Monitor.ListenAddr = ":8087"
	}
	for _, v := range []*VenueConfig{&c.Venues.MEXC, &c.Venues.KuCoin} {
		if v.RequestTimeout == 0 {
			v.RequestTimeout = 30 * time.Second
		}
		if v.RateLimitRPS == 0 {
			v.RateLimitRPS = 5
		}
	}
	if c.Venues.MEXC.BaseURL == "" {
		c.Venues.MEXC.BaseURL = "https://api.mexc.com"
	}
	if c.Venues.KuCoin.BaseURL == "" {
		c.Venues.KuCoin.BaseURL = "https://api.kucoin.com"
	}
}
