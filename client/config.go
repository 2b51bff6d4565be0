package client

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bondmaster/bondcache/cache"
	"github.com/bondmaster/bondcache/lookup"
)

// Config holds everything a Client needs. Durations in the YAML form use
// Go duration syntax ("10s", "5m"); see LoadConfig.
type Config struct {
	// BaseURL of the bond-data service.
	BaseURL string
	// APIKey is sent as X-API-Key when non-empty.
	APIKey string
	// Timeout bounds each individual backend call.
	Timeout time.Duration

	// CacheTTL bounds staleness of resolved records.
	CacheTTL time.Duration
	// NegativeTTL bounds how long a definitive not-found is remembered.
	NegativeTTL time.Duration
	// ExhaustedTTL bounds how long a gave-up sentinel is remembered.
	ExhaustedTTL time.Duration
	// CacheCapacity is the entry limit of the lookup cache.
	CacheCapacity int
	// CacheShards overrides the automatic shard count (0 = auto).
	CacheShards int

	// MaxAttempts bounds backend polls per resolution cycle.
	MaxAttempts int
	// InitialBackoff and MaxBackoff shape the poll delay curve.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Observability wiring; not part of the file format.
	CacheMetrics  cache.Metrics
	LookupMetrics lookup.Metrics
	Logger        *slog.Logger
}

// DefaultConfig mirrors the defaults of the original add-in: a loopback
// backend, five-minute positive TTL, and a few hundred cached entries.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://127.0.0.1:8000",
		Timeout:        10 * time.Second,
		CacheTTL:       5 * time.Minute,
		NegativeTTL:    30 * time.Second,
		ExhaustedTTL:   15 * time.Second,
		CacheCapacity:  500,
		MaxAttempts:    5,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

// fileConfig is the YAML file shape. Durations are strings to keep the
// file human-writable; they are parsed with time.ParseDuration.
type fileConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	Timeout        string `yaml:"timeout"`
	CacheTTL       string `yaml:"cache_ttl"`
	NegativeTTL    string `yaml:"negative_ttl"`
	ExhaustedTTL   string `yaml:"exhausted_ttl"`
	CacheCapacity  int    `yaml:"cache_capacity"`
	CacheShards    int    `yaml:"cache_shards"`
	MaxAttempts    int    `yaml:"max_attempts"`
	InitialBackoff string `yaml:"initial_backoff"`
	MaxBackoff     string `yaml:"max_backoff"`
}

// LoadConfig reads a YAML file over the defaults. Unset fields keep their
// default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if fc.BaseURL != "" {
		cfg.BaseURL = fc.BaseURL
	}
	if fc.APIKey != "" {
		cfg.APIKey = fc.APIKey
	}
	if fc.CacheCapacity > 0 {
		cfg.CacheCapacity = fc.CacheCapacity
	}
	if fc.CacheShards > 0 {
		cfg.CacheShards = fc.CacheShards
	}
	if fc.MaxAttempts > 0 {
		cfg.MaxAttempts = fc.MaxAttempts
	}
	for _, d := range []struct {
		raw  string
		name string
		dst  *time.Duration
	}{
		{fc.Timeout, "timeout", &cfg.Timeout},
		{fc.CacheTTL, "cache_ttl", &cfg.CacheTTL},
		{fc.NegativeTTL, "negative_ttl", &cfg.NegativeTTL},
		{fc.ExhaustedTTL, "exhausted_ttl", &cfg.ExhaustedTTL},
		{fc.InitialBackoff, "initial_backoff", &cfg.InitialBackoff},
		{fc.MaxBackoff, "max_backoff", &cfg.MaxBackoff},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return cfg, fmt.Errorf("config: %s: %w", d.name, err)
		}
		*d.dst = v
	}
	return cfg, nil
}

// FromEnv applies environment overrides on top of cfg. Durations use Go
// duration syntax; malformed values are ignored in favor of the existing
// setting.
func FromEnv(cfg *Config) {
	if v := os.Getenv("BONDCACHE_API_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("BONDCACHE_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("BONDCACHE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
	if v := os.Getenv("BONDCACHE_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}
	if v := os.Getenv("BONDCACHE_CACHE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheCapacity = n
		}
	}
	if v := os.Getenv("BONDCACHE_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxAttempts = n
		}
	}
}
