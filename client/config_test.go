package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bondcache.yaml")
	data := []byte(`
base_url: "https://bonds.internal:8443"
api_key: "s3cret"
timeout: "3s"
cache_ttl: "10m"
cache_capacity: 2000
max_attempts: 8
initial_backoff: "250ms"
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.BaseURL != "https://bonds.internal:8443" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.APIKey != "s3cret" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
	if cfg.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.CacheTTL != 10*time.Minute {
		t.Errorf("CacheTTL = %v", cfg.CacheTTL)
	}
	if cfg.CacheCapacity != 2000 {
		t.Errorf("CacheCapacity = %d", cfg.CacheCapacity)
	}
	if cfg.MaxAttempts != 8 {
		t.Errorf("MaxAttempts = %d", cfg.MaxAttempts)
	}
	if cfg.InitialBackoff != 250*time.Millisecond {
		t.Errorf("InitialBackoff = %v", cfg.InitialBackoff)
	}

	// Unset fields keep their defaults.
	def := DefaultConfig()
	if cfg.NegativeTTL != def.NegativeTTL {
		t.Errorf("NegativeTTL = %v, want default %v", cfg.NegativeTTL, def.NegativeTTL)
	}
	if cfg.MaxBackoff != def.MaxBackoff {
		t.Errorf("MaxBackoff = %v, want default %v", cfg.MaxBackoff, def.MaxBackoff)
	}
}

func TestLoadConfig_BadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("timeout: \"ten seconds\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("want error for malformed duration")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("BONDCACHE_API_URL", "http://10.0.0.5:8000")
	t.Setenv("BONDCACHE_API_KEY", "envkey")
	t.Setenv("BONDCACHE_TIMEOUT", "7s")
	t.Setenv("BONDCACHE_CACHE_CAPACITY", "321")
	t.Setenv("BONDCACHE_MAX_ATTEMPTS", "not-a-number")

	cfg := DefaultConfig()
	FromEnv(&cfg)

	if cfg.BaseURL != "http://10.0.0.5:8000" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.APIKey != "envkey" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
	if cfg.Timeout != 7*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.CacheCapacity != 321 {
		t.Errorf("CacheCapacity = %d", cfg.CacheCapacity)
	}
	// Malformed values leave the existing setting alone.
	if cfg.MaxAttempts != DefaultConfig().MaxAttempts {
		t.Errorf("MaxAttempts = %d, want default", cfg.MaxAttempts)
	}
}
