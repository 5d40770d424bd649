package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://fuel@localhost/fuelradar")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("RECONCILE_HOUR", "5")
	t.Setenv("PROVIDER_TIMEOUT", "8s")
	t.Setenv("CACHE_BACKEND", "Redis")
	t.Setenv("CACHE_TTL", "2h")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")

	c := DefaultConfig()
	c.LoadFromEnv()

	if c.PostgresDSN != "postgres://fuel@localhost/fuelradar" {
		t.Errorf("PostgresDSN = %q", c.PostgresDSN)
	}
	if c.LogFormat != "console" || c.LogLevel != "info" {
		t.Errorf("log settings = %q/%q", c.LogLevel, c.LogFormat)
	}
	if c.ReconcileHour != 5 {
		t.Errorf("ReconcileHour = %d", c.ReconcileHour)
	}
	if c.Provider.Timeout != 8*time.Second {
		t.Errorf("Provider.Timeout = %s", c.Provider.Timeout)
	}
	if c.Cache.Backend != CacheBackendRedis || c.Cache.TTL != 2*time.Hour || c.Cache.RedisAddr != "redis:6379" || c.Cache.RedisDB != 2 {
		t.Errorf("Cache = %+v", c.Cache)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadFromEnvIgnoresInvalidValues(t *testing.T) {
	t.Setenv("RECONCILE_HOUR", "25")
	t.Setenv("PROVIDER_TIMEOUT", "soon")
	t.Setenv("CACHE_SIZE", "-1")

	c := DefaultConfig()
	c.LoadFromEnv()

	if c.ReconcileHour != 3 || c.Provider.Timeout != 15*time.Second || c.Cache.Size != 500 {
		t.Errorf("invalid values were applied: %+v", c)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"hour out of range", func(c *Config) { c.ReconcileHour = 24 }, false},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "memcached" }, false},
		{"redis without address", func(c *Config) { c.Cache.Backend = CacheBackendRedis; c.Cache.RedisAddr = "" }, false},
		{"empty lru", func(c *Config) { c.Cache.Size = 0 }, false},
		{"zero timeout", func(c *Config) { c.Provider.Timeout = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			if err := c.Validate(); (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("HTTP_ADDR=:9090\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HTTP_ADDR", "")
	os.Unsetenv("HTTP_ADDR")

	LoadDotEnv()
	c := DefaultConfig()
	c.LoadFromEnv()

	if c.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want :9090", c.HTTPAddr)
	}
}
