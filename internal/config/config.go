// Package config provides configuration structures and loading for fuelradar.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config holds all configuration for fuelradar.
type Config struct {
	// PostgreSQL connection string; empty selects the in-memory store
	PostgresDSN string
	// Log level (debug, info, warn, error)
	LogLevel string
	// Log format (json, console)
	LogFormat string
	// HTTP server address
	HTTPAddr string
	// Reconcile hour (0-23)
	ReconcileHour int
	// Map-data provider settings
	Provider ProviderConfig
	// Ghost cache settings
	Cache CacheConfig
}

// ProviderConfig holds configuration for the Overpass provider.
type ProviderConfig struct {
	// Overpass interpreter endpoint
	URL string
	// Timeout for a single bounding-box query
	Timeout time.Duration
}

// CacheConfig holds configuration for the ghost station cache.
type CacheConfig struct {
	// Backend is memory or redis
	Backend string
	// Maximum entries of the in-memory LRU
	Size int
	// Expiry of redis entries, 0 keeps them until cleared
	TTL time.Duration
	// Redis connection
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		PostgresDSN:   "",
		LogLevel:      "info",
		LogFormat:     "json",
		HTTPAddr:      ":8080",
		ReconcileHour: 3,
		Provider: ProviderConfig{
			URL:     "https://overpass-api.de/api/interpreter",
			Timeout: 15 * time.Second,
		},
		Cache: CacheConfig{
			Backend:   CacheBackendMemory,
			Size:      500,
			TTL:       24 * time.Hour,
			RedisAddr: "localhost:6379",
		},
	}
}

// LoadDotEnv loads variables from a .env file in the working directory,
// if there is one. Variables already set in the environment win.
func LoadDotEnv() {
	_ = godotenv.Load() // ignore missing file
}

// LoadFromEnv loads configuration from environment variables.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.PostgresDSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("RECONCILE_HOUR"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 && i <= 23 {
			c.ReconcileHour = i
		}
	}
	if v := os.Getenv("OVERPASS_URL"); v != "" {
		c.Provider.URL = v
	}
	if v := os.Getenv("PROVIDER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Provider.Timeout = d
		}
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		c.Cache.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("CACHE_SIZE"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			c.Cache.Size = i
		}
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			c.Cache.TTL = d
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.RedisPassword = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			c.Cache.RedisDB = i
		}
	}
}

// Validate checks values that flags can set out of range.
func (c *Config) Validate() error {
	if c.ReconcileHour < 0 || c.ReconcileHour > 23 {
		return fmt.Errorf("reconcile hour must be between 0 and 23, got %d", c.ReconcileHour)
	}
	switch c.Cache.Backend {
	case CacheBackendMemory:
		if c.Cache.Size <= 0 {
			return fmt.Errorf("cache size must be positive, got %d", c.Cache.Size)
		}
	case CacheBackendRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("redis cache backend requires a redis address")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Provider.Timeout <= 0 {
		return fmt.Errorf("provider timeout must be positive, got %s", c.Provider.Timeout)
	}
	return nil
}
