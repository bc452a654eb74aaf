// Package config reads storefront settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fjod/go_cart/storefront/internal/api"
)

const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	APIURL          string
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	TokenBackend   string
	StoragePath    string
	RedisAddr      string
	RedisPassword  string
	RedisNamespace string

	RemoveStyle     api.RemoveStyle
	BreakerFailures uint32

	LogLevel  string
	LogFormat string
	Trace     string
}

// Load reads the environment, applying defaults for anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		APIURL:         getEnv("STOREFRONT_API_URL", "http://localhost:8000"),
		HTTPPort:       getEnv("STOREFRONT_HTTP_PORT", "8081"),
		TokenBackend:   getEnv("STOREFRONT_TOKEN_BACKEND", BackendFile),
		StoragePath:    getEnv("STOREFRONT_STORAGE_PATH", ""),
		RedisAddr:      getEnv("STOREFRONT_REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("STOREFRONT_REDIS_PASSWORD", ""),
		RedisNamespace: getEnv("STOREFRONT_REDIS_NAMESPACE", "default"),
		RemoveStyle:    api.RemoveStyle(getEnv("STOREFRONT_REMOVE_STYLE", string(api.RemoveStylePost))),
		LogLevel:       getEnv("STOREFRONT_LOG_LEVEL", "info"),
		LogFormat:      getEnv("STOREFRONT_LOG_FORMAT", "json"),
		Trace:          getEnv("STOREFRONT_TRACE", "none"),
	}

	var err error
	if cfg.RequestTimeout, err = getDuration("STOREFRONT_REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("STOREFRONT_SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	failures, err := strconv.ParseUint(getEnv("STOREFRONT_BREAKER_FAILURES", "5"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("STOREFRONT_BREAKER_FAILURES: %w", err)
	}
	cfg.BreakerFailures = uint32(failures)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.TokenBackend {
	case BackendFile, BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("STOREFRONT_TOKEN_BACKEND: unknown backend %q", c.TokenBackend)
	}
	switch c.RemoveStyle {
	case api.RemoveStylePost, api.RemoveStyleDelete:
	default:
		return fmt.Errorf("STOREFRONT_REMOVE_STYLE: unknown style %q", c.RemoveStyle)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("STOREFRONT_REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// APIConfig is the client configuration derived from c.
func (c *Config) APIConfig() api.Config {
	return api.Config{
		BaseURL:         c.APIURL,
		Timeout:         c.RequestTimeout,
		RemoveStyle:     c.RemoveStyle,
		BreakerFailures: c.BreakerFailures,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
