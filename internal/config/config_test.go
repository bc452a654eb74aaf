package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_cart/storefront/internal/api"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.APIURL)
	assert.Equal(t, "8081", cfg.HTTPPort)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, BackendFile, cfg.TokenBackend)
	assert.Equal(t, api.RemoveStylePost, cfg.RemoveStyle)
	assert.Equal(t, uint32(5), cfg.BreakerFailures)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("STOREFRONT_API_URL", "http://shop:9000")
	t.Setenv("STOREFRONT_REQUEST_TIMEOUT", "250ms")
	t.Setenv("STOREFRONT_TOKEN_BACKEND", "redis")
	t.Setenv("STOREFRONT_REMOVE_STYLE", "delete")
	t.Setenv("STOREFRONT_BREAKER_FAILURES", "2")

	cfg, err := Load()
	require.NoError(t, err)

	apiCfg := cfg.APIConfig()
	assert.Equal(t, "http://shop:9000", apiCfg.BaseURL)
	assert.Equal(t, 250*time.Millisecond, apiCfg.Timeout)
	assert.Equal(t, api.RemoveStyleDelete, apiCfg.RemoveStyle)
	assert.Equal(t, uint32(2), apiCfg.BreakerFailures)
	assert.Equal(t, BackendRedis, cfg.TokenBackend)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"STOREFRONT_REQUEST_TIMEOUT", "soon"},
		{"STOREFRONT_REQUEST_TIMEOUT", "-1s"},
		{"STOREFRONT_TOKEN_BACKEND", "cookie"},
		{"STOREFRONT_REMOVE_STYLE", "patch"},
		{"STOREFRONT_BREAKER_FAILURES", "many"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
