package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "http://localhost:5250/api", cfg.Store.Endpoint)
	assert.Equal(t, ":5250", cfg.PropertyDB.Addr)
	assert.Equal(t, "localhost:6379", cfg.PropertyDB.RedisAddr)
	assert.NotEmpty(t, cfg.Remote.GeocodingBaseURL)
	assert.NotEmpty(t, cfg.Remote.ListingsBaseURL)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("PROXY_URL", "https://relay.example.com")
	t.Setenv("PROPERTYDB_REDIS_DB", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, "https://relay.example.com", cfg.Remote.ProxyURL)
	assert.Equal(t, 3, cfg.PropertyDB.RedisDB)
}
