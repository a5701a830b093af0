package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("IDP_ORIGIN", "https://idp.example.com")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultOpsAddr, cfg.Server.OpsAddr)
	assert.Equal(t, "https://idp.example.com", cfg.Proxy.DefaultOrigin)
	assert.Equal(t, DefaultRiskHeader, cfg.Proxy.DefaultRiskHeader)
	assert.Equal(t, DefaultStateCacheTTL, cfg.Proxy.StateCacheTTL)
	assert.Zero(t, cfg.Proxy.UpstreamTimeout)
	assert.Equal(t, DefaultRiskEventsScope, cfg.Reporting.Scope)
	assert.False(t, cfg.Reporting.Enabled())
	assert.Empty(t, cfg.Redis.URL)
	assert.Equal(t, DefaultServiceVersion, cfg.Telemetry.ServiceVersion)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("IDP_ORIGIN", "https://idp.example.com")
	t.Setenv("DEFAULT_ORIGIN", "https://app.example.com")
	t.Setenv("STATE_CACHE_TTL", "90s")
	t.Setenv("UPSTREAM_TIMEOUT", "15s")
	t.Setenv("OAUTH_CLIENT_ID", "0oa-client")
	t.Setenv("OAUTH_SIGNING_KEY", "a2V5")
	t.Setenv("REDIS_POOL_SIZE", "not-a-number")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://app.example.com", cfg.Proxy.DefaultOrigin)
	assert.Equal(t, 90*time.Second, cfg.Proxy.StateCacheTTL)
	assert.Equal(t, 15*time.Second, cfg.Proxy.UpstreamTimeout)
	assert.True(t, cfg.Reporting.Enabled())
	assert.Equal(t, 10, cfg.Redis.PoolSize)
	assert.Equal(t, "collector:4317", cfg.Telemetry.OTLPEndpoint)
}

func TestValidate(t *testing.T) {
	valid := Config{Proxy: Proxy{
		IDPOrigin:     "https://idp.example.com",
		DefaultOrigin: "https://app.example.com",
		StateCacheTTL: time.Minute,
	}}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing idp origin", func(c *Config) { c.Proxy.IDPOrigin = "" }},
		{"relative idp origin", func(c *Config) { c.Proxy.IDPOrigin = "idp.example.com" }},
		{"relative default origin", func(c *Config) { c.Proxy.DefaultOrigin = "/app" }},
		{"non-positive ttl", func(c *Config) { c.Proxy.StateCacheTTL = 0 }},
		{"client id without key", func(c *Config) { c.Reporting.ClientID = "0oa" }},
		{"key without client id", func(c *Config) { c.Reporting.SigningKey = "a2V5" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
