package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 30*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 3, cfg.Client.MaxRequest)
	assert.Equal(t, 8*time.Hour, cfg.Client.ExpiresOffset)
	assert.Equal(t, "X-Request-ID", cfg.Client.RequestIDHeader)
	assert.False(t, cfg.Client.InsecureSkipVerify)
	assert.Empty(t, cfg.Client.CookieDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NotNil(t, cfg.Koanf())
}

func TestLoadBytes(t *testing.T) {
	cfg, err := LoadBytes([]byte(`
client:
  timeout: 5s
  maxrequest: 1
  cookiedir: /tmp/rurl
  headers:
    User-Agent: rurl-test
  rate:
    limit: 2.5
    burst: 3
log:
  level: debug
  pretty: true
`))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 1, cfg.Client.MaxRequest)
	assert.Equal(t, "/tmp/rurl", cfg.Client.CookieDir)
	assert.Equal(t, "rurl-test", cfg.Client.Headers["User-Agent"])
	assert.InDelta(t, 2.5, cfg.Client.Rate.Limit, 0.0001)
	assert.Equal(t, 3, cfg.Client.Rate.Burst)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
	assert.Equal(t, 8*time.Hour, cfg.Client.ExpiresOffset, "defaults survive partial documents")
}

func TestLoadBytesObservability(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.Observability.Enabled)
	assert.Equal(t, "stdout", cfg.Observability.Endpoint)

	cfg, err := LoadBytes([]byte(`
observability:
  enabled: true
  endpoint: collector:4317
  protocol: grpc
  insecure: true
  samplerate: 0.25
  metrics: false
`))
	require.NoError(t, err)
	obs := cfg.Observability
	assert.True(t, obs.Enabled)
	assert.Equal(t, "collector:4317", obs.Endpoint)
	assert.Equal(t, "grpc", obs.Protocol)
	assert.True(t, obs.Insecure)
	require.NotNil(t, obs.SampleRate)
	assert.InDelta(t, 0.25, *obs.SampleRate, 1e-9)
	require.NotNil(t, obs.Metrics)
	assert.False(t, *obs.Metrics)
	assert.Equal(t, "rurl", obs.ServiceName)
}

func TestLoadBytesInvalidYAML(t *testing.T) {
	_, err := LoadBytes([]byte("client: [unterminated"))
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "invalid", cfgErr.Category)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("client:\n  maxrequest: 7\n  timeout: 2s\n"), 0o600))

	t.Setenv("RURL_CLIENT_MAXREQUEST", "9")
	t.Setenv("RURL_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Client.MaxRequest, "env overrides file")
	assert.Equal(t, 2*time.Second, cfg.Client.Timeout)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "absent.yaml")
}

func TestLoadWithoutDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Client.MaxRequest)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{name: "zero timeout", mutate: func(c *Config) { c.Client.Timeout = 0 }, field: "client.timeout"},
		{name: "negative maxrequest", mutate: func(c *Config) { c.Client.MaxRequest = -1 }, field: "client.maxrequest"},
		{name: "huge maxrequest", mutate: func(c *Config) { c.Client.MaxRequest = 1000 }, field: "client.maxrequest"},
		{name: "unknown log level", mutate: func(c *Config) { c.Log.Level = "loud" }, field: "log.level"},
		{name: "rate without burst", mutate: func(c *Config) { c.Client.Rate.Limit = 1 }, field: "client.rate.burst"},
		{name: "same cookie files", mutate: func(c *Config) {
			c.Client.CookieFile = "/tmp/c.txt"
			c.Client.CookieJarFile = "/tmp/c.txt"
		}, field: "client.cookiejarfile"},
		{name: "bad header name", mutate: func(c *Config) { c.Client.RequestIDHeader = "X Bad" }, field: "client.requestidheader"},
		{name: "bad sample rate", mutate: func(c *Config) {
			c.Observability.Enabled = true
			rate := 2.0
			c.Observability.SampleRate = &rate
		}, field: "observability"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestValidateLogLevelOptions(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be one of: trace, debug, info, warn, error, disabled")
}

func TestConfigErrorFormatting(t *testing.T) {
	err := NewMissingFieldError("client.cookiedir", EnvVarName("client.cookiedir"), "client.cookiedir")
	assert.Equal(t, "config_missing: client.cookiedir required set RURL_CLIENT_COOKIEDIR env var or add client.cookiedir to rurl.yaml", err.Error())
}
