package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	clearEnvVars(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Server defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

	// Logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)

	// Metrics defaults
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)

	// arXiv defaults
	assert.Equal(t, "https://export.arxiv.org/api", cfg.ArXiv.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.ArXiv.Timeout)
	assert.Equal(t, 3.0, cfg.ArXiv.RateLimit)
	assert.Equal(t, 3, cfg.ArXiv.BurstSize)
	assert.Equal(t, 3, cfg.ArXiv.MaxRetries)
	assert.Equal(t, time.Second, cfg.ArXiv.RetryDelay)
	assert.Equal(t, "cat:cs.AI", cfg.ArXiv.DefaultCategory)
	assert.Equal(t, "0", cfg.ArXiv.DefaultStart)
	assert.Equal(t, "10", cfg.ArXiv.DefaultMaxResults)
	assert.Equal(t, 600*time.Second, cfg.ArXiv.QueryCacheTTL)
	assert.Equal(t, 3600*time.Second, cfg.ArXiv.DefaultCacheTTL)
	assert.Equal(t, 256, cfg.ArXiv.CacheSize)
	assert.Equal(t, "Title not available", cfg.ArXiv.TitlePlaceholder)
	assert.Equal(t, "Summary not available", cfg.ArXiv.SummaryPlaceholder)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	clearEnvVars(t)
	t.Chdir(t.TempDir())

	t.Setenv("PAPERFEED_SERVER_HTTP_PORT", "8888")
	t.Setenv("PAPERFEED_LOGGING_LEVEL", "debug")
	t.Setenv("PAPERFEED_ARXIV_RATE_LIMIT", "1.5")
	t.Setenv("PAPERFEED_ARXIV_DEFAULT_CATEGORY", "cat:cs.LG")
	t.Setenv("PAPERFEED_ARXIV_QUERY_CACHE_TTL", "2m")
	t.Setenv("PAPERFEED_ARXIV_TITLE_PLACEHOLDER", "Untitled")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 1.5, cfg.ArXiv.RateLimit)
	assert.Equal(t, "cat:cs.LG", cfg.ArXiv.DefaultCategory)
	assert.Equal(t, 2*time.Minute, cfg.ArXiv.QueryCacheTTL)
	assert.Equal(t, "Untitled", cfg.ArXiv.TitlePlaceholder)
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnvVars(t)
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := `
server:
  http_port: 8181
arxiv:
  base_url: "http://arxiv.internal/api"
  default_max_results: "25"
  cache_size: 0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8181, cfg.Server.HTTPPort)
	assert.Equal(t, "http://arxiv.internal/api", cfg.ArXiv.BaseURL)
	assert.Equal(t, "25", cfg.ArXiv.DefaultMaxResults)
	assert.Equal(t, 0, cfg.ArXiv.CacheSize)
	// Unset keys keep their defaults.
	assert.Equal(t, "cat:cs.AI", cfg.ArXiv.DefaultCategory)
}

func TestLoad_InvalidConfigFails(t *testing.T) {
	clearEnvVars(t)
	t.Chdir(t.TempDir())
	t.Setenv("PAPERFEED_LOGGING_LEVEL", "verbose")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero http port", mutate: func(c *Config) { c.Server.HTTPPort = 0 }, wantErr: "invalid HTTP port"},
		{name: "http port too high", mutate: func(c *Config) { c.Server.HTTPPort = 70000 }, wantErr: "invalid HTTP port"},
		{name: "bad metrics port", mutate: func(c *Config) { c.Server.MetricsPort = -1 }, wantErr: "invalid metrics port"},
		{name: "metrics port clash", mutate: func(c *Config) { c.Server.MetricsPort = c.Server.HTTPPort }, wantErr: "must differ"},
		{name: "metrics port clash ignored when disabled", mutate: func(c *Config) {
			c.Metrics.Enabled = false
			c.Server.MetricsPort = c.Server.HTTPPort
		}},
		{name: "log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "invalid log level"},
		{name: "log level is case-insensitive", mutate: func(c *Config) { c.Logging.Level = "WARN" }},
		{name: "metrics path", mutate: func(c *Config) { c.Metrics.Path = "metrics" }, wantErr: "metrics path"},
		{name: "relative base url", mutate: func(c *Config) { c.ArXiv.BaseURL = "/api" }, wantErr: "base_url"},
		{name: "ftp base url", mutate: func(c *Config) { c.ArXiv.BaseURL = "ftp://arxiv.org/api" }, wantErr: "base_url"},
		{name: "rate limit", mutate: func(c *Config) { c.ArXiv.RateLimit = 0 }, wantErr: "rate_limit"},
		{name: "burst size", mutate: func(c *Config) { c.ArXiv.BurstSize = 0 }, wantErr: "burst_size"},
		{name: "negative retries", mutate: func(c *Config) { c.ArXiv.MaxRetries = -1 }, wantErr: "max_retries"},
		{name: "negative cache size", mutate: func(c *Config) { c.ArXiv.CacheSize = -1 }, wantErr: "cache_size"},
		{name: "negative ttl", mutate: func(c *Config) { c.ArXiv.QueryCacheTTL = -time.Second }, wantErr: "TTLs"},
		{name: "blank category", mutate: func(c *Config) { c.ArXiv.DefaultCategory = "  " }, wantErr: "default_category"},
		{name: "empty placeholder", mutate: func(c *Config) { c.ArXiv.SummaryPlaceholder = "" }, wantErr: "placeholders"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestServerConfig_Addresses(t *testing.T) {
	cfg := ServerConfig{
		Host:        "127.0.0.1",
		HTTPPort:    8080,
		MetricsPort: 9091,
	}
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTPAddress())
	assert.Equal(t, "127.0.0.1:9091", cfg.MetricsAddress())
}

func TestLoggingConfig_ObservabilityConfig(t *testing.T) {
	cfg := LoggingConfig{Level: "debug", Format: "console", Output: "stderr", AddSource: true, TimeFormat: time.Kitchen}

	out := cfg.ObservabilityConfig()

	assert.Equal(t, "debug", out.Level)
	assert.Equal(t, "console", out.Format)
	assert.Equal(t, "stderr", out.Output)
	assert.True(t, out.AddSource)
	assert.Equal(t, time.Kitchen, out.TimeFormat)
}

// clearEnvVars removes all PAPERFEED_ prefixed environment variables for the test.
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, env := range os.Environ() {
		key, value, _ := strings.Cut(env, "=")
		if strings.HasPrefix(key, EnvPrefix+"_") {
			t.Setenv(key, value)
			os.Unsetenv(key)
		}
	}
}

// validConfig returns a valid configuration for testing
func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			HTTPPort:    8080,
			MetricsPort: 9091,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		ArXiv: ArXivConfig{
			BaseURL:            "https://export.arxiv.org/api",
			RateLimit:          3,
			BurstSize:          3,
			MaxRetries:         3,
			DefaultCategory:    "cat:cs.AI",
			QueryCacheTTL:      600 * time.Second,
			DefaultCacheTTL:    3600 * time.Second,
			CacheSize:          256,
			TitlePlaceholder:   "Title not available",
			SummaryPlaceholder: "Summary not available",
		},
	}
}
