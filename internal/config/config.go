// Package config provides configuration management for the paper feed service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/helixir/paper-feed-service/internal/observability"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "PAPERFEED"

// Config holds all configuration for the paper feed service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// ArXiv contains upstream feed settings.
	ArXiv ArXivConfig `mapstructure:"arxiv"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
}

// ArXivConfig holds configuration for the arXiv feed client.
type ArXivConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RateLimit  float64       `mapstructure:"rate_limit"`
	BurstSize  int           `mapstructure:"burst_size"`
	// MaxRetries of zero uses the HTTP client default.
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	UserAgent  string        `mapstructure:"user_agent"`

	// DefaultCategory is the search_query used when a request has no query.
	DefaultCategory   string `mapstructure:"default_category"`
	DefaultStart      string `mapstructure:"default_start"`
	DefaultMaxResults string `mapstructure:"default_max_results"`

	// QueryCacheTTL is the response cache lifetime for free-text searches.
	QueryCacheTTL time.Duration `mapstructure:"query_cache_ttl"`
	// DefaultCacheTTL is the response cache lifetime for the default category feed.
	DefaultCacheTTL time.Duration `mapstructure:"default_cache_ttl"`
	// CacheSize is the maximum number of cached upstream responses. Zero disables the cache.
	CacheSize int `mapstructure:"cache_size"`

	TitlePlaceholder   string `mapstructure:"title_placeholder"`
	SummaryPlaceholder string `mapstructure:"summary_placeholder"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// ObservabilityConfig converts the logging section for observability.NewLogger.
func (c LoggingConfig) ObservabilityConfig() observability.LoggingConfig {
	return observability.LoggingConfig{
		Level:      c.Level,
		Format:     c.Format,
		Output:     c.Output,
		AddSource:  c.AddSource,
		TimeFormat: c.TimeFormat,
	}
}

// Load loads configuration from environment variables and config files.
// Environment variables use the PAPERFEED_ prefix with "." replaced by "_",
// e.g. PAPERFEED_ARXIV_RATE_LIMIT.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/paper-feed-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("arxiv.base_url", "https://export.arxiv.org/api")
	v.SetDefault("arxiv.timeout", "30s")
	v.SetDefault("arxiv.rate_limit", 3.0) // arXiv asks for at most 3 req/sec
	v.SetDefault("arxiv.burst_size", 3)
	v.SetDefault("arxiv.max_retries", 3)
	v.SetDefault("arxiv.retry_delay", "1s")
	v.SetDefault("arxiv.user_agent", "Helixir-PaperFeed/1.0")
	v.SetDefault("arxiv.default_category", "cat:cs.AI")
	v.SetDefault("arxiv.default_start", "0")
	v.SetDefault("arxiv.default_max_results", "10")
	v.SetDefault("arxiv.query_cache_ttl", "600s")
	v.SetDefault("arxiv.default_cache_ttl", "3600s")
	v.SetDefault("arxiv.cache_size", 256)
	v.SetDefault("arxiv.title_placeholder", "Title not available")
	v.SetDefault("arxiv.summary_placeholder", "Summary not available")
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}
	if c.Metrics.Enabled && c.Server.MetricsPort == c.Server.HTTPPort {
		return fmt.Errorf("metrics port must differ from HTTP port (%d)", c.Server.HTTPPort)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with /: %q", c.Metrics.Path)
	}

	u, err := url.Parse(c.ArXiv.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("arxiv base_url must be an absolute http(s) URL: %q", c.ArXiv.BaseURL)
	}
	if c.ArXiv.RateLimit <= 0 {
		return fmt.Errorf("arxiv rate_limit must be positive")
	}
	if c.ArXiv.BurstSize <= 0 {
		return fmt.Errorf("arxiv burst_size must be positive")
	}
	if c.ArXiv.MaxRetries < 0 {
		return fmt.Errorf("arxiv max_retries must not be negative")
	}
	if c.ArXiv.CacheSize < 0 {
		return fmt.Errorf("arxiv cache_size must not be negative")
	}
	if c.ArXiv.QueryCacheTTL < 0 || c.ArXiv.DefaultCacheTTL < 0 {
		return fmt.Errorf("arxiv cache TTLs must not be negative")
	}
	if strings.TrimSpace(c.ArXiv.DefaultCategory) == "" {
		return fmt.Errorf("arxiv default_category is required")
	}
	if c.ArXiv.TitlePlaceholder == "" || c.ArXiv.SummaryPlaceholder == "" {
		return fmt.Errorf("arxiv placeholders must not be empty")
	}

	return nil
}
