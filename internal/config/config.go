package config

import (
	"time"

	"github.com/pippora/pippora/internal/ailink"
	"github.com/pippora/pippora/internal/blog"
	"github.com/pippora/pippora/internal/mailinglist"
	"github.com/pippora/pippora/internal/portrait"
	"github.com/pippora/pippora/internal/ratelimit"
	servermw "github.com/pippora/pippora/internal/server/middleware"
	"github.com/pippora/pippora/internal/store"
)

// Config is the complete application configuration. Values come from
// defaults, an optional YAML file and PIPPORA_* environment variables, in
// increasing order of precedence.
type Config struct {
	Server      ServerConfig        `mapstructure:"server"`
	CORS        servermw.CORSConfig `mapstructure:"cors"`
	OpenAI      ailink.Config       `mapstructure:"openai"`
	MailingList mailinglist.Config  `mapstructure:"mailinglist"`
	RateLimit   RateLimitConfig     `mapstructure:"rate_limit"`
	Store       store.Config        `mapstructure:"store"`
	Portrait    portrait.Config     `mapstructure:"portrait"`
	Blog        blog.Config         `mapstructure:"blog"`
	Logging     LoggingConfig       `mapstructure:"logging"`
	Metrics     MetricsConfig       `mapstructure:"metrics"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// TrustProxyHeaders resolves client IPs from X-Forwarded-For / X-Real-IP.
	// Disable when the server is reachable without a proxy in front.
	TrustProxyHeaders bool `mapstructure:"trust_proxy_headers"`
}

// RateLimitConfig is the admission policy for portrait requests plus the
// optional Redis sink for decision counters.
type RateLimitConfig struct {
	ratelimit.PolicyConfig `mapstructure:",squash"`
	Stats                  StatsConfig `mapstructure:"stats"`
}

// StatsConfig configures the Redis decision counters. They are observational
// only; admission always uses the in-process stores.
type StatsConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	RedisAddr string        `mapstructure:"redis_addr"`
	Password  string        `mapstructure:"redis_password"`
	DB        int           `mapstructure:"redis_db"`
	Prefix    string        `mapstructure:"prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// LoggingConfig contains logging configuration
// Supports progressive logging profiles per Fulmen Forge Workhorse Standard:
// - SIMPLE: Console output only, minimal configuration (CLI tools)
// - STRUCTURED: Structured sinks, correlation IDs (API services)
type LoggingConfig struct {
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Valid values: SIMPLE, STRUCTURED
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated Prometheus exporter port. /metrics on the main
	// port proxies to it.
	Port int `mapstructure:"port"`
}
