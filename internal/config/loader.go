// Package config loads pippora configuration through viper and decodes it
// into typed sections with mapstructure.
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/pippora/pippora/internal/appid"
	"github.com/pippora/pippora/internal/ratelimit"
	servermw "github.com/pippora/pippora/internal/server/middleware"
)

var (
	appConfig   *Config
	configMu    sync.RWMutex
	appIdentity *appidentity.Identity
)

// Default MailerLite registration target.
const (
	DefaultMailingListGroup  = "169718727485425367"
	DefaultMailingListSource = "Renaissance Pet Portrait Generator"
)

// legacyEnv maps keys to the unprefixed variable names used by earlier
// deployments. Prefixed variables take precedence.
var legacyEnv = map[string]string{
	"openai.api_key":      "OPENAI_API_KEY",
	"mailinglist.api_key": "MAILERLITE_API_KEY",
	"rate_limit.enabled":  "RATE_LIMIT_ENABLED",
}

// SetDefaults registers every known key on v. Keys must be registered for
// environment variables to reach them through AllSettings.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.trust_proxy_headers", false)

	cors := servermw.DefaultCORSConfig()
	v.SetDefault("cors.allow_origin", cors.AllowOrigin)
	v.SetDefault("cors.allow_methods", cors.AllowMethods)
	v.SetDefault("cors.allow_headers", cors.AllowHeaders)
	v.SetDefault("cors.allow_credentials", cors.AllowCredentials)

	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.timeout", "120s")
	v.SetDefault("openai.requests_per_minute", 0)
	v.SetDefault("openai.burst", 1)
	v.SetDefault("openai.prompts_dir", "")
	v.SetDefault("openai.models", map[string]string{})

	v.SetDefault("mailinglist.api_key", "")
	v.SetDefault("mailinglist.base_url", "https://connect.mailerlite.com/api")
	v.SetDefault("mailinglist.groups", []string{DefaultMailingListGroup})
	v.SetDefault("mailinglist.source", DefaultMailingListSource)
	v.SetDefault("mailinglist.timeout", "10s")
	v.SetDefault("mailinglist.requests_per_minute", 0)

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.email.limit", ratelimit.DefaultEmailRule.Limit)
	v.SetDefault("rate_limit.email.window", ratelimit.DefaultEmailRule.Window.String())
	v.SetDefault("rate_limit.ip.limit", ratelimit.DefaultIPRule.Limit)
	v.SetDefault("rate_limit.ip.window", ratelimit.DefaultIPRule.Window.String())
	v.SetDefault("rate_limit.whitelist", []string{})
	v.SetDefault("rate_limit.stats.enabled", false)
	v.SetDefault("rate_limit.stats.redis_addr", "localhost:6379")
	v.SetDefault("rate_limit.stats.redis_password", "")
	v.SetDefault("rate_limit.stats.redis_db", 0)
	v.SetDefault("rate_limit.stats.prefix", "pippora:ratelimit")
	v.SetDefault("rate_limit.stats.ttl", "48h")

	v.SetDefault("store.enabled", false)
	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	v.SetDefault("portrait.max_image_bytes", 10<<20)
	v.SetDefault("blog.default_word_count", 2000)
	v.SetDefault("blog.default_tone", "Professional and informative")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
}

// BindEnv wires PIPPORA_SECTION_KEY style variables (prefix from app
// identity) plus the legacy unprefixed names.
func BindEnv(v *viper.Viper, prefix string) error {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), "_")
	if prefix != "" {
		v.SetEnvPrefix(prefix)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		names := []string{key}
		if prefix != "" {
			names = append(names, prefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
		}
		names = append(names, legacy)
		if err := v.BindEnv(names...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

// Load decodes v into a Config, validates it and makes it the current config.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		return nil, fmt.Errorf("viper instance is required")
	}

	cfg, err := Decode(v.AllSettings())
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// Decode converts a raw settings map into a Config.
func Decode(settings map[string]any) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.RateLimit.Whitelist = compact(cfg.RateLimit.Whitelist)
	cfg.MailingList.Groups = compact(cfg.MailingList.Groups)
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if err := c.RateLimit.PolicyConfig.Validate(); err != nil {
		return fmt.Errorf("rate_limit: %w", err)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.RateLimit.Stats.Enabled && strings.TrimSpace(c.RateLimit.Stats.RedisAddr) == "" {
		return fmt.Errorf("rate_limit.stats.redis_addr is required when stats are enabled")
	}
	return nil
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// appNamesForPaths returns the config name and binary name from app identity,
// falling back to "pippora".
func appNamesForPaths() (configName string, binaryName string) {
	configName = "pippora"
	binaryName = "pippora"

	if appIdentity == nil {
		if identity, err := appid.Get(context.Background()); err == nil {
			appIdentity = identity
		}
	}
	if appIdentity == nil {
		return configName, binaryName
	}

	if strings.TrimSpace(appIdentity.ConfigName) != "" {
		configName = appIdentity.ConfigName
	}
	if strings.TrimSpace(appIdentity.BinaryName) != "" {
		binaryName = appIdentity.BinaryName
	}
	return configName, binaryName
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configName, _ := appNamesForPaths()
	configDir := gfconfig.GetAppConfigDir(configName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	configName, _ := appNamesForPaths()
	return gfconfig.GetAppDataDir(configName)
}

// DefaultStorePath returns the XDG-compliant path to the history database.
func DefaultStorePath() string {
	configName, binaryName := appNamesForPaths()
	dataDir := gfconfig.GetAppDataDir(configName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + binaryName + ".db"
	}
	return filepath.Join(dataDir, binaryName+".db")
}
