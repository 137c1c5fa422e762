package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	require.NoError(t, BindEnv(v, "PIPPORA_"))
	return v
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	for _, key := range []string{"OPENAI_API_KEY", "MAILERLITE_API_KEY", "RATE_LIMIT_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg, err := Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 180*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.Server.TrustProxyHeaders)

	assert.Equal(t, "*", cfg.CORS.AllowOrigin)
	assert.Contains(t, cfg.CORS.AllowMethods, "POST")
	assert.True(t, cfg.CORS.AllowCredentials)

	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 5, cfg.RateLimit.Email.Limit)
	assert.Equal(t, 24*time.Hour, cfg.RateLimit.Email.Window)
	assert.Equal(t, 7, cfg.RateLimit.IP.Limit)
	assert.Equal(t, 24*time.Hour, cfg.RateLimit.IP.Window)
	assert.Empty(t, cfg.RateLimit.Whitelist)
	assert.False(t, cfg.RateLimit.Stats.Enabled)

	assert.Equal(t, []string{DefaultMailingListGroup}, cfg.MailingList.Groups)
	assert.Equal(t, DefaultMailingListSource, cfg.MailingList.Source)
	assert.Equal(t, 120*time.Second, cfg.OpenAI.Timeout)

	assert.False(t, cfg.Store.Enabled)
	assert.Equal(t, "libsql", cfg.Store.Driver)
	assert.Equal(t, "pippora.db", filepath.Base(cfg.Store.Path))

	assert.Equal(t, 10<<20, cfg.Portrait.MaxImageBytes)
	assert.Equal(t, 2000, cfg.Blog.DefaultWordCount)
	assert.Equal(t, "Professional and informative", cfg.Blog.DefaultTone)

	assert.Same(t, cfg, GetConfig())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("PIPPORA_RATE_LIMIT_ENABLED", "true")
	t.Setenv("PIPPORA_RATE_LIMIT_EMAIL_LIMIT", "3")
	t.Setenv("PIPPORA_RATE_LIMIT_IP_WINDOW", "90m")
	t.Setenv("PIPPORA_RATE_LIMIT_WHITELIST", "qa@pippora.com, ops@pippora.com")
	t.Setenv("PIPPORA_SERVER_PORT", "9000")
	t.Setenv("PIPPORA_CORS_ALLOW_ORIGIN", "https://pippora.com")

	cfg, err := Load(newViper(t))
	require.NoError(t, err)

	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 3, cfg.RateLimit.Email.Limit)
	assert.Equal(t, 90*time.Minute, cfg.RateLimit.IP.Window)
	assert.Equal(t, []string{"qa@pippora.com", "ops@pippora.com"}, cfg.RateLimit.Whitelist)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "https://pippora.com", cfg.CORS.AllowOrigin)
}

func TestLoadLegacyEnvironment(t *testing.T) {
	t.Setenv("PIPPORA_OPENAI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-legacy")
	t.Setenv("MAILERLITE_API_KEY", "ml-legacy")
	t.Setenv("RATE_LIMIT_ENABLED", "true")

	cfg, err := Load(newViper(t))
	require.NoError(t, err)
	assert.Equal(t, "sk-legacy", cfg.OpenAI.APIKey)
	assert.Equal(t, "ml-legacy", cfg.MailingList.APIKey)
	assert.True(t, cfg.RateLimit.Enabled)

	t.Setenv("PIPPORA_OPENAI_API_KEY", "sk-prefixed")
	cfg, err = Load(newViper(t))
	require.NoError(t, err)
	assert.Equal(t, "sk-prefixed", cfg.OpenAI.APIKey)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rate_limit:
  enabled: true
  email:
    limit: 10
    window: 12h
  whitelist:
    - Team@Pippora.com
openai:
  models:
    renaissance-portrait: gpt-image-1
store:
  enabled: true
  path: ":memory:"
`), 0o600))

	v := newViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.RateLimit.Email.Limit)
	assert.Equal(t, 12*time.Hour, cfg.RateLimit.Email.Window)
	assert.Equal(t, 7, cfg.RateLimit.IP.Limit)
	assert.Equal(t, []string{"Team@Pippora.com"}, cfg.RateLimit.Whitelist)
	assert.Equal(t, "gpt-image-1", cfg.OpenAI.Models["renaissance-portrait"])
	assert.True(t, cfg.Store.Enabled)
	assert.Equal(t, ":memory:", cfg.Store.Path)
}

func TestLoadRejectsInvalidRules(t *testing.T) {
	t.Setenv("PIPPORA_RATE_LIMIT_ENABLED", "true")
	t.Setenv("PIPPORA_RATE_LIMIT_EMAIL_LIMIT", "0")

	_, err := Load(newViper(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limit")
}

func TestLoadIgnoresRulesWhenDisabled(t *testing.T) {
	t.Setenv("PIPPORA_RATE_LIMIT_ENABLED", "false")
	t.Setenv("PIPPORA_RATE_LIMIT_IP_WINDOW", "0s")

	_, err := Load(newViper(t))
	require.NoError(t, err)
}

func TestLoadRequiresRedisAddrForStats(t *testing.T) {
	t.Setenv("PIPPORA_RATE_LIMIT_STATS_ENABLED", "true")
	t.Setenv("PIPPORA_RATE_LIMIT_STATS_REDIS_ADDR", " ")

	_, err := Load(newViper(t))
	require.Error(t, err)
}

func TestLoadNilViper(t *testing.T) {
	_, err := Load(nil)
	require.Error(t, err)
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	assert.Equal(t, "config.yaml", filepath.Base(DefaultConfigPath()))
	assert.Equal(t, filepath.Join(DefaultDataDir(), "pippora.db"), DefaultStorePath())
}
