package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "memory", cfg.Session.Store)
	assert.Equal(t, 168*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 1000, cfg.Limits.MaxKeys)
	assert.Equal(t, 5*time.Second, cfg.Limits.UndoWindow)
	assert.Equal(t, 2*time.Second, cfg.Limits.NotificationTTL)
	assert.Equal(t, 3*time.Second, cfg.Limits.ClipboardErrorTTL)
	assert.Equal(t, 3, cfg.Limits.LoadRetries)
	assert.Equal(t, time.Second, cfg.Limits.LoadBackoff)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("KEYS_MAX", "5")
	t.Setenv("UNDO_WINDOW", "10s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("REDIS_DB", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Limits.MaxKeys)
	assert.Equal(t, 10*time.Second, cfg.Limits.UndoWindow)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Access.GetCORSAllowedOrigins())
	assert.Equal(t, 2, cfg.Session.RedisDB)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }},
		{"mongo without uri", func(c *Config) { c.Database.Driver = "mongo"; c.Database.MongoURI = "" }},
		{"unknown session store", func(c *Config) { c.Session.Store = "etcd" }},
		{"zero key ceiling", func(c *Config) { c.Limits.MaxKeys = 0 }},
		{"negative retries", func(c *Config) { c.Limits.LoadRetries = -1 }},
		{"zero undo window", func(c *Config) { c.Limits.UndoWindow = 0 }},
		{"oidc without issuer", func(c *Config) { c.OIDC.Enabled = true }},
		{"oidc bad secret", func(c *Config) {
			c.OIDC = OIDCConfig{Enabled: true, IssuerURL: "https://id", ClientID: "c", ClientSecret: "s", RedirectURL: "https://cb", SessionSecret: "short"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestOIDCConfig_GetSessionSecretBytes(t *testing.T) {
	c := OIDCConfig{SessionSecret: "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"}
	b, err := c.GetSessionSecretBytes()
	require.NoError(t, err)
	assert.Len(t, b, 32)

	c.SessionSecret = "abcdefghijklmnopqrstuvwxyz012345"
	b, err = c.GetSessionSecretBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte(c.SessionSecret), b)

	assert.Equal(t, []string{"openid", "email", "profile"}, (&OIDCConfig{}).GetScopes())
	assert.Nil(t, (&OIDCConfig{}).GetAllowedDomains())
}

func TestLogConfig_ToLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"WARN":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, LogConfig{Level: in}.ToLevel(), in)
	}
}
