package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{"JWT_SECRET": "0123456789abcdef"}))
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "./data/debts.db", cfg.DBPath)
	assert.Equal(t, "redis", cfg.CacheDriver)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
	assert.Equal(t, 120*time.Second, cfg.CacheTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.CacheTimeout)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "access_token", cfg.CookieName)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"PORT":          "8080",
		"DB_DRIVER":     "postgres",
		"DATABASE_URL":  "postgres://localhost/debts",
		"CACHE_DRIVER":  "Memory",
		"REDIS_HOST":    "cache.internal",
		"REDIS_PORT":    "6380",
		"REDIS_DB":      "2",
		"CACHE_PREFIX":  "debts-dev",
		"CACHE_TTL":     "30s",
		"JWT_SECRET":    "a-much-longer-secret-value",
		"COOKIE_SECURE": "true",
		"LOG_FORMAT":    "json",
		"LOG_LEVEL":     "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "memory", cfg.CacheDriver)
	assert.Equal(t, "cache.internal:6380", cfg.RedisAddr())
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, "debts-dev", cfg.CachePrefix)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestFromEnv_Invalid(t *testing.T) {
	_, err := FromEnv(env(map[string]string{
		"PORT":          "http",
		"DB_DRIVER":     "postgres",
		"CACHE_DRIVER":  "memcached",
		"CACHE_TTL":     "forever",
		"COOKIE_SECURE": "maybe",
		"JWT_SECRET":    "short",
	}))
	require.Error(t, err)

	for _, key := range []string{"PORT", "DATABASE_URL", "CACHE_DRIVER", "CACHE_TTL", "COOKIE_SECURE", "JWT_SECRET"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-dotenv-file-123\nCACHE_PREFIX=dotenv\n"), 0o600))

	// The process environment wins over the file
	t.Setenv("CACHE_PREFIX", "process")
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv-file-123", cfg.JWTSecret)
	assert.Equal(t, "process", cfg.CachePrefix)

	t.Cleanup(func() { os.Unsetenv("JWT_SECRET") })
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef")
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}
