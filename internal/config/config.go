// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MinSecretLength is the shortest accepted JWT_SECRET.
const MinSecretLength = 16

// Config holds every server setting.
type Config struct {
	Port int

	DBDriver    string // sqlite or postgres
	DBPath      string
	DatabaseURL string

	CacheDriver   string // redis or memory
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int
	CachePrefix   string
	CacheTTL      time.Duration
	CacheTimeout  time.Duration

	JWTSecret    string
	JWTTTL       time.Duration
	CookieName   string
	CookieSecure bool
	FrontendURL  string

	LogLevel  string
	LogFormat string // text or json
}

// RedisAddr returns host:port of the Redis server.
func (c *Config) RedisAddr() string {
	return net.JoinHostPort(c.RedisHost, strconv.Itoa(c.RedisPort))
}

// Load reads .env files (if present) and then the environment.
// Variables already set in the environment take precedence over the files.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function such as os.Getenv.
// All invalid values are reported together.
func FromEnv(getenv func(string) string) (*Config, error) {
	p := parser{getenv: getenv}

	cfg := &Config{
		Port:          p.integer("PORT", 4000),
		DBDriver:      p.oneOf("DB_DRIVER", "sqlite", "sqlite", "postgres"),
		DBPath:        p.str("DB_PATH", "./data/debts.db"),
		DatabaseURL:   p.str("DATABASE_URL", ""),
		CacheDriver:   p.oneOf("CACHE_DRIVER", "redis", "redis", "memory"),
		RedisHost:     p.str("REDIS_HOST", "localhost"),
		RedisPort:     p.integer("REDIS_PORT", 6379),
		RedisPassword: p.str("REDIS_PASSWORD", ""),
		RedisDB:       p.integer("REDIS_DB", 0),
		CachePrefix:   p.str("CACHE_PREFIX", ""),
		CacheTTL:      p.duration("CACHE_TTL", 120*time.Second),
		CacheTimeout:  p.duration("CACHE_TIMEOUT", 250*time.Millisecond),
		JWTSecret:     p.str("JWT_SECRET", ""),
		JWTTTL:        p.duration("JWT_TTL", 24*time.Hour),
		CookieName:    p.str("COOKIE_NAME", "access_token"),
		CookieSecure:  p.boolean("COOKIE_SECURE", false),
		FrontendURL:   p.str("FRONTEND_URL", ""),
		LogLevel:      p.oneOf("LOG_LEVEL", "info", "debug", "info", "warn", "error"),
		LogFormat:     p.oneOf("LOG_FORMAT", "text", "text", "json"),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		p.fail("PORT", "must be between 1 and 65535")
	}
	if cfg.DBDriver == "postgres" && cfg.DatabaseURL == "" {
		p.fail("DATABASE_URL", "is required when DB_DRIVER=postgres")
	}
	if len(cfg.JWTSecret) < MinSecretLength {
		p.fail("JWT_SECRET", fmt.Sprintf("must be at least %d bytes", MinSecretLength))
	}
	if cfg.CacheTTL <= 0 {
		p.fail("CACHE_TTL", "must be positive")
	}
	if cfg.CacheTimeout <= 0 {
		p.fail("CACHE_TIMEOUT", "must be positive")
	}
	if cfg.JWTTTL <= 0 {
		p.fail("JWT_TTL", "must be positive")
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) fail(key, msg string) {
	p.errs = append(p.errs, fmt.Errorf("%s %s", key, msg))
}

func (p *parser) str(key, fallback string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (p *parser) integer(key string, fallback int) int {
	v := p.str(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, fmt.Sprintf("must be an integer, got %q", v))
		return fallback
	}
	return n
}

func (p *parser) boolean(key string, fallback bool) bool {
	v := p.str(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, fmt.Sprintf("must be a boolean, got %q", v))
		return fallback
	}
	return b
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := p.str(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, fmt.Sprintf("must be a duration like 120s, got %q", v))
		return fallback
	}
	return d
}

func (p *parser) oneOf(key, fallback string, allowed ...string) string {
	v := strings.ToLower(p.str(key, fallback))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	p.fail(key, fmt.Sprintf("must be one of %s, got %q", strings.Join(allowed, "|"), v))
	return fallback
}
