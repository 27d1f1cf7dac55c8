// Package cache provides the key-value cache that sits in front of the debt store.
//
// Two backends implement the raw Client interface:
//   - Redis (shared between instances, for production)
//   - Memory (in-process, for development and tests)
//
// Cache wraps a Client with JSON encoding, a default TTL, a per-operation timeout
// and metrics. Any failure talking to the backend is reported as ErrUnavailable.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTTL is the lifetime of an entry when no TTL is given.
const DefaultTTL = 120 * time.Second

var (
	// ErrNotFound is returned by a Client when the key does not exist or has expired.
	ErrNotFound = errors.New("cache: key not found")

	// ErrUnavailable wraps every backend failure (network errors, timeouts, closed clients).
	ErrUnavailable = errors.New("cache: unavailable")
)

// Client is the raw byte-level contract a cache backend implements.
type Client interface {
	// Get returns the stored bytes, or ErrNotFound on a miss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, overwriting any existing entry.
	// A ttl of 0 uses the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the given keys. Absent keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Ping checks the connection.
	Ping(ctx context.Context) error

	// Close releases the connection.
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver   string // "redis" | "memory"
	Addr     string // host:port, redis only
	Password string
	DB       int
	Prefix   string // prepended to every key as "<prefix>:<key>"
}

// NewClient builds the backend named by cfg.Driver.
func NewClient(cfg Config) (Client, error) {
	switch cfg.Driver {
	case "redis":
		if cfg.Addr == "" {
			return nil, fmt.Errorf("cache: redis address is required")
		}
		return NewRedis(cfg), nil
	case "memory", "":
		return NewMemory(cfg.Prefix, DefaultTTL), nil
	default:
		return nil, fmt.Errorf("cache: unknown driver %q", cfg.Driver)
	}
}

func prefixed(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + ":" + key
}
