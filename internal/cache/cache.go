package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/debtwiser/internal/metrics"
)

// DefaultTimeout bounds every backend call so a slow cache falls through to the store.
const DefaultTimeout = 250 * time.Millisecond

// Options tunes a Cache. Zero values select the defaults.
type Options struct {
	TTL     time.Duration
	Timeout time.Duration
	Metrics *metrics.Metrics
}

// Cache stores JSON-encoded values in a Client.
// Safe for concurrent use if the Client is.
type Cache struct {
	client  Client
	ttl     time.Duration
	timeout time.Duration
	metrics *metrics.Metrics
}

// New wraps client.
func New(client Client, opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Cache{
		client:  client,
		ttl:     opts.TTL,
		timeout: opts.Timeout,
		metrics: opts.Metrics,
	}
}

// TTL returns the default entry lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get decodes the value stored under key into dest.
// It returns (false, nil) on a miss and an ErrUnavailable error if the backend fails.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.client.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		c.metrics.CacheOp("get", metrics.ResultMiss)
		return false, nil
	}
	if err != nil {
		c.metrics.CacheOp("get", metrics.ResultError)
		return false, fmt.Errorf("%w: get %s: %v", ErrUnavailable, key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		c.metrics.CacheOp("get", metrics.ResultError)
		return false, fmt.Errorf("cache: failed to decode %s: %w", key, err)
	}
	c.metrics.CacheOp("get", metrics.ResultHit)
	return true, nil
}

// Set encodes value and stores it under key. A ttl <= 0 uses the default TTL.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: failed to encode %s: %w", key, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Set(ctx, key, raw, ttl); err != nil {
		c.metrics.CacheOp("set", metrics.ResultError)
		return fmt.Errorf("%w: set %s: %v", ErrUnavailable, key, err)
	}
	c.metrics.CacheOp("set", metrics.ResultOK)
	return nil
}

// Delete removes the keys. Deleting absent keys is a no-op.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Delete(ctx, keys...); err != nil {
		c.metrics.CacheOp("delete", metrics.ResultError)
		return fmt.Errorf("%w: delete %v: %v", ErrUnavailable, keys, err)
	}
	c.metrics.CacheOp("delete", metrics.ResultOK)
	return nil
}

// Ping checks the backend within the operation timeout.
func (c *Cache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close closes the backend.
func (c *Cache) Close() error {
	return c.client.Close()
}
