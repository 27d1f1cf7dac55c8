package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

var _ Client = (*MemoryClient)(nil)

// MemoryClient implements Client with an in-process go-cache store.
// Useful for development and testing; entries are not shared between instances.
type MemoryClient struct {
	prefix string
	c      *gocache.Cache
}

// NewMemory creates an in-memory client whose entries expire after defaultTTL
// unless Set is given an explicit ttl.
func NewMemory(prefix string, defaultTTL time.Duration) *MemoryClient {
	return &MemoryClient{
		prefix: prefix,
		c:      gocache.New(defaultTTL, time.Minute),
	}
}

func (m *MemoryClient) key(k string) string {
	return prefixed(m.prefix, k)
}

// Get returns a copy of the stored bytes.
func (m *MemoryClient) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := m.c.Get(m.key(key))
	if !ok {
		return nil, ErrNotFound
	}
	b, _ := v.([]byte)
	return append([]byte(nil), b...), nil
}

// Set stores a copy of value.
func (m *MemoryClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.c.Set(m.key(key), append([]byte(nil), value...), ttl)
	return nil
}

// Delete removes the keys.
func (m *MemoryClient) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, k := range keys {
		m.c.Delete(m.key(k))
	}
	return nil
}

// Ping always succeeds.
func (m *MemoryClient) Ping(ctx context.Context) error { return nil }

// Close drops all entries.
func (m *MemoryClient) Close() error {
	m.c.Flush()
	return nil
}
