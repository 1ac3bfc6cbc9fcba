package authgate

import (
	"context"
	"errors"
	"sync"
)

// ClientCache holds one process-wide client handle. The handle is built on
// first use, shared by every request, and rebuilt after Invalidate.
type ClientCache[C any] struct {
	build func(context.Context) (C, error)

	mu     sync.Mutex
	client C
	ready  bool
}

// NewClientCache returns a cache that builds handles with build.
func NewClientCache[C any](build func(context.Context) (C, error)) *ClientCache[C] {
	return &ClientCache[C]{build: build}
}

// Get returns the cached handle, building it if needed. Concurrent first
// callers wait for a single build. A failed build is not cached.
func (c *ClientCache[C]) Get(ctx context.Context) (C, error) {
	var zero C
	if c == nil || c.build == nil {
		return zero, errors.New("client builder is not configured")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready {
		return c.client, nil
	}
	client, err := c.build(ctx)
	if err != nil {
		return zero, err
	}
	c.client = client
	c.ready = true
	return client, nil
}

// Invalidate discards the cached handle.
func (c *ClientCache[C]) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero C
	c.client = zero
	c.ready = false
}
