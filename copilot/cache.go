/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package copilot

import (
	"context"
	"sync"
	"time"

	"github.com/davidwarshawsky/scorchcrawl/global"
	"github.com/davidwarshawsky/scorchcrawl/logging"
)

// Factory builds a fresh Client for an identity, preferring that identity's
// own token and falling back to the process-wide one.
type Factory func(id global.Identity) (Client, error)

type cacheEntry struct {
	client     Client
	lastUsedMs int64
}

// ClientCache is the identity-keyed AgentSessionClientCache: it hands out a
// cached client handle when one exists and is fresh, or builds one via
// Factory otherwise. Entries older than 30 minutes are evicted by a
// periodic task; on eviction the handle is asked to shut down, errors
// ignored.
type ClientCache struct {
	mu           sync.Mutex
	entries      map[global.Identity]*cacheEntry
	factory      Factory
	evictAfterMs int64
	logger       *logging.Logger

	stopOnce sync.Once
	cancel   context.CancelFunc
}

// NewClientCache builds a cache and starts its periodic eviction task.
func NewClientCache(factory Factory, evictAfterMs int64, logger *logging.Logger) *ClientCache {
	c := &ClientCache{
		entries:      make(map[global.Identity]*cacheEntry),
		factory:      factory,
		evictAfterMs: evictAfterMs,
		logger:       logger,
	}
	c.startEviction()
	return c
}

// Get returns the cached client for id, creating one via the factory if
// absent, and refreshes its last-used timestamp.
func (c *ClientCache) Get(id global.Identity) (Client, error) {
	now := time.Now().UnixMilli()

	c.mu.Lock()
	if entry, ok := c.entries[id]; ok {
		entry.lastUsedMs = now
		client := entry.client
		c.mu.Unlock()
		return client, nil
	}
	c.mu.Unlock()

	client, err := c.factory(id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[id] = &cacheEntry{client: client, lastUsedMs: now}
	c.mu.Unlock()
	return client, nil
}

func (c *ClientCache) startEviction() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.evictStale()
			}
		}
	}()
}

func (c *ClientCache) evictStale() {
	now := time.Now().UnixMilli()
	var evicted []Client

	c.mu.Lock()
	for id, entry := range c.entries {
		if now-entry.lastUsedMs >= c.evictAfterMs {
			evicted = append(evicted, entry.client)
			delete(c.entries, id)
		}
	}
	c.mu.Unlock()

	for _, client := range evicted {
		shutdownClient(client)
	}
}

type closer interface {
	Close() error
}

func shutdownClient(client Client) {
	if c, ok := client.(closer); ok {
		_ = c.Close()
	}
}

// Shutdown stops the eviction task and shuts down every cached client,
// errors ignored, then clears the cache.
func (c *ClientCache) Shutdown() {
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
	})

	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[global.Identity]*cacheEntry)
	c.mu.Unlock()

	for _, entry := range entries {
		shutdownClient(entry.client)
	}
}
