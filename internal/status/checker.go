// Package status caches the game server's status so the public status
// endpoint never hits the admin panel on the request path. A background
// refresh keeps the cache warm; when the panel is down the last good
// snapshot is served and flagged stale.
package status

import (
	"context"
	"sync"
	"time"

	"game-portal/internal/adminclient"
	"game-portal/internal/common/cache"
	"game-portal/internal/common/logging"
)

const cacheKey = "server-status"

// Fetcher is the slice of the admin client the checker needs
type Fetcher interface {
	Status(ctx context.Context) (*adminclient.ServerStatus, error)
}

// Snapshot is what the status endpoint serves
type Snapshot struct {
	adminclient.ServerStatus
	// Stale marks a snapshot served from the last good fetch after the
	// admin panel stopped answering
	Stale bool `json:"stale"`
}

// Checker caches server status with a stale fallback
type Checker struct {
	fetcher Fetcher
	cache   cache.Cache
	ttl     time.Duration
	logger  logging.Logger

	mu       sync.RWMutex
	lastGood *Snapshot
}

// NewChecker creates a status checker backed by a local TTL cache. ttl
// bounds how long a fetched status is served without re-checking.
func NewChecker(fetcher Fetcher, ttl time.Duration, logger logging.Logger) *Checker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return NewCheckerWithCache(fetcher, cache.NewLocalCache(ttl, 2*ttl), ttl, logger)
}

// NewCheckerWithCache creates a status checker on an explicit cache, so
// multi-instance deployments can share snapshots through Redis.
func NewCheckerWithCache(fetcher Fetcher, store cache.Cache, ttl time.Duration, logger logging.Logger) *Checker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &Checker{
		fetcher: fetcher,
		cache:   store,
		ttl:     ttl,
		logger:  logger,
	}
}

// Current returns the cached status, fetching on a cold or expired cache.
// When the fetch fails the last good snapshot is returned marked stale; with
// no history at all an offline snapshot is returned.
func (c *Checker) Current(ctx context.Context) *Snapshot {
	if cached, found := c.cache.Get(ctx, cacheKey); found {
		if snapshot, ok := cached.(*Snapshot); ok {
			return snapshot
		}
	}
	return c.Refresh(ctx)
}

// Refresh fetches fresh status from the admin panel and updates the cache.
// It is called by the background job and by Current on cache miss.
func (c *Checker) Refresh(ctx context.Context) *Snapshot {
	status, err := c.fetcher.Status(ctx)
	if err != nil {
		c.logger.Warn("Status refresh failed", logging.Err(err))
		return c.fallback(ctx)
	}

	snapshot := &Snapshot{ServerStatus: *status}
	c.store(ctx, snapshot)

	c.mu.Lock()
	c.lastGood = snapshot
	c.mu.Unlock()

	return snapshot
}

func (c *Checker) fallback(ctx context.Context) *Snapshot {
	c.mu.RLock()
	last := c.lastGood
	c.mu.RUnlock()

	if last != nil {
		stale := *last
		stale.Stale = true
		// Cache the stale snapshot too, so a dead panel is not re-polled on
		// every request
		c.store(ctx, &stale)
		return &stale
	}

	offline := &Snapshot{ServerStatus: adminclient.ServerStatus{
		Online:    false,
		UpdatedAt: time.Now().UTC(),
	}}
	c.store(ctx, offline)
	return offline
}

func (c *Checker) store(ctx context.Context, snapshot *Snapshot) {
	if err := c.cache.Set(ctx, cacheKey, snapshot, c.ttl); err != nil {
		c.logger.Warn("Failed to cache status snapshot", logging.Err(err))
	}
}
