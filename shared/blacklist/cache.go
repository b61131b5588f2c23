// Package blacklist remembers revoked admin sessions until their tokens
// would have expired anyway.
package blacklist

import (
	"context"
	"sync"
	"time"

	"github.com/itchan-dev/echobox/shared/logger"
)

type Cache struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewCache() *Cache {
	return &Cache{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke blocks sessionID until expiresAt.
func (bc *Cache) Revoke(sessionID string, expiresAt time.Time) {
	bc.mu.Lock()
	bc.revoked[sessionID] = expiresAt
	bc.mu.Unlock()
}

func (bc *Cache) IsRevoked(sessionID string) bool {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	_, ok := bc.revoked[sessionID]
	return ok
}

func (bc *Cache) Len() int {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return len(bc.revoked)
}

// Purge drops entries whose tokens have expired; those tokens fail signature
// validation on their own.
func (bc *Cache) Purge() int {
	now := bc.now()
	bc.mu.Lock()
	defer bc.mu.Unlock()
	removed := 0
	for id, exp := range bc.revoked {
		if !exp.After(now) {
			delete(bc.revoked, id)
			removed++
		}
	}
	return removed
}

// StartBackgroundPurge purges periodically until ctx is cancelled.
func (bc *Cache) StartBackgroundPurge(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	logger.Log.Info("started revoked session purge",
		"component", "blacklist_cache",
		"interval", interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := bc.Purge(); n > 0 {
					logger.Log.Debug("purged revoked sessions",
						"component", "blacklist_cache",
						"removed", n)
				}
			case <-ctx.Done():
				logger.Log.Info("revoked session purge shutting down",
					"component", "blacklist_cache")
				return
			}
		}
	}()
}
