package memory

import (
	"context"
	"sync"
	"time"

	"quiz-pipeline-service/internal/domain"
)

// ProfileCache is a size- and time-bounded profile cache for single-instance runs.
// Entries expire after ttl; when full, the entry closest to expiry is evicted. A live entry
// is never replaced by an older profile version.
type ProfileCache struct {
	ttl        time.Duration
	maxEntries int
	clock      func() time.Time

	mu      sync.Mutex
	entries map[string]cachedProfile
}

type cachedProfile struct {
	profile   domain.PreferenceProfile
	expiresAt time.Time
}

func NewProfileCache(ttl time.Duration, maxEntries int) *ProfileCache {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &ProfileCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		clock:      time.Now,
		entries:    make(map[string]cachedProfile),
	}
}

func (c *ProfileCache) Get(_ context.Context, userID string) (domain.PreferenceProfile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[userID]
	if !ok {
		return domain.PreferenceProfile{}, false
	}
	if !entry.expiresAt.After(c.clock()) {
		delete(c.entries, userID)
		return domain.PreferenceProfile{}, false
	}
	return entry.profile.Clone(), true
}

func (c *ProfileCache) Set(_ context.Context, profile domain.PreferenceProfile) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock()
	current, exists := c.entries[profile.UserID]
	if exists && current.expiresAt.After(now) && current.profile.Version > profile.Version {
		return
	}
	if !exists && len(c.entries) >= c.maxEntries {
		c.evictLocked(now)
	}
	c.entries[profile.UserID] = cachedProfile{profile: profile.Clone(), expiresAt: now.Add(c.ttl)}
}

// Len reports the number of cached entries, expired ones included.
func (c *ProfileCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ProfileCache) evictLocked(now time.Time) {
	var oldestID string
	var oldest time.Time
	for id, entry := range c.entries {
		if !entry.expiresAt.After(now) {
			delete(c.entries, id)
			continue
		}
		if oldestID == "" || entry.expiresAt.Before(oldest) {
			oldestID, oldest = id, entry.expiresAt
		}
	}
	if len(c.entries) >= c.maxEntries && oldestID != "" {
		delete(c.entries, oldestID)
	}
}
