package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/huddle/client/internal/models"
)

// ErrDirectoryUnavailable is returned when no lookup backend is configured.
var ErrDirectoryUnavailable = errors.New("user directory unavailable")

// UserLookup resolves a username to a user record.
type UserLookup interface {
	ByUsername(ctx context.Context, username string) (models.User, error)
}

type directoryEntry struct {
	user    models.User
	expires time.Time
}

// CachingUserDirectory wraps a UserLookup with a TTL-based in-memory cache.
// Failed lookups are never cached.
type CachingUserDirectory struct {
	base UserLookup
	ttl  time.Duration
	now  func() time.Time

	mu    sync.RWMutex
	items map[string]directoryEntry
}

// NewCachingUserDirectory returns a directory that caches lookups for ttl.
func NewCachingUserDirectory(base UserLookup, ttl time.Duration) *CachingUserDirectory {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingUserDirectory{
		base:  base,
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]directoryEntry),
	}
}

// ByUsername returns the cached user when fresh, otherwise it delegates to the
// underlying lookup and stores the result.
func (d *CachingUserDirectory) ByUsername(ctx context.Context, username string) (models.User, error) {
	if d == nil || d.base == nil {
		return models.User{}, ErrDirectoryUnavailable
	}

	now := d.now()

	d.mu.RLock()
	entry, ok := d.items[username]
	d.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.user, nil
	}

	user, err := d.base.ByUsername(ctx, username)
	if err != nil {
		return models.User{}, err
	}

	d.mu.Lock()
	d.items[username] = directoryEntry{user: user, expires: now.Add(d.ttl)}
	d.mu.Unlock()

	return user, nil
}

// Invalidate drops username from the cache.
func (d *CachingUserDirectory) Invalidate(username string) {
	d.mu.Lock()
	delete(d.items, username)
	d.mu.Unlock()
}

// Purge drops expired entries and returns how many remain.
func (d *CachingUserDirectory) Purge() int {
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, entry := range d.items {
		if !now.Before(entry.expires) {
			delete(d.items, k)
		}
	}
	return len(d.items)
}
