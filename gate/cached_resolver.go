package gate

import (
	"context"
	"sync"
	"time"
)

// CachedResolver wraps a ProfileResolver with TTL-based caching so capability
// checks inside one request flow do not hit the database repeatedly.
type CachedResolver[U comparable] struct {
	inner ProfileResolver[U]
	cache map[U]cacheEntry
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	// gen changes on every invalidation. A lookup that raced with one is
	// returned but not stored.
	gen uint64
}

type cacheEntry struct {
	profile   Profile
	expiresAt time.Time
}

// NewCachedResolver wraps a resolver with caching.
// ttl is how long profiles are cached before re-fetching.
func NewCachedResolver[U comparable](inner ProfileResolver[U], ttl time.Duration) *CachedResolver[U] {
	return &CachedResolver[U]{
		inner: inner,
		cache: make(map[U]cacheEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Resolve returns the profile for the given user, using cache if available.
// Nil profiles are not cached.
func (r *CachedResolver[U]) Resolve(ctx context.Context, user U) (Profile, error) {
	r.mu.RLock()
	entry, ok := r.cache[user]
	gen := r.gen
	r.mu.RUnlock()

	if ok && r.now().Before(entry.expiresAt) {
		return entry.profile, nil
	}

	profile, err := r.inner.Resolve(ctx, user)
	if err != nil || profile == nil {
		return profile, err
	}

	r.mu.Lock()
	if r.gen == gen {
		r.cache[user] = cacheEntry{profile: profile, expiresAt: r.now().Add(r.ttl)}
	}
	r.mu.Unlock()

	return profile, nil
}

// Invalidate removes users from the cache.
// Call this when a user's profile or overrides change.
func (r *CachedResolver[U]) Invalidate(users ...U) {
	r.mu.Lock()
	for _, u := range users {
		delete(r.cache, u)
	}
	r.gen++
	r.mu.Unlock()
}

// InvalidateAll clears the entire cache.
// Call this when profile permissions are modified.
func (r *CachedResolver[U]) InvalidateAll() {
	r.mu.Lock()
	r.cache = make(map[U]cacheEntry)
	r.gen++
	r.mu.Unlock()
}

// Len returns the number of cached entries, expired ones included.
func (r *CachedResolver[U]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}
