package websocket

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// PresenceRegistry tracks which sessions have a live presence record and
// reclaims the stale ones. Each Touch resets the entry's TTL; the cache's
// janitor runs the staleness sweep on a fixed interval, and every eviction
// (swept or explicit) goes through the hook so departed editors are
// re-broadcast promptly.
type PresenceRegistry struct {
	entries *cache.Cache
}

func NewPresenceRegistry(ttl, sweep time.Duration, onEvict func(*Session)) *PresenceRegistry {
	c := cache.New(ttl, sweep)
	c.OnEvicted(func(_ string, v interface{}) {
		if s, ok := v.(*Session); ok && onEvict != nil {
			onEvict(s)
		}
	})
	return &PresenceRegistry{entries: c}
}

// Touch refreshes the TTL for a session's presence record.
func (r *PresenceRegistry) Touch(s *Session) {
	r.entries.Set(s.id, s, cache.DefaultExpiration)
}

// Forget drops a session's entry, firing the eviction hook.
func (r *PresenceRegistry) Forget(sessionID string) {
	r.entries.Delete(sessionID)
}

// Len returns the number of tracked presence records.
func (r *PresenceRegistry) Len() int {
	return r.entries.ItemCount()
}
