// Package cache holds recently generated assignment results for a short
// time so repeated requests for the same roster skip the engine.
package cache

import (
	"strconv"
	"strings"
	"time"

	"github.com/okian/roster/pkg/metrics"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/zeebo/xxh3"
)

// DefaultTTL is how long a result stays valid.
const DefaultTTL = 30 * time.Second

const (
	rosterPrefix = "roster:"
	inlinePrefix = "inline:"
)

// Key identifies one generation request. Version is the roster revision
// the result was computed from; inline pools leave it zero.
type Key struct {
	Source   string
	Version  uint64
	Size     int
	Strategy string
}

// RosterSource is the Key source for a stored roster.
func RosterSource(rosterID string) string {
	return rosterPrefix + rosterID
}

// PayloadSource is the Key source for candidates sent inline. The payload
// should be a canonical encoding so equal pools map to equal sources.
func PayloadSource(payload []byte) string {
	return inlinePrefix + strconv.FormatUint(xxh3.Hash(payload), 16)
}

type entry[V any] struct {
	value   V
	expires time.Time
}

// TTL is a concurrent map of results that expire after a fixed duration.
type TTL[V any] struct {
	entries *xsync.Map[Key, entry[V]]
	ttl     time.Duration
	now     func() time.Time
}

// New creates a TTL cache.
func New[V any](opts ...Option) *TTL[V] {
	s := settings{ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(&s)
	}
	return &TTL[V]{
		entries: xsync.NewMap[Key, entry[V]](),
		ttl:     s.ttl,
		now:     s.now,
	}
}

// Get returns a live entry. Expired entries are removed and reported as
// misses. A cache with a non-positive TTL never hits.
func (c *TTL[V]) Get(key Key) (V, bool) {
	e, ok := c.entries.Load(key)
	if ok && c.now().Before(e.expires) {
		metrics.RecordCacheHit()
		return e.value, true
	}
	if ok {
		c.entries.Delete(key)
		metrics.UpdateCacheEntries(c.entries.Size())
	}
	metrics.RecordCacheMiss()
	var zero V
	return zero, false
}

// Put stores value under key for the configured TTL.
func (c *TTL[V]) Put(key Key, value V) {
	if c.ttl <= 0 {
		return
	}
	c.entries.Store(key, entry[V]{value: value, expires: c.now().Add(c.ttl)})
	metrics.UpdateCacheEntries(c.entries.Size())
}

// InvalidateRoster drops every entry generated from the roster and returns
// how many were removed.
func (c *TTL[V]) InvalidateRoster(rosterID string) int {
	source := RosterSource(rosterID)
	return c.deleteWhere(func(k Key, _ entry[V]) bool { return k.Source == source })
}

// Sweep drops expired entries and returns how many were removed.
func (c *TTL[V]) Sweep() int {
	now := c.now()
	return c.deleteWhere(func(_ Key, e entry[V]) bool { return !now.Before(e.expires) })
}

// Len reports the number of stored entries, including expired ones not
// yet swept.
func (c *TTL[V]) Len() int {
	return c.entries.Size()
}

// TTL returns the configured lifetime.
func (c *TTL[V]) TTL() time.Duration {
	return c.ttl
}

func (c *TTL[V]) deleteWhere(match func(Key, entry[V]) bool) int {
	var doomed []Key
	c.entries.Range(func(k Key, e entry[V]) bool {
		if match(k, e) {
			doomed = append(doomed, k)
		}
		return true
	})
	for _, k := range doomed {
		c.entries.Delete(k)
	}
	if len(doomed) > 0 {
		metrics.UpdateCacheEntries(c.entries.Size())
	}
	return len(doomed)
}

// IsInline reports whether the key was built from an inline payload.
func (k Key) IsInline() bool {
	return strings.HasPrefix(k.Source, inlinePrefix)
}
