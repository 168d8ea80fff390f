package cache

import "time"

type settings struct {
	ttl time.Duration
	now func() time.Time
}

// Option configures a TTL cache.
type Option func(*settings)

// WithTTL sets the entry lifetime. Zero or negative disables caching.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) {
		s.ttl = ttl
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}
