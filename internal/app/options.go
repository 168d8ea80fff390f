package service

import (
	"time"

	"github.com/okian/roster/internal/adapters/publish"
	"github.com/okian/roster/internal/adapters/repository"
	"github.com/okian/roster/internal/domain/weight"
	"github.com/okian/roster/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of refresh workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets how many refresh jobs may wait.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many rosters the publication tracker remembers.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithCacheTTL sets the result cache lifetime. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithDefaultSize sets the slot count used when a request omits it.
func WithDefaultSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.defaultSize = size
		}
	}
}

// WithDefaultStrategy sets the strategy used when a request omits it.
func WithDefaultStrategy(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.defaultStrategy = name
		}
	}
}

// WithWeightModel sets the coefficients used to weigh candidates.
func WithWeightModel(m weight.Model) Option {
	return func(s *Service) {
		s.model = m
	}
}

// WithStore replaces the default in-memory roster store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithPublisher adds a publisher that receives every snapshot alongside
// the built-in feed.
func WithPublisher(p publish.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publishers = append(s.publishers, p)
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the time source for generated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
