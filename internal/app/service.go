// Package service wires the assignment engine, roster storage, result
// cache, and the snapshot publication pipeline behind the operations the
// HTTP API and CLI need.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/roster/internal/adapters/cache"
	"github.com/okian/roster/internal/adapters/mq/queue"
	"github.com/okian/roster/internal/adapters/mq/worker"
	"github.com/okian/roster/internal/adapters/publish"
	"github.com/okian/roster/internal/adapters/repository"
	"github.com/okian/roster/internal/domain/assignment"
	"github.com/okian/roster/internal/domain/dedupe"
	"github.com/okian/roster/internal/domain/model"
	"github.com/okian/roster/internal/domain/pool"
	"github.com/okian/roster/internal/domain/weight"
	"github.com/okian/roster/pkg/logger"
	"github.com/okian/roster/pkg/metrics"
	"github.com/puzpuzpuz/xsync/v4"
)

const stopTimeout = 10 * time.Second

// GenerateRequest selects a candidate pool by stored roster id or inline
// records. RosterID wins when both are set. Size <= 0 and an empty
// Strategy fall back to the service defaults.
type GenerateRequest struct {
	RosterID   string
	Candidates []pool.Record
	Size       int
	Strategy   string
}

// Result is the envelope returned for one generation.
type Result struct {
	RosterID      string                 `json:"roster_id,omitempty" yaml:"roster_id,omitempty"`
	Size          int                    `json:"size" yaml:"size"`
	RequestedSize int                    `json:"requested_size" yaml:"requested_size"`
	Algorithm     string                 `json:"algorithm" yaml:"algorithm"`
	Fallback      bool                   `json:"fallback" yaml:"fallback"`
	GeneratedAt   time.Time              `json:"generated_at" yaml:"generated_at"`
	PoolSize      int                    `json:"pool_size" yaml:"pool_size"`
	Cached        bool                   `json:"cached" yaml:"cached"`
	Assignments   []model.SlotAssignment `json:"assignments" yaml:"assignments"`
}

// Service implements the API dependencies for roster assignment.
type Service struct {
	mu sync.RWMutex

	// Core components
	engine     *assignment.Engine
	store      repository.Store
	results    *cache.TTL[Result]
	tracker    dedupe.Tracker
	feed       *publish.Feed
	publishers []publish.Publisher
	jobs       *queue.InMemoryQueue
	workers    *worker.Pool

	// Roster revisions, bumped on every write so results computed from
	// an older upload never land under the current key.
	revisions *xsync.Map[string, uint64]
	revision  atomic.Uint64

	// Configuration
	workerCount     int
	queueSize       int
	dedupeSize      int
	cacheTTL        time.Duration
	defaultSize     int
	defaultStrategy string
	model           weight.Model
	now             func() time.Time

	// State
	started bool
	stopCh  chan struct{}
	bg      sync.WaitGroup

	logger logger.Logger
}

// New constructs a Service. Generation and roster storage work right
// away; Start is only needed for background snapshot publication.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     runtime.NumCPU(),
		queueSize:       1024,
		dedupeSize:      10000,
		cacheTTL:        cache.DefaultTTL,
		defaultSize:     15,
		defaultStrategy: string(assignment.Strength),
		model:           weight.Default(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	s.engine = assignment.New(assignment.WithWeightModel(s.model))
	s.results = cache.New[Result](cache.WithTTL(s.cacheTTL))
	s.tracker = dedupe.NewInMemoryTracker(dedupe.WithMaxSize(s.dedupeSize))
	s.feed = publish.NewFeed()
	s.revisions = xsync.NewMap[string, uint64]()
	return s
}

// Start launches the refresh workers and the cache sweeper.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting roster service...")

	pubs := append(publish.Fanout{s.feed}, s.publishers...)
	s.jobs = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.workers = worker.NewPool(s.workerCount, s.jobs, s, s.tracker, pubs)
	s.workers.Start(ctx)

	s.stopCh = make(chan struct{})
	if s.cacheTTL > 0 {
		s.bg.Add(1)
		go s.sweepCache(s.stopCh)
	}

	s.started = true
	s.logger.Info(ctx, "roster service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Duration("cache_ttl", s.cacheTTL),
	)
	return nil
}

// Stop drains queued refreshes and stops background work. The roster
// store stays open; its owner closes it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping roster service...")

	if err := s.workers.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}
	close(s.stopCh)
	s.bg.Wait()

	s.started = false
	s.logger.Info(ctx, "roster service stopped")
}

func (s *Service) sweepCache(stop <-chan struct{}) {
	defer s.bg.Done()
	ticker := time.NewTicker(s.cacheTTL)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.results.Sweep()
		}
	}
}

// Generate assigns slots for a stored roster or an inline pool. Results
// are cached per (source, size, strategy) for the cache TTL.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (Result, error) {
	requested := req.Size
	if requested <= 0 {
		requested = s.defaultSize
	}
	name := req.Strategy
	if name == "" {
		name = s.defaultStrategy
	}
	strategy, ok := assignment.ParseStrategy(name)
	if !ok {
		s.logger.Debug(ctx, "unknown strategy, using strength", logger.String("strategy", name))
	}
	size := assignment.ClampSize(requested)

	var (
		records []pool.Record
		source  string
		version uint64
	)
	switch {
	case req.RosterID != "":
		// Read the revision before the roster: a write landing in between
		// leaves this result under an outdated key.
		version, _ = s.revisions.Load(req.RosterID)
		roster, err := s.store.Get(ctx, req.RosterID)
		if err != nil {
			return Result{}, fmt.Errorf("load roster %s: %w", req.RosterID, err)
		}
		records, source = roster.Records, cache.RosterSource(req.RosterID)
	case req.Candidates != nil:
		payload, err := json.Marshal(req.Candidates)
		if err != nil {
			return Result{}, fmt.Errorf("%w: candidates: %w", ErrBadRequest, err)
		}
		records, source = req.Candidates, cache.PayloadSource(payload)
	default:
		return Result{}, fmt.Errorf("%w: roster_id or candidates required", ErrBadRequest)
	}

	key := cache.Key{Source: source, Version: version, Size: size, Strategy: strategy.String()}
	if hit, ok := s.results.Get(key); ok {
		hit.Cached = true
		hit.RequestedSize = requested
		hit.Assignments = slices.Clone(hit.Assignments)
		return hit, nil
	}

	candidates := s.engine.Pool().Normalize(records)
	start := time.Now()
	outcome := s.engine.Run(candidates, size, strategy.String())
	if strategy == assignment.Optimal {
		metrics.RecordMatcherLatency(float64(time.Since(start).Microseconds()) / 1000)
	}

	algorithm := outcome.Requested.String()
	if outcome.Fallback {
		algorithm = assignment.Strength.String()
		metrics.RecordOptimalFallback()
		s.logger.Info(ctx, "optimal matching incomplete, using strength order",
			logger.String("roster_id", req.RosterID),
			logger.Int("pool_size", len(candidates)),
		)
	}
	metrics.RecordAssignment(algorithm, len(candidates), len(outcome.Assignments))

	res := Result{
		RosterID:      req.RosterID,
		Size:          outcome.Size,
		RequestedSize: requested,
		Algorithm:     algorithm,
		Fallback:      outcome.Fallback,
		GeneratedAt:   s.now().UTC(),
		PoolSize:      len(candidates),
		Assignments:   outcome.Assignments,
	}
	s.results.Put(key, res)
	res.Assignments = slices.Clone(res.Assignments)
	return res, nil
}

// PutRoster stores a roster, drops its cached results, and schedules a
// snapshot refresh. A full queue does not fail the upload.
func (s *Service) PutRoster(ctx context.Context, id string, records []pool.Record) (repository.Roster, error) {
	roster, err := s.store.Put(ctx, id, records)
	if err != nil {
		return repository.Roster{}, err
	}
	metrics.RecordRosterUpload()
	s.revisions.Store(id, s.revision.Add(1))
	s.results.InvalidateRoster(id)
	s.scheduleRefresh(ctx, id)
	return roster, nil
}

func (s *Service) scheduleRefresh(ctx context.Context, rosterID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return
	}

	job := model.Job{
		JobID:      uuid.NewString(),
		RosterID:   rosterID,
		Size:       s.defaultSize,
		Strategy:   s.defaultStrategy,
		EnqueuedAt: s.now().UTC(),
	}
	if !s.jobs.Enqueue(ctx, job) {
		metrics.RecordRefreshSkipped()
		s.logger.Warn(ctx, "refresh not scheduled",
			logger.String("roster_id", rosterID),
			logger.Error(queue.ErrQueueFull),
		)
	}
}

// GetRoster returns a stored roster.
func (s *Service) GetRoster(ctx context.Context, id string) (repository.Roster, error) {
	return s.store.Get(ctx, id)
}

// DeleteRoster removes a roster with its cached results and publication.
func (s *Service) DeleteRoster(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.revisions.Delete(id)
	s.results.InvalidateRoster(id)
	s.feed.Remove(id)
	s.tracker.Forget(ctx, id)
	return nil
}

// ListRosters returns stored roster ids in ascending order.
func (s *Service) ListRosters(ctx context.Context) ([]string, error) {
	return s.store.List(ctx)
}

// Summary reports the tier distribution and weight range of a roster.
func (s *Service) Summary(ctx context.Context, id string) (model.Summary, error) {
	roster, err := s.store.Get(ctx, id)
	if err != nil {
		return model.Summary{}, err
	}
	return model.Summarize(id, s.engine.Pool().Normalize(roster.Records)), nil
}

// Published returns the latest snapshot published for a roster.
func (s *Service) Published(ctx context.Context, id string) (publish.Publication, error) {
	p, ok := s.feed.Latest(id)
	if !ok {
		return publish.Publication{}, fmt.Errorf("%w: %s", ErrNotPublished, id)
	}
	return p, nil
}

// Snapshot builds the publication for a refresh job. Deleted rosters are
// reported as worker.ErrSkip.
func (s *Service) Snapshot(ctx context.Context, job model.Job) (publish.Publication, error) {
	res, err := s.Generate(ctx, GenerateRequest{RosterID: job.RosterID, Size: job.Size, Strategy: job.Strategy})
	if errors.Is(err, ErrNotFound) {
		return publish.Publication{}, fmt.Errorf("%w: %w", worker.ErrSkip, err)
	}
	if err != nil {
		return publish.Publication{}, err
	}
	return publish.Publication{
		RosterID:    job.RosterID,
		Algorithm:   res.Algorithm,
		Fallback:    res.Fallback,
		Assignments: res.Assignments,
		PublishedAt: s.now().UTC(),
	}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	rosters := s.store.Count(ctx)
	stats := map[string]interface{}{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
		"dedupeSize":    s.dedupeSize,
		"rosters":       rosters,
		"cacheEntries":  s.results.Len(),
		"dedupeTracked": s.tracker.Size(),
		"published":     s.feed.Len(),
	}

	if s.started {
		queueLen := s.jobs.Len(ctx)
		stats["queueLength"] = queueLen
		stats["workers"] = s.workers.Stats()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateRostersTotal(rosters)
		metrics.UpdateDedupeTracked(s.tracker.Size())
	}
	return stats
}

// Defaults reports the size and strategy applied to requests that omit them.
func (s *Service) Defaults() (size int, strategy string) {
	return s.defaultSize, s.defaultStrategy
}
