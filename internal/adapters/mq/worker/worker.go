// Package worker turns queued refresh jobs into published assignment
// snapshots.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/roster/internal/adapters/publish"
	"github.com/okian/roster/internal/domain/dedupe"
	"github.com/okian/roster/internal/domain/model"
	"github.com/okian/roster/pkg/logger"
	"github.com/okian/roster/pkg/metrics"
)

const (
	metricsUpdateInterval = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// ErrSkip marks a job that should be dropped without counting as a
// failure, for example when the roster was deleted after the upload.
var ErrSkip = errors.New("refresh skipped")

// Job is what workers read off the queue.
type Job = model.Job

// Snapshotter produces the assignment snapshot for a job.
type Snapshotter interface {
	Snapshot(ctx context.Context, job Job) (publish.Publication, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes refresh jobs.
type Worker interface {
	// Run processes jobs until ctx is done, the queue closes, or Shutdown
	// is called.
	Run(ctx context.Context)

	Shutdown(ctx context.Context) error
}

// Stats counts job outcomes across a pool.
type Stats struct {
	Workers    int   `json:"workers"`
	Processed  int64 `json:"processed"`
	Published  int64 `json:"published"`
	Suppressed int64 `json:"suppressed"`
	Skipped    int64 `json:"skipped"`
	Failed     int64 `json:"failed"`
}

type counters struct {
	processed  atomic.Int64
	published  atomic.Int64
	suppressed atomic.Int64
	skipped    atomic.Int64
	failed     atomic.Int64
}

// InMemoryWorker generates a snapshot per job and publishes it when its
// signature changed since the roster's last publication.
type InMemoryWorker struct {
	queue     Queue
	snap      Snapshotter
	tracker   dedupe.Tracker
	publisher publish.Publisher
	name      string
	counts    *counters

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(q Queue, snap Snapshotter, tracker dedupe.Tracker, pub publish.Publisher, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		snap:      snap,
		tracker:   tracker,
		publisher: pub,
		name:      "worker",
		counts:    &counters{},
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.processJob(ctx, job); err != nil {
				w.logger.Error(ctx, "refresh failed",
					logger.String("job_id", job.JobID),
					logger.String("roster_id", job.RosterID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker after its current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) processJob(ctx context.Context, job Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()
	w.counts.processed.Add(1)

	pub, err := w.snap.Snapshot(ctx, job)
	if errors.Is(err, ErrSkip) {
		w.counts.skipped.Add(1)
		metrics.RecordRefreshStale()
		w.logger.Debug(ctx, "refresh skipped",
			logger.String("roster_id", job.RosterID),
			logger.Error(err),
		)
		return nil
	}
	if err != nil {
		w.counts.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "snapshot_error")
		return fmt.Errorf("snapshot roster %s: %w", job.RosterID, err)
	}

	pub.RosterID = job.RosterID
	pub.Signature = dedupe.Signature(pub.Assignments)
	if !w.tracker.Changed(ctx, job.RosterID, pub.Signature) {
		w.counts.suppressed.Add(1)
		metrics.RecordSnapshotSuppressed()
		return nil
	}

	if err := w.publisher.Publish(ctx, pub); err != nil {
		// Forget so the next snapshot for this roster is retried.
		w.tracker.Forget(ctx, job.RosterID)
		w.counts.failed.Add(1)
		metrics.RecordPublishError()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "publish_error")
		return fmt.Errorf("publish roster %s: %w", job.RosterID, err)
	}

	w.counts.published.Add(1)
	metrics.RecordSnapshotPublished()
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	tracker dedupe.Tracker
	counts  *counters

	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	logger logger.Logger
}

// NewPool creates a pool. workerCount < 1 means one worker per CPU.
func NewPool(workerCount int, q Queue, snap Snapshotter, tracker dedupe.Tracker, pub publish.Publisher) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		tracker: tracker,
		counts:  &counters{},
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(q, snap, tracker, pub,
			WithName("worker-"+strconv.Itoa(i)),
			withCounters(p.counts),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches every worker and the metrics updater.
func (p *Pool) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.started = true

	for _, w := range p.workers {
		go w.Run(runCtx)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runMetricsUpdater(runCtx)
	}()
}

func (p *Pool) runMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDedupeTracked(p.tracker.Size())
		}
	}
}

// Shutdown closes the queue, lets workers drain what is already queued,
// and stops them. Workers still busy when ctx (or the pool timeout)
// expires are abandoned.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	if !p.started {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	metrics.UpdateWorkerCount(0)

	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}

// Stats returns a snapshot of job counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:    len(p.workers),
		Processed:  p.counts.processed.Load(),
		Published:  p.counts.published.Load(),
		Suppressed: p.counts.suppressed.Load(),
		Skipped:    p.counts.skipped.Load(),
		Failed:     p.counts.failed.Load(),
	}
}
