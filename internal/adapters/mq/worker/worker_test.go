package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/roster/internal/adapters/mq/queue"
	"github.com/okian/roster/internal/adapters/mq/worker"
	"github.com/okian/roster/internal/adapters/publish"
	"github.com/okian/roster/internal/domain/dedupe"
	"github.com/okian/roster/internal/domain/model"
	logging "github.com/okian/roster/pkg/logger"
	"github.com/okian/roster/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"
)

// fakeSnapshotter returns canned snapshots per roster.
type fakeSnapshotter struct {
	mu        sync.Mutex
	snapshots map[string][]model.SlotAssignment
	errs      map[string]error
}

func newFakeSnapshotter() *fakeSnapshotter {
	return &fakeSnapshotter{
		snapshots: map[string][]model.SlotAssignment{},
		errs:      map[string]error{},
	}
}

func (f *fakeSnapshotter) set(rosterID string, weights ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := make([]model.SlotAssignment, len(weights))
	for i, w := range weights {
		a[i] = model.SlotAssignment{Slot: i + 1, ID: rosterID, Tier: w / 1000, Weight: w}
	}
	f.snapshots[rosterID] = a
}

func (f *fakeSnapshotter) fail(rosterID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[rosterID] = err
}

func (f *fakeSnapshotter) Snapshot(ctx context.Context, job model.Job) (publish.Publication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[job.RosterID]; ok {
		return publish.Publication{}, err
	}
	return publish.Publication{Algorithm: job.Strategy, Assignments: f.snapshots[job.RosterID]}, nil
}

// flakyPublisher fails the first n publications.
type flakyPublisher struct {
	mu       sync.Mutex
	failures int
	inner    publish.Publisher
}

func (p *flakyPublisher) Publish(ctx context.Context, pub publish.Publication) error {
	p.mu.Lock()
	if p.failures > 0 {
		p.failures--
		p.mu.Unlock()
		return errors.New("downstream unavailable")
	}
	p.mu.Unlock()
	return p.inner.Publish(ctx, pub)
}

// drain starts a pool, feeds jobs, and shuts it down so every job is done.
func drain(pool *worker.Pool, q *queue.InMemoryQueue, jobs ...model.Job) {
	ctx := context.Background()
	pool.Start(ctx)
	for _, j := range jobs {
		for !q.Enqueue(ctx, j) {
			time.Sleep(time.Millisecond)
		}
	}
	_ = pool.Shutdown(ctx)
}

// counterValue reads a counter from the service registry by full name.
func counterValue(name string) float64 {
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		return -1
	}
	for _, mf := range families {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func refresh(rosterID string) model.Job {
	return model.Job{JobID: "job-" + rosterID, RosterID: rosterID, Size: 15, Strategy: "optimal"}
}

func TestWorkerPool(t *testing.T) {
	defer goleak.VerifyNone(t)

	convey.Convey("Given a worker pool publishing to a feed", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		snap := newFakeSnapshotter()
		tracker := dedupe.NewInMemoryTracker()
		feed := publish.NewFeed()
		pool := worker.NewPool(2, q, snap, tracker, feed)

		convey.Convey("When a roster is refreshed", func() {
			snap.set("#A", 16000, 15000)
			drain(pool, q, refresh("#A"))

			convey.Convey("Then the snapshot should be published with a signature", func() {
				p, ok := feed.Latest("#A")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(p.RosterID, convey.ShouldEqual, "#A")
				convey.So(p.Algorithm, convey.ShouldEqual, "optimal")
				convey.So(p.Signature, convey.ShouldEqual, dedupe.Signature(p.Assignments))
				convey.So(pool.Stats().Published, convey.ShouldEqual, 1)
				convey.So(pool.Stats().Workers, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the same snapshot is refreshed twice", func() {
			snap.set("#A", 16000, 15000)
			drain(pool, q, refresh("#A"), refresh("#A"))

			convey.Convey("Then the duplicate should be suppressed", func() {
				s := pool.Stats()
				convey.So(s.Processed, convey.ShouldEqual, 2)
				convey.So(s.Published, convey.ShouldEqual, 1)
				convey.So(s.Suppressed, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When a roster was deleted before processing", func() {
			snap.fail("#GONE", worker.ErrSkip)
			stale := counterValue("roster_assignment_refreshes_stale_total")
			skipped := counterValue("roster_assignment_refreshes_skipped_total")
			drain(pool, q, refresh("#GONE"))

			convey.Convey("Then the job should be skipped, not failed", func() {
				s := pool.Stats()
				convey.So(s.Skipped, convey.ShouldEqual, 1)
				convey.So(s.Failed, convey.ShouldEqual, 0)
				_, ok := feed.Latest("#GONE")
				convey.So(ok, convey.ShouldBeFalse)
			})

			convey.Convey("And it should count as stale, not as a full queue", func() {
				convey.So(counterValue("roster_assignment_refreshes_stale_total")-stale, convey.ShouldEqual, 1)
				convey.So(counterValue("roster_assignment_refreshes_skipped_total"), convey.ShouldEqual, skipped)
			})
		})

		convey.Convey("When the snapshot cannot be built", func() {
			snap.fail("#BAD", errors.New("engine exploded"))
			drain(pool, q, refresh("#BAD"))

			convey.Convey("Then the failure should be counted", func() {
				convey.So(pool.Stats().Failed, convey.ShouldEqual, 1)
				convey.So(tracker.Size(), convey.ShouldEqual, 0)
			})
		})
	})

	convey.Convey("Given a publisher that fails once", t, func() {
		_ = logging.Init()

		snap := newFakeSnapshotter()
		snap.set("#A", 14000)
		tracker := dedupe.NewInMemoryTracker()
		feed := publish.NewFeed()
		pub := &flakyPublisher{failures: 1, inner: feed}

		q1 := queue.NewInMemoryQueue()
		drain(worker.NewPool(1, q1, snap, tracker, pub), q1, refresh("#A"))

		convey.Convey("Then the signature should be forgotten so a retry publishes", func() {
			convey.So(tracker.Size(), convey.ShouldEqual, 0)
			_, ok := feed.Latest("#A")
			convey.So(ok, convey.ShouldBeFalse)

			q2 := queue.NewInMemoryQueue()
			pool := worker.NewPool(1, q2, snap, tracker, pub)
			drain(pool, q2, refresh("#A"))

			_, ok = feed.Latest("#A")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(pool.Stats().Published, convey.ShouldEqual, 1)
		})
	})
}

func TestInMemoryWorker(t *testing.T) {
	defer goleak.VerifyNone(t)

	convey.Convey("Given a single worker", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue()
		w := worker.NewInMemoryWorker(q, newFakeSnapshotter(), dedupe.NewInMemoryTracker(), publish.NewFeed(),
			worker.WithName("test-worker"))
		ctx, cancel := context.WithCancel(context.Background())
		go w.Run(ctx)

		convey.Convey("When shut down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()
			err := w.Shutdown(shutdownCtx)
			cancel()
			_ = q.Close()

			convey.Convey("Then it should stop gracefully and tolerate a second call", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given a pool that was never started", t, func() {
		_ = logging.Init()
		q := queue.NewInMemoryQueue()
		pool := worker.NewPool(0, q, newFakeSnapshotter(), dedupe.NewInMemoryTracker(), publish.NewFeed())

		convey.Convey("Then shutdown should return immediately", func() {
			convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
			convey.So(q.IsClosed(), convey.ShouldBeTrue)
		})
	})
}
