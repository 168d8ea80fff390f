// Package publish delivers assignment snapshots to their consumers.
package publish

import (
	"context"
	"errors"
	"time"

	"github.com/okian/roster/internal/domain/model"
	"github.com/okian/roster/pkg/logger"
	"github.com/puzpuzpuz/xsync/v4"
)

// Publication is one snapshot pushed to consumers.
type Publication struct {
	RosterID    string                 `json:"roster_id"`
	Signature   string                 `json:"signature"`
	Algorithm   string                 `json:"algorithm"`
	Fallback    bool                   `json:"fallback"`
	Assignments []model.SlotAssignment `json:"assignments"`
	PublishedAt time.Time              `json:"published_at"`
}

// Publisher delivers publications. Implementations must be safe for
// concurrent use by the worker pool.
type Publisher interface {
	Publish(ctx context.Context, p Publication) error
}

// Feed keeps the latest publication per roster for readers.
type Feed struct {
	latest *xsync.Map[string, Publication]
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{latest: xsync.NewMap[string, Publication]()}
}

// Publish replaces the roster's latest publication.
func (f *Feed) Publish(ctx context.Context, p Publication) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.RosterID == "" {
		return ErrMissingRoster
	}
	f.latest.Store(p.RosterID, p)
	return nil
}

// Latest returns the most recent publication for rosterID.
func (f *Feed) Latest(rosterID string) (Publication, bool) {
	return f.latest.Load(rosterID)
}

// Remove drops the roster's publication, used when a roster is deleted.
func (f *Feed) Remove(rosterID string) {
	f.latest.Delete(rosterID)
}

// Len reports how many rosters have a publication.
func (f *Feed) Len() int {
	return f.latest.Size()
}

// LogPublisher writes a one-line record of every publication.
type LogPublisher struct {
	log logger.Logger
}

// NewLogPublisher creates a publisher that logs through the named
// "publish" logger.
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{log: logger.Get().Named("publish")}
}

func (l *LogPublisher) Publish(ctx context.Context, p Publication) error {
	var top string
	if len(p.Assignments) > 0 {
		top = p.Assignments[0].Name
	}
	l.log.Info(ctx, "snapshot published",
		logger.String("roster_id", p.RosterID),
		logger.String("algorithm", p.Algorithm),
		logger.Int("slots", len(p.Assignments)),
		logger.String("slot_1", top),
		logger.String("signature", p.Signature),
	)
	return nil
}

// Fanout publishes to every publisher in order and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, p Publication) error {
	var errs []error
	for _, pub := range f {
		if err := pub.Publish(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
