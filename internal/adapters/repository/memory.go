package repository

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/okian/roster/pkg/metrics"
)

// MemoryStore keeps rosters in a map. Records are deep-copied on the way in
// and out so callers cannot mutate stored state, nested values included.
type MemoryStore struct {
	mu      sync.RWMutex
	rosters map[string]Roster
	cfg     settings
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		rosters: make(map[string]Roster),
		cfg:     newSettings(opts),
	}
}

func (s *MemoryStore) Put(ctx context.Context, id string, records []Record) (Roster, error) {
	if strings.TrimSpace(id) == "" {
		metrics.RecordErrorByComponent("repository", "invalid_roster")
		return Roster{}, fmt.Errorf("%w: blank id", ErrInvalidRoster)
	}
	r := Roster{ID: id, Records: cloneRecords(records), UpdatedAt: s.cfg.now().UTC()}

	s.mu.Lock()
	s.rosters[id] = r
	n := len(s.rosters)
	s.mu.Unlock()

	metrics.UpdateRostersTotal(n)
	return Roster{ID: r.ID, Records: cloneRecords(r.Records), UpdatedAt: r.UpdatedAt}, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Roster, error) {
	s.mu.RLock()
	r, ok := s.rosters[id]
	s.mu.RUnlock()
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Roster{}, ErrNotFound
	}
	r.Records = cloneRecords(r.Records)
	return r, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.rosters[id]
	delete(s.rosters, id)
	n := len(s.rosters)
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	metrics.UpdateRostersTotal(n)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	ids := slices.Collect(maps.Keys(s.rosters))
	s.mu.RUnlock()
	slices.Sort(ids)
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rosters)
}

func (s *MemoryStore) Close() error { return nil }

func cloneRecords(in []Record) []Record {
	out := make([]Record, len(in))
	for i, r := range in {
		out[i] = cloneMap(r)
	}
	return out
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies the container shapes JSON decoding and callers
// produce. Scalars are immutable and returned as is.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []map[string]any:
		if t == nil {
			return t
		}
		out := make([]map[string]any, len(t))
		for i, item := range t {
			out[i] = cloneMap(item)
		}
		return out
	case []string:
		return slices.Clone(t)
	case []int:
		return slices.Clone(t)
	case []float64:
		return slices.Clone(t)
	default:
		return v
	}
}
