// Package dedupe tracks the last published snapshot signature per roster so
// unchanged snapshots are not published twice.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Tracker remembers one signature per roster.
type Tracker interface {
	// Changed atomically compares signature with the last one recorded for
	// rosterID and records it. Returns true if the signature is new or
	// differs, false if it matches what was recorded.
	Changed(ctx context.Context, rosterID, signature string) bool

	// Forget removes the roster's signature so the next snapshot is treated
	// as changed. Used when publishing failed after Changed returned true.
	Forget(ctx context.Context, rosterID string)

	Size() int64
}

// node is one entry in the insertion-ordered list.
type node struct {
	rosterID  string
	signature string
	next      *node
}

func (n *node) reset() {
	n.rosterID = ""
	n.signature = ""
	n.next = nil
}

// inMemoryTracker keeps signatures in a map plus a linked list ordered by
// first insertion (head is newest). When bounded, the oldest roster is
// evicted to make room. maxSize <= 0 means unbounded.
type inMemoryTracker struct {
	mu       sync.Mutex
	entries  map[string]*node
	head     *node
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryTracker creates a tracker with configuration options.
func NewInMemoryTracker(opts ...Option) Tracker {
	t := &inMemoryTracker{
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.entries = make(map[string]*node)
	t.nodePool = sync.Pool{
		New: func() interface{} {
			return &node{}
		},
	}
	return t
}

func (t *inMemoryTracker) Changed(ctx context.Context, rosterID, signature string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n, ok := t.entries[rosterID]; ok {
		if n.signature == signature {
			return false
		}
		n.signature = signature
		return true
	}

	if t.maxSize > 0 && len(t.entries) >= t.maxSize {
		t.evictOldest()
	}

	n := t.nodePool.Get().(*node)
	n.rosterID = rosterID
	n.signature = signature
	n.next = t.head
	t.head = n
	t.entries[rosterID] = n
	t.size.Add(1)
	return true
}

func (t *inMemoryTracker) Forget(ctx context.Context, rosterID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.entries[rosterID]
	if !ok {
		return
	}
	delete(t.entries, rosterID)
	t.unlink(n)
	n.reset()
	t.nodePool.Put(n)
	t.size.Add(-1)
}

// unlink removes n from the list. Caller holds t.mu.
func (t *inMemoryTracker) unlink(n *node) {
	if t.head == n {
		t.head = n.next
		return
	}
	for cur := t.head; cur != nil; cur = cur.next {
		if cur.next == n {
			cur.next = n.next
			return
		}
	}
}

// evictOldest drops the tail of the list. Caller holds t.mu.
func (t *inMemoryTracker) evictOldest() {
	if t.head == nil {
		return
	}
	var prev *node
	cur := t.head
	for cur.next != nil {
		prev = cur
		cur = cur.next
	}
	if prev == nil {
		t.head = nil
	} else {
		prev.next = nil
	}
	delete(t.entries, cur.rosterID)
	cur.reset()
	t.nodePool.Put(cur)
	t.size.Add(-1)
}

func (t *inMemoryTracker) Size() int64 {
	return t.size.Load()
}
