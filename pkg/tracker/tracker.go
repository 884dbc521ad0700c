// Package tracker implements the hierarchical memory accountant the arena
// reports to. A Tracker forms a parent/child tree; consuming bytes on a child
// propagates the charge up to every ancestor, and any tracker in the chain
// can refuse the charge once its own limit is exceeded.
package tracker

import (
	"sync"

	"github.com/zeebo/errs"
)

// ErrMemLimit classifies memory-budget rejections, surfaced by the MemTable
// as MEM_LIMIT_EXCEEDED.
var ErrMemLimit = errs.Class("mem_limit_exceeded")

// Tracker is one node in the memory-accounting tree. The zero value is not
// usable; construct with New or Child.
type Tracker struct {
	mu       sync.Mutex
	name     string
	limit    int64 // 0 means unlimited
	consumed int64
	parent   *Tracker
}

// New creates a root tracker with the given byte budget. A limit of 0 means
// unlimited.
func New(name string, limit int64) *Tracker {
	return &Tracker{name: name, limit: limit}
}

// Child creates a child tracker reporting into t. The child's own limit
// additionally bounds it independent of the parent's remaining budget.
func (t *Tracker) Child(name string, limit int64) *Tracker {
	return &Tracker{name: name, limit: limit, parent: t}
}

// Consume charges n bytes against this tracker and every ancestor. If any
// tracker in the chain would exceed its limit, the charge is fully rolled
// back (no partial consumption survives a rejection) and an ErrMemLimit is
// returned.
func (t *Tracker) Consume(n int64) error {
	if n <= 0 {
		return nil
	}

	// Walk to the root collecting the chain, so a mid-chain rejection can
	// undo charges already applied to trackers closer to the leaf.
	var chain []*Tracker
	for cur := t; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}

	var applied []*Tracker
	for _, cur := range chain {
		cur.mu.Lock()
		if cur.limit > 0 && cur.consumed+n > cur.limit {
			over := cur.name
			cur.mu.Unlock()
			for _, a := range applied {
				a.mu.Lock()
				a.consumed -= n
				a.mu.Unlock()
			}
			return ErrMemLimit.New("tracker %q over budget: %d + %d > %d", over, cur.consumed, n, cur.limit)
		}
		cur.consumed += n
		cur.mu.Unlock()
		applied = append(applied, cur)
	}
	return nil
}

// Release returns n bytes to this tracker and every ancestor.
func (t *Tracker) Release(n int64) {
	if n <= 0 {
		return
	}
	for cur := t; cur != nil; cur = cur.parent {
		cur.mu.Lock()
		cur.consumed -= n
		if cur.consumed < 0 {
			cur.consumed = 0
		}
		cur.mu.Unlock()
	}
}

// Consumed returns the bytes currently charged to this tracker.
func (t *Tracker) Consumed() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.consumed
}
