// Package arena implements a bump-style region allocator backed by a
// tracker.Tracker. All row payloads and variable-length column data allocate
// from here; everything is released en bloc on Destroy. Index nodes do not:
// the index's btree nodes live on the Go heap and are not charged to the
// tracker.
package arena

import (
	"github.com/Gourab-18/olap_memtable/pkg/tracker"
)

const initialCapacity = 64 * 1024

// handleOverhead approximates the bookkeeping cost of one out-of-line blob
// or object handle (slice header / interface header plus side-table slot),
// charged through the tracker alongside the payload itself.
const handleOverhead = 16

// Arena hands out byte regions that stay valid for its entire lifetime. It
// never reuses or moves a previously returned address: growth allocates a
// fresh backing buffer and leaves the old one (and anything pointing into
// it) untouched.
type Arena struct {
	tracker  *tracker.Tracker
	bufs     [][]byte // every backing buffer ever allocated, oldest first
	cur      []byte   // the buffer currently being bumped into
	off      int
	consumed int64

	blobs   [][]byte // out-of-line byte payloads (Varchar), indexed by handle
	objects []any    // out-of-line aggregate objects (HLL, Bitmap), indexed by handle
}

// New creates an arena reporting into the given tracker (which may be nil
// for an untracked arena, e.g. in tests).
func New(t *tracker.Tracker) *Arena {
	return &Arena{tracker: t}
}

// Allocate returns n contiguous, 8-byte-aligned bytes valid until the arena
// is destroyed. It never returns a previously returned address.
func (a *Arena) Allocate(n int) ([]byte, error) {
	if n < 0 {
		panic("arena: negative allocation size")
	}
	if n == 0 {
		return nil, nil
	}

	if a.cur == nil || len(a.cur)-a.off < n {
		if err := a.grow(n); err != nil {
			return nil, err
		}
	}

	start := a.off
	a.off += n
	// Keep subsequent allocations 8-byte aligned.
	if pad := a.off % 8; pad != 0 {
		a.off += 8 - pad
	}
	return a.cur[start : start+n : start+n], nil
}

// grow allocates a new backing buffer sized to hold at least n bytes,
// charging only the delta (the new buffer's size) to the tracker.
func (a *Arena) grow(n int) error {
	size := initialCapacity
	if len(a.bufs) > 0 {
		size = cap(a.bufs[len(a.bufs)-1]) * 2
	}
	for size < n {
		size *= 2
	}

	if a.tracker != nil {
		if err := a.tracker.Consume(int64(size)); err != nil {
			return err
		}
	}

	a.cur = make([]byte, size)
	a.bufs = append(a.bufs, a.cur)
	a.off = 0
	a.consumed += int64(size)
	return nil
}

// Copy allocates len(src) bytes and copies src into them, returning the new
// slice.
func (a *Arena) Copy(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	dst, err := a.Allocate(len(src))
	if err != nil {
		return nil, err
	}
	copy(dst, src)
	return dst, nil
}

// StoreBytes copies src into the arena and registers it in the blob table,
// returning a stable handle that LoadBytes can later resolve. Used for
// Varchar payloads: the row cell stores the handle, not the bytes.
func (a *Arena) StoreBytes(src []byte) (uint64, error) {
	copied, err := a.Copy(src)
	if err != nil {
		return 0, err
	}
	if a.tracker != nil {
		if err := a.tracker.Consume(handleOverhead); err != nil {
			return 0, err
		}
	}
	a.consumed += handleOverhead
	a.blobs = append(a.blobs, copied)
	return uint64(len(a.blobs) - 1), nil
}

// LoadBytes resolves a handle previously returned by StoreBytes.
func (a *Arena) LoadBytes(handle uint64) []byte {
	return a.blobs[handle]
}

// StoreObject registers a complex aggregate object (an HLL sketch, a bitmap
// set) in the arena's object pool. Unlike StoreBytes, the object itself is
// an ordinary Go value living on the heap, not arena-allocated bytes; the
// pool only gives it a stable handle and a lifetime tied to the MemTable.
func (a *Arena) StoreObject(obj any) (uint64, error) {
	if a.tracker != nil {
		if err := a.tracker.Consume(handleOverhead); err != nil {
			return 0, err
		}
	}
	a.consumed += handleOverhead
	a.objects = append(a.objects, obj)
	return uint64(len(a.objects) - 1), nil
}

// LoadObject resolves a handle previously returned by StoreObject.
func (a *Arena) LoadObject(handle uint64) any {
	return a.objects[handle]
}

// Consumed returns the total bytes vended by this arena so far, including
// allocator overhead from buffer growth. Monotonically non-decreasing.
func (a *Arena) Consumed() int64 { return a.consumed }

// Destroy releases the arena's full consumption back to its tracker. The
// arena must not be used afterward.
func (a *Arena) Destroy() {
	if a.tracker != nil {
		a.tracker.Release(a.consumed)
	}
	a.bufs = nil
	a.cur = nil
	a.off = 0
	a.consumed = 0
	a.blobs = nil
	a.objects = nil
}
