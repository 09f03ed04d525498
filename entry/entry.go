// Package entry implements the per-node storage slot: an atomically
// swappable point identity paired with a mutex-guarded payload buffer.
package entry

import (
	"sync"
	"sync/atomic"

	"go.viam.com/pointindex/geom"
)

// Entry is the persistent record at one tree node. Its point field is
// updated with lock-free atomics so concurrent inserts can compare
// candidates against the current incumbent without blocking; its payload
// bytes are guarded by mutex since they are wider than a machine word.
//
// Invariant (spec §3): whenever Point() is non-nil, Data() holds the
// serialized record of exactly that point. Callers that swap the point and
// then rewrite the payload must hold the mutex across both steps so a
// concurrent reader never observes a point/payload mismatch.
type Entry struct {
	point atomic.Pointer[geom.Point]
	mu    sync.Mutex
	data  []byte
}

// New constructs an Entry with no resident point, backed by data - which
// may be a freshly allocated buffer or a slice into a larger shared
// buffer (as is the case once a chunk has been densified).
func New(data []byte) *Entry {
	return &Entry{data: data}
}

// NewWithPoint constructs an already-occupied Entry. Used when rebuilding
// entries during sparse-to-dense conversion, where the point is already
// known and only the backing buffer changes.
func NewWithPoint(p *geom.Point, data []byte) *Entry {
	e := &Entry{data: data}
	e.point.Store(p)
	return e
}

// Point atomically loads the current resident point, or nil if empty.
func (e *Entry) Point() *geom.Point {
	return e.point.Load()
}

// Mutex returns the lock guarding payload mutation.
func (e *Entry) Mutex() *sync.Mutex {
	return &e.mu
}

// Data returns the payload buffer. The caller must hold Mutex() for the
// duration of any read that must be coherent with a concurrent point swap.
func (e *Entry) Data() []byte {
	return e.data
}

// SetData repoints the payload buffer. Densification does not use it: it
// builds fresh entries over the dense backing array instead. The caller
// must hold Mutex().
func (e *Entry) SetData(data []byte) {
	e.data = data
}

// ClaimEmpty attempts to occupy an empty entry: a lock-free CAS from nil
// to newPoint, and - only on success - a lock-guarded payload write. This
// is the "cur is null" branch of the branch insertion contract (spec
// §4.3): the CAS may race with other inserters, but only one can win it,
// and losers never observe a torn write since the payload write happens
// strictly after the CAS is already resolved.
func (e *Entry) ClaimEmpty(newPoint *geom.Point, payload []byte) bool {
	if !e.point.CompareAndSwap(nil, newPoint) {
		return false
	}
	e.mu.Lock()
	copy(e.data, payload)
	e.mu.Unlock()
	return true
}
