// Package chunk implements the contiguous-index-range storage unit: a
// sparse map that densifies one-way into a flat array once populated
// enough, backed by a single compressed blob on disk.
package chunk

import (
	"sync"
	"sync/atomic"

	"go.viam.com/pointindex/entry"
	"go.viam.com/pointindex/schema"
)

// Kind tags which representation a Chunk's data is currently in, mirroring
// the teacher's octree.NodeType closed uint8 enum.
type Kind uint8

// The two representations a chunk can be in. Sparse is the initial state;
// the transition to Contiguous is one-way (spec §3, §4.4).
const (
	Sparse Kind = iota
	Contiguous
)

// DensifyThreshold is the occupancy fraction of maxPoints at which a
// sparse chunk converts to dense. Fixed at build time; ~0.25 per the
// spec's open-question resolution (spec §9).
const DensifyThreshold = 0.25

// Chunk is a contiguous range of maxPoints node-index slots stored
// together. It starts Sparse and may convert once, in place, to
// Contiguous; the conversion is serialized by mu so no inserter ever
// observes a torn map-to-array transition.
type Chunk struct {
	schema    *schema.Schema
	id        uint64
	maxPoints uint64
	empty     []byte

	mu    sync.Mutex
	dense atomic.Bool

	sparse     *SparseData
	contiguous *ContiguousData
}

// NewEmpty constructs a chunk with no entries, in Sparse representation.
func NewEmpty(s *schema.Schema, id, maxPoints uint64, empty []byte) *Chunk {
	return &Chunk{
		schema:    s,
		id:        id,
		maxPoints: maxPoints,
		empty:     empty,
		sparse:    newSparseData(),
	}
}

// ID returns the chunk's id, which is also the node index of its first slot.
func (c *Chunk) ID() uint64 { return c.id }

// IsSparse reports whether the chunk is still in its sparse representation.
func (c *Chunk) IsSparse() bool { return !c.dense.Load() }

// NumPoints returns the number of occupied slots (sparse) or the fixed
// slot count maxPoints (dense, matching entwine's ContiguousChunkData
// which reports its full capacity regardless of true occupancy).
func (c *Chunk) NumPoints() int {
	if c.dense.Load() {
		return int(c.maxPoints)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sparse.size()
}

// GetEntry returns the Entry for rawIndex (an absolute node index within
// this chunk's range), creating it if the chunk is still sparse and
// converting to dense if occupancy just crossed DensifyThreshold.
//
// The whole sparse get-or-create-and-maybe-convert sequence runs under a
// single mutex (spec §4.4: "lock the chunk mutex ... release the mutex,
// return the (stable) entry pointer"), which both protects the map and
// guarantees no caller ever observes a half-converted chunk. Once dense,
// lookups need no lock at all - array slots never move again.
func (c *Chunk) GetEntry(rawIndex uint64) *entry.Entry {
	if c.dense.Load() {
		return c.contiguous.getEntry(c.normalize(rawIndex))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dense.Load() {
		return c.contiguous.getEntry(c.normalize(rawIndex))
	}

	local := c.normalize(rawIndex)
	e, count := c.sparse.getOrCreate(local, c.empty)

	if float64(count) >= float64(c.maxPoints)*DensifyThreshold {
		c.contiguous = newContiguousFromSparse(c.sparse, c.maxPoints, c.empty)
		c.dense.Store(true)
		c.sparse = nil
		return c.contiguous.getEntry(local)
	}

	return e
}

func (c *Chunk) normalize(rawIndex uint64) uint64 {
	return rawIndex - c.id
}
