package branch

import (
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"

	"go.viam.com/pointindex/chunk"
	"go.viam.com/pointindex/clipper"
	"go.viam.com/pointindex/entry"
	"go.viam.com/pointindex/geom"
	"go.viam.com/pointindex/schema"
)

// ChunkStore is the storage collaborator a Disk branch pages chunks
// through - a narrowed view of the source collaborator (spec §6) scoped
// to exactly what chunk residency needs.
type ChunkStore interface {
	// FetchChunk returns the compressed blob for id, and false if no such
	// blob exists yet (a brand new chunk).
	FetchChunk(id uint64) (data []byte, found bool, err error)
	PutChunk(id uint64, data []byte) error
}

type diskChunkEntry struct {
	chunk    *chunk.Chunk
	refCount int
}

// Disk is the deepest tier: indices are grouped into chunkPoints-sized
// chunks, fetched from a ChunkStore on first touch and kept resident only
// while at least one live Clipper has registered interest (spec §4.3,
// §4.5). Access to the resident map is serialized by mu, matching the
// "access to the chunk map is serialized by a mutex" requirement.
type Disk struct {
	schema     *schema.Schema
	startIndex uint64
	chunkSize  uint64
	empty      []byte
	store      ChunkStore

	mu     sync.Mutex
	chunks map[uint64]*diskChunkEntry
	fetch  singleflight.Group
}

// NewDisk constructs a Disk branch spanning [startIndex, +inf), grouped
// into chunks of chunkSize indices each, backed by store.
func NewDisk(s *schema.Schema, startIndex, chunkSize uint64, empty []byte, store ChunkStore) *Disk {
	return &Disk{
		schema:     s,
		startIndex: startIndex,
		chunkSize:  chunkSize,
		empty:      empty,
		store:      store,
		chunks:     make(map[uint64]*diskChunkEntry),
	}
}

// chunkID computes the owning chunk id for index (spec §4.3): "chunkId =
// offset + ((index - offset) / maxPoints) * maxPoints".
func (d *Disk) chunkID(index uint64) uint64 {
	return d.startIndex + ((index-d.startIndex)/d.chunkSize)*d.chunkSize
}

// getOrFetch returns the resident chunk entry for id, fetching it from
// store on first touch. Concurrent first-touches of the same id are
// collapsed onto a single store round trip via singleflight, rather than
// letting every caller race to fetch and discarding the losers' work.
func (d *Disk) getOrFetch(id uint64) (*diskChunkEntry, error) {
	d.mu.Lock()
	if ce, ok := d.chunks[id]; ok {
		d.mu.Unlock()
		return ce, nil
	}
	d.mu.Unlock()

	v, err, _ := d.fetch.Do(strconv.FormatUint(id, 10), func() (interface{}, error) {
		d.mu.Lock()
		if ce, ok := d.chunks[id]; ok {
			d.mu.Unlock()
			return ce, nil
		}
		d.mu.Unlock()

		blob, found, err := d.store.FetchChunk(id)
		if err != nil {
			return nil, err
		}

		var c *chunk.Chunk
		if found {
			c, err = chunk.Decode(d.schema, id, d.chunkSize, blob, d.empty)
			if err != nil {
				return nil, err
			}
		} else {
			c = chunk.NewEmpty(d.schema, id, d.chunkSize, d.empty)
		}

		ce := &diskChunkEntry{chunk: c}
		d.mu.Lock()
		d.chunks[id] = ce
		d.mu.Unlock()
		return ce, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*diskChunkEntry), nil
}

// AddPoint implements Branch. It fetches (or creates) the owning chunk,
// registers the chunk id with clip, and runs the shared contention
// protocol against the resolved Entry.
func (d *Disk) AddPoint(info entry.PointInfo, roller geom.Roller, clip *clipper.Clipper) (*entry.PointInfo, error) {
	id := d.chunkID(roller.Index())

	ce, err := d.getOrFetch(id)
	if err != nil {
		return nil, err
	}

	if clip != nil && clip.Clip(id) {
		d.mu.Lock()
		ce.refCount++
		d.mu.Unlock()
	}

	e := ce.chunk.GetEntry(roller.Index())
	return adopt(e, roller.BBox().Center(), info), nil
}

// Clip implements clipper.Releaser's per-branch half: it is called by the
// registry when a clipper releases interest in one of this branch's
// chunk ids. Once a chunk's reference count reaches zero it is
// compressed, written back through the store, and dropped from the
// resident map (spec §4.5's residency invariant).
func (d *Disk) Clip(chunkID uint64) error {
	d.mu.Lock()
	ce, ok := d.chunks[chunkID]
	if !ok {
		d.mu.Unlock()
		return nil
	}
	ce.refCount--
	evict := ce.refCount <= 0
	if evict {
		delete(d.chunks, chunkID)
	}
	d.mu.Unlock()

	if !evict {
		return nil
	}
	blob, err := ce.chunk.Encode()
	if err != nil {
		return err
	}
	return d.store.PutChunk(chunkID, blob)
}

// PeekEntry returns the entry at index without running the insertion
// protocol, fetching the owning chunk if it is not already resident. Used
// by finalize's read-only walk over the whole tree; it deliberately does
// not register with a clipper, since finalize runs after every ingest
// worker has already completed. A chunk fetched this way sits at
// refCount 0 and is never evicted by Clip, since no clipper ever claims
// it - harmless for finalize's one-shot terminal walk, but this must not
// be called mid-build, where it would pin chunks resident forever.
func (d *Disk) PeekEntry(index uint64) (*entry.Entry, error) {
	id := d.chunkID(index)
	ce, err := d.getOrFetch(id)
	if err != nil {
		return nil, err
	}
	return ce.chunk.GetEntry(index), nil
}

// SaveAll flushes every currently resident chunk to the store regardless
// of reference count, run under the global save barrier (spec §4.6). A
// single chunk's encode or write failure does not stop the others from
// being attempted; every failure is combined into the returned error so a
// storage hiccup on one chunk never masks the rest.
func (d *Disk) SaveAll() error {
	d.mu.Lock()
	snapshot := make(map[uint64]*chunk.Chunk, len(d.chunks))
	for id, ce := range d.chunks {
		snapshot[id] = ce.chunk
	}
	d.mu.Unlock()

	var errs error
	for id, c := range snapshot {
		blob, err := c.Encode()
		if err != nil {
			errs = multierr.Combine(errs, errors.Wrapf(err, "branch: encode chunk %d", id))
			continue
		}
		if err := d.store.PutChunk(id, blob); err != nil {
			errs = multierr.Combine(errs, errors.Wrapf(err, "branch: write chunk %d", id))
		}
	}
	return errs
}
