// Package registry implements the top-level index dispatcher: it owns the
// three storage tiers (spec §4.2) and walks a point through them,
// descending with whichever point loses each contention round until one
// comes to rest or the tree is exhausted.
package registry

import (
	"encoding/base64"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"go.viam.com/pointindex/branch"
	"go.viam.com/pointindex/clipper"
	"go.viam.com/pointindex/entry"
	"go.viam.com/pointindex/geom"
	"go.viam.com/pointindex/schema"
)

// dims is fixed at 2 throughout this engine (spec's 3D extension is an
// explicitly open question, spec §9).
const dims = 2

// Registry routes addPoint calls to the correct branch by node index and
// serializes each branch's state under its own keyed subtree.
type Registry struct {
	schema *schema.Schema
	logger *zap.SugaredLogger

	baseDepth, flatDepth, diskDepth uint64
	chunkPoints                     uint64

	baseEnd uint64
	flatEnd uint64
	diskEnd uint64

	base *branch.Base
	flat *branch.Flat
	disk *branch.Disk
}

// New constructs a fresh, empty Registry. baseDepth, flatDepth and
// diskDepth carve the complete-tree index space into three ranges via
// geom.CalcOffset; chunkPoints sizes the uniform grouping the Disk branch
// pages chunks in at.
func New(
	s *schema.Schema,
	baseDepth, flatDepth, diskDepth, chunkPoints uint64,
	empty []byte,
	store branch.ChunkStore,
	logger *zap.SugaredLogger,
) *Registry {
	baseEnd := geom.CalcOffset(baseDepth, dims)
	flatEnd := geom.CalcOffset(flatDepth, dims)
	diskEnd := geom.CalcOffset(diskDepth, dims)

	return &Registry{
		schema:      s,
		logger:      logger,
		baseDepth:   baseDepth,
		flatDepth:   flatDepth,
		diskDepth:   diskDepth,
		chunkPoints: chunkPoints,
		baseEnd:     baseEnd,
		flatEnd:     flatEnd,
		diskEnd:     diskEnd,
		base:        branch.NewBase(s, 0, baseEnd, empty),
		flat:        branch.NewFlat(s, baseEnd, flatEnd-baseEnd, empty),
		disk:        branch.NewDisk(s, flatEnd, chunkPoints, empty, store),
	}
}

// AddPoint walks info down the tree from roller's current position,
// descending one quadrant at a time with whichever point a branch hands
// back as displaced, until a point comes to rest (returns true) or the
// walk reaches diskEnd, the first index past the addressable range
// (returns false; spec §4.2, §8 E4).
func (r *Registry) AddPoint(info entry.PointInfo, roller geom.Roller, clip *clipper.Clipper) (bool, error) {
	cur := roller
	for {
		idx := cur.Index()
		if idx >= r.diskEnd {
			return false, nil
		}

		var b branch.Branch
		switch {
		case idx < r.baseEnd:
			b = r.base
		case idx < r.flatEnd:
			b = r.flat
		default:
			b = r.disk
		}

		loser, err := b.AddPoint(info, cur, clip)
		if err != nil {
			return false, errors.Wrapf(err, "registry: addPoint at index %d", idx)
		}
		if loser == nil {
			return true, nil
		}

		info = *loser
		cur = cur.Descend(*info.Point)
	}
}

// MaxIndex returns diskEnd, the first node index past the addressable
// range - the upper bound finalize's output walk stops at.
func (r *Registry) MaxIndex() uint64 { return r.diskEnd }

// Get returns the entry currently resident at index, without running the
// insertion protocol - the read-only counterpart to AddPoint that
// finalize uses to walk the whole tree once ingestion is done.
func (r *Registry) Get(index uint64) (*entry.Entry, error) {
	switch {
	case index < r.baseEnd:
		return r.base.PeekEntry(index), nil
	case index < r.flatEnd:
		return r.flat.PeekEntry(index), nil
	default:
		return r.disk.PeekEntry(index)
	}
}

// Clip implements clipper.Releaser, forwarding a released chunk id to the
// disk branch (the only tier that pages chunks and therefore the only
// one clippers ever register ids with). A write-back failure here is
// logged rather than propagated: it surfaces during an ingest task's
// cleanup, well after the task itself has reported success or failure.
func (r *Registry) Clip(clipperID uint64, chunkID uint64) {
	if err := r.disk.Clip(chunkID); err != nil {
		r.logger.Errorw("failed to write back released chunk", "clipperID", clipperID, "chunkID", chunkID, "error", err)
	}
}

type stateJSON struct {
	Base string `json:"base"`
	Flat string `json:"flat"`
}

// Save serializes the base and flat branches (always fully resident) and
// flushes every currently resident disk chunk back through its store,
// returning the JSON subtree that belongs under the "registry" key of the
// persisted meta document (spec §6).
func (r *Registry) Save() ([]byte, error) {
	baseBlob, err := r.base.Encode()
	if err != nil {
		return nil, errors.Wrap(err, "registry: encode base branch")
	}
	flatBlob, err := r.flat.Encode()
	if err != nil {
		return nil, errors.Wrap(err, "registry: encode flat branch")
	}
	if err := r.disk.SaveAll(); err != nil {
		return nil, errors.Wrap(err, "registry: flush disk branch")
	}

	state := stateJSON{
		Base: base64.StdEncoding.EncodeToString(baseBlob),
		Flat: base64.StdEncoding.EncodeToString(flatBlob),
	}
	return json.Marshal(state)
}

// Load reconstructs a Registry from bytes produced by Save. The disk
// branch's chunks are not eagerly loaded; they page in from store on
// first touch exactly as during a fresh build.
func Load(
	s *schema.Schema,
	baseDepth, flatDepth, diskDepth, chunkPoints uint64,
	empty []byte,
	store branch.ChunkStore,
	logger *zap.SugaredLogger,
	data []byte,
) (*Registry, error) {
	var state stateJSON
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.Wrap(err, "registry: unmarshal state")
	}

	baseBlob, err := base64.StdEncoding.DecodeString(state.Base)
	if err != nil {
		return nil, errors.Wrap(err, "registry: decode base blob")
	}
	flatBlob, err := base64.StdEncoding.DecodeString(state.Flat)
	if err != nil {
		return nil, errors.Wrap(err, "registry: decode flat blob")
	}

	baseEnd := geom.CalcOffset(baseDepth, dims)
	flatEnd := geom.CalcOffset(flatDepth, dims)
	diskEnd := geom.CalcOffset(diskDepth, dims)

	baseBranch, err := branch.LoadBase(s, 0, baseEnd, baseBlob, empty)
	if err != nil {
		return nil, errors.Wrap(err, "registry: load base branch")
	}
	flatBranch, err := branch.LoadFlat(s, baseEnd, flatEnd-baseEnd, flatBlob, empty)
	if err != nil {
		return nil, errors.Wrap(err, "registry: load flat branch")
	}

	return &Registry{
		schema:      s,
		logger:      logger,
		baseDepth:   baseDepth,
		flatDepth:   flatDepth,
		diskDepth:   diskDepth,
		chunkPoints: chunkPoints,
		baseEnd:     baseEnd,
		flatEnd:     flatEnd,
		diskEnd:     diskEnd,
		base:        baseBranch,
		flat:        flatBranch,
		disk:        branch.NewDisk(s, flatEnd, chunkPoints, empty, store),
	}, nil
}
