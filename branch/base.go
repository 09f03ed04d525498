package branch

import (
	"go.viam.com/pointindex/chunk"
	"go.viam.com/pointindex/clipper"
	"go.viam.com/pointindex/entry"
	"go.viam.com/pointindex/geom"
	"go.viam.com/pointindex/schema"
)

// Base is the shallowest tier: one in-memory Chunk covering the branch's
// full index range, never touching a clipper (spec §4.3).
type Base struct {
	chunk *chunk.Chunk
}

// NewBase constructs an empty Base branch spanning [startIndex, startIndex+numIndices).
func NewBase(s *schema.Schema, startIndex, numIndices uint64, empty []byte) *Base {
	return &Base{chunk: chunk.NewEmpty(s, startIndex, numIndices, empty)}
}

// AddPoint implements Branch.
func (b *Base) AddPoint(info entry.PointInfo, roller geom.Roller, _ *clipper.Clipper) (*entry.PointInfo, error) {
	e := b.chunk.GetEntry(roller.Index())
	return adopt(e, roller.BBox().Center(), info), nil
}

// Encode returns the branch's single chunk in its compressed on-disk form,
// for embedding in the registry's persisted state.
func (b *Base) Encode() ([]byte, error) { return b.chunk.Encode() }

// PeekEntry returns the entry at index without running the insertion
// protocol, for the read-only walk finalize performs over the whole tree.
func (b *Base) PeekEntry(index uint64) *entry.Entry { return b.chunk.GetEntry(index) }

// LoadBase reconstructs a Base branch from bytes produced by Encode.
func LoadBase(s *schema.Schema, startIndex, numIndices uint64, blob, empty []byte) (*Base, error) {
	c, err := chunk.Decode(s, startIndex, numIndices, blob, empty)
	if err != nil {
		return nil, err
	}
	return &Base{chunk: c}, nil
}
