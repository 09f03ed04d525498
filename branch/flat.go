package branch

import (
	"go.viam.com/pointindex/chunk"
	"go.viam.com/pointindex/clipper"
	"go.viam.com/pointindex/entry"
	"go.viam.com/pointindex/geom"
	"go.viam.com/pointindex/schema"
)

// Flat is the middle tier: exactly one on-disk Chunk, fully loaded when
// the branch is opened and rewritten wholesale at save (spec §4.3). It
// never pages chunks in or out, so like Base it never touches a clipper.
type Flat struct {
	chunk *chunk.Chunk
}

// NewFlat constructs an empty Flat branch spanning [startIndex, startIndex+numIndices).
func NewFlat(s *schema.Schema, startIndex, numIndices uint64, empty []byte) *Flat {
	return &Flat{chunk: chunk.NewEmpty(s, startIndex, numIndices, empty)}
}

// LoadFlat reconstructs a Flat branch from its single on-disk blob.
func LoadFlat(s *schema.Schema, startIndex, numIndices uint64, blob, empty []byte) (*Flat, error) {
	c, err := chunk.Decode(s, startIndex, numIndices, blob, empty)
	if err != nil {
		return nil, err
	}
	return &Flat{chunk: c}, nil
}

// AddPoint implements Branch.
func (f *Flat) AddPoint(info entry.PointInfo, roller geom.Roller, _ *clipper.Clipper) (*entry.PointInfo, error) {
	e := f.chunk.GetEntry(roller.Index())
	return adopt(e, roller.BBox().Center(), info), nil
}

// Encode returns the branch's chunk in its compressed on-disk form.
func (f *Flat) Encode() ([]byte, error) { return f.chunk.Encode() }

// PeekEntry returns the entry at index without running the insertion
// protocol, for the read-only walk finalize performs over the whole tree.
func (f *Flat) PeekEntry(index uint64) *entry.Entry { return f.chunk.GetEntry(index) }
