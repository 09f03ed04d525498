package builder

import (
	"strconv"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"go.viam.com/pointindex/chunk"
	"go.viam.com/pointindex/geom"
	"go.viam.com/pointindex/schema"
	"go.viam.com/pointindex/source"
)

const (
	finalizeMetaKey = "entwine.json"
	finalizeIDsKey  = "ids.json"
	baseChunkKey    = "0"
)

// finalizeMetaJSON is the terminal, portable artifact finalize produces -
// distinct from metaJSON, which is this engine's own resumable build
// state. It carries only what a downstream reader needs to walk the
// output chunks.
type finalizeMetaJSON struct {
	NumPoints   int64          `json:"numPoints"`
	NumIds      int            `json:"numIds"`
	FirstChunk  uint64         `json:"firstChunk"`
	ChunkPoints uint64         `json:"chunkPoints"`
	BBox        geom.BBox      `json:"bbox"`
	Schema      *schema.Schema `json:"schema"`
}

// Finalize partitions the addressable index range into a single base
// chunk covering [0, calcOffset(base, 2)) and a run of chunkPoints-sized
// output chunks beyond it, writing one blob per non-empty output chunk to
// outPath along with an ids listing and a metadata document (spec §4.6).
// base is independent of the registry's own baseDepth/flatDepth/diskDepth
// tiering: it defines only the output layout, not how the live tree was
// stored while building. The base chunk is always written, even if empty,
// so a downstream reader can rely on chunk "0" existing unconditionally;
// ids lists only the deeper regrouped chunks that turned out non-empty.
func (b *Builder) Finalize(outPath string, chunkPoints uint64, base uint64, compress bool) error {
	out, err := source.New(outPath)
	if err != nil {
		return errors.Wrap(err, "builder: open output source")
	}

	maxIndex := b.registry.MaxIndex()
	baseEnd := geom.CalcOffset(base, 2)
	if baseEnd > maxIndex {
		baseEnd = maxIndex
	}

	empty := make([]byte, b.schema.PointSize())

	baseChunk := chunk.NewEmpty(b.schema, 0, baseEnd, empty)
	if _, err := b.fillChunk(baseChunk, 0, baseEnd); err != nil {
		return err
	}
	if err := b.writeChunk(out, baseChunkKey, baseChunk, compress); err != nil {
		return err
	}

	var ids []uint64
	for start := baseEnd; start < maxIndex; start += chunkPoints {
		end := start + chunkPoints
		if end > maxIndex {
			end = maxIndex
		}

		c := chunk.NewEmpty(b.schema, start, end-start, empty)
		occupied, err := b.fillChunk(c, start, end)
		if err != nil {
			return err
		}
		if !occupied {
			continue
		}
		if err := b.writeChunk(out, strconv.FormatUint(start, 10), c, compress); err != nil {
			return err
		}
		ids = append(ids, start)
	}

	idsBlob, err := json.Marshal(ids)
	if err != nil {
		return errors.Wrap(err, "builder: marshal ids")
	}
	if err := out.Put(finalizeIDsKey, idsBlob); err != nil {
		return errors.Wrap(err, "builder: write ids")
	}

	meta := finalizeMetaJSON{
		NumPoints:   b.NumPoints(),
		NumIds:      len(ids),
		FirstChunk:  baseEnd,
		ChunkPoints: chunkPoints,
		BBox:        b.cfg.BBox,
		Schema:      b.schema,
	}
	metaBlob, err := json.Marshal(meta)
	if err != nil {
		return errors.Wrap(err, "builder: marshal finalize metadata")
	}
	return out.Put(finalizeMetaKey, metaBlob)
}

// fillChunk copies every occupied entry in [start, end) from the live
// registry into c, reporting whether it found any.
func (b *Builder) fillChunk(c *chunk.Chunk, start, end uint64) (bool, error) {
	occupied := false
	for idx := start; idx < end; idx++ {
		e, err := b.registry.Get(idx)
		if err != nil {
			return false, errors.Wrapf(err, "builder: read entry %d", idx)
		}
		p := e.Point()
		if p == nil {
			continue
		}
		occupied = true

		e.Mutex().Lock()
		data := append([]byte(nil), e.Data()...)
		e.Mutex().Unlock()

		c.GetEntry(idx).ClaimEmpty(p, data)
	}
	return occupied, nil
}

func (b *Builder) writeChunk(out source.Source, key string, c *chunk.Chunk, compress bool) error {
	var blob []byte
	var err error
	if compress {
		blob, err = c.Encode()
	} else {
		blob, err = c.EncodeRaw()
	}
	if err != nil {
		return errors.Wrapf(err, "builder: encode chunk %s", key)
	}
	return out.Put(key, blob)
}
