package chunk

import (
	"encoding/binary"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"go.viam.com/pointindex/entry"
	"go.viam.com/pointindex/schema"
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// compress and decompress wrap the single lossless codec chunks use
// uniformly for their on-disk form (spec §4.4). One-shot EncodeAll/
// DecodeAll are safe for concurrent use per klauspost/compress's docs, so
// a single package-level encoder/decoder pair is shared across chunks.
func compress(data []byte) []byte {
	return zstdEncoder.EncodeAll(data, nil)
}

func decompress(data []byte) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, errors.Wrap(err, "chunk: decompression failed")
	}
	return out, nil
}

// Encode serializes the chunk to its compressed on-disk form: a leading
// type-tag byte followed by the sparse or dense body (spec §4.4), then
// compressed uniformly.
func (c *Chunk) Encode() ([]byte, error) {
	body, err := c.encodeBody()
	if err != nil {
		return nil, err
	}
	return compress(body), nil
}

// EncodeRaw returns the same tag+body layout Encode does, without the
// compression pass - used when a finalized artifact opts out of
// compression (spec §4.6's finalize(..., compress) toggle).
func (c *Chunk) EncodeRaw() ([]byte, error) {
	return c.encodeBody()
}

func (c *Chunk) encodeBody() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dense.Load() {
		return append([]byte{byte(Contiguous)}, encodeContiguous(int(c.schema.PointSize()), c.contiguous)...), nil
	}
	return append([]byte{byte(Sparse)}, encodeSparse(c.schema, c.sparse)...), nil
}

func encodeSparse(s *schema.Schema, sparse *SparseData) []byte {
	pointSize := int(s.PointSize())
	out := make([]byte, 0, len(sparse.entries)*(8+pointSize)+8)

	var idxBuf [8]byte
	for local, e := range sparse.entries {
		binary.LittleEndian.PutUint64(idxBuf[:], local)
		out = append(out, idxBuf[:]...)

		e.Mutex().Lock()
		out = append(out, e.Data()...)
		e.Mutex().Unlock()
	}

	var countBuf [8]byte
	binary.LittleEndian.PutUint64(countBuf[:], uint64(len(sparse.entries)))
	out = append(out, countBuf[:]...)
	return out
}

// encodeContiguous serializes a dense chunk's entries as one
// occupied-flag-plus-payload record per slot. The flag is required because
// an unoccupied slot's bytes are indistinguishable from the empty template
// otherwise, and a real point could legitimately land on the template's
// coordinates.
func encodeContiguous(pointSize int, dense *ContiguousData) []byte {
	recordSize := 1 + pointSize
	out := make([]byte, 0, len(dense.entries)*recordSize)

	for _, e := range dense.entries {
		e.Mutex().Lock()
		occupied := e.Point() != nil
		data := e.Data()
		if occupied {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
		out = append(out, data...)
		e.Mutex().Unlock()
	}
	return out
}

// Decode reconstructs a Chunk from its compressed on-disk form, produced
// by Encode.
func Decode(s *schema.Schema, id, maxPoints uint64, compressed []byte, empty []byte) (*Chunk, error) {
	raw, err := decompress(compressed)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("chunk: empty decompressed body")
	}

	kind := Kind(raw[0])
	body := raw[1:]

	c := &Chunk{schema: s, id: id, maxPoints: maxPoints, empty: empty}

	switch kind {
	case Sparse:
		sparse, err := decodeSparse(s, body)
		if err != nil {
			return nil, err
		}
		c.sparse = sparse
	case Contiguous:
		dense, err := decodeContiguous(s, maxPoints, len(empty), body)
		if err != nil {
			return nil, err
		}
		c.contiguous = dense
		c.dense.Store(true)
	default:
		return nil, errors.Errorf("chunk: unknown chunk type tag %d", kind)
	}

	return c, nil
}

func decodeSparse(s *schema.Schema, body []byte) (*SparseData, error) {
	if len(body) < 8 {
		return nil, errors.New("chunk: sparse body too short for trailer")
	}
	trailer := body[len(body)-8:]
	numPoints := binary.LittleEndian.Uint64(trailer)
	body = body[:len(body)-8]

	pointSize := int(s.PointSize())
	recordSize := 8 + pointSize
	if uint64(len(body)) != numPoints*uint64(recordSize) {
		return nil, errors.Errorf(
			"chunk: sparse body length %d does not match numPoints %d * recordSize %d",
			len(body), numPoints, recordSize)
	}

	sparse := newSparseData()
	for i := uint64(0); i < numPoints; i++ {
		rec := body[i*uint64(recordSize) : (i+1)*uint64(recordSize)]
		local := binary.LittleEndian.Uint64(rec[:8])
		payload := make([]byte, pointSize)
		copy(payload, rec[8:])

		p, err := s.PointFromPayload(payload)
		if err != nil {
			return nil, errors.Wrapf(err, "chunk: reconstruct point for local index %d", local)
		}
		sparse.entries[local] = entry.NewWithPoint(&p, payload)
	}
	return sparse, nil
}

// decodeContiguous is the inverse of encodeContiguous: it reads back each
// slot's occupied flag and, when set, reconstructs the entry's point from
// its payload via the schema (spec §4.4's dense representation).
func decodeContiguous(s *schema.Schema, maxPoints uint64, pointSize int, body []byte) (*ContiguousData, error) {
	recordSize := 1 + pointSize
	want := int(maxPoints) * recordSize
	if len(body) != want {
		return nil, errors.Errorf("chunk: dense body length %d, want %d", len(body), want)
	}

	backing := make([]byte, int(maxPoints)*pointSize)
	entries := make([]*entry.Entry, maxPoints)
	for local := uint64(0); local < maxPoints; local++ {
		rec := body[int(local)*recordSize : int(local+1)*recordSize]
		occupied := rec[0] != 0
		slot := backing[int(local)*pointSize : int(local+1)*pointSize]
		copy(slot, rec[1:])

		if !occupied {
			entries[local] = entry.New(slot)
			continue
		}
		p, err := s.PointFromPayload(slot)
		if err != nil {
			return nil, errors.Wrapf(err, "chunk: reconstruct point for local index %d", local)
		}
		entries[local] = entry.NewWithPoint(&p, slot)
	}
	return &ContiguousData{entries: entries, backing: backing}, nil
}
