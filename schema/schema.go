// Package schema describes the fixed-width binary layout of a point's
// payload, generalizing the teacher's pointcloud.Data/PointCloudMetaData
// split into an explicit, serializable field list.
package schema

import (
	"encoding/binary"
	"math"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"go.viam.com/pointindex/geom"
)

// DimInfo describes one fixed-width field within a point's payload record.
type DimInfo struct {
	Name string `json:"name"`
	// Offset is the byte offset of this field within the record.
	Offset uint32 `json:"offset"`
	// Size is the field's width in bytes.
	Size uint32 `json:"size"`
}

// OriginDim is the reserved dimension name identifying the source file
// that contributed a point (spec §3, §6).
const OriginDim = "Origin"

// OriginSize is the fixed width, in bytes, of the Origin field.
const OriginSize = 4

// Schema is the read-only, shared description of a point's payload
// layout. It is safe for concurrent use once constructed (spec §5).
type Schema struct {
	dims      []DimInfo
	pointSize uint32
	originIdx int
}

// New builds a Schema from an ordered dimension list, appending the
// reserved Origin field if the caller did not already include one -
// mirroring Builder's m_originId = m_schema->pdalLayout().findDim("Origin")
// in the original, which assumes Origin is always resolvable.
func New(dims []DimInfo) (*Schema, error) {
	if len(dims) == 0 {
		return nil, errors.New("schema: at least one dimension is required")
	}

	out := make([]DimInfo, len(dims))
	copy(out, dims)

	originIdx := -1
	var offset uint32
	for i := range out {
		out[i].Offset = offset
		if out[i].Size == 0 {
			return nil, errors.Errorf("schema: dimension %q has zero size", out[i].Name)
		}
		offset += out[i].Size
		if out[i].Name == OriginDim {
			originIdx = i
		}
	}

	if originIdx == -1 {
		out = append(out, DimInfo{Name: OriginDim, Offset: offset, Size: OriginSize})
		originIdx = len(out) - 1
		offset += OriginSize
	}

	return &Schema{dims: out, pointSize: offset, originIdx: originIdx}, nil
}

// PointSize returns the fixed byte width of one point's full record.
func (s *Schema) PointSize() uint32 { return s.pointSize }

// Dims returns the ordered dimension list.
func (s *Schema) Dims() []DimInfo {
	out := make([]DimInfo, len(s.dims))
	copy(out, s.dims)
	return out
}

// FindDim resolves a dimension by name, returning its DimInfo and whether
// it was found - mirroring pdal::Layout::findDim.
func (s *Schema) FindDim(name string) (DimInfo, bool) {
	for _, d := range s.dims {
		if d.Name == name {
			return d, true
		}
	}
	return DimInfo{}, false
}

// OriginOffset returns the byte offset of the reserved Origin field.
func (s *Schema) OriginOffset() uint32 {
	return s.dims[s.originIdx].Offset
}

// PointFromPayload reconstructs the point key a payload was indexed under,
// inverting the little-endian float64 write decoder/pcd.go's emit performs
// at the X and Y dimensions' offsets. Used on chunk decode to recover the
// point half of an entry, since only the payload is persisted (spec §4.4).
func (s *Schema) PointFromPayload(payload []byte) (geom.Point, error) {
	xDim, ok := s.FindDim("X")
	if !ok {
		return geom.Point{}, errors.New("schema: no X dimension to reconstruct point")
	}
	yDim, ok := s.FindDim("Y")
	if !ok {
		return geom.Point{}, errors.New("schema: no Y dimension to reconstruct point")
	}
	if int(xDim.Offset)+8 > len(payload) || int(yDim.Offset)+8 > len(payload) {
		return geom.Point{}, errors.New("schema: payload too short for X/Y dimensions")
	}

	x := math.Float64frombits(binary.LittleEndian.Uint64(payload[xDim.Offset:]))
	y := math.Float64frombits(binary.LittleEndian.Uint64(payload[yDim.Offset:]))
	return geom.Point{X: x, Y: y}, nil
}

type schemaJSON struct {
	Dims []DimInfo `json:"dims"`
}

// MarshalJSON encodes the schema's dimension list, matching the "schema"
// key of the persisted meta document (spec §6).
func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(schemaJSON{Dims: s.dims})
}

// UnmarshalJSON reconstructs a Schema from its persisted form.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var j schemaJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	rebuilt, err := New(j.Dims)
	if err != nil {
		return err
	}
	*s = *rebuilt
	return nil
}
