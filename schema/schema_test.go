package schema

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"go.viam.com/pointindex/geom"
)

func TestNewAppendsOrigin(t *testing.T) {
	s, err := New([]DimInfo{{Name: "X", Size: 8}, {Name: "Y", Size: 8}})
	require.NoError(t, err)
	require.EqualValues(t, 20, s.PointSize())

	d, ok := s.FindDim(OriginDim)
	require.True(t, ok)
	require.EqualValues(t, 16, d.Offset)
	require.EqualValues(t, OriginSize, d.Size)
	require.EqualValues(t, 16, s.OriginOffset())
}

func TestNewRejectsZeroSizeDim(t *testing.T) {
	_, err := New([]DimInfo{{Name: "X", Size: 0}})
	require.Error(t, err)
}

func TestPointFromPayloadInvertsEncoding(t *testing.T) {
	s, err := New([]DimInfo{{Name: "X", Size: 8}, {Name: "Y", Size: 8}})
	require.NoError(t, err)

	xDim, _ := s.FindDim("X")
	yDim, _ := s.FindDim("Y")

	payload := make([]byte, s.PointSize())
	binary.LittleEndian.PutUint64(payload[xDim.Offset:], math.Float64bits(1.5))
	binary.LittleEndian.PutUint64(payload[yDim.Offset:], math.Float64bits(-2.25))

	p, err := s.PointFromPayload(payload)
	require.NoError(t, err)
	require.Equal(t, geom.Point{X: 1.5, Y: -2.25}, p)
}

func TestPointFromPayloadRejectsTooShortPayload(t *testing.T) {
	s, err := New([]DimInfo{{Name: "X", Size: 8}, {Name: "Y", Size: 8}})
	require.NoError(t, err)

	_, err = s.PointFromPayload(make([]byte, 4))
	require.Error(t, err)
}

func TestSchemaRoundTripJSON(t *testing.T) {
	s, err := New([]DimInfo{{Name: "X", Size: 8}, {Name: "Y", Size: 8}, {Name: "Intensity", Size: 2}})
	require.NoError(t, err)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var got Schema
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, s.PointSize(), got.PointSize())
	require.Equal(t, s.Dims(), got.Dims())
}
