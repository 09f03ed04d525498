package chunk

import (
	"testing"

	"github.com/stretchr/testify/require"

	"go.viam.com/pointindex/geom"
	"go.viam.com/pointindex/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.DimInfo{
		{Name: "X", Size: 8},
		{Name: "Y", Size: 8},
	})
	require.NoError(t, err)
	return s
}

// TestDensifyOnThreshold reproduces the maxPoints=16, threshold=0.25
// scenario: inserting a 4th distinct local index must flip the chunk to
// Contiguous, and every previously-written payload must survive the
// conversion intact.
func TestDensifyOnThreshold(t *testing.T) {
	s := testSchema(t)
	pointSize := int(s.PointSize())
	empty := make([]byte, pointSize)

	c := NewEmpty(s, 0, 16, empty)

	payloadFor := func(tag byte) []byte {
		p := make([]byte, pointSize)
		p[0] = tag
		return p
	}

	payloads := map[uint64][]byte{
		0: payloadFor(1),
		3: payloadFor(3),
		7: payloadFor(7),
	}

	for local, payload := range payloads {
		e := c.GetEntry(local)
		require.True(t, c.IsSparse())
		p := &geom.Point{X: float64(local)}
		require.True(t, e.ClaimEmpty(p, payload))
	}
	require.True(t, c.IsSparse())

	last := &geom.Point{X: 9}
	lastPayload := payloadFor(9)
	e := c.GetEntry(9)
	require.True(t, e.ClaimEmpty(last, lastPayload))

	require.False(t, c.IsSparse())
	require.Equal(t, 16, c.NumPoints())

	for local, payload := range payloads {
		got := c.GetEntry(local)
		got.Mutex().Lock()
		require.Equal(t, payload, got.Data())
		require.Equal(t, float64(local), got.Point().X)
		got.Mutex().Unlock()
	}

	got9 := c.GetEntry(9)
	got9.Mutex().Lock()
	require.Equal(t, lastPayload, got9.Data())
	got9.Mutex().Unlock()
}

func TestGetEntryStableAcrossDensification(t *testing.T) {
	s := testSchema(t)
	empty := make([]byte, s.PointSize())
	c := NewEmpty(s, 100, 16, empty)

	e1 := c.GetEntry(103)
	require.True(t, e1.ClaimEmpty(&geom.Point{X: 3}, empty))

	for i := uint64(0); i < 3; i++ {
		e := c.GetEntry(100 + i)
		e.ClaimEmpty(&geom.Point{X: float64(i)}, empty)
	}
	require.False(t, c.IsSparse())

	e1After := c.GetEntry(103)
	e1After.Mutex().Lock()
	defer e1After.Mutex().Unlock()
	require.Equal(t, float64(3), e1After.Point().X)
}

func TestEncodeDecodeSparseRoundTrip(t *testing.T) {
	s := testSchema(t)
	empty := make([]byte, s.PointSize())
	c := NewEmpty(s, 0, 64, empty)

	payload := make([]byte, s.PointSize())
	payload[0] = 5
	payload[8] = 6
	e := c.GetEntry(2)
	require.True(t, e.ClaimEmpty(&geom.Point{X: 2, Y: 3}, payload))
	require.True(t, c.IsSparse())

	blob, err := c.Encode()
	require.NoError(t, err)

	decoded, err := Decode(s, 0, 64, blob, empty)
	require.NoError(t, err)
	require.True(t, decoded.IsSparse())

	got := decoded.GetEntry(2)
	got.Mutex().Lock()
	defer got.Mutex().Unlock()
	require.Equal(t, payload, got.Data())
	require.NotNil(t, got.Point())

	want, err := s.PointFromPayload(payload)
	require.NoError(t, err)
	require.Equal(t, want, *got.Point())
}

func TestEncodeDecodeDenseRoundTrip(t *testing.T) {
	s := testSchema(t)
	empty := make([]byte, s.PointSize())
	c := NewEmpty(s, 0, 4, empty)

	for local := uint64(0); local < 4; local++ {
		e := c.GetEntry(local)
		payload := make([]byte, s.PointSize())
		payload[0] = byte(local + 1)
		e.ClaimEmpty(&geom.Point{X: float64(local)}, payload)
	}
	require.False(t, c.IsSparse())

	blob, err := c.Encode()
	require.NoError(t, err)

	decoded, err := Decode(s, 0, 4, blob, empty)
	require.NoError(t, err)
	require.False(t, decoded.IsSparse())

	for local := uint64(0); local < 4; local++ {
		got := decoded.GetEntry(local)
		got.Mutex().Lock()
		require.Equal(t, byte(local+1), got.Data()[0])
		require.NotNil(t, got.Point())
		want, err := s.PointFromPayload(got.Data())
		require.NoError(t, err)
		require.Equal(t, want, *got.Point())
		got.Mutex().Unlock()
	}
}

// TestEncodeDecodeDenseRoundTripPreservesOccupancy verifies an unoccupied
// slot in a dense chunk stays unoccupied across a round trip, even though
// its template bytes are byte-for-byte identical to any other empty slot.
func TestEncodeDecodeDenseRoundTripPreservesOccupancy(t *testing.T) {
	s := testSchema(t)
	empty := make([]byte, s.PointSize())
	c := NewEmpty(s, 0, 4, empty)

	for local := uint64(0); local < 3; local++ {
		e := c.GetEntry(local)
		payload := make([]byte, s.PointSize())
		payload[0] = byte(local + 1)
		e.ClaimEmpty(&geom.Point{X: float64(local)}, payload)
	}
	require.False(t, c.IsSparse())

	blob, err := c.Encode()
	require.NoError(t, err)

	decoded, err := Decode(s, 0, 4, blob, empty)
	require.NoError(t, err)

	untouched := decoded.GetEntry(3)
	require.Nil(t, untouched.Point())
}
