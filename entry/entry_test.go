package entry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.viam.com/pointindex/geom"
)

func TestClaimEmptyFirstWriterWins(t *testing.T) {
	e := New(make([]byte, 4))

	p1 := &geom.Point{X: 1, Y: 1}
	p2 := &geom.Point{X: 2, Y: 2}

	var wg sync.WaitGroup
	results := make([]bool, 2)
	wg.Add(2)
	go func() { defer wg.Done(); results[0] = e.ClaimEmpty(p1, []byte{1, 1, 1, 1}) }()
	go func() { defer wg.Done(); results[1] = e.ClaimEmpty(p2, []byte{2, 2, 2, 2}) }()
	wg.Wait()

	require.True(t, results[0] != results[1], "exactly one claim must win")
	require.NotNil(t, e.Point())

	e.Mutex().Lock()
	data := append([]byte(nil), e.Data()...)
	pt := *e.Point()
	e.Mutex().Unlock()

	if results[0] {
		require.Equal(t, *p1, pt)
		require.Equal(t, []byte{1, 1, 1, 1}, data)
	} else {
		require.Equal(t, *p2, pt)
		require.Equal(t, []byte{2, 2, 2, 2}, data)
	}
}

func TestTryAdoptCloserChallengerDisplacesIncumbent(t *testing.T) {
	e := New(make([]byte, 4))
	center := geom.Point{X: 0, Y: 0}

	far := PointInfo{Point: &geom.Point{X: 5, Y: 5}, Data: []byte{9, 9, 9, 9}}
	kept, displaced := e.TryAdopt(center, far)
	require.True(t, kept)
	require.Nil(t, displaced)

	near := PointInfo{Point: &geom.Point{X: 1, Y: 1}, Data: []byte{1, 2, 3, 4}}
	kept, displaced = e.TryAdopt(center, near)
	require.True(t, kept)
	require.NotNil(t, displaced)
	require.Equal(t, far.Point, displaced.Point)
	require.Equal(t, far.Data, displaced.Data)

	e.Mutex().Lock()
	defer e.Mutex().Unlock()
	require.Equal(t, near.Point, e.Point())
	require.Equal(t, near.Data, e.Data())
}

func TestTryAdoptFartherChallengerLosesAndRedescends(t *testing.T) {
	e := New(make([]byte, 4))
	center := geom.Point{X: 0, Y: 0}

	near := PointInfo{Point: &geom.Point{X: 1, Y: 1}, Data: []byte{1, 1, 1, 1}}
	kept, displaced := e.TryAdopt(center, near)
	require.True(t, kept)
	require.Nil(t, displaced)

	far := PointInfo{Point: &geom.Point{X: 5, Y: 5}, Data: []byte{2, 2, 2, 2}}
	kept, displaced = e.TryAdopt(center, far)
	require.False(t, kept)
	require.Equal(t, &far, displaced)

	e.Mutex().Lock()
	defer e.Mutex().Unlock()
	require.Equal(t, near.Point, e.Point())
}

func TestSetDataRepointsBuffer(t *testing.T) {
	e := New([]byte{1, 2, 3})
	buf := make([]byte, 3)
	e.Mutex().Lock()
	e.SetData(buf)
	e.Mutex().Unlock()
	require.Same(t, &buf[0], &e.Data()[0])
}
