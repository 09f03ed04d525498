package geom

import "testing"

import "github.com/stretchr/testify/require"

func rootBBox() BBox {
	return NewBBox(Point{0, 0}, Point{16, 16})
}

func TestBBoxContains(t *testing.T) {
	b := rootBBox()
	require.True(t, b.Contains(Point{0, 0}))
	require.True(t, b.Contains(Point{15.999, 15.999}))
	require.False(t, b.Contains(Point{16, 0}))
	require.False(t, b.Contains(Point{-1, 0}))
}

func TestRollerStepIndices(t *testing.T) {
	r := NewRoller(rootBBox())
	require.EqualValues(t, 0, r.Index())

	nw := r.GoNw()
	require.EqualValues(t, 1, nw.Index())
	ne := r.GoNe()
	require.EqualValues(t, 2, ne.Index())
	sw := r.GoSw()
	require.EqualValues(t, 3, sw.Index())
	se := r.GoSe()
	require.EqualValues(t, 4, se.Index())

	require.EqualValues(t, 1*4+1, nw.GoNw().Index())
	require.EqualValues(t, 1*4+4, nw.GoSe().Index())
}

func TestQuadrantBoundaryTiesGoHigh(t *testing.T) {
	r := NewRoller(rootBBox())
	// Center is (8,8). Exactly-on-center point goes ne (>= on both axes).
	require.Equal(t, Ne, r.Quadrant(Point{8, 8}))
	// On the y-center line but left of x-center: py>=cy so it's nw.
	require.Equal(t, Nw, r.Quadrant(Point{3, 8}))
	// On the x-center line but below y-center: se.
	require.Equal(t, Se, r.Quadrant(Point{8, 3}))
}

func TestDepth(t *testing.T) {
	require.EqualValues(t, 0, Depth(0))
	require.EqualValues(t, 1, Depth(1))
	require.EqualValues(t, 1, Depth(4))
	require.EqualValues(t, 2, Depth(5))
	require.EqualValues(t, 2, Depth(20))
	require.EqualValues(t, 3, Depth(21))
}

func TestCalcOffset(t *testing.T) {
	require.EqualValues(t, 0, CalcOffset(0, 2))
	require.EqualValues(t, 1, CalcOffset(1, 2))
	require.EqualValues(t, 5, CalcOffset(2, 2))
	require.EqualValues(t, 21, CalcOffset(3, 2))
}

func TestDescendMatchesE3Scenario(t *testing.T) {
	// E3: challenger (8.1,8.1) is closer to center than incumbent (1,1);
	// the loser (1,1) descends sw (index 3).
	r := NewRoller(rootBBox())
	next := r.Descend(Point{1, 1})
	require.Equal(t, Sw, r.Quadrant(Point{1, 1}))
	require.EqualValues(t, 3, next.Index())
}
