// Package geom provides the planar spatial primitives the index descends
// through: points, bounding boxes and the quadrant-stepping Roller cursor.
package geom

import "github.com/golang/geo/r2"

// Origin identifies the input file that contributed a point.
type Origin uint32

// InvalidOrigin is the sentinel returned when no origin could be allocated.
const InvalidOrigin Origin = 1<<32 - 1

// Point is an immutable 2D spatial key. It carries no payload; the
// payload bytes for a point live alongside it in an Entry or a PointInfo.
type Point struct {
	X, Y float64
}

// Vector returns the point as an r2.Point for use with geo/r2 helpers.
func (p Point) Vector() r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

// SquaredDistance returns the squared Euclidean distance between p and o.
// Squared distance is used everywhere in this package instead of the true
// distance since only relative ordering matters and it avoids a sqrt on
// every comparison, so the r2 vector is reduced to its squared magnitude
// by hand rather than through r2.Point.Norm.
func (p Point) SquaredDistance(o Point) float64 {
	diff := p.Vector().Sub(o.Vector())
	return diff.X*diff.X + diff.Y*diff.Y
}
