package geom

import (
	"github.com/goccy/go-json"
)

// BBox is an axis-aligned planar bounding box. The root BBox covers the
// entire dataset; every node's BBox is a quadrant of its parent's.
type BBox struct {
	Min, Max Point
}

// NewBBox builds a BBox from its corners, normalizing min/max order.
func NewBBox(min, max Point) BBox {
	if min.X > max.X {
		min.X, max.X = max.X, min.X
	}
	if min.Y > max.Y {
		min.Y, max.Y = max.Y, min.Y
	}
	return BBox{Min: min, Max: max}
}

// Contains reports whether p falls within the box, inclusive of the min
// edges and exclusive of the max edges - matching the half-open quadrant
// convention used by Roller's quadrant assignment.
func (b BBox) Contains(p Point) bool {
	return p.X >= b.Min.X && p.X < b.Max.X && p.Y >= b.Min.Y && p.Y < b.Max.Y
}

// Center returns the midpoint of the box, used both as the quadrant split
// point and as the reference point for center-distance tie-breaking.
func (b BBox) Center() Point {
	mid := b.Min.Vector().Add(b.Max.Vector()).Mul(0.5)
	return Point{X: mid.X, Y: mid.Y}
}

type bboxJSON struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// MarshalJSON encodes the box as a flat min/max object, matching the shape
// of the "bbox" key in the persisted meta document (spec §6).
func (b BBox) MarshalJSON() ([]byte, error) {
	return json.Marshal(bboxJSON{
		MinX: b.Min.X, MinY: b.Min.Y,
		MaxX: b.Max.X, MaxY: b.Max.Y,
	})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (b *BBox) UnmarshalJSON(data []byte) error {
	var j bboxJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	b.Min = Point{X: j.MinX, Y: j.MinY}
	b.Max = Point{X: j.MaxX, Y: j.MaxY}
	return nil
}

// nw returns the northwest quadrant of the box: x below center, y above.
func (b BBox) nw() BBox {
	c := b.Center()
	return BBox{Min: Point{b.Min.X, c.Y}, Max: Point{c.X, b.Max.Y}}
}

// ne returns the northeast quadrant of the box.
func (b BBox) ne() BBox {
	c := b.Center()
	return BBox{Min: c, Max: b.Max}
}

// sw returns the southwest quadrant of the box.
func (b BBox) sw() BBox {
	c := b.Center()
	return BBox{Min: b.Min, Max: c}
}

// se returns the southeast quadrant of the box.
func (b BBox) se() BBox {
	c := b.Center()
	return BBox{Min: Point{c.X, b.Min.Y}, Max: Point{b.Max.X, c.Y}}
}
