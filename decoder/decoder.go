// Package decoder implements the streaming file-reading collaborator
// (spec §6): prepare against a schema, execute to stream every point
// through a callback, with an in-place reprojection stage and Origin-dim
// resolution built in.
package decoder

import "go.viam.com/pointindex/schema"

// View wraps one decoded point's fixed-width record, ready to be written
// into the tree once the caller has stamped its Origin field.
type View struct {
	X, Y, Z float64
	Data    []byte
}

// ReadCallback receives each decoded point along with its zero-based
// sequence number within the file.
type ReadCallback func(view *View, pointID uint64) error

// Reprojector transforms a point's coordinates in place, e.g. between
// spatial reference systems.
type Reprojector func(x, y, z float64) (float64, float64, float64)

// Decoder is the per-format streaming reader contract (spec §6).
type Decoder interface {
	// Prepare binds the decoder to the schema its Views must be shaped
	// for.
	Prepare(s *schema.Schema) error
	// Execute streams every point in the file through the registered
	// read callback, in file order.
	Execute() error
	// SetReadCb registers the per-point sink.
	SetReadCb(cb ReadCallback)
	// SetSpatialReference records the input SRS, consulted by whatever
	// Reprojector the caller installs.
	SetSpatialReference(srs string)
	// SetReprojection installs the in-place coordinate transform applied
	// to every point before it reaches the read callback.
	SetReprojection(fn Reprojector)
	// FindDim resolves a dimension by name against the bound schema,
	// primarily used to locate the Origin field.
	FindDim(name string) (schema.DimInfo, bool)
}
