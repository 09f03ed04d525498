// Package branch implements the three storage tiers a node index can fall
// into - Base (in-memory), Flat (one on-disk chunk, fully resident) and
// Disk (many chunks, paged in on demand) - behind one shared contention
// protocol (spec §4.3).
package branch

import (
	"go.viam.com/pointindex/clipper"
	"go.viam.com/pointindex/entry"
	"go.viam.com/pointindex/geom"
)

// Branch is the contract every storage tier satisfies. AddPoint runs the
// Entry contention protocol at roller's node and reports the PointInfo
// that must continue descending, or nil if the point came to rest here
// (spec §4.3: "the caller then either terminates (loser == null) or
// descends one quadrant with the loser").
type Branch interface {
	AddPoint(info entry.PointInfo, roller geom.Roller, clip *clipper.Clipper) (*entry.PointInfo, error)
}

// adopt runs the shared per-entry protocol. TryAdopt's displaced return is
// already exactly the Branch contract's "point that must keep descending,
// or nil if this point came to rest here" value.
func adopt(e *entry.Entry, center geom.Point, info entry.PointInfo) *entry.PointInfo {
	_, displaced := e.TryAdopt(center, info)
	return displaced
}
