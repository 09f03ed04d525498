package geom

import "math"

// Quadrant identifies one of the four children of a node.
type Quadrant int

// The four quadrants, matching entwine's nw/ne/sw/se child ordering:
// child i of parent index p is {4p+1, 4p+2, 4p+3, 4p+4} for {Nw, Ne, Sw, Se}.
const (
	Nw Quadrant = iota
	Ne
	Sw
	Se
)

// Roller is an ephemeral descent cursor: the BBox and node index of the
// node currently being visited. It carries no allocation beyond itself, so
// it is passed and returned by value as the tree is walked.
type Roller struct {
	bbox  BBox
	index uint64
}

// NewRoller returns a Roller positioned at the root of the tree described
// by bbox.
func NewRoller(bbox BBox) Roller {
	return Roller{bbox: bbox, index: 0}
}

// BBox returns the current node's bounding box.
func (r Roller) BBox() BBox { return r.bbox }

// Index returns the current node index.
func (r Roller) Index() uint64 { return r.index }

// Quadrant determines which of the current node's four children contains
// p, per spec §4.1: boundary ties (px == cx or py == cy) go to the
// "greater-or-equal" side, ne/se.
func (r Roller) Quadrant(p Point) Quadrant {
	c := r.bbox.Center()
	switch {
	case p.X < c.X && p.Y >= c.Y:
		return Nw
	case p.X >= c.X && p.Y >= c.Y:
		return Ne
	case p.X < c.X && p.Y < c.Y:
		return Sw
	default:
		return Se
	}
}

// Step descends into the given quadrant, shrinking the BBox and updating
// the index via the standard complete-quadtree numbering (parent i ->
// children {4i+1, 4i+2, 4i+3, 4i+4}).
func (r Roller) Step(q Quadrant) Roller {
	next := Roller{index: 4*r.index + uint64(q) + 1}
	switch q {
	case Nw:
		next.bbox = r.bbox.nw()
	case Ne:
		next.bbox = r.bbox.ne()
	case Sw:
		next.bbox = r.bbox.sw()
	default:
		next.bbox = r.bbox.se()
	}
	return next
}

// GoNw, GoNe, GoSw and GoSe descend into the named quadrant unconditionally,
// mirroring entwine's Roller::goNw/goNe/goSw/goSe.
func (r Roller) GoNw() Roller { return r.Step(Nw) }
func (r Roller) GoNe() Roller { return r.Step(Ne) }
func (r Roller) GoSw() Roller { return r.Step(Sw) }
func (r Roller) GoSe() Roller { return r.Step(Se) }

// Descend steps into whichever quadrant contains p.
func (r Roller) Descend(p Point) Roller {
	return r.Step(r.Quadrant(p))
}

// Depth returns the depth of node index i in a complete 4-ary tree:
// floor(log4(3i+1)).
func Depth(index uint64) uint64 {
	return uint64(math.Log(float64(3*index+1)) / math.Log(4))
}

// CalcOffset returns the number of nodes in a complete tree of the given
// depth for the given dimensionality: (branchFactor^depth - 1) /
// (branchFactor - 1), where branchFactor = 2^dims. For the planar (dims=2)
// case used throughout this engine, branchFactor is 4 and this reduces to
// (4^depth - 1) / 3.
func CalcOffset(depth uint64, dims uint64) uint64 {
	branchFactor := uint64(1) << dims
	if branchFactor == 1 {
		return depth
	}
	// sum_{k=0}^{depth-1} branchFactor^k == (branchFactor^depth - 1) / (branchFactor - 1)
	var total, pow uint64 = 0, 1
	for i := uint64(0); i < depth; i++ {
		total += pow
		pow *= branchFactor
	}
	return total
}
