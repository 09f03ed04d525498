package entry

import "go.viam.com/pointindex/geom"

// PointInfo packages a point key together with a copy of its payload
// bytes, the unit that travels through the tree during insertion and
// during any subsequent displacement (spec §4.3, §4.6).
type PointInfo struct {
	Point *geom.Point
	Data  []byte
}

// TryAdopt implements the branch contention protocol against a single
// Entry (spec §4.3, steps 1-3):
//
//  1. If the entry is empty, the challenger claims it outright.
//  2. Otherwise the closer of (incumbent, challenger) to center wins;
//     exact ties favor the incumbent for deterministic output.
//  3. If the challenger wins, the incumbent is displaced and returned so
//     the caller can continue descending with it.
//
// kept reports whether this entry now holds the challenger's point.
// displaced is the point that must continue descending: nil when the
// challenger filled an empty slot, the old incumbent when the challenger
// won, and the challenger itself (with kept false) when the incumbent
// held its ground.
func (e *Entry) TryAdopt(center geom.Point, challenger PointInfo) (kept bool, displaced *PointInfo) {
	if e.point.CompareAndSwap(nil, challenger.Point) {
		e.mu.Lock()
		copy(e.data, challenger.Data)
		e.mu.Unlock()
		return true, nil
	}

	// The CAS above failed, so the entry is occupied - and stays occupied,
	// since a point never returns to nil once set. Load the incumbent and
	// decide under the mutex rather than outside it: comparing against a
	// value loaded before the lock would let a concurrent winner's swap
	// land between the compare and this one's own swap, overwriting it and
	// returning a stale incumbent to re-descend.
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.point.Load()
	curDist := cur.SquaredDistance(center)
	challDist := challenger.Point.SquaredDistance(center)

	if curDist <= challDist {
		// Incumbent wins (ties favor the incumbent). The caller must
		// continue descending with the challenger.
		return false, &challenger
	}

	oldData := make([]byte, len(e.data))
	copy(oldData, e.data)
	e.point.Store(challenger.Point)
	copy(e.data, challenger.Data)

	return true, &PointInfo{Point: cur, Data: oldData}
}
