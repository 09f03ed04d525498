package chunk

import "go.viam.com/pointindex/entry"

// ContiguousData is the flat-array representation of a fully-provisioned
// chunk: maxPoints entries, each pointing into one pointSize-wide slice of
// a single shared backing buffer.
type ContiguousData struct {
	entries []*entry.Entry
	backing []byte
}

// newContiguousFromSparse performs the one-way sparse-to-dense conversion
// (spec §4.4): allocate a single buffer pre-filled from empty, copy every
// sparse entry's payload into its slot, and wrap each slot in a fresh
// Entry that keeps the old entry's atomic point value.
func newContiguousFromSparse(sparse *SparseData, maxPoints uint64, empty []byte) *ContiguousData {
	pointSize := len(empty)
	backing := make([]byte, int(maxPoints)*pointSize)
	for i := 0; i < int(maxPoints); i++ {
		copy(backing[i*pointSize:(i+1)*pointSize], empty)
	}

	entries := make([]*entry.Entry, maxPoints)
	for local := uint64(0); local < maxPoints; local++ {
		slot := backing[int(local)*pointSize : int(local+1)*pointSize]
		if old, ok := sparse.entries[local]; ok {
			old.Mutex().Lock()
			copy(slot, old.Data())
			p := old.Point()
			old.Mutex().Unlock()
			entries[local] = entry.NewWithPoint(p, slot)
		} else {
			entries[local] = entry.New(slot)
		}
	}

	return &ContiguousData{entries: entries, backing: backing}
}

// newContiguousEmpty allocates a fresh, entirely-empty dense chunk body
// with every slot initialized from empty. Decoding an on-disk Contiguous
// chunk does not go through it; decodeContiguous builds its own entries.
func newContiguousEmpty(maxPoints uint64, empty []byte) *ContiguousData {
	pointSize := len(empty)
	backing := make([]byte, int(maxPoints)*pointSize)
	entries := make([]*entry.Entry, maxPoints)
	for local := uint64(0); local < maxPoints; local++ {
		slot := backing[int(local)*pointSize : int(local+1)*pointSize]
		copy(slot, empty)
		entries[local] = entry.New(slot)
	}
	return &ContiguousData{entries: entries, backing: backing}
}

func (c *ContiguousData) getEntry(local uint64) *entry.Entry {
	return c.entries[local]
}
