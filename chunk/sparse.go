package chunk

import "go.viam.com/pointindex/entry"

// SparseData is a sparse map from local index to Entry, used while a
// chunk is thinly populated. All access happens under the owning Chunk's
// mutex; SparseData itself holds no lock, per the collapsed single-lock
// design documented in Chunk.GetEntry.
type SparseData struct {
	entries map[uint64]*entry.Entry
}

func newSparseData() *SparseData {
	return &SparseData{entries: make(map[uint64]*entry.Entry)}
}

// getOrCreate returns the entry at local index, creating a fresh one
// backed by a private copy of the empty template if absent, and the map's
// size after the (possible) insertion.
func (s *SparseData) getOrCreate(local uint64, empty []byte) (*entry.Entry, int) {
	if e, ok := s.entries[local]; ok {
		return e, len(s.entries)
	}
	buf := make([]byte, len(empty))
	copy(buf, empty)
	e := entry.New(buf)
	s.entries[local] = e
	return e, len(s.entries)
}

func (s *SparseData) size() int {
	return len(s.entries)
}
