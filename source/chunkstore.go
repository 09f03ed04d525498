package source

import (
	"strconv"

	"go.viam.com/pointindex/branch"
)

// ChunkStore adapts a Source to branch.ChunkStore, keying each chunk blob
// by its decimal id under the source's root.
type ChunkStore struct {
	root Source
}

// NewChunkStore wraps root so a Disk branch can page chunks through it.
func NewChunkStore(root Source) *ChunkStore {
	return &ChunkStore{root: root}
}

var _ branch.ChunkStore = (*ChunkStore)(nil)

func (c *ChunkStore) FetchChunk(id uint64) ([]byte, bool, error) {
	data, err := c.root.GetAsString(strconv.FormatUint(id, 10))
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(data), true, nil
}

func (c *ChunkStore) PutChunk(id uint64, data []byte) error {
	return c.root.Put(strconv.FormatUint(id, 10), data)
}
