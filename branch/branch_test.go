package branch

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"go.viam.com/pointindex/clipper"
	"go.viam.com/pointindex/entry"
	"go.viam.com/pointindex/geom"
	"go.viam.com/pointindex/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.DimInfo{{Name: "X", Size: 8}, {Name: "Y", Size: 8}})
	require.NoError(t, err)
	return s
}

func rootRoller() geom.Roller {
	return geom.NewRoller(geom.NewBBox(geom.Point{X: 0, Y: 0}, geom.Point{X: 16, Y: 16}))
}

func TestBaseAddPointClaimsEmptySlot(t *testing.T) {
	s := testSchema(t)
	empty := make([]byte, s.PointSize())
	b := NewBase(s, 0, 64, empty)

	p := geom.Point{X: 3, Y: 5}
	info := entry.PointInfo{Point: &p, Data: make([]byte, s.PointSize())}

	loser, err := b.AddPoint(info, rootRoller(), nil)
	require.NoError(t, err)
	require.Nil(t, loser)
}

func TestBaseAddPointDisplacesFartherIncumbent(t *testing.T) {
	s := testSchema(t)
	empty := make([]byte, s.PointSize())
	b := NewBase(s, 0, 64, empty)
	root := rootRoller()

	incumbent := geom.Point{X: 1, Y: 1}
	loser, err := b.AddPoint(entry.PointInfo{Point: &incumbent, Data: empty}, root, nil)
	require.NoError(t, err)
	require.Nil(t, loser)

	challenger := geom.Point{X: 8.1, Y: 8.1}
	loser, err = b.AddPoint(entry.PointInfo{Point: &challenger, Data: empty}, root, nil)
	require.NoError(t, err)
	require.NotNil(t, loser)
	require.Equal(t, incumbent, *loser.Point)
}

type memChunkStore struct {
	mu   sync.Mutex
	data map[uint64][]byte
}

func newMemChunkStore() *memChunkStore { return &memChunkStore{data: make(map[uint64][]byte)} }

func (m *memChunkStore) FetchChunk(id uint64) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[id]
	return d, ok, nil
}

func (m *memChunkStore) PutChunk(id uint64, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = data
	return nil
}

// singleBranchReleaser adapts one Disk branch's error-returning Clip to
// the clipper.Releaser signature, standing in for the registry-level
// dispatch a real deployment uses to route releases to the owning branch.
type singleBranchReleaser struct {
	branch *Disk
}

func (r singleBranchReleaser) Clip(_ uint64, chunkID uint64) {
	_ = r.branch.Clip(chunkID)
}

func TestDiskAddPointRegistersClipperAndEvictsOnClose(t *testing.T) {
	s := testSchema(t)
	empty := make([]byte, s.PointSize())
	store := newMemChunkStore()
	d := NewDisk(s, 0, 16, empty, store)

	c := clipper.New(1, singleBranchReleaser{branch: d})

	p := geom.Point{X: 3, Y: 5}
	root := rootRoller()
	loser, err := d.AddPoint(entry.PointInfo{Point: &p, Data: empty}, root, c)
	require.NoError(t, err)
	require.Nil(t, loser)

	require.Empty(t, store.data)

	c.Close()
	require.NotEmpty(t, store.data)
}
