package clipper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeReleaser struct {
	released []uint64
}

func (f *fakeReleaser) Clip(clipperID uint64, chunkID uint64) {
	f.released = append(f.released, chunkID)
}

func TestClipFirstRegistrationOnly(t *testing.T) {
	c := New(1, &fakeReleaser{})
	require.True(t, c.Clip(10))
	require.False(t, c.Clip(10))
	require.True(t, c.Clip(11))
}

func TestCloseReleasesEveryRegisteredIDOnce(t *testing.T) {
	r := &fakeReleaser{}
	c := New(7, r)
	c.Clip(10)
	c.Clip(11)
	c.Clip(10)

	c.Close()
	require.ElementsMatch(t, []uint64{10, 11}, r.released)

	c.Close()
	require.ElementsMatch(t, []uint64{10, 11}, r.released)
}
