package manifest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"go.viam.com/pointindex/geom"
)

func TestAddOriginAllocatesSequentialIDs(t *testing.T) {
	m := New()
	a := m.AddOrigin("a.las")
	b := m.AddOrigin("b.las")
	require.Equal(t, geom.Origin(0), a)
	require.Equal(t, geom.Origin(1), b)

	path, ok := m.PathFor(a)
	require.True(t, ok)
	require.Equal(t, "a.las", path)
}

func TestOmissionsAndFailuresAreDistinct(t *testing.T) {
	m := New()
	m.AddOmission("weird.xyz")
	origin := m.AddOrigin("bad.las")
	m.AddFailure(origin, "truncated header")

	require.Equal(t, []string{"weird.xyz"}, m.Omissions())
	require.Equal(t, map[geom.Origin]string{origin: "truncated header"}, m.Failures())
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	m := New()
	origin := m.AddOrigin("a.las")
	m.AddOmission("b.xyz")
	m.AddFailure(origin, "oops")

	data, err := m.MarshalJSON()
	require.NoError(t, err)

	reloaded := New()
	require.NoError(t, reloaded.UnmarshalJSON(data))
	require.Equal(t, m.Omissions(), reloaded.Omissions())
	require.Equal(t, m.Failures(), reloaded.Failures())
}
