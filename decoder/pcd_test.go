package decoder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"go.viam.com/pointindex/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.DimInfo{{Name: "X", Size: 8}, {Name: "Y", Size: 8}})
	require.NoError(t, err)
	return s
}

const asciiPCD = `# .PCD v.7 - Point Cloud Data file format
VERSION .7
FIELDS x y z
SIZE 4 4 4
TYPE F F F
COUNT 1 1 1
WIDTH 2
HEIGHT 1
VIEWPOINT 0 0 0 1 0 0 0
POINTS 2
DATA ascii
1.5 2.5 0
3.5 4.5 0
`

func TestPCDExecuteAsciiStreamsPoints(t *testing.T) {
	s := testSchema(t)
	d := NewPCD(strings.NewReader(asciiPCD))
	require.NoError(t, d.Prepare(s))

	var seen [][2]float64
	d.SetReadCb(func(v *View, id uint64) error {
		seen = append(seen, [2]float64{v.X, v.Y})
		return nil
	})

	require.NoError(t, d.Execute())
	require.Equal(t, [][2]float64{{1.5, 2.5}, {3.5, 4.5}}, seen)
}

func TestPCDReprojectionAppliesBeforeCallback(t *testing.T) {
	s := testSchema(t)
	d := NewPCD(strings.NewReader(asciiPCD))
	require.NoError(t, d.Prepare(s))
	d.SetReprojection(func(x, y, z float64) (float64, float64, float64) {
		return x + 100, y + 100, z
	})

	var seen []float64
	d.SetReadCb(func(v *View, id uint64) error {
		seen = append(seen, v.X)
		return nil
	})

	require.NoError(t, d.Execute())
	require.Equal(t, []float64{101.5, 103.5}, seen)
}

func TestRegistryInfersByExtension(t *testing.T) {
	r := NewRegistry()
	factory, ok := r.Infer("cloud.PCD")
	require.True(t, ok)
	require.NotNil(t, factory)

	_, ok = r.Infer("cloud.unknown")
	require.False(t, ok)
}
