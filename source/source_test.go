package source

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalPutThenGetAsStringRoundTrips(t *testing.T) {
	s := NewLocalMem("/data")
	require.NoError(t, s.Put("42", []byte{1, 2, 3, 4}))

	got, err := s.GetAsString("42")
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, []byte(got))
}

func TestLocalGetAsStringMissingReturnsNotFound(t *testing.T) {
	s := NewLocalMem("/data")
	_, err := s.GetAsString("missing")
	require.Error(t, err)
	require.True(t, IsNotFound(err))
}

func TestLocalResolveJoinsSubpath(t *testing.T) {
	s := NewLocalMem("/data")
	child := s.Resolve("chunks")
	require.NoError(t, child.Put("1", []byte{9}))

	got, err := s.GetAsString("chunks/1")
	require.NoError(t, err)
	require.Equal(t, []byte{9}, []byte(got))
}

func TestChunkStoreRoundTrip(t *testing.T) {
	root := NewLocalMem("/build")
	cs := NewChunkStore(root)

	_, found, err := cs.FetchChunk(5)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, cs.PutChunk(5, []byte{7, 7, 7}))

	data, found, err := cs.FetchChunk(5)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte{7, 7, 7}, data)
}
