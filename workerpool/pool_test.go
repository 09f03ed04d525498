package workerpool

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAddJoinDrainsAllTasks(t *testing.T) {
	p := New(4, zap.NewNop().Sugar())

	var count int64
	for i := 0; i < 20; i++ {
		p.Add(func(ctx context.Context) error {
			atomic.AddInt64(&count, 1)
			return nil
		})
	}

	require.NoError(t, p.Join())
	require.Equal(t, int64(20), count)
}

func TestGoReopensPoolAfterJoin(t *testing.T) {
	p := New(2, zap.NewNop().Sugar())

	var first int64
	p.Add(func(ctx context.Context) error {
		atomic.AddInt64(&first, 1)
		return nil
	})
	require.NoError(t, p.Join())

	p.Go()

	var second int64
	p.Add(func(ctx context.Context) error {
		atomic.AddInt64(&second, 1)
		return nil
	})
	require.NoError(t, p.Join())

	require.Equal(t, int64(1), first)
	require.Equal(t, int64(1), second)
}

func TestPanicInTaskIsRecoveredAsError(t *testing.T) {
	p := New(1, zap.NewNop().Sugar())
	p.Add(func(ctx context.Context) error {
		panic("boom")
	})
	require.Error(t, p.Join())
}
