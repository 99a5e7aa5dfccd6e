package workerpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsSubmittedTasks(t *testing.T) {
	p := New(3, 16, nil)

	var count atomic.Int32
	for i := 0; i < 10; i++ {
		require.True(t, p.TrySubmit(func(ctx context.Context) {
			count.Add(1)
		}))
	}

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, int32(10), count.Load(), "shutdown drains queued tasks")
}

func TestPool_TrySubmitWhenFull(t *testing.T) {
	p := New(1, 1, nil)

	release := make(chan struct{})
	started := make(chan struct{})
	require.True(t, p.TrySubmit(func(ctx context.Context) {
		close(started)
		<-release
	}))
	<-started

	require.True(t, p.TrySubmit(func(ctx context.Context) {}))
	assert.False(t, p.TrySubmit(func(ctx context.Context) {}), "queue is full")

	close(release)
	require.NoError(t, p.Shutdown(context.Background()))
	assert.False(t, p.TrySubmit(func(ctx context.Context) {}), "closed pool rejects tasks")
}

func TestPool_PanicDoesNotKillWorker(t *testing.T) {
	p := New(1, 4, nil)

	var ran atomic.Bool
	require.True(t, p.TrySubmit(func(ctx context.Context) { panic("boom") }))
	require.True(t, p.TrySubmit(func(ctx context.Context) { ran.Store(true) }))

	require.NoError(t, p.Shutdown(context.Background()))
	assert.True(t, ran.Load())
}

func TestPool_ShutdownTimeoutCancelsTasks(t *testing.T) {
	p := New(1, 1, nil)

	cancelled := make(chan struct{})
	require.True(t, p.TrySubmit(func(ctx context.Context) {
		<-ctx.Done()
		close(cancelled)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Shutdown(ctx), context.DeadlineExceeded)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("running task was not cancelled")
	}

	// 重复关闭
	assert.NoError(t, p.Shutdown(context.Background()))
}
