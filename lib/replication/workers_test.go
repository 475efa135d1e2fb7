package replication

import (
	"context"
	"github.com/stretchr/testify/require"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPoolRunsTasks(t *testing.T) {
	p := newWorkerPool(2, time.Second)

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		require.True(t, p.Submit("task", func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}))
	}
	require.True(t, p.Stop(time.Second))
	require.Equal(t, int32(10), ran.Load())

	require.False(t, p.Submit("late", func(ctx context.Context) error { return nil }))
}

func TestWorkerPoolLimitsConcurrency(t *testing.T) {
	p := newWorkerPool(2, time.Second)

	var running, peak atomic.Int32
	for i := 0; i < 8; i++ {
		p.Submit("task", func(ctx context.Context) error {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return nil
		})
	}
	require.True(t, p.Stop(5*time.Second))
	require.LessOrEqual(t, peak.Load(), int32(2))
}

func TestWorkerPoolAbandonsSlowTasks(t *testing.T) {
	p := newWorkerPool(1, 50*time.Millisecond)

	canceled := make(chan struct{})
	p.Submit("slow", func(ctx context.Context) error {
		<-ctx.Done()
		close(canceled)
		return ctx.Err()
	})

	select {
	case <-canceled:
	case <-time.After(2 * time.Second):
		t.Fatal("slow task was not canceled")
	}
	require.True(t, p.Stop(time.Second))
}

func TestWorkerPoolStopCancelsStragglers(t *testing.T) {
	p := newWorkerPool(1, time.Minute)

	started := make(chan struct{})
	p.Submit("straggler", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	<-started

	require.False(t, p.Stop(50*time.Millisecond))
}
