package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startQueue(t *testing.T, q *WorkQueue) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = q.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestWorkQueue_ReturnsJobResult(t *testing.T) {
	q := NewWorkQueue(4, 1, BackpressureReject)
	startQueue(t, q)

	require.NoError(t, q.Do(context.Background(), func(ctx context.Context) error { return nil }))

	boom := errors.New("boom")
	assert.ErrorIs(t, q.Do(context.Background(), func(ctx context.Context) error { return boom }), boom)
}

func TestWorkQueue_RejectsWhenSaturated(t *testing.T) {
	q := NewWorkQueue(1, 1, BackpressureReject)
	startQueue(t, q)

	started := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup

	// 第一个任务占住 worker
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = q.Do(context.Background(), func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	// 第二个任务占满队列
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = q.Do(context.Background(), func(ctx context.Context) error { return nil })
	}()
	require.Eventually(t, func() bool { return q.Len() == 1 }, time.Second, 5*time.Millisecond)

	err := q.Do(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrQueueFull)

	close(release)
	wg.Wait()
}

func TestWorkQueue_SerializesJobs(t *testing.T) {
	q := NewWorkQueue(16, 1, BackpressureWait)
	startQueue(t, q)

	var inFlight, maxInFlight, ran int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := q.Do(context.Background(), func(ctx context.Context) error {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					m := atomic.LoadInt32(&maxInFlight)
					if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				atomic.AddInt32(&ran, 1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), atomic.LoadInt32(&ran))
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
}

func TestWorkQueue_SkipsCancelledJobs(t *testing.T) {
	q := NewWorkQueue(4, 1, BackpressureWait)
	startQueue(t, q)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var called bool
	err := q.Do(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestWorkQueue_RecoversPanics(t *testing.T) {
	q := NewWorkQueue(1, 1, BackpressureReject)
	startQueue(t, q)

	err := q.Do(context.Background(), func(ctx context.Context) error { panic("model crashed") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model crashed")

	// worker 仍然可用
	assert.NoError(t, q.Do(context.Background(), func(ctx context.Context) error { return nil }))
}

func TestWorkQueue_ClosedAfterShutdown(t *testing.T) {
	q := NewWorkQueue(1, 1, BackpressureReject)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = q.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	err := q.Do(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
}
