package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var handled int32
	q := NewQueue("audit", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&handled, 1)
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(Job{ID: "job"}))
	}
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&handled) == 5 }, time.Second, 10*time.Millisecond)
}

func TestQueueRetriesFailures(t *testing.T) {
	var attempts int32
	q := NewQueue("audit", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("db down")
		}
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&attempts) == 3 }, time.Second, 5*time.Millisecond)
}

func TestQueueRejectsWhenNotStartedOrFull(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("audit", func(ctx context.Context, job Job) error {
		<-block
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})

	require.ErrorIs(t, q.Enqueue(Job{}), ErrQueueNotStarted)

	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job{ID: "1"}))
	assert.Eventually(t, func() bool { return len(q.jobs) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(Job{ID: "2"}))
	require.ErrorIs(t, q.Enqueue(Job{ID: "3"}), ErrQueueFull)

	close(block)
	q.Stop()
}

func TestQueueStopDrainsBufferedJobs(t *testing.T) {
	var handled int32
	q := NewQueue("audit", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&handled, 1)
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(Job{}))
	}
	q.Stop()
	assert.Equal(t, int32(3), atomic.LoadInt32(&handled))
}

func TestQueueReportsExhaustedJobs(t *testing.T) {
	dropped := make(chan Job, 1)
	q := NewQueue("audit", func(ctx context.Context, job Job) error {
		return errors.New("db down")
	}, QueueConfig{MaxRetries: 1, RetryDelay: time.Millisecond, OnDrop: func(j Job, _ error) { dropped <- j }})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-9", Type: "audit_log"}))
	select {
	case j := <-dropped:
		assert.Equal(t, "job-9", j.ID)
		assert.Equal(t, 2, j.Attempt)
	case <-time.After(time.Second):
		t.Fatal("job was not reported as dropped")
	}
}

func TestQueueBackoffDoublesAndCaps(t *testing.T) {
	q := NewQueue("audit", nil, QueueConfig{RetryDelay: time.Second})
	assert.Equal(t, time.Second, q.backoff(1))
	assert.Equal(t, 2*time.Second, q.backoff(2))
	assert.Equal(t, 8*time.Second, q.backoff(4))
	assert.Equal(t, maxRetryDelay, q.backoff(10))
}
