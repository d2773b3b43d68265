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

func TestQueueProcessesAndRetries(t *testing.T) {
	var attempts int32
	done := make(chan Job, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		done <- job
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 5 * time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "audit", Payload: 42}))
	select {
	case job := <-done:
		assert.Equal(t, 2, job.Attempt)
		assert.Equal(t, 42, job.Payload)
		assert.NotEmpty(t, job.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}
}

func TestQueueRejectsWhenNotRunning(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{Type: "audit"}))

	q.Start(context.Background())
	q.Stop()
	assert.Error(t, q.Enqueue(Job{Type: "audit"}))
}

func TestQueueStopDrainsBufferedJobs(t *testing.T) {
	var handled int32
	q := NewQueue("drain", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&handled, 1)
		return nil
	}, QueueConfig{Workers: 2, BufferSize: 10})
	q.Start(context.Background())
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(Job{Type: "audit"}))
	}
	q.Stop()
	assert.Equal(t, 0, q.Pending())
}
