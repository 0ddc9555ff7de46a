package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	done := make(chan struct{}, 3)

	q := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		seen[job.ID] = true
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{ID: id}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("job not processed")
		}
	}
	mu.Lock()
	assert.Len(t, seen, 3)
	mu.Unlock()
	assert.Eventually(t, func() bool { return q.Stats().Processed == 3 }, time.Second, 5*time.Millisecond)
}

func TestQueueRetriesWithAttemptCount(t *testing.T) {
	attempts := make(chan int, 5)
	q := NewQueue("retry", func(ctx context.Context, job Job) error {
		attempts <- job.Attempt
		if job.Attempt < 2 {
			return errors.New("boom")
		}
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "x"}))
	var got []int
	for len(got) < 3 {
		select {
		case a := <-attempts:
			got = append(got, a)
		case <-time.After(2 * time.Second):
			t.Fatalf("only saw attempts %v", got)
		}
	}
	assert.Equal(t, []int{0, 1, 2}, got)
	assert.Eventually(t, func() bool { return q.Stats().Retried == 2 }, time.Second, 5*time.Millisecond)
}

func TestQueueGivesUpAfterMaxRetries(t *testing.T) {
	q := NewQueue("fail", func(ctx context.Context, job Job) error {
		return errors.New("always")
	}, QueueConfig{MaxRetries: 1, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "x"}))
	assert.Eventually(t, func() bool { return q.Stats().Failed == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestQueueEnqueueErrors(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("full", func(ctx context.Context, job Job) error {
		<-block
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})

	assert.Error(t, q.Enqueue(Job{ID: "early"}))

	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job{ID: "1"}))
	assert.Eventually(t, func() bool { return q.Stats().Pending == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.Enqueue(Job{ID: "2"}))
	assert.ErrorIs(t, q.Enqueue(Job{ID: "3"}), ErrQueueFull)

	close(block)
	q.Stop()
	assert.Error(t, q.Enqueue(Job{ID: "late"}))
}

func TestRetryDelayBacksOffExponentially(t *testing.T) {
	q := NewQueue("delay", nil, QueueConfig{RetryDelay: 100 * time.Millisecond, MaxRetryDelay: time.Second})
	assert.Equal(t, 100*time.Millisecond, q.retryDelayFor(1))
	assert.Equal(t, 150*time.Millisecond, q.retryDelayFor(2))
	assert.Equal(t, 225*time.Millisecond, q.retryDelayFor(3))
	assert.Equal(t, time.Second, q.retryDelayFor(20))
}
