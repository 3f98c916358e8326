package async

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/joseph-ayodele/tactic-tuner/internal/entity"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type collector struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (c *collector) add(o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, o)
}

func (c *collector) families() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.outcomes))
	for _, o := range c.outcomes {
		out = append(out, o.Job.Family)
	}
	sort.Strings(out)
	return out
}

func TestRunQueue_RunsEveryFamily(t *testing.T) {
	var c collector
	runner := RunnerFunc(func(_ context.Context, family string) (entity.BatchResult, error) {
		if family == "bad" {
			return entity.BatchResult{}, errors.New("no cases")
		}
		return entity.BatchResult{Family: family, BestAvgScore: 99, Attempts: 1}, nil
	})
	q := NewRunQueue(runner, quietLogger(), WithWorkers(3), WithQueueSize(2), WithOnDone(c.add))

	for _, f := range []string{"a", "b", "c", "bad", "d"} {
		ok, err := q.Enqueue(t.Context(), Job{Family: f, Reason: "test"})
		require.NoError(t, err)
		assert.True(t, ok)
	}
	require.NoError(t, q.Shutdown(t.Context()))

	assert.Equal(t, []string{"a", "b", "bad", "c", "d"}, c.families())
	for _, o := range c.outcomes {
		if o.Job.Family == "bad" {
			assert.Error(t, o.Err)
			continue
		}
		assert.NoError(t, o.Err)
		assert.Equal(t, o.Job.Family, o.Result.Family)
		assert.False(t, o.Job.SubmittedAt.IsZero())
	}
}

func TestRunQueue_SkipsQueuedDuplicate(t *testing.T) {
	release := make(chan struct{})
	started := make(chan string, 4)
	runner := RunnerFunc(func(_ context.Context, family string) (entity.BatchResult, error) {
		started <- family
		<-release
		return entity.BatchResult{}, nil
	})
	var c collector
	q := NewRunQueue(runner, quietLogger(), WithWorkers(1), WithOnDone(c.add))

	ok, err := q.Enqueue(t.Context(), Job{Family: "a"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", <-started)

	ok, err = q.Enqueue(t.Context(), Job{Family: "b"})
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = q.Enqueue(t.Context(), Job{Family: "b"})
	require.NoError(t, err)
	assert.False(t, ok, "queued family must not be queued again")

	close(release)
	require.NoError(t, q.Shutdown(t.Context()))
	assert.Equal(t, []string{"a", "b"}, c.families())
}

func TestRunQueue_RerunsFamilyAskedForWhileRunning(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 4)
	runner := RunnerFunc(func(context.Context, string) (entity.BatchResult, error) {
		started <- struct{}{}
		<-release
		return entity.BatchResult{}, nil
	})
	var c collector
	q := NewRunQueue(runner, quietLogger(), WithWorkers(1), WithOnDone(c.add))

	ok, err := q.Enqueue(t.Context(), Job{Family: "fam", Reason: "initial"})
	require.NoError(t, err)
	require.True(t, ok)
	<-started

	ok, err = q.Enqueue(t.Context(), Job{Family: "fam", Reason: "watch"})
	require.NoError(t, err)
	assert.True(t, ok, "running family is marked to run again")

	ok, err = q.Enqueue(t.Context(), Job{Family: "fam", Reason: "watch"})
	require.NoError(t, err)
	assert.False(t, ok, "a pending rerun absorbs further requests")

	close(release)
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("rerun never started")
	}
	require.NoError(t, q.Shutdown(t.Context()))

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Len(t, c.outcomes, 2)
	assert.Equal(t, "initial", c.outcomes[0].Job.Reason)
	assert.Equal(t, "rerun", c.outcomes[1].Job.Reason)
}

func TestRunQueue_RerunDroppedOnShutdown(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 4)
	runner := RunnerFunc(func(context.Context, string) (entity.BatchResult, error) {
		started <- struct{}{}
		<-release
		return entity.BatchResult{}, nil
	})
	var c collector
	q := NewRunQueue(runner, quietLogger(), WithWorkers(1), WithOnDone(c.add))

	_, err := q.Enqueue(t.Context(), Job{Family: "fam"})
	require.NoError(t, err)
	<-started
	ok, err := q.Enqueue(t.Context(), Job{Family: "fam"})
	require.NoError(t, err)
	require.True(t, ok)

	done := make(chan error, 1)
	go func() { done <- q.Shutdown(t.Context()) }()
	// Shutdown closes the queue before the running job can requeue itself.
	require.Eventually(t, func() bool {
		q.mu.RLock()
		defer q.mu.RUnlock()
		return q.closed
	}, 5*time.Second, time.Millisecond)
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, []string{"fam"}, c.families())
}

func TestRunQueue_EnqueueAfterShutdown(t *testing.T) {
	q := NewRunQueue(RunnerFunc(func(context.Context, string) (entity.BatchResult, error) {
		return entity.BatchResult{}, nil
	}), quietLogger())
	require.NoError(t, q.Shutdown(t.Context()))
	require.NoError(t, q.Shutdown(t.Context()))

	_, err := q.Enqueue(t.Context(), Job{Family: "late"})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestRunQueue_ShutdownTimeoutCancelsRuns(t *testing.T) {
	started := make(chan struct{})
	runner := RunnerFunc(func(ctx context.Context, _ string) (entity.BatchResult, error) {
		close(started)
		<-ctx.Done()
		return entity.BatchResult{}, ctx.Err()
	})
	var c collector
	q := NewRunQueue(runner, quietLogger(), WithWorkers(1), WithOnDone(c.add))

	_, err := q.Enqueue(t.Context(), Job{Family: "slow"})
	require.NoError(t, err)
	<-started

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	err = q.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.Len(t, c.outcomes, 1)
	assert.ErrorIs(t, c.outcomes[0].Err, context.Canceled)
}
