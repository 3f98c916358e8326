package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/tactic-tuner/internal/entity"
)

var ErrQueueClosed = errors.New("run queue is shutting down")

// Job asks for one optimization run of a family.
type Job struct {
	Family      string
	SubmittedAt time.Time
	Reason      string // e.g. "cli", "watch"
}

// Outcome is what a worker reports once a Job is done.
type Outcome struct {
	Job    Job
	Result entity.BatchResult
	Err    error
}

// Runner executes one family run.
type Runner interface {
	RunFamily(ctx context.Context, family string) (entity.BatchResult, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, family string) (entity.BatchResult, error)

func (f RunnerFunc) RunFamily(ctx context.Context, family string) (entity.BatchResult, error) {
	return f(ctx, family)
}

type runState int

const (
	stateQueued runState = iota
	stateRunning
	stateRerun // running, and asked for again since it started
)

// RunQueue runs family jobs on a fixed pool of workers. A family already
// queued is not queued twice; one asked for while running runs once more
// after the current run ends, since the running batch was loaded earlier.
type RunQueue struct {
	runner  Runner
	logger  *slog.Logger
	workers int
	timeout time.Duration
	onDone  func(Outcome)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	baseCtx context.Context
	cancel  context.CancelFunc

	mu     sync.RWMutex
	closed bool

	imu      sync.Mutex
	inflight map[string]runState
}

type Option func(*RunQueue)

func WithWorkers(n int) Option {
	return func(q *RunQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *RunQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithRunTimeout(d time.Duration) Option {
	return func(q *RunQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithOnDone registers a callback invoked from the worker after each job.
func WithOnDone(fn func(Outcome)) Option {
	return func(q *RunQueue) { q.onDone = fn }
}

func NewRunQueue(runner Runner, logger *slog.Logger, opts ...Option) *RunQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &RunQueue{
		runner:   runner,
		logger:   logger,
		workers:  2,
		timeout:  30 * time.Minute,
		ch:       make(chan Job, 16),
		inflight: map[string]runState{},
	}
	for _, o := range opts {
		o(q)
	}
	q.baseCtx, q.cancel = context.WithCancel(context.Background())
	q.start()
	return q
}

func (q *RunQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("async.worker.started", "worker_id", workerID)
				for job := range q.ch {
					q.process(workerID, job)
				}
				q.logger.Debug("async.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *RunQueue) process(workerID int, job Job) {
	start := time.Now()
	q.setState(job.Family, stateRunning)
	ctx, cancel := context.WithTimeout(q.baseCtx, q.timeout)
	res, err := q.runner.RunFamily(ctx, job.Family)
	cancel()

	rerun := q.finish(job.Family)

	if err != nil {
		q.logger.Error("async.run.failed", "worker_id", workerID, "family", job.Family, "err", err)
	} else {
		q.logger.Info("async.run.ok",
			"worker_id", workerID,
			"family", job.Family,
			"best_score", res.BestAvgScore,
			"attempts", res.Attempts,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
	if q.onDone != nil {
		q.onDone(Outcome{Job: job, Result: res, Err: err})
	}
	if rerun {
		q.requeue(Job{Family: job.Family, SubmittedAt: time.Now(), Reason: "rerun"})
	}
}

// Enqueue queues job, blocking while the queue is full. It reports false when
// the family is already queued, or already marked to run again.
func (q *RunQueue) Enqueue(ctx context.Context, job Job) (bool, error) {
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	// the read lock keeps Shutdown from closing ch under a pending send
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("async.enqueue.closed", "family", job.Family)
		return false, ErrQueueClosed
	}

	q.imu.Lock()
	if st, ok := q.inflight[job.Family]; ok {
		if st == stateRunning {
			q.inflight[job.Family] = stateRerun
			q.imu.Unlock()
			q.logger.Info("async.enqueue.rerun_pending", "family", job.Family, "reason", job.Reason)
			return true, nil
		}
		q.imu.Unlock()
		q.logger.Info("async.enqueue.duplicate", "family", job.Family)
		return false, nil
	}
	q.inflight[job.Family] = stateQueued
	q.imu.Unlock()

	select {
	case q.ch <- job:
		q.logger.Info("async.enqueue.ok", "family", job.Family, "reason", job.Reason)
		return true, nil
	default:
	}
	q.logger.Warn("async.enqueue.backpressure", "family", job.Family)
	select {
	case q.ch <- job:
		return true, nil
	case <-ctx.Done():
		q.forget(job.Family)
		return false, ctx.Err()
	}
}

func (q *RunQueue) forget(family string) {
	q.imu.Lock()
	delete(q.inflight, family)
	q.imu.Unlock()
}

func (q *RunQueue) setState(family string, st runState) {
	q.imu.Lock()
	q.inflight[family] = st
	q.imu.Unlock()
}

// finish clears a finished family and reports whether it must run again.
// A family due to rerun stays marked as queued.
func (q *RunQueue) finish(family string) bool {
	q.imu.Lock()
	defer q.imu.Unlock()
	if q.inflight[family] == stateRerun {
		q.inflight[family] = stateQueued
		return true
	}
	delete(q.inflight, family)
	return false
}

// requeue puts a rerun back on the queue without blocking the calling worker.
func (q *RunQueue) requeue(job Job) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.mu.RLock()
		defer q.mu.RUnlock()
		if q.closed {
			q.forget(job.Family)
			q.logger.Warn("async.rerun.dropped", "family", job.Family)
			return
		}
		q.ch <- job
		q.logger.Info("async.enqueue.ok", "family", job.Family, "reason", job.Reason)
	}()
}

// Shutdown stops accepting jobs and waits for queued ones to finish. When ctx
// ends first, running jobs are canceled and ctx.Err() is returned.
func (q *RunQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-done:
		q.cancel()
		q.logger.Info("async.shutdown.drained")
		return nil
	case <-ctx.Done():
		q.cancel()
		<-done
		q.logger.Warn("async.shutdown.interrupted")
		return ctx.Err()
	}
}
