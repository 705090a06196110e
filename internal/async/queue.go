package async

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"
)

// Job is one queued extraction request.
type Job struct {
	JobID       uuid.UUID
	Source      string
	Engine      string
	SubmittedAt time.Time
}

// Runner executes a job end to end. *pipeline.Processor satisfies it via
// RunJob.
type Runner interface {
	RunJob(ctx context.Context, jobID uuid.UUID, source, engine string) error
}

type Queue struct {
	runner  Runner
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithJobTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewQueue(runner Runner, logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		runner:  runner,
		logger:  logger,
		workers: 2,
		timeout: 5 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("async.worker.started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					err := q.runner.RunJob(ctx, job.JobID, job.Source, job.Engine)
					cancel()

					if err != nil {
						q.logger.Error("async.job.failed",
							"worker_id", workerID, "job_id", job.JobID, "error", err)
					} else {
						q.logger.Info("async.job.ok",
							"worker_id", workerID, "job_id", job.JobID,
							"wait_ms", time.Since(job.SubmittedAt).Milliseconds())
					}
				}

				q.logger.Info("async.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue queues a job, blocking when the buffer is full. Enqueueing after
// Shutdown is a logged no-op.
func (q *Queue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("async.enqueue.rejected", "job_id", job.JobID)
		return nil
	}
	select {
	case q.ch <- job:
	default:
		q.logger.Warn("async.queue.full", "job_id", job.JobID)
		q.ch <- job
	}
	return nil
}

// Shutdown stops intake and waits for in-flight jobs, up to ctx's deadline.
func (q *Queue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-done:
		q.logger.Info("async.queue.drained")
	case <-ctx.Done():
		q.logger.Warn("async.queue.shutdown_timeout")
	}
}
