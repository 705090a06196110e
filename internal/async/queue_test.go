package async

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeRunner struct {
	mu   sync.Mutex
	seen []uuid.UUID
	done chan struct{}
}

func (f *fakeRunner) RunJob(_ context.Context, jobID uuid.UUID, _, _ string) error {
	f.mu.Lock()
	f.seen = append(f.seen, jobID)
	n := len(f.seen)
	f.mu.Unlock()
	if f.done != nil && n == cap(f.seen) {
		close(f.done)
	}
	return nil
}

func TestQueueProcessesJobs(t *testing.T) {
	runner := &fakeRunner{seen: make([]uuid.UUID, 0, 3), done: make(chan struct{})}
	q := NewQueue(runner, nil, WithWorkers(2), WithQueueSize(8))

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		if err := q.Enqueue(context.Background(), Job{JobID: id, Source: "x.pdf", SubmittedAt: time.Now()}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	select {
	case <-runner.done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs not processed in time")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q.Shutdown(ctx)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.seen) != 3 {
		t.Errorf("processed = %d, want 3", len(runner.seen))
	}
}

func TestQueueEnqueueAfterShutdown(t *testing.T) {
	runner := &fakeRunner{}
	q := NewQueue(runner, nil, WithWorkers(1))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q.Shutdown(ctx)

	// must not panic on the closed channel
	if err := q.Enqueue(context.Background(), Job{JobID: uuid.New()}); err != nil {
		t.Errorf("Enqueue after shutdown: %v", err)
	}
}

func TestQueueShutdownIdempotent(t *testing.T) {
	q := NewQueue(&fakeRunner{}, nil, WithWorkers(1))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q.Shutdown(ctx)
	q.Shutdown(ctx)
}
