package shardqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spiffler33/lean-insights/internal/model"
)

type noopJob struct{}

func (n noopJob) Run(ctx context.Context) error { return nil }

func TestShardExecutor_SubmitAndStop(t *testing.T) {
	t.Parallel()
	exec := NewShardExecutor(Config{})
	defer exec.Stop()

	if err := exec.Submit(context.Background(), "user-1", noopJob{}); err != nil {
		t.Fatalf("submit error: %v", err)
	}
}

func TestShardExecutor_FIFOOrdering(t *testing.T) {
	t.Parallel()
	exec := NewShardExecutor(Config{Shards: 4, QueueSize: 16})
	defer exec.Stop()

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	wg.Add(8)
	for i := 0; i < 8; i++ {
		v := i
		err := exec.Submit(context.Background(), "user-1", JobFunc(func(ctx context.Context) error {
			mu.Lock()
			order = append(order, v)
			mu.Unlock()
			wg.Done()
			return nil
		}))
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	wg.Wait()

	for i, v := range order {
		if v != i {
			t.Fatalf("order violated: got %v", order)
		}
	}
}

func TestShardExecutor_QueueFull(t *testing.T) {
	t.Parallel()
	exec := NewShardExecutor(Config{Shards: 1, QueueSize: 1, EnqueueTimeout: 10 * time.Millisecond})
	defer exec.Stop()

	blockCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var started int32
	_ = exec.Submit(context.Background(), "user-1", JobFunc(func(ctx context.Context) error {
		atomic.StoreInt32(&started, 1)
		<-blockCtx.Done()
		return nil
	}))
	for atomic.LoadInt32(&started) == 0 {
		time.Sleep(time.Millisecond)
	}

	// fills the single buffer slot
	_ = exec.Submit(context.Background(), "user-1", noopJob{})

	err := exec.Submit(context.Background(), "user-1", noopJob{})
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	var qfe *QueueFullError
	if !errors.As(err, &qfe) {
		t.Fatalf("expected *QueueFullError, got %T", err)
	}
	if qfe.Capacity != 1 {
		t.Fatalf("capacity = %d, want 1", qfe.Capacity)
	}
}

func TestShardExecutor_SubmitAfterStop(t *testing.T) {
	t.Parallel()
	exec := NewShardExecutor(Config{})
	exec.Stop()

	if err := exec.Submit(context.Background(), "user-1", noopJob{}); !errors.Is(err, ErrExecutorClosed) {
		t.Fatalf("expected ErrExecutorClosed, got %v", err)
	}
}

func TestShardExecutor_Barrier(t *testing.T) {
	t.Parallel()
	exec := NewShardExecutor(Config{Shards: 2, QueueSize: 8})
	defer exec.Stop()

	var done int32
	for i := 0; i < 4; i++ {
		_ = exec.Submit(context.Background(), "user-1", JobFunc(func(ctx context.Context) error {
			atomic.AddInt32(&done, 1)
			return nil
		}))
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := exec.Barrier(ctx, "user-1"); err != nil {
		t.Fatalf("barrier: %v", err)
	}
	if got := atomic.LoadInt32(&done); got != 4 {
		t.Fatalf("barrier returned before jobs finished: %d/4", got)
	}
}

func TestShardExecutor_RetriesRecoverableErrors(t *testing.T) {
	t.Parallel()
	exec := NewShardExecutor(Config{Shards: 1, BaseBackoff: time.Millisecond, MaxAttempts: 4})
	defer exec.Stop()

	var attempts int32
	done := make(chan struct{})
	_ = exec.Submit(context.Background(), "user-1", JobFunc(func(ctx context.Context) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return fmt.Errorf("transient store failure")
		}
		close(done)
		return nil
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}
}

func TestShardExecutor_IrrecoverableErrorsDeadLetterImmediately(t *testing.T) {
	t.Parallel()

	errCh := make(chan error, 1)
	exec := NewShardExecutor(Config{
		Shards:       1,
		BaseBackoff:  time.Millisecond,
		MaxAttempts:  5,
		ErrorHandler: func(err error) { errCh <- err },
	})
	defer exec.Stop()

	var attempts int32
	_ = exec.Submit(context.Background(), "user-1", JobFunc(func(ctx context.Context) error {
		atomic.AddInt32(&attempts, 1)
		return fmt.Errorf("load pattern: %w", model.ErrValidation)
	}))

	select {
	case err := <-errCh:
		if !errors.Is(err, model.ErrValidation) {
			t.Fatalf("handler got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("error handler never called")
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Fatalf("attempts = %d, want 1 (no retries)", got)
	}
}

func TestShardExecutor_WorkerSurvivesJobPanic(t *testing.T) {
	t.Parallel()
	exec := NewShardExecutor(Config{Shards: 1, QueueSize: 8})
	defer exec.Stop()

	err := exec.Submit(context.Background(), "user-1", JobFunc(func(ctx context.Context) error {
		panic("boom")
	}))
	if err != nil {
		t.Fatalf("submit panicking job: %v", err)
	}

	var ran int32
	err = exec.Submit(context.Background(), "user-1", JobFunc(func(ctx context.Context) error {
		atomic.StoreInt32(&ran, 1)
		return nil
	}))
	if err != nil {
		t.Fatalf("submit after panic: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := exec.Barrier(ctx, "user-1"); err != nil {
		t.Fatalf("shard did not come back after panic: %v", err)
	}
	if atomic.LoadInt32(&ran) != 1 {
		t.Fatal("job after panic never ran")
	}
}

func TestShardExecutor_StopDrainsQueuedJobs(t *testing.T) {
	t.Parallel()
	exec := NewShardExecutor(Config{Shards: 1, QueueSize: 32})

	var done int32
	for i := 0; i < 10; i++ {
		if err := exec.Submit(context.Background(), "user-1", JobFunc(func(ctx context.Context) error {
			atomic.AddInt32(&done, 1)
			return nil
		})); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	exec.Stop()

	if got := atomic.LoadInt32(&done); got != 10 {
		t.Fatalf("drained %d/10 jobs", got)
	}
}
