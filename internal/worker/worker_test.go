package worker

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWorkerPool_StartStop(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job Job) error {
		processed.Add(1)
		return nil
	}

	pool := NewWorkerPool(2, 10, processor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	for i := 0; i < 5; i++ {
		pool.Submit(i)
	}

	failures := pool.Stop()

	if processed.Load() != 5 {
		t.Errorf("expected 5 jobs processed, got %d", processed.Load())
	}
	if len(failures) != 0 {
		t.Errorf("expected no failures, got %d", len(failures))
	}
}

func TestWorkerPool_ConcurrentSubmit(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job Job) error {
		processed.Add(1)
		return nil
	}

	pool := NewWorkerPool(4, 100, processor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	done := make(chan struct{})
	for i := 0; i < 100; i++ {
		go func(n int) {
			pool.Submit(n)
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 100; i++ {
		<-done
	}

	pool.Stop()

	if processed.Load() != 100 {
		t.Errorf("expected 100 jobs processed, got %d", processed.Load())
	}
}

func TestWorkerPool_CollectsFailures(t *testing.T) {
	errOdd := errors.New("odd job")
	processor := func(ctx context.Context, job Job) error {
		if job.(int)%2 == 1 {
			return errOdd
		}
		return nil
	}

	jobs := make([]Job, 0, 10)
	for i := 0; i < 10; i++ {
		jobs = append(jobs, i)
	}

	failures := Run(context.Background(), 3, jobs, processor)

	if len(failures) != 5 {
		t.Fatalf("expected 5 failures, got %d", len(failures))
	}
	got := make([]int, 0, len(failures))
	for _, f := range failures {
		if !errors.Is(f.Err, errOdd) {
			t.Errorf("unexpected error: %v", f.Err)
		}
		got = append(got, f.Job.(int))
	}
	sort.Ints(got)
	for i, n := range []int{1, 3, 5, 7, 9} {
		if got[i] != n {
			t.Errorf("expected failed job %d, got %d", n, got[i])
		}
	}
}

func TestWorkerPool_CancelledContextAccountsForEveryJob(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job Job) error {
		processed.Add(1)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := []Job{1, 2, 3, 4}
	failures := Run(ctx, 2, jobs, processor)

	if processed.Load() != 0 {
		t.Errorf("expected no jobs processed after cancel, got %d", processed.Load())
	}
	if len(failures) != len(jobs) {
		t.Fatalf("expected %d failures, got %d", len(jobs), len(failures))
	}
	for _, f := range failures {
		if !errors.Is(f.Err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", f.Err)
		}
	}
}

func TestWorkerPool_GracefulShutdown(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job Job) error {
		time.Sleep(10 * time.Millisecond)
		processed.Add(1)
		return nil
	}

	pool := NewWorkerPool(2, 50, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for i := 0; i < 20; i++ {
		pool.Submit(i)
	}

	cancel()

	done := make(chan []Failure)
	go func() {
		done <- pool.Stop()
	}()

	select {
	case failures := <-done:
		if int(processed.Load())+len(failures) != 20 {
			t.Errorf("expected processed+failed = 20, got %d+%d", processed.Load(), len(failures))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pool.Stop() timed out")
	}
}

func TestNewWorkerPool_ClampsWorkerCount(t *testing.T) {
	pool := NewWorkerPool(0, 1, func(ctx context.Context, job Job) error { return nil })
	if pool.numWorkers != 1 {
		t.Errorf("expected 1 worker, got %d", pool.numWorkers)
	}
}
