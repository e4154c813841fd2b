package worker

import (
	"context"
	"sync"
)

type Job interface{}

type ProcessFunc func(ctx context.Context, job Job) error

// Failure records a job whose processor returned an error, or that was
// skipped because the context ended first.
type Failure struct {
	Job Job
	Err error
}

type WorkerPool struct {
	numWorkers int
	jobs       chan Job
	processor  ProcessFunc
	wg         sync.WaitGroup

	mu       sync.Mutex
	failures []Failure
}

func NewWorkerPool(numWorkers int, bufferSize int, processor ProcessFunc) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkerPool{
		numWorkers: numWorkers,
		jobs:       make(chan Job, bufferSize),
		processor:  processor,
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 1; i <= wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// worker drains the queue until Stop closes it. Once ctx is done the
// remaining jobs are recorded as failures instead of processed, so every
// submitted job is accounted for.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	for job := range wp.jobs {
		if err := ctx.Err(); err != nil {
			wp.fail(job, err)
			continue
		}
		if err := wp.processor(ctx, job); err != nil {
			wp.fail(job, err)
		}
	}
}

func (wp *WorkerPool) fail(job Job, err error) {
	wp.mu.Lock()
	wp.failures = append(wp.failures, Failure{Job: job, Err: err})
	wp.mu.Unlock()
}

func (wp *WorkerPool) Submit(job Job) {
	wp.jobs <- job
}

// Stop closes the queue, waits for the workers and returns every failure.
func (wp *WorkerPool) Stop() []Failure {
	close(wp.jobs)
	wp.wg.Wait()

	wp.mu.Lock()
	defer wp.mu.Unlock()
	return wp.failures
}

// Run processes jobs on a fresh pool of numWorkers and returns the failures.
func Run(ctx context.Context, numWorkers int, jobs []Job, processor ProcessFunc) []Failure {
	pool := NewWorkerPool(numWorkers, len(jobs), processor)
	pool.Start(ctx)
	for _, job := range jobs {
		pool.Submit(job)
	}
	return pool.Stop()
}
