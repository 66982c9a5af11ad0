// Package pool runs jobs across a fixed number of workers.
package pool

import (
	"context"
	"sync"
	"time"

	"linkstash/pkg/errors"
	"linkstash/pkg/logger"
	"linkstash/pkg/ratelimit"
)

// ProcessFunc handles a single job
type ProcessFunc[J, R any] func(ctx context.Context, job J) (R, error)

// Result is the outcome of one job
type Result[J, R any] struct {
	Job      J
	Value    R
	Err      error
	Duration time.Duration
}

// Options configures a WorkerPool
type Options struct {
	Workers int
	Limiter ratelimit.Limiter
	Logger  logger.Logger
}

// WorkerPool manages concurrent workers
type WorkerPool[J, R any] struct {
	numWorkers  int
	jobQueue    chan J
	resultQueue chan Result[J, R]
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	process     ProcessFunc[J, R]
	rateLimiter ratelimit.Limiter
	logger      logger.Logger
	stopOnce    sync.Once
}

// New creates a worker pool bound to ctx. Cancelling ctx aborts queued jobs.
func New[J, R any](ctx context.Context, process ProcessFunc[J, R], opts Options) *WorkerPool[J, R] {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool[J, R]{
		numWorkers:  opts.Workers,
		jobQueue:    make(chan J, opts.Workers*2),
		resultQueue: make(chan Result[J, R], opts.Workers),
		ctx:         ctx,
		cancel:      cancel,
		process:     process,
		rateLimiter: opts.Limiter,
		logger:      opts.Logger,
	}
}

// Start launches the workers
func (wp *WorkerPool[J, R]) Start() {
	wp.logger.InfoWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue, waits for in-flight jobs and closes Results.
func (wp *WorkerPool[J, R]) Stop() {
	wp.stopOnce.Do(func() {
		close(wp.jobQueue)
		wp.wg.Wait()
		close(wp.resultQueue)
		wp.cancel()
		wp.logger.Info("Worker pool stopped")
	})
}

// Submit queues a job. It blocks while the queue is full.
func (wp *WorkerPool[J, R]) Submit(job J) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return errors.Wrap(errors.ErrorTypeUnknown, "worker pool is shutting down", wp.ctx.Err())
	}
}

// Results streams job outcomes until Stop
func (wp *WorkerPool[J, R]) Results() <-chan Result[J, R] {
	return wp.resultQueue
}

// QueueSize returns the number of jobs waiting
func (wp *WorkerPool[J, R]) QueueSize() int {
	return len(wp.jobQueue)
}

func (wp *WorkerPool[J, R]) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		result := wp.run(job, id)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			wp.logger.DebugWithFields("Worker stopping - context cancelled while sending result", map[string]interface{}{
				"worker_id": id,
			})
			return
		}
	}
}

func (wp *WorkerPool[J, R]) run(job J, workerID int) Result[J, R] {
	start := time.Now()
	result := Result[J, R]{Job: job}

	if err := wp.ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	if wp.rateLimiter != nil && !wp.rateLimiter.Allow() {
		wp.logger.DebugWithFields("Worker waiting for rate limit", map[string]interface{}{
			"worker_id": workerID,
		})
		if err := wp.rateLimiter.Wait(wp.ctx); err != nil {
			result.Err = err
			return result
		}
	}

	result.Value, result.Err = wp.process(wp.ctx, job)
	result.Duration = time.Since(start)

	if result.Err != nil {
		wp.logger.ErrorWithFields("Worker job failed", map[string]interface{}{
			"worker_id": workerID,
			"error":     result.Err.Error(),
			"duration":  result.Duration,
		})
	} else {
		wp.logger.DebugWithFields("Worker completed job", map[string]interface{}{
			"worker_id": workerID,
			"duration":  result.Duration,
		})
	}
	return result
}

// Run processes jobs with a temporary pool and returns the results in
// submission order.
func Run[J, R any](ctx context.Context, jobs []J, process ProcessFunc[J, R], opts Options) []Result[J, R] {
	type indexed struct {
		i   int
		job J
	}
	wp := New(ctx, func(ctx context.Context, in indexed) (R, error) {
		return process(ctx, in.job)
	}, opts)
	wp.Start()

	out := make([]Result[J, R], len(jobs))
	seen := make([]bool, len(jobs))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range wp.Results() {
			out[r.Job.i] = Result[J, R]{Job: r.Job.job, Value: r.Value, Err: r.Err, Duration: r.Duration}
			seen[r.Job.i] = true
		}
	}()

	for i, job := range jobs {
		if err := wp.Submit(indexed{i: i, job: job}); err != nil {
			for j := i; j < len(jobs); j++ {
				out[j] = Result[J, R]{Job: jobs[j], Err: err}
			}
			break
		}
	}
	wp.Stop()
	<-done

	// Jobs dropped by a cancelled worker never report back.
	for i := range out {
		if !seen[i] && out[i].Err == nil {
			out[i] = Result[J, R]{Job: jobs[i], Err: errors.Wrap(errors.ErrorTypeUnknown, "job not processed", context.Cause(ctx))}
		}
	}
	return out
}
