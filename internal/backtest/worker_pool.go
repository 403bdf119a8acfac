package backtest

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	opterrors "github.com/ducminhle1904/crypto-strategy-optimizer/internal/errors"
	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/strategy"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

// WorkerPool manages parallel backtest execution
type WorkerPool struct {
	workerCount int
	engine      *BacktestEngine
	jobQueue    chan BacktestJob
	resultQueue chan BacktestResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	batchMu     sync.Mutex
}

// BacktestJob represents a single backtest task. Build is called on the worker goroutine
// so strategy construction runs in parallel too.
type BacktestJob struct {
	ID    int
	Data  []types.OHLCV
	Build func() (strategy.Strategy, error)
}

// BacktestResult represents the result of a backtest job
type BacktestResult struct {
	ID       int
	Results  *BacktestResults
	Duration time.Duration
	Error    error
}

// NewWorkerPool creates a new worker pool for parallel backtesting.
// The pool stops accepting work when ctx is cancelled.
func NewWorkerPool(ctx context.Context, engine *BacktestEngine, workerCount int, jobBufferSize int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if jobBufferSize <= 0 {
		jobBufferSize = workerCount * 2
	}

	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		workerCount: workerCount,
		engine:      engine,
		jobQueue:    make(chan BacktestJob, jobBufferSize),
		resultQueue: make(chan BacktestResult, jobBufferSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// WorkerCount returns the number of workers
func (wp *WorkerPool) WorkerCount() int {
	return wp.workerCount
}

// Start starts the worker pool
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop stops the worker pool gracefully
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// SubmitJob submits a backtest job to the pool
func (wp *WorkerPool) SubmitJob(job BacktestJob) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// GetResults returns the result channel for collecting completed jobs
func (wp *WorkerPool) GetResults() <-chan BacktestResult {
	return wp.resultQueue
}

// RunBatch evaluates every job and returns the results in job order. It returns only after
// all submitted jobs have completed, which makes it a barrier between batches.
// Batches are serialized; the pool must be started.
func (wp *WorkerPool) RunBatch(jobs []BacktestJob) ([]BacktestResult, error) {
	wp.batchMu.Lock()
	defer wp.batchMu.Unlock()

	index := make(map[int]int, len(jobs))
	for i, job := range jobs {
		if _, dup := index[job.ID]; dup {
			return nil, fmt.Errorf("duplicate job id %d in batch", job.ID)
		}
		index[job.ID] = i
	}

	submitted := make(chan int, 1)
	go func() {
		n := 0
		for _, job := range jobs {
			if err := wp.SubmitJob(job); err != nil {
				break
			}
			n++
		}
		submitted <- n
	}()

	results := make([]BacktestResult, len(jobs))
	received := 0
	expected := -1
	for expected < 0 || received < expected {
		select {
		case n := <-submitted:
			expected = n
		case result := <-wp.resultQueue:
			results[index[result.ID]] = result
			received++
		case <-wp.ctx.Done():
			// the submitter must be gone before Stop closes the job queue
			if expected < 0 {
				<-submitted
			}
			return nil, opterrors.NewCancelledError("backtest", "RunBatch", wp.ctx.Err())
		}
	}

	if expected < len(jobs) {
		return nil, opterrors.NewCancelledError("backtest", "RunBatch", wp.ctx.Err())
	}
	return results, nil
}

// worker processes backtest jobs
func (wp *WorkerPool) worker(workerID int) {
	defer wp.wg.Done()

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				return // Channel closed, worker should exit
			}

			result := wp.processJob(job)

			select {
			case wp.resultQueue <- result:
			case <-wp.ctx.Done():
				return
			}

		case <-wp.ctx.Done():
			return
		}
	}
}

// processJob processes a single backtest job. A panic is reported as an evaluation error.
func (wp *WorkerPool) processJob(job BacktestJob) (result BacktestResult) {
	startTime := time.Now()
	result.ID = job.ID

	defer func() {
		if r := recover(); r != nil {
			result.Results = nil
			result.Error = opterrors.NewEvaluationError("backtest", "processJob", fmt.Errorf("panic: %v", r))
		}
		result.Duration = time.Since(startTime)
	}()

	strat, err := job.Build()
	if err != nil {
		result.Error = err
		return result
	}

	results, err := wp.engine.Run(wp.ctx, job.Data, strat)
	if err != nil {
		result.Error = err
		return result
	}
	result.Results = results
	return result
}
