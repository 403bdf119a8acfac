package optimization

import (
	"context"
	"errors"
	"math"
	"math/rand"

	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/backtest"
	opterrors "github.com/ducminhle1904/crypto-strategy-optimizer/internal/errors"
	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/monitoring"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
)

const maxRecentErrors = 20

// tally collects the outcomes of one sequential stream of evaluations
type tally struct {
	pool        *ResultPool
	stats       *opterrors.ErrorStats
	evaluations int
	bestFitness float64
}

func newTally(sampleSize int) *tally {
	return &tally{
		pool:        NewResultPool(sampleSize + 1),
		stats:       opterrors.NewErrorStats(maxRecentErrors),
		bestFitness: math.Inf(-1),
	}
}

// record files one evaluation outcome. It returns an error only when the search must stop.
func (t *tally) record(ev *Evaluation, err error) error {
	t.evaluations++
	if err != nil {
		if opterrors.RecoveryActionFor(err) != opterrors.RecoveryActionSkip {
			return err
		}
		var optErr *opterrors.OptimizerError
		if errors.As(err, &optErr) {
			t.stats.RecordError(optErr)
			monitoring.RecordError(string(optErr.Category))
		}
		return nil
	}
	t.pool.Add(ev)
	if ev.Fitness > t.bestFitness {
		t.bestFitness = ev.Fitness
	}
	return nil
}

func (t *tally) merge(other *tally) {
	t.pool.Merge(other.pool)
	t.stats.Merge(other.stats)
	t.evaluations += other.evaluations
	if other.bestFitness > t.bestFitness {
		t.bestFitness = other.bestFitness
	}
}

// run is the state shared by a search method during one optimization
type run struct {
	config     OptimizationConfig
	base       *params.Configuration
	engine     *backtest.BacktestEngine
	evaluator  *Evaluator
	logger     Logger
	seed       int64
	onProgress ProgressFunc
	progress   *ProgressTracker
	tally      *tally
}

// rng returns the random stream of one search instance
func (r *run) rng(stream int) *rand.Rand {
	return rand.New(rand.NewSource(r.seed + int64(stream)*7919))
}

// trackProgress installs a tracker for the given instance budgets
func (r *run) trackProgress(budgets []int) *ProgressTracker {
	r.progress = NewProgressTracker(r.config.Method, budgets, r.onProgress)
	return r.progress
}

// startPool starts a worker pool for batch evaluation; the caller stops it
func (r *run) startPool(ctx context.Context) *backtest.WorkerPool {
	pool := backtest.NewWorkerPool(ctx, r.engine, r.config.MaxWorkers, 0)
	pool.Start()
	return pool
}

// recordBatch files the outcomes of a batch in candidate order
func (r *run) recordBatch(evals []*Evaluation, errs []error) error {
	for i := range evals {
		if err := r.tally.record(evals[i], errs[i]); err != nil {
			return err
		}
	}
	r.publishBest()
	return nil
}

func (r *run) publishBest() {
	if !math.IsInf(r.tally.bestFitness, -1) {
		monitoring.UpdateBestFitness(string(r.config.Method), r.tally.bestFitness)
	}
}

func cancelled(ctx context.Context, operation string) error {
	if err := ctx.Err(); err != nil {
		return opterrors.NewCancelledError("optimization", operation, err)
	}
	return nil
}
