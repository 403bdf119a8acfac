package optimization

import (
	"context"
	"fmt"
	"time"

	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/backtest"
	opterrors "github.com/ducminhle1904/crypto-strategy-optimizer/internal/errors"
	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/monitoring"
	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/strategy"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

// Evaluation is a valid, scored candidate
type Evaluation struct {
	Candidate *params.Configuration
	Results   *backtest.BacktestResults
	Fitness   float64
}

// Evaluator turns a candidate into a scored backtest. It is safe for concurrent use.
type Evaluator struct {
	engine      *backtest.BacktestEngine
	data        []types.OHLCV
	maxDrawdown float64
}

// NewEvaluator creates an evaluator over a fixed bar sequence. maxDrawdown (percent) is the
// validity ceiling; <= 0 disables it.
func NewEvaluator(engine *backtest.BacktestEngine, data []types.OHLCV, maxDrawdown float64) *Evaluator {
	return &Evaluator{engine: engine, data: data, maxDrawdown: maxDrawdown}
}

// InitialBalance returns the account size fitness is normalized by
func (e *Evaluator) InitialBalance() float64 {
	return e.engine.Config().InitialBalance
}

// Evaluate backtests one candidate. Recoverable failures come back as EVALUATION or
// INVALID_RESULT errors; a panic anywhere in the pipeline is converted to EVALUATION.
func (e *Evaluator) Evaluate(ctx context.Context, candidate *params.Configuration) (ev *Evaluation, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			ev = nil
			err = opterrors.NewEvaluationError("optimization", "Evaluate", fmt.Errorf("panic: %v", r))
		}
		recordOutcome(err, time.Since(start))
	}()

	strat, err := strategy.Build(candidate)
	if err != nil {
		return nil, err
	}
	results, err := e.engine.Run(ctx, e.data, strat)
	if err != nil {
		return nil, err
	}
	return e.score(candidate, results)
}

// EvaluateBatch backtests candidates in parallel on the pool and returns, per candidate, either an
// evaluation or an error. The returned error is set only when the batch itself failed.
func (e *Evaluator) EvaluateBatch(pool *backtest.WorkerPool, candidates []*params.Configuration) ([]*Evaluation, []error, error) {
	jobs := make([]backtest.BacktestJob, len(candidates))
	for i, c := range candidates {
		candidate := c
		jobs[i] = backtest.BacktestJob{
			ID:   i,
			Data: e.data,
			Build: func() (strategy.Strategy, error) {
				s, err := strategy.Build(candidate)
				if err != nil {
					return nil, err
				}
				return s, nil
			},
		}
	}

	results, err := pool.RunBatch(jobs)
	if err != nil {
		return nil, nil, err
	}

	evals := make([]*Evaluation, len(candidates))
	errs := make([]error, len(candidates))
	for i, r := range results {
		if r.Error != nil {
			errs[i] = r.Error
		} else {
			evals[i], errs[i] = e.score(candidates[i], r.Results)
		}
		recordOutcome(errs[i], r.Duration)
	}
	return evals, errs, nil
}

func (e *Evaluator) score(candidate *params.Configuration, results *backtest.BacktestResults) (*Evaluation, error) {
	if err := backtest.Validate(results, e.maxDrawdown); err != nil {
		return nil, err
	}
	return &Evaluation{
		Candidate: candidate.Clone(),
		Results:   results,
		Fitness:   Fitness(results, e.InitialBalance()),
	}, nil
}

func recordOutcome(err error, elapsed time.Duration) {
	switch {
	case err == nil:
		monitoring.RecordEvaluation(monitoring.OutcomeValid, elapsed)
	case opterrors.HasCategory(err, opterrors.ErrorCategoryInvalidResult):
		monitoring.RecordEvaluation(monitoring.OutcomeInvalid, elapsed)
	default:
		monitoring.RecordEvaluation(monitoring.OutcomeError, elapsed)
	}
}
