package optimization

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/backtest"
	opterrors "github.com/ducminhle1904/crypto-strategy-optimizer/internal/errors"
	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/strategy"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

// Optimizer searches the parameter space of a strategy configuration for the most
// profitable valid backtest
type Optimizer struct {
	config   OptimizationConfig
	base     *params.Configuration
	engine   *backtest.BacktestEngine
	data     []types.OHLCV
	logger   Logger
	progress ProgressFunc
}

// Option customizes an Optimizer
type Option func(*Optimizer)

// WithLogger sets the logger; the default writes through the standard logger
func WithLogger(l Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithProgress sets the progress callback
func WithProgress(fn ProgressFunc) Option {
	return func(o *Optimizer) {
		o.progress = fn
	}
}

// NewOptimizer validates the inputs and creates an optimizer. base defines the indicators,
// their roles and the searched ranges; its current values are only a starting point.
func NewOptimizer(config OptimizationConfig, base *params.Configuration, engine *backtest.BacktestEngine, data []types.OHLCV, opts ...Option) (*Optimizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if engine == nil {
		return nil, opterrors.NewConfigurationError("optimization", "NewOptimizer", "no backtest engine")
	}
	if _, err := strategy.Build(base); err != nil {
		return nil, err
	}
	if warmup := engine.Config().WarmupBars; len(data) <= warmup {
		return nil, opterrors.NewConfigurationError("optimization", "NewOptimizer",
			fmt.Sprintf("insufficient bar history: %d bars for %d warm-up bars", len(data), warmup))
	}

	o := &Optimizer{
		config: config,
		base:   base.Clone(),
		engine: engine,
		data:   data,
		logger: stdLogger{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Config returns the search settings
func (o *Optimizer) Config() OptimizationConfig {
	return o.config
}

// TotalCombinations returns the grid size of the searched space
func (o *Optimizer) TotalCombinations() uint64 {
	return o.base.PermutationCount()
}

// Optimize runs the configured search. Candidates failing evaluation or validation are skipped;
// configuration errors and cancellation end the run with an error. A run without any valid
// candidate returns an empty result.
func (o *Optimizer) Optimize(ctx context.Context) (*OptimizationResult, error) {
	started := time.Now()
	seed := o.config.Seed
	if seed == 0 {
		seed = started.UnixNano()
	}

	r := &run{
		config:     o.config,
		base:       o.base,
		engine:     o.engine,
		evaluator:  NewEvaluator(o.engine, o.data, o.config.MaxDrawdown),
		logger:     o.logger,
		seed:       seed,
		onProgress: o.progress,
		tally:      newTally(o.config.SampleSize),
	}

	var s searcher
	switch o.config.Method {
	case MethodSwarm:
		s = swarmSearch{}
	case MethodExhaustive:
		s = exhaustiveSearch{}
	case MethodGenetic:
		s = geneticSearch{}
	default:
		s = annealingSearch{}
	}

	runID := uuid.NewString()
	o.logger.Info("🚀 Optimization %s: method=%s bars=%d combinations=%d seed=%d",
		runID, o.config.Method, len(o.data), o.base.PermutationCount(), seed)

	if err := s.search(ctx, r); err != nil {
		o.logger.Error("Optimization %s stopped: %v", runID, err)
		return nil, err
	}

	result := buildResult(r, runID, o.engine.Config().Timeframe, time.Since(started))
	if strat, err := strategy.Build(o.base); err == nil {
		result.StrategyName = strat.GetName()
	}

	if result.Empty() {
		o.logger.Warning("No valid candidate after %d evaluations (%d recovered errors)",
			result.Evaluations, result.RecoveredErrors)
	} else {
		o.logger.Info("✅ Optimization complete: net profit $%.2f, fitness %.4f, %d evaluations in %s",
			result.BestResult.NetProfit, result.BestFitness, result.Evaluations, result.Duration.Round(time.Millisecond))
	}
	return result, nil
}
