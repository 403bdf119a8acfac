package validation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/backtest"
	opterrors "github.com/ducminhle1904/crypto-strategy-optimizer/internal/errors"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/optimization"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

// Overfitting risk levels
const (
	RiskLow      = "LOW"
	RiskModerate = "MODERATE"
	RiskHigh     = "HIGH"
)

// Return degradation thresholds in percent of the training return
const (
	moderateDegradation = 15.0
	highDegradation     = 30.0
)

// OptimizeFunc searches the training bars of one fold
type OptimizeFunc func(ctx context.Context, bars []types.OHLCV) (*optimization.OptimizationResult, error)

// BacktestFunc replays one configuration over the test bars of a fold
type BacktestFunc func(ctx context.Context, cfg *params.Configuration, bars []types.OHLCV) (*backtest.BacktestResults, error)

// FoldResult is the in-sample and out-of-sample outcome of one fold. Results are nil when
// the training search found no valid candidate.
type FoldResult struct {
	Fold          int                       `json:"fold"`
	TrainStart    time.Time                 `json:"train_start"`
	TrainEnd      time.Time                 `json:"train_end"`
	TestStart     time.Time                 `json:"test_start"`
	TestEnd       time.Time                 `json:"test_end"`
	TrainBars     int                       `json:"train_bars"`
	TestBars      int                       `json:"test_bars"`
	BestCandidate []params.Descriptor       `json:"best_candidate"`
	TrainFitness  float64                   `json:"train_fitness"`
	TrainResults  *backtest.BacktestResults `json:"train_results"`
	TestResults   *backtest.BacktestResults `json:"test_results"`
}

// Evaluated reports whether the fold produced a tested candidate
func (f FoldResult) Evaluated() bool {
	return f.TrainResults != nil && f.TestResults != nil
}

// Summary aggregates all folds. Returns and drawdowns are percentages averaged over the
// evaluated folds.
type Summary struct {
	Mode                 string       `json:"mode"`
	Folds                []FoldResult `json:"folds"`
	SkippedFolds         int          `json:"skipped_folds"`
	AverageTrainReturn   float64      `json:"average_train_return"`
	AverageTestReturn    float64      `json:"average_test_return"`
	TrainReturnStdDev    float64      `json:"train_return_std_dev"`
	TestReturnStdDev     float64      `json:"test_return_std_dev"`
	AverageTrainDrawdown float64      `json:"average_train_drawdown"`
	AverageTestDrawdown  float64      `json:"average_test_drawdown"`
	ReturnDegradation    float64      `json:"return_degradation"`
	IsRobust             bool         `json:"is_robust"`
	OverfittingRisk      string       `json:"overfitting_risk"`
}

// Validator runs walk-forward validation
type Validator struct {
	config   Config
	splitter *Splitter
	optimize OptimizeFunc
	backtest BacktestFunc
	logger   optimization.Logger
}

// NewValidator creates a validator. The splitter decides the minimum window sizes.
func NewValidator(config Config, splitter *Splitter, optimize OptimizeFunc, backtest BacktestFunc) *Validator {
	return &Validator{
		config:   config,
		splitter: splitter,
		optimize: optimize,
		backtest: backtest,
		logger:   optimization.NopLogger(),
	}
}

// WithLogger sets the logger receiving per-fold progress
func (v *Validator) WithLogger(l optimization.Logger) *Validator {
	if l != nil {
		v.logger = l
	}
	return v
}

// Folds returns the folds the configured scheme cuts from bars
func (v *Validator) Folds(bars []types.OHLCV) []Fold {
	if v.config.Rolling {
		return v.splitter.RollingFolds(bars, v.config.TrainDays, v.config.TestDays, v.config.RollDays)
	}
	if fold, ok := v.splitter.SplitByRatio(bars, v.config.SplitRatio); ok {
		return []Fold{fold}
	}
	return nil
}

// Validate optimizes every training window and backtests the winner on the following test
// window. Folds without a valid candidate are counted as skipped.
func (v *Validator) Validate(ctx context.Context, bars []types.OHLCV) (*Summary, error) {
	if err := v.config.Validate(); err != nil {
		return nil, err
	}
	folds := v.Folds(bars)
	if len(folds) == 0 {
		return nil, opterrors.NewConfigurationError("validation", "Validate",
			fmt.Sprintf("%d bars are not enough for %s walk-forward folds of at least %d/%d bars",
				len(bars), v.config.Mode(), v.splitter.MinTrainBars, v.splitter.MinTestBars))
	}
	v.logger.Info("🔄 Walk-forward validation: mode=%s folds=%d", v.config.Mode(), len(folds))

	summary := &Summary{Mode: v.config.Mode(), Folds: make([]FoldResult, 0, len(folds))}
	for _, fold := range folds {
		if err := ctx.Err(); err != nil {
			return nil, opterrors.NewCancelledError("validation", "Validate", err)
		}
		result, err := v.runFold(ctx, fold, len(folds))
		if err != nil {
			return nil, err
		}
		if !result.Evaluated() {
			summary.SkippedFolds++
		}
		summary.Folds = append(summary.Folds, result)
	}

	summarize(summary)
	v.logger.Info("📊 Walk-forward: train %.2f%%, test %.2f%%, degradation %.1f%%, overfitting risk %s",
		summary.AverageTrainReturn, summary.AverageTestReturn, summary.ReturnDegradation, summary.OverfittingRisk)
	return summary, nil
}

func (v *Validator) runFold(ctx context.Context, fold Fold, total int) (FoldResult, error) {
	result := FoldResult{
		Fold:          fold.Index,
		TrainStart:    fold.TrainStart,
		TrainEnd:      fold.TrainEnd,
		TestStart:     fold.TestStart,
		TestEnd:       fold.TestEnd,
		TrainBars:     len(fold.Train),
		TestBars:      len(fold.Test),
		BestCandidate: []params.Descriptor{},
	}
	v.logger.Info("📊 Fold %d/%d: train %s → %s, test %s → %s", fold.Index, total,
		fold.TrainStart.Format("2006-01-02"), fold.TrainEnd.Format("2006-01-02"),
		fold.TestStart.Format("2006-01-02"), fold.TestEnd.Format("2006-01-02"))

	trained, err := v.optimize(ctx, fold.Train)
	if err != nil {
		return FoldResult{}, foldError(err, fold.Index)
	}
	if trained == nil || trained.Empty() || trained.BestConfiguration == nil {
		v.logger.Warning("Fold %d: no valid candidate on the training window", fold.Index)
		return result, nil
	}

	tested, err := v.backtest(ctx, trained.BestConfiguration, fold.Test)
	if err != nil {
		return FoldResult{}, foldError(err, fold.Index)
	}

	result.BestCandidate = trained.BestCandidate
	result.TrainFitness = trained.BestFitness
	result.TrainResults = trained.BestResult
	result.TestResults = tested
	v.logger.Info("  Train: %.2f%% return, %.2f%% drawdown | Test: %.2f%% return, %.2f%% drawdown",
		trained.BestResult.TotalReturn*100, trained.BestResult.MaxDrawdown,
		tested.TotalReturn*100, tested.MaxDrawdown)
	return result, nil
}

// foldError keeps the category of err so cancellation stays recognizable
func foldError(err error, fold int) error {
	category := opterrors.CategoryOf(err)
	if category == "" {
		category = opterrors.ErrorCategoryEvaluation
	}
	return opterrors.WrapError(err, category, "validation", "runFold").WithContext("fold", fold)
}

// summarize fills the averages and the overfitting verdict from the evaluated folds
func summarize(s *Summary) {
	var trainReturns, testReturns, trainDrawdowns, testDrawdowns []float64
	for _, f := range s.Folds {
		if !f.Evaluated() {
			continue
		}
		trainReturns = append(trainReturns, f.TrainResults.TotalReturn*100)
		testReturns = append(testReturns, f.TestResults.TotalReturn*100)
		trainDrawdowns = append(trainDrawdowns, f.TrainResults.MaxDrawdown)
		testDrawdowns = append(testDrawdowns, f.TestResults.MaxDrawdown)
	}
	if len(trainReturns) == 0 {
		s.OverfittingRisk = RiskHigh
		return
	}

	s.AverageTrainReturn = average(trainReturns)
	s.AverageTestReturn = average(testReturns)
	s.TrainReturnStdDev = stdDev(trainReturns)
	s.TestReturnStdDev = stdDev(testReturns)
	s.AverageTrainDrawdown = average(trainDrawdowns)
	s.AverageTestDrawdown = average(testDrawdowns)
	s.ReturnDegradation = (s.AverageTrainReturn - s.AverageTestReturn) /
		math.Max(0.01, math.Abs(s.AverageTrainReturn)) * 100

	switch {
	case s.ReturnDegradation > highDegradation:
		s.OverfittingRisk = RiskHigh
	case s.ReturnDegradation > moderateDegradation:
		s.OverfittingRisk = RiskModerate
	default:
		s.OverfittingRisk = RiskLow
	}
	s.IsRobust = s.ReturnDegradation <= highDegradation
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the sample standard deviation, 0 below two values
func stdDev(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	avg := average(values)
	sumSquares := 0.0
	for _, v := range values {
		d := v - avg
		sumSquares += d * d
	}
	return math.Sqrt(sumSquares / float64(len(values)-1))
}
