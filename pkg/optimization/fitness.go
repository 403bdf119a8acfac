package optimization

import (
	"math"

	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/backtest"
)

// Fitness weights
const (
	weightProfitFactor = 3.0
	weightReturn       = 1.0
	weightWinRate      = 2.0
	weightSharpe       = 2.0
	weightDrawdown     = 1.0
	sharpeCap          = 3.0
)

// Fitness scores a backtest; higher is better. Non-finite components count as zero.
func Fitness(r *backtest.BacktestResults, initialBalance float64) float64 {
	if r == nil || initialBalance <= 0 {
		return 0
	}
	dd := r.MaxDrawdown / 100
	return weightProfitFactor*finite(r.ProfitFactor) +
		weightReturn*finite(r.NetProfit/initialBalance) +
		weightWinRate*finite(r.WinRate) +
		weightSharpe*finite(math.Min(r.SharpeRatio, sharpeCap)) -
		weightDrawdown*finite(dd*dd)
}

// Energy is the negated fitness minimized by annealing
func Energy(r *backtest.BacktestResults, initialBalance float64) float64 {
	return -Fitness(r, initialBalance)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
