package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	opterrors "github.com/ducminhle1904/crypto-strategy-optimizer/internal/errors"
	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/strategy"
)

func TestBacktestResults_Metrics(t *testing.T) {
	results := &BacktestResults{
		StartBalance: 1000,
		EndBalance:   1030,
		Trades: []Trade{
			{PnL: 20, Margin: 100, Commission: 1, Direction: strategy.DirectionLong},
			{PnL: -10, Margin: 100, Commission: 1, Direction: strategy.DirectionShort},
			{PnL: 20, Margin: 100, Commission: 1, Direction: strategy.DirectionLong},
		},
	}
	results.UpdateMetrics()

	assert.Equal(t, 3, results.TotalTrades)
	assert.Equal(t, 2, results.WinningTrades)
	assert.Equal(t, 1, results.LosingTrades)
	assert.Equal(t, 2, results.LongTrades)
	assert.Equal(t, 1, results.ShortTrades)
	assert.InDelta(t, 3.0, results.TotalCommission, 1e-12)
	assert.InDelta(t, 4.0, results.ProfitFactor, 1e-12)
	assert.InDelta(t, 2.0/3.0, results.WinRate, 1e-12)
	assert.InDelta(t, 30.0, results.NetProfit, 1e-12)
	assert.InDelta(t, 0.03, results.TotalReturn, 1e-12)

	// returns 0.2, -0.1, 0.2: mean 0.1, population stddev sqrt(0.02)
	assert.InDelta(t, 0.1/math.Sqrt(0.02), results.SharpeRatio, 1e-9)
}

func TestBacktestResults_EdgeCases(t *testing.T) {
	empty := &BacktestResults{}
	assert.Zero(t, empty.CalculateSharpeRatio())
	assert.Zero(t, empty.CalculateProfitFactor())
	assert.Zero(t, empty.CalculateWinRate())

	winners := &BacktestResults{Trades: []Trade{{PnL: 5, Margin: 10}, {PnL: 5, Margin: 10}}}
	assert.True(t, math.IsInf(winners.CalculateProfitFactor(), 1))
	assert.Zero(t, winners.CalculateSharpeRatio(), "identical returns have no deviation")

	flat := &BacktestResults{Trades: []Trade{{PnL: 0, Margin: 10}}}
	assert.Zero(t, flat.CalculateProfitFactor())
	assert.Zero(t, flat.CalculateWinRate())
}

func TestValidate(t *testing.T) {
	err := Validate(nil, 0)
	assert.True(t, opterrors.HasCategory(err, opterrors.ErrorCategoryInvalidResult))

	noTrades := &BacktestResults{}
	err = Validate(noTrades, 0)
	assert.True(t, opterrors.HasCategory(err, opterrors.ErrorCategoryInvalidResult))

	deep := &BacktestResults{TotalTrades: 4, MaxDrawdown: 35}
	err = Validate(deep, 30)
	assert.True(t, opterrors.HasCategory(err, opterrors.ErrorCategoryInvalidResult))
	assert.NoError(t, Validate(deep, 40))
	assert.NoError(t, Validate(deep, 0), "a non-positive ceiling disables the drawdown check")
}
