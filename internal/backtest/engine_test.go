package backtest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	opterrors "github.com/ducminhle1904/crypto-strategy-optimizer/internal/errors"
	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/strategy"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// scriptedStrategy returns the order produced by fn for the last bar index of each window
type scriptedStrategy struct {
	fn        func(index int, bar types.OHLCV) strategy.TradeOrder
	evaluated []int
	observed  int
}

func (s *scriptedStrategy) Evaluate(bars []types.OHLCV) strategy.TradeOrder {
	i := len(bars) - 1
	s.evaluated = append(s.evaluated, i)
	if s.fn == nil {
		return strategy.TradeOrder{}
	}
	return s.fn(i, bars[i])
}

func (s *scriptedStrategy) Observe(bars []types.OHLCV) { s.observed++ }
func (s *scriptedStrategy) GetName() string           { return "scripted" }
func (s *scriptedStrategy) GetRequiredPeriods() int   { return 0 }

func longAt(index int, stopFactor, takeProfitFactor float64) *scriptedStrategy {
	return &scriptedStrategy{fn: func(i int, bar types.OHLCV) strategy.TradeOrder {
		if i != index {
			return strategy.TradeOrder{}
		}
		return strategy.TradeOrder{
			Direction:  strategy.DirectionLong,
			StopLoss:   bar.Close * stopFactor,
			TakeProfit: bar.Close * takeProfitFactor,
		}
	}}
}

// barsFromCloses builds candles with open=close and a ±0.5 range
func barsFromCloses(closes []float64) []types.OHLCV {
	data := make([]types.OHLCV, len(closes))
	for i, c := range closes {
		data[i] = types.OHLCV{
			Timestamp: testStart.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c + 0.5,
			Low:       c - 0.5,
			Close:     c,
			Volume:    1000,
		}
	}
	return data
}

// generateRisingData creates data with close = 100 + i
func generateRisingData(count int) []types.OHLCV {
	closes := make([]float64, count)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	return barsFromCloses(closes)
}

func flatData(count int, price float64) []types.OHLCV {
	closes := make([]float64, count)
	for i := range closes {
		closes[i] = price
	}
	return barsFromCloses(closes)
}

// generateTestData creates oscillating data with a slow drift
func generateTestData(count int) []types.OHLCV {
	closes := make([]float64, count)
	price := 100.0
	for i := range closes {
		price += math.Sin(float64(i)/7)*1.5 + 0.05
		closes[i] = price
	}
	data := barsFromCloses(closes)
	for i := range data {
		data[i].Volume = 1000 + float64(i%11)*150
	}
	return data
}

func testConfig() Config {
	return Config{
		InitialBalance:       10000,
		Leverage:             2,
		FeeRate:              0.001,
		PositionSize:         0.5,
		MaxConcurrentTrades:  1,
		WarmupBars:           100,
		InactivityPeriod:     30 * 24 * time.Hour,
		Timeframe:            types.Timeframe1h,
		LiquidationThreshold: 0.2,
	}
}

func newEngine(t *testing.T, cfg Config) *BacktestEngine {
	t.Helper()
	engine, err := NewBacktestEngine(cfg)
	require.NoError(t, err)
	return engine
}

func TestBacktestEngine_SingleLongHitsTakeProfit(t *testing.T) {
	cfg := testConfig()
	data := generateRisingData(150)
	strat := longAt(101, 0.95, 1.10)

	results, err := newEngine(t, cfg).Run(context.Background(), data, strat)
	require.NoError(t, err)

	require.Len(t, results.Trades, 1)
	trade := results.Trades[0]
	assert.Equal(t, strategy.DirectionLong, trade.Direction)
	assert.Equal(t, 101, trade.EntryBarIndex)
	assert.Equal(t, 201.0, trade.EntryPrice)
	assert.Equal(t, ExitTakeProfit, trade.ExitReason)
	assert.Equal(t, 121, trade.ExitBarIndex, "first bar whose high reaches 221.1")
	assert.InDelta(t, 221.1, trade.ExitPrice, 1e-9)

	qty := cfg.InitialBalance * cfg.PositionSize * cfg.Leverage / 201
	want := cfg.InitialBalance + (221.1-201)*qty - cfg.FeeRate*201*qty - cfg.FeeRate*221.1*qty
	assert.InDelta(t, want, results.EndBalance, 1e-6)
	assert.InDelta(t, want-cfg.InitialBalance, results.NetProfit, 1e-6)
	assert.InDelta(t, want-cfg.InitialBalance, trade.PnL, 1e-6)

	assert.Equal(t, 1, results.TotalTrades)
	assert.Equal(t, 1, results.WinningTrades)
	assert.Equal(t, 1.0, results.WinRate)
	assert.True(t, math.IsInf(results.ProfitFactor, 1))
	assert.False(t, results.TerminatedEarly)
	assert.Equal(t, StateFinished.String(), results.FinalState)
	assert.Equal(t, 50, results.BarsProcessed)
	assert.InDelta(t, 20.0/50.0*100, results.TradingActivity, 1e-9)
}

func TestBacktestEngine_StopLossTakesPrecedence(t *testing.T) {
	tests := []struct {
		name      string
		direction strategy.Direction
		stop      float64
		target    float64
	}{
		{"long", strategy.DirectionLong, 95, 105},
		{"short", strategy.DirectionShort, 105, 95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.WarmupBars = 10
			cfg.FeeRate = 0
			data := flatData(30, 100)
			// bar 12 touches both levels
			data[12].High = 110
			data[12].Low = 90

			strat := &scriptedStrategy{fn: func(i int, bar types.OHLCV) strategy.TradeOrder {
				if i != 10 {
					return strategy.TradeOrder{}
				}
				return strategy.TradeOrder{Direction: tt.direction, StopLoss: tt.stop, TakeProfit: tt.target}
			}}

			results, err := newEngine(t, cfg).Run(context.Background(), data, strat)
			require.NoError(t, err)
			require.Len(t, results.Trades, 1)

			trade := results.Trades[0]
			assert.Equal(t, ExitStopLoss, trade.ExitReason)
			assert.Equal(t, tt.stop, trade.ExitPrice)
			assert.Equal(t, 12, trade.ExitBarIndex)
			assert.Less(t, trade.PnL, 0.0)
		})
	}
}

func TestBacktestEngine_ShortTakeProfit(t *testing.T) {
	cfg := testConfig()
	cfg.WarmupBars = 10
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	data := barsFromCloses(closes)

	strat := &scriptedStrategy{fn: func(i int, bar types.OHLCV) strategy.TradeOrder {
		if i != 10 {
			return strategy.TradeOrder{}
		}
		return strategy.TradeOrder{Direction: strategy.DirectionShort, StopLoss: bar.Close + 20, TakeProfit: bar.Close - 5}
	}}

	results, err := newEngine(t, cfg).Run(context.Background(), data, strat)
	require.NoError(t, err)
	require.Len(t, results.Trades, 1)
	assert.Equal(t, ExitTakeProfit, results.Trades[0].ExitReason)
	assert.Equal(t, 185.0, results.Trades[0].ExitPrice)
	assert.Greater(t, results.Trades[0].PnL, 0.0)
	assert.Equal(t, 1, results.ShortTrades)
}

func TestBacktestEngine_Liquidation(t *testing.T) {
	cfg := testConfig()
	cfg.WarmupBars = 10
	cfg.FeeRate = 0
	cfg.Leverage = 10
	cfg.PositionSize = 1
	cfg.MaxConcurrentTrades = 2

	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
		if i > 10 {
			closes[i] = 100 - float64(i-10)
		}
	}
	data := barsFromCloses(closes)

	// keeps asking for longs; stops far away
	strat := &scriptedStrategy{fn: func(i int, bar types.OHLCV) strategy.TradeOrder {
		return strategy.TradeOrder{Direction: strategy.DirectionLong, StopLoss: 1, TakeProfit: 1000}
	}}

	results, err := newEngine(t, cfg).Run(context.Background(), data, strat)
	require.NoError(t, err)

	// qty = 1000, equity = 10000 + (open-100)*1000 <= 2000 at open 92 (bar 18)
	assert.True(t, results.Liquidated)
	assert.True(t, results.TerminatedEarly)
	assert.Equal(t, ReasonLiquidated, results.TerminationReason)
	assert.Equal(t, StateLiquidated.String(), results.FinalState)
	require.Len(t, results.Trades, 1)
	assert.Equal(t, ExitLiquidation, results.Trades[0].ExitReason)
	assert.Equal(t, 18, results.Trades[0].ExitBarIndex)
	assert.Equal(t, 92.0, results.Trades[0].ExitPrice)
	assert.InDelta(t, 2000.0, results.EndBalance, 1e-9)

	// nothing is evaluated once liquidated
	for _, i := range strat.evaluated {
		assert.Less(t, i, 18)
	}
	assert.Equal(t, 9, results.BarsProcessed)
}

func TestBacktestEngine_Inactivity(t *testing.T) {
	cfg := testConfig()
	cfg.WarmupBars = 10
	cfg.InactivityPeriod = 10 * time.Hour
	data := flatData(100, 100)

	results, err := newEngine(t, cfg).Run(context.Background(), data, &scriptedStrategy{})
	require.NoError(t, err)
	assert.True(t, results.TerminatedEarly)
	assert.True(t, results.Liquidated)
	assert.Equal(t, ReasonInactivity, results.TerminationReason)
	assert.Equal(t, 12, results.BarsProcessed, "terminated on bar 21, 11 bars after the first trading bar")
	assert.Empty(t, results.Trades)

	// the clock restarts with every opened trade
	strat := &scriptedStrategy{fn: func(i int, bar types.OHLCV) strategy.TradeOrder {
		if i == 15 {
			return strategy.TradeOrder{Direction: strategy.DirectionLong, StopLoss: 50, TakeProfit: 100.4}
		}
		return strategy.TradeOrder{}
	}}
	results, err = newEngine(t, cfg).Run(context.Background(), data, strat)
	require.NoError(t, err)
	assert.Equal(t, ReasonInactivity, results.TerminationReason)
	assert.Equal(t, 17, results.BarsProcessed)
	require.Len(t, results.Trades, 1)

	// a zero period disables the check
	cfg.InactivityPeriod = 0
	results, err = newEngine(t, cfg).Run(context.Background(), data, &scriptedStrategy{})
	require.NoError(t, err)
	assert.False(t, results.TerminatedEarly)
	assert.Equal(t, 90, results.BarsProcessed)
}

func TestBacktestEngine_MaxConcurrentTrades(t *testing.T) {
	cfg := testConfig()
	cfg.WarmupBars = 10
	cfg.PositionSize = 0.2
	cfg.MaxConcurrentTrades = 3
	data := flatData(40, 100)

	strat := &scriptedStrategy{fn: func(i int, bar types.OHLCV) strategy.TradeOrder {
		return strategy.TradeOrder{Direction: strategy.DirectionLong, StopLoss: 50, TakeProfit: 150}
	}}

	results, err := newEngine(t, cfg).Run(context.Background(), data, strat)
	require.NoError(t, err)
	require.Len(t, results.Trades, 3)
	for _, trade := range results.Trades {
		assert.Equal(t, ExitEndOfData, trade.ExitReason)
		assert.Equal(t, 39, trade.ExitBarIndex)
	}
	assert.Equal(t, []int{10, 11, 12}, strat.evaluated, "no evaluation while the account is full")
	assert.Equal(t, 1+27, strat.observed, "warm-up plus every full bar")
}

func TestBacktestEngine_InsufficientHistory(t *testing.T) {
	cfg := testConfig()
	_, err := newEngine(t, cfg).Run(context.Background(), generateRisingData(100), &scriptedStrategy{})
	require.Error(t, err)
	assert.True(t, opterrors.HasCategory(err, opterrors.ErrorCategoryConfiguration))
}

func TestBacktestEngine_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newEngine(t, testConfig()).Run(ctx, generateRisingData(150), &scriptedStrategy{})
	require.Error(t, err)
	assert.True(t, opterrors.HasCategory(err, opterrors.ErrorCategoryCancelled))
}

func TestBacktestEngine_Deterministic(t *testing.T) {
	r := params.DefaultRegistry()
	cfg := params.NewConfiguration()
	for _, kind := range []string{"ema_cross", "atr_risk"} {
		set, err := r.NewSet(kind, "")
		require.NoError(t, err)
		role, _ := r.RoleOf(set.Kind())
		cfg.Add(role, set)
	}
	data := generateTestData(600)
	engine := newEngine(t, testConfig())

	run := func() *BacktestResults {
		strat, err := strategy.Build(cfg)
		require.NoError(t, err)
		results, err := engine.Run(context.Background(), data, strat)
		require.NoError(t, err)
		return results
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
	assert.Greater(t, first.TotalTrades, 0)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	broken := []func(*Config){
		func(c *Config) { c.InitialBalance = 0 },
		func(c *Config) { c.Leverage = 0.5 },
		func(c *Config) { c.FeeRate = -0.1 },
		func(c *Config) { c.PositionSize = 1.5 },
		func(c *Config) { c.MaxConcurrentTrades = 0 },
		func(c *Config) { c.WarmupBars = -1 },
		func(c *Config) { c.Timeframe = "7m" },
		func(c *Config) { c.LiquidationThreshold = 1 },
	}
	for i, mutate := range broken {
		cfg := DefaultConfig()
		mutate(&cfg)
		err := cfg.Validate()
		require.Error(t, err, "case %d", i)
		assert.True(t, opterrors.HasCategory(err, opterrors.ErrorCategoryConfiguration))
	}

	cfg := DefaultConfig()
	assert.Equal(t, 720, cfg.InactivityBars())
	cfg.Timeframe = types.Timeframe4h
	assert.Equal(t, 180, cfg.InactivityBars())
	cfg.InactivityPeriod = 0
	assert.Equal(t, 0, cfg.InactivityBars())
}
