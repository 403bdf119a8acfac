package backtest

import (
	"context"
	"fmt"
	"time"

	opterrors "github.com/ducminhle1904/crypto-strategy-optimizer/internal/errors"
	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/strategy"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

// Termination reasons
const (
	ReasonLiquidated = "liquidated"
	ReasonInactivity = "inactivity"
)

// State is the phase of a backtest run
type State int

const (
	StateWarming State = iota
	StateTrading
	StateLiquidated
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateWarming:
		return "warming"
	case StateTrading:
		return "trading"
	case StateLiquidated:
		return "liquidated"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Config holds the account and replay settings of a backtest
type Config struct {
	InitialBalance       float64         `json:"initial_balance"`
	Leverage             float64         `json:"leverage"`
	FeeRate              float64         `json:"fee_rate"`
	PositionSize         float64         `json:"position_size"` // fraction of balance used as margin
	MaxConcurrentTrades  int             `json:"max_concurrent_trades"`
	WarmupBars           int             `json:"warmup_bars"`
	InactivityPeriod     time.Duration   `json:"inactivity_period"` // 0 disables
	Timeframe            types.Timeframe `json:"timeframe"`
	LiquidationThreshold float64         `json:"liquidation_threshold"` // fraction of initial balance
}

// DefaultConfig returns the settings used when nothing is configured
func DefaultConfig() Config {
	return Config{
		InitialBalance:       10000,
		Leverage:             5,
		FeeRate:              0.0006,
		PositionSize:         0.2,
		MaxConcurrentTrades:  1,
		WarmupBars:           200,
		InactivityPeriod:     30 * 24 * time.Hour,
		Timeframe:            types.Timeframe1h,
		LiquidationThreshold: 0.2,
	}
}

// Validate checks the settings
func (c Config) Validate() error {
	var problem string
	switch {
	case c.InitialBalance <= 0:
		problem = "initial balance must be positive"
	case c.Leverage < 1:
		problem = "leverage must be at least 1"
	case c.FeeRate < 0 || c.FeeRate >= 1:
		problem = "fee rate must be in [0, 1)"
	case c.PositionSize <= 0 || c.PositionSize > 1:
		problem = "position size must be in (0, 1]"
	case c.MaxConcurrentTrades < 1:
		problem = "max concurrent trades must be at least 1"
	case c.WarmupBars < 0:
		problem = "warmup bars must not be negative"
	case c.InactivityPeriod < 0:
		problem = "inactivity period must not be negative"
	case c.InactivityPeriod > 0 && !c.Timeframe.Valid():
		problem = fmt.Sprintf("unknown timeframe %q", c.Timeframe)
	case c.LiquidationThreshold < 0 || c.LiquidationThreshold >= 1:
		problem = "liquidation threshold must be in [0, 1)"
	}
	if problem != "" {
		return opterrors.NewConfigurationError("backtest", "Validate", problem)
	}
	return nil
}

// InactivityBars converts the inactivity period to a bar count, 0 when disabled
func (c Config) InactivityBars() int {
	if c.InactivityPeriod <= 0 {
		return 0
	}
	return c.Timeframe.BarsFor(c.InactivityPeriod)
}

// BacktestEngine replays bars through a strategy and a simulated account
type BacktestEngine struct {
	config Config
}

// NewBacktestEngine validates the configuration and creates an engine
func NewBacktestEngine(config Config) (*BacktestEngine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &BacktestEngine{config: config}, nil
}

// Config returns the engine settings
func (b *BacktestEngine) Config() Config {
	return b.config
}

// Run replays the bars. The strategy must be fresh: its indicators see every bar exactly once, in order.
// Cancellation is checked between bars.
func (b *BacktestEngine) Run(ctx context.Context, data []types.OHLCV, strat strategy.Strategy) (*BacktestResults, error) {
	cfg := b.config
	if len(data) <= cfg.WarmupBars {
		return nil, opterrors.NewConfigurationError("backtest", "Run",
			fmt.Sprintf("insufficient bar history: %d bars for %d warm-up bars", len(data), cfg.WarmupBars))
	}

	account := NewAccount(cfg)
	results := &BacktestResults{
		StartBalance: cfg.InitialBalance,
		StartTime:    data[cfg.WarmupBars].Timestamp,
		Trades:       make([]Trade, 0),
	}

	// Warming: indicators only
	if cfg.WarmupBars > 0 {
		strat.Observe(data[:cfg.WarmupBars])
	}

	state := StateTrading
	inactivityBars := cfg.InactivityBars()
	liquidationLevel := cfg.InitialBalance * cfg.LiquidationThreshold
	lastActivity := cfg.WarmupBars
	peakEquity := cfg.InitialBalance
	barsInMarket := 0
	last := cfg.WarmupBars

	for i := cfg.WarmupBars; i < len(data) && state == StateTrading; i++ {
		if err := ctx.Err(); err != nil {
			return nil, opterrors.NewCancelledError("backtest", "Run", err)
		}
		bar := data[i]
		last = i

		// a. liquidation, marked at the open
		if account.Equity(bar.Open) <= liquidationLevel {
			results.Trades = append(results.Trades, account.Liquidate(bar.Open, bar.Timestamp, i, ExitLiquidation)...)
			results.terminate(ReasonLiquidated)
			state = StateLiquidated
			break
		}

		// b. exits, stop before take-profit
		results.Trades = append(results.Trades, account.CheckExits(bar, i)...)

		// c. entries
		window := data[:i+1]
		if account.CanOpen() {
			order := strat.Evaluate(window)
			if account.Open(order, bar, i) != nil {
				lastActivity = i
			}
		} else {
			strat.Observe(window)
		}

		if account.PositionCount() > 0 {
			barsInMarket++
		}
		equity := account.Equity(bar.Close)
		if equity > peakEquity {
			peakEquity = equity
		}
		if dd := (peakEquity - equity) / peakEquity * 100; dd > results.MaxDrawdown {
			results.MaxDrawdown = dd
		}

		// d. inactivity
		if inactivityBars > 0 && i-lastActivity > inactivityBars {
			results.Trades = append(results.Trades, account.Liquidate(bar.Close, bar.Timestamp, i, ExitInactivity)...)
			results.terminate(ReasonInactivity)
			state = StateLiquidated
		}
	}

	// Finished
	if state == StateTrading {
		final := data[len(data)-1]
		results.Trades = append(results.Trades, account.CloseAll(final.Close, final.Timestamp, len(data)-1, ExitEndOfData)...)
		state = StateFinished
	}

	results.FinalState = state.String()
	results.Liquidated = account.Liquidated()
	results.EndBalance = account.Balance()
	results.EndTime = data[last].Timestamp
	results.BarsProcessed = last - cfg.WarmupBars + 1
	results.TradingActivity = float64(barsInMarket) / float64(results.BarsProcessed) * 100
	results.UpdateMetrics()
	return results, nil
}
