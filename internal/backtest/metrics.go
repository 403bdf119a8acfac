package backtest

import (
	"fmt"
	"math"
	"time"

	opterrors "github.com/ducminhle1904/crypto-strategy-optimizer/internal/errors"
	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/strategy"
)

// BacktestResults is the outcome of one run. It is not modified after Run returns.
type BacktestResults struct {
	StartBalance      float64   `json:"start_balance"`
	EndBalance        float64   `json:"end_balance"`
	NetProfit         float64   `json:"net_profit"`
	TotalReturn       float64   `json:"total_return"` // fraction of the start balance
	MaxDrawdown       float64   `json:"max_drawdown"` // percent of peak equity
	SharpeRatio       float64   `json:"sharpe_ratio"`
	ProfitFactor      float64   `json:"profit_factor"` // +Inf without losing trades
	WinRate           float64   `json:"win_rate"`      // fraction of closed trades
	TotalTrades       int       `json:"total_trades"`
	WinningTrades     int       `json:"winning_trades"`
	LosingTrades      int       `json:"losing_trades"`
	LongTrades        int       `json:"long_trades"`
	ShortTrades       int       `json:"short_trades"`
	TotalCommission   float64   `json:"total_commission"`
	TradingActivity   float64   `json:"trading_activity"` // percent of trading bars with an open position
	BarsProcessed     int       `json:"bars_processed"`
	TerminatedEarly   bool      `json:"terminated_early"`
	TerminationReason string    `json:"termination_reason,omitempty"`
	Liquidated        bool      `json:"liquidated"`
	FinalState        string    `json:"final_state"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	Trades            []Trade   `json:"trades"`
}

func (b *BacktestResults) terminate(reason string) {
	b.TerminatedEarly = true
	b.TerminationReason = reason
}

// CalculateSharpeRatio calculates the Sharpe ratio of per-trade returns on margin
func (b *BacktestResults) CalculateSharpeRatio() float64 {
	if len(b.Trades) == 0 {
		return 0
	}

	returns := make([]float64, 0, len(b.Trades))
	for _, trade := range b.Trades {
		if trade.Margin > 0 {
			returns = append(returns, trade.PnL/trade.Margin)
		}
	}
	if len(returns) == 0 {
		return 0
	}

	// Calculate average return
	avgReturn := 0.0
	for _, r := range returns {
		avgReturn += r
	}
	avgReturn /= float64(len(returns))

	// Calculate standard deviation
	variance := 0.0
	for _, r := range returns {
		variance += math.Pow(r-avgReturn, 2)
	}
	variance /= float64(len(returns))
	stdDev := math.Sqrt(variance)

	if stdDev < 1e-10 {
		return 0
	}

	// Assuming risk-free rate of 0
	return avgReturn / stdDev
}

// CalculateProfitFactor calculates gross profit over gross loss
func (b *BacktestResults) CalculateProfitFactor() float64 {
	if len(b.Trades) == 0 {
		return 0
	}

	totalProfit := 0.0
	totalLoss := 0.0
	for _, trade := range b.Trades {
		if trade.PnL > 0 {
			totalProfit += trade.PnL
		} else {
			totalLoss += math.Abs(trade.PnL)
		}
	}

	if totalLoss == 0 {
		if totalProfit > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return totalProfit / totalLoss
}

// CalculateWinRate returns the fraction of trades closed with a positive net PnL
func (b *BacktestResults) CalculateWinRate() float64 {
	if len(b.Trades) == 0 {
		return 0
	}
	wins := 0
	for _, trade := range b.Trades {
		if trade.PnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(b.Trades))
}

// UpdateMetrics updates all calculated metrics from the trade list and balances
func (b *BacktestResults) UpdateMetrics() {
	b.SharpeRatio = b.CalculateSharpeRatio()
	b.ProfitFactor = b.CalculateProfitFactor()
	b.WinRate = b.CalculateWinRate()

	b.TotalTrades = len(b.Trades)
	b.WinningTrades, b.LosingTrades = 0, 0
	b.LongTrades, b.ShortTrades = 0, 0
	b.TotalCommission = 0
	for _, trade := range b.Trades {
		if trade.PnL > 0 {
			b.WinningTrades++
		} else {
			b.LosingTrades++
		}
		if trade.Direction == strategy.DirectionShort {
			b.ShortTrades++
		} else {
			b.LongTrades++
		}
		b.TotalCommission += trade.Commission
	}

	b.NetProfit = b.EndBalance - b.StartBalance
	if b.StartBalance > 0 {
		b.TotalReturn = b.NetProfit / b.StartBalance
	}
}

// Validate is the gate callers apply before ranking a result: a run without trades, or with a
// drawdown above maxDrawdownPct, is an invalid result. A ceiling <= 0 disables the drawdown check.
func Validate(b *BacktestResults, maxDrawdownPct float64) error {
	if b == nil {
		return opterrors.NewInvalidResultError("backtest", "Validate", "no result")
	}
	if b.TotalTrades == 0 {
		return opterrors.NewInvalidResultError("backtest", "Validate", "no trades")
	}
	if maxDrawdownPct > 0 && b.MaxDrawdown > maxDrawdownPct {
		return opterrors.NewInvalidResultError("backtest", "Validate",
			fmt.Sprintf("max drawdown %.2f%% exceeds ceiling %.2f%%", b.MaxDrawdown, maxDrawdownPct))
	}
	return nil
}
