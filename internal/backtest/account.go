package backtest

import (
	"time"

	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/strategy"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

// Exit reasons recorded on trades
const (
	ExitStopLoss    = "STOP_LOSS"
	ExitTakeProfit  = "TAKE_PROFIT"
	ExitEndOfData   = "END_OF_DATA"
	ExitLiquidation = "LIQUIDATION"
	ExitInactivity  = "INACTIVITY"
)

// Position is an open trade
type Position struct {
	ID            int
	Direction     strategy.Direction
	EntryPrice    float64
	StopLoss      float64
	TakeProfit    float64
	Quantity      float64
	Margin        float64
	EntryFee      float64
	EntryBarIndex int
	EntryTime     time.Time
}

// Trade is a closed position
type Trade struct {
	ID            int                `json:"id"`
	Direction     strategy.Direction `json:"direction"`
	EntryTime     time.Time          `json:"entry_time"`
	ExitTime      time.Time          `json:"exit_time"`
	EntryBarIndex int                `json:"entry_bar"`
	ExitBarIndex  int                `json:"exit_bar"`
	EntryPrice    float64            `json:"entry_price"`
	ExitPrice     float64            `json:"exit_price"`
	StopLoss      float64            `json:"stop_loss"`
	TakeProfit    float64            `json:"take_profit"`
	Quantity      float64            `json:"quantity"`
	Margin        float64            `json:"margin"`
	PnL           float64            `json:"pnl"` // net of entry and exit fees
	Commission    float64            `json:"commission"`
	ExitReason    string             `json:"exit_reason"`
}

// Account is the simulated margin account. Positions are kept in opening order.
type Account struct {
	balance             float64
	leverage            float64
	feeRate             float64
	positionSize        float64
	maxConcurrentTrades int
	openPositions       []*Position
	nextPositionID      int
	liquidated          bool
}

// NewAccount creates an account funded with cfg.InitialBalance
func NewAccount(cfg Config) *Account {
	return &Account{
		balance:             cfg.InitialBalance,
		leverage:            cfg.Leverage,
		feeRate:             cfg.FeeRate,
		positionSize:        cfg.PositionSize,
		maxConcurrentTrades: cfg.MaxConcurrentTrades,
		nextPositionID:      1,
	}
}

// Balance returns the realized cash balance
func (a *Account) Balance() float64 {
	return a.balance
}

// Liquidated reports whether the account is terminal
func (a *Account) Liquidated() bool {
	return a.liquidated
}

// PositionCount returns the number of open positions
func (a *Account) PositionCount() int {
	return len(a.openPositions)
}

// OpenPositions returns the open positions in opening order
func (a *Account) OpenPositions() []*Position {
	return a.openPositions
}

// CanOpen reports whether another position may be opened
func (a *Account) CanOpen() bool {
	return !a.liquidated && len(a.openPositions) < a.maxConcurrentTrades
}

// usedMargin is the margin locked by open positions
func (a *Account) usedMargin() float64 {
	used := 0.0
	for _, p := range a.openPositions {
		used += p.Margin
	}
	return used
}

// Equity marks every open position at price
func (a *Account) Equity(price float64) float64 {
	equity := a.balance
	for _, p := range a.openPositions {
		equity += unrealized(p, price)
	}
	return equity
}

func unrealized(p *Position, price float64) float64 {
	if p.Direction == strategy.DirectionShort {
		return (p.EntryPrice - price) * p.Quantity
	}
	return (price - p.EntryPrice) * p.Quantity
}

// Open sizes a position with positionSize of the balance as margin times leverage and
// fills it at price. It returns nil when the account cannot take the position.
func (a *Account) Open(order strategy.TradeOrder, bar types.OHLCV, barIndex int) *Position {
	if order.IsNone() || !a.CanOpen() || bar.Close <= 0 {
		return nil
	}

	margin := a.balance * a.positionSize
	if margin <= 0 || a.usedMargin()+margin > a.balance {
		return nil
	}
	notional := margin * a.leverage
	fee := notional * a.feeRate

	pos := &Position{
		ID:            a.nextPositionID,
		Direction:     order.Direction,
		EntryPrice:    bar.Close,
		StopLoss:      order.StopLoss,
		TakeProfit:    order.TakeProfit,
		Quantity:      notional / bar.Close,
		Margin:        margin,
		EntryFee:      fee,
		EntryBarIndex: barIndex,
		EntryTime:     bar.Timestamp,
	}

	a.balance -= fee
	a.nextPositionID++
	a.openPositions = append(a.openPositions, pos)
	return pos
}

// CheckExits closes positions whose stop or take-profit was touched by the bar.
// The stop is checked first, so a bar touching both levels is a stop-out.
func (a *Account) CheckExits(bar types.OHLCV, barIndex int) []Trade {
	var closed []Trade
	remaining := a.openPositions[:0]

	for _, pos := range a.openPositions {
		exitPrice, reason, hit := exitFor(pos, bar)
		if hit {
			closed = append(closed, a.closePosition(pos, exitPrice, bar.Timestamp, barIndex, reason))
			continue
		}
		remaining = append(remaining, pos)
	}

	a.openPositions = remaining
	return closed
}

func exitFor(pos *Position, bar types.OHLCV) (float64, string, bool) {
	if pos.Direction == strategy.DirectionShort {
		if bar.High >= pos.StopLoss {
			return pos.StopLoss, ExitStopLoss, true
		}
		if bar.Low <= pos.TakeProfit {
			return pos.TakeProfit, ExitTakeProfit, true
		}
		return 0, "", false
	}

	if bar.Low <= pos.StopLoss {
		return pos.StopLoss, ExitStopLoss, true
	}
	if bar.High >= pos.TakeProfit {
		return pos.TakeProfit, ExitTakeProfit, true
	}
	return 0, "", false
}

// CloseAll closes every open position at price
func (a *Account) CloseAll(price float64, ts time.Time, barIndex int, reason string) []Trade {
	trades := make([]Trade, 0, len(a.openPositions))
	for _, pos := range a.openPositions {
		trades = append(trades, a.closePosition(pos, price, ts, barIndex, reason))
	}
	a.openPositions = a.openPositions[:0]
	return trades
}

// Liquidate closes everything at price and makes the account terminal
func (a *Account) Liquidate(price float64, ts time.Time, barIndex int, reason string) []Trade {
	trades := a.CloseAll(price, ts, barIndex, reason)
	a.liquidated = true
	return trades
}

func (a *Account) closePosition(pos *Position, exitPrice float64, exitTime time.Time, barIndex int, reason string) Trade {
	gross := unrealized(pos, exitPrice)
	exitFee := exitPrice * pos.Quantity * a.feeRate
	a.balance += gross - exitFee

	return Trade{
		ID:            pos.ID,
		Direction:     pos.Direction,
		EntryTime:     pos.EntryTime,
		ExitTime:      exitTime,
		EntryBarIndex: pos.EntryBarIndex,
		ExitBarIndex:  barIndex,
		EntryPrice:    pos.EntryPrice,
		ExitPrice:     exitPrice,
		StopLoss:      pos.StopLoss,
		TakeProfit:    pos.TakeProfit,
		Quantity:      pos.Quantity,
		Margin:        pos.Margin,
		PnL:           gross - pos.EntryFee - exitFee,
		Commission:    pos.EntryFee + exitFee,
		ExitReason:    reason,
	}
}
