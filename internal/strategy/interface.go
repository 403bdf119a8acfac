package strategy

import (
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

// Strategy defines the interface the backtest engine drives
type Strategy interface {
	// Evaluate analyzes the bar window and returns an order for its last bar
	Evaluate(bars []types.OHLCV) TradeOrder

	// Observe feeds indicators without producing an order (warm-up)
	Observe(bars []types.OHLCV)

	// GetName returns the name of the strategy
	GetName() string

	// GetRequiredPeriods returns the bars the slowest indicator needs before it signals
	GetRequiredPeriods() int
}

// Direction is the side of a trade order
type Direction int

const (
	DirectionNone Direction = iota
	DirectionLong
	DirectionShort
)

func (d Direction) String() string {
	switch d {
	case DirectionNone:
		return "NONE"
	case DirectionLong:
		return "LONG"
	case DirectionShort:
		return "SHORT"
	default:
		return "UNKNOWN"
	}
}

// TradeOrder represents the decision for one bar, with absolute exit levels
type TradeOrder struct {
	Direction  Direction
	StopLoss   float64
	TakeProfit float64
}

// IsNone reports whether the order opens nothing
func (o TradeOrder) IsNone() bool {
	return o.Direction == DirectionNone
}

// MarshalText encodes the direction by name
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
