package indicators

import (
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

// EMACross signals the side of the fast EMA relative to the slow EMA.
// With confirm set the close must also be beyond the fast EMA.
type EMACross struct {
	name    string
	fast    *EMA
	slow    *EMA
	confirm bool
}

// NewEMACross creates an EMA cross from an "ema_cross" parameter set
func NewEMACross(set *params.ParameterSet) *EMACross {
	return &EMACross{
		name:    set.Name(),
		fast:    NewEMA(set.Int(params.FieldFastPeriod)),
		slow:    NewEMA(set.Int(params.FieldSlowPeriod)),
		confirm: set.Bool(params.FieldConfirm),
	}
}

// Name returns the instance name
func (c *EMACross) Name() string {
	return c.name
}

// Kind returns the parameter kind tag
func (c *EMACross) Kind() params.Kind {
	return params.KindEMACross
}

// GetRequiredPeriods returns the longer of the two EMA periods
func (c *EMACross) GetRequiredPeriods() int {
	if c.fast.GetRequiredPeriods() > c.slow.GetRequiredPeriods() {
		return c.fast.GetRequiredPeriods()
	}
	return c.slow.GetRequiredPeriods()
}

// Update feeds both EMAs
func (c *EMACross) Update(bars []types.OHLCV) {
	c.fast.Update(bars)
	c.slow.Update(bars)
}

// Trend reports bullish while fast > slow and bearish while fast < slow
func (c *EMACross) Trend(bars []types.OHLCV) TrendSignal {
	c.Update(bars)
	bar, ok := lastBar(bars)
	if !ok {
		return TrendNeutral
	}
	fast, okFast := c.fast.Value(bar.Timestamp)
	slow, okSlow := c.slow.Value(bar.Timestamp)
	if !okFast || !okSlow {
		return TrendNeutral
	}

	switch {
	case fast > slow && (!c.confirm || bar.Close > fast):
		return TrendBullish
	case fast < slow && (!c.confirm || bar.Close < fast):
		return TrendBearish
	default:
		return TrendNeutral
	}
}
