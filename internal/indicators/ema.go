package indicators

import (
	"math"
	"time"

	"github.com/markcheno/go-talib"

	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

// EMA represents the Exponential Moving Average of closing prices.
// The first value is seeded with talib over the warm-up window, later bars are applied incrementally.
type EMA struct {
	period      int
	alpha       float64
	lastValue   float64
	initialized bool
	warm        []float64
	out         series
}

// NewEMA creates a new EMA indicator
func NewEMA(period int) *EMA {
	if period < 1 {
		period = 1
	}
	return &EMA{
		period: period,
		alpha:  2.0 / float64(period+1), // Standard EMA alpha calculation
	}
}

// Update processes bars not seen before
func (e *EMA) Update(bars []types.OHLCV) {
	pending := e.out.unseen(bars)
	if len(pending) == 0 {
		return
	}

	if !e.initialized {
		e.initialCalculation(pending)
		return
	}

	for _, bar := range pending {
		e.out.push(bar.Timestamp, e.UpdateSingle(bar.Close))
	}
}

// initialCalculation buffers closes until a full period is available and seeds the EMA from talib
func (e *EMA) initialCalculation(pending []types.OHLCV) {
	start := len(e.warm)
	for _, bar := range pending {
		e.warm = append(e.warm, bar.Close)
	}

	if len(e.warm) < e.period {
		for _, bar := range pending {
			e.out.push(bar.Timestamp, math.NaN())
		}
		return
	}

	seeded := talib.Ema(e.warm, e.period)
	for i, bar := range pending {
		idx := start + i
		v := math.NaN()
		if idx >= e.period-1 {
			v = seeded[idx]
		}
		e.out.push(bar.Timestamp, v)
	}

	e.lastValue = seeded[len(seeded)-1]
	e.initialized = true
	e.warm = nil
}

// UpdateSingle applies one value to an initialized EMA
func (e *EMA) UpdateSingle(value float64) float64 {
	if !e.initialized {
		e.lastValue = value
		e.initialized = true
		return e.lastValue
	}
	// EMA = (Value * Alpha) + (Previous EMA * (1 - Alpha))
	e.lastValue = (value * e.alpha) + (e.lastValue * (1 - e.alpha))
	return e.lastValue
}

// Value returns the EMA at the bar with the given timestamp
func (e *EMA) Value(ts time.Time) (float64, bool) {
	return e.out.at(ts)
}

// IsInitialized returns whether the EMA has been seeded
func (e *EMA) IsInitialized() bool {
	return e.initialized
}

// GetRequiredPeriods returns the minimum number of periods needed
func (e *EMA) GetRequiredPeriods() int {
	return e.period
}

// GetLastValue returns the last calculated EMA value
func (e *EMA) GetLastValue() float64 {
	return e.lastValue
}

// ResetState resets the EMA internal state for new data periods
func (e *EMA) ResetState() {
	e.lastValue = 0.0
	e.initialized = false
	e.warm = nil
	e.out.reset()
}
