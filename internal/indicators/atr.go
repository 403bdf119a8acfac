package indicators

import (
	"math"
	"time"

	"github.com/markcheno/go-talib"

	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

// ATR represents the Average True Range technical indicator with Wilder's smoothing.
// talib seeds the first value once period+1 bars are buffered.
type ATR struct {
	period      int
	lastValue   float64
	lastClose   float64
	initialized bool
	highs       []float64
	lows        []float64
	closes      []float64
	out         series
}

// NewATR creates a new ATR indicator
func NewATR(period int) *ATR {
	if period < 2 {
		period = 2
	}
	return &ATR{period: period}
}

// Update processes bars not seen before
func (a *ATR) Update(bars []types.OHLCV) {
	pending := a.out.unseen(bars)
	if len(pending) == 0 {
		return
	}

	if !a.initialized {
		a.initialCalculation(pending)
		return
	}

	p := float64(a.period)
	for _, bar := range pending {
		tr := trueRange(bar, a.lastClose)
		a.lastValue = (a.lastValue*(p-1) + tr) / p
		a.lastClose = bar.Close
		a.out.push(bar.Timestamp, a.lastValue)
	}
}

func (a *ATR) initialCalculation(pending []types.OHLCV) {
	start := len(a.closes)
	for _, bar := range pending {
		a.highs = append(a.highs, bar.High)
		a.lows = append(a.lows, bar.Low)
		a.closes = append(a.closes, bar.Close)
	}

	if len(a.closes) <= a.period {
		for _, bar := range pending {
			a.out.push(bar.Timestamp, math.NaN())
		}
		return
	}

	seeded := talib.Atr(a.highs, a.lows, a.closes, a.period)
	for i, bar := range pending {
		idx := start + i
		v := math.NaN()
		if idx >= a.period {
			v = seeded[idx]
		}
		a.out.push(bar.Timestamp, v)
	}

	a.lastValue = seeded[len(seeded)-1]
	a.lastClose = a.closes[len(a.closes)-1]
	a.initialized = true
	a.highs, a.lows, a.closes = nil, nil, nil
}

// trueRange = max(High-Low, |High-PrevClose|, |Low-PrevClose|)
func trueRange(current types.OHLCV, prevClose float64) float64 {
	hl := current.High - current.Low
	hc := math.Abs(current.High - prevClose)
	lc := math.Abs(current.Low - prevClose)
	return math.Max(hl, math.Max(hc, lc))
}

// Value returns the ATR at the bar with the given timestamp
func (a *ATR) Value(ts time.Time) (float64, bool) {
	return a.out.at(ts)
}

// GetRequiredPeriods returns the minimum number of periods needed
func (a *ATR) GetRequiredPeriods() int {
	return a.period + 1 // Need extra period for True Range calculation
}

// GetLastValue returns the last calculated ATR value
func (a *ATR) GetLastValue() float64 {
	return a.lastValue
}
