package indicators

import (
	"math"
	"time"

	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

// ALMA is the Arnaud Legoux Moving Average used as a trend filter.
// Bullish when price closes above a rising ALMA, bearish below a falling one.
type ALMA struct {
	name    string
	period  int
	weights []float64
	norm    float64
	window  []float64
	out     series
}

// NewALMA creates an ALMA from an "alma" parameter set
func NewALMA(set *params.ParameterSet) *ALMA {
	return newALMA(set.Name(), set.Int(params.FieldPeriod), set.Float(params.FieldOffset), set.Float(params.FieldSigma))
}

func newALMA(name string, period int, offset, sigma float64) *ALMA {
	if period < 1 {
		period = 1
	}
	if sigma <= 0 {
		sigma = 6
	}
	m := offset * float64(period-1)
	s := float64(period) / sigma

	weights := make([]float64, period)
	norm := 0.0
	for i := range weights {
		w := math.Exp(-((float64(i) - m) * (float64(i) - m)) / (2 * s * s))
		weights[i] = w
		norm += w
	}

	return &ALMA{
		name:    name,
		period:  period,
		weights: weights,
		norm:    norm,
		window:  make([]float64, 0, period),
	}
}

// Name returns the instance name
func (a *ALMA) Name() string {
	return a.name
}

// Kind returns the parameter kind tag
func (a *ALMA) Kind() params.Kind {
	return params.KindALMA
}

// GetRequiredPeriods returns the bars needed before the first signal
func (a *ALMA) GetRequiredPeriods() int {
	return a.period + 1
}

// Update processes bars not seen before
func (a *ALMA) Update(bars []types.OHLCV) {
	for _, bar := range a.out.unseen(bars) {
		if len(a.window) == a.period {
			copy(a.window, a.window[1:])
			a.window = a.window[:a.period-1]
		}
		a.window = append(a.window, bar.Close)

		if len(a.window) < a.period {
			a.out.push(bar.Timestamp, math.NaN())
			continue
		}
		sum := 0.0
		for i, w := range a.weights {
			sum += w * a.window[i]
		}
		a.out.push(bar.Timestamp, sum/a.norm)
	}
}

// Value returns the ALMA at the bar with the given timestamp
func (a *ALMA) Value(ts time.Time) (float64, bool) {
	return a.out.at(ts)
}

// Trend compares the last close with the ALMA and the ALMA with its previous value
func (a *ALMA) Trend(bars []types.OHLCV) TrendSignal {
	a.Update(bars)
	bar, ok := lastBar(bars)
	if !ok {
		return TrendNeutral
	}
	cur, ok := a.out.at(bar.Timestamp)
	if !ok {
		return TrendNeutral
	}
	prev, ok := a.out.prev(bar.Timestamp)
	if !ok {
		return TrendNeutral
	}

	switch {
	case bar.Close > cur && cur > prev:
		return TrendBullish
	case bar.Close < cur && cur < prev:
		return TrendBearish
	default:
		return TrendNeutral
	}
}
