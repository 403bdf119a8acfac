package indicators

import (
	"math"
	"time"

	"github.com/markcheno/go-talib"

	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

// Source selects the bar value an indicator is computed on
type Source func(types.OHLCV) float64

// ClosePrice and BarVolume are the sources used by the built-in indicators
var (
	ClosePrice Source = func(b types.OHLCV) float64 { return b.Close }
	BarVolume  Source = func(b types.OHLCV) float64 { return b.Volume }
)

// SMA represents the Simple Moving Average over a rolling window
type SMA struct {
	period    int
	source    Source
	window    []float64
	head      int
	sum       float64
	lastValue float64
	ready     bool
	out       series
}

// NewSMA creates a new SMA indicator over the given source
func NewSMA(period int, source Source) *SMA {
	if period < 1 {
		period = 1
	}
	if source == nil {
		source = ClosePrice
	}
	return &SMA{
		period: period,
		source: source,
	}
}

// Update processes bars not seen before
func (s *SMA) Update(bars []types.OHLCV) {
	pending := s.out.unseen(bars)
	if len(pending) == 0 {
		return
	}

	if !s.ready {
		pending = s.initialCalculation(pending)
	}

	for _, bar := range pending {
		v := s.source(bar)
		s.sum += v - s.window[s.head]
		s.window[s.head] = v
		s.head = (s.head + 1) % s.period
		s.lastValue = s.sum / float64(s.period)
		s.out.push(bar.Timestamp, s.lastValue)
	}
}

// initialCalculation fills the window; once it is full the first average comes from talib
func (s *SMA) initialCalculation(pending []types.OHLCV) []types.OHLCV {
	need := s.period - len(s.window)
	if need > len(pending) {
		need = len(pending)
	}

	for _, bar := range pending[:need] {
		s.window = append(s.window, s.source(bar))
		s.out.push(bar.Timestamp, math.NaN())
	}
	if len(s.window) < s.period {
		return nil
	}

	seeded := talib.Sma(s.window, s.period)
	s.lastValue = seeded[s.period-1]
	s.sum = 0
	for _, v := range s.window {
		s.sum += v
	}
	s.head = 0
	s.ready = true

	// the bar completing the window now has a value
	s.out.values[len(s.out.values)-1] = s.lastValue
	return pending[need:]
}

// Value returns the SMA at the bar with the given timestamp
func (s *SMA) Value(ts time.Time) (float64, bool) {
	return s.out.at(ts)
}

// Previous returns the SMA of the bar before ts
func (s *SMA) Previous(ts time.Time) (float64, bool) {
	return s.out.prev(ts)
}

// GetRequiredPeriods returns the minimum number of periods needed
func (s *SMA) GetRequiredPeriods() int {
	return s.period
}

// GetLastValue returns the last calculated SMA value
func (s *SMA) GetLastValue() float64 {
	return s.lastValue
}
