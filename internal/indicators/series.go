package indicators

import (
	"math"
	"sort"
	"time"

	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

// series caches one computed value per bar, keyed by the bar's timestamp.
// Bars arrive in strictly increasing timestamp order.
type series struct {
	stamps []int64
	values []float64
}

// unseen returns the suffix of bars newer than the last cached timestamp
func (s *series) unseen(bars []types.OHLCV) []types.OHLCV {
	if len(s.stamps) == 0 {
		return bars
	}
	last := s.stamps[len(s.stamps)-1]
	i := sort.Search(len(bars), func(i int) bool {
		return bars[i].Timestamp.UnixNano() > last
	})
	return bars[i:]
}

func (s *series) push(ts time.Time, v float64) {
	s.stamps = append(s.stamps, ts.UnixNano())
	s.values = append(s.values, v)
}

// at returns the cached value for a timestamp; ok is false for unknown or not-ready bars
func (s *series) at(ts time.Time) (float64, bool) {
	key := ts.UnixNano()
	i := sort.Search(len(s.stamps), func(i int) bool { return s.stamps[i] >= key })
	if i == len(s.stamps) || s.stamps[i] != key {
		return 0, false
	}
	v := s.values[i]
	return v, !math.IsNaN(v)
}

// prev returns the value cached just before ts
func (s *series) prev(ts time.Time) (float64, bool) {
	key := ts.UnixNano()
	i := sort.Search(len(s.stamps), func(i int) bool { return s.stamps[i] >= key })
	if i == 0 || i > len(s.stamps) {
		return 0, false
	}
	v := s.values[i-1]
	return v, !math.IsNaN(v)
}

func (s *series) len() int {
	return len(s.values)
}

func (s *series) reset() {
	s.stamps = s.stamps[:0]
	s.values = s.values[:0]
}

func lastBar(bars []types.OHLCV) (types.OHLCV, bool) {
	if len(bars) == 0 {
		return types.OHLCV{}, false
	}
	return bars[len(bars)-1], true
}
