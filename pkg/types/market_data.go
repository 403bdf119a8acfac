package types

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// OHLCV is one immutable candle. Sequences are ordered by strictly increasing Timestamp.
type OHLCV struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

// Timeframe is a candle interval such as "5m", "1h" or "1d"
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe3m  Timeframe = "3m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe30m Timeframe = "30m"
	Timeframe1h  Timeframe = "1h"
	Timeframe2h  Timeframe = "2h"
	Timeframe4h  Timeframe = "4h"
	Timeframe6h  Timeframe = "6h"
	Timeframe12h Timeframe = "12h"
	Timeframe1d  Timeframe = "1d"
	Timeframe1w  Timeframe = "1w"
)

var timeframeDurations = map[Timeframe]time.Duration{
	Timeframe1m:  time.Minute,
	Timeframe3m:  3 * time.Minute,
	Timeframe5m:  5 * time.Minute,
	Timeframe15m: 15 * time.Minute,
	Timeframe30m: 30 * time.Minute,
	Timeframe1h:  time.Hour,
	Timeframe2h:  2 * time.Hour,
	Timeframe4h:  4 * time.Hour,
	Timeframe6h:  6 * time.Hour,
	Timeframe12h: 12 * time.Hour,
	Timeframe1d:  24 * time.Hour,
	Timeframe1w:  7 * 24 * time.Hour,
}

// ParseTimeframe normalizes strings like "1H", " 15m " or "60" (minutes) into a Timeframe
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := timeframeDurations[tf]; ok {
		return tf, nil
	}

	// Bybit-style minute intervals
	switch tf {
	case "1", "3", "5", "15", "30":
		return Timeframe(string(tf) + "m"), nil
	case "60":
		return Timeframe1h, nil
	case "120":
		return Timeframe2h, nil
	case "240":
		return Timeframe4h, nil
	case "360":
		return Timeframe6h, nil
	case "720":
		return Timeframe12h, nil
	case "d":
		return Timeframe1d, nil
	case "w":
		return Timeframe1w, nil
	}

	return "", fmt.Errorf("unsupported timeframe %q", s)
}

// Duration returns the wall-clock length of one candle, or 0 for an unknown timeframe
func (tf Timeframe) Duration() time.Duration {
	return timeframeDurations[tf]
}

// Valid reports whether the timeframe is known
func (tf Timeframe) Valid() bool {
	_, ok := timeframeDurations[tf]
	return ok
}

// BarsFor converts a wall-clock duration to a bar count, rounding up.
// Zero durations and unknown timeframes yield 0.
func (tf Timeframe) BarsFor(d time.Duration) int {
	step := tf.Duration()
	if step <= 0 || d <= 0 {
		return 0
	}
	return int(math.Ceil(float64(d) / float64(step)))
}

func (tf Timeframe) String() string {
	return string(tf)
}
