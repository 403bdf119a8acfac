package indicators

import (
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

// TrendSignal is the direction reported by a trend indicator
type TrendSignal int

const (
	TrendNeutral TrendSignal = iota
	TrendBullish
	TrendBearish
)

func (s TrendSignal) String() string {
	switch s {
	case TrendBullish:
		return "bullish"
	case TrendBearish:
		return "bearish"
	default:
		return "neutral"
	}
}

// VolumeSignal classifies the current bar's volume
type VolumeSignal int

const (
	VolumeNormal VolumeSignal = iota
	VolumeHigh
	VolumeLow
)

func (s VolumeSignal) String() string {
	switch s {
	case VolumeHigh:
		return "high"
	case VolumeLow:
		return "low"
	default:
		return "normal"
	}
}

// RiskLevels are absolute stop-loss and take-profit prices for both sides
type RiskLevels struct {
	LongStop        float64
	ShortStop       float64
	LongTakeProfit  float64
	ShortTakeProfit float64
}

// Indicator is the part shared by every role. Indicators are stateful: Update only
// processes bars whose timestamps have not been seen yet.
type Indicator interface {
	Name() string
	Kind() params.Kind
	Update(bars []types.OHLCV)
	GetRequiredPeriods() int
}

// TrendIndicator reports a trend direction for the last bar of the window
type TrendIndicator interface {
	Indicator
	Trend(bars []types.OHLCV) TrendSignal
}

// VolumeIndicator classifies the volume of the last bar of the window
type VolumeIndicator interface {
	Indicator
	Volume(bars []types.OHLCV) VolumeSignal
}

// RiskIndicator produces stop and take-profit levels anchored at the last bar's close.
// ok is false while the indicator is still warming up.
type RiskIndicator interface {
	Indicator
	Levels(bars []types.OHLCV) (levels RiskLevels, ok bool)
}
