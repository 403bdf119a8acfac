package indicators

import (
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

// VolumeSpike compares the bar's volume with the average volume of the preceding bars
type VolumeSpike struct {
	name       string
	average    *SMA
	multiplier float64
}

// NewVolumeSpike creates a volume filter from a "volume_spike" parameter set
func NewVolumeSpike(set *params.ParameterSet) *VolumeSpike {
	multiplier := set.Float(params.FieldMultiplier)
	if multiplier <= 0 {
		multiplier = 1
	}
	return &VolumeSpike{
		name:       set.Name(),
		average:    NewSMA(set.Int(params.FieldPeriod), BarVolume),
		multiplier: multiplier,
	}
}

// Name returns the instance name
func (v *VolumeSpike) Name() string {
	return v.name
}

// Kind returns the parameter kind tag
func (v *VolumeSpike) Kind() params.Kind {
	return params.KindVolumeSpike
}

// GetRequiredPeriods returns the bars needed before the first signal
func (v *VolumeSpike) GetRequiredPeriods() int {
	return v.average.GetRequiredPeriods() + 1
}

// Update feeds the volume average
func (v *VolumeSpike) Update(bars []types.OHLCV) {
	v.average.Update(bars)
}

// Volume is high above multiplier×average, low below average/multiplier
func (v *VolumeSpike) Volume(bars []types.OHLCV) VolumeSignal {
	v.Update(bars)
	bar, ok := lastBar(bars)
	if !ok {
		return VolumeNormal
	}
	avg, ok := v.average.Previous(bar.Timestamp)
	if !ok || avg <= 0 {
		return VolumeNormal
	}

	switch {
	case bar.Volume > avg*v.multiplier:
		return VolumeHigh
	case bar.Volume < avg/v.multiplier:
		return VolumeLow
	default:
		return VolumeNormal
	}
}
