package indicators

import (
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

// ATRRisk places stops and targets at multiples of the ATR away from the close
type ATRRisk struct {
	name           string
	atr            *ATR
	stopMult       float64
	takeProfitMult float64
}

// NewATRRisk creates a risk manager from an "atr_risk" parameter set
func NewATRRisk(set *params.ParameterSet) *ATRRisk {
	return &ATRRisk{
		name:           set.Name(),
		atr:            NewATR(set.Int(params.FieldPeriod)),
		stopMult:       set.Float(params.FieldStopMult),
		takeProfitMult: set.Float(params.FieldTakeProfitMult),
	}
}

// Name returns the instance name
func (r *ATRRisk) Name() string {
	return r.name
}

// Kind returns the parameter kind tag
func (r *ATRRisk) Kind() params.Kind {
	return params.KindATRRisk
}

// GetRequiredPeriods returns the bars needed before the first levels
func (r *ATRRisk) GetRequiredPeriods() int {
	return r.atr.GetRequiredPeriods()
}

// Update feeds the ATR
func (r *ATRRisk) Update(bars []types.OHLCV) {
	r.atr.Update(bars)
}

// Levels returns ATR-scaled levels around the last close
func (r *ATRRisk) Levels(bars []types.OHLCV) (RiskLevels, bool) {
	r.Update(bars)
	bar, ok := lastBar(bars)
	if !ok {
		return RiskLevels{}, false
	}
	atr, ok := r.atr.Value(bar.Timestamp)
	if !ok || atr <= 0 {
		return RiskLevels{}, false
	}

	stop := atr * r.stopMult
	target := atr * r.takeProfitMult
	return RiskLevels{
		LongStop:        bar.Close - stop,
		ShortStop:       bar.Close + stop,
		LongTakeProfit:  bar.Close + target,
		ShortTakeProfit: bar.Close - target,
	}, true
}

// PercentRisk places stops and targets at fixed percentages of the close
type PercentRisk struct {
	name          string
	stopPct       float64
	takeProfitPct float64
}

// NewPercentRisk creates a risk manager from a "percent_risk" parameter set
func NewPercentRisk(set *params.ParameterSet) *PercentRisk {
	return &PercentRisk{
		name:          set.Name(),
		stopPct:       set.Float(params.FieldStopPct),
		takeProfitPct: set.Float(params.FieldTakeProfitPct),
	}
}

// Name returns the instance name
func (r *PercentRisk) Name() string {
	return r.name
}

// Kind returns the parameter kind tag
func (r *PercentRisk) Kind() params.Kind {
	return params.KindPercentRisk
}

// GetRequiredPeriods returns 1: levels only need the current close
func (r *PercentRisk) GetRequiredPeriods() int {
	return 1
}

// Update is a no-op, the levels depend on the last close only
func (r *PercentRisk) Update(bars []types.OHLCV) {}

// Levels returns percentage levels around the last close
func (r *PercentRisk) Levels(bars []types.OHLCV) (RiskLevels, bool) {
	bar, ok := lastBar(bars)
	if !ok || bar.Close <= 0 {
		return RiskLevels{}, false
	}

	stop := r.stopPct / 100
	target := r.takeProfitPct / 100
	return RiskLevels{
		LongStop:        bar.Close * (1 - stop),
		ShortStop:       bar.Close * (1 + stop),
		LongTakeProfit:  bar.Close * (1 + target),
		ShortTakeProfit: bar.Close * (1 - target),
	}, true
}
