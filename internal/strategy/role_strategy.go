package strategy

import (
	"fmt"
	"strings"

	opterrors "github.com/ducminhle1904/crypto-strategy-optimizer/internal/errors"
	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/indicators"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

// RoleStrategy combines trend, volume and risk indicators:
// Long when every trend indicator is bullish and every volume indicator (if any) is high,
// Short on the symmetric bearish condition. Exit levels come from the single risk indicator.
type RoleStrategy struct {
	trends  []indicators.TrendIndicator
	volumes []indicators.VolumeIndicator
	risk    indicators.RiskIndicator
	name    string
}

// New creates a strategy from already built indicators
func New(trends []indicators.TrendIndicator, volumes []indicators.VolumeIndicator, risk indicators.RiskIndicator) (*RoleStrategy, error) {
	if len(trends) == 0 {
		return nil, opterrors.NewConfigurationError("strategy", "New", "at least one trend indicator is required")
	}
	if risk == nil {
		return nil, opterrors.NewConfigurationError("strategy", "New", "a risk management indicator is required")
	}

	s := &RoleStrategy{
		trends:  trends,
		volumes: volumes,
		risk:    risk,
	}
	s.name = s.buildName()
	return s, nil
}

// Build resolves every configuration entry to its role interface and creates the strategy
func Build(cfg *params.Configuration) (*RoleStrategy, error) {
	if cfg == nil || cfg.Len() == 0 {
		return nil, opterrors.NewConfigurationError("strategy", "Build", "empty indicator set")
	}

	var (
		trends  []indicators.TrendIndicator
		volumes []indicators.VolumeIndicator
		risk    indicators.RiskIndicator
	)

	for i, entry := range cfg.Entries() {
		ind, err := indicators.New(entry.Set)
		if err != nil {
			return nil, err
		}

		switch entry.Role {
		case params.RoleTrend:
			t, ok := ind.(indicators.TrendIndicator)
			if !ok {
				return nil, roleMismatch(i, ind, entry.Role)
			}
			trends = append(trends, t)
		case params.RoleVolume:
			v, ok := ind.(indicators.VolumeIndicator)
			if !ok {
				return nil, roleMismatch(i, ind, entry.Role)
			}
			volumes = append(volumes, v)
		case params.RoleRiskManagement:
			r, ok := ind.(indicators.RiskIndicator)
			if !ok {
				return nil, roleMismatch(i, ind, entry.Role)
			}
			if risk != nil {
				return nil, opterrors.NewConfigurationError("strategy", "Build",
					fmt.Sprintf("entry %d: only one risk management indicator is allowed", i))
			}
			risk = r
		default:
			return nil, opterrors.NewConfigurationError("strategy", "Build",
				fmt.Sprintf("entry %d: unknown role %d", i, entry.Role))
		}
	}

	return New(trends, volumes, risk)
}

func roleMismatch(i int, ind indicators.Indicator, role params.Role) error {
	return opterrors.NewConfigurationError("strategy", "Build",
		fmt.Sprintf("entry %d: indicator %s cannot act as %s", i, ind.Name(), role))
}

// Evaluate returns the order for the last bar of the window
func (s *RoleStrategy) Evaluate(bars []types.OHLCV) TradeOrder {
	if len(bars) == 0 {
		return TradeOrder{}
	}

	// every indicator sees every bar, no short-circuit
	long, short := true, true
	for _, t := range s.trends {
		signal := t.Trend(bars)
		long = long && signal == indicators.TrendBullish
		short = short && signal == indicators.TrendBearish
	}
	for _, v := range s.volumes {
		high := v.Volume(bars) == indicators.VolumeHigh
		long = long && high
		short = short && high
	}
	levels, ok := s.risk.Levels(bars)

	if !ok || (!long && !short) {
		return TradeOrder{}
	}

	price := bars[len(bars)-1].Close
	if long {
		if levels.LongStop <= 0 || levels.LongStop >= price || levels.LongTakeProfit <= price {
			return TradeOrder{}
		}
		return TradeOrder{Direction: DirectionLong, StopLoss: levels.LongStop, TakeProfit: levels.LongTakeProfit}
	}

	if levels.ShortStop <= price || levels.ShortTakeProfit >= price || levels.ShortTakeProfit <= 0 {
		return TradeOrder{}
	}
	return TradeOrder{Direction: DirectionShort, StopLoss: levels.ShortStop, TakeProfit: levels.ShortTakeProfit}
}

// Observe updates every indicator with the window
func (s *RoleStrategy) Observe(bars []types.OHLCV) {
	for _, t := range s.trends {
		t.Update(bars)
	}
	for _, v := range s.volumes {
		v.Update(bars)
	}
	s.risk.Update(bars)
}

// GetName returns the name of the strategy
func (s *RoleStrategy) GetName() string {
	return s.name
}

// GetRequiredPeriods returns the longest warm-up of all indicators
func (s *RoleStrategy) GetRequiredPeriods() int {
	required := s.risk.GetRequiredPeriods()
	for _, t := range s.trends {
		if p := t.GetRequiredPeriods(); p > required {
			required = p
		}
	}
	for _, v := range s.volumes {
		if p := v.GetRequiredPeriods(); p > required {
			required = p
		}
	}
	return required
}

func (s *RoleStrategy) buildName() string {
	var names []string
	for _, t := range s.trends {
		names = append(names, t.Name())
	}
	for _, v := range s.volumes {
		names = append(names, v.Name())
	}
	names = append(names, s.risk.Name())
	return strings.Join(names, "+")
}
