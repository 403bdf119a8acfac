package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	opterrors "github.com/ducminhle1904/crypto-strategy-optimizer/internal/errors"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// generateTestData creates oscillating data around 100
func generateTestData(count int) []types.OHLCV {
	data := make([]types.OHLCV, count)
	basePrice := 100.0

	for i := 0; i < count; i++ {
		change := (float64(i%3) - 1) * 2.0 // -2, 0, or 2
		price := basePrice + change
		data[i] = types.OHLCV{
			Timestamp: testStart.Add(time.Duration(i) * time.Hour),
			Open:      price,
			High:      price + 1.0,
			Low:       price - 1.0,
			Close:     price,
			Volume:    1000.0 + float64(i%5)*100,
		}
		basePrice = price
	}
	return data
}

// generateTrendData creates a straight line with the given slope per bar
func generateTrendData(count int, slope float64) []types.OHLCV {
	data := make([]types.OHLCV, count)
	for i := 0; i < count; i++ {
		price := 100.0 + float64(i)*slope
		data[i] = types.OHLCV{
			Timestamp: testStart.Add(time.Duration(i) * time.Hour),
			Open:      price,
			High:      price + 1.0,
			Low:       price - 1.0,
			Close:     price,
			Volume:    1000.0,
		}
	}
	return data
}

func newSet(t *testing.T, kind string) *params.ParameterSet {
	t.Helper()
	set, err := params.DefaultRegistry().NewSet(kind, "")
	require.NoError(t, err)
	return set
}

func TestEMA_SeedIsSimpleAverage(t *testing.T) {
	data := generateTrendData(5, 1) // closes 100..104
	ema := NewEMA(5)
	ema.Update(data[:4])
	_, ok := ema.Value(data[3].Timestamp)
	assert.False(t, ok, "not ready before a full period")
	assert.False(t, ema.IsInitialized())

	ema.Update(data)
	v, ok := ema.Value(data[4].Timestamp)
	require.True(t, ok)
	assert.InDelta(t, 102.0, v, 1e-9)
	assert.True(t, ema.IsInitialized())
}

func TestEMA_IncrementalMatchesBatch(t *testing.T) {
	data := generateTestData(120)

	batch := NewEMA(10)
	batch.Update(data)

	incremental := NewEMA(10)
	for i := 1; i <= len(data); i++ {
		incremental.Update(data[:i])
	}

	for i, bar := range data {
		want, okWant := batch.Value(bar.Timestamp)
		got, okGot := incremental.Value(bar.Timestamp)
		require.Equal(t, okWant, okGot, "bar %d", i)
		if okWant {
			assert.InDelta(t, want, got, 1e-9, "bar %d", i)
		}
	}
}

func TestEMA_ProcessesOnlyUnseenBars(t *testing.T) {
	data := generateTestData(60)
	ema := NewEMA(10)

	ema.Update(data[:50])
	ema.Update(data[:50])
	assert.Equal(t, 50, ema.out.len())

	// an older window adds nothing
	ema.Update(data[:40])
	assert.Equal(t, 50, ema.out.len())

	ema.Update(data)
	assert.Equal(t, 60, ema.out.len())

	ema.ResetState()
	assert.Equal(t, 0, ema.out.len())
	assert.False(t, ema.IsInitialized())
}

func TestSMA_RollingAverage(t *testing.T) {
	data := generateTrendData(10, 1)
	sma := NewSMA(4, ClosePrice)

	for i := 1; i <= len(data); i++ {
		sma.Update(data[:i])
	}

	_, ok := sma.Value(data[2].Timestamp)
	assert.False(t, ok)

	for i := 3; i < len(data); i++ {
		v, ok := sma.Value(data[i].Timestamp)
		require.True(t, ok)
		// mean of closes i-3..i
		assert.InDelta(t, 100.0+float64(i)-1.5, v, 1e-9)
	}

	prev, ok := sma.Previous(data[9].Timestamp)
	require.True(t, ok)
	assert.InDelta(t, 106.5, prev, 1e-9)
}

func TestATR_ConstantRange(t *testing.T) {
	data := generateTrendData(40, 0) // high-low = 2 on every bar
	atr := NewATR(14)
	atr.Update(data[:10])
	atr.Update(data)

	_, ok := atr.Value(data[13].Timestamp)
	assert.False(t, ok)
	for i := 14; i < len(data); i++ {
		v, ok := atr.Value(data[i].Timestamp)
		require.True(t, ok)
		assert.InDelta(t, 2.0, v, 1e-9)
	}
	assert.Equal(t, 15, atr.GetRequiredPeriods())
}

func TestALMA_ConstantAndTrend(t *testing.T) {
	flat := generateTrendData(30, 0)
	alma := newALMA("flat", 9, 0.85, 6)
	alma.Update(flat)
	v, ok := alma.Value(flat[20].Timestamp)
	require.True(t, ok)
	assert.InDelta(t, 100.0, v, 1e-9)
	assert.Equal(t, TrendNeutral, alma.Trend(flat))

	rising := generateTrendData(60, 0.5)
	assert.Equal(t, TrendBullish, NewALMA(newSet(t, "alma")).Trend(rising))

	falling := generateTrendData(60, -0.5)
	assert.Equal(t, TrendBearish, NewALMA(newSet(t, "alma")).Trend(falling))

	assert.Equal(t, TrendNeutral, NewALMA(newSet(t, "alma")).Trend(rising[:5]), "warming up")
}

func TestEMACross_Trend(t *testing.T) {
	set := newSet(t, "ema_cross")

	rising := generateTrendData(120, 0.5)
	cross := NewEMACross(set)
	assert.Equal(t, TrendNeutral, cross.Trend(rising[:30]), "slow EMA not ready")
	assert.Equal(t, TrendBullish, cross.Trend(rising))

	falling := generateTrendData(120, -0.5)
	assert.Equal(t, TrendBearish, NewEMACross(set).Trend(falling))

	require.NoError(t, set.Set(params.FieldConfirm, 1))
	confirmed := NewEMACross(set)
	// last close drops below the fast EMA while fast > slow
	dip := append([]types.OHLCV(nil), rising...)
	last := dip[len(dip)-1]
	last.Close = 100
	dip[len(dip)-1] = last
	assert.Equal(t, TrendNeutral, confirmed.Trend(dip))
}

func TestVolumeSpike_Classifies(t *testing.T) {
	set := newSet(t, "volume_spike") // period 20, multiplier 1.5
	data := generateTrendData(40, 0)

	spike := append([]types.OHLCV(nil), data...)
	spike[39].Volume = 5000
	assert.Equal(t, VolumeHigh, NewVolumeSpike(set).Volume(spike))

	quiet := append([]types.OHLCV(nil), data...)
	quiet[39].Volume = 100
	assert.Equal(t, VolumeLow, NewVolumeSpike(set).Volume(quiet))

	assert.Equal(t, VolumeNormal, NewVolumeSpike(set).Volume(data))
	assert.Equal(t, VolumeNormal, NewVolumeSpike(set).Volume(data[:10]), "warming up")
}

func TestRiskLevels(t *testing.T) {
	data := generateTrendData(30, 0)

	atrRisk := NewATRRisk(newSet(t, "atr_risk")) // period 14, stop 2x, target 3x
	_, ok := atrRisk.Levels(data[:10])
	assert.False(t, ok)
	levels, ok := atrRisk.Levels(data)
	require.True(t, ok)
	assert.InDelta(t, 96.0, levels.LongStop, 1e-9)
	assert.InDelta(t, 104.0, levels.ShortStop, 1e-9)
	assert.InDelta(t, 106.0, levels.LongTakeProfit, 1e-9)
	assert.InDelta(t, 94.0, levels.ShortTakeProfit, 1e-9)

	pct := NewPercentRisk(newSet(t, "percent_risk")) // stop 2%, target 4%
	levels, ok = pct.Levels(data[:1])
	require.True(t, ok)
	assert.InDelta(t, 98.0, levels.LongStop, 1e-9)
	assert.InDelta(t, 102.0, levels.ShortStop, 1e-9)
	assert.InDelta(t, 104.0, levels.LongTakeProfit, 1e-9)
	assert.InDelta(t, 96.0, levels.ShortTakeProfit, 1e-9)

	_, ok = pct.Levels(nil)
	assert.False(t, ok)
}

func TestNew_ResolvesRoles(t *testing.T) {
	tests := []struct {
		kind string
		role params.Role
	}{
		{"ema_cross", params.RoleTrend},
		{"alma", params.RoleTrend},
		{"volume_spike", params.RoleVolume},
		{"atr_risk", params.RoleRiskManagement},
		{"percent_risk", params.RoleRiskManagement},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			ind, err := New(newSet(t, tt.kind))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, ind.Name())

			_, isTrend := ind.(TrendIndicator)
			_, isVolume := ind.(VolumeIndicator)
			_, isRisk := ind.(RiskIndicator)
			assert.Equal(t, tt.role == params.RoleTrend, isTrend)
			assert.Equal(t, tt.role == params.RoleVolume, isVolume)
			assert.Equal(t, tt.role == params.RoleRiskManagement, isRisk)
		})
	}
}

func TestNew_UnknownKind(t *testing.T) {
	r := params.NewRegistry()
	require.NoError(t, r.Register(params.Schema{
		Kind:   42,
		Name:   "custom",
		Role:   params.RoleTrend,
		Fields: []params.Field{params.IntField("x", 1, 1, 3, 1)},
	}))
	set, err := r.NewSet("custom", "")
	require.NoError(t, err)

	_, err = New(set)
	require.Error(t, err)
	assert.True(t, opterrors.HasCategory(err, opterrors.ErrorCategoryConfiguration))
}
