package params

// Built-in indicator kinds. Tags are part of the binary format and must never be reused.
const (
	KindEMACross    Kind = 1
	KindALMA        Kind = 2
	KindVolumeSpike Kind = 3
	KindATRRisk     Kind = 4
	KindPercentRisk Kind = 5
)

// Field names of the built-in kinds
const (
	FieldFastPeriod     = "fast_period"
	FieldSlowPeriod     = "slow_period"
	FieldConfirm        = "confirm"
	FieldPeriod         = "period"
	FieldOffset         = "offset"
	FieldSigma          = "sigma"
	FieldMultiplier     = "multiplier"
	FieldStopMult       = "stop_mult"
	FieldTakeProfitMult = "take_profit_mult"
	FieldStopPct        = "stop_pct"
	FieldTakeProfitPct  = "take_profit_pct"
)

// BuiltinSchemas returns the schemas of every indicator kind shipped with the optimizer
func BuiltinSchemas() []Schema {
	return []Schema{
		{
			Kind: KindEMACross,
			Name: "ema_cross",
			Role: RoleTrend,
			Fields: []Field{
				IntField(FieldFastPeriod, 12, 5, 50, 1),
				IntField(FieldSlowPeriod, 50, 20, 200, 5),
				BoolField(FieldConfirm, false),
			},
		},
		{
			Kind: KindALMA,
			Name: "alma",
			Role: RoleTrend,
			Fields: []Field{
				IntField(FieldPeriod, 21, 5, 100, 1),
				FloatField(FieldOffset, 0.85, 0.5, 0.95, 0.05),
				FloatField(FieldSigma, 6, 2, 10, 0.5),
			},
		},
		{
			Kind: KindVolumeSpike,
			Name: "volume_spike",
			Role: RoleVolume,
			Fields: []Field{
				IntField(FieldPeriod, 20, 5, 100, 5),
				FloatField(FieldMultiplier, 1.5, 1.0, 3.0, 0.1),
			},
		},
		{
			Kind: KindATRRisk,
			Name: "atr_risk",
			Role: RoleRiskManagement,
			Fields: []Field{
				IntField(FieldPeriod, 14, 5, 50, 1),
				FloatField(FieldStopMult, 2, 0.5, 5, 0.25),
				FloatField(FieldTakeProfitMult, 3, 0.5, 10, 0.25),
			},
		},
		{
			Kind: KindPercentRisk,
			Name: "percent_risk",
			Role: RoleRiskManagement,
			Fields: []Field{
				FloatField(FieldStopPct, 2, 0.5, 10, 0.5),
				FloatField(FieldTakeProfitPct, 4, 0.5, 20, 0.5),
			},
		},
	}
}

// DefaultRegistry builds a fresh registry holding the built-in kinds
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, s := range BuiltinSchemas() {
		r.MustRegister(s)
	}
	return r
}
