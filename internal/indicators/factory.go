package indicators

import (
	"fmt"

	opterrors "github.com/ducminhle1904/crypto-strategy-optimizer/internal/errors"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
)

// New builds a fresh, empty indicator for a parameter set.
// The concrete type implements exactly one of the role interfaces.
func New(set *params.ParameterSet) (Indicator, error) {
	if set == nil {
		return nil, opterrors.NewConfigurationError("indicators", "New", "nil parameter set")
	}

	switch set.Kind() {
	case params.KindEMACross:
		return NewEMACross(set), nil
	case params.KindALMA:
		return NewALMA(set), nil
	case params.KindVolumeSpike:
		return NewVolumeSpike(set), nil
	case params.KindATRRisk:
		return NewATRRisk(set), nil
	case params.KindPercentRisk:
		return NewPercentRisk(set), nil
	default:
		return nil, opterrors.NewConfigurationError("indicators", "New",
			fmt.Sprintf("no indicator implementation for kind %s (%d)", set.KindName(), set.Kind()))
	}
}
