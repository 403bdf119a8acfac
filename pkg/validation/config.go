package validation

// Package validation measures how well optimized parameters hold up on unseen bars

import (
	"fmt"

	opterrors "github.com/ducminhle1904/crypto-strategy-optimizer/internal/errors"
)

// Walk-forward modes
const (
	ModeHoldout = "holdout"
	ModeRolling = "rolling"
)

// Config selects the walk-forward scheme. Holdout optimizes on the first SplitRatio of the
// bars and tests on the rest; rolling repeats that over sliding day windows.
type Config struct {
	Enable     bool    `mapstructure:"enable" json:"enable" yaml:"enable"`
	Rolling    bool    `mapstructure:"rolling" json:"rolling" yaml:"rolling"`
	SplitRatio float64 `mapstructure:"split_ratio" json:"split_ratio" yaml:"split_ratio"`
	TrainDays  int     `mapstructure:"train_days" json:"train_days" yaml:"train_days"`
	TestDays   int     `mapstructure:"test_days" json:"test_days" yaml:"test_days"`
	RollDays   int     `mapstructure:"roll_days" json:"roll_days" yaml:"roll_days"`
}

// DefaultConfig returns a disabled 70/30 holdout with 90/30/30 day rolling windows
func DefaultConfig() Config {
	return Config{
		SplitRatio: 0.7,
		TrainDays:  90,
		TestDays:   30,
		RollDays:   30,
	}
}

// Mode names the configured scheme
func (c Config) Mode() string {
	if c.Rolling {
		return ModeRolling
	}
	return ModeHoldout
}

// Validate checks the settings of the selected mode. A disabled config is always valid.
func (c Config) Validate() error {
	if !c.Enable {
		return nil
	}
	if c.Rolling {
		if c.TrainDays <= 0 || c.TestDays <= 0 || c.RollDays <= 0 {
			return opterrors.NewConfigurationError("validation", "Validate",
				fmt.Sprintf("train_days, test_days and roll_days must be positive, got %d/%d/%d",
					c.TrainDays, c.TestDays, c.RollDays))
		}
		return nil
	}
	if c.SplitRatio <= 0 || c.SplitRatio >= 1 {
		return opterrors.NewConfigurationError("validation", "Validate",
			fmt.Sprintf("split_ratio must be in (0, 1), got %g", c.SplitRatio))
	}
	return nil
}
