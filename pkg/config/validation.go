package config

import (
	"fmt"
	"sort"
	"strings"

	opterrors "github.com/ducminhle1904/crypto-strategy-optimizer/internal/errors"
	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/strategy"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
)

// Validate checks every section and returns a CONFIG error naming the first offending field
func (c *OptimizerConfig) Validate() error {
	if err := c.validateData(); err != nil {
		return err
	}

	engineConfig, err := c.BacktestEngineConfig()
	if err != nil {
		return err
	}
	if err := engineConfig.Validate(); err != nil {
		return err
	}

	if err := c.Search.Validate(); err != nil {
		return err
	}

	if len(c.Indicators) == 0 {
		return configError("indicators", "at least one indicator is required")
	}
	base, err := c.BuildConfiguration(params.DefaultRegistry())
	if err != nil {
		return err
	}
	if _, err := strategy.Build(base); err != nil {
		return err
	}

	if err := c.Validation.Validate(); err != nil {
		return err
	}

	if strings.TrimSpace(c.Output.Dir) == "" && !c.Output.ConsoleOnly {
		return configError("output.dir", "must not be empty unless console_only is set")
	}
	return nil
}

func (c *OptimizerConfig) validateData() error {
	switch strings.ToLower(c.Data.Source) {
	case SourceCSV:
		if c.Data.File == "" && (c.Data.Root == "" || c.Data.Symbol == "") {
			return configError("data.file", "a csv file or data root and symbol are required")
		}
	case SourceBybit:
		if c.Data.Symbol == "" {
			return configError("data.symbol", "symbol is required for the bybit source")
		}
		if c.Data.Limit <= 0 {
			return configError("data.limit", fmt.Sprintf("must be positive, got %d", c.Data.Limit))
		}
	default:
		return configError("data.source", fmt.Sprintf("unknown source %q, expected csv or bybit", c.Data.Source))
	}
	if c.Data.Period < 0 {
		return configError("data.period", "must not be negative")
	}

	start, end, err := c.DateRange()
	if err != nil {
		return err
	}
	if !start.IsZero() && !end.IsZero() && !end.After(start) {
		return configError("data.end", "must be after data.start")
	}
	return nil
}

// BuildConfiguration turns the indicators section into the searched configuration.
// Ranges are applied before values so a value may use the widened range.
func (c *OptimizerConfig) BuildConfiguration(registry *params.Registry) (*params.Configuration, error) {
	cfg := params.NewConfiguration()
	for i, ic := range c.Indicators {
		field := fmt.Sprintf("indicators[%d]", i)

		set, err := registry.NewSet(ic.Kind, ic.Name)
		if err != nil {
			return nil, configError(field+".kind", err.Error())
		}
		role, _ := registry.RoleOf(set.Kind())
		if ic.Role != "" {
			declared, err := params.ParseRole(ic.Role)
			if err != nil {
				return nil, configError(field+".role", err.Error())
			}
			if declared != role {
				return nil, configError(field+".role",
					fmt.Sprintf("%s is a %s indicator, not %s", ic.Kind, role, declared))
			}
		}

		if err := applyOverrides(set, ic.Fields); err != nil {
			return nil, configError(field+".fields", err.Error())
		}
		cfg.Add(role, set)
	}
	return cfg, nil
}

func applyOverrides(set *params.ParameterSet, overrides map[string]FieldOverride) error {
	if len(overrides) == 0 {
		return nil
	}
	current := make(map[string]params.Field, set.Len())
	for _, f := range set.Describe() {
		current[f.Name] = f
	}

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		o := overrides[name]
		f, ok := current[name]
		if !ok {
			return fmt.Errorf("%s has no field %q", set.KindName(), name)
		}
		if o.Min != nil || o.Max != nil || o.Step != nil {
			min, max, step := f.Min, f.Max, f.Step
			if o.Min != nil {
				min = *o.Min
			}
			if o.Max != nil {
				max = *o.Max
			}
			if o.Step != nil {
				step = *o.Step
			}
			if err := set.SetRange(name, min, max, step); err != nil {
				return err
			}
		}
		if o.Value != nil {
			if err := set.Set(name, *o.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

// IsConfigError reports whether err came from configuration validation or loading
func IsConfigError(err error) bool {
	return opterrors.HasCategory(err, opterrors.ErrorCategoryConfiguration)
}
