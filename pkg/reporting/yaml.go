package reporting

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/optimization"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
)

// BestConfigDocument is the best candidate laid out like the indicators section of an
// optimizer config file, so it can be fed back as a starting point
type BestConfigDocument struct {
	Strategy   string              `yaml:"strategy,omitempty"`
	Method     string              `yaml:"method"`
	Timeframe  string              `yaml:"timeframe"`
	Fitness    float64             `yaml:"fitness"`
	Indicators []IndicatorDocument `yaml:"indicators"`
}

// IndicatorDocument is one parameter set of the best candidate
type IndicatorDocument struct {
	Kind   string                   `yaml:"kind"`
	Name   string                   `yaml:"name"`
	Role   string                   `yaml:"role"`
	Fields map[string]FieldDocument `yaml:"fields"`
}

// FieldDocument carries the chosen value together with the range it was searched in
type FieldDocument struct {
	Value float64 `yaml:"value"`
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
	Step  float64 `yaml:"step"`
}

// NewBestConfigDocument groups the best candidate's descriptors by indicator, keeping their order
func NewBestConfigDocument(result *optimization.OptimizationResult) BestConfigDocument {
	return BestConfigDocument{
		Strategy:   result.StrategyName,
		Method:     string(result.Method),
		Timeframe:  string(result.Timeframe),
		Fitness:    finite(result.BestFitness),
		Indicators: groupDescriptors(result.BestCandidate),
	}
}

func groupDescriptors(descriptors []params.Descriptor) []IndicatorDocument {
	var out []IndicatorDocument
	index := make(map[string]int)
	for _, d := range descriptors {
		key := d.Role + "/" + d.Indicator
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, IndicatorDocument{
				Kind:   d.Kind,
				Name:   d.Indicator,
				Role:   d.Role,
				Fields: make(map[string]FieldDocument),
			})
		}
		out[i].Fields[d.Field] = FieldDocument{Value: d.Value, Min: d.Min, Max: d.Max, Step: d.Step}
	}
	if out == nil {
		out = []IndicatorDocument{}
	}
	return out
}

// FormatBestConfig renders the best candidate as YAML
func FormatBestConfig(result *optimization.OptimizationResult) ([]byte, error) {
	return yaml.Marshal(NewBestConfigDocument(result))
}

// WriteBestConfigYAML writes the best candidate as YAML
func WriteBestConfigYAML(result *optimization.OptimizationResult, path string) error {
	data, err := FormatBestConfig(result)
	if err != nil {
		return fmt.Errorf("failed to encode best configuration: %w", err)
	}
	return writeFile(path, data)
}
