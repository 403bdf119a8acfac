package optimization

import (
	"fmt"
	"strings"

	opterrors "github.com/ducminhle1904/crypto-strategy-optimizer/internal/errors"
)

// Method selects the search algorithm
type Method string

const (
	MethodAnnealing  Method = "annealing"
	MethodSwarm      Method = "swarm"
	MethodExhaustive Method = "exhaustive"
	MethodGenetic    Method = "genetic"
)

// ParseMethod parses a method name, case-insensitively
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodAnnealing, MethodSwarm, MethodExhaustive, MethodGenetic:
		return m, nil
	case "sa":
		return MethodAnnealing, nil
	case "pso":
		return MethodSwarm, nil
	case "ga":
		return MethodGenetic, nil
	case "grid":
		return MethodExhaustive, nil
	}
	return "", opterrors.NewConfigurationError("optimization", "ParseMethod", fmt.Sprintf("unknown method %q", s))
}

// OptimizationConfig holds the settings of every search method
type OptimizationConfig struct {
	Method Method `mapstructure:"method" json:"method" yaml:"method"`

	// Annealing: Iterations is the total budget shared by Instances (0 = one per CPU)
	Iterations         int     `mapstructure:"iterations" json:"iterations" yaml:"iterations"`
	Instances          int     `mapstructure:"instances" json:"instances" yaml:"instances"`
	InitialTemperature float64 `mapstructure:"initial_temperature" json:"initial_temperature" yaml:"initial_temperature"`
	FinalTemperature   float64 `mapstructure:"final_temperature" json:"final_temperature" yaml:"final_temperature"`

	// Swarm: Iterations swarm steps of SwarmSize particles
	SwarmSize           int     `mapstructure:"swarm_size" json:"swarm_size" yaml:"swarm_size"`
	Inertia             float64 `mapstructure:"inertia" json:"inertia" yaml:"inertia"`
	Cognitive           float64 `mapstructure:"cognitive" json:"cognitive" yaml:"cognitive"`
	Social              float64 `mapstructure:"social" json:"social" yaml:"social"`
	BoolFlipProbability float64 `mapstructure:"bool_flip_probability" json:"bool_flip_probability" yaml:"bool_flip_probability"`

	// Genetic
	PopulationSize int     `mapstructure:"population_size" json:"population_size" yaml:"population_size"`
	Generations    int     `mapstructure:"generations" json:"generations" yaml:"generations"`
	MutationRate   float64 `mapstructure:"mutation_rate" json:"mutation_rate" yaml:"mutation_rate"`
	CrossoverRate  float64 `mapstructure:"crossover_rate" json:"crossover_rate" yaml:"crossover_rate"`
	EliteSize      int     `mapstructure:"elite_size" json:"elite_size" yaml:"elite_size"`
	TournamentSize int     `mapstructure:"tournament_size" json:"tournament_size" yaml:"tournament_size"`

	// Exhaustive
	MaxCombinations uint64 `mapstructure:"max_combinations" json:"max_combinations" yaml:"max_combinations"`

	// Shared
	MaxWorkers  int     `mapstructure:"max_workers" json:"max_workers" yaml:"max_workers"` // 0 = one per CPU
	SampleSize  int     `mapstructure:"sample_size" json:"sample_size" yaml:"sample_size"`
	MaxDrawdown float64 `mapstructure:"max_drawdown" json:"max_drawdown" yaml:"max_drawdown"` // percent, <= 0 disables
	Seed        int64   `mapstructure:"seed" json:"seed" yaml:"seed"`                         // 0 = time based
}

// GetDefaultOptimizationConfig returns the default optimization configuration
func GetDefaultOptimizationConfig() OptimizationConfig {
	return OptimizationConfig{
		Method: MethodAnnealing,

		Iterations:         2000,
		InitialTemperature: 10,
		FinalTemperature:   0.01,

		SwarmSize:           24,
		Inertia:             0.7,
		Cognitive:           1.5,
		Social:              1.5,
		BoolFlipProbability: 0.05,

		PopulationSize: 24,
		Generations:    15,
		MutationRate:   0.2,
		CrossoverRate:  0.85,
		EliteSize:      4,
		TournamentSize: 2,

		MaxCombinations: 100000,

		SampleSize:  100,
		MaxDrawdown: 50,
	}
}

// Validate checks the settings relevant to the selected method
func (c OptimizationConfig) Validate() error {
	var problem string
	switch {
	case c.SampleSize < 0:
		problem = "sample size must not be negative"
	case c.MaxWorkers < 0:
		problem = "max workers must not be negative"
	}

	if problem == "" {
		switch c.Method {
		case MethodAnnealing:
			switch {
			case c.Iterations <= 0:
				problem = "iterations must be positive"
			case c.Instances < 0:
				problem = "instances must not be negative"
			case c.InitialTemperature <= 0 || c.FinalTemperature <= 0:
				problem = "temperatures must be positive"
			case c.FinalTemperature > c.InitialTemperature:
				problem = "final temperature must not exceed initial temperature"
			}
		case MethodSwarm:
			switch {
			case c.Iterations <= 0:
				problem = "iterations must be positive"
			case c.SwarmSize < 2:
				problem = "swarm size must be at least 2"
			case c.Inertia < 0 || c.Cognitive < 0 || c.Social < 0:
				problem = "swarm coefficients must not be negative"
			case c.BoolFlipProbability < 0 || c.BoolFlipProbability > 1:
				problem = "bool flip probability must be in [0, 1]"
			}
		case MethodGenetic:
			switch {
			case c.PopulationSize < 2:
				problem = "population size must be at least 2"
			case c.Generations <= 0:
				problem = "generations must be positive"
			case c.EliteSize < 0 || c.EliteSize >= c.PopulationSize:
				problem = "elite size must be in [0, population size)"
			case c.TournamentSize < 1:
				problem = "tournament size must be at least 1"
			case c.MutationRate < 0 || c.MutationRate > 1 || c.CrossoverRate < 0 || c.CrossoverRate > 1:
				problem = "rates must be in [0, 1]"
			}
		case MethodExhaustive:
			if c.MaxCombinations == 0 {
				problem = "max combinations must be positive"
			}
		default:
			problem = fmt.Sprintf("unknown method %q", c.Method)
		}
	}

	if problem != "" {
		return opterrors.NewConfigurationError("optimization", "Validate", problem)
	}
	return nil
}
