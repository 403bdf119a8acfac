package optimization

import (
	"context"
	"math/rand"

	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/backtest"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
)

// ProgressReportInterval is the number of generations between progress log lines
const ProgressReportInterval = 3

// geneticSearch evolves a population with tournament selection, uniform crossover,
// Perturb mutation and elitism. Each generation is evaluated in parallel on the worker pool.
type geneticSearch struct{}

func (geneticSearch) search(ctx context.Context, r *run) error {
	cfg := r.config
	rng := r.rng(0)
	tracker := r.trackProgress([]int{cfg.Generations})

	pool := r.startPool(ctx)
	defer pool.Stop()

	population := InitializePopulation(r.base, cfg.PopulationSize, rng)
	r.logger.Info("🧬 Genetic search: population %d, generations %d, mutation %.0f%%, crossover %.0f%%",
		cfg.PopulationSize, cfg.Generations, cfg.MutationRate*100, cfg.CrossoverRate*100)

	for gen := 0; gen < cfg.Generations; gen++ {
		if err := cancelled(ctx, "genetic"); err != nil {
			return err
		}

		if err := evaluatePopulation(r, pool, population); err != nil {
			return err
		}
		population.SortByFitness()
		tracker.Advance(0, 1)

		if gen%ProgressReportInterval == 0 {
			r.logger.Info("🔄 Gen %d: best=%.4f avg=%.4f", gen+1,
				population.Best().Fitness, population.AverageFitness())
		}

		if gen < cfg.Generations-1 {
			population = CreateNextGeneration(population, cfg, rng)
		}
	}
	return nil
}

// InitializePopulation creates size random samples of base's space
func InitializePopulation(base *params.Configuration, size int, rng *rand.Rand) *Population {
	individuals := make([]*Individual, size)
	for i := range individuals {
		candidate := base.Clone()
		candidate.RandomSample(rng)
		individuals[i] = NewIndividual(candidate)
	}
	return NewPopulation(individuals)
}

// evaluatePopulation evaluates the individuals without a current fitness
func evaluatePopulation(r *run, pool *backtest.WorkerPool, population *Population) error {
	pending := population.Pending()
	if len(pending) == 0 {
		return nil
	}

	candidates := make([]*params.Configuration, len(pending))
	for i, individual := range pending {
		candidates[i] = individual.Candidate
	}
	evals, errs, err := r.evaluator.EvaluateBatch(pool, candidates)
	if err != nil {
		return err
	}
	if err := r.recordBatch(evals, errs); err != nil {
		return err
	}
	for i, individual := range pending {
		individual.SetEvaluation(evals[i])
	}
	return nil
}

// CreateNextGeneration keeps the elite and fills the rest with mutated crossover children
func CreateNextGeneration(population *Population, cfg OptimizationConfig, rng *rand.Rand) *Population {
	next := make([]*Individual, 0, population.Size())
	next = append(next, population.Elite(cfg.EliteSize)...)

	for len(next) < population.Size() {
		parent1 := TournamentSelection(population, cfg.TournamentSize, rng)
		parent2 := TournamentSelection(population, cfg.TournamentSize, rng)

		child := Crossover(parent1, parent2, cfg.CrossoverRate, rng)
		Mutate(child, cfg.MutationRate, rng)
		next = append(next, child)
	}
	return NewPopulation(next)
}
