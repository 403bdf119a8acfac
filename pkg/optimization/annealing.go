package optimization

import (
	"context"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
)

// AnnealStep is the state reported after every annealing iteration
type AnnealStep struct {
	Iteration     int
	Temperature   float64
	CurrentEnergy float64
	BestEnergy    float64
	Accepted      bool
}

// Annealer is one simulated annealing chain. It owns its candidate and random stream
// and shares nothing with other chains.
type Annealer struct {
	evaluator          *Evaluator
	iterations         int
	initialTemperature float64
	finalTemperature   float64
	rng                *rand.Rand

	// OnStep, when set, observes every iteration
	OnStep func(AnnealStep)
}

// NewAnnealer creates a chain running the given number of evaluations
func NewAnnealer(evaluator *Evaluator, iterations int, initialTemperature, finalTemperature float64, rng *rand.Rand) *Annealer {
	return &Annealer{
		evaluator:          evaluator,
		iterations:         iterations,
		initialTemperature: initialTemperature,
		finalTemperature:   finalTemperature,
		rng:                rng,
	}
}

// Temperature returns the geometric schedule value at iteration k
func (a *Annealer) Temperature(k int) float64 {
	if a.iterations <= 1 {
		return a.initialTemperature
	}
	frac := float64(k) / float64(a.iterations-1)
	return a.initialTemperature * math.Pow(a.finalTemperature/a.initialTemperature, frac)
}

// Run anneals starting from a random sample of start's space. Every evaluation is filed in t;
// tick is called after each iteration. It returns the best candidate seen, nil when none was valid.
func (a *Annealer) Run(ctx context.Context, start *params.Configuration, t *tally, tick func()) (*params.Configuration, error) {
	current := start.Clone()
	current.RandomSample(a.rng)
	currentEnergy := math.Inf(1)

	var best *params.Configuration
	bestEnergy := math.Inf(1)

	for k := 0; k < a.iterations; k++ {
		if err := cancelled(ctx, "anneal"); err != nil {
			return best, err
		}

		temperature := a.Temperature(k)
		candidate := current
		if k > 0 {
			candidate = current.Clone()
			candidate.Perturb(temperature/a.initialTemperature, a.rng)
		}

		ev, err := a.evaluator.Evaluate(ctx, candidate)
		if err := t.record(ev, err); err != nil {
			return best, err
		}
		energy := math.Inf(1)
		if ev != nil {
			energy = -ev.Fitness
		}

		accepted := k == 0 || energy <= currentEnergy
		if !accepted {
			accepted = a.rng.Float64() < math.Exp((currentEnergy-energy)/temperature)
		}
		if accepted {
			current, currentEnergy = candidate, energy
		}
		if energy < bestEnergy {
			best, bestEnergy = candidate.Clone(), energy
		}

		if a.OnStep != nil {
			a.OnStep(AnnealStep{
				Iteration:     k,
				Temperature:   temperature,
				CurrentEnergy: currentEnergy,
				BestEnergy:    bestEnergy,
				Accepted:      accepted,
			})
		}
		if tick != nil {
			tick()
		}
	}
	return best, nil
}

// annealingSearch runs independent annealing chains in parallel, one per instance,
// and merges their pools after all of them finish
type annealingSearch struct{}

func (annealingSearch) search(ctx context.Context, r *run) error {
	cfg := r.config
	instances := cfg.Instances
	if instances <= 0 {
		instances = runtime.NumCPU()
	}
	if instances > cfg.Iterations {
		instances = cfg.Iterations
	}

	budgets := partition(cfg.Iterations, instances)
	tracker := r.trackProgress(budgets)

	// seeds and starting candidates are fixed before any chain runs
	chains := make([]*Annealer, instances)
	starts := make([]*params.Configuration, instances)
	tallies := make([]*tally, instances)
	for i := range chains {
		chains[i] = NewAnnealer(r.evaluator, budgets[i], cfg.InitialTemperature, cfg.FinalTemperature, r.rng(i))
		starts[i] = r.base.Clone()
		tallies[i] = newTally(cfg.SampleSize)
	}

	r.logger.Info("🔥 Annealing with %d instances, %d iterations", instances, cfg.Iterations)

	g, gctx := errgroup.WithContext(ctx)
	for i := range chains {
		i := i
		g.Go(func() error {
			_, err := chains[i].Run(gctx, starts[i], tallies[i], func() { tracker.Advance(i, 1) })
			return err
		})
	}
	err := g.Wait()

	for _, t := range tallies {
		r.tally.merge(t)
	}
	r.publishBest()
	return err
}
