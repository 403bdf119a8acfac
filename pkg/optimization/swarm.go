package optimization

import (
	"context"
	"math"
	"math/rand"

	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
)

// particle is one swarm member
type particle struct {
	position    *params.Configuration
	velocity    []float64
	best        *params.Configuration
	bestFitness float64
}

// swarmSearch is particle swarm optimization over the flat field vector of a configuration.
// Particles of one iteration are evaluated in parallel; personal and global bests are
// updated by this goroutine only, after the whole iteration has been evaluated.
type swarmSearch struct{}

func (swarmSearch) search(ctx context.Context, r *run) error {
	cfg := r.config
	rng := r.rng(0)
	tracker := r.trackProgress([]int{cfg.Iterations})

	pool := r.startPool(ctx)
	defer pool.Stop()

	swarm := newSwarm(r.base, cfg.SwarmSize, rng)
	var globalBest *params.Configuration
	globalFitness := math.Inf(-1)

	r.logger.Info("🐝 Swarm of %d particles, %d iterations", cfg.SwarmSize, cfg.Iterations)

	for iter := 0; iter < cfg.Iterations; iter++ {
		if err := cancelled(ctx, "swarm"); err != nil {
			return err
		}

		positions := make([]*params.Configuration, len(swarm))
		for i, p := range swarm {
			positions[i] = p.position
		}
		evals, errs, err := r.evaluator.EvaluateBatch(pool, positions)
		if err != nil {
			return err
		}
		if err := r.recordBatch(evals, errs); err != nil {
			return err
		}

		// barrier passed: merge the iteration into the bests
		for i, ev := range evals {
			if ev == nil {
				continue
			}
			p := swarm[i]
			if ev.Fitness > p.bestFitness {
				p.best, p.bestFitness = p.position.Clone(), ev.Fitness
			}
			if ev.Fitness > globalFitness {
				globalBest, globalFitness = p.position.Clone(), ev.Fitness
			}
		}
		tracker.Advance(0, 1)

		if iter < cfg.Iterations-1 {
			for _, p := range swarm {
				p.move(globalBest, cfg, rng)
			}
		}
	}
	return nil
}

func newSwarm(base *params.Configuration, size int, rng *rand.Rand) []*particle {
	n := base.FieldCount()
	swarm := make([]*particle, size)
	for i := range swarm {
		position := base.Clone()
		position.RandomSample(rng)

		velocity := make([]float64, n)
		for j := range velocity {
			f := position.FieldAt(j)
			velocity[j] = (rng.Float64()*2 - 1) * (f.Max - f.Min) * 0.1
		}
		swarm[i] = &particle{
			position:    position,
			velocity:    velocity,
			bestFitness: math.Inf(-1),
		}
	}
	return swarm
}

// move applies one velocity update and moves the particle, snapping to the grid
func (p *particle) move(globalBest *params.Configuration, cfg OptimizationConfig, rng *rand.Rand) {
	personal := p.best
	if personal == nil {
		personal = p.position
	}
	social := globalBest
	if social == nil {
		social = p.position
	}

	for j := range p.velocity {
		f := p.position.FieldAt(j)
		if f.Type == params.FieldBool {
			if rng.Float64() < cfg.BoolFlipProbability {
				p.position.SetNearest(j, 1-f.Value)
			}
			continue
		}

		x := f.Value
		v := cfg.Inertia*p.velocity[j] +
			cfg.Cognitive*rng.Float64()*(personal.FieldAt(j).Value-x) +
			cfg.Social*rng.Float64()*(social.FieldAt(j).Value-x)

		span := f.Max - f.Min
		v = math.Max(-span, math.Min(span, v))
		p.velocity[j] = v
		p.position.SetNearest(j, x+v)
	}
}
