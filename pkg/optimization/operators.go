package optimization

import (
	"math/rand"
)

// mutationIntensity is the Perturb intensity applied to a mutated child
const mutationIntensity = 0.3

// TournamentSelection picks the fittest of tournamentSize random individuals
func TournamentSelection(population *Population, tournamentSize int, rng *rand.Rand) *Individual {
	individuals := population.Individuals()
	if len(individuals) == 0 {
		return nil
	}

	best := individuals[rng.Intn(len(individuals))]
	for i := 1; i < tournamentSize; i++ {
		candidate := individuals[rng.Intn(len(individuals))]
		if candidate.Fitness > best.Fitness {
			best = candidate
		}
	}
	return best
}

// Crossover creates a child from parent1; with probability rate every field is taken
// from either parent with equal odds
func Crossover(parent1, parent2 *Individual, rate float64, rng *rand.Rand) *Individual {
	child := NewIndividual(parent1.Candidate.Clone())
	if rng.Float64() >= rate {
		return child
	}

	for j := 0; j < child.Candidate.FieldCount(); j++ {
		if rng.Float64() < 0.5 {
			child.Candidate.SetNearest(j, parent2.Candidate.FieldAt(j).Value)
		}
	}
	return child
}

// Mutate perturbs the individual with probability rate and clears its fitness
func Mutate(individual *Individual, rate float64, rng *rand.Rand) {
	if rng.Float64() < rate {
		individual.Candidate.Perturb(mutationIntensity, rng)
		individual.Reset()
	}
}
