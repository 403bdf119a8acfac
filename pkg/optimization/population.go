package optimization

import (
	"math"
	"sort"
)

// Population represents a collection of individuals
type Population struct {
	individuals []*Individual
}

// NewPopulation creates a new population with the given individuals
func NewPopulation(individuals []*Individual) *Population {
	return &Population{
		individuals: individuals,
	}
}

// Individuals returns all individuals in the population
func (p *Population) Individuals() []*Individual {
	return p.individuals
}

// Size returns the number of individuals in the population
func (p *Population) Size() int {
	return len(p.individuals)
}

// Best returns the individual with the highest fitness
func (p *Population) Best() *Individual {
	if len(p.individuals) == 0 {
		return nil
	}

	best := p.individuals[0]
	for _, individual := range p.individuals[1:] {
		if individual.Fitness > best.Fitness {
			best = individual
		}
	}
	return best
}

// SortByFitness sorts the population by fitness in descending order (best first).
// The sort is stable so equal fitness keeps creation order.
func (p *Population) SortByFitness() {
	sort.SliceStable(p.individuals, func(i, j int) bool {
		return p.individuals[i].Fitness > p.individuals[j].Fitness
	})
}

// AverageFitness calculates the average fitness of the valid individuals
func (p *Population) AverageFitness() float64 {
	sum, n := 0.0, 0
	for _, individual := range p.individuals {
		if math.IsInf(individual.Fitness, -1) {
			continue
		}
		sum += individual.Fitness
		n++
	}
	if n == 0 {
		return 0.0
	}
	return sum / float64(n)
}

// Elite returns copies of the top n individuals by fitness
func (p *Population) Elite(n int) []*Individual {
	if n > len(p.individuals) {
		n = len(p.individuals)
	}
	p.SortByFitness()

	elite := make([]*Individual, n)
	for i := range elite {
		elite[i] = p.individuals[i].Copy()
	}
	return elite
}

// Pending returns the individuals that still need an evaluation
func (p *Population) Pending() []*Individual {
	var pending []*Individual
	for _, individual := range p.individuals {
		if !individual.Evaluated() {
			pending = append(pending, individual)
		}
	}
	return pending
}
