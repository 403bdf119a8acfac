package optimization

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-strategy-optimizer/internal/backtest"
	opterrors "github.com/ducminhle1904/crypto-strategy-optimizer/internal/errors"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
)

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func TestFitness(t *testing.T) {
	r := &backtest.BacktestResults{
		ProfitFactor: 2,
		NetProfit:    1000,
		WinRate:      0.5,
		SharpeRatio:  1.5,
		MaxDrawdown:  20,
	}
	// 3*2 + 1000/10000 + 2*0.5 + 2*1.5 - 0.2^2
	assert.InDelta(t, 6+0.1+1+3-0.04, Fitness(r, 10000), 1e-12)
	assert.InDelta(t, -Fitness(r, 10000), Energy(r, 10000), 1e-12)

	r.SharpeRatio = 9
	assert.InDelta(t, 6+0.1+1+6-0.04, Fitness(r, 10000), 1e-12, "sharpe is capped")

	r.ProfitFactor = math.Inf(1)
	r.SharpeRatio = math.NaN()
	assert.InDelta(t, 0.1+1-0.04, Fitness(r, 10000), 1e-12, "non-finite components count as zero")

	assert.Zero(t, Fitness(nil, 10000))
	assert.Zero(t, Fitness(r, 0))
}

func evaluation(t *testing.T, fast float64, netProfit, fitness float64) *Evaluation {
	t.Helper()
	c := testSpace(t)
	c.SetNearest(0, fast)
	return &Evaluation{
		Candidate: c,
		Results:   &backtest.BacktestResults{NetProfit: netProfit},
		Fitness:   fitness,
	}
}

func TestResultPool(t *testing.T) {
	pool := NewResultPool(3)
	assert.Nil(t, pool.Best())

	a := evaluation(t, 5, 100, 1)
	b := evaluation(t, 10, 300, 0.5)
	assert.True(t, pool.Add(a))
	assert.True(t, pool.Add(b))
	assert.False(t, pool.Add(evaluation(t, 5, 999, 9)), "same candidate is kept once")
	assert.Equal(t, 2, pool.Len())
	assert.Same(t, b, pool.Best(), "ranked by net profit, not fitness")

	c := testSpace(t)
	c.SetNearest(2, 1)
	third := &Evaluation{Candidate: c, Results: &backtest.BacktestResults{NetProfit: 200}}
	assert.True(t, pool.Add(third))

	d := testSpace(t)
	d.SetNearest(4, 2)
	low := &Evaluation{Candidate: d, Results: &backtest.BacktestResults{NetProfit: 50}}
	assert.False(t, pool.Add(low), "full pool rejects a worse candidate")

	e := testSpace(t)
	e.SetNearest(3, 1)
	high := &Evaluation{Candidate: e, Results: &backtest.BacktestResults{NetProfit: 500}}
	assert.True(t, pool.Add(high))

	ranked := pool.Ranked()
	require.Len(t, ranked, 3)
	assert.Equal(t, []float64{500, 300, 200}, []float64{
		ranked[0].Results.NetProfit, ranked[1].Results.NetProfit, ranked[2].Results.NetProfit,
	})
	assert.True(t, pool.Add(evaluation(t, 5, 250, 1)), "an evicted candidate may come back")

	other := NewResultPool(3)
	other.Add(evaluation(t, 10, 300, 0.5))
	other.Add(low)
	merged := NewResultPool(4)
	merged.Merge(pool)
	merged.Merge(other)
	assert.Equal(t, 4, merged.Len())
	assert.Equal(t, 500.0, merged.Best().Results.NetProfit)
}

func TestProgressTracker_ConcurrentMonotonic(t *testing.T) {
	budgets := partition(103, 4)
	assert.Equal(t, []int{26, 26, 26, 25}, budgets)

	var reported []int
	tracker := NewProgressTracker(MethodAnnealing, budgets, func(current, total int) {
		assert.Equal(t, 103, total)
		reported = append(reported, current)
	})

	var wg sync.WaitGroup
	for i, b := range budgets {
		wg.Add(1)
		go func(instance, budget int) {
			defer wg.Done()
			for k := 0; k < budget+5; k++ {
				tracker.Advance(instance, 1)
			}
		}(i, b)
	}
	wg.Wait()

	assert.Equal(t, 103, tracker.Current())
	assert.Equal(t, 103, tracker.Total())
	require.Len(t, reported, 103, "no double count, overshoot ignored")
	for i := 1; i < len(reported); i++ {
		assert.Equal(t, reported[i-1]+1, reported[i])
	}

	tracker.Advance(9, 1)
	tracker.Advance(0, 0)
	assert.Equal(t, 103, tracker.Current())
}

func TestTally_RecoversCandidateErrors(t *testing.T) {
	tl := newTally(5)

	require.NoError(t, tl.record(nil, opterrors.NewEvaluationError("test", "op", errors.New("boom"))))
	require.NoError(t, tl.record(nil, opterrors.NewInvalidResultError("test", "op", "no trades")))
	assert.Equal(t, 2, tl.stats.TotalErrors)

	fatal := opterrors.NewConfigurationError("test", "op", "bad")
	assert.ErrorIs(t, tl.record(nil, fatal), fatal)
	assert.Error(t, tl.record(nil, errors.New("uncategorized")))

	require.NoError(t, tl.record(evaluation(t, 5, 10, 2), nil))
	assert.Equal(t, 1, tl.pool.Len())
	assert.Equal(t, 2.0, tl.bestFitness)
	assert.Equal(t, 5, tl.evaluations)
}

func TestEvaluator(t *testing.T) {
	evaluator := NewEvaluator(testEngine(t), generateTestData(300), 0)
	candidate := testSpace(t)

	ev, err := evaluator.Evaluate(context.Background(), candidate)
	require.NoError(t, err)
	assert.Greater(t, ev.Results.TotalTrades, 0)
	assert.InDelta(t, Fitness(ev.Results, 10000), ev.Fitness, 1e-12)
	assert.NotSame(t, candidate, ev.Candidate)
	assert.True(t, candidate.Equal(ev.Candidate))

	// a drawdown ceiling that nothing meets marks every candidate invalid
	strict := NewEvaluator(testEngine(t), generateTestData(300), 1e-9)
	_, err = strict.Evaluate(context.Background(), candidate)
	assert.True(t, opterrors.HasCategory(err, opterrors.ErrorCategoryInvalidResult))

	_, err = evaluator.Evaluate(context.Background(), params.NewConfiguration())
	assert.True(t, opterrors.HasCategory(err, opterrors.ErrorCategoryConfiguration))
}

func TestEvaluator_BatchMatchesSequential(t *testing.T) {
	engine := testEngine(t)
	evaluator := NewEvaluator(engine, generateTestData(300), 0)
	ctx := context.Background()

	pool := backtest.NewWorkerPool(ctx, engine, 3, 0)
	pool.Start()
	defer pool.Stop()

	rng := newRand(3)
	candidates := make([]*params.Configuration, 8)
	for i := range candidates {
		candidates[i] = testSpace(t)
		candidates[i].RandomSample(rng)
	}

	evals, errs, err := evaluator.EvaluateBatch(pool, candidates)
	require.NoError(t, err)
	for i, c := range candidates {
		want, wantErr := evaluator.Evaluate(ctx, c)
		if wantErr != nil {
			assert.Equal(t, opterrors.CategoryOf(wantErr), opterrors.CategoryOf(errs[i]))
			continue
		}
		require.NoError(t, errs[i])
		assert.Equal(t, want.Results, evals[i].Results)
		assert.Equal(t, want.Fitness, evals[i].Fitness)
	}
}

func TestGeneticOperators(t *testing.T) {
	rng := newRand(11)
	p1 := NewIndividual(testSpace(t))
	p2c := testSpace(t)
	for i := 0; i < p2c.FieldCount(); i++ {
		p2c.SetNearest(i, p2c.FieldAt(i).Max)
	}
	p2 := NewIndividual(p2c)

	clone := Crossover(p1, p2, 0, rng)
	assert.True(t, clone.Candidate.Equal(p1.Candidate))
	assert.NotSame(t, p1.Candidate, clone.Candidate)

	for k := 0; k < 20; k++ {
		child := Crossover(p1, p2, 1, rng)
		for i := 0; i < child.Candidate.FieldCount(); i++ {
			v := child.Candidate.FieldAt(i).Value
			assert.True(t, v == p1.Candidate.FieldAt(i).Value || v == p2.Candidate.FieldAt(i).Value)
		}
	}

	weak, strong := NewIndividual(testSpace(t)), NewIndividual(testSpace(t))
	weak.Fitness, strong.Fitness = 1, 5
	population := NewPopulation([]*Individual{weak, strong})
	assert.Same(t, strong, population.Best())
	assert.Same(t, strong, TournamentSelection(population, 50, rng))

	mutant := strong.Copy()
	Mutate(mutant, 0, rng)
	assert.Equal(t, 5.0, mutant.Fitness)
	Mutate(mutant, 1, rng)
	assert.False(t, mutant.Evaluated())
	assert.True(t, math.IsInf(mutant.Fitness, -1))

	weak.SetEvaluation(nil)
	assert.True(t, weak.Evaluated())
	assert.True(t, math.IsInf(weak.Fitness, -1))
	assert.Equal(t, 5.0, population.AverageFitness(), "invalid individuals are not averaged")

	elite := population.Elite(1)
	require.Len(t, elite, 1)
	assert.Equal(t, 5.0, elite[0].Fitness)
	assert.NotSame(t, strong, elite[0])
}

func TestCreateNextGeneration(t *testing.T) {
	cfg := testOptimizationConfig(MethodGenetic)
	rng := newRand(5)
	population := InitializePopulation(testSpace(t), cfg.PopulationSize, rng)
	for i, individual := range population.Individuals() {
		individual.SetEvaluation(&Evaluation{Fitness: float64(i)})
	}

	next := CreateNextGeneration(population, cfg, rng)
	require.Equal(t, cfg.PopulationSize, next.Size())
	assert.Equal(t, float64(cfg.PopulationSize-1), next.Individuals()[0].Fitness)
	assert.Equal(t, float64(cfg.PopulationSize-2), next.Individuals()[1].Fitness)
	assert.LessOrEqual(t, len(next.Pending()), cfg.PopulationSize-cfg.EliteSize)
}

func TestOptimizationConfig(t *testing.T) {
	for _, m := range []Method{MethodAnnealing, MethodSwarm, MethodGenetic, MethodExhaustive} {
		cfg := GetDefaultOptimizationConfig()
		cfg.Method = m
		assert.NoError(t, cfg.Validate(), m)
	}

	m, err := ParseMethod(" PSO ")
	require.NoError(t, err)
	assert.Equal(t, MethodSwarm, m)
	_, err = ParseMethod("hill-climb")
	assert.True(t, opterrors.HasCategory(err, opterrors.ErrorCategoryConfiguration))

	cfg := GetDefaultOptimizationConfig()
	cfg.Method = MethodGenetic
	cfg.EliteSize = cfg.PopulationSize
	assert.Error(t, cfg.Validate())

	cfg = GetDefaultOptimizationConfig()
	cfg.Method = MethodSwarm
	cfg.SwarmSize = 1
	assert.Error(t, cfg.Validate())

	cfg = GetDefaultOptimizationConfig()
	cfg.Method = "random"
	assert.Error(t, cfg.Validate())
}
