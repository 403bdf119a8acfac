package optimization

import (
	"context"
	"fmt"

	opterrors "github.com/ducminhle1904/crypto-strategy-optimizer/internal/errors"
	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
)

// exhaustiveSearch walks every grid point of the space in IncrementSingle order
type exhaustiveSearch struct{}

func (exhaustiveSearch) search(ctx context.Context, r *run) error {
	total := r.base.PermutationCount()
	if total > r.config.MaxCombinations {
		return opterrors.NewConfigurationError("optimization", "exhaustive",
			fmt.Sprintf("space has %d combinations, limit is %d", total, r.config.MaxCombinations))
	}
	tracker := r.trackProgress([]int{int(total)})

	pool := r.startPool(ctx)
	defer pool.Stop()
	batchSize := pool.WorkerCount() * 4

	r.logger.Info("🔍 Exhaustive search over %d combinations", total)

	cursor := r.base.Clone()
	cursor.Reset()
	more := true
	for more {
		if err := cancelled(ctx, "exhaustive"); err != nil {
			return err
		}

		batch := make([]*params.Configuration, 0, batchSize)
		for more && len(batch) < batchSize {
			batch = append(batch, cursor.Clone())
			more = cursor.IncrementSingle()
		}

		evals, errs, err := r.evaluator.EvaluateBatch(pool, batch)
		if err != nil {
			return err
		}
		if err := r.recordBatch(evals, errs); err != nil {
			return err
		}
		tracker.Advance(0, len(batch))
	}
	return nil
}
