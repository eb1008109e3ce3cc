package jobs

import (
	"context"
	"sync/atomic"

	"chitfund-backend/internal/logger"

	"golang.org/x/sync/errgroup"
)

// riskBatchSize bounds how many members' histories are loaded per query.
const riskBatchSize = 500

// EvaluateRisk re-scores every member with collection history.
func (jr *JobRunner) EvaluateRisk() {
	jr.runWithRecovery("EvaluateRisk", func() {
		res, err := jr.evaluateRisk(context.Background())
		if err != nil {
			logger.Error("Risk sweep aborted", "error", err)
		}
		logger.Info("Risk sweep finished", "evaluated", res.Processed, "flagged", res.Flagged, "failed", res.Failed)
	})
}

// A failure on one member does not stop the sweep.
func (jr *JobRunner) evaluateRisk(ctx context.Context) (SweepResult, error) {
	memberIDs, err := jr.collections.ListMemberIDs(ctx)
	if err != nil {
		return SweepResult{}, err
	}
	workers := jr.config.Risk.Workers
	if workers <= 0 {
		workers = 1
	}
	log := logger.WithJob("EvaluateRisk")

	var evaluated, flagged, failed atomic.Int64
	result := func() SweepResult {
		return SweepResult{Processed: int(evaluated.Load()), Flagged: int(flagged.Load()), Failed: int(failed.Load())}
	}
	for start := 0; start < len(memberIDs); start += riskBatchSize {
		end := min(start+riskBatchSize, len(memberIDs))
		batch := memberIDs[start:end]

		histories, err := jr.collections.ListByMembers(ctx, batch)
		if err != nil {
			return result(), err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for _, id := range batch {
			g.Go(func() error {
				eval, err := jr.services.Risk.EvaluateHistory(gctx, id, histories[id])
				if err != nil {
					failed.Add(1)
					log.Error("Failed to evaluate member", "member_id", id, "error", err)
					return nil
				}
				evaluated.Add(1)
				if eval.Flag != nil {
					flagged.Add(1)
				}
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return result(), err
		}
	}
	return result(), nil
}
