package jobs

import (
	"context"
	"errors"

	"chitfund-backend/internal/domain"
	"chitfund-backend/internal/logger"
)

// SweepResult counts what one sweep did.
type SweepResult struct {
	Processed int
	Skipped   int
	Flagged   int
	Failed    int
}

// ResolveClosedAuctions settles every active auction whose end time has passed.
func (jr *JobRunner) ResolveClosedAuctions() {
	jr.runWithRecovery("ResolveClosedAuctions", func() {
		res, err := jr.resolveClosedAuctions(context.Background())
		if err != nil {
			logger.Error("Failed to list closable auctions", "error", err)
			return
		}
		logger.Info("Resolved closed auctions", "resolved", res.Processed, "skipped", res.Skipped, "failed", res.Failed)
	})
}

// Auctions without bids and auctions another resolver is settling are
// skipped; an operator cancels or extends the former.
func (jr *JobRunner) resolveClosedAuctions(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	auctions, err := jr.auctions.ListClosable(ctx, jr.now().UTC())
	if err != nil {
		return res, err
	}
	log := logger.WithJob("ResolveClosedAuctions")
	for _, a := range auctions {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		settlement, err := jr.services.Auctions.ResolveAuction(ctx, a.ID)
		switch {
		case err == nil:
			res.Processed++
			log.Debug("Auction settled", "auction_id", a.ID, "winner_id", settlement.WinnerID, "net_payout", settlement.NetPayout.StringFixed(2))
		case errors.Is(err, domain.ErrNoWinner), errors.Is(err, domain.ErrConflict):
			res.Skipped++
			log.Info("Auction left open", "auction_id", a.ID, "reason", domain.ErrorCode(err))
		default:
			res.Failed++
			log.Error("Failed to resolve auction", "auction_id", a.ID, "error", err)
		}
	}
	return res, nil
}
