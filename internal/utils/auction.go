package utils

import (
	"fmt"

	"chitfund-backend/internal/domain"

	"github.com/shopspring/decimal"
)

// SelectWinningBid picks the bid with the highest discount. Exact ties go to
// the earliest bid, then the lowest id.
func SelectWinningBid(bids []domain.Bid) (*domain.Bid, error) {
	if len(bids) == 0 {
		return nil, domain.ErrNoWinner
	}
	best := &bids[0]
	for i := 1; i < len(bids); i++ {
		b := &bids[i]
		switch cmp := b.Amount.Cmp(best.Amount); {
		case cmp > 0:
			best = b
		case cmp == 0 && b.CreatedAt.Before(best.CreatedAt):
			best = b
		case cmp == 0 && b.CreatedAt.Equal(best.CreatedAt) && b.ID < best.ID:
			best = b
		}
	}
	return best, nil
}

// MaxDiscount is the largest discount a bidder may offer without driving the
// net payout below zero.
func MaxDiscount(group *domain.ChitGroup) decimal.Decimal {
	return group.ChitValue.Sub(group.Commission())
}

// ComputeSettlement splits the pool for the winning bid:
// net_payout + commission + discount == chit_value.
func ComputeSettlement(group *domain.ChitGroup, auction *domain.Auction, bid *domain.Bid) (domain.Settlement, error) {
	if bid.Amount.IsNegative() || bid.Amount.GreaterThan(MaxDiscount(group)) {
		return domain.Settlement{}, fmt.Errorf("%w: discount %s outside [0,%s]", domain.ErrInvalidInput, bid.Amount, MaxDiscount(group))
	}
	commission := group.Commission()
	return domain.Settlement{
		AuctionID:      auction.ID,
		GroupID:        group.ID,
		Cycle:          auction.Cycle,
		WinnerID:       bid.MemberID,
		BidID:          bid.ID,
		Discount:       bid.Amount,
		Commission:     commission,
		NetPayout:      group.ChitValue.Sub(bid.Amount).Sub(commission),
		GroupCompleted: auction.Cycle >= group.Duration,
	}, nil
}
