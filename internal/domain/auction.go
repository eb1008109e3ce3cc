package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type AuctionStatus string

const (
	AuctionStatusScheduled AuctionStatus = "scheduled"
	AuctionStatusActive    AuctionStatus = "active"
	AuctionStatusCompleted AuctionStatus = "completed"
	AuctionStatusCancelled AuctionStatus = "cancelled"
)

func ParseAuctionStatus(s string) (AuctionStatus, error) {
	switch st := AuctionStatus(s); st {
	case AuctionStatusScheduled, AuctionStatusActive, AuctionStatusCompleted, AuctionStatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown auction status %q", ErrInvalidInput, s)
}

func (s AuctionStatus) IsClosed() bool {
	return s == AuctionStatusCompleted || s == AuctionStatusCancelled
}

type Auction struct {
	ID           int32         `json:"id"`
	GroupID      int32         `json:"group_id"`
	Cycle        int32         `json:"cycle"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	Status       AuctionStatus `json:"status"`
	WinnerID     *int32        `json:"winner_id,omitempty"`
	WinningBidID *int32        `json:"winning_bid_id,omitempty"`
}

// Bid amount is the discount the bidder accepts against the pool value.
type Bid struct {
	ID        int32           `json:"id"`
	AuctionID int32           `json:"auction_id"`
	MemberID  int32           `json:"member_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// Settlement is the outcome of resolving an auction.
type Settlement struct {
	AuctionID  int32           `json:"auction_id"`
	GroupID    int32           `json:"group_id"`
	Cycle      int32           `json:"cycle"`
	WinnerID   int32           `json:"winner_id"`
	BidID      int32           `json:"bid_id"`
	Discount   decimal.Decimal `json:"discount"`
	Commission decimal.Decimal `json:"commission"`
	NetPayout  decimal.Decimal `json:"net_payout"`
	// GroupCompleted is true when this settlement closed the final cycle.
	GroupCompleted bool `json:"group_completed"`
}
