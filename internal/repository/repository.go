package repository

import (
	"context"
	"time"

	"chitfund-backend/internal/domain"
)

type GroupRepository interface {
	Create(ctx context.Context, group *domain.ChitGroup) error
	GetByID(ctx context.Context, id int32) (*domain.ChitGroup, error)
	ListByStatus(ctx context.Context, status domain.GroupStatus) ([]domain.ChitGroup, error)
	// UpdateStatus moves the group from one status to another; it fails with
	// ErrConflict if the group is no longer in the from status.
	UpdateStatus(ctx context.Context, id int32, from, to domain.GroupStatus) error

	// Memberships
	AddMember(ctx context.Context, m *domain.Membership) error
	GetMembership(ctx context.Context, groupID, memberID int32) (*domain.Membership, error)
	ListMembers(ctx context.Context, groupID int32) ([]domain.Membership, error)
}

type AuctionRepository interface {
	Create(ctx context.Context, auction *domain.Auction) error
	GetByID(ctx context.Context, id int32) (*domain.Auction, error)
	GetActiveByGroup(ctx context.Context, groupID int32) (*domain.Auction, error)
	ListClosable(ctx context.Context, now time.Time) ([]domain.Auction, error)
	// UpdateStatus is a compare-and-swap on the auction status.
	UpdateStatus(ctx context.Context, id int32, from, to domain.AuctionStatus) error
	ExtendEndTime(ctx context.Context, id int32, endTime time.Time) error

	// CreateBid inserts a bid only while its auction is active.
	CreateBid(ctx context.Context, bid *domain.Bid) error
	ListBids(ctx context.Context, auctionID int32) ([]domain.Bid, error)

	// Settle atomically completes the auction, advances the group cycle and
	// records the winner. Losing a concurrent race yields ErrConflict.
	Settle(ctx context.Context, s *domain.Settlement) error
}

type CollectionRepository interface {
	// Create inserts the collection unless its receipt number already exists.
	// created is false when an earlier record with the same receipt was found;
	// c is then filled from that record.
	Create(ctx context.Context, c *domain.Collection) (created bool, err error)
	GetByID(ctx context.Context, id int32) (*domain.Collection, error)
	GetByReceiptNo(ctx context.Context, receiptNo string) (*domain.Collection, error)
	UpdateStatus(ctx context.Context, id int32, from, to domain.CollectionStatus) error
	SetReceiptURL(ctx context.Context, id int32, url string) error
	ListByObligation(ctx context.Context, memberID, groupID, cycle int32) ([]domain.Collection, error)
	ListByMember(ctx context.Context, memberID int32) ([]domain.Collection, error)
	ListByMembers(ctx context.Context, memberIDs []int32) (map[int32][]domain.Collection, error)
	ListMemberIDs(ctx context.Context) ([]int32, error)
	ListFacts(ctx context.Context, scope domain.Scope, period domain.Period) ([]domain.CollectionFact, error)
}

// LoanGate returns the refusal reason for a new request given the member's
// latest loan in the group (nil when there is none), or "" to allow it.
type LoanGate func(latest *domain.Loan) string

type LoanRepository interface {
	Create(ctx context.Context, loan *domain.Loan) error
	// CreateGated inserts loan only if gate allows it, holding the member's
	// membership row locked between the read and the insert. A missing
	// membership is ErrNotFound; a refusal returns the reason and inserts nothing.
	CreateGated(ctx context.Context, loan *domain.Loan, gate LoanGate) (string, error)
	GetByID(ctx context.Context, id int32) (*domain.Loan, error)
	// GetLatest returns ErrNotFound when the member has no loan in the group.
	GetLatest(ctx context.Context, memberID, groupID int32) (*domain.Loan, error)
	UpdateStatus(ctx context.Context, id int32, from, to domain.LoanStatus) error
	CreateRepayment(ctx context.Context, r *domain.LoanRepayment) error
	ListFacts(ctx context.Context, scope domain.Scope, period domain.Period) ([]domain.LoanFact, error)
}

type RiskRepository interface {
	GetTier(ctx context.Context, memberID int32) (domain.RiskTier, error)
	// RecordTier stores the member's tier and, when the stored tier moves from
	// normal to high, appends flag in the same transaction.
	RecordTier(ctx context.Context, memberID int32, tier domain.RiskTier, flag *domain.RiskFlag) (previous domain.RiskTier, flagged bool, err error)
	CreateFlag(ctx context.Context, flag *domain.RiskFlag) error
	ResolveFlag(ctx context.Context, id int32, at time.Time) error
	ListFlags(ctx context.Context, subject domain.SubjectType, subjectID int32) ([]domain.RiskFlag, error)
	ListHighRiskMembers(ctx context.Context, scope domain.Scope) ([]domain.MemberRef, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
}
