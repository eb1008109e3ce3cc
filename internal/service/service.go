package service

import (
	"context"
	"io"
	"time"

	"chitfund-backend/internal/domain"

	"github.com/shopspring/decimal"
)

// Notifier hands a notification payload to the messaging collaborator.
type Notifier interface {
	Notify(ctx context.Context, note *domain.Notification) error
}

type GroupService interface {
	CreateGroup(ctx context.Context, group *domain.ChitGroup) error
	GetGroup(ctx context.Context, id int32) (*domain.ChitGroup, []domain.Membership, error)
	ActivateGroup(ctx context.Context, id int32) (*domain.ChitGroup, error)
	CancelGroup(ctx context.Context, id int32) (*domain.ChitGroup, error)
	AddMember(ctx context.Context, groupID, memberID int32) (*domain.Membership, error)
}

type CollectionService interface {
	// Reconcile reports whether the member's contribution for the cycle is
	// paid, pending or overdue as of the given date, and the fine owed.
	Reconcile(ctx context.Context, memberID, groupID, cycle int32, asOf time.Time) (*domain.Reconciliation, error)
	// RecordCollection is idempotent on the receipt number. created is false
	// when the receipt had already been recorded; c then holds that record.
	RecordCollection(ctx context.Context, c *domain.Collection) (created bool, err error)
	ApproveCollection(ctx context.Context, id int32) (*domain.Collection, error)
	RejectCollection(ctx context.Context, id int32) (*domain.Collection, error)
	// OverdueForGroup reconciles the group's current cycle for every member
	// and returns the obligations that are overdue.
	OverdueForGroup(ctx context.Context, group *domain.ChitGroup, asOf time.Time) ([]domain.Reconciliation, error)
}

type AuctionService interface {
	OpenAuction(ctx context.Context, groupID int32, start, end time.Time) (*domain.Auction, error)
	PlaceBid(ctx context.Context, auctionID, memberID int32, discount decimal.Decimal) (*domain.Bid, error)
	ResolveAuction(ctx context.Context, auctionID int32) (*domain.Settlement, error)
	CancelAuction(ctx context.Context, auctionID int32) (*domain.Auction, error)
	ExtendAuction(ctx context.Context, auctionID int32, end time.Time) (*domain.Auction, error)
}

type RiskService interface {
	ScoreMember(ctx context.Context, memberID int32) (*domain.RiskScore, error)
	EvaluateMember(ctx context.Context, memberID int32) (*domain.RiskEvaluation, error)
	// EvaluateHistory is EvaluateMember for callers that already loaded the
	// member's collections.
	EvaluateHistory(ctx context.Context, memberID int32, history []domain.Collection) (*domain.RiskEvaluation, error)
	ResolveFlag(ctx context.Context, flagID int32) error
	FlagAgent(ctx context.Context, agentID int32, reason string) (*domain.RiskFlag, error)
	ListFlags(ctx context.Context, subject domain.SubjectType, subjectID int32) ([]domain.RiskFlag, error)
}

type RollupService interface {
	Aggregate(ctx context.Context, scope domain.Scope, period domain.Period) (*domain.RollupReport, error)
	ExportLedger(ctx context.Context, w io.Writer, scope domain.Scope, period domain.Period) error
}

type LoanService interface {
	IsEligible(ctx context.Context, memberID, groupID int32) (bool, error)
	// RequestLoan returns an *domain.IneligibleError when the gate refuses.
	RequestLoan(ctx context.Context, memberID, groupID int32, amount decimal.Decimal) (*domain.Loan, error)
	DecideLoan(ctx context.Context, loanID int32, to domain.LoanStatus) (*domain.Loan, error)
	RecordRepayment(ctx context.Context, loanID int32, amount decimal.Decimal, paidOn time.Time) (*domain.LoanRepayment, error)
}

type ReceiptService interface {
	// IssueReceipt stores a receipt for the collection and returns its URL.
	IssueReceipt(ctx context.Context, collectionID int32) (string, error)
}
