package http

import (
	"context"
	"io"
	"time"

	"chitfund-backend/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockCollectionService struct {
	mock.Mock
}

func (m *MockCollectionService) Reconcile(ctx context.Context, memberID, groupID, cycle int32, asOf time.Time) (*domain.Reconciliation, error) {
	args := m.Called(ctx, memberID, groupID, cycle, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reconciliation), args.Error(1)
}

func (m *MockCollectionService) RecordCollection(ctx context.Context, c *domain.Collection) (bool, error) {
	args := m.Called(ctx, c)
	return args.Bool(0), args.Error(1)
}

func (m *MockCollectionService) ApproveCollection(ctx context.Context, id int32) (*domain.Collection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Collection), args.Error(1)
}

func (m *MockCollectionService) RejectCollection(ctx context.Context, id int32) (*domain.Collection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Collection), args.Error(1)
}

func (m *MockCollectionService) OverdueForGroup(ctx context.Context, g *domain.ChitGroup, asOf time.Time) ([]domain.Reconciliation, error) {
	args := m.Called(ctx, g, asOf)
	return args.Get(0).([]domain.Reconciliation), args.Error(1)
}

type MockAuctionService struct {
	mock.Mock
}

func (m *MockAuctionService) OpenAuction(ctx context.Context, groupID int32, start, end time.Time) (*domain.Auction, error) {
	args := m.Called(ctx, groupID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Auction), args.Error(1)
}

func (m *MockAuctionService) PlaceBid(ctx context.Context, auctionID, memberID int32, discount decimal.Decimal) (*domain.Bid, error) {
	args := m.Called(ctx, auctionID, memberID, discount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bid), args.Error(1)
}

func (m *MockAuctionService) ResolveAuction(ctx context.Context, auctionID int32) (*domain.Settlement, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Settlement), args.Error(1)
}

func (m *MockAuctionService) CancelAuction(ctx context.Context, auctionID int32) (*domain.Auction, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Auction), args.Error(1)
}

func (m *MockAuctionService) ExtendAuction(ctx context.Context, auctionID int32, end time.Time) (*domain.Auction, error) {
	args := m.Called(ctx, auctionID, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Auction), args.Error(1)
}

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) IsEligible(ctx context.Context, memberID, groupID int32) (bool, error) {
	args := m.Called(ctx, memberID, groupID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLoanService) RequestLoan(ctx context.Context, memberID, groupID int32, amount decimal.Decimal) (*domain.Loan, error) {
	args := m.Called(ctx, memberID, groupID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanService) DecideLoan(ctx context.Context, loanID int32, to domain.LoanStatus) (*domain.Loan, error) {
	args := m.Called(ctx, loanID, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanService) RecordRepayment(ctx context.Context, loanID int32, amount decimal.Decimal, paidOn time.Time) (*domain.LoanRepayment, error) {
	args := m.Called(ctx, loanID, amount, paidOn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanRepayment), args.Error(1)
}

type MockRollupService struct {
	mock.Mock
}

func (m *MockRollupService) Aggregate(ctx context.Context, scope domain.Scope, period domain.Period) (*domain.RollupReport, error) {
	args := m.Called(ctx, scope, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RollupReport), args.Error(1)
}

func (m *MockRollupService) ExportLedger(ctx context.Context, w io.Writer, scope domain.Scope, period domain.Period) error {
	args := m.Called(ctx, w, scope, period)
	if fn, ok := args.Get(0).(func(io.Writer)); ok {
		fn(w)
		return nil
	}
	return args.Error(0)
}
