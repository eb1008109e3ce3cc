package service

import (
	"context"
	"io"
	"time"

	"chitfund-backend/internal/domain"
	"chitfund-backend/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockGroupRepo
type MockGroupRepo struct {
	mock.Mock
}

func (m *MockGroupRepo) Create(ctx context.Context, g *domain.ChitGroup) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}
func (m *MockGroupRepo) GetByID(ctx context.Context, id int32) (*domain.ChitGroup, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChitGroup), args.Error(1)
}
func (m *MockGroupRepo) ListByStatus(ctx context.Context, status domain.GroupStatus) ([]domain.ChitGroup, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]domain.ChitGroup), args.Error(1)
}
func (m *MockGroupRepo) UpdateStatus(ctx context.Context, id int32, from, to domain.GroupStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}
func (m *MockGroupRepo) AddMember(ctx context.Context, ms *domain.Membership) error {
	args := m.Called(ctx, ms)
	return args.Error(0)
}
func (m *MockGroupRepo) GetMembership(ctx context.Context, groupID, memberID int32) (*domain.Membership, error) {
	args := m.Called(ctx, groupID, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Membership), args.Error(1)
}
func (m *MockGroupRepo) ListMembers(ctx context.Context, groupID int32) ([]domain.Membership, error) {
	args := m.Called(ctx, groupID)
	return args.Get(0).([]domain.Membership), args.Error(1)
}

// MockAuctionRepo
type MockAuctionRepo struct {
	mock.Mock
}

func (m *MockAuctionRepo) Create(ctx context.Context, a *domain.Auction) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}
func (m *MockAuctionRepo) GetByID(ctx context.Context, id int32) (*domain.Auction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Auction), args.Error(1)
}
func (m *MockAuctionRepo) GetActiveByGroup(ctx context.Context, groupID int32) (*domain.Auction, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Auction), args.Error(1)
}
func (m *MockAuctionRepo) ListClosable(ctx context.Context, now time.Time) ([]domain.Auction, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.Auction), args.Error(1)
}
func (m *MockAuctionRepo) UpdateStatus(ctx context.Context, id int32, from, to domain.AuctionStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}
func (m *MockAuctionRepo) ExtendEndTime(ctx context.Context, id int32, end time.Time) error {
	args := m.Called(ctx, id, end)
	return args.Error(0)
}
func (m *MockAuctionRepo) CreateBid(ctx context.Context, b *domain.Bid) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}
func (m *MockAuctionRepo) ListBids(ctx context.Context, auctionID int32) ([]domain.Bid, error) {
	args := m.Called(ctx, auctionID)
	return args.Get(0).([]domain.Bid), args.Error(1)
}
func (m *MockAuctionRepo) Settle(ctx context.Context, s *domain.Settlement) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

// MockCollectionRepo
type MockCollectionRepo struct {
	mock.Mock
}

func (m *MockCollectionRepo) Create(ctx context.Context, c *domain.Collection) (bool, error) {
	args := m.Called(ctx, c)
	return args.Bool(0), args.Error(1)
}
func (m *MockCollectionRepo) GetByID(ctx context.Context, id int32) (*domain.Collection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Collection), args.Error(1)
}
func (m *MockCollectionRepo) GetByReceiptNo(ctx context.Context, receiptNo string) (*domain.Collection, error) {
	args := m.Called(ctx, receiptNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Collection), args.Error(1)
}
func (m *MockCollectionRepo) UpdateStatus(ctx context.Context, id int32, from, to domain.CollectionStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}
func (m *MockCollectionRepo) SetReceiptURL(ctx context.Context, id int32, url string) error {
	args := m.Called(ctx, id, url)
	return args.Error(0)
}
func (m *MockCollectionRepo) ListByObligation(ctx context.Context, memberID, groupID, cycle int32) ([]domain.Collection, error) {
	args := m.Called(ctx, memberID, groupID, cycle)
	return args.Get(0).([]domain.Collection), args.Error(1)
}
func (m *MockCollectionRepo) ListByMember(ctx context.Context, memberID int32) ([]domain.Collection, error) {
	args := m.Called(ctx, memberID)
	return args.Get(0).([]domain.Collection), args.Error(1)
}
func (m *MockCollectionRepo) ListByMembers(ctx context.Context, memberIDs []int32) (map[int32][]domain.Collection, error) {
	args := m.Called(ctx, memberIDs)
	return args.Get(0).(map[int32][]domain.Collection), args.Error(1)
}
func (m *MockCollectionRepo) ListMemberIDs(ctx context.Context) ([]int32, error) {
	args := m.Called(ctx)
	return args.Get(0).([]int32), args.Error(1)
}
func (m *MockCollectionRepo) ListFacts(ctx context.Context, scope domain.Scope, period domain.Period) ([]domain.CollectionFact, error) {
	args := m.Called(ctx, scope, period)
	return args.Get(0).([]domain.CollectionFact), args.Error(1)
}

// MockLoanRepo
type MockLoanRepo struct {
	mock.Mock
}

func (m *MockLoanRepo) Create(ctx context.Context, l *domain.Loan) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}
func (m *MockLoanRepo) CreateGated(ctx context.Context, l *domain.Loan, gate repository.LoanGate) (string, error) {
	args := m.Called(ctx, l, gate)
	return args.String(0), args.Error(1)
}
func (m *MockLoanRepo) GetByID(ctx context.Context, id int32) (*domain.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}
func (m *MockLoanRepo) GetLatest(ctx context.Context, memberID, groupID int32) (*domain.Loan, error) {
	args := m.Called(ctx, memberID, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}
func (m *MockLoanRepo) UpdateStatus(ctx context.Context, id int32, from, to domain.LoanStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}
func (m *MockLoanRepo) CreateRepayment(ctx context.Context, r *domain.LoanRepayment) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}
func (m *MockLoanRepo) ListFacts(ctx context.Context, scope domain.Scope, period domain.Period) ([]domain.LoanFact, error) {
	args := m.Called(ctx, scope, period)
	return args.Get(0).([]domain.LoanFact), args.Error(1)
}

// MockRiskRepo
type MockRiskRepo struct {
	mock.Mock
}

func (m *MockRiskRepo) GetTier(ctx context.Context, memberID int32) (domain.RiskTier, error) {
	args := m.Called(ctx, memberID)
	return args.Get(0).(domain.RiskTier), args.Error(1)
}
func (m *MockRiskRepo) RecordTier(ctx context.Context, memberID int32, tier domain.RiskTier, flag *domain.RiskFlag) (domain.RiskTier, bool, error) {
	args := m.Called(ctx, memberID, tier, flag)
	return args.Get(0).(domain.RiskTier), args.Bool(1), args.Error(2)
}
func (m *MockRiskRepo) CreateFlag(ctx context.Context, flag *domain.RiskFlag) error {
	args := m.Called(ctx, flag)
	return args.Error(0)
}
func (m *MockRiskRepo) ResolveFlag(ctx context.Context, id int32, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}
func (m *MockRiskRepo) ListFlags(ctx context.Context, subject domain.SubjectType, subjectID int32) ([]domain.RiskFlag, error) {
	args := m.Called(ctx, subject, subjectID)
	return args.Get(0).([]domain.RiskFlag), args.Error(1)
}
func (m *MockRiskRepo) ListHighRiskMembers(ctx context.Context, scope domain.Scope) ([]domain.MemberRef, error) {
	args := m.Called(ctx, scope)
	return args.Get(0).([]domain.MemberRef), args.Error(1)
}

// MockNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, note *domain.Notification) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

// MockLocker
type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	args := m.Called(ctx, key, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func(context.Context) error), args.Error(1)
}

// MockReceiptStore
type MockReceiptStore struct {
	mock.Mock
}

func (m *MockReceiptStore) Put(ctx context.Context, key, contentType string, body io.Reader, metadata map[string]string) (string, error) {
	args := m.Called(ctx, key, contentType, body, metadata)
	return args.String(0), args.Error(1)
}
func (m *MockReceiptStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}
func (m *MockReceiptStore) Exists(ctx context.Context, key string) (bool, int64, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Get(1).(int64), args.Error(2)
}
func (m *MockReceiptStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
