package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"chitfund-backend/internal/domain"
	"chitfund-backend/internal/logger"
	"chitfund-backend/internal/repository"

	"github.com/shopspring/decimal"
)

// DefaultLoanCooldown is how long an approved loan blocks the next request.
const DefaultLoanCooldown = 30 * 24 * time.Hour

type loanService struct {
	loanRepo  repository.LoanRepository
	groupRepo repository.GroupRepository
	notifier  Notifier
	cooldown  time.Duration
	now       func() time.Time
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	groupRepo repository.GroupRepository,
	notifier Notifier,
	cooldown time.Duration,
) LoanService {
	if cooldown <= 0 {
		cooldown = DefaultLoanCooldown
	}
	return &loanService{
		loanRepo:  loanRepo,
		groupRepo: groupRepo,
		notifier:  notifier,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// refusal is the gate applied to the member's latest loan; "" allows the request.
func (s *loanService) refusal(latest *domain.Loan, now time.Time) string {
	if latest != nil && latest.Status == domain.LoanStatusApproved && now.Sub(latest.RequestedOn) < s.cooldown {
		return domain.ReasonRecentApprovedLoan
	}
	return ""
}

// check returns the refusal reason, or "" when the member may borrow.
func (s *loanService) check(ctx context.Context, memberID, groupID int32, now time.Time) (string, error) {
	latest, err := s.loanRepo.GetLatest(ctx, memberID, groupID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load latest loan: %w", err)
	}
	return s.refusal(latest, now), nil
}

func (s *loanService) IsEligible(ctx context.Context, memberID, groupID int32) (bool, error) {
	reason, err := s.check(ctx, memberID, groupID, s.now())
	if err != nil {
		return false, err
	}
	return reason == "", nil
}

// RequestLoan writes nothing when the gate refuses. The gate and the insert
// run under one lock so concurrent requests cannot both pass the cooldown.
func (s *loanService) RequestLoan(ctx context.Context, memberID, groupID int32, amount decimal.Decimal) (*domain.Loan, error) {
	logger.EnterMethod("loanService.RequestLoan", "memberID", memberID, "groupID", groupID, "amount", amount)

	if !amount.IsPositive() {
		err := fmt.Errorf("%w: loan amount must be positive", domain.ErrInvalidInput)
		logger.ExitMethodWithError("loanService.RequestLoan", err)
		return nil, err
	}
	if _, err := s.groupRepo.GetMembership(ctx, groupID, memberID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = &domain.IneligibleError{Reason: domain.ReasonNotGroupMember}
		}
		logger.ExitMethodWithError("loanService.RequestLoan", err)
		return nil, err
	}

	now := s.now().UTC()
	loan := &domain.Loan{
		MemberID:    memberID,
		GroupID:     groupID,
		Amount:      amount,
		Status:      domain.LoanStatusPending,
		RequestedOn: now,
		UpdatedAt:   now,
	}
	reason, err := s.loanRepo.CreateGated(ctx, loan, func(latest *domain.Loan) string {
		return s.refusal(latest, now)
	})
	if errors.Is(err, domain.ErrNotFound) {
		err = &domain.IneligibleError{Reason: domain.ReasonNotGroupMember}
	}
	if err != nil {
		logger.ExitMethodWithError("loanService.RequestLoan", err)
		return nil, fmt.Errorf("create loan: %w", err)
	}
	if reason != "" {
		err := &domain.IneligibleError{Reason: reason}
		logger.ExitMethodWithError("loanService.RequestLoan", err)
		return nil, err
	}

	if s.notifier != nil {
		note := &domain.Notification{
			RecipientID: memberID,
			Template:    domain.TemplateLoanRequested,
			Message:     fmt.Sprintf("Loan request for %s received.", amount.StringFixed(2)),
			Attributes:  map[string]string{"loan_id": strconv.Itoa(int(loan.ID))},
		}
		if err := s.notifier.Notify(ctx, note); err != nil {
			logger.Warn("Failed to hand off loan notification", "loanID", loan.ID, "error", err)
		}
	}
	logger.ExitMethod("loanService.RequestLoan", "loanID", loan.ID)
	return loan, nil
}

func (s *loanService) DecideLoan(ctx context.Context, loanID int32, to domain.LoanStatus) (*domain.Loan, error) {
	logger.EnterMethod("loanService.DecideLoan", "loanID", loanID, "to", to)

	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		logger.ExitMethodWithError("loanService.DecideLoan", err)
		return nil, err
	}
	if !loan.Status.CanTransitionTo(to) {
		err := fmt.Errorf("%w: loan %d cannot move from %s to %s", domain.ErrInvalidState, loanID, loan.Status, to)
		logger.ExitMethodWithError("loanService.DecideLoan", err)
		return nil, err
	}
	if err := s.loanRepo.UpdateStatus(ctx, loanID, loan.Status, to); err != nil {
		logger.ExitMethodWithError("loanService.DecideLoan", err)
		return nil, err
	}
	loan.Status = to
	loan.UpdatedAt = s.now().UTC()
	logger.ExitMethod("loanService.DecideLoan", "loanID", loanID, "status", to)
	return loan, nil
}

func (s *loanService) RecordRepayment(ctx context.Context, loanID int32, amount decimal.Decimal, paidOn time.Time) (*domain.LoanRepayment, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: repayment amount must be positive", domain.ErrInvalidInput)
	}
	if paidOn.IsZero() {
		paidOn = s.now()
	}
	rp := &domain.LoanRepayment{
		LoanID:      loanID,
		Amount:      amount,
		PaymentDate: paidOn.UTC(),
		Status:      domain.CollectionStatusPending,
	}
	if err := s.loanRepo.CreateRepayment(ctx, rp); err != nil {
		return nil, fmt.Errorf("record repayment for loan %d: %w", loanID, err)
	}
	logger.Info("Loan repayment recorded", "loanID", loanID, "repaymentID", rp.ID)
	return rp, nil
}
