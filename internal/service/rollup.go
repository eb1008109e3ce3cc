package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"chitfund-backend/internal/domain"
	"chitfund-backend/internal/logger"
	"chitfund-backend/internal/repository"
	"chitfund-backend/internal/utils"
)

type rollupService struct {
	collectionRepo repository.CollectionRepository
	loanRepo       repository.LoanRepository
	riskRepo       repository.RiskRepository
	now            func() time.Time
}

func NewRollupService(
	collectionRepo repository.CollectionRepository,
	loanRepo repository.LoanRepository,
	riskRepo repository.RiskRepository,
) RollupService {
	return &rollupService{
		collectionRepo: collectionRepo,
		loanRepo:       loanRepo,
		riskRepo:       riskRepo,
		now:            time.Now,
	}
}

// Aggregate only reads. Cancelling ctx aborts the fold with ctx.Err().
func (s *rollupService) Aggregate(ctx context.Context, scope domain.Scope, period domain.Period) (*domain.RollupReport, error) {
	logger.EnterMethod("rollupService.Aggregate", "scope", scope.Level, "scopeID", scope.ID)

	if err := validateRollupArgs(scope, period); err != nil {
		logger.ExitMethodWithError("rollupService.Aggregate", err)
		return nil, err
	}

	collections, err := s.collectionRepo.ListFacts(ctx, scope, period)
	if err != nil {
		logger.ExitMethodWithError("rollupService.Aggregate", err, "step", "collections")
		return nil, fmt.Errorf("load collections: %w", err)
	}
	loans, err := s.loanRepo.ListFacts(ctx, scope, period)
	if err != nil {
		logger.ExitMethodWithError("rollupService.Aggregate", err, "step", "loans")
		return nil, fmt.Errorf("load loans: %w", err)
	}
	risky, err := s.riskRepo.ListHighRiskMembers(ctx, scope)
	if err != nil {
		logger.ExitMethodWithError("rollupService.Aggregate", err, "step", "risk")
		return nil, fmt.Errorf("load high-risk members: %w", err)
	}

	report, err := utils.Rollup(ctx, utils.RollupInput{
		Scope:       scope,
		Period:      period,
		AsOf:        s.now().UTC(),
		Collections: collections,
		Loans:       loans,
		HighRisk:    risky,
	})
	if err != nil {
		logger.ExitMethodWithError("rollupService.Aggregate", err)
		return nil, err
	}
	logger.ExitMethod("rollupService.Aggregate", "collected", report.Totals.TotalCollected, "collections", report.Totals.CollectionCount)
	return report, nil
}

func validateRollupArgs(scope domain.Scope, period domain.Period) error {
	switch scope.Level {
	case domain.ScopeAll:
	case domain.ScopeBranch, domain.ScopeMandal, domain.ScopeDepartment:
		if scope.ID <= 0 {
			return fmt.Errorf("%w: %s scope needs an id", domain.ErrInvalidInput, scope.Level)
		}
	default:
		return fmt.Errorf("%w: unknown scope %q", domain.ErrInvalidInput, scope.Level)
	}
	if period.From != nil && period.To != nil && period.To.Before(*period.From) {
		return fmt.Errorf("%w: period ends before it starts", domain.ErrInvalidInput)
	}
	return nil
}

func (s *rollupService) ExportLedger(ctx context.Context, w io.Writer, scope domain.Scope, period domain.Period) error {
	report, err := s.Aggregate(ctx, scope, period)
	if err != nil {
		return err
	}
	return WriteLedgerCSV(w, report.Ledger)
}

// LedgerHeader is the fixed column order of the exported ledger.
var LedgerHeader = []string{"Date", "Member", "Amount", "Fine", "Agent", "Group"}

// WriteLedgerCSV flattens rollup rows in the order given.
func WriteLedgerCSV(w io.Writer, rows []domain.CollectionFact) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(LedgerHeader); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.PaymentDate.UTC().Format("2006-01-02"),
			r.MemberName,
			r.Amount.StringFixed(2),
			r.Fine.StringFixed(2),
			r.AgentName,
			r.GroupName,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
