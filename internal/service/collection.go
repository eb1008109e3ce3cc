package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chitfund-backend/internal/domain"
	"chitfund-backend/internal/logger"
	"chitfund-backend/internal/repository"
	"chitfund-backend/internal/utils"

	"github.com/shopspring/decimal"
)

type collectionService struct {
	groupRepo      repository.GroupRepository
	collectionRepo repository.CollectionRepository
	dueDay         int
	schedule       utils.FineSchedule
}

func NewCollectionService(
	groupRepo repository.GroupRepository,
	collectionRepo repository.CollectionRepository,
	dueDay int,
	schedule utils.FineSchedule,
) CollectionService {
	if dueDay <= 0 {
		dueDay = utils.DefaultDueDay
	}
	return &collectionService{
		groupRepo:      groupRepo,
		collectionRepo: collectionRepo,
		dueDay:         dueDay,
		schedule:       schedule,
	}
}

func checkCycle(g *domain.ChitGroup, cycle int32) error {
	if cycle < 1 || cycle > g.Duration {
		return fmt.Errorf("%w: cycle %d outside [1,%d]", domain.ErrInvalidInput, cycle, g.Duration)
	}
	return nil
}

func (s *collectionService) Reconcile(ctx context.Context, memberID, groupID, cycle int32, asOf time.Time) (*domain.Reconciliation, error) {
	logger.EnterMethod("collectionService.Reconcile", "memberID", memberID, "groupID", groupID, "cycle", cycle, "asOf", asOf)

	g, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		logger.ExitMethodWithError("collectionService.Reconcile", err)
		return nil, err
	}
	if err := checkCycle(g, cycle); err != nil {
		logger.ExitMethodWithError("collectionService.Reconcile", err)
		return nil, err
	}
	collections, err := s.collectionRepo.ListByObligation(ctx, memberID, groupID, cycle)
	if err != nil {
		logger.ExitMethodWithError("collectionService.Reconcile", err)
		return nil, fmt.Errorf("load collections: %w", err)
	}

	rec := utils.Reconcile(g, memberID, cycle, asOf, collections, s.dueDay, s.schedule)
	logger.ExitMethod("collectionService.Reconcile", "status", rec.Status, "fine", rec.Fine)
	return &rec, nil
}

// RecordCollection derives the due date and fine from the payment date once,
// here; a replayed receipt returns the stored record untouched.
func (s *collectionService) RecordCollection(ctx context.Context, c *domain.Collection) (bool, error) {
	logger.EnterMethod("collectionService.RecordCollection", "receiptNo", c.ReceiptNo, "memberID", c.MemberID, "groupID", c.GroupID, "cycle", c.Cycle)

	c.ReceiptNo = strings.TrimSpace(c.ReceiptNo)
	if err := validateCollection(c); err != nil {
		logger.ExitMethodWithError("collectionService.RecordCollection", err)
		return false, err
	}

	g, err := s.groupRepo.GetByID(ctx, c.GroupID)
	if err != nil {
		logger.ExitMethodWithError("collectionService.RecordCollection", err)
		return false, err
	}
	if g.Status != domain.GroupStatusActive && g.Status != domain.GroupStatusCompleted {
		err := fmt.Errorf("%w: group %d is %s", domain.ErrInvalidState, g.ID, g.Status)
		logger.ExitMethodWithError("collectionService.RecordCollection", err)
		return false, err
	}
	if err := checkCycle(g, c.Cycle); err != nil {
		logger.ExitMethodWithError("collectionService.RecordCollection", err)
		return false, err
	}
	if _, err := s.groupRepo.GetMembership(ctx, c.GroupID, c.MemberID); err != nil {
		logger.ExitMethodWithError("collectionService.RecordCollection", err, "reason", "membership")
		return false, err
	}

	prior, err := s.collectionRepo.ListByObligation(ctx, c.MemberID, c.GroupID, c.Cycle)
	if err != nil {
		logger.ExitMethodWithError("collectionService.RecordCollection", err, "reason", "prior collections")
		return false, fmt.Errorf("load collections: %w", err)
	}

	// A cycle is fined once: instalments after the first live collection carry no fine.
	c.DueDate = utils.DueDate(g, c.Cycle, s.dueDay)
	c.Fine = decimal.Zero
	if !hasLiveCollection(prior, c.ReceiptNo) {
		c.Fine = s.schedule.Fine(utils.DaysLate(c.DueDate, c.PaymentDate))
	}
	c.Status = domain.CollectionStatusPending
	c.ReceiptURL = ""

	created, err := s.collectionRepo.Create(ctx, c)
	if err != nil {
		logger.ExitMethodWithError("collectionService.RecordCollection", err)
		return false, fmt.Errorf("record collection: %w", err)
	}
	logger.ExitMethod("collectionService.RecordCollection", "collectionID", c.ID, "created", created, "fine", c.Fine)
	return created, nil
}

// hasLiveCollection reports whether a non-rejected collection other than
// receiptNo already covers the obligation.
func hasLiveCollection(prior []domain.Collection, receiptNo string) bool {
	for _, p := range prior {
		if p.ReceiptNo != receiptNo && p.Status != domain.CollectionStatusRejected {
			return true
		}
	}
	return false
}

func validateCollection(c *domain.Collection) error {
	if c.ReceiptNo == "" {
		return fmt.Errorf("%w: receipt number is required", domain.ErrInvalidInput)
	}
	if c.MemberID <= 0 || c.GroupID <= 0 {
		return fmt.Errorf("%w: member and group are required", domain.ErrInvalidInput)
	}
	if !c.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}
	if c.PaymentDate.IsZero() {
		return fmt.Errorf("%w: payment date is required", domain.ErrInvalidInput)
	}
	if _, err := domain.ParsePaymentMode(string(c.PaymentMode)); err != nil {
		return err
	}
	return nil
}

func (s *collectionService) ApproveCollection(ctx context.Context, id int32) (*domain.Collection, error) {
	return s.decide(ctx, id, domain.CollectionStatusApproved)
}

func (s *collectionService) RejectCollection(ctx context.Context, id int32) (*domain.Collection, error) {
	return s.decide(ctx, id, domain.CollectionStatusRejected)
}

// Only pending collections can be decided; approved ones are immutable.
func (s *collectionService) decide(ctx context.Context, id int32, to domain.CollectionStatus) (*domain.Collection, error) {
	logger.EnterMethod("collectionService.decide", "collectionID", id, "to", to)

	c, err := s.collectionRepo.GetByID(ctx, id)
	if err != nil {
		logger.ExitMethodWithError("collectionService.decide", err)
		return nil, err
	}
	if c.Status != domain.CollectionStatusPending {
		err := fmt.Errorf("%w: collection %d is already %s", domain.ErrInvalidState, id, c.Status)
		logger.ExitMethodWithError("collectionService.decide", err)
		return nil, err
	}
	if err := s.collectionRepo.UpdateStatus(ctx, id, domain.CollectionStatusPending, to); err != nil {
		logger.ExitMethodWithError("collectionService.decide", err)
		return nil, err
	}
	c.Status = to
	logger.ExitMethod("collectionService.decide", "collectionID", id, "status", to)
	return c, nil
}

// CalendarCycle is the cycle whose month contains at, clamped to the group's
// duration. It is 0 before the group's first month.
func CalendarCycle(g *domain.ChitGroup, at time.Time) int32 {
	at = at.UTC()
	months := (at.Year()-g.StartsOn.Year())*12 + int(at.Month()) - int(g.StartsOn.Month())
	cycle := int32(months + 1)
	if cycle < 1 {
		return 0
	}
	if cycle > g.Duration {
		return g.Duration
	}
	return cycle
}

func (s *collectionService) OverdueForGroup(ctx context.Context, g *domain.ChitGroup, asOf time.Time) ([]domain.Reconciliation, error) {
	cycle := CalendarCycle(g, asOf)
	if cycle == 0 {
		return nil, nil
	}
	members, err := s.groupRepo.ListMembers(ctx, g.ID)
	if err != nil {
		return nil, fmt.Errorf("list members of group %d: %w", g.ID, err)
	}

	var overdue []domain.Reconciliation
	for _, m := range members {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		collections, err := s.collectionRepo.ListByObligation(ctx, m.MemberID, g.ID, cycle)
		if err != nil {
			return nil, fmt.Errorf("load collections for member %d: %w", m.MemberID, err)
		}
		rec := utils.Reconcile(g, m.MemberID, cycle, asOf, collections, s.dueDay, s.schedule)
		if rec.Status == domain.ObligationOverdue {
			overdue = append(overdue, rec)
		}
	}
	return overdue, nil
}
