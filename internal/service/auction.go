package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"chitfund-backend/internal/domain"
	"chitfund-backend/internal/lock"
	"chitfund-backend/internal/logger"
	"chitfund-backend/internal/repository"
	"chitfund-backend/internal/utils"

	"github.com/shopspring/decimal"
)

type auctionService struct {
	auctionRepo repository.AuctionRepository
	groupRepo   repository.GroupRepository
	locker      lock.Locker
	lockTTL     time.Duration
	notifier    Notifier
	now         func() time.Time
}

// NewAuctionService builds the resolver. locker may be nil, in which case
// exclusivity rests on the conditional updates in Settle alone.
func NewAuctionService(
	auctionRepo repository.AuctionRepository,
	groupRepo repository.GroupRepository,
	locker lock.Locker,
	lockTTL time.Duration,
	notifier Notifier,
) AuctionService {
	return &auctionService{
		auctionRepo: auctionRepo,
		groupRepo:   groupRepo,
		locker:      locker,
		lockTTL:     lockTTL,
		notifier:    notifier,
		now:         time.Now,
	}
}

// OpenAuction starts bidding for the group's next cycle.
func (s *auctionService) OpenAuction(ctx context.Context, groupID int32, start, end time.Time) (*domain.Auction, error) {
	logger.EnterMethod("auctionService.OpenAuction", "groupID", groupID, "start", start, "end", end)

	if !end.After(start) {
		err := fmt.Errorf("%w: end time must be after start time", domain.ErrInvalidInput)
		logger.ExitMethodWithError("auctionService.OpenAuction", err)
		return nil, err
	}
	g, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		logger.ExitMethodWithError("auctionService.OpenAuction", err)
		return nil, err
	}
	if g.Status != domain.GroupStatusActive {
		err := fmt.Errorf("%w: group %d is %s", domain.ErrInvalidState, groupID, g.Status)
		logger.ExitMethodWithError("auctionService.OpenAuction", err)
		return nil, err
	}
	if g.CurrentCycle >= g.Duration {
		err := fmt.Errorf("%w: group %d has no cycles left", domain.ErrInvalidState, groupID)
		logger.ExitMethodWithError("auctionService.OpenAuction", err)
		return nil, err
	}

	existing, err := s.auctionRepo.GetActiveByGroup(ctx, groupID)
	switch {
	case err == nil:
		err = fmt.Errorf("%w: group %d already has active auction %d", domain.ErrInvalidState, groupID, existing.ID)
		logger.ExitMethodWithError("auctionService.OpenAuction", err)
		return nil, err
	case !errors.Is(err, domain.ErrNotFound):
		logger.ExitMethodWithError("auctionService.OpenAuction", err)
		return nil, err
	}

	a := &domain.Auction{
		GroupID:   groupID,
		Cycle:     g.CurrentCycle + 1,
		StartTime: start.UTC(),
		EndTime:   end.UTC(),
		Status:    domain.AuctionStatusActive,
	}
	if err := s.auctionRepo.Create(ctx, a); err != nil {
		logger.ExitMethodWithError("auctionService.OpenAuction", err)
		return nil, fmt.Errorf("open auction: %w", err)
	}
	logger.ExitMethod("auctionService.OpenAuction", "auctionID", a.ID, "cycle", a.Cycle)
	return a, nil
}

// PlaceBid rejects ineligible bidders up front so resolution never has to
// drop a bid.
func (s *auctionService) PlaceBid(ctx context.Context, auctionID, memberID int32, discount decimal.Decimal) (*domain.Bid, error) {
	logger.EnterMethod("auctionService.PlaceBid", "auctionID", auctionID, "memberID", memberID, "discount", discount)

	now := s.now().UTC()
	a, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		logger.ExitMethodWithError("auctionService.PlaceBid", err)
		return nil, err
	}
	if a.Status != domain.AuctionStatusActive {
		err := fmt.Errorf("%w: auction %d is %s", domain.ErrInvalidState, auctionID, a.Status)
		logger.ExitMethodWithError("auctionService.PlaceBid", err)
		return nil, err
	}
	if now.Before(a.StartTime) || !now.Before(a.EndTime) {
		err := fmt.Errorf("%w: auction %d is not open for bids at %s", domain.ErrInvalidState, auctionID, now.Format(time.RFC3339))
		logger.ExitMethodWithError("auctionService.PlaceBid", err)
		return nil, err
	}

	g, err := s.groupRepo.GetByID(ctx, a.GroupID)
	if err != nil {
		logger.ExitMethodWithError("auctionService.PlaceBid", err)
		return nil, err
	}
	m, err := s.groupRepo.GetMembership(ctx, a.GroupID, memberID)
	if errors.Is(err, domain.ErrNotFound) {
		err = &domain.IneligibleError{Reason: domain.ReasonNotGroupMember}
	}
	if err != nil {
		logger.ExitMethodWithError("auctionService.PlaceBid", err)
		return nil, err
	}
	if m.HasWon() {
		err := &domain.IneligibleError{Reason: domain.ReasonAlreadyWon}
		logger.ExitMethodWithError("auctionService.PlaceBid", err, "wonCycle", *m.WonCycle)
		return nil, err
	}
	if limit := utils.MaxDiscount(g); !discount.IsPositive() || !domain.IsCents(discount) || discount.GreaterThan(limit) {
		err := fmt.Errorf("%w: discount %s outside (0,%s]", domain.ErrInvalidInput, discount, limit)
		logger.ExitMethodWithError("auctionService.PlaceBid", err)
		return nil, err
	}

	bid := &domain.Bid{AuctionID: auctionID, MemberID: memberID, Amount: discount, CreatedAt: now}
	if err := s.auctionRepo.CreateBid(ctx, bid); err != nil {
		logger.ExitMethodWithError("auctionService.PlaceBid", err)
		return nil, err
	}
	logger.ExitMethod("auctionService.PlaceBid", "bidID", bid.ID)
	return bid, nil
}

// ResolveAuction settles a closed auction. It fails fast before end time and
// never waits on a competing resolver.
func (s *auctionService) ResolveAuction(ctx context.Context, auctionID int32) (*domain.Settlement, error) {
	logger.EnterMethod("auctionService.ResolveAuction", "auctionID", auctionID)

	a, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		logger.ExitMethodWithError("auctionService.ResolveAuction", err)
		return nil, err
	}
	if err := s.checkClosable(a); err != nil {
		logger.ExitMethodWithError("auctionService.ResolveAuction", err)
		return nil, err
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, "auction:"+strconv.Itoa(int(auctionID)), s.lockTTL)
		if errors.Is(err, lock.ErrLockHeld) {
			err = fmt.Errorf("%w: auction %d is being resolved", domain.ErrConflict, auctionID)
		}
		if err != nil {
			logger.ExitMethodWithError("auctionService.ResolveAuction", err)
			return nil, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("Failed to release auction lock", "auctionID", auctionID, "error", err)
			}
		}()
	}

	bids, err := s.auctionRepo.ListBids(ctx, auctionID)
	if err != nil {
		logger.ExitMethodWithError("auctionService.ResolveAuction", err)
		return nil, fmt.Errorf("load bids: %w", err)
	}
	winner, err := utils.SelectWinningBid(bids)
	if err != nil {
		err = fmt.Errorf("auction %d: %w", auctionID, err)
		logger.ExitMethodWithError("auctionService.ResolveAuction", err)
		return nil, err
	}

	g, err := s.groupRepo.GetByID(ctx, a.GroupID)
	if err != nil {
		logger.ExitMethodWithError("auctionService.ResolveAuction", err)
		return nil, err
	}
	settlement, err := utils.ComputeSettlement(g, a, winner)
	if err != nil {
		logger.ExitMethodWithError("auctionService.ResolveAuction", err)
		return nil, err
	}
	if err := s.auctionRepo.Settle(ctx, &settlement); err != nil {
		logger.ExitMethodWithError("auctionService.ResolveAuction", err)
		return nil, err
	}

	s.notifyWinner(ctx, g, &settlement)
	logger.ExitMethod("auctionService.ResolveAuction", "auctionID", auctionID, "winnerID", settlement.WinnerID, "netPayout", settlement.NetPayout)
	return &settlement, nil
}

func (s *auctionService) checkClosable(a *domain.Auction) error {
	if a.Status != domain.AuctionStatusActive {
		return fmt.Errorf("%w: auction %d is %s", domain.ErrInvalidState, a.ID, a.Status)
	}
	if now := s.now(); now.Before(a.EndTime) {
		return fmt.Errorf("%w: auction %d closes at %s", domain.ErrNotYetClosable, a.ID, a.EndTime.Format(time.RFC3339))
	}
	return nil
}

// The settlement is already committed; a failed hand-off is only logged.
func (s *auctionService) notifyWinner(ctx context.Context, g *domain.ChitGroup, st *domain.Settlement) {
	if s.notifier == nil {
		return
	}
	note := &domain.Notification{
		RecipientID: st.WinnerID,
		Template:    domain.TemplateAuctionWinner,
		Message:     fmt.Sprintf("You won cycle %d of %s. Net payout %s.", st.Cycle, g.Name, st.NetPayout.StringFixed(2)),
		Attributes: map[string]string{
			"auction_id": strconv.Itoa(int(st.AuctionID)),
			"group_id":   strconv.Itoa(int(st.GroupID)),
			"cycle":      strconv.Itoa(int(st.Cycle)),
			"net_payout": st.NetPayout.StringFixed(2),
		},
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		logger.Warn("Failed to notify auction winner", "auctionID", st.AuctionID, "winnerID", st.WinnerID, "error", err)
	}
}

func (s *auctionService) CancelAuction(ctx context.Context, auctionID int32) (*domain.Auction, error) {
	logger.EnterMethod("auctionService.CancelAuction", "auctionID", auctionID)

	a, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		logger.ExitMethodWithError("auctionService.CancelAuction", err)
		return nil, err
	}
	if a.Status.IsClosed() {
		err := fmt.Errorf("%w: auction %d is %s", domain.ErrInvalidState, auctionID, a.Status)
		logger.ExitMethodWithError("auctionService.CancelAuction", err)
		return nil, err
	}
	if err := s.auctionRepo.UpdateStatus(ctx, auctionID, a.Status, domain.AuctionStatusCancelled); err != nil {
		logger.ExitMethodWithError("auctionService.CancelAuction", err)
		return nil, err
	}
	a.Status = domain.AuctionStatusCancelled
	logger.ExitMethod("auctionService.CancelAuction", "auctionID", auctionID)
	return a, nil
}

// ExtendAuction pushes the close time out, typically after a NoWinner result.
func (s *auctionService) ExtendAuction(ctx context.Context, auctionID int32, end time.Time) (*domain.Auction, error) {
	logger.EnterMethod("auctionService.ExtendAuction", "auctionID", auctionID, "end", end)

	a, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		logger.ExitMethodWithError("auctionService.ExtendAuction", err)
		return nil, err
	}
	if a.Status.IsClosed() {
		err := fmt.Errorf("%w: auction %d is %s", domain.ErrInvalidState, auctionID, a.Status)
		logger.ExitMethodWithError("auctionService.ExtendAuction", err)
		return nil, err
	}
	if !end.After(a.EndTime) || !end.After(s.now()) {
		err := fmt.Errorf("%w: new end time must be later than %s and in the future", domain.ErrInvalidInput, a.EndTime.Format(time.RFC3339))
		logger.ExitMethodWithError("auctionService.ExtendAuction", err)
		return nil, err
	}
	if err := s.auctionRepo.ExtendEndTime(ctx, auctionID, end.UTC()); err != nil {
		logger.ExitMethodWithError("auctionService.ExtendAuction", err)
		return nil, err
	}
	a.EndTime = end.UTC()
	logger.ExitMethod("auctionService.ExtendAuction", "auctionID", auctionID)
	return a, nil
}
