package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chitfund-backend/internal/domain"
	"chitfund-backend/internal/logger"
	"chitfund-backend/internal/repository"
)

type auctionRepository struct {
	db *sql.DB
}

func NewAuctionRepository(db *sql.DB) repository.AuctionRepository {
	return &auctionRepository{db: db}
}

const auctionColumns = `id, group_id, cycle, start_time, end_time, status, winner_id, winning_bid_id`

func scanAuction(row interface{ Scan(...any) error }) (*domain.Auction, error) {
	a := &domain.Auction{}
	var winner, bid sql.NullInt32
	if err := row.Scan(&a.ID, &a.GroupID, &a.Cycle, &a.StartTime, &a.EndTime, &a.Status, &winner, &bid); err != nil {
		return nil, err
	}
	if winner.Valid {
		w := winner.Int32
		a.WinnerID = &w
	}
	if bid.Valid {
		b := bid.Int32
		a.WinningBidID = &b
	}
	return a, nil
}

func (r *auctionRepository) Create(ctx context.Context, a *domain.Auction) error {
	logger.EnterMethod("auctionRepository.Create", "groupID", a.GroupID, "cycle", a.Cycle)

	query := `INSERT INTO auctions (group_id, cycle, start_time, end_time, status) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	logger.DatabaseCall("INSERT", "auctions", "groupID", a.GroupID)
	err := r.db.QueryRowContext(ctx, query, a.GroupID, a.Cycle, a.StartTime, a.EndTime, a.Status).Scan(&a.ID)
	logger.DatabaseResult("INSERT", 1, err, "auctionID", a.ID)
	if err != nil {
		err = mapError(err)
		logger.ExitMethodWithError("auctionRepository.Create", err)
		return err
	}
	logger.ExitMethod("auctionRepository.Create", "auctionID", a.ID)
	return nil
}

func (r *auctionRepository) GetByID(ctx context.Context, id int32) (*domain.Auction, error) {
	a, err := scanAuction(r.db.QueryRowContext(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return a, nil
}

func (r *auctionRepository) GetActiveByGroup(ctx context.Context, groupID int32) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE group_id = $1 AND status = 'active'`
	a, err := scanAuction(r.db.QueryRowContext(ctx, query, groupID))
	if err != nil {
		return nil, mapError(err)
	}
	return a, nil
}

func (r *auctionRepository) ListClosable(ctx context.Context, now time.Time) ([]domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE status = 'active' AND end_time <= $1 ORDER BY end_time, id`
	logger.DatabaseCall("SELECT", "auctions", "closableBefore", now)
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		logger.DatabaseResult("SELECT", 0, err)
		return nil, err
	}
	defer rows.Close()

	var auctions []domain.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, *a)
	}
	logger.DatabaseResult("SELECT", int64(len(auctions)), rows.Err())
	return auctions, rows.Err()
}

func (r *auctionRepository) UpdateStatus(ctx context.Context, id int32, from, to domain.AuctionStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE auctions SET status = $1 WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return mapError(err)
	}
	return expectOne(res, fmt.Sprintf("auction %d is not %s", id, from))
}

func (r *auctionRepository) ExtendEndTime(ctx context.Context, id int32, endTime time.Time) error {
	query := `UPDATE auctions SET end_time = $1 WHERE id = $2 AND status IN ('scheduled', 'active') AND end_time < $1`
	res, err := r.db.ExecContext(ctx, query, endTime, id)
	if err != nil {
		return err
	}
	return expectOne(res, fmt.Sprintf("auction %d cannot be extended", id))
}

// CreateBid only inserts while the auction is active and still open.
func (r *auctionRepository) CreateBid(ctx context.Context, b *domain.Bid) error {
	logger.EnterMethod("auctionRepository.CreateBid", "auctionID", b.AuctionID, "memberID", b.MemberID, "amount", b.Amount)

	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO bids (auction_id, member_id, amount, created_at)
	          SELECT id, $2, $3, $4 FROM auctions WHERE id = $1 AND status = 'active' AND end_time > $4
	          RETURNING id`
	logger.DatabaseCall("INSERT", "bids", "auctionID", b.AuctionID)
	err := r.db.QueryRowContext(ctx, query, b.AuctionID, b.MemberID, b.Amount, b.CreatedAt).Scan(&b.ID)
	logger.DatabaseResult("INSERT", 1, err, "bidID", b.ID)
	if errors.Is(err, sql.ErrNoRows) {
		err = fmt.Errorf("%w: auction %d is not accepting bids", domain.ErrInvalidState, b.AuctionID)
	}
	if err != nil {
		logger.ExitMethodWithError("auctionRepository.CreateBid", err)
		return err
	}
	logger.ExitMethod("auctionRepository.CreateBid", "bidID", b.ID)
	return nil
}

func (r *auctionRepository) ListBids(ctx context.Context, auctionID int32) ([]domain.Bid, error) {
	query := `SELECT id, auction_id, member_id, amount, created_at FROM bids WHERE auction_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []domain.Bid
	for rows.Next() {
		var b domain.Bid
		if err := rows.Scan(&b.ID, &b.AuctionID, &b.MemberID, &b.Amount, &b.CreatedAt); err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

// Settle runs three guarded updates in one transaction. Each guard matches
// exactly one row for the first resolver; any later resolver matches none and
// the whole transaction rolls back with ErrConflict.
func (r *auctionRepository) Settle(ctx context.Context, s *domain.Settlement) error {
	logger.EnterMethod("auctionRepository.Settle", "auctionID", s.AuctionID, "groupID", s.GroupID, "cycle", s.Cycle, "winnerID", s.WinnerID)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.ExitMethodWithError("auctionRepository.Settle", err, "reason", "begin")
		return err
	}
	defer tx.Rollback()

	logger.DatabaseCall("UPDATE", "auctions", "auctionID", s.AuctionID)
	res, err := tx.ExecContext(ctx,
		`UPDATE auctions SET status = 'completed', winner_id = $1, winning_bid_id = $2, discount = $3, commission = $4, net_payout = $5, resolved_at = NOW()
		 WHERE id = $6 AND status = 'active'`,
		s.WinnerID, s.BidID, s.Discount, s.Commission, s.NetPayout, s.AuctionID)
	if err == nil {
		err = expectOne(res, fmt.Sprintf("auction %d already resolved", s.AuctionID))
	}
	if err != nil {
		err = mapError(err)
		logger.ExitMethodWithError("auctionRepository.Settle", err, "step", "auction")
		return err
	}

	groupStatus := domain.GroupStatusActive
	if s.GroupCompleted {
		groupStatus = domain.GroupStatusCompleted
	}
	logger.DatabaseCall("UPDATE", "chit_groups", "groupID", s.GroupID, "cycle", s.Cycle)
	res, err = tx.ExecContext(ctx,
		`UPDATE chit_groups SET current_cycle = $1, status = $2 WHERE id = $3 AND current_cycle = $4 AND status = 'active'`,
		s.Cycle, groupStatus, s.GroupID, s.Cycle-1)
	if err == nil {
		err = expectOne(res, fmt.Sprintf("group %d already past cycle %d", s.GroupID, s.Cycle-1))
	}
	if err != nil {
		logger.ExitMethodWithError("auctionRepository.Settle", err, "step", "group")
		return err
	}

	logger.DatabaseCall("UPDATE", "memberships", "groupID", s.GroupID, "memberID", s.WinnerID)
	res, err = tx.ExecContext(ctx,
		`UPDATE memberships SET won_cycle = $1 WHERE group_id = $2 AND member_id = $3 AND won_cycle IS NULL`,
		s.Cycle, s.GroupID, s.WinnerID)
	if err == nil {
		err = expectOne(res, fmt.Sprintf("member %d already won in group %d", s.WinnerID, s.GroupID))
	}
	if err != nil {
		logger.ExitMethodWithError("auctionRepository.Settle", err, "step", "membership")
		return err
	}

	if err := tx.Commit(); err != nil {
		logger.ExitMethodWithError("auctionRepository.Settle", err, "reason", "commit")
		return err
	}
	logger.DatabaseResult("SETTLE", 3, nil, "auctionID", s.AuctionID)
	logger.ExitMethod("auctionRepository.Settle", "auctionID", s.AuctionID)
	return nil
}
