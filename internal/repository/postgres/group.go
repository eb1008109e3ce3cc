package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chitfund-backend/internal/domain"
	"chitfund-backend/internal/logger"
	"chitfund-backend/internal/repository"
)

type groupRepository struct {
	db *sql.DB
}

func NewGroupRepository(db *sql.DB) repository.GroupRepository {
	return &groupRepository{db: db}
}

const groupColumns = `id, branch_id, name, chit_value, commission_percentage, duration, max_members, current_cycle, status, starts_on, created_at`

func scanGroup(row interface{ Scan(...any) error }) (*domain.ChitGroup, error) {
	g := &domain.ChitGroup{}
	err := row.Scan(&g.ID, &g.BranchID, &g.Name, &g.ChitValue, &g.CommissionPercentage, &g.Duration, &g.MaxMembers, &g.CurrentCycle, &g.Status, &g.StartsOn, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *groupRepository) Create(ctx context.Context, g *domain.ChitGroup) error {
	logger.EnterMethod("groupRepository.Create", "branchID", g.BranchID, "name", g.Name)

	if g.Status == "" {
		g.Status = domain.GroupStatusPending
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO chit_groups (branch_id, name, chit_value, commission_percentage, duration, max_members, current_cycle, status, starts_on, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	logger.DatabaseCall("INSERT", "chit_groups", "branchID", g.BranchID)
	err := r.db.QueryRowContext(ctx, query, g.BranchID, g.Name, g.ChitValue, g.CommissionPercentage, g.Duration, g.MaxMembers, g.CurrentCycle, g.Status, g.StartsOn, g.CreatedAt).Scan(&g.ID)
	logger.DatabaseResult("INSERT", 1, err, "groupID", g.ID)
	if err != nil {
		logger.ExitMethodWithError("groupRepository.Create", err)
		return mapError(err)
	}
	logger.ExitMethod("groupRepository.Create", "groupID", g.ID)
	return nil
}

func (r *groupRepository) GetByID(ctx context.Context, id int32) (*domain.ChitGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM chit_groups WHERE id = $1`
	g, err := scanGroup(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return g, nil
}

func (r *groupRepository) ListByStatus(ctx context.Context, status domain.GroupStatus) ([]domain.ChitGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM chit_groups WHERE status = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []domain.ChitGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *g)
	}
	return groups, rows.Err()
}

func (r *groupRepository) UpdateStatus(ctx context.Context, id int32, from, to domain.GroupStatus) error {
	logger.EnterMethod("groupRepository.UpdateStatus", "groupID", id, "from", from, "to", to)

	query := `UPDATE chit_groups SET status = $1 WHERE id = $2 AND status = $3`
	logger.DatabaseCall("UPDATE", "chit_groups", "groupID", id)
	res, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		logger.ExitMethodWithError("groupRepository.UpdateStatus", err)
		return err
	}
	if err := expectOne(res, fmt.Sprintf("group %d is not %s", id, from)); err != nil {
		logger.ExitMethodWithError("groupRepository.UpdateStatus", err)
		return err
	}
	logger.ExitMethod("groupRepository.UpdateStatus", "groupID", id)
	return nil
}

// AddMember locks the group row so concurrent joins cannot overfill it.
func (r *groupRepository) AddMember(ctx context.Context, m *domain.Membership) error {
	logger.EnterMethod("groupRepository.AddMember", "groupID", m.GroupID, "memberID", m.MemberID)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var maxMembers, count int32
	var status domain.GroupStatus
	err = tx.QueryRowContext(ctx, `SELECT max_members, status FROM chit_groups WHERE id = $1 FOR UPDATE`, m.GroupID).Scan(&maxMembers, &status)
	if err != nil {
		logger.ExitMethodWithError("groupRepository.AddMember", err, "reason", "group lookup")
		return mapError(err)
	}
	if status != domain.GroupStatusPending && status != domain.GroupStatusActive {
		return fmt.Errorf("%w: group %d is %s", domain.ErrInvalidState, m.GroupID, status)
	}
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM memberships WHERE group_id = $1`, m.GroupID).Scan(&count); err != nil {
		return err
	}
	if count >= maxMembers {
		return fmt.Errorf("%w: group %d is full", domain.ErrInvalidState, m.GroupID)
	}

	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
	logger.DatabaseCall("INSERT", "memberships", "groupID", m.GroupID, "memberID", m.MemberID)
	_, err = tx.ExecContext(ctx, `INSERT INTO memberships (group_id, member_id, joined_at) VALUES ($1, $2, $3)`, m.GroupID, m.MemberID, m.JoinedAt)
	logger.DatabaseResult("INSERT", 1, err)
	if err != nil {
		logger.ExitMethodWithError("groupRepository.AddMember", err)
		return mapError(err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	logger.ExitMethod("groupRepository.AddMember", "groupID", m.GroupID, "memberID", m.MemberID)
	return nil
}

func (r *groupRepository) GetMembership(ctx context.Context, groupID, memberID int32) (*domain.Membership, error) {
	query := `SELECT group_id, member_id, joined_at, won_cycle FROM memberships WHERE group_id = $1 AND member_id = $2`
	m, err := scanMembership(r.db.QueryRowContext(ctx, query, groupID, memberID))
	if err != nil {
		return nil, mapError(err)
	}
	return m, nil
}

func (r *groupRepository) ListMembers(ctx context.Context, groupID int32) ([]domain.Membership, error) {
	query := `SELECT group_id, member_id, joined_at, won_cycle FROM memberships WHERE group_id = $1 ORDER BY member_id`
	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func scanMembership(row interface{ Scan(...any) error }) (*domain.Membership, error) {
	m := &domain.Membership{}
	var won sql.NullInt32
	if err := row.Scan(&m.GroupID, &m.MemberID, &m.JoinedAt, &won); err != nil {
		return nil, err
	}
	if won.Valid {
		c := won.Int32
		m.WonCycle = &c
	}
	return m, nil
}
