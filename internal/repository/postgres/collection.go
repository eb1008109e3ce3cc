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

	"github.com/lib/pq"
)

type collectionRepository struct {
	db *sql.DB
}

func NewCollectionRepository(db *sql.DB) repository.CollectionRepository {
	return &collectionRepository{db: db}
}

const collectionColumns = `c.id, c.receipt_no, c.member_id, c.group_id, c.agent_id, c.cycle, c.amount, c.fine, c.due_date, c.payment_date, c.payment_mode, c.status, c.receipt_url, c.created_at`

// scanCollection reads collectionColumns followed by any extra destinations.
func scanCollection(row interface{ Scan(...any) error }, c *domain.Collection, extra ...any) error {
	var agent sql.NullInt32
	var url sql.NullString
	dest := []any{&c.ID, &c.ReceiptNo, &c.MemberID, &c.GroupID, &agent, &c.Cycle, &c.Amount, &c.Fine, &c.DueDate, &c.PaymentDate, &c.PaymentMode, &c.Status, &url, &c.CreatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	c.AgentID = agent.Int32
	c.ReceiptURL = url.String
	return nil
}

func nullableID(id int32) sql.NullInt32 {
	return sql.NullInt32{Int32: id, Valid: id != 0}
}

func (r *collectionRepository) Create(ctx context.Context, c *domain.Collection) (bool, error) {
	logger.EnterMethod("collectionRepository.Create", "receiptNo", c.ReceiptNo, "memberID", c.MemberID, "groupID", c.GroupID, "cycle", c.Cycle)

	if c.Status == "" {
		c.Status = domain.CollectionStatusPending
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO collections (receipt_no, member_id, group_id, agent_id, cycle, amount, fine, due_date, payment_date, payment_mode, status, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	          ON CONFLICT (receipt_no) DO NOTHING RETURNING id`
	logger.DatabaseCall("INSERT", "collections", "receiptNo", c.ReceiptNo)
	err := r.db.QueryRowContext(ctx, query, c.ReceiptNo, c.MemberID, c.GroupID, nullableID(c.AgentID), c.Cycle, c.Amount, c.Fine,
		c.DueDate, c.PaymentDate, c.PaymentMode, c.Status, c.CreatedAt).Scan(&c.ID)
	logger.DatabaseResult("INSERT", 1, err, "collectionID", c.ID)

	if errors.Is(err, sql.ErrNoRows) {
		existing, getErr := r.GetByReceiptNo(ctx, c.ReceiptNo)
		if getErr != nil {
			logger.ExitMethodWithError("collectionRepository.Create", getErr, "reason", "replay lookup")
			return false, getErr
		}
		*c = *existing
		logger.ExitMethod("collectionRepository.Create", "collectionID", c.ID, "replayed", true)
		return false, nil
	}
	if err != nil {
		err = mapError(err)
		logger.ExitMethodWithError("collectionRepository.Create", err)
		return false, err
	}
	logger.ExitMethod("collectionRepository.Create", "collectionID", c.ID)
	return true, nil
}

func (r *collectionRepository) GetByID(ctx context.Context, id int32) (*domain.Collection, error) {
	c := &domain.Collection{}
	if err := scanCollection(r.db.QueryRowContext(ctx, `SELECT `+collectionColumns+` FROM collections c WHERE c.id = $1`, id), c); err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

func (r *collectionRepository) GetByReceiptNo(ctx context.Context, receiptNo string) (*domain.Collection, error) {
	c := &domain.Collection{}
	if err := scanCollection(r.db.QueryRowContext(ctx, `SELECT `+collectionColumns+` FROM collections c WHERE c.receipt_no = $1`, receiptNo), c); err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

func (r *collectionRepository) UpdateStatus(ctx context.Context, id int32, from, to domain.CollectionStatus) error {
	logger.EnterMethod("collectionRepository.UpdateStatus", "collectionID", id, "from", from, "to", to)
	res, err := r.db.ExecContext(ctx, `UPDATE collections SET status = $1 WHERE id = $2 AND status = $3`, to, id, from)
	if err == nil {
		err = expectOne(res, fmt.Sprintf("collection %d is not %s", id, from))
	}
	if err != nil {
		logger.ExitMethodWithError("collectionRepository.UpdateStatus", err)
		return err
	}
	logger.ExitMethod("collectionRepository.UpdateStatus", "collectionID", id)
	return nil
}

func (r *collectionRepository) SetReceiptURL(ctx context.Context, id int32, url string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE collections SET receipt_url = $1 WHERE id = $2`, url, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: collection %d", domain.ErrNotFound, id)
	}
	return nil
}

func (r *collectionRepository) list(ctx context.Context, query string, args ...any) ([]domain.Collection, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Collection
	for rows.Next() {
		var c domain.Collection
		if err := scanCollection(rows, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *collectionRepository) ListByObligation(ctx context.Context, memberID, groupID, cycle int32) ([]domain.Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections c
	          WHERE c.member_id = $1 AND c.group_id = $2 AND c.cycle = $3 ORDER BY c.payment_date, c.id`
	return r.list(ctx, query, memberID, groupID, cycle)
}

func (r *collectionRepository) ListByMember(ctx context.Context, memberID int32) ([]domain.Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections c WHERE c.member_id = $1 ORDER BY c.payment_date, c.id`
	return r.list(ctx, query, memberID)
}

// ListByMembers loads the histories of a batch of members in one round trip.
func (r *collectionRepository) ListByMembers(ctx context.Context, memberIDs []int32) (map[int32][]domain.Collection, error) {
	out := make(map[int32][]domain.Collection, len(memberIDs))
	if len(memberIDs) == 0 {
		return out, nil
	}
	ids := make([]int64, len(memberIDs))
	for i, id := range memberIDs {
		ids[i] = int64(id)
	}
	query := `SELECT ` + collectionColumns + ` FROM collections c
	          WHERE c.member_id = ANY($1) ORDER BY c.member_id, c.payment_date, c.id`
	logger.DatabaseCall("SELECT", "collections", "members", len(memberIDs))
	list, err := r.list(ctx, query, pq.Array(ids))
	logger.DatabaseResult("SELECT", int64(len(list)), err)
	if err != nil {
		return nil, err
	}
	for _, c := range list {
		out[c.MemberID] = append(out[c.MemberID], c)
	}
	return out, nil
}

func (r *collectionRepository) ListMemberIDs(ctx context.Context) ([]int32, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT member_id FROM collections ORDER BY member_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int32
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *collectionRepository) ListFacts(ctx context.Context, scope domain.Scope, period domain.Period) ([]domain.CollectionFact, error) {
	logger.EnterMethod("collectionRepository.ListFacts", "scope", scope.Level, "scopeID", scope.ID)

	query := `SELECT ` + collectionColumns + `, b.id, m.id, m.department_id, u.name, COALESCE(a.name, ''), g.name
	          FROM collections c
	          JOIN chit_groups g ON g.id = c.group_id
	          JOIN branches b ON b.id = g.branch_id
	          JOIN mandals m ON m.id = b.mandal_id
	          JOIN users u ON u.id = c.member_id
	          LEFT JOIN users a ON a.id = c.agent_id
	          WHERE c.status <> 'rejected'`
	var args []interface{}
	query, args = scopeFilter(query, args, scope)
	query, args = periodFilter(query, args, "c.payment_date", period)
	query += ` ORDER BY c.payment_date, c.receipt_no`

	logger.DatabaseCall("SELECT", "collections", "args", len(args))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.DatabaseResult("SELECT", 0, err)
		logger.ExitMethodWithError("collectionRepository.ListFacts", err)
		return nil, err
	}
	defer rows.Close()

	var facts []domain.CollectionFact
	for rows.Next() {
		var f domain.CollectionFact
		if err := scanCollection(rows, &f.Collection, &f.Path.BranchID, &f.Path.MandalID, &f.Path.DepartmentID, &f.MemberName, &f.AgentName, &f.GroupName); err != nil {
			logger.ExitMethodWithError("collectionRepository.ListFacts", err)
			return nil, err
		}
		f.Path.GroupID = f.GroupID
		facts = append(facts, f)
	}
	logger.DatabaseResult("SELECT", int64(len(facts)), rows.Err())
	logger.ExitMethod("collectionRepository.ListFacts", "count", len(facts))
	return facts, rows.Err()
}
