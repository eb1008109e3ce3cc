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

type loanRepository struct {
	db *sql.DB
}

func NewLoanRepository(db *sql.DB) repository.LoanRepository {
	return &loanRepository{db: db}
}

const loanColumns = `id, member_id, group_id, amount, status, requested_on, updated_at`

func scanLoan(row interface{ Scan(...any) error }) (*domain.Loan, error) {
	l := &domain.Loan{}
	if err := row.Scan(&l.ID, &l.MemberID, &l.GroupID, &l.Amount, &l.Status, &l.RequestedOn, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return l, nil
}

func (r *loanRepository) Create(ctx context.Context, l *domain.Loan) error {
	logger.EnterMethod("loanRepository.Create", "memberID", l.MemberID, "groupID", l.GroupID, "amount", l.Amount)

	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = l.RequestedOn
	}
	query := `INSERT INTO loans (member_id, group_id, amount, status, requested_on, updated_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	logger.DatabaseCall("INSERT", "loans", "memberID", l.MemberID)
	err := r.db.QueryRowContext(ctx, query, l.MemberID, l.GroupID, l.Amount, l.Status, l.RequestedOn, l.UpdatedAt).Scan(&l.ID)
	logger.DatabaseResult("INSERT", 1, err, "loanID", l.ID)
	if err != nil {
		logger.ExitMethodWithError("loanRepository.Create", err)
		return mapError(err)
	}
	logger.ExitMethod("loanRepository.Create", "loanID", l.ID)
	return nil
}

func (r *loanRepository) CreateGated(ctx context.Context, l *domain.Loan, gate repository.LoanGate) (string, error) {
	logger.EnterMethod("loanRepository.CreateGated", "memberID", l.MemberID, "groupID", l.GroupID)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM memberships WHERE group_id = $1 AND member_id = $2 FOR UPDATE`, l.GroupID, l.MemberID).Scan(&one)
	if err != nil {
		logger.ExitMethodWithError("loanRepository.CreateGated", err, "reason", "membership lock")
		return "", mapError(err)
	}

	query := `SELECT ` + loanColumns + ` FROM loans WHERE member_id = $1 AND group_id = $2 ORDER BY requested_on DESC, id DESC LIMIT 1`
	latest, err := scanLoan(tx.QueryRowContext(ctx, query, l.MemberID, l.GroupID))
	if err != nil && err != sql.ErrNoRows {
		logger.ExitMethodWithError("loanRepository.CreateGated", err, "reason", "latest loan")
		return "", err
	}
	if reason := gate(latest); reason != "" {
		logger.ExitMethod("loanRepository.CreateGated", "refused", reason)
		return reason, nil
	}

	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = l.RequestedOn
	}
	logger.DatabaseCall("INSERT", "loans", "memberID", l.MemberID)
	err = tx.QueryRowContext(ctx, `INSERT INTO loans (member_id, group_id, amount, status, requested_on, updated_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		l.MemberID, l.GroupID, l.Amount, l.Status, l.RequestedOn, l.UpdatedAt).Scan(&l.ID)
	logger.DatabaseResult("INSERT", 1, err, "loanID", l.ID)
	if err != nil {
		logger.ExitMethodWithError("loanRepository.CreateGated", err)
		return "", mapError(err)
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	logger.ExitMethod("loanRepository.CreateGated", "loanID", l.ID)
	return "", nil
}

func (r *loanRepository) GetByID(ctx context.Context, id int32) (*domain.Loan, error) {
	l, err := scanLoan(r.db.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return l, nil
}

func (r *loanRepository) GetLatest(ctx context.Context, memberID, groupID int32) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE member_id = $1 AND group_id = $2 ORDER BY requested_on DESC, id DESC LIMIT 1`
	l, err := scanLoan(r.db.QueryRowContext(ctx, query, memberID, groupID))
	if err != nil {
		return nil, mapError(err)
	}
	return l, nil
}

func (r *loanRepository) UpdateStatus(ctx context.Context, id int32, from, to domain.LoanStatus) error {
	logger.EnterMethod("loanRepository.UpdateStatus", "loanID", id, "from", from, "to", to)
	res, err := r.db.ExecContext(ctx, `UPDATE loans SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`, to, time.Now().UTC(), id, from)
	if err == nil {
		err = expectOne(res, fmt.Sprintf("loan %d is not %s", id, from))
	}
	if err != nil {
		logger.ExitMethodWithError("loanRepository.UpdateStatus", err)
		return err
	}
	logger.ExitMethod("loanRepository.UpdateStatus", "loanID", id)
	return nil
}

// CreateRepayment only accepts repayments against a disbursed loan.
func (r *loanRepository) CreateRepayment(ctx context.Context, rp *domain.LoanRepayment) error {
	if rp.Status == "" {
		rp.Status = domain.CollectionStatusPending
	}
	query := `INSERT INTO loan_repayments (loan_id, amount, payment_date, status)
	          SELECT id, $2, $3, $4 FROM loans WHERE id = $1 AND status = 'disbursed'
	          RETURNING id`
	logger.DatabaseCall("INSERT", "loan_repayments", "loanID", rp.LoanID)
	err := r.db.QueryRowContext(ctx, query, rp.LoanID, rp.Amount, rp.PaymentDate, rp.Status).Scan(&rp.ID)
	logger.DatabaseResult("INSERT", 1, err, "repaymentID", rp.ID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: loan %d is not disbursed", domain.ErrInvalidState, rp.LoanID)
	}
	return err
}

func (r *loanRepository) ListFacts(ctx context.Context, scope domain.Scope, period domain.Period) ([]domain.LoanFact, error) {
	query := `SELECT l.id, l.member_id, g.id, b.id, m.id, m.department_id, l.requested_on
	          FROM loans l
	          JOIN chit_groups g ON g.id = l.group_id
	          JOIN branches b ON b.id = g.branch_id
	          JOIN mandals m ON m.id = b.mandal_id
	          WHERE 1 = 1`
	var args []interface{}
	query, args = scopeFilter(query, args, scope)
	query, args = periodFilter(query, args, "l.requested_on", period)
	query += ` ORDER BY l.requested_on, l.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facts []domain.LoanFact
	for rows.Next() {
		var f domain.LoanFact
		if err := rows.Scan(&f.LoanID, &f.MemberID, &f.Path.GroupID, &f.Path.BranchID, &f.Path.MandalID, &f.Path.DepartmentID, &f.RequestedOn); err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}
