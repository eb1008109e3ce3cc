package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"chitfund-backend/internal/domain"
	"chitfund-backend/internal/logger"
	"chitfund-backend/internal/repository"

	"github.com/lib/pq"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
	repository.GroupRepository
	repository.AuctionRepository
	repository.CollectionRepository
	repository.LoanRepository
	repository.RiskRepository
	repository.NotificationRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                     db,
		GroupRepository:        NewGroupRepository(db),
		AuctionRepository:      NewAuctionRepository(db),
		CollectionRepository:   NewCollectionRepository(db),
		LoanRepository:         NewLoanRepository(db),
		RiskRepository:         NewRiskRepository(db),
		NotificationRepository: NewNotificationRepository(db),
	}
}

// Migrate creates the tables the engine needs if they are missing.
func (s *Store) Migrate(ctx context.Context) error {
	logger.DatabaseCall("MIGRATE", "schema.sql")
	_, err := s.db.ExecContext(ctx, schema)
	logger.DatabaseResult("MIGRATE", 0, err)
	if err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// mapError converts driver errors into domain errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", domain.ErrConflict, pqErr.Constraint)
	}
	return err
}

// expectOne turns a zero-row conditional update into ErrConflict.
func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrConflict, what)
	}
	return nil
}

// scopeFilter appends the WHERE clause for a rollup scope. Columns are the
// aliases used by the fact queries.
func scopeFilter(query string, args []interface{}, scope domain.Scope) (string, []interface{}) {
	col := ""
	switch scope.Level {
	case domain.ScopeBranch:
		col = "b.id"
	case domain.ScopeMandal:
		col = "m.id"
	case domain.ScopeDepartment:
		col = "m.department_id"
	default:
		return query, args
	}
	args = append(args, scope.ID)
	return query + fmt.Sprintf(" AND %s = $%d", col, len(args)), args
}

func periodFilter(query string, args []interface{}, column string, period domain.Period) (string, []interface{}) {
	if period.From != nil {
		args = append(args, *period.From)
		query += fmt.Sprintf(" AND %s >= $%d", column, len(args))
	}
	if period.To != nil {
		args = append(args, *period.To)
		query += fmt.Sprintf(" AND %s <= $%d", column, len(args))
	}
	return query, args
}
