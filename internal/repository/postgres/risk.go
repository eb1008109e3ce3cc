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

type riskRepository struct {
	db *sql.DB
}

func NewRiskRepository(db *sql.DB) repository.RiskRepository {
	return &riskRepository{db: db}
}

// GetTier returns normal for members that were never scored.
func (r *riskRepository) GetTier(ctx context.Context, memberID int32) (domain.RiskTier, error) {
	var tier domain.RiskTier
	err := r.db.QueryRowContext(ctx, `SELECT tier FROM member_risk WHERE member_id = $1`, memberID).Scan(&tier)
	if err == sql.ErrNoRows {
		return domain.RiskTierNormal, nil
	}
	if err != nil {
		return "", err
	}
	return tier, nil
}

// RecordTier serialises scorers of the same member on the member_risk row so
// only one of them sees the normal -> high transition.
func (r *riskRepository) RecordTier(ctx context.Context, memberID int32, tier domain.RiskTier, flag *domain.RiskFlag) (domain.RiskTier, bool, error) {
	logger.EnterMethod("riskRepository.RecordTier", "memberID", memberID, "tier", tier)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO member_risk (member_id, tier, scored_at) VALUES ($1, 'normal', NOW()) ON CONFLICT (member_id) DO NOTHING`,
		memberID); err != nil {
		logger.ExitMethodWithError("riskRepository.RecordTier", err, "step", "seed")
		return "", false, err
	}

	var previous domain.RiskTier
	if err := tx.QueryRowContext(ctx, `SELECT tier FROM member_risk WHERE member_id = $1 FOR UPDATE`, memberID).Scan(&previous); err != nil {
		logger.ExitMethodWithError("riskRepository.RecordTier", err, "step", "lock")
		return "", false, err
	}

	logger.DatabaseCall("UPDATE", "member_risk", "memberID", memberID, "tier", tier)
	if _, err := tx.ExecContext(ctx, `UPDATE member_risk SET tier = $1, scored_at = NOW() WHERE member_id = $2`, tier, memberID); err != nil {
		logger.ExitMethodWithError("riskRepository.RecordTier", err, "step", "update")
		return "", false, err
	}

	flagged := false
	if previous == domain.RiskTierNormal && tier == domain.RiskTierHigh && flag != nil {
		if err := insertFlag(ctx, tx, flag); err != nil {
			logger.ExitMethodWithError("riskRepository.RecordTier", err, "step", "flag")
			return "", false, err
		}
		flagged = true
	}

	if err := tx.Commit(); err != nil {
		return "", false, err
	}
	logger.ExitMethod("riskRepository.RecordTier", "memberID", memberID, "previous", previous, "flagged", flagged)
	return previous, flagged, nil
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertFlag(ctx context.Context, q rowQuerier, flag *domain.RiskFlag) error {
	if flag.Status == "" {
		flag.Status = domain.FlagStatusOpen
	}
	if flag.CreatedAt.IsZero() {
		flag.CreatedAt = time.Now().UTC()
	}
	logger.DatabaseCall("INSERT", "risk_flags", "subjectType", flag.SubjectType, "subjectID", flag.SubjectID)
	err := q.QueryRowContext(ctx,
		`INSERT INTO risk_flags (subject_type, subject_id, reason, status, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		flag.SubjectType, flag.SubjectID, flag.Reason, flag.Status, flag.CreatedAt).Scan(&flag.ID)
	logger.DatabaseResult("INSERT", 1, err, "flagID", flag.ID)
	return err
}

func (r *riskRepository) CreateFlag(ctx context.Context, flag *domain.RiskFlag) error {
	return insertFlag(ctx, r.db, flag)
}

func (r *riskRepository) ResolveFlag(ctx context.Context, id int32, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE risk_flags SET status = 'resolved', resolved_at = $1 WHERE id = $2 AND status = 'open'`, at, id)
	if err != nil {
		return err
	}
	return expectOne(res, fmt.Sprintf("flag %d is not open", id))
}

func (r *riskRepository) ListFlags(ctx context.Context, subject domain.SubjectType, subjectID int32) ([]domain.RiskFlag, error) {
	query := `SELECT id, subject_type, subject_id, reason, status, created_at, resolved_at
	          FROM risk_flags WHERE subject_type = $1 AND subject_id = $2 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, subject, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flags []domain.RiskFlag
	for rows.Next() {
		var f domain.RiskFlag
		var resolved sql.NullTime
		if err := rows.Scan(&f.ID, &f.SubjectType, &f.SubjectID, &f.Reason, &f.Status, &f.CreatedAt, &resolved); err != nil {
			return nil, err
		}
		if resolved.Valid {
			t := resolved.Time
			f.ResolvedAt = &t
		}
		flags = append(flags, f)
	}
	return flags, rows.Err()
}

// ListHighRiskMembers returns one ref per group a high-tier member sits in.
func (r *riskRepository) ListHighRiskMembers(ctx context.Context, scope domain.Scope) ([]domain.MemberRef, error) {
	query := `SELECT mr.member_id, g.id, b.id, m.id, m.department_id
	          FROM member_risk mr
	          JOIN memberships ms ON ms.member_id = mr.member_id
	          JOIN chit_groups g ON g.id = ms.group_id
	          JOIN branches b ON b.id = g.branch_id
	          JOIN mandals m ON m.id = b.mandal_id
	          WHERE mr.tier = 'high'`
	var args []interface{}
	query, args = scopeFilter(query, args, scope)
	query += ` ORDER BY mr.member_id, g.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []domain.MemberRef
	for rows.Next() {
		var ref domain.MemberRef
		if err := rows.Scan(&ref.MemberID, &ref.Path.GroupID, &ref.Path.BranchID, &ref.Path.MandalID, &ref.Path.DepartmentID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
