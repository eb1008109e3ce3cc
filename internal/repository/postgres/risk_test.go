package postgres_test

import (
	"context"
	"testing"
	"time"

	"chitfund-backend/internal/domain"
	"chitfund-backend/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestRiskRepository_RecordTier(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewRiskRepository(db)
	ctx := context.Background()

	expectLock := func(previous string) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO member_risk (.+) ON CONFLICT \\(member_id\\) DO NOTHING").
			WithArgs(int32(2)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT tier FROM member_risk WHERE member_id = \\$1 FOR UPDATE").
			WithArgs(int32(2)).
			WillReturnRows(sqlmock.NewRows([]string{"tier"}).AddRow(previous))
	}

	t.Run("NormalToHighFlags", func(t *testing.T) {
		expectLock("normal")
		mock.ExpectExec("UPDATE member_risk SET tier").
			WithArgs("high", int32(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO risk_flags").
			WithArgs("user", int32(2), domain.RiskFlagReasonHigh, "open", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
		mock.ExpectCommit()

		flag := &domain.RiskFlag{SubjectType: domain.SubjectUser, SubjectID: 2, Reason: domain.RiskFlagReasonHigh}
		prev, flagged, err := repo.RecordTier(ctx, 2, domain.RiskTierHigh, flag)
		assert.NoError(t, err)
		assert.Equal(t, domain.RiskTierNormal, prev)
		assert.True(t, flagged)
		assert.Equal(t, int32(4), flag.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("StillHighDoesNotFlag", func(t *testing.T) {
		expectLock("high")
		mock.ExpectExec("UPDATE member_risk SET tier").
			WithArgs("high", int32(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		flag := &domain.RiskFlag{SubjectType: domain.SubjectUser, SubjectID: 2, Reason: domain.RiskFlagReasonHigh}
		prev, flagged, err := repo.RecordTier(ctx, 2, domain.RiskTierHigh, flag)
		assert.NoError(t, err)
		assert.Equal(t, domain.RiskTierHigh, prev)
		assert.False(t, flagged)
		assert.Zero(t, flag.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRiskRepository_ResolveFlag(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewRiskRepository(db)
	at := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("UPDATE risk_flags SET status = 'resolved'").
			WithArgs(at, int32(4)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, repo.ResolveFlag(context.Background(), 4, at))
	})

	t.Run("AlreadyResolved", func(t *testing.T) {
		mock.ExpectExec("UPDATE risk_flags SET status = 'resolved'").
			WithArgs(at, int32(4)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, repo.ResolveFlag(context.Background(), 4, at), domain.ErrConflict)
	})
}

func TestRiskRepository_GetTier(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewRiskRepository(db)

	mock.ExpectQuery("SELECT tier FROM member_risk").
		WithArgs(int32(77)).
		WillReturnRows(sqlmock.NewRows([]string{"tier"}))

	tier, err := repo.GetTier(context.Background(), 77)
	assert.NoError(t, err)
	assert.Equal(t, domain.RiskTierNormal, tier)
}
