package service

import (
	"context"
	"testing"
	"time"

	"chitfund-backend/internal/domain"
	"chitfund-backend/internal/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCollectionService_RecordCollection(t *testing.T) {
	ctx := context.Background()

	newCollection := func() *domain.Collection {
		return &domain.Collection{
			ReceiptNo:   " RCPT-9 ",
			MemberID:    4,
			GroupID:     7,
			AgentID:     90,
			Cycle:       2,
			Amount:      decimal.NewFromInt(10000),
			Fine:        decimal.NewFromInt(1),
			PaymentDate: time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
			PaymentMode: domain.PaymentModeUPI,
		}
	}

	t.Run("FineComputedFromDueDate", func(t *testing.T) {
		groups := new(MockGroupRepo)
		collections := new(MockCollectionRepo)
		svc := NewCollectionService(groups, collections, 15, utils.DefaultFineSchedule())

		groups.On("GetByID", ctx, int32(7)).Return(activeGroup(), nil).Once()
		groups.On("GetMembership", ctx, int32(7), int32(4)).Return(&domain.Membership{GroupID: 7, MemberID: 4}, nil).Once()
		collections.On("ListByObligation", ctx, int32(4), int32(7), int32(2)).Return([]domain.Collection{
			{ReceiptNo: "RCPT-8", Status: domain.CollectionStatusRejected, Fine: decimal.NewFromInt(500)},
		}, nil).Once()
		collections.On("Create", ctx, mock.MatchedBy(func(c *domain.Collection) bool {
			// cycle 2 of a January group is due 15 Feb; 20 Mar is 34 days late
			return c.ReceiptNo == "RCPT-9" &&
				c.DueDate.Equal(time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)) &&
				c.Fine.Equal(decimal.NewFromInt(500)) &&
				c.Status == domain.CollectionStatusPending
		})).Return(true, nil).Once()

		created, err := svc.RecordCollection(ctx, newCollection())
		require.NoError(t, err)
		assert.True(t, created)
		collections.AssertExpectations(t)
	})

	t.Run("SecondInstalmentCarriesNoFine", func(t *testing.T) {
		groups := new(MockGroupRepo)
		collections := new(MockCollectionRepo)
		svc := NewCollectionService(groups, collections, 15, utils.DefaultFineSchedule())

		groups.On("GetByID", ctx, int32(7)).Return(activeGroup(), nil).Once()
		groups.On("GetMembership", ctx, int32(7), int32(4)).Return(&domain.Membership{GroupID: 7, MemberID: 4}, nil).Once()
		collections.On("ListByObligation", ctx, int32(4), int32(7), int32(2)).Return([]domain.Collection{
			{ReceiptNo: "RCPT-8", Status: domain.CollectionStatusPending, Fine: decimal.NewFromInt(500)},
		}, nil).Once()
		collections.On("Create", ctx, mock.MatchedBy(func(c *domain.Collection) bool {
			return c.ReceiptNo == "RCPT-9" && c.Fine.IsZero()
		})).Return(true, nil).Once()

		_, err := svc.RecordCollection(ctx, newCollection())
		require.NoError(t, err)
		collections.AssertExpectations(t)
	})

	t.Run("PendingGroup", func(t *testing.T) {
		groups := new(MockGroupRepo)
		svc := NewCollectionService(groups, new(MockCollectionRepo), 15, utils.DefaultFineSchedule())
		g := activeGroup()
		g.Status = domain.GroupStatusPending
		groups.On("GetByID", ctx, int32(7)).Return(g, nil).Once()

		_, err := svc.RecordCollection(ctx, newCollection())
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("NotAMember", func(t *testing.T) {
		groups := new(MockGroupRepo)
		collections := new(MockCollectionRepo)
		svc := NewCollectionService(groups, collections, 15, utils.DefaultFineSchedule())
		groups.On("GetByID", ctx, int32(7)).Return(activeGroup(), nil).Once()
		groups.On("GetMembership", ctx, int32(7), int32(4)).Return(nil, domain.ErrNotFound).Once()

		_, err := svc.RecordCollection(ctx, newCollection())
		assert.ErrorIs(t, err, domain.ErrNotFound)
		collections.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Validation", func(t *testing.T) {
		svc := NewCollectionService(new(MockGroupRepo), new(MockCollectionRepo), 15, utils.DefaultFineSchedule())
		cases := map[string]func(c *domain.Collection){
			"NoReceipt":   func(c *domain.Collection) { c.ReceiptNo = "  " },
			"ZeroAmount":  func(c *domain.Collection) { c.Amount = decimal.Zero },
			"UnknownMode": func(c *domain.Collection) { c.PaymentMode = "barter" },
			"NoDate":      func(c *domain.Collection) { c.PaymentDate = time.Time{} },
		}
		for name, mutate := range cases {
			t.Run(name, func(t *testing.T) {
				c := newCollection()
				mutate(c)
				_, err := svc.RecordCollection(ctx, c)
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
			})
		}
	})

	t.Run("CycleOutOfRange", func(t *testing.T) {
		groups := new(MockGroupRepo)
		svc := NewCollectionService(groups, new(MockCollectionRepo), 15, utils.DefaultFineSchedule())
		groups.On("GetByID", ctx, int32(7)).Return(activeGroup(), nil).Once()
		c := newCollection()
		c.Cycle = 11

		_, err := svc.RecordCollection(ctx, c)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestCollectionService_Decide(t *testing.T) {
	ctx := context.Background()

	t.Run("Approve", func(t *testing.T) {
		collections := new(MockCollectionRepo)
		svc := NewCollectionService(nil, collections, 15, utils.DefaultFineSchedule())
		collections.On("GetByID", ctx, int32(31)).Return(&domain.Collection{ID: 31, Status: domain.CollectionStatusPending}, nil).Once()
		collections.On("UpdateStatus", ctx, int32(31), domain.CollectionStatusPending, domain.CollectionStatusApproved).Return(nil).Once()

		c, err := svc.ApproveCollection(ctx, 31)
		require.NoError(t, err)
		assert.Equal(t, domain.CollectionStatusApproved, c.Status)
	})

	t.Run("ApprovedIsImmutable", func(t *testing.T) {
		collections := new(MockCollectionRepo)
		svc := NewCollectionService(nil, collections, 15, utils.DefaultFineSchedule())
		collections.On("GetByID", ctx, int32(31)).Return(&domain.Collection{ID: 31, Status: domain.CollectionStatusApproved}, nil).Once()

		_, err := svc.RejectCollection(ctx, 31)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
		collections.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("LostRace", func(t *testing.T) {
		collections := new(MockCollectionRepo)
		svc := NewCollectionService(nil, collections, 15, utils.DefaultFineSchedule())
		collections.On("GetByID", ctx, int32(31)).Return(&domain.Collection{ID: 31, Status: domain.CollectionStatusPending}, nil).Once()
		collections.On("UpdateStatus", ctx, int32(31), domain.CollectionStatusPending, domain.CollectionStatusRejected).Return(domain.ErrConflict).Once()

		_, err := svc.RejectCollection(ctx, 31)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})
}

func TestCollectionService_Reconcile(t *testing.T) {
	ctx := context.Background()
	groups := new(MockGroupRepo)
	collections := new(MockCollectionRepo)
	svc := NewCollectionService(groups, collections, 15, utils.DefaultFineSchedule())
	asOf := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	groups.On("GetByID", ctx, int32(7)).Return(activeGroup(), nil)
	collections.On("ListByObligation", ctx, int32(4), int32(7), int32(1)).Return([]domain.Collection{
		{ID: 1, MemberID: 4, GroupID: 7, Cycle: 1, Amount: decimal.NewFromInt(10000), PaymentDate: asOf.AddDate(0, 0, -2), Status: domain.CollectionStatusPending},
	}, nil)

	rec, err := svc.Reconcile(ctx, 4, 7, 1, asOf)
	require.NoError(t, err)
	assert.Equal(t, domain.ObligationOverdue, rec.Status, "a pending collection does not satisfy the obligation")
	assert.Equal(t, 16, rec.DaysLate)
	assert.True(t, rec.Fine.Equal(decimal.NewFromInt(250)))

	_, err = svc.Reconcile(ctx, 4, 7, 0, asOf)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCalendarCycle(t *testing.T) {
	g := activeGroup()
	assert.Equal(t, int32(0), CalendarCycle(g, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, int32(1), CalendarCycle(g, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, int32(3), CalendarCycle(g, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, g.Duration, CalendarCycle(g, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
}
