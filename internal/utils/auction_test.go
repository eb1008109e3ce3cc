package utils

import (
	"testing"
	"time"

	"chitfund-backend/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectWinningBid(t *testing.T) {
	base := time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)

	t.Run("Highest discount wins, earliest among ties", func(t *testing.T) {
		bids := []domain.Bid{
			{ID: 1, MemberID: 1, Amount: decimal.NewFromInt(500), CreatedAt: base},
			{ID: 2, MemberID: 2, Amount: decimal.NewFromInt(800), CreatedAt: base.Add(time.Minute)},
			{ID: 3, MemberID: 3, Amount: decimal.NewFromInt(800), CreatedAt: base.Add(2 * time.Minute)},
		}
		win, err := SelectWinningBid(bids)
		require.NoError(t, err)
		assert.Equal(t, int32(2), win.MemberID)
	})

	t.Run("Input order does not matter", func(t *testing.T) {
		bids := []domain.Bid{
			{ID: 3, MemberID: 3, Amount: decimal.NewFromInt(800), CreatedAt: base.Add(2 * time.Minute)},
			{ID: 2, MemberID: 2, Amount: decimal.NewFromInt(800), CreatedAt: base.Add(time.Minute)},
			{ID: 1, MemberID: 1, Amount: decimal.NewFromInt(500), CreatedAt: base},
		}
		win, err := SelectWinningBid(bids)
		require.NoError(t, err)
		assert.Equal(t, int32(2), win.MemberID)
	})

	t.Run("Same timestamp falls back to lowest id", func(t *testing.T) {
		bids := []domain.Bid{
			{ID: 9, MemberID: 4, Amount: decimal.NewFromInt(800), CreatedAt: base},
			{ID: 5, MemberID: 5, Amount: decimal.NewFromInt(800), CreatedAt: base},
		}
		win, err := SelectWinningBid(bids)
		require.NoError(t, err)
		assert.Equal(t, int32(5), win.MemberID)
	})

	t.Run("No bids means no winner", func(t *testing.T) {
		_, err := SelectWinningBid(nil)
		assert.ErrorIs(t, err, domain.ErrNoWinner)
	})
}

func TestComputeSettlement(t *testing.T) {
	g := testGroup()
	auction := &domain.Auction{ID: 11, GroupID: g.ID, Cycle: 1}

	t.Run("Pool is conserved", func(t *testing.T) {
		for _, discount := range []int64{0, 1, 3000, 12345, 95000} {
			bid := &domain.Bid{ID: 1, MemberID: 2, Amount: decimal.NewFromInt(discount)}
			s, err := ComputeSettlement(g, auction, bid)
			require.NoError(t, err)
			total := s.NetPayout.Add(s.Commission).Add(s.Discount)
			assert.True(t, total.Equal(g.ChitValue), "discount %d leaks: %s", discount, total)
		}
	})

	t.Run("Fractional commission keeps exact sums", func(t *testing.T) {
		odd := testGroup()
		odd.ChitValue = decimal.RequireFromString("33333.33")
		odd.CommissionPercentage = decimal.RequireFromString("4.5")
		bid := &domain.Bid{ID: 1, MemberID: 2, Amount: decimal.RequireFromString("1000.10")}
		s, err := ComputeSettlement(odd, auction, bid)
		require.NoError(t, err)
		assert.True(t, s.NetPayout.Add(s.Commission).Add(s.Discount).Equal(odd.ChitValue))
		assert.True(t, domain.IsCents(s.Commission))
		assert.True(t, domain.IsCents(s.NetPayout))
	})

	t.Run("Half-cent commission rounds before the remainder", func(t *testing.T) {
		odd := testGroup()
		odd.ChitValue = decimal.NewFromInt(100001)
		odd.CommissionPercentage = decimal.RequireFromString("2.5")
		s, err := ComputeSettlement(odd, auction, &domain.Bid{ID: 1, MemberID: 2, Amount: decimal.NewFromInt(1000)})
		require.NoError(t, err)
		assert.True(t, s.Commission.Equal(decimal.RequireFromString("2500.03")))
		assert.True(t, s.NetPayout.Equal(decimal.RequireFromString("96500.97")))
		// what the NUMERIC(14,2) columns store is what was computed
		assert.True(t, s.Commission.Round(domain.MoneyPlaces).Add(s.NetPayout.Round(domain.MoneyPlaces)).Add(s.Discount).Equal(odd.ChitValue))
	})

	t.Run("Reference figures", func(t *testing.T) {
		bid := &domain.Bid{ID: 1, MemberID: 2, Amount: decimal.NewFromInt(3000)}
		s, err := ComputeSettlement(g, auction, bid)
		require.NoError(t, err)
		assert.True(t, s.Commission.Equal(decimal.NewFromInt(5000)))
		assert.True(t, s.NetPayout.Equal(decimal.NewFromInt(92000)))
		assert.False(t, s.GroupCompleted)
	})

	t.Run("Last cycle completes the group", func(t *testing.T) {
		last := &domain.Auction{ID: 12, GroupID: g.ID, Cycle: g.Duration}
		s, err := ComputeSettlement(g, last, &domain.Bid{Amount: decimal.NewFromInt(10)})
		require.NoError(t, err)
		assert.True(t, s.GroupCompleted)
	})

	t.Run("Discount beyond the pool is rejected", func(t *testing.T) {
		bid := &domain.Bid{Amount: decimal.NewFromInt(95001)}
		_, err := ComputeSettlement(g, auction, bid)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
