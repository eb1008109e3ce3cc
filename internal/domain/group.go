package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type GroupStatus string

const (
	GroupStatusPending   GroupStatus = "pending"
	GroupStatusActive    GroupStatus = "active"
	GroupStatusCompleted GroupStatus = "completed"
	GroupStatusCancelled GroupStatus = "cancelled"
)

func ParseGroupStatus(s string) (GroupStatus, error) {
	switch st := GroupStatus(s); st {
	case GroupStatusPending, GroupStatusActive, GroupStatusCompleted, GroupStatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown group status %q", ErrInvalidInput, s)
}

// CanTransitionTo reports whether the group lifecycle allows moving to next.
// pending -> active -> completed only move forward; cancelled is reachable
// from any state except completed and is terminal.
func (s GroupStatus) CanTransitionTo(next GroupStatus) bool {
	switch s {
	case GroupStatusPending:
		return next == GroupStatusActive || next == GroupStatusCancelled
	case GroupStatusActive:
		return next == GroupStatusCompleted || next == GroupStatusCancelled
	case GroupStatusCompleted, GroupStatusCancelled:
		return false
	}
	return false
}

type ChitGroup struct {
	ID                   int32           `json:"id"`
	BranchID             int32           `json:"branch_id"`
	Name                 string          `json:"name"`
	ChitValue            decimal.Decimal `json:"chit_value"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage"` // 5 means 5%
	Duration             int32           `json:"duration"`
	MaxMembers           int32           `json:"max_members"`
	CurrentCycle         int32           `json:"current_cycle"`
	Status               GroupStatus     `json:"status"`
	StartsOn             time.Time       `json:"starts_on"`
	CreatedAt            time.Time       `json:"created_at"`
}

// MoneyPlaces is the scale of every persisted amount.
const MoneyPlaces = 2

// IsCents reports whether d is representable without rounding at MoneyPlaces.
func IsCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyPlaces))
}

// Commission is the operator fee retained every cycle, rounded to cents so
// the stored settlement still sums to the chit value.
func (g *ChitGroup) Commission() decimal.Decimal {
	return g.ChitValue.Mul(g.CommissionPercentage).Div(decimal.NewFromInt(100)).Round(MoneyPlaces)
}

// Contribution is what each member owes per cycle.
func (g *ChitGroup) Contribution() decimal.Decimal {
	if g.Duration <= 0 {
		return decimal.Zero
	}
	return g.ChitValue.Div(decimal.NewFromInt(int64(g.Duration)))
}

// CycleMonth returns the first day of the calendar month cycle n falls in.
func (g *ChitGroup) CycleMonth(cycle int32) time.Time {
	start := time.Date(g.StartsOn.Year(), g.StartsOn.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start.AddDate(0, int(cycle-1), 0)
}

func (g *ChitGroup) Validate() error {
	if g.CurrentCycle < 0 || g.CurrentCycle > g.Duration {
		return fmt.Errorf("%w: current cycle %d outside [0,%d]", ErrInvalidState, g.CurrentCycle, g.Duration)
	}
	if !g.ChitValue.IsPositive() || !IsCents(g.ChitValue) {
		return fmt.Errorf("%w: chit value must be a positive amount in cents", ErrInvalidInput)
	}
	if g.CommissionPercentage.IsNegative() || g.CommissionPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: commission percentage out of range", ErrInvalidInput)
	}
	return nil
}

type Membership struct {
	GroupID  int32     `json:"group_id"`
	MemberID int32     `json:"member_id"`
	JoinedAt time.Time `json:"joined_at"`
	// WonCycle is set once the member takes the pot; a member wins at most once per group.
	WonCycle *int32 `json:"won_cycle,omitempty"`
}

func (m *Membership) HasWon() bool {
	return m.WonCycle != nil
}
