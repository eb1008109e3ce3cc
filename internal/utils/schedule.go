package utils

import (
	"fmt"
	"sort"
	"time"

	"chitfund-backend/internal/domain"

	"github.com/shopspring/decimal"
)

// DefaultDueDay is the day of the cycle's calendar month a contribution is due on.
// A payment dated after this day is late.
const DefaultDueDay = 15

// FineTier charges Amount once a payment is at least MinDaysLate days late.
type FineTier struct {
	MinDaysLate int
	Amount      decimal.Decimal
}

// FineSchedule maps days late to a flat fine. Tiers are kept sorted by
// MinDaysLate and amounts never decrease, so the fine is monotonic in lateness.
type FineSchedule struct {
	GraceDays int
	Tiers     []FineTier
}

// NewFineSchedule validates and sorts the tiers.
func NewFineSchedule(graceDays int, tiers []FineTier) (FineSchedule, error) {
	if graceDays < 0 {
		return FineSchedule{}, fmt.Errorf("grace days must be >= 0")
	}
	sorted := make([]FineTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinDaysLate < sorted[j].MinDaysLate })

	for i, tier := range sorted {
		if tier.MinDaysLate < 1 {
			return FineSchedule{}, fmt.Errorf("tier %d: min days late must be >= 1", i)
		}
		if tier.Amount.IsNegative() {
			return FineSchedule{}, fmt.Errorf("tier %d: amount must be >= 0", i)
		}
		if i > 0 {
			if sorted[i-1].MinDaysLate == tier.MinDaysLate {
				return FineSchedule{}, fmt.Errorf("duplicate tier for %d days", tier.MinDaysLate)
			}
			if tier.Amount.LessThan(sorted[i-1].Amount) {
				return FineSchedule{}, fmt.Errorf("tier %d: amount decreases with lateness", i)
			}
		}
	}
	return FineSchedule{GraceDays: graceDays, Tiers: sorted}, nil
}

// DefaultFineSchedule is a flat fee for any late payment with steps at 15 and 30 days.
func DefaultFineSchedule() FineSchedule {
	return FineSchedule{
		Tiers: []FineTier{
			{MinDaysLate: 1, Amount: decimal.NewFromInt(100)},
			{MinDaysLate: 15, Amount: decimal.NewFromInt(250)},
			{MinDaysLate: 30, Amount: decimal.NewFromInt(500)},
		},
	}
}

// Fine returns the fine owed for a payment daysLate days after the due date.
func (s FineSchedule) Fine(daysLate int) decimal.Decimal {
	if daysLate <= s.GraceDays {
		return decimal.Zero
	}
	fine := decimal.Zero
	for _, tier := range s.Tiers {
		if daysLate < tier.MinDaysLate {
			break
		}
		fine = tier.Amount
	}
	return fine
}

// DaysInMonth returns the number of days in a given month
func DaysInMonth(year, month int) int {
	if month == 2 {
		if (year%4 == 0 && year%100 != 0) || (year%400 == 0) {
			return 29
		}
		return 28
	}
	if month == 4 || month == 6 || month == 9 || month == 11 {
		return 30
	}
	return 31
}

// DueDate returns the date a cycle's contribution falls due. dueDay is clamped
// to the length of the month.
func DueDate(group *domain.ChitGroup, cycle int32, dueDay int) time.Time {
	month := group.CycleMonth(cycle)
	day := dueDay
	if last := DaysInMonth(month.Year(), int(month.Month())); day > last {
		day = last
	}
	return time.Date(month.Year(), month.Month(), day, 0, 0, 0, 0, time.UTC)
}

// DaysLate counts whole calendar days between the due date and the given
// date. Anything on or before the due date is 0.
func DaysLate(due, at time.Time) int {
	d := truncateDay(due)
	a := truncateDay(at)
	if !a.After(d) {
		return 0
	}
	return int(a.Sub(d).Hours() / 24)
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Reconcile derives the state of a member's obligation for one cycle from
// the collections recorded against it. It reads nothing but its arguments,
// so repeated calls with the same inputs give the same fine.
func Reconcile(group *domain.ChitGroup, memberID, cycle int32, asOf time.Time, collections []domain.Collection, dueDay int, schedule FineSchedule) domain.Reconciliation {
	due := DueDate(group, cycle, dueDay)
	rec := domain.Reconciliation{
		MemberID: memberID,
		GroupID:  group.ID,
		Cycle:    cycle,
		DueDate:  due,
		AsOf:     asOf,
		Status:   domain.ObligationPending,
		Fine:     decimal.Zero,
	}

	var paid *domain.Collection
	for i := range collections {
		c := &collections[i]
		if c.MemberID != memberID || c.GroupID != group.ID || c.Cycle != cycle {
			continue
		}
		if c.Status != domain.CollectionStatusApproved || truncateDay(c.PaymentDate).After(truncateDay(asOf)) {
			continue
		}
		if paid == nil || c.PaymentDate.Before(paid.PaymentDate) ||
			(c.PaymentDate.Equal(paid.PaymentDate) && c.ID < paid.ID) {
			paid = c
		}
	}

	if paid != nil {
		rec.Status = domain.ObligationPaid
		rec.DaysLate = DaysLate(due, paid.PaymentDate)
		rec.Fine = paid.Fine
		return rec
	}

	if days := DaysLate(due, asOf); days > 0 {
		rec.Status = domain.ObligationOverdue
		rec.DaysLate = days
		rec.Fine = schedule.Fine(days)
	}
	return rec
}
