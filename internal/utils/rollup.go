package utils

import (
	"context"
	"sort"
	"time"

	"chitfund-backend/internal/domain"

	"github.com/shopspring/decimal"
)

// LeaderboardSize caps both leaderboards.
const LeaderboardSize = 10

// how often the folds check for cancellation
const cancelCheckEvery = 1024

// RollupInput is everything a rollup reads. Facts outside the scope or
// period are dropped before folding.
type RollupInput struct {
	Scope       domain.Scope
	Period      domain.Period
	AsOf        time.Time
	Collections []domain.CollectionFact
	Loans       []domain.LoanFact
	HighRisk    []domain.MemberRef
}

// LevelKey selects the node a fact rolls into at one level of the hierarchy.
type LevelKey func(domain.OrgPath) int32

var (
	BranchKey     LevelKey = func(p domain.OrgPath) int32 { return p.BranchID }
	MandalKey     LevelKey = func(p domain.OrgPath) int32 { return p.MandalID }
	DepartmentKey LevelKey = func(p domain.OrgPath) int32 { return p.DepartmentID }
	allKey        LevelKey = func(domain.OrgPath) int32 { return 0 }
)

type accumulator struct {
	totals domain.RollupTotals
	users  map[int32]struct{}
	agents map[int32]struct{}
	risky  map[int32]struct{}
}

func newAccumulator() *accumulator {
	return &accumulator{
		totals: domain.RollupTotals{TotalCollected: decimal.Zero, TotalFines: decimal.Zero},
		users:  make(map[int32]struct{}),
		agents: make(map[int32]struct{}),
		risky:  make(map[int32]struct{}),
	}
}

func (a *accumulator) addCollection(c domain.CollectionFact, asOf time.Time) {
	switch c.Status {
	case domain.CollectionStatusApproved:
		a.totals.TotalCollected = a.totals.TotalCollected.Add(c.Amount)
		a.totals.TotalFines = a.totals.TotalFines.Add(c.Fine)
		a.totals.CollectionCount++
		if c.IsLate() {
			a.totals.MissedCount++
		}
	case domain.CollectionStatusPending:
		if DaysLate(c.DueDate, asOf) > 0 {
			a.totals.OverdueCount++
		}
	default:
		return
	}
	a.users[c.MemberID] = struct{}{}
	if c.AgentID != 0 {
		a.agents[c.AgentID] = struct{}{}
	}
}

func (a *accumulator) finish() domain.RollupTotals {
	t := a.totals
	t.DistinctUsers = len(a.users)
	t.DistinctAgents = len(a.agents)
	t.HighRiskMembers = len(a.risky)
	return t
}

// Fold groups the filtered input by key. Every fact lands in exactly one node
// per level, so sums over child nodes equal the parent's sums.
func Fold(ctx context.Context, in RollupInput, key LevelKey) (map[int32]domain.RollupTotals, error) {
	acc := make(map[int32]*accumulator)
	node := func(id int32) *accumulator {
		a, ok := acc[id]
		if !ok {
			a = newAccumulator()
			acc[id] = a
		}
		return a
	}

	for i, c := range in.Collections {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if !in.Scope.Contains(c.Path) || !in.Period.Contains(c.PaymentDate) {
			continue
		}
		node(key(c.Path)).addCollection(c, in.AsOf)
	}
	for _, l := range in.Loans {
		if !in.Scope.Contains(l.Path) || !in.Period.Contains(l.RequestedOn) {
			continue
		}
		node(key(l.Path)).totals.LoanCount++
	}
	for _, m := range in.HighRisk {
		if !in.Scope.Contains(m.Path) {
			continue
		}
		node(key(m.Path)).risky[m.MemberID] = struct{}{}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[int32]domain.RollupTotals, len(acc))
	for id, a := range acc {
		out[id] = a.finish()
	}
	return out, nil
}

// Rollup computes scope totals, the three hierarchical breakdowns, the
// payment-mode partition and both leaderboards. It never writes anything.
func Rollup(ctx context.Context, in RollupInput) (*domain.RollupReport, error) {
	report := &domain.RollupReport{Scope: in.Scope, Period: in.Period}

	all, err := Fold(ctx, in, allKey)
	if err != nil {
		return nil, err
	}
	if t, ok := all[0]; ok {
		report.Totals = t
	} else {
		report.Totals = newAccumulator().finish()
	}
	if report.ByBranch, err = Fold(ctx, in, BranchKey); err != nil {
		return nil, err
	}
	if report.ByMandal, err = Fold(ctx, in, MandalKey); err != nil {
		return nil, err
	}
	if report.ByDepartment, err = Fold(ctx, in, DepartmentKey); err != nil {
		return nil, err
	}

	approved := make([]domain.CollectionFact, 0, len(in.Collections))
	for _, c := range in.Collections {
		if c.Status == domain.CollectionStatusApproved && in.Scope.Contains(c.Path) && in.Period.Contains(c.PaymentDate) {
			approved = append(approved, c)
		}
	}
	sort.SliceStable(approved, func(i, j int) bool {
		if approved[i].PaymentDate.Equal(approved[j].PaymentDate) {
			return approved[i].ReceiptNo < approved[j].ReceiptNo
		}
		return approved[i].PaymentDate.Before(approved[j].PaymentDate)
	})

	report.ByMode = ModeBreakdown(approved)
	report.TopOverdue = topBy(approved, func(c domain.CollectionFact) (int32, string, decimal.Decimal) {
		return c.MemberID, c.MemberName, c.Fine
	}, true)
	report.TopAgents = topBy(approved, func(c domain.CollectionFact) (int32, string, decimal.Decimal) {
		return c.AgentID, c.AgentName, c.Amount
	}, false)
	report.Ledger = approved
	return report, nil
}

// ModeBreakdown partitions collections by payment mode, ordered by mode name.
func ModeBreakdown(collections []domain.CollectionFact) []domain.ModeTotals {
	byMode := make(map[domain.PaymentMode]*domain.ModeTotals)
	for _, c := range collections {
		m, ok := byMode[c.PaymentMode]
		if !ok {
			m = &domain.ModeTotals{Mode: c.PaymentMode, Amount: decimal.Zero}
			byMode[c.PaymentMode] = m
		}
		m.Count++
		m.Amount = m.Amount.Add(c.Amount)
	}
	out := make([]domain.ModeTotals, 0, len(byMode))
	for _, m := range byMode {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mode < out[j].Mode })
	return out
}

func topBy(collections []domain.CollectionFact, pick func(domain.CollectionFact) (int32, string, decimal.Decimal), positiveOnly bool) []domain.LeaderboardEntry {
	byID := make(map[int32]*domain.LeaderboardEntry)
	for _, c := range collections {
		id, name, amount := pick(c)
		if id == 0 {
			continue
		}
		e, ok := byID[id]
		if !ok {
			e = &domain.LeaderboardEntry{ID: id, Name: name, Amount: decimal.Zero}
			byID[id] = e
		}
		e.Amount = e.Amount.Add(amount)
		e.Count++
	}

	entries := make([]domain.LeaderboardEntry, 0, len(byID))
	for _, e := range byID {
		if positiveOnly && !e.Amount.IsPositive() {
			continue
		}
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if c := entries[i].Amount.Cmp(entries[j].Amount); c != 0 {
			return c > 0
		}
		return entries[i].ID < entries[j].ID
	})
	if len(entries) > LeaderboardSize {
		entries = entries[:LeaderboardSize]
	}
	return entries
}
