package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Department > Mandal > Branch > ChitGroup; each node has exactly one parent.
type Department struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
}

type Mandal struct {
	ID           int32  `json:"id"`
	DepartmentID int32  `json:"department_id"`
	Name         string `json:"name"`
}

type Branch struct {
	ID       int32  `json:"id"`
	MandalID int32  `json:"mandal_id"`
	Name     string `json:"name"`
}

// OrgPath locates a chit group in the hierarchy.
type OrgPath struct {
	GroupID      int32 `json:"group_id"`
	BranchID     int32 `json:"branch_id"`
	MandalID     int32 `json:"mandal_id"`
	DepartmentID int32 `json:"department_id"`
}

type ScopeLevel string

const (
	ScopeAll        ScopeLevel = ""
	ScopeBranch     ScopeLevel = "branch"
	ScopeMandal     ScopeLevel = "mandal"
	ScopeDepartment ScopeLevel = "department"
)

// Scope filters a rollup to one subtree. The zero value means everything.
type Scope struct {
	Level ScopeLevel `json:"level,omitempty"`
	ID    int32      `json:"id,omitempty"`
}

func (s Scope) Contains(p OrgPath) bool {
	switch s.Level {
	case ScopeBranch:
		return p.BranchID == s.ID
	case ScopeMandal:
		return p.MandalID == s.ID
	case ScopeDepartment:
		return p.DepartmentID == s.ID
	}
	return true
}

// Period is an optional inclusive [From, To] range over payment dates.
type Period struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

func (p Period) Contains(t time.Time) bool {
	if p.From != nil && t.Before(*p.From) {
		return false
	}
	if p.To != nil && t.After(*p.To) {
		return false
	}
	return true
}

// CollectionFact is a collection joined with its place in the hierarchy.
type CollectionFact struct {
	Collection
	Path       OrgPath `json:"path"`
	MemberName string  `json:"member_name"`
	AgentName  string  `json:"agent_name"`
	GroupName  string  `json:"group_name"`
}

type LoanFact struct {
	LoanID      int32     `json:"loan_id"`
	MemberID    int32     `json:"member_id"`
	Path        OrgPath   `json:"path"`
	RequestedOn time.Time `json:"requested_on"`
}

// MemberRef ties a flagged member to the groups they sit in.
type MemberRef struct {
	MemberID int32   `json:"member_id"`
	Path     OrgPath `json:"path"`
}

type RollupTotals struct {
	TotalCollected  decimal.Decimal `json:"total_collected"`
	TotalFines      decimal.Decimal `json:"total_fines"`
	CollectionCount int             `json:"collection_count"`
	MissedCount     int             `json:"missed_count"`
	OverdueCount    int             `json:"overdue_count"`
	LoanCount       int             `json:"loan_count"`
	DistinctUsers   int             `json:"distinct_users"`
	DistinctAgents  int             `json:"distinct_agents"`
	HighRiskMembers int             `json:"high_risk_members"`
}

type ModeTotals struct {
	Mode   PaymentMode     `json:"mode"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type LeaderboardEntry struct {
	ID     int32           `json:"id"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

type RollupReport struct {
	Scope        Scope                  `json:"scope"`
	Period       Period                 `json:"period"`
	Totals       RollupTotals           `json:"totals"`
	ByBranch     map[int32]RollupTotals `json:"by_branch"`
	ByMandal     map[int32]RollupTotals `json:"by_mandal"`
	ByDepartment map[int32]RollupTotals `json:"by_department"`
	ByMode       []ModeTotals           `json:"by_mode"`
	TopOverdue   []LeaderboardEntry     `json:"top_overdue"`
	TopAgents    []LeaderboardEntry     `json:"top_agents"`
	Ledger       []CollectionFact       `json:"-"`
}
