package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"chitfund-backend/internal/domain"
	"chitfund-backend/internal/repository"
)

// memDB is an in-memory ledger with the same conditional-update semantics as
// the postgres store, for scenario and race tests.
type memDB struct {
	mu          sync.Mutex
	nextID      int32
	paths       map[int32]domain.OrgPath // group id -> path
	names       map[int32]string         // user id -> name
	groups      map[int32]*domain.ChitGroup
	members     map[[2]int32]*domain.Membership
	auctions    map[int32]*domain.Auction
	bids        []domain.Bid
	collections []domain.Collection
	loans       []domain.Loan
	tiers       map[int32]domain.RiskTier
	flags       []domain.RiskFlag

	// beforeSettle, when set, runs outside the lock before each Settle.
	beforeSettle func()
}

func newMemDB() *memDB {
	return &memDB{
		paths:    make(map[int32]domain.OrgPath),
		names:    make(map[int32]string),
		groups:   make(map[int32]*domain.ChitGroup),
		members:  make(map[[2]int32]*domain.Membership),
		auctions: make(map[int32]*domain.Auction),
		tiers:    make(map[int32]domain.RiskTier),
	}
}

func (db *memDB) id() int32 {
	db.nextID++
	return db.nextID
}

type memGroups struct{ db *memDB }

func (r memGroups) Create(ctx context.Context, g *domain.ChitGroup) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	g.ID = r.db.id()
	cp := *g
	r.db.groups[g.ID] = &cp
	return nil
}

func (r memGroups) GetByID(ctx context.Context, id int32) (*domain.ChitGroup, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	g, ok := r.db.groups[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (r memGroups) ListByStatus(ctx context.Context, status domain.GroupStatus) ([]domain.ChitGroup, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.ChitGroup
	for _, g := range r.db.groups {
		if g.Status == status {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memGroups) UpdateStatus(ctx context.Context, id int32, from, to domain.GroupStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	g, ok := r.db.groups[id]
	if !ok || g.Status != from {
		return domain.ErrConflict
	}
	g.Status = to
	return nil
}

func (r memGroups) AddMember(ctx context.Context, m *domain.Membership) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	g, ok := r.db.groups[m.GroupID]
	if !ok {
		return domain.ErrNotFound
	}
	count := int32(0)
	for k := range r.db.members {
		if k[0] == m.GroupID {
			count++
		}
	}
	if count >= g.MaxMembers {
		return fmt.Errorf("%w: group %d is full", domain.ErrInvalidState, g.ID)
	}
	key := [2]int32{m.GroupID, m.MemberID}
	if _, dup := r.db.members[key]; dup {
		return domain.ErrConflict
	}
	cp := *m
	r.db.members[key] = &cp
	return nil
}

func (r memGroups) GetMembership(ctx context.Context, groupID, memberID int32) (*domain.Membership, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.members[[2]int32{groupID, memberID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r memGroups) ListMembers(ctx context.Context, groupID int32) ([]domain.Membership, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.Membership
	for k, m := range r.db.members {
		if k[0] == groupID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out, nil
}

type memAuctions struct{ db *memDB }

func (r memAuctions) Create(ctx context.Context, a *domain.Auction) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a.ID = r.db.id()
	cp := *a
	r.db.auctions[a.ID] = &cp
	return nil
}

func (r memAuctions) GetByID(ctx context.Context, id int32) (*domain.Auction, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.auctions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r memAuctions) GetActiveByGroup(ctx context.Context, groupID int32) (*domain.Auction, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, a := range r.db.auctions {
		if a.GroupID == groupID && a.Status == domain.AuctionStatusActive {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memAuctions) ListClosable(ctx context.Context, now time.Time) ([]domain.Auction, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.Auction
	for _, a := range r.db.auctions {
		if a.Status == domain.AuctionStatusActive && !a.EndTime.After(now) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r memAuctions) UpdateStatus(ctx context.Context, id int32, from, to domain.AuctionStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.auctions[id]
	if !ok || a.Status != from {
		return domain.ErrConflict
	}
	a.Status = to
	return nil
}

func (r memAuctions) ExtendEndTime(ctx context.Context, id int32, end time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.auctions[id]
	if !ok || a.Status.IsClosed() || !end.After(a.EndTime) {
		return domain.ErrConflict
	}
	a.EndTime = end
	return nil
}

func (r memAuctions) CreateBid(ctx context.Context, b *domain.Bid) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.auctions[b.AuctionID]
	if !ok || a.Status != domain.AuctionStatusActive || !a.EndTime.After(b.CreatedAt) {
		return domain.ErrInvalidState
	}
	b.ID = r.db.id()
	r.db.bids = append(r.db.bids, *b)
	return nil
}

func (r memAuctions) ListBids(ctx context.Context, auctionID int32) ([]domain.Bid, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.Bid
	for _, b := range r.db.bids {
		if b.AuctionID == auctionID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r memAuctions) Settle(ctx context.Context, s *domain.Settlement) error {
	if r.db.beforeSettle != nil {
		r.db.beforeSettle()
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a := r.db.auctions[s.AuctionID]
	g := r.db.groups[s.GroupID]
	m := r.db.members[[2]int32{s.GroupID, s.WinnerID}]
	if a == nil || a.Status != domain.AuctionStatusActive ||
		g == nil || g.Status != domain.GroupStatusActive || g.CurrentCycle != s.Cycle-1 ||
		m == nil || m.WonCycle != nil {
		return domain.ErrConflict
	}
	a.Status = domain.AuctionStatusCompleted
	a.WinnerID, a.WinningBidID = &s.WinnerID, &s.BidID
	g.CurrentCycle = s.Cycle
	if s.GroupCompleted {
		g.Status = domain.GroupStatusCompleted
	}
	cycle := s.Cycle
	m.WonCycle = &cycle
	return nil
}

type memCollections struct{ db *memDB }

func (r memCollections) Create(ctx context.Context, c *domain.Collection) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.collections {
		if existing.ReceiptNo == c.ReceiptNo {
			*c = existing
			return false, nil
		}
	}
	c.ID = r.db.id()
	r.db.collections = append(r.db.collections, *c)
	return true, nil
}

func (r memCollections) find(id int32) *domain.Collection {
	for i := range r.db.collections {
		if r.db.collections[i].ID == id {
			return &r.db.collections[i]
		}
	}
	return nil
}

func (r memCollections) GetByID(ctx context.Context, id int32) (*domain.Collection, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := r.find(id)
	if c == nil {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r memCollections) GetByReceiptNo(ctx context.Context, receiptNo string) (*domain.Collection, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, c := range r.db.collections {
		if c.ReceiptNo == receiptNo {
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memCollections) UpdateStatus(ctx context.Context, id int32, from, to domain.CollectionStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := r.find(id)
	if c == nil || c.Status != from {
		return domain.ErrConflict
	}
	c.Status = to
	return nil
}

func (r memCollections) SetReceiptURL(ctx context.Context, id int32, url string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := r.find(id)
	if c == nil {
		return domain.ErrNotFound
	}
	c.ReceiptURL = url
	return nil
}

func (r memCollections) filter(keep func(domain.Collection) bool) []domain.Collection {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.Collection
	for _, c := range r.db.collections {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func (r memCollections) ListByObligation(ctx context.Context, memberID, groupID, cycle int32) ([]domain.Collection, error) {
	return r.filter(func(c domain.Collection) bool {
		return c.MemberID == memberID && c.GroupID == groupID && c.Cycle == cycle
	}), nil
}

func (r memCollections) ListByMember(ctx context.Context, memberID int32) ([]domain.Collection, error) {
	return r.filter(func(c domain.Collection) bool { return c.MemberID == memberID }), nil
}

func (r memCollections) ListByMembers(ctx context.Context, memberIDs []int32) (map[int32][]domain.Collection, error) {
	out := make(map[int32][]domain.Collection)
	for _, id := range memberIDs {
		out[id], _ = r.ListByMember(ctx, id)
	}
	return out, nil
}

func (r memCollections) ListMemberIDs(ctx context.Context) ([]int32, error) {
	seen := map[int32]bool{}
	var ids []int32
	for _, c := range r.filter(func(domain.Collection) bool { return true }) {
		if !seen[c.MemberID] {
			seen[c.MemberID] = true
			ids = append(ids, c.MemberID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r memCollections) ListFacts(ctx context.Context, scope domain.Scope, period domain.Period) ([]domain.CollectionFact, error) {
	var facts []domain.CollectionFact
	for _, c := range r.filter(func(c domain.Collection) bool { return c.Status != domain.CollectionStatusRejected }) {
		path := r.db.paths[c.GroupID]
		if !scope.Contains(path) || !period.Contains(c.PaymentDate) {
			continue
		}
		facts = append(facts, domain.CollectionFact{
			Collection: c,
			Path:       path,
			MemberName: r.db.names[c.MemberID],
			AgentName:  r.db.names[c.AgentID],
			GroupName:  r.db.groups[c.GroupID].Name,
		})
	}
	return facts, nil
}

type memLoans struct{ db *memDB }

func (r memLoans) Create(ctx context.Context, l *domain.Loan) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	l.ID = r.db.id()
	r.db.loans = append(r.db.loans, *l)
	return nil
}

func (r memLoans) CreateGated(ctx context.Context, l *domain.Loan, gate repository.LoanGate) (string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.members[[2]int32{l.GroupID, l.MemberID}]; !ok {
		return "", domain.ErrNotFound
	}
	if reason := gate(r.latest(l.MemberID, l.GroupID)); reason != "" {
		return reason, nil
	}
	l.ID = r.db.id()
	r.db.loans = append(r.db.loans, *l)
	return "", nil
}

func (r memLoans) GetByID(ctx context.Context, id int32) (*domain.Loan, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, l := range r.db.loans {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memLoans) GetLatest(ctx context.Context, memberID, groupID int32) (*domain.Loan, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if latest := r.latest(memberID, groupID); latest != nil {
		return latest, nil
	}
	return nil, domain.ErrNotFound
}

// latest expects db.mu held.
func (r memLoans) latest(memberID, groupID int32) *domain.Loan {
	var latest *domain.Loan
	for i := range r.db.loans {
		l := &r.db.loans[i]
		if l.MemberID != memberID || l.GroupID != groupID {
			continue
		}
		if latest == nil || l.RequestedOn.After(latest.RequestedOn) ||
			(l.RequestedOn.Equal(latest.RequestedOn) && l.ID > latest.ID) {
			latest = l
		}
	}
	if latest == nil {
		return nil
	}
	cp := *latest
	return &cp
}

func (r memLoans) UpdateStatus(ctx context.Context, id int32, from, to domain.LoanStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := range r.db.loans {
		if r.db.loans[i].ID == id && r.db.loans[i].Status == from {
			r.db.loans[i].Status = to
			return nil
		}
	}
	return domain.ErrConflict
}

func (r memLoans) CreateRepayment(ctx context.Context, rp *domain.LoanRepayment) error {
	return fmt.Errorf("%w: repayments are not tracked in memory", domain.ErrInvalidState)
}

func (r memLoans) ListFacts(ctx context.Context, scope domain.Scope, period domain.Period) ([]domain.LoanFact, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.LoanFact
	for _, l := range r.db.loans {
		path := r.db.paths[l.GroupID]
		if scope.Contains(path) && period.Contains(l.RequestedOn) {
			out = append(out, domain.LoanFact{LoanID: l.ID, MemberID: l.MemberID, Path: path, RequestedOn: l.RequestedOn})
		}
	}
	return out, nil
}

type memRisk struct{ db *memDB }

func (r memRisk) GetTier(ctx context.Context, memberID int32) (domain.RiskTier, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if t, ok := r.db.tiers[memberID]; ok {
		return t, nil
	}
	return domain.RiskTierNormal, nil
}

func (r memRisk) RecordTier(ctx context.Context, memberID int32, tier domain.RiskTier, flag *domain.RiskFlag) (domain.RiskTier, bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	previous, ok := r.db.tiers[memberID]
	if !ok {
		previous = domain.RiskTierNormal
	}
	r.db.tiers[memberID] = tier
	if previous == domain.RiskTierNormal && tier == domain.RiskTierHigh && flag != nil {
		flag.ID = r.db.id()
		r.db.flags = append(r.db.flags, *flag)
		return previous, true, nil
	}
	return previous, false, nil
}

func (r memRisk) CreateFlag(ctx context.Context, flag *domain.RiskFlag) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	flag.ID = r.db.id()
	r.db.flags = append(r.db.flags, *flag)
	return nil
}

func (r memRisk) ResolveFlag(ctx context.Context, id int32, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := range r.db.flags {
		if r.db.flags[i].ID == id && r.db.flags[i].Status == domain.FlagStatusOpen {
			r.db.flags[i].Status = domain.FlagStatusResolved
			r.db.flags[i].ResolvedAt = &at
			return nil
		}
	}
	return domain.ErrConflict
}

func (r memRisk) ListFlags(ctx context.Context, subject domain.SubjectType, subjectID int32) ([]domain.RiskFlag, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.RiskFlag
	for _, f := range r.db.flags {
		if f.SubjectType == subject && f.SubjectID == subjectID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r memRisk) ListHighRiskMembers(ctx context.Context, scope domain.Scope) ([]domain.MemberRef, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.MemberRef
	for k := range r.db.members {
		if r.db.tiers[k[1]] != domain.RiskTierHigh {
			continue
		}
		path := r.db.paths[k[0]]
		if scope.Contains(path) {
			out = append(out, domain.MemberRef{MemberID: k[1], Path: path})
		}
	}
	return out, nil
}
