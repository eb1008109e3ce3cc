package http

import (
	"context"
	"net/http"
	"time"

	"chitfund-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type createGroupRequest struct {
	BranchID             int32           `json:"branch_id"`
	Name                 string          `json:"name"`
	ChitValue            decimal.Decimal `json:"chit_value"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage"`
	Duration             int32           `json:"duration"`
	MaxMembers           int32           `json:"max_members"`
	StartsOn             time.Time       `json:"starts_on"`
}

type groupResponse struct {
	Group   *domain.ChitGroup   `json:"group"`
	Members []domain.Membership `json:"members,omitempty"`
}

func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	g := &domain.ChitGroup{
		BranchID:             req.BranchID,
		Name:                 req.Name,
		ChitValue:            req.ChitValue,
		CommissionPercentage: req.CommissionPercentage,
		Duration:             req.Duration,
		MaxMembers:           req.MaxMembers,
		StartsOn:             req.StartsOn,
	}
	if err := h.svc.Groups.CreateGroup(r.Context(), g); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, groupResponse{Group: g})
}

func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "groupID")
	if err != nil {
		writeError(w, err)
		return
	}
	g, members, err := h.svc.Groups.GetGroup(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groupResponse{Group: g, Members: members})
}

func (h *Handler) ActivateGroup(w http.ResponseWriter, r *http.Request) {
	h.transitionGroup(w, r, h.svc.Groups.ActivateGroup)
}

func (h *Handler) CancelGroup(w http.ResponseWriter, r *http.Request) {
	h.transitionGroup(w, r, h.svc.Groups.CancelGroup)
}

func (h *Handler) transitionGroup(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int32) (*domain.ChitGroup, error)) {
	id, err := pathID(r, "groupID")
	if err != nil {
		writeError(w, err)
		return
	}
	g, err := fn(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groupResponse{Group: g})
}

type addMemberRequest struct {
	MemberID int32 `json:"member_id"`
}

func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req addMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	m, err := h.svc.Groups.AddMember(r.Context(), groupID, req.MemberID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}
