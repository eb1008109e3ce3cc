package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"chitfund-backend/internal/domain"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type recordCollectionRequest struct {
	ReceiptNo   string          `json:"receipt_no"`
	MemberID    int32           `json:"member_id"`
	GroupID     int32           `json:"group_id"`
	Cycle       int32           `json:"cycle"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
	PaymentMode string          `json:"payment_mode"`
}

// Reconcile reports one obligation. as_of defaults to today.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupID")
	if err != nil {
		writeError(w, err)
		return
	}
	memberID, err := pathID(r, "memberID")
	if err != nil {
		writeError(w, err)
		return
	}
	cycle, err := strconv.ParseInt(mux.Vars(r)["cycle"], 10, 32)
	if err != nil {
		writeError(w, fmt.Errorf("%w: invalid cycle", domain.ErrInvalidInput))
		return
	}
	asOf, err := queryDate(r, "as_of")
	if err != nil {
		writeError(w, err)
		return
	}
	at := time.Now().UTC()
	if asOf != nil {
		at = *asOf
	}

	rec, err := h.svc.Collections.Reconcile(r.Context(), memberID, groupID, int32(cycle), at)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// RecordCollection answers 201 for a new receipt and 200 when the receipt
// number was already recorded.
func (h *Handler) RecordCollection(w http.ResponseWriter, r *http.Request) {
	var req recordCollectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	mode, err := domain.ParsePaymentMode(req.PaymentMode)
	if err != nil {
		writeError(w, err)
		return
	}
	c := &domain.Collection{
		ReceiptNo:   req.ReceiptNo,
		MemberID:    req.MemberID,
		GroupID:     req.GroupID,
		Cycle:       req.Cycle,
		Amount:      req.Amount,
		PaymentDate: req.PaymentDate,
		PaymentMode: mode,
	}
	if claims := ClaimsFromContext(r.Context()); claims != nil {
		c.AgentID = claims.UserID
	}

	created, err := h.svc.Collections.RecordCollection(r.Context(), c)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, c)
}

func (h *Handler) ApproveCollection(w http.ResponseWriter, r *http.Request) {
	h.decideCollection(w, r, h.svc.Collections.ApproveCollection)
}

func (h *Handler) RejectCollection(w http.ResponseWriter, r *http.Request) {
	h.decideCollection(w, r, h.svc.Collections.RejectCollection)
}

func (h *Handler) decideCollection(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int32) (*domain.Collection, error)) {
	id, err := pathID(r, "collectionID")
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := fn(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
