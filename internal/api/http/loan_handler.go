package http

import (
	"net/http"
	"time"

	"chitfund-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type requestLoanRequest struct {
	MemberID int32           `json:"member_id"`
	GroupID  int32           `json:"group_id"`
	Amount   decimal.Decimal `json:"amount"`
}

type decideLoanRequest struct {
	Status string `json:"status"`
}

type repaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
}

type eligibilityResponse struct {
	MemberID int32 `json:"member_id"`
	GroupID  int32 `json:"group_id"`
	Eligible bool  `json:"eligible"`
}

func (h *Handler) LoanEligibility(w http.ResponseWriter, r *http.Request) {
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
	ok, err := h.svc.Loans.IsEligible(r.Context(), memberID, groupID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eligibilityResponse{MemberID: memberID, GroupID: groupID, Eligible: ok})
}

func (h *Handler) RequestLoan(w http.ResponseWriter, r *http.Request) {
	var req requestLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	loan, err := h.svc.Loans.RequestLoan(r.Context(), req.MemberID, req.GroupID, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (h *Handler) DecideLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "loanID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req decideLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	to, err := domain.ParseLoanStatus(req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	loan, err := h.svc.Loans.DecideLoan(r.Context(), loanID, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (h *Handler) RecordRepayment(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "loanID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req repaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rep, err := h.svc.Loans.RecordRepayment(r.Context(), loanID, req.Amount, req.PaymentDate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}
