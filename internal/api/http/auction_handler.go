package http

import (
	"fmt"
	"net/http"
	"time"

	"chitfund-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type openAuctionRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type placeBidRequest struct {
	MemberID int32           `json:"member_id"`
	Discount decimal.Decimal `json:"discount"`
}

type extendAuctionRequest struct {
	EndTime time.Time `json:"end_time"`
}

func (h *Handler) OpenAuction(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req openAuctionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a, err := h.svc.Auctions.OpenAuction(r.Context(), groupID, req.StartTime, req.EndTime)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathID(r, "auctionID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req placeBidRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.MemberID <= 0 {
		writeError(w, fmt.Errorf("%w: member_id is required", domain.ErrInvalidInput))
		return
	}
	bid, err := h.svc.Auctions.PlaceBid(r.Context(), auctionID, req.MemberID, req.Discount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bid)
}

func (h *Handler) ResolveAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathID(r, "auctionID")
	if err != nil {
		writeError(w, err)
		return
	}
	settlement, err := h.svc.Auctions.ResolveAuction(r.Context(), auctionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settlement)
}

func (h *Handler) CancelAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathID(r, "auctionID")
	if err != nil {
		writeError(w, err)
		return
	}
	a, err := h.svc.Auctions.CancelAuction(r.Context(), auctionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) ExtendAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathID(r, "auctionID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req extendAuctionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a, err := h.svc.Auctions.ExtendAuction(r.Context(), auctionID, req.EndTime)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
