package http

import (
	"net/http"

	"chitfund-backend/internal/security"
	"chitfund-backend/internal/service"
	"chitfund-backend/internal/storage"

	"github.com/gorilla/mux"
)

// Services bundles what the API exposes. Nil fields are not allowed.
type Services struct {
	Groups      service.GroupService
	Collections service.CollectionService
	Auctions    service.AuctionService
	Risk        service.RiskService
	Rollups     service.RollupService
	Loans       service.LoanService
	Receipts    service.ReceiptService
}

type Handler struct {
	svc   Services
	store storage.ReceiptStore
}

// NewRouter registers every route under a name; the auth middleware looks
// the name up in config.RouteSecurityConfig.
func NewRouter(svc Services, store storage.ReceiptStore, tm security.TokenManager) *mux.Router {
	h := &Handler{svc: svc, store: store}

	r := mux.NewRouter()
	r.Use(LoggingMiddleware, AuthMiddleware(tm))

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet).Name("Health")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/receipts/download", h.DownloadReceipt).Methods(http.MethodGet).Name("DownloadReceipt")

	api.HandleFunc("/groups", h.CreateGroup).Methods(http.MethodPost).Name("CreateGroup")
	api.HandleFunc("/groups/{groupID}", h.GetGroup).Methods(http.MethodGet).Name("GetGroup")
	api.HandleFunc("/groups/{groupID}/activate", h.ActivateGroup).Methods(http.MethodPost).Name("ActivateGroup")
	api.HandleFunc("/groups/{groupID}/cancel", h.CancelGroup).Methods(http.MethodPost).Name("CancelGroup")
	api.HandleFunc("/groups/{groupID}/members", h.AddMember).Methods(http.MethodPost).Name("AddMember")
	api.HandleFunc("/groups/{groupID}/members/{memberID}/cycles/{cycle}", h.Reconcile).Methods(http.MethodGet).Name("Reconcile")
	api.HandleFunc("/groups/{groupID}/members/{memberID}/loan-eligibility", h.LoanEligibility).Methods(http.MethodGet).Name("LoanEligibility")
	api.HandleFunc("/groups/{groupID}/auctions", h.OpenAuction).Methods(http.MethodPost).Name("OpenAuction")

	api.HandleFunc("/collections", h.RecordCollection).Methods(http.MethodPost).Name("RecordCollection")
	api.HandleFunc("/collections/{collectionID}/approve", h.ApproveCollection).Methods(http.MethodPost).Name("ApproveCollection")
	api.HandleFunc("/collections/{collectionID}/reject", h.RejectCollection).Methods(http.MethodPost).Name("RejectCollection")
	api.HandleFunc("/collections/{collectionID}/receipt", h.IssueReceipt).Methods(http.MethodPost).Name("IssueReceipt")

	api.HandleFunc("/auctions/{auctionID}/bids", h.PlaceBid).Methods(http.MethodPost).Name("PlaceBid")
	api.HandleFunc("/auctions/{auctionID}/resolve", h.ResolveAuction).Methods(http.MethodPost).Name("ResolveAuction")
	api.HandleFunc("/auctions/{auctionID}/cancel", h.CancelAuction).Methods(http.MethodPost).Name("CancelAuction")
	api.HandleFunc("/auctions/{auctionID}/extend", h.ExtendAuction).Methods(http.MethodPost).Name("ExtendAuction")

	api.HandleFunc("/members/{memberID}/risk", h.ScoreMember).Methods(http.MethodGet).Name("ScoreMember")
	api.HandleFunc("/members/{memberID}/risk/evaluate", h.EvaluateMember).Methods(http.MethodPost).Name("EvaluateMember")
	api.HandleFunc("/agents/{agentID}/flags", h.FlagAgent).Methods(http.MethodPost).Name("FlagAgent")
	api.HandleFunc("/flags", h.ListFlags).Methods(http.MethodGet).Name("ListFlags")
	api.HandleFunc("/flags/{flagID}/resolve", h.ResolveFlag).Methods(http.MethodPost).Name("ResolveFlag")

	api.HandleFunc("/rollups", h.Aggregate).Methods(http.MethodGet).Name("Aggregate")
	api.HandleFunc("/rollups/ledger.csv", h.ExportLedger).Methods(http.MethodGet).Name("ExportLedger")

	api.HandleFunc("/loans", h.RequestLoan).Methods(http.MethodPost).Name("RequestLoan")
	api.HandleFunc("/loans/{loanID}/decision", h.DecideLoan).Methods(http.MethodPost).Name("DecideLoan")
	api.HandleFunc("/loans/{loanID}/repayments", h.RecordRepayment).Methods(http.MethodPost).Name("RecordRepayment")

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
