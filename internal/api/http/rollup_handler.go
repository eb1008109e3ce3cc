package http

import (
	"bytes"
	"fmt"
	"net/http"

	"chitfund-backend/internal/domain"
	"chitfund-backend/internal/logger"
)

// scopeFromQuery reads ?scope=branch|mandal|department&scope_id=N&from=&to=.
func scopeFromQuery(r *http.Request) (domain.Scope, domain.Period, error) {
	scopeID, err := queryID(r, "scope_id")
	if err != nil {
		return domain.Scope{}, domain.Period{}, err
	}
	scope := domain.Scope{Level: domain.ScopeLevel(r.URL.Query().Get("scope")), ID: scopeID}

	from, err := queryDate(r, "from")
	if err != nil {
		return domain.Scope{}, domain.Period{}, err
	}
	to, err := queryDate(r, "to")
	if err != nil {
		return domain.Scope{}, domain.Period{}, err
	}
	if to != nil {
		// inclusive of the whole last day
		end := to.AddDate(0, 0, 1).Add(-1)
		to = &end
	}
	return scope, domain.Period{From: from, To: to}, nil
}

func (h *Handler) Aggregate(w http.ResponseWriter, r *http.Request) {
	scope, period, err := scopeFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	report, err := h.svc.Rollups.Aggregate(r.Context(), scope, period)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ExportLedger buffers the CSV so a failed aggregate still gets a JSON error.
func (h *Handler) ExportLedger(w http.ResponseWriter, r *http.Request) {
	scope, period, err := scopeFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := h.svc.Rollups.ExportLedger(r.Context(), &buf, scope, period); err != nil {
		writeError(w, err)
		return
	}
	name := "ledger.csv"
	if scope.Level != domain.ScopeAll {
		name = fmt.Sprintf("ledger-%s-%d.csv", scope.Level, scope.ID)
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Warn("Failed to write ledger export", "error", err)
	}
}
