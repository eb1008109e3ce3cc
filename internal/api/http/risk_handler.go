package http

import (
	"net/http"

	"chitfund-backend/internal/domain"
)

type flagAgentRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) ScoreMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathID(r, "memberID")
	if err != nil {
		writeError(w, err)
		return
	}
	score, err := h.svc.Risk.ScoreMember(r.Context(), memberID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

// EvaluateMember persists the tier and may append a flag.
func (h *Handler) EvaluateMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathID(r, "memberID")
	if err != nil {
		writeError(w, err)
		return
	}
	eval, err := h.svc.Risk.EvaluateMember(r.Context(), memberID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eval)
}

func (h *Handler) FlagAgent(w http.ResponseWriter, r *http.Request) {
	agentID, err := pathID(r, "agentID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req flagAgentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	flag, err := h.svc.Risk.FlagAgent(r.Context(), agentID, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, flag)
}

// ListFlags takes ?subject=user|agent&id=N.
func (h *Handler) ListFlags(w http.ResponseWriter, r *http.Request) {
	subjectID, err := queryID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	flags, err := h.svc.Risk.ListFlags(r.Context(), domain.SubjectType(r.URL.Query().Get("subject")), subjectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, flags)
}

func (h *Handler) ResolveFlag(w http.ResponseWriter, r *http.Request) {
	flagID, err := pathID(r, "flagID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.Risk.ResolveFlag(r.Context(), flagID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
