package http

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"chitfund-backend/internal/logger"
	"chitfund-backend/internal/storage"
)

type receiptResponse struct {
	URL string `json:"url"`
}

func (h *Handler) IssueReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "collectionID")
	if err != nil {
		writeError(w, err)
		return
	}
	url, err := h.svc.Receipts.IssueReceipt(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receiptResponse{URL: url})
}

// DownloadReceipt streams a receipt the local store wrote. GCS-backed
// receipts are fetched from the bucket URL directly.
func (h *Handler) DownloadReceipt(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "Missing key parameter", http.StatusBadRequest)
		return
	}

	file, err := h.store.Open(r.Context(), key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		http.Error(w, "Receipt not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Warn("Failed to open receipt", "key", key, "error", err)
		http.Error(w, "Receipt not found", http.StatusNotFound)
		return
	}
	defer file.Close()

	contentType := "application/octet-stream"
	if filepath.Ext(key) == ".txt" {
		contentType = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")

	if _, err := io.Copy(w, file); err != nil {
		logger.Warn("Failed to stream receipt", "key", key, "error", err)
	}
}
