package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"fluently-backend/internal/models"
)

type usageSummarizer interface {
	SummarySince(ctx context.Context, since time.Time) ([]models.ModeUsage, error)
}

type UsageHandler struct {
	repo usageSummarizer
	now  func() time.Time
}

func NewUsageHandler(repo usageSummarizer) *UsageHandler {
	return &UsageHandler{repo: repo, now: time.Now}
}

// Stats returns per-mode request and failure counts for the last ?days=N
// days (default 7, max 90).
func (h *UsageHandler) Stats(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 90 {
			writeJSON(w, http.StatusBadRequest, errorResp("days must be between 1 and 90", r))
			return
		}
		days = n
	}

	since := h.now().UTC().AddDate(0, 0, -days)
	modes, err := h.repo.SummarySince(r.Context(), since)
	if err != nil {
		log.Printf("usage stats error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("Failed to load usage stats", r))
		return
	}
	if modes == nil {
		modes = []models.ModeUsage{}
	}

	total := 0
	for _, m := range modes {
		total += m.Requests
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"days":     days,
		"since":    since,
		"requests": total,
		"modes":    modes,
	})
}
