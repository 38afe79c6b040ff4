package controllers

import (
	"net/http"
	"strconv"

	"github.com/agpsystems/agp/internal/middleware"
	"github.com/agpsystems/agp/internal/models"
)

// DefaultHistoryLimit is how many entries /history returns without ?limit.
const DefaultHistoryLimit = 20

// HistoryController exposes the journal over HTTP.
type HistoryController struct {
	journal models.Journal
}

// NewHistoryController creates a new HistoryController.
func NewHistoryController(journal models.Journal) *HistoryController {
	return &HistoryController{
		journal: journal,
	}
}

// HistoryResponse is the body of GET /history.
type HistoryResponse struct {
	Entries []*models.JournalEntry `json:"entries"`
	Count   int                    `json:"count"`
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

type problem struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// GetRecent returns the newest journal entries. ?limit defaults to 20, capped at 100.
func (c *HistoryController) GetRecent(w http.ResponseWriter, r *http.Request) {
	limit := DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, r, http.StatusBadRequest, problem{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, models.MaxRecent)
	}

	entries, err := c.journal.Recent(r.Context(), limit)
	if err != nil {
		middleware.Logger(r).WithError(err).Error("Failed to load journal")
		writeJSON(w, r, http.StatusInternalServerError, problem{Error: "Failed to load history"})
		return
	}

	writeJSON(w, r, http.StatusOK, HistoryResponse{
		Entries: entries,
		Count:   len(entries),
	})
}

// GetStats returns call counts per mode.
func (c *HistoryController) GetStats(w http.ResponseWriter, r *http.Request) {
	counts, err := c.journal.CountByMode(r.Context())
	if err != nil {
		middleware.Logger(r).WithError(err).Error("Failed to count journal entries")
		writeJSON(w, r, http.StatusInternalServerError, problem{Error: "Failed to load stats"})
		return
	}

	writeJSON(w, r, http.StatusOK, StatsResponse{
		Counts: counts,
		Total:  total(counts),
	})
}

func total(counts map[string]int) int {
	sum := 0
	for _, n := range counts {
		sum += n
	}
	return sum
}
