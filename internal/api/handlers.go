package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ignite/lead-automation/internal/crm"
	"github.com/ignite/lead-automation/internal/domain"
	"github.com/ignite/lead-automation/internal/metrics"
	"github.com/ignite/lead-automation/internal/pkg/logger"
	"github.com/ignite/lead-automation/internal/syncer"
)

// DashboardRepository is the slice of the CRM repository the API reads from.
type DashboardRepository interface {
	AllLeads(ctx context.Context) ([]domain.Lead, error)
	Stats(ctx context.Context) (crm.Stats, error)
}

// SyncRunner triggers outreach platform synchronization.
type SyncRunner interface {
	SyncReplies(ctx context.Context) (*syncer.Summary, error)
	SyncAll(ctx context.Context) (*syncer.Summary, error)
}

// SummaryStore persists and lists sync run summaries. Optional.
type SummaryStore interface {
	SaveSummary(ctx context.Context, summary *syncer.Summary) error
	RecentSummaries(ctx context.Context, limit int) ([]*syncer.Summary, error)
}

// Handlers holds the HTTP handlers for the dashboard API.
type Handlers struct {
	repo    DashboardRepository
	runner  SyncRunner
	history SummaryStore
}

// NewHandlers builds the handler set. history may be nil.
func NewHandlers(repo DashboardRepository, runner SyncRunner, history SummaryStore) *Handlers {
	return &Handlers{repo: repo, runner: runner, history: history}
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Metrics computes the full dashboard payload from the current CRM state.
func (h *Handlers) Metrics(w http.ResponseWriter, r *http.Request) {
	leads, err := h.repo.AllLeads(r.Context())
	if err != nil {
		logger.Error("failed to load leads for metrics", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load leads")
		return
	}
	writeJSON(w, http.StatusOK, metrics.Calculate(leads, time.Now()))
}

// Stats returns the funnel counts.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Stats(r.Context())
	if err != nil {
		logger.Error("failed to load stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// RunSync runs a synchronization pass in-request. mode=replies (default)
// pulls replies only, mode=full refreshes engagement counters too.
func (h *Handlers) RunSync(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "replies"
	}

	var (
		summary *syncer.Summary
		err     error
	)
	switch mode {
	case "replies":
		summary, err = h.runner.SyncReplies(r.Context())
	case "full":
		summary, err = h.runner.SyncAll(r.Context())
	default:
		writeError(w, http.StatusBadRequest, "mode must be replies or full")
		return
	}
	if err != nil {
		logger.Error("sync run failed", "mode", mode, "error", err)
		writeError(w, http.StatusInternalServerError, "sync run failed")
		return
	}

	if h.history != nil {
		if err := h.history.SaveSummary(r.Context(), summary); err != nil {
			logger.Error("failed to persist sync summary", "run_id", summary.RunID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, summary)
}

// Runs lists recent sync run summaries, newest first. ?limit caps the
// count, defaulting to 20.
func (h *Handlers) Runs(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSON(w, http.StatusOK, []*syncer.Summary{})
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	summaries, err := h.history.RecentSummaries(r.Context(), limit)
	if err != nil {
		logger.Error("failed to list sync runs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list sync runs")
		return
	}
	if summaries == nil {
		summaries = []*syncer.Summary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
