// Package workflow chains the daily pipeline: pull replies and
// engagement from the outreach platform, source fresh leads, enroll the
// new batch, then report funnel stats. Each stage runs even when an
// earlier one fails, so one broken integration does not stall the rest.
package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ignite/lead-automation/internal/crm"
	"github.com/ignite/lead-automation/internal/domain"
	"github.com/ignite/lead-automation/internal/pkg/logger"
	"github.com/ignite/lead-automation/internal/sourcing"
	"github.com/ignite/lead-automation/internal/syncer"
)

// SyncEngine runs platform synchronization.
type SyncEngine interface {
	SyncAll(ctx context.Context) (*syncer.Summary, error)
}

// Sourcer discovers and inserts new leads.
type Sourcer interface {
	SourceLeads(ctx context.Context, cfg sourcing.RunConfig) ([]domain.Candidate, error)
}

// Queuer enrolls fresh leads into the outreach campaign.
type Queuer interface {
	QueueNewLeads(ctx context.Context, limit int) (int, error)
}

// StatsReader reports the funnel.
type StatsReader interface {
	Stats(ctx context.Context) (crm.Stats, error)
}

// SummaryWriter persists the sync stage's summary. Optional.
type SummaryWriter interface {
	SaveSummary(ctx context.Context, summary *syncer.Summary) error
}

// Report is the outcome of one pipeline run.
type Report struct {
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	SyncSummary *syncer.Summary `json:"sync_summary,omitempty"`
	LeadsAdded  int             `json:"leads_added"`
	LeadsQueued int             `json:"leads_queued"`
	Stats       crm.Stats       `json:"stats"`
	Errors      []string        `json:"errors,omitempty"`
}

// Runner executes the daily pipeline.
type Runner struct {
	sync       SyncEngine
	sourcer    Sourcer
	sourceCfg  sourcing.RunConfig
	queuer     Queuer
	stats      StatsReader
	history    SummaryWriter
	queueLimit int
	now        func() time.Time

	mu      sync.Mutex
	running bool
}

// NewRunner wires the pipeline stages. history may be nil, sourcer and
// queuer may be nil to skip those stages (sync-only deployments).
func NewRunner(sync SyncEngine, sourcer Sourcer, sourceCfg sourcing.RunConfig, queuer Queuer, stats StatsReader, history SummaryWriter, queueLimit int) *Runner {
	if queueLimit <= 0 {
		queueLimit = 20
	}
	return &Runner{
		sync:       sync,
		sourcer:    sourcer,
		sourceCfg:  sourceCfg,
		queuer:     queuer,
		stats:      stats,
		history:    history,
		queueLimit: queueLimit,
		now:        time.Now,
	}
}

// SetClock overrides the clock in tests.
func (r *Runner) SetClock(now func() time.Time) { r.now = now }

// Run executes one pass of the pipeline. Overlapping runs are rejected.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, fmt.Errorf("pipeline already running")
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	report := &Report{StartedAt: r.now()}
	logger.Info("starting daily pipeline")

	summary, err := r.sync.SyncAll(ctx)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("sync: %v", err))
		logger.Error("sync stage failed", "error", err)
	} else {
		report.SyncSummary = summary
		if r.history != nil {
			if err := r.history.SaveSummary(ctx, summary); err != nil {
				logger.Error("failed to persist sync summary", "run_id", summary.RunID, "error", err)
			}
		}
	}

	if r.sourcer != nil {
		added, err := r.sourcer.SourceLeads(ctx, r.sourceCfg)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("sourcing: %v", err))
			logger.Error("sourcing stage failed", "error", err)
		}
		// Partial batches still count what landed before the failure.
		report.LeadsAdded = len(added)
	}

	if r.queuer != nil {
		queued, err := r.queuer.QueueNewLeads(ctx, r.queueLimit)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("outreach queue: %v", err))
			logger.Error("queue stage failed", "error", err)
		}
		report.LeadsQueued = queued
	}

	stats, err := r.stats.Stats(ctx)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("stats: %v", err))
		logger.Error("stats stage failed", "error", err)
	} else {
		report.Stats = stats
	}

	report.FinishedAt = r.now()
	logger.Info("daily pipeline finished",
		"leads_added", report.LeadsAdded,
		"leads_queued", report.LeadsQueued,
		"errors", len(report.Errors),
		"duration", report.FinishedAt.Sub(report.StartedAt).String())
	return report, nil
}

// RunEvery runs the pipeline on a fixed interval until ctx is cancelled.
// The first run fires immediately.
func (r *Runner) RunEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.Run(ctx); err != nil {
			logger.Error("pipeline run rejected", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
