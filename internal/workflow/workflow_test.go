package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/lead-automation/internal/crm"
	"github.com/ignite/lead-automation/internal/domain"
	"github.com/ignite/lead-automation/internal/sourcing"
	"github.com/ignite/lead-automation/internal/syncer"
)

type stubSync struct {
	summary *syncer.Summary
	err     error
	calls   int
}

func (s *stubSync) SyncAll(ctx context.Context) (*syncer.Summary, error) {
	s.calls++
	return s.summary, s.err
}

type stubSourcer struct {
	added []domain.Candidate
	err   error
	cfg   sourcing.RunConfig
}

func (s *stubSourcer) SourceLeads(ctx context.Context, cfg sourcing.RunConfig) ([]domain.Candidate, error) {
	s.cfg = cfg
	return s.added, s.err
}

type stubQueuer struct {
	queued int
	err    error
	limit  int
}

func (s *stubQueuer) QueueNewLeads(ctx context.Context, limit int) (int, error) {
	s.limit = limit
	return s.queued, s.err
}

type stubStats struct {
	stats crm.Stats
	err   error
}

func (s *stubStats) Stats(ctx context.Context) (crm.Stats, error) {
	return s.stats, s.err
}

type recordingHistory struct {
	saved []*syncer.Summary
}

func (h *recordingHistory) SaveSummary(ctx context.Context, summary *syncer.Summary) error {
	h.saved = append(h.saved, summary)
	return nil
}

func TestRunFullPipeline(t *testing.T) {
	sync := &stubSync{summary: &syncer.Summary{RunID: "sync-20250615103000-abcd1234", RepliesFound: 2}}
	sourcer := &stubSourcer{added: []domain.Candidate{{Company: "Acme Media"}, {Company: "Beta PR"}}}
	queuer := &stubQueuer{queued: 2}
	stats := &stubStats{stats: crm.Stats{TotalLeads: 12, New: 4}}
	history := &recordingHistory{}

	runner := NewRunner(sync, sourcer, sourcing.RunConfig{TargetLeads: 5}, queuer, stats, history, 10)
	fixed := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runner.SetClock(func() time.Time { return fixed })

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sync.calls)
	assert.Equal(t, 5, sourcer.cfg.TargetLeads)
	assert.Equal(t, 10, queuer.limit)
	assert.Equal(t, 2, report.LeadsAdded)
	assert.Equal(t, 2, report.LeadsQueued)
	assert.Equal(t, 12, report.Stats.TotalLeads)
	assert.Equal(t, fixed, report.StartedAt)
	assert.Empty(t, report.Errors)
	require.Len(t, history.saved, 1)
	assert.Equal(t, "sync-20250615103000-abcd1234", history.saved[0].RunID)
}

func TestRunStagesContinueAfterFailure(t *testing.T) {
	sync := &stubSync{err: errors.New("platform down")}
	sourcer := &stubSourcer{added: []domain.Candidate{{Company: "Acme Media"}}}
	queuer := &stubQueuer{queued: 1}
	stats := &stubStats{stats: crm.Stats{TotalLeads: 3}}

	runner := NewRunner(sync, sourcer, sourcing.RunConfig{}, queuer, stats, nil, 0)
	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	// The sync failure is recorded but later stages still ran.
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "sync:")
	assert.Nil(t, report.SyncSummary)
	assert.Equal(t, 1, report.LeadsAdded)
	assert.Equal(t, 1, report.LeadsQueued)
	assert.Equal(t, 3, report.Stats.TotalLeads)
}

func TestRunSkipsNilStages(t *testing.T) {
	sync := &stubSync{summary: &syncer.Summary{RunID: "sync-20250615103000-abcd1234"}}
	stats := &stubStats{}

	runner := NewRunner(sync, nil, sourcing.RunConfig{}, nil, stats, nil, 0)
	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, report.LeadsAdded)
	assert.Zero(t, report.LeadsQueued)
	assert.Empty(t, report.Errors)
}

func TestRunRejectsOverlap(t *testing.T) {
	blocker := make(chan struct{})
	sync := &blockingSync{release: blocker, started: make(chan struct{})}
	runner := NewRunner(sync, nil, sourcing.RunConfig{}, nil, &stubStats{}, nil, 0)

	done := make(chan struct{})
	go func() {
		runner.Run(context.Background())
		close(done)
	}()
	<-sync.started

	_, err := runner.Run(context.Background())
	assert.ErrorContains(t, err, "already running")

	close(blocker)
	<-done
}

type blockingSync struct {
	release chan struct{}
	started chan struct{}
}

func (b *blockingSync) SyncAll(ctx context.Context) (*syncer.Summary, error) {
	close(b.started)
	<-b.release
	return &syncer.Summary{}, nil
}
