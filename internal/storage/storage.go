// Package storage persists sync run summaries so operators can audit
// past runs. Summaries land in a local directory and, when configured,
// get mirrored to S3.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ignite/lead-automation/internal/pkg/logger"
	"github.com/ignite/lead-automation/internal/syncer"
)

// Config controls where run summaries are kept.
type Config struct {
	// Dir is the local directory for summary JSON files.
	Dir string `yaml:"dir"`
	// S3Bucket enables S3 mirroring when non-empty.
	S3Bucket string `yaml:"s3_bucket"`
	S3Prefix string `yaml:"s3_prefix"`
	S3Region string `yaml:"s3_region"`
}

// History stores sync run summaries.
type History struct {
	dir string
	s3  *S3Store
	mu  sync.Mutex
}

// New creates the local directory and, if a bucket is configured, the
// S3 mirror.
func New(cfg Config) (*History, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "./data/sync-runs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create summary dir: %w", err)
	}

	h := &History{dir: dir}
	if cfg.S3Bucket != "" {
		s3Store, err := NewS3Store(cfg)
		if err != nil {
			return nil, err
		}
		h.s3 = s3Store
	}
	return h, nil
}

// SaveSummary writes the summary locally and mirrors it to S3. A failed
// mirror is logged but does not fail the save.
func (h *History) SaveSummary(ctx context.Context, summary *syncer.Summary) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize summary: %w", err)
	}

	name := summary.RunID + ".json"
	path := filepath.Join(h.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	logger.Info("saved sync summary", "run_id", summary.RunID, "path", path)

	if h.s3 != nil {
		if err := h.s3.Put(ctx, name, data); err != nil {
			logger.Error("failed to mirror summary to s3", "run_id", summary.RunID, "error", err)
		}
	}
	return nil
}

// RecentSummaries returns up to limit summaries, newest run first. Run
// IDs embed the start timestamp so filename order is run order.
func (h *History) RecentSummaries(ctx context.Context, limit int) ([]*syncer.Summary, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := os.ReadDir(h.dir)
	if err != nil {
		return nil, fmt.Errorf("read summary dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}

	summaries := make([]*syncer.Summary, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(h.dir, name))
		if err != nil {
			logger.Warn("skipping unreadable summary", "file", name, "error", err)
			continue
		}
		var s syncer.Summary
		if err := json.Unmarshal(data, &s); err != nil {
			logger.Warn("skipping corrupt summary", "file", name, "error", err)
			continue
		}
		summaries = append(summaries, &s)
	}
	return summaries, nil
}
