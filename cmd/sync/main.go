package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ignite/lead-automation/internal/app"
	"github.com/ignite/lead-automation/internal/config"
	"github.com/ignite/lead-automation/internal/pkg/logger"
	"github.com/ignite/lead-automation/internal/syncer"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	mode := flag.String("mode", "replies", "sync mode: replies or full")
	campaign := flag.String("campaign", "", "restrict to one campaign ID")
	timeout := flag.Duration("timeout", 10*time.Minute, "run timeout")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		logger.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}
	if *campaign != "" {
		cfg.Sync.CampaignID = *campaign
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	repo, closeRepo, err := app.BuildRepository(ctx, cfg)
	if err != nil {
		logger.Error("failed to build repository", "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	engine := app.BuildSyncer(cfg, repo)

	var summary *syncer.Summary
	switch *mode {
	case "replies":
		summary, err = engine.SyncReplies(ctx)
	case "full":
		summary, err = engine.SyncAll(ctx)
	default:
		logger.Error("unknown mode", "mode", *mode)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("sync run failed", "error", err)
		os.Exit(1)
	}

	if history, err := app.BuildHistory(cfg); err != nil {
		logger.Error("failed to build run history store", "error", err)
	} else if err := history.SaveSummary(ctx, summary); err != nil {
		logger.Error("failed to persist summary", "error", err)
	}

	fmt.Printf("Run:              %s\n", summary.RunID)
	fmt.Printf("Mode:             %s\n", summary.Mode)
	fmt.Printf("Campaigns checked: %d\n", summary.CampaignsChecked)
	fmt.Printf("Leads checked:    %d\n", summary.LeadsChecked)
	fmt.Printf("Replies found:    %d\n", summary.RepliesFound)
	fmt.Printf("CRM updated:      %d\n", summary.CRMUpdated)
	fmt.Printf("Already synced:   %d\n", summary.AlreadySynced)
	fmt.Printf("Not in CRM:       %d\n", summary.NotInCRM)
	if len(summary.Errors) > 0 {
		fmt.Printf("Errors:           %d\n", len(summary.Errors))
		for _, e := range summary.Errors {
			fmt.Printf("  - %s\n", e)
		}
		os.Exit(1)
	}
}
