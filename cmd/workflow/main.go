package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/lead-automation/internal/app"
	"github.com/ignite/lead-automation/internal/config"
	"github.com/ignite/lead-automation/internal/pkg/logger"
	"github.com/ignite/lead-automation/internal/workflow"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	interval := flag.Duration("interval", 0, "rerun interval; 0 runs once and exits")
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bootCtx, bootCancel := context.WithTimeout(ctx, 30*time.Second)
	repo, closeRepo, err := app.BuildRepository(bootCtx, cfg)
	bootCancel()
	if err != nil {
		logger.Error("failed to build repository", "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	history, err := app.BuildHistory(cfg)
	if err != nil {
		logger.Error("failed to build run history", "error", err)
		os.Exit(1)
	}

	queuer, err := app.BuildQueuer(cfg, repo)
	if err != nil {
		logger.Error("failed to build outreach queue", "error", err)
		os.Exit(1)
	}

	// Typed nils must not reach the runner's interface fields, or its
	// nil stage checks stop working.
	var sourcerStage workflow.Sourcer
	if engine := app.BuildSourcer(cfg, repo); engine != nil {
		sourcerStage = engine
	}
	var queueStage workflow.Queuer
	if queuer != nil {
		queueStage = queuer
	}

	runner := workflow.NewRunner(
		app.BuildSyncer(cfg, repo),
		sourcerStage,
		cfg.Sourcing,
		queueStage,
		repo,
		history,
		cfg.Outreach.BatchLimit,
	)

	if *interval <= 0 {
		report, err := runner.Run(ctx)
		if err != nil {
			logger.Error("pipeline failed to start", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Leads added:  %d\n", report.LeadsAdded)
		fmt.Printf("Leads queued: %d\n", report.LeadsQueued)
		fmt.Printf("Total leads:  %d\n", report.Stats.TotalLeads)
		if len(report.Errors) > 0 {
			for _, e := range report.Errors {
				fmt.Printf("  - %s\n", e)
			}
			os.Exit(1)
		}
		return
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down")
		cancel()
	}()

	runner.RunEvery(ctx, *interval)
}
