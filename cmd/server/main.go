package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/lead-automation/internal/api"
	"github.com/ignite/lead-automation/internal/app"
	"github.com/ignite/lead-automation/internal/config"
	"github.com/ignite/lead-automation/internal/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	repo, closeRepo, err := app.BuildRepository(ctx, cfg)
	cancel()
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

	engine := app.BuildSyncer(cfg, repo)
	handlers := api.NewHandlers(repo, engine, history)
	server := api.NewServer(cfg.Server, handlers)

	go func() {
		logger.Info("dashboard server listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")
}
