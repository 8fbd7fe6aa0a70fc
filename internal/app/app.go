// Package app wires configured components into runnable pieces. The
// cmd binaries share this assembly so backend selection lives in one
// place.
package app

import (
	"context"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/ignite/lead-automation/internal/config"
	"github.com/ignite/lead-automation/internal/crm"
	"github.com/ignite/lead-automation/internal/instantly"
	"github.com/ignite/lead-automation/internal/personalize"
	"github.com/ignite/lead-automation/internal/pkg/logger"
	"github.com/ignite/lead-automation/internal/repository/postgres"
	"github.com/ignite/lead-automation/internal/sheets"
	"github.com/ignite/lead-automation/internal/sourcing"
	"github.com/ignite/lead-automation/internal/storage"
	"github.com/ignite/lead-automation/internal/syncer"
)

// BuildRepository selects the row store backend and wraps it in the CRM
// repository. The returned closer releases backend resources; it is a
// no-op for the sheets backend.
func BuildRepository(ctx context.Context, cfg *config.Config) (*crm.Repository, func() error, error) {
	schema := crm.SchemaV2
	if cfg.CRM.SchemaVersion == 1 {
		schema = crm.SchemaV1
	}

	switch cfg.CRM.Backend {
	case "sheets":
		store, err := sheets.NewStore(ctx, cfg.CRM.Sheets)
		if err != nil {
			return nil, nil, fmt.Errorf("sheets store: %w", err)
		}
		if err := store.EnsureHeaders(ctx, schema.Headers()); err != nil {
			return nil, nil, fmt.Errorf("ensure headers: %w", err)
		}
		logger.Info("using sheets backend", "spreadsheet_id", cfg.CRM.Sheets.SpreadsheetID, "sheet", cfg.CRM.Sheets.SheetName)
		return crm.NewRepository(store, schema), func() error { return nil }, nil

	case "postgres":
		store, err := postgres.Open(ctx, cfg.CRM.PostgresDSN, cfg.CRM.PostgresTable)
		if err != nil {
			return nil, nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		logger.Info("using postgres backend", "table", cfg.CRM.PostgresTable)
		return crm.NewRepository(store, schema), store.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown crm backend %q", cfg.CRM.Backend)
	}
}

// BuildSyncer assembles the platform client and sync engine.
func BuildSyncer(cfg *config.Config, repo *crm.Repository) *syncer.Syncer {
	client := instantly.NewClient(instantly.Config{
		APIKey:  cfg.Instantly.APIKey,
		BaseURL: cfg.Instantly.BaseURL,
	})
	return syncer.New(client, repo, syncer.Options{
		CampaignID: cfg.Sync.CampaignID,
		PageSize:   cfg.Sync.PageSize,
		PageDelay:  cfg.Sync.PageDelay(),
	})
}

// BuildSourcer assembles the discovery and enrichment clients around the
// repository. Returns nil when the Maps or Apollo key is missing.
func BuildSourcer(cfg *config.Config, repo *crm.Repository) *sourcing.Engine {
	if cfg.GoogleMaps.APIKey == "" || cfg.Apollo.APIKey == "" {
		logger.Warn("sourcing disabled, google_maps or apollo api key missing")
		return nil
	}
	finder := sourcing.NewMapsClient(cfg.GoogleMaps)
	enricher := sourcing.NewApolloClient(cfg.Apollo)
	return sourcing.NewEngine(finder, enricher, repo)
}

// BuildQueuer assembles the personalization and enrollment pipeline.
// Returns nil when the Anthropic key is missing.
func BuildQueuer(cfg *config.Config, repo *crm.Repository) (*personalize.Queuer, error) {
	if cfg.Anthropic.APIKey == "" {
		logger.Warn("outreach queueing disabled, anthropic api key missing")
		return nil, nil
	}

	templates, err := personalize.LoadTemplates(cfg.Outreach.TemplatesFile)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	claude := personalize.NewClaudeClient(cfg.Anthropic)
	platform := instantly.NewClient(instantly.Config{
		APIKey:  cfg.Instantly.APIKey,
		BaseURL: cfg.Instantly.BaseURL,
	})
	return personalize.NewQueuer(claude, platform, repo, cfg.Outreach.CampaignName, templates), nil
}

// BuildHistory sets up run summary persistence.
func BuildHistory(cfg *config.Config) (*storage.History, error) {
	return storage.New(cfg.Storage)
}
