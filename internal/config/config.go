// Package config loads YAML configuration with environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ignite/lead-automation/internal/api"
	"github.com/ignite/lead-automation/internal/personalize"
	"github.com/ignite/lead-automation/internal/sheets"
	"github.com/ignite/lead-automation/internal/sourcing"
	"github.com/ignite/lead-automation/internal/storage"
)

// Config is the top-level application configuration.
type Config struct {
	Server     api.ServerConfig         `yaml:"server"`
	CRM        CRMConfig                `yaml:"crm"`
	Instantly  InstantlyConfig          `yaml:"instantly"`
	GoogleMaps sourcing.MapsConfig      `yaml:"google_maps"`
	Apollo     sourcing.ApolloConfig    `yaml:"apollo"`
	Anthropic  personalize.ClaudeConfig `yaml:"anthropic"`
	Sourcing   sourcing.RunConfig       `yaml:"sourcing"`
	Sync       SyncConfig               `yaml:"sync"`
	Outreach   OutreachConfig           `yaml:"outreach"`
	Storage    storage.Config           `yaml:"storage"`
}

// CRMConfig selects and configures the lead store backend.
type CRMConfig struct {
	// Backend is "sheets" or "postgres". Defaults to sheets.
	Backend string `yaml:"backend"`
	// SchemaVersion is 1 or 2. Defaults to 2, the current layout.
	SchemaVersion int           `yaml:"schema_version"`
	Sheets        sheets.Config `yaml:"sheets"`
	// PostgresDSN is used when Backend is postgres.
	PostgresDSN string `yaml:"postgres_dsn"`
	// PostgresTable defaults to lead_rows.
	PostgresTable string `yaml:"postgres_table"`
}

// InstantlyConfig configures the outreach platform client.
type InstantlyConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// SyncConfig controls synchronization runs.
type SyncConfig struct {
	CampaignID string `yaml:"campaign_id"`
	PageSize   int    `yaml:"page_size"`
	// PageDelaySeconds is slept between lead pages.
	PageDelaySeconds int `yaml:"page_delay_seconds"`
}

// PageDelay converts the configured seconds to a duration.
func (c SyncConfig) PageDelay() time.Duration {
	return time.Duration(c.PageDelaySeconds) * time.Second
}

// OutreachConfig controls campaign enrollment.
type OutreachConfig struct {
	CampaignName string `yaml:"campaign_name"`
	// TemplatesFile points at the email sequence YAML.
	TemplatesFile string `yaml:"templates_file"`
	// BatchLimit caps how many new leads each queue run enrolls.
	BatchLimit int `yaml:"batch_limit"`
}

// Load reads the YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.CRM.Backend == "" {
		cfg.CRM.Backend = "sheets"
	}
	if cfg.CRM.SchemaVersion == 0 {
		cfg.CRM.SchemaVersion = 2
	}
	if cfg.CRM.Sheets.SheetName == "" {
		cfg.CRM.Sheets.SheetName = "Leads"
	}
	if cfg.CRM.PostgresTable == "" {
		cfg.CRM.PostgresTable = "lead_rows"
	}
	if cfg.Sync.PageSize == 0 {
		cfg.Sync.PageSize = 100
	}
	if cfg.Sync.PageDelaySeconds == 0 {
		cfg.Sync.PageDelaySeconds = 1
	}
	if cfg.Outreach.CampaignName == "" {
		cfg.Outreach.CampaignName = "Agency Outreach"
	}
	if cfg.Outreach.TemplatesFile == "" {
		cfg.Outreach.TemplatesFile = "templates.yaml"
	}
	if cfg.Outreach.BatchLimit == 0 {
		cfg.Outreach.BatchLimit = 20
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "./data/sync-runs"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) before reading env vars, so secrets
// can live in .env locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("INSTANTLY_API_KEY"); v != "" {
		cfg.Instantly.APIKey = v
	}
	if v := os.Getenv("INSTANTLY_BASE_URL"); v != "" {
		cfg.Instantly.BaseURL = v
	}
	if v := os.Getenv("GOOGLE_MAPS_API_KEY"); v != "" {
		cfg.GoogleMaps.APIKey = v
	}
	if v := os.Getenv("APOLLO_API_KEY"); v != "" {
		cfg.Apollo.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Anthropic.APIKey = v
	}
	if v := os.Getenv("GOOGLE_SHEETS_CREDENTIALS_FILE"); v != "" {
		cfg.CRM.Sheets.CredentialsFile = v
	}
	if v := os.Getenv("SPREADSHEET_ID"); v != "" {
		cfg.CRM.Sheets.SpreadsheetID = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.CRM.PostgresDSN = v
		cfg.CRM.Backend = "postgres"
	}
	if v := os.Getenv("DASHBOARD_USER"); v != "" {
		cfg.Server.DashboardUser = v
	}
	if v := os.Getenv("DASHBOARD_PASSWORD"); v != "" {
		cfg.Server.DashboardPassword = v
	}

	return cfg, nil
}

// Validate checks that the credentials required by the selected backends
// are present. Called once at startup.
func (c *Config) Validate() error {
	if c.Instantly.APIKey == "" {
		return fmt.Errorf("instantly api_key is required")
	}
	switch c.CRM.Backend {
	case "sheets":
		if c.CRM.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("crm.sheets.spreadsheet_id is required for the sheets backend")
		}
		if c.CRM.Sheets.CredentialsFile == "" {
			return fmt.Errorf("crm.sheets.credentials_file is required for the sheets backend")
		}
	case "postgres":
		if c.CRM.PostgresDSN == "" {
			return fmt.Errorf("crm.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown crm backend %q", c.CRM.Backend)
	}
	if c.CRM.SchemaVersion != 1 && c.CRM.SchemaVersion != 2 {
		return fmt.Errorf("crm.schema_version must be 1 or 2, got %d", c.CRM.SchemaVersion)
	}
	return nil
}
