// Package syncer pulls reply and engagement state from the outreach
// platform back into the CRM. One engine, two passes: the reply pass
// writes only the Response column, the engagement pass additionally
// refreshes opens, clicks, and the platform status label.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/lead-automation/internal/crm"
	"github.com/ignite/lead-automation/internal/domain"
	"github.com/ignite/lead-automation/internal/instantly"
	"github.com/ignite/lead-automation/internal/pkg/logger"
)

// PlatformClient is the slice of the outreach platform API the engine
// needs.
type PlatformClient interface {
	ListCampaigns(ctx context.Context) ([]instantly.Campaign, error)
	GetCampaign(ctx context.Context, campaignID string) (instantly.Campaign, error)
	ListLeads(ctx context.Context, campaignID string, limit, skip int) ([]instantly.CampaignLead, error)
}

// LeadRepository is the slice of the CRM repository the engine needs.
type LeadRepository interface {
	FindByEmail(ctx context.Context, email string) (domain.Lead, error)
	MarkResponseReceived(ctx context.Context, id, text string) error
	UpdateEngagement(ctx context.Context, email string, u crm.EngagementUpdate) error
}

// Summary is the outcome of one sync run. It is always returned, partial
// when campaigns failed: Errors carries one line per failure and the
// caller decides the exit code from it.
type Summary struct {
	RunID            string    `json:"run_id"`
	Mode             string    `json:"mode"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	CampaignsChecked int       `json:"campaigns_checked"`
	LeadsChecked     int       `json:"leads_checked"`
	RepliesFound     int       `json:"replies_found"`
	CRMUpdated       int       `json:"crm_updated"`
	AlreadySynced    int       `json:"already_synced"`
	NotInCRM         int       `json:"not_in_crm"`
	Errors           []string  `json:"errors"`
}

// Options tunes a Syncer. The zero value syncs every campaign with the
// default page size and no inter-page delay.
type Options struct {
	// CampaignID restricts the run to one campaign when non-empty.
	CampaignID string
	// PageSize is the leads/list page size. Defaults to 100, the
	// platform's effective maximum.
	PageSize int
	// PageDelay is slept between lead pages to stay friendly with the
	// platform's rate limits. Zero in tests.
	PageDelay time.Duration
}

// Syncer runs reply and engagement synchronization.
type Syncer struct {
	platform PlatformClient
	repo     LeadRepository
	opts     Options
	now      func() time.Time
}

// New creates a sync engine over the given platform client and repository.
func New(platform PlatformClient, repo LeadRepository, opts Options) *Syncer {
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	return &Syncer{platform: platform, repo: repo, opts: opts, now: time.Now}
}

// SetClock overrides the engine clock (tests).
func (s *Syncer) SetClock(now func() time.Time) { s.now = now }

// campaigns returns the configured campaign or every campaign.
func (s *Syncer) campaigns(ctx context.Context) ([]instantly.Campaign, error) {
	if s.opts.CampaignID != "" {
		campaign, err := s.platform.GetCampaign(ctx, s.opts.CampaignID)
		if err != nil {
			return nil, err
		}
		return []instantly.Campaign{campaign}, nil
	}
	return s.platform.ListCampaigns(ctx)
}

// campaignLeads pages through a campaign's leads. The loop stops on an
// empty page or a short page; a page of exactly PageSize leads forces one
// more request to learn there is nothing behind it.
func (s *Syncer) campaignLeads(ctx context.Context, campaignID string) ([]instantly.CampaignLead, error) {
	var all []instantly.CampaignLead
	skip := 0
	for {
		page, err := s.platform.ListLeads(ctx, campaignID, s.opts.PageSize, skip)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < s.opts.PageSize {
			return all, nil
		}
		skip += s.opts.PageSize
		if s.opts.PageDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.opts.PageDelay):
			}
		}
	}
}

func newSummary(mode string, now time.Time) *Summary {
	return &Summary{
		RunID:     fmt.Sprintf("sync-%s-%s", now.Format("20060102150405"), uuid.New().String()[:8]),
		Mode:      mode,
		StartedAt: now,
		Errors:    []string{},
	}
}

// SyncReplies runs the reply pass: finds replied leads in every campaign
// and records the reply in the CRM once. A lead whose Response column is
// already non-empty is never overwritten.
func (s *Syncer) SyncReplies(ctx context.Context) (*Summary, error) {
	summary := newSummary("replies", s.now())
	defer func() { summary.FinishedAt = s.now() }()

	campaigns, err := s.campaigns(ctx)
	if err != nil {
		return summary, fmt.Errorf("list campaigns: %w", err)
	}
	summary.CampaignsChecked = len(campaigns)
	logger.Info("starting reply sync", "run_id", summary.RunID, "campaigns", len(campaigns))

	for _, campaign := range campaigns {
		if err := s.syncCampaignReplies(ctx, campaign, summary); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("Error syncing campaign %s: %v", campaignName(campaign), err))
			logger.Error("campaign sync failed", "campaign", campaignName(campaign), "error", err.Error())
		}
	}

	logger.Info("reply sync complete",
		"run_id", summary.RunID,
		"replies_found", summary.RepliesFound,
		"crm_updated", summary.CRMUpdated,
		"already_synced", summary.AlreadySynced,
		"errors", len(summary.Errors))
	return summary, nil
}

func (s *Syncer) syncCampaignReplies(ctx context.Context, campaign instantly.Campaign, summary *Summary) error {
	logger.Info("checking campaign", "name", campaignName(campaign), "campaign_id", campaign.ID)

	leads, err := s.campaignLeads(ctx, campaign.ID)
	if err != nil {
		return err
	}
	summary.LeadsChecked += len(leads)

	for _, lead := range leads {
		if !lead.HasReplied() {
			continue
		}
		summary.RepliesFound++
		if lead.Email == "" {
			continue
		}

		crmLead, err := s.repo.FindByEmail(ctx, lead.Email)
		if errors.Is(err, crm.ErrNotFound) {
			logger.Debug("lead not in CRM", "email", lead.Email)
			summary.NotInCRM++
			continue
		}
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("Failed to look up %s: %v", lead.Email, err))
			continue
		}
		if crmLead.HasResponse() {
			logger.Debug("already synced", "email", lead.Email)
			summary.AlreadySynced++
			continue
		}

		text := lead.ReplyText
		if text == "" {
			when := lead.RepliedWhen()
			if when == "" {
				when = "unknown date"
			}
			text = fmt.Sprintf("Replied on %s", when)
		}
		if err := s.repo.MarkResponseReceived(ctx, crmLead.ID, text); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("Failed to update %s", lead.Email))
			continue
		}
		logger.Info("updated CRM with reply", "email", lead.Email, "lead_id", crmLead.ID)
		summary.CRMUpdated++
	}
	return nil
}

// SyncAll runs the engagement pass: refreshes opens, clicks, and the
// platform status label for every matched lead, every run. Counters are
// overwritten, never merged; only the Response column keeps the
// write-once guard of the reply pass.
func (s *Syncer) SyncAll(ctx context.Context) (*Summary, error) {
	summary := newSummary("full", s.now())
	defer func() { summary.FinishedAt = s.now() }()

	campaigns, err := s.campaigns(ctx)
	if err != nil {
		return summary, fmt.Errorf("list campaigns: %w", err)
	}
	summary.CampaignsChecked = len(campaigns)
	logger.Info("starting full sync", "run_id", summary.RunID, "campaigns", len(campaigns))

	for _, campaign := range campaigns {
		if err := s.syncCampaignEngagement(ctx, campaign, summary); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("Error syncing campaign %s: %v", campaignName(campaign), err))
			logger.Error("campaign sync failed", "campaign", campaignName(campaign), "error", err.Error())
		}
	}

	logger.Info("full sync complete",
		"run_id", summary.RunID,
		"leads_checked", summary.LeadsChecked,
		"crm_updated", summary.CRMUpdated,
		"replies_found", summary.RepliesFound,
		"errors", len(summary.Errors))
	return summary, nil
}

func (s *Syncer) syncCampaignEngagement(ctx context.Context, campaign instantly.Campaign, summary *Summary) error {
	logger.Info("syncing campaign", "name", campaignName(campaign), "campaign_id", campaign.ID)

	leads, err := s.campaignLeads(ctx, campaign.ID)
	if err != nil {
		return err
	}
	summary.LeadsChecked += len(leads)

	for _, lead := range leads {
		if lead.Email == "" {
			continue
		}

		crmLead, err := s.repo.FindByEmail(ctx, lead.Email)
		if errors.Is(err, crm.ErrNotFound) {
			summary.NotInCRM++
			continue
		}
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("Failed to look up %s: %v", lead.Email, err))
			continue
		}

		opens := lead.EmailOpenCount.Int()
		clicks := lead.EmailClickCount.Int()
		update := crm.EngagementUpdate{
			Opens:           &opens,
			Clicks:          &clicks,
			InstantlyStatus: lead.Status.Label(),
		}

		if replyCount := lead.EmailReplyCount.Int(); replyCount > 0 || lead.HasReplied() {
			summary.RepliesFound++
			if crmLead.HasResponse() {
				summary.AlreadySynced++
			} else if replyCount > 0 {
				update.Response = fmt.Sprintf("Replied (%d replies)", replyCount)
			} else {
				when := lead.RepliedWhen()
				if when == "" {
					when = "unknown date"
				}
				update.Response = fmt.Sprintf("Replied on %s", when)
			}
		}

		if err := s.repo.UpdateEngagement(ctx, lead.Email, update); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("Failed to update %s", lead.Email))
			continue
		}
		summary.CRMUpdated++
	}
	return nil
}

func campaignName(c instantly.Campaign) string {
	if c.Name != "" {
		return c.Name
	}
	return "Unknown"
}
