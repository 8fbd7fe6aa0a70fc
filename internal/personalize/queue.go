package personalize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ignite/lead-automation/internal/domain"
	"github.com/ignite/lead-automation/internal/instantly"
	"github.com/ignite/lead-automation/internal/pkg/logger"
)

// Personalizer produces email components for a candidate.
type Personalizer interface {
	Personalize(ctx context.Context, lead domain.Candidate, sender SenderInfo) Components
}

// CampaignEnroller is the slice of the outreach platform queueing needs.
type CampaignEnroller interface {
	FindCampaignByName(ctx context.Context, name string) (instantly.Campaign, error)
	CreateCampaign(ctx context.Context, name string) (instantly.Campaign, error)
	SetSequences(ctx context.Context, campaignID string, steps []instantly.SequenceStep) error
	SetSchedule(ctx context.Context, campaignID string, schedule instantly.Schedule) error
	AddLeads(ctx context.Context, campaignID string, leads []instantly.NewLead) (int, error)
}

// OutreachRepository is the slice of the CRM repository queueing needs.
type OutreachRepository interface {
	LeadsForOutreach(ctx context.Context, limit int) ([]domain.Lead, error)
	UpdateFields(ctx context.Context, id string, updates map[string]string) error
}

// Queuer personalizes leads and enrolls them in the outreach campaign.
type Queuer struct {
	personalizer Personalizer
	platform     CampaignEnroller
	repo         OutreachRepository
	campaignName string
	templates    *Templates
	renderer     *Renderer
}

// NewQueuer creates the personalize-and-queue flow.
func NewQueuer(personalizer Personalizer, platform CampaignEnroller, repo OutreachRepository, campaignName string, templates *Templates) *Queuer {
	return &Queuer{
		personalizer: personalizer,
		platform:     platform,
		repo:         repo,
		campaignName: campaignName,
		templates:    templates,
		renderer:     NewRenderer(),
	}
}

// ensureCampaign returns the campaign with the configured name. A missing
// campaign is created and set up: the default sequence goes out with
// SetSequences and the sending window with SetSchedule, so the first run
// against a fresh workspace leaves a campaign ready to send.
func (q *Queuer) ensureCampaign(ctx context.Context) (instantly.Campaign, error) {
	campaign, err := q.platform.FindCampaignByName(ctx, q.campaignName)
	if err == nil {
		return campaign, nil
	}
	if !errors.Is(err, instantly.ErrCampaignNotFound) {
		return instantly.Campaign{}, err
	}

	campaign, err = q.platform.CreateCampaign(ctx, q.campaignName)
	if err != nil {
		return instantly.Campaign{}, err
	}
	if err := q.setupCampaign(ctx, campaign.ID); err != nil {
		return instantly.Campaign{}, err
	}
	logger.Info("campaign setup complete", "campaign_id", campaign.ID, "name", q.campaignName)
	return campaign, nil
}

func (q *Queuer) setupCampaign(ctx context.Context, campaignID string) error {
	seq, err := q.templates.DefaultSequence()
	if err != nil {
		return err
	}
	steps, err := q.renderer.SequenceSteps(seq)
	if err != nil {
		return err
	}
	if err := q.platform.SetSequences(ctx, campaignID, steps); err != nil {
		return fmt.Errorf("set sequences: %w", err)
	}
	schedule := instantly.Schedule{StartHour: 9, EndHour: 17}
	if err := q.platform.SetSchedule(ctx, campaignID, schedule); err != nil {
		return fmt.Errorf("set schedule: %w", err)
	}
	return nil
}

// QueueNewLeads personalizes up to limit outreach-ready CRM leads and
// adds them to the campaign with their components as custom variables.
// Leads the platform accepts move to Queued; rejected leads keep their
// status so the next run retries them. Returns how many were queued.
func (q *Queuer) QueueNewLeads(ctx context.Context, limit int) (int, error) {
	leads, err := q.repo.LeadsForOutreach(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("load outreach leads: %w", err)
	}
	if len(leads) == 0 {
		logger.Info("no leads to process")
		return 0, nil
	}
	logger.Info("personalizing leads", "count", len(leads))

	campaign, err := q.ensureCampaign(ctx)
	if err != nil {
		return 0, fmt.Errorf("ensure campaign %q: %w", q.campaignName, err)
	}

	queued := 0
	for _, lead := range leads {
		candidate := candidateFromLead(lead)
		components := q.personalizer.Personalize(ctx, candidate, q.templates.Sender)

		payload := enrollmentPayload(lead, components)
		added, err := q.platform.AddLeads(ctx, campaign.ID, []instantly.NewLead{payload})
		if err != nil || added == 0 {
			logger.Warn("lead not queued", "email", lead.Email, "company", lead.Company)
			continue
		}

		if err := q.repo.UpdateFields(ctx, lead.ID, map[string]string{"status": domain.StatusQueued}); err != nil {
			logger.Error("failed to mark lead queued", "lead_id", lead.ID, "error", err.Error())
			continue
		}
		queued++
		logger.Info("lead queued", "email", lead.Email, "campaign_id", campaign.ID)
	}

	logger.Info("leads added to campaign", "count", queued, "campaign", q.campaignName)
	return queued, nil
}

// enrollmentPayload builds the platform payload for one lead. The contact
// name splits into first/last; generated components ride along as custom
// variables for the sequence templates.
func enrollmentPayload(lead domain.Lead, components Components) instantly.NewLead {
	first, last := splitName(lead.ContactName)
	payload := instantly.NewLead{
		Email:       lead.Email,
		FirstName:   first,
		LastName:    last,
		CompanyName: lead.Company,
		Website:     lead.Website,
		Phone:       lead.Phone,
	}

	customVars := map[string]string{}
	if components.PersonalizedOpener != "" {
		customVars["personalized_opener"] = components.PersonalizedOpener
	}
	if components.SpecificPainPoint != "" {
		customVars["specific_pain_point"] = components.SpecificPainPoint
	}
	if components.IndustrySpecificInsight != "" {
		customVars["industry_specific_insight"] = components.IndustrySpecificInsight
	}
	if lead.Industry != "" {
		customVars["industry"] = lead.Industry
	}
	if lead.City != "" {
		customVars["city"] = lead.City
	}
	if len(customVars) > 0 {
		payload.CustomVariables = customVars
	}
	return payload
}

func splitName(contactName string) (first, last string) {
	fields := strings.Fields(contactName)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

// candidateFromLead maps a stored lead back to the candidate shape the
// prompt builder consumes.
func candidateFromLead(lead domain.Lead) domain.Candidate {
	return domain.Candidate{
		Company:       lead.Company,
		ContactName:   lead.ContactName,
		Email:         lead.Email,
		Phone:         lead.Phone,
		Website:       lead.Website,
		Industry:      lead.Industry,
		EmployeeCount: lead.EmployeeCount,
		City:          lead.City,
		Country:       lead.Country,
		LinkedIn:      lead.LinkedIn,
		Title:         lead.Title,
	}
}
