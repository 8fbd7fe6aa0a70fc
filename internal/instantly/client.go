// Package instantly is a client for the Instantly.ai V2 API: campaign
// management, lead enrollment, and the lead listings the sync engine
// consumes.
package instantly

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ignite/lead-automation/internal/pkg/httpretry"
	"github.com/ignite/lead-automation/internal/pkg/logger"
)

const defaultBaseURL = "https://api.instantly.ai/api/v2"

// ErrCampaignNotFound is returned when a campaign lookup misses.
var ErrCampaignNotFound = errors.New("campaign not found")

// Config holds Instantly API configuration.
type Config struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// Client is an Instantly.ai V2 API client using Bearer authentication.
type Client struct {
	config     Config
	httpClient httpretry.HTTPDoer
}

// NewClient creates a new Instantly API client.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	return &Client{
		config: config,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: 30 * time.Second,
		}, 3),
	}
}

// SetHTTPClient overrides the underlying HTTP client (tests).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, query url.Values, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	reqURL := fmt.Sprintf("%s/%s", c.config.BaseURL, endpoint)
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("instantly API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// campaignList is the V2 paginated envelope for campaign listings.
type campaignList struct {
	Items             []Campaign `json:"items"`
	NextStartingAfter string     `json:"next_starting_after"`
}

// ListCampaigns returns every campaign in the workspace, following the
// starting_after cursor until the API stops returning one.
func (c *Client) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	var all []Campaign
	startingAfter := ""
	for {
		query := url.Values{"limit": {"100"}}
		if startingAfter != "" {
			query.Set("starting_after", startingAfter)
		}
		respBody, err := c.doRequest(ctx, http.MethodGet, "campaigns", query, nil)
		if err != nil {
			return nil, err
		}
		var page campaignList
		if err := json.Unmarshal(respBody, &page); err != nil {
			return nil, fmt.Errorf("parse campaigns response: %w", err)
		}
		all = append(all, page.Items...)
		if page.NextStartingAfter == "" || len(page.Items) == 0 {
			return all, nil
		}
		startingAfter = page.NextStartingAfter
	}
}

// GetCampaign fetches a single campaign by ID.
func (c *Client) GetCampaign(ctx context.Context, campaignID string) (Campaign, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, "campaigns/"+campaignID, nil, nil)
	if err != nil {
		return Campaign{}, err
	}
	var campaign Campaign
	if err := json.Unmarshal(respBody, &campaign); err != nil {
		return Campaign{}, fmt.Errorf("parse campaign response: %w", err)
	}
	return campaign, nil
}

// CreateCampaign creates a campaign with the given name.
func (c *Client) CreateCampaign(ctx context.Context, name string) (Campaign, error) {
	respBody, err := c.doRequest(ctx, http.MethodPost, "campaigns", nil, map[string]string{"name": name})
	if err != nil {
		return Campaign{}, err
	}
	var campaign Campaign
	if err := json.Unmarshal(respBody, &campaign); err != nil {
		return Campaign{}, fmt.Errorf("parse campaign response: %w", err)
	}
	logger.Info("campaign created", "name", name, "campaign_id", campaign.ID)
	return campaign, nil
}

// FindCampaignByName returns the campaign with the exact given name.
// Returns ErrCampaignNotFound when no campaign matches.
func (c *Client) FindCampaignByName(ctx context.Context, name string) (Campaign, error) {
	campaigns, err := c.ListCampaigns(ctx)
	if err != nil {
		return Campaign{}, err
	}
	for _, campaign := range campaigns {
		if campaign.Name == name {
			return campaign, nil
		}
	}
	return Campaign{}, ErrCampaignNotFound
}

// AddLeads enrolls leads one at a time, the way the V2 API requires, and
// returns how many were accepted. A rejected lead does not stop the batch;
// all per-lead failures come back joined in the error.
func (c *Client) AddLeads(ctx context.Context, campaignID string, leads []NewLead) (int, error) {
	added := 0
	var errs []error
	for _, lead := range leads {
		lead.Campaign = campaignID
		if _, err := c.doRequest(ctx, http.MethodPost, "leads", nil, lead); err != nil {
			logger.Warn("lead rejected by campaign", "campaign_id", campaignID, "email", lead.Email, "error", err.Error())
			errs = append(errs, fmt.Errorf("add %s: %w", lead.Email, err))
			continue
		}
		added++
		logger.Info("lead added to campaign", "campaign_id", campaignID, "email", lead.Email)
	}
	return added, errors.Join(errs...)
}

// leadList is the envelope for leads/list. Older workspaces still answer
// with a bare "leads" array instead of "items".
type leadList struct {
	Items []CampaignLead `json:"items"`
	Leads []CampaignLead `json:"leads"`
}

// ListLeads returns one page of campaign leads. Pagination is skip/limit;
// callers page until a short or empty page comes back.
func (c *Client) ListLeads(ctx context.Context, campaignID string, limit, skip int) ([]CampaignLead, error) {
	body := map[string]interface{}{
		"limit": limit,
		"skip":  skip,
	}
	if campaignID != "" {
		body["campaign_id"] = campaignID
	}
	respBody, err := c.doRequest(ctx, http.MethodPost, "leads/list", nil, body)
	if err != nil {
		return nil, err
	}
	var page leadList
	if err := json.Unmarshal(respBody, &page); err != nil {
		return nil, fmt.Errorf("parse leads response: %w", err)
	}
	if page.Items != nil {
		return page.Items, nil
	}
	return page.Leads, nil
}

// GetAnalytics fetches aggregate counters for a campaign.
func (c *Client) GetAnalytics(ctx context.Context, campaignID string) (CampaignAnalytics, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("campaigns/%s/analytics", campaignID), nil, nil)
	if err != nil {
		return CampaignAnalytics{}, err
	}
	var analytics CampaignAnalytics
	if err := json.Unmarshal(respBody, &analytics); err != nil {
		return CampaignAnalytics{}, fmt.Errorf("parse analytics response: %w", err)
	}
	return analytics, nil
}

// PauseCampaign stops sending for a campaign.
func (c *Client) PauseCampaign(ctx context.Context, campaignID string) error {
	_, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("campaigns/%s/pause", campaignID), nil, nil)
	return err
}

// ResumeCampaign re-activates a paused campaign.
func (c *Client) ResumeCampaign(ctx context.Context, campaignID string) error {
	_, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("campaigns/%s/activate", campaignID), nil, nil)
	return err
}

// SetSchedule sets the sending window for a campaign. A nil Days list
// defaults to Monday through Friday.
func (c *Client) SetSchedule(ctx context.Context, campaignID string, schedule Schedule) error {
	if schedule.Days == nil {
		schedule.Days = []int{1, 2, 3, 4, 5}
	}
	if schedule.Timezone == "" {
		schedule.Timezone = "America/New_York"
	}
	body := map[string]interface{}{
		"campaign_id": campaignID,
		"schedule":    schedule,
	}
	_, err := c.doRequest(ctx, http.MethodPost, "campaign/update/schedule", nil, body)
	return err
}

// SetSequences replaces the email sequence for a campaign.
func (c *Client) SetSequences(ctx context.Context, campaignID string, steps []SequenceStep) error {
	body := map[string]interface{}{
		"campaign_id": campaignID,
		"sequences":   steps,
	}
	_, err := c.doRequest(ctx, http.MethodPost, "campaign/update/sequences", nil, body)
	return err
}
