package sourcing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ignite/lead-automation/internal/pkg/httpretry"
	"github.com/ignite/lead-automation/internal/pkg/logger"
)

const defaultApolloBaseURL = "https://api.apollo.io/v1"

// ErrNoMatch is returned when Apollo has no record for the query.
var ErrNoMatch = errors.New("no match in apollo")

// ApolloConfig holds Apollo.io API configuration.
type ApolloConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// ApolloClient enriches companies and finds decision-maker contacts
// through the Apollo.io API.
type ApolloClient struct {
	config     ApolloConfig
	httpClient httpretry.HTTPDoer
}

// NewApolloClient creates an Apollo API client.
func NewApolloClient(config ApolloConfig) *ApolloClient {
	if config.BaseURL == "" {
		config.BaseURL = defaultApolloBaseURL
	}
	return &ApolloClient{
		config: config,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: 30 * time.Second,
		}, 3),
	}
}

// SetHTTPClient overrides the underlying HTTP client (tests).
func (c *ApolloClient) SetHTTPClient(client httpretry.HTTPDoer) { c.httpClient = client }

// Organization is a company record from Apollo's database.
type Organization struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Domain        string   `json:"primary_domain"`
	Industry      string   `json:"industry"`
	EmployeeCount int      `json:"estimated_num_employees"`
	FoundedYear   int      `json:"founded_year"`
	LinkedInURL   string   `json:"linkedin_url"`
	Description   string   `json:"short_description"`
	Technologies  []string `json:"technologies"`
	Keywords      []string `json:"keywords"`
	City          string   `json:"city"`
	State         string   `json:"state"`
	Country       string   `json:"country"`
}

// Contact is a person record, populated with email after enrichment.
type Contact struct {
	ID          string `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	FullName    string `json:"name"`
	Email       string `json:"email"`
	EmailStatus string `json:"email_status"`
	Title       string `json:"title"`
	Seniority   string `json:"seniority"`
	LinkedInURL string `json:"linkedin_url"`
	HasEmail    bool   `json:"has_email"`
}

func (c *ApolloClient) post(ctx context.Context, rawURL string, payload, out interface{}) error {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("X-Api-Key", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("apollo API error (status %d): %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// cleanDomain strips scheme, www, and path from a website URL.
func cleanDomain(website string) string {
	domain := strings.TrimPrefix(website, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	domain = strings.TrimPrefix(domain, "www.")
	if i := strings.Index(domain, "/"); i >= 0 {
		domain = domain[:i]
	}
	return domain
}

// SearchOrganization finds the best-matching company. Returns ErrNoMatch
// when Apollo knows nothing about it.
func (c *ApolloClient) SearchOrganization(ctx context.Context, companyName, website string) (Organization, error) {
	payload := map[string]interface{}{
		"q_organization_name": companyName,
		"page":                1,
		"per_page":            5,
	}
	if website != "" {
		payload["q_organization_domains"] = cleanDomain(website)
	}

	var resp struct {
		Organizations []Organization `json:"organizations"`
	}
	if err := c.post(ctx, c.config.BaseURL+"/organizations/search", payload, &resp); err != nil {
		return Organization{}, err
	}
	if len(resp.Organizations) == 0 {
		logger.Debug("no organization found", "company", companyName)
		return Organization{}, ErrNoMatch
	}
	return resp.Organizations[0], nil
}

// defaultSeniorities are the decision-maker levels worth emailing.
var defaultSeniorities = []string{"owner", "founder", "c_suite", "vp", "director"}

// FindContacts returns up to limit contacts with verified emails at a
// company. The search endpoint is free; only people flagged has_email get
// the credit-costing enrichment call.
func (c *ApolloClient) FindContacts(ctx context.Context, website, companyName string, limit int) ([]Contact, error) {
	payload := map[string]interface{}{
		"page":               1,
		"per_page":           limit * 2,
		"person_seniorities": defaultSeniorities,
	}
	switch {
	case website != "":
		payload["q_organization_domains"] = cleanDomain(website)
	case companyName != "":
		payload["q_organization_name"] = companyName
	default:
		logger.Warn("no company identifier provided")
		return nil, nil
	}

	searchURL := strings.TrimSuffix(c.config.BaseURL, "/v1") + "/api/v1/mixed_people/api_search"
	var resp struct {
		People []Contact `json:"people"`
	}
	if err := c.post(ctx, searchURL, payload, &resp); err != nil {
		return nil, err
	}
	logger.Info("people found in search", "company", companyName, "count", len(resp.People))

	var contacts []Contact
	for _, person := range resp.People {
		if len(contacts) >= limit {
			break
		}
		if !person.HasEmail || person.ID == "" {
			continue
		}
		enriched, err := c.enrichPersonByID(ctx, person.ID)
		if err != nil {
			logger.Warn("person enrichment failed", "person_id", person.ID, "error", err.Error())
			continue
		}
		if enriched.Email != "" {
			contacts = append(contacts, enriched)
		}
	}
	logger.Info("contacts with emails found", "company", companyName, "count", len(contacts))
	return contacts, nil
}

// enrichPersonByID resolves a person's full record including email. This
// call costs Apollo credits.
func (c *ApolloClient) enrichPersonByID(ctx context.Context, personID string) (Contact, error) {
	var resp struct {
		Person Contact `json:"person"`
	}
	if err := c.post(ctx, c.config.BaseURL+"/people/match", map[string]string{"id": personID}, &resp); err != nil {
		return Contact{}, err
	}
	if resp.Person.ID == "" {
		return Contact{}, ErrNoMatch
	}
	return resp.Person, nil
}

// Enrichment is the merged Apollo view of one company: firmographics plus
// the contacts worth emailing, with the primary contact picked out.
type Enrichment struct {
	Organization   Organization
	Contacts       []Contact
	PrimaryContact Contact
}

// HasPrimaryContact reports whether a contact with an email was found.
func (e Enrichment) HasPrimaryContact() bool { return e.PrimaryContact.Email != "" }

// EnrichLead runs the full enrichment for one company: organization
// lookup, contact discovery, and primary-contact selection (first contact
// with an email). Missing organization data degrades to contacts-only.
func (c *ApolloClient) EnrichLead(ctx context.Context, companyName, website string) (Enrichment, error) {
	enrichment := Enrichment{}

	org, err := c.SearchOrganization(ctx, companyName, website)
	if err != nil && !errors.Is(err, ErrNoMatch) {
		return enrichment, err
	}
	enrichment.Organization = org

	contacts, err := c.FindContacts(ctx, website, companyName, 3)
	if err != nil {
		return enrichment, err
	}
	enrichment.Contacts = contacts
	for _, contact := range contacts {
		if contact.Email != "" {
			enrichment.PrimaryContact = contact
			break
		}
	}

	logger.Info("lead enriched", "company", companyName, "has_contacts", len(contacts) > 0)
	return enrichment, nil
}
