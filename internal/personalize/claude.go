// Package personalize generates per-lead email content with Claude and
// enrolls the personalized leads into the outreach campaign.
package personalize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ignite/lead-automation/internal/domain"
	"github.com/ignite/lead-automation/internal/pkg/httpretry"
	"github.com/ignite/lead-automation/internal/pkg/logger"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion        = "2023-06-01"
	defaultModel            = "claude-sonnet-4-20250514"
)

// ClaudeConfig holds Anthropic API configuration.
type ClaudeConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// SenderInfo describes who the email is from, fed into the prompt.
type SenderInfo struct {
	Bio              string `yaml:"sender_bio"`
	ValueProposition string `yaml:"value_proposition"`
}

// Components are the generated pieces a campaign template interpolates.
type Components struct {
	PersonalizedOpener      string `json:"personalized_opener"`
	SpecificPainPoint       string `json:"specific_pain_point"`
	IndustrySpecificInsight string `json:"industry_specific_insight"`
	SuggestedSubject        string `json:"suggested_subject"`
}

// ClaudeClient calls the Anthropic messages API.
type ClaudeClient struct {
	config     ClaudeConfig
	httpClient httpretry.HTTPDoer
}

// NewClaudeClient creates a Claude client.
func NewClaudeClient(config ClaudeConfig) *ClaudeClient {
	if config.BaseURL == "" {
		config.BaseURL = defaultAnthropicBaseURL
	}
	if config.Model == "" {
		config.Model = defaultModel
	}
	return &ClaudeClient{
		config: config,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: 60 * time.Second,
		}, 3),
	}
}

// SetHTTPClient overrides the underlying HTTP client (tests).
func (c *ClaudeClient) SetHTTPClient(client httpretry.HTTPDoer) { c.httpClient = client }

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Personalize generates components for one lead. Any failure, transport
// or malformed model output alike, degrades to the deterministic fallback
// so the outreach pipeline never stalls on the AI.
func (c *ClaudeClient) Personalize(ctx context.Context, lead domain.Candidate, sender SenderInfo) Components {
	prompt := buildPrompt(lead, sender)

	text, err := c.complete(ctx, prompt)
	if err != nil {
		logger.Error("personalization failed", "company", lead.Company, "error", err.Error())
		return FallbackComponents(lead)
	}

	var components Components
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &components); err != nil {
		logger.Error("personalization returned malformed JSON", "company", lead.Company, "error", err.Error())
		return FallbackComponents(lead)
	}

	logger.Info("email personalized", "company", lead.Company, "has_opener", components.PersonalizedOpener != "")
	return components
}

func (c *ClaudeClient) complete(ctx context.Context, prompt string) (string, error) {
	reqBody, err := json.Marshal(messagesRequest{
		Model:     c.config.Model,
		MaxTokens: 500,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/messages", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.config.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result messagesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(result.Content) == 0 {
		return "", fmt.Errorf("empty completion")
	}
	return strings.TrimSpace(result.Content[0].Text), nil
}

// stripCodeFence removes a ```json / ``` wrapper when the model insists
// on one despite the prompt.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// FallbackComponents is the deterministic stand-in when generation fails.
func FallbackComponents(lead domain.Candidate) Components {
	company := lead.Company
	if company == "" {
		company = "your agency"
	}
	industry := lead.Industry
	if industry == "" {
		industry = "the industry"
	}
	return Components{
		PersonalizedOpener:      fmt.Sprintf("I came across %s and was impressed by your work in %s.", company, industry),
		SpecificPainPoint:       "Many agencies spend hours each week on manual data entry and reporting that could be fully automated.",
		IndustrySpecificInsight: "Agencies that automate their lead management typically see 40% more time for client work.",
		SuggestedSubject:        fmt.Sprintf("Quick question for %s", company),
	}
}

func buildPrompt(lead domain.Candidate, sender SenderInfo) string {
	bio := sender.Bio
	if bio == "" {
		bio = "An automation specialist helping agencies eliminate manual work."
	}
	valueProp := sender.ValueProposition
	if valueProp == "" {
		valueProp = "Helping agencies automate repetitive processes."
	}

	return fmt.Sprintf(`You are helping write a personalized cold email for a boutique automation agency.

SENDER INFORMATION:
%s

VALUE PROPOSITION:
%s

LEAD INFORMATION:
%s

YOUR TASK:
Generate personalized email components for this lead. Be specific, reference real details about their company, and identify relevant pain points.

Return a JSON object with these fields:
1. "personalized_opener": 1-2 sentences referencing something specific about their company or work. Don't be generic.
2. "specific_pain_point": 1-2 sentences about a likely automation opportunity based on what they do. Be concrete.
3. "industry_specific_insight": A valuable observation about automation trends in their industry.
4. "suggested_subject": A compelling, non-spammy subject line.

Guidelines:
- Be conversational, not salesy
- Reference specific details (their services, size, industry)
- The opener should show you did research
- Pain points should be realistic for agencies of their size/type
- Keep each component concise (1-3 sentences max)
- Avoid clichés like "I hope this finds you well" or "I noticed your company"

Return ONLY valid JSON, no other text.`, bio, valueProp, leadContext(lead))
}

// leadContext flattens what we know about the lead into prompt lines.
func leadContext(lead domain.Candidate) string {
	var parts []string
	if lead.Company != "" {
		parts = append(parts, "Company: "+lead.Company)
	}
	if lead.ContactName != "" {
		line := "Contact: " + lead.ContactName
		if lead.Title != "" {
			line += " (" + lead.Title + ")"
		}
		parts = append(parts, line)
	}
	if lead.Industry != "" {
		parts = append(parts, "Industry: "+lead.Industry)
	}
	if lead.EmployeeCount != "" {
		parts = append(parts, "Company size: ~"+lead.EmployeeCount+" employees")
	}
	if lead.City != "" && lead.Country != "" {
		parts = append(parts, fmt.Sprintf("Location: %s, %s", lead.City, lead.Country))
	}
	if lead.Website != "" {
		parts = append(parts, "Website: "+lead.Website)
	}
	if lead.Description != "" {
		parts = append(parts, "About: "+lead.Description)
	}
	if len(lead.Technologies) > 0 {
		parts = append(parts, "Technologies: "+strings.Join(head(lead.Technologies, 5), ", "))
	}
	if len(lead.Keywords) > 0 {
		parts = append(parts, "Keywords: "+strings.Join(head(lead.Keywords, 5), ", "))
	}
	if len(parts) == 0 {
		return "Limited information available about this company."
	}
	return strings.Join(parts, "\n")
}

func head(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
