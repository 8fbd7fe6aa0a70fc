package instantly

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(Config{APIKey: "test-key"})
	if client.config.BaseURL != defaultBaseURL {
		t.Errorf("Expected baseURL %s, got %s", defaultBaseURL, client.config.BaseURL)
	}
}

func TestListCampaigns(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Expected bearer auth, got %q", got)
		}
		calls++
		if r.URL.Query().Get("starting_after") == "" {
			json.NewEncoder(w).Encode(campaignList{
				Items: []Campaign{
					{ID: "c1", Name: "Agency Outreach Q2"},
					{ID: "c2", Name: "Agency Outreach Q3"},
				},
				NextStartingAfter: "c2",
			})
			return
		}
		json.NewEncoder(w).Encode(campaignList{
			Items: []Campaign{{ID: "c3", Name: "Retargeting"}},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	campaigns, err := client.ListCampaigns(context.Background())
	if err != nil {
		t.Fatalf("ListCampaigns failed: %v", err)
	}
	if len(campaigns) != 3 {
		t.Fatalf("Expected 3 campaigns, got %d", len(campaigns))
	}
	if calls != 2 {
		t.Errorf("Expected 2 pages fetched, got %d", calls)
	}
	if campaigns[2].ID != "c3" {
		t.Errorf("Expected last campaign c3, got %s", campaigns[2].ID)
	}
}

func TestFindCampaignByName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(campaignList{
			Items: []Campaign{{ID: "c1", Name: "Existing Campaign"}},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})

	campaign, err := client.FindCampaignByName(context.Background(), "Existing Campaign")
	if err != nil {
		t.Fatalf("FindCampaignByName failed: %v", err)
	}
	if campaign.ID != "c1" {
		t.Errorf("Expected campaign c1, got %+v", campaign)
	}

	_, err = client.FindCampaignByName(context.Background(), "Missing Campaign")
	if !errors.Is(err, ErrCampaignNotFound) {
		t.Errorf("Expected ErrCampaignNotFound, got %v", err)
	}
}

func TestAddLeadsContinuesPastRejection(t *testing.T) {
	var payloads []NewLead
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var lead NewLead
		json.NewDecoder(r.Body).Decode(&lead)
		payloads = append(payloads, lead)
		if lead.Email == "bad@lead.com" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid email"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "lead-" + lead.Email})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	added, err := client.AddLeads(context.Background(), "c1", []NewLead{
		{Email: "a@a.com", FirstName: "Ann", CustomVariables: map[string]string{"personalized_opener": "Hi Ann"}},
		{Email: "bad@lead.com"},
		{Email: "b@b.com"},
	})
	if added != 2 {
		t.Errorf("Expected 2 leads added, got %d", added)
	}
	if err == nil {
		t.Error("Expected joined error for the rejected lead")
	}
	if len(payloads) != 3 {
		t.Fatalf("Expected 3 requests, got %d", len(payloads))
	}
	for _, p := range payloads {
		if p.Campaign != "c1" {
			t.Errorf("Expected campaign c1 on payload, got %q", p.Campaign)
		}
	}
	if payloads[0].CustomVariables["personalized_opener"] != "Hi Ann" {
		t.Error("Expected custom variables forwarded")
	}
}

func TestListLeadsFlexibleFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST leads/list, got %s", r.Method)
		}
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["campaign_id"] != "c1" {
			t.Errorf("Expected campaign_id c1, got %v", body["campaign_id"])
		}
		// Heterogeneous field types, as seen across real workspaces.
		w.Write([]byte(`{"items":[
			{"email":"a@a.com","status":6,"email_reply_count":"2","email_open_count":5},
			{"email":"b@b.com","status":"replied","replied":"true","reply_count":null},
			{"email":"c@c.com","status":1,"replied":0,"email_click_count":1.0}
		]}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	leads, err := client.ListLeads(context.Background(), "c1", 100, 0)
	if err != nil {
		t.Fatalf("ListLeads failed: %v", err)
	}
	if len(leads) != 3 {
		t.Fatalf("Expected 3 leads, got %d", len(leads))
	}

	if leads[0].Status.Code() != 6 || leads[0].Status.Label() != "Replied" {
		t.Errorf("Expected numeric status 6/Replied, got %d/%s", leads[0].Status.Code(), leads[0].Status.Label())
	}
	if leads[0].EmailReplyCount.Int() != 2 || leads[0].EmailOpenCount.Int() != 5 {
		t.Errorf("Expected counters 2/5, got %d/%d", leads[0].EmailReplyCount.Int(), leads[0].EmailOpenCount.Int())
	}
	if !leads[1].HasReplied() {
		t.Error("Expected text status 'replied' to count as a reply")
	}
	if leads[1].Status.Label() != "replied" {
		t.Errorf("Expected text label passthrough, got %s", leads[1].Status.Label())
	}
	if leads[2].HasReplied() {
		t.Error("Expected status 1 with replied=0 to not count as a reply")
	}
	if leads[2].EmailClickCount.Int() != 1 {
		t.Errorf("Expected click count 1, got %d", leads[2].EmailClickCount.Int())
	}
}

func TestListLeadsLegacyEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"leads":[{"email":"old@a.com","status":0}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	leads, err := client.ListLeads(context.Background(), "c1", 100, 0)
	if err != nil {
		t.Fatalf("ListLeads failed: %v", err)
	}
	if len(leads) != 1 || leads[0].Email != "old@a.com" {
		t.Errorf("Expected legacy envelope parsed, got %+v", leads)
	}
}

func TestStatusLabel(t *testing.T) {
	cases := map[int]string{
		0:  "Not Started",
		1:  "Active",
		4:  "Bounced",
		6:  "Replied",
		9:  "Meeting Booked",
		10: "Closed",
		99: "Unknown (99)",
		-1: "Unknown (-1)",
	}
	for code, want := range cases {
		if got := StatusLabel(code); got != want {
			t.Errorf("StatusLabel(%d) = %q, want %q", code, got, want)
		}
	}
}

func TestAPIErrorIncludesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL})
	_, err := client.GetCampaign(context.Background(), "c1")
	if err == nil {
		t.Fatal("Expected error for 401 response")
	}
}
