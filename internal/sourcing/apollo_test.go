package sourcing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func apolloTestClient(server *httptest.Server) *ApolloClient {
	return NewApolloClient(ApolloConfig{APIKey: "test-key", BaseURL: server.URL + "/v1"})
}

func TestSearchOrganization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/organizations/search" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "test-key" {
			t.Error("Missing X-Api-Key header")
		}
		var payload map[string]interface{}
		json.NewDecoder(r.Body).Decode(&payload)
		if payload["q_organization_domains"] != "acme.com" {
			t.Errorf("Expected cleaned domain acme.com, got %v", payload["q_organization_domains"])
		}
		w.Write([]byte(`{"organizations":[
			{"id":"org1","name":"Acme Media","primary_domain":"acme.com","industry":"marketing & advertising","estimated_num_employees":42},
			{"id":"org2","name":"Acme Media GmbH"}
		]}`))
	}))
	defer server.Close()

	org, err := apolloTestClient(server).SearchOrganization(context.Background(), "Acme Media", "https://www.acme.com/about")
	if err != nil {
		t.Fatalf("SearchOrganization failed: %v", err)
	}
	if org.ID != "org1" || org.EmployeeCount != 42 {
		t.Errorf("Expected first match org1 with 42 employees, got %+v", org)
	}
}

func TestSearchOrganizationNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"organizations":[]}`))
	}))
	defer server.Close()

	_, err := apolloTestClient(server).SearchOrganization(context.Background(), "Nobody Inc", "")
	if !errors.Is(err, ErrNoMatch) {
		t.Errorf("Expected ErrNoMatch, got %v", err)
	}
}

func TestFindContactsEnrichesOnlyEmailHolders(t *testing.T) {
	var enriched []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/mixed_people/api_search":
			w.Write([]byte(`{"people":[
				{"id":"per1","name":"Ann Founder","has_email":true},
				{"id":"per2","name":"Bob NoEmail","has_email":false},
				{"id":"per3","name":"Cat Director","has_email":true}
			]}`))
		case "/v1/people/match":
			var payload map[string]string
			json.NewDecoder(r.Body).Decode(&payload)
			enriched = append(enriched, payload["id"])
			json.NewEncoder(w).Encode(map[string]interface{}{
				"person": map[string]string{
					"id":    payload["id"],
					"email": payload["id"] + "@acme.com",
					"title": "Founder",
				},
			})
		default:
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	contacts, err := apolloTestClient(server).FindContacts(context.Background(), "https://acme.com", "Acme", 3)
	if err != nil {
		t.Fatalf("FindContacts failed: %v", err)
	}
	if len(contacts) != 2 {
		t.Fatalf("Expected 2 contacts, got %d", len(contacts))
	}
	if len(enriched) != 2 || enriched[0] != "per1" || enriched[1] != "per3" {
		t.Errorf("Expected only email holders enriched, got %v", enriched)
	}
	if contacts[0].Email != "per1@acme.com" {
		t.Errorf("Expected enriched email, got %q", contacts[0].Email)
	}
}

func TestFindContactsWithoutIdentifier(t *testing.T) {
	contacts, err := NewApolloClient(ApolloConfig{APIKey: "k"}).FindContacts(context.Background(), "", "", 3)
	if err != nil || contacts != nil {
		t.Errorf("Expected nil result for missing identifiers, got %v/%v", contacts, err)
	}
}

func TestEnrichLeadDegradesToContactsOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/organizations/search":
			w.Write([]byte(`{"organizations":[]}`))
		case "/api/v1/mixed_people/api_search":
			w.Write([]byte(`{"people":[{"id":"per1","has_email":true}]}`))
		case "/v1/people/match":
			w.Write([]byte(`{"person":{"id":"per1","email":"owner@solo.com","name":"Sol Owner"}}`))
		}
	}))
	defer server.Close()

	enrichment, err := apolloTestClient(server).EnrichLead(context.Background(), "Solo Studio", "https://solo.com")
	if err != nil {
		t.Fatalf("EnrichLead failed: %v", err)
	}
	if enrichment.Organization.ID != "" {
		t.Error("Expected empty organization on no match")
	}
	if !enrichment.HasPrimaryContact() || enrichment.PrimaryContact.Email != "owner@solo.com" {
		t.Errorf("Expected primary contact selected, got %+v", enrichment.PrimaryContact)
	}
}

func TestCleanDomain(t *testing.T) {
	cases := map[string]string{
		"https://www.acme.com/about":  "acme.com",
		"http://acme.com":             "acme.com",
		"acme.com/contact?ref=1":      "acme.com",
		"www.sub.acme.co.uk":          "sub.acme.co.uk",
	}
	for in, want := range cases {
		if got := cleanDomain(in); got != want {
			t.Errorf("cleanDomain(%q) = %q, want %q", in, got, want)
		}
	}
}
