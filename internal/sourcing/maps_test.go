package sourcing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// mapsServer answers both geocode and places paths from one mux.
func mapsServer(t *testing.T, places http.HandlerFunc) (*MapsClient, *httptest.Server) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/geocode/json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":30.26,"lng":-97.74}}}]}`))
	})
	mux.HandleFunc("/places/", places)
	server := httptest.NewServer(mux)

	client := NewMapsClient(MapsConfig{
		APIKey:         "test-key",
		PlacesBaseURL:  server.URL + "/places",
		GeocodeBaseURL: server.URL + "/geocode",
	})
	client.SetDelays(0, 0)
	return client, server
}

func TestSearchBusinessesPaging(t *testing.T) {
	calls := 0
	client, server := mapsServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/places/textsearch/json" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		calls++
		if r.URL.Query().Get("pagetoken") == "" {
			w.Write([]byte(`{"status":"OK","results":[
				{"place_id":"p1","name":"Alpha Agency","business_status":"OPERATIONAL"},
				{"place_id":"p2","name":"Beta Agency"}
			],"next_page_token":"tok2"}`))
			return
		}
		w.Write([]byte(`{"status":"OK","results":[{"place_id":"p3","name":"Gamma Agency"}]}`))
	})
	defer server.Close()

	places, err := client.SearchBusinesses(context.Background(), "marketing agency in Austin", "Austin, USA", 5)
	if err != nil {
		t.Fatalf("SearchBusinesses failed: %v", err)
	}
	if len(places) != 3 {
		t.Fatalf("Expected 3 places, got %d", len(places))
	}
	if calls != 2 {
		t.Errorf("Expected 2 search calls, got %d", calls)
	}
	if places[1].BusinessStatus != "OPERATIONAL" {
		t.Errorf("Expected missing business_status defaulted to OPERATIONAL, got %q", places[1].BusinessStatus)
	}

	// maxResults truncates mid-page and skips the next token.
	calls = 0
	places, err = client.SearchBusinesses(context.Background(), "agency", "Austin, USA", 1)
	if err != nil {
		t.Fatalf("SearchBusinesses failed: %v", err)
	}
	if len(places) != 1 || calls != 1 {
		t.Errorf("Expected 1 place from 1 call, got %d from %d", len(places), calls)
	}
}

func TestSearchBusinessesZeroResults(t *testing.T) {
	client, server := mapsServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	})
	defer server.Close()

	places, err := client.SearchBusinesses(context.Background(), "basket weaving agency", "Austin, USA", 5)
	if err != nil {
		t.Fatalf("Expected ZERO_RESULTS to be an empty answer, got error: %v", err)
	}
	if len(places) != 0 {
		t.Errorf("Expected no places, got %d", len(places))
	}
}

func TestSearchAgenciesFiltering(t *testing.T) {
	client, server := mapsServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/places/textsearch/json":
			w.Write([]byte(`{"status":"OK","results":[
				{"place_id":"p1","name":"Good Agency","business_status":"OPERATIONAL"},
				{"place_id":"p1","name":"Good Agency","business_status":"OPERATIONAL"},
				{"place_id":"p2","name":"Closed Agency","business_status":"CLOSED_PERMANENTLY"},
				{"place_id":"p3","name":"Franchise School of Marketing","business_status":"OPERATIONAL"}
			]}`))
		case "/places/details/json":
			fmt.Fprintf(w, `{"status":"OK","result":{"name":"Good Agency","website":"https://good.com","formatted_phone_number":"+1 555 0100"}}`)
		default:
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
	})
	defer server.Close()

	agencies, err := client.SearchAgencies(context.Background(), SearchSpec{
		City:            "Austin",
		Country:         "USA",
		Queries:         []string{"marketing agency"},
		MaxPerQuery:     10,
		ExcludeKeywords: []string{"school", "university"},
	})
	if err != nil {
		t.Fatalf("SearchAgencies failed: %v", err)
	}
	if len(agencies) != 1 {
		t.Fatalf("Expected 1 agency after filtering, got %d", len(agencies))
	}
	got := agencies[0]
	if got.Website != "https://good.com" || got.Phone != "+1 555 0100" {
		t.Errorf("Expected details merged, got %+v", got)
	}
	if got.City != "Austin" || got.Country != "USA" {
		t.Errorf("Expected location stamped, got %s/%s", got.City, got.Country)
	}
}

func TestGeocodeFailureReturnsEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/geocode/json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewMapsClient(MapsConfig{
		APIKey:         "k",
		PlacesBaseURL:  server.URL + "/places",
		GeocodeBaseURL: server.URL + "/geocode",
	})
	client.SetDelays(0, 0)

	places, err := client.SearchBusinesses(context.Background(), "agency", "Atlantis", 5)
	if err != nil {
		t.Fatalf("Expected ungeocodable location to yield empty result, got %v", err)
	}
	if places != nil {
		t.Errorf("Expected nil places, got %v", places)
	}
}
