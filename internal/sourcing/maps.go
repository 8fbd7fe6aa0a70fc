// Package sourcing finds new agency leads: Google Maps discovers
// companies, Apollo enriches them with contacts, the dedup engine scores
// and inserts what the CRM does not already have.
package sourcing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ignite/lead-automation/internal/pkg/httpretry"
	"github.com/ignite/lead-automation/internal/pkg/logger"
)

const (
	defaultPlacesBaseURL  = "https://maps.googleapis.com/maps/api/place"
	defaultGeocodeBaseURL = "https://maps.googleapis.com/maps/api/geocode"
)

// MapsConfig holds Google Maps API configuration.
type MapsConfig struct {
	APIKey         string `yaml:"api_key"`
	PlacesBaseURL  string `yaml:"places_base_url"`
	GeocodeBaseURL string `yaml:"geocode_base_url"`
}

// MapsClient queries the Google Maps Places and Geocoding APIs.
type MapsClient struct {
	config     MapsConfig
	httpClient httpretry.HTTPDoer
	// pageDelay is the wait Google requires before a next_page_token
	// becomes valid. detailDelay paces the per-place detail calls.
	pageDelay   time.Duration
	detailDelay time.Duration
}

// NewMapsClient creates a Places API client with production pacing.
func NewMapsClient(config MapsConfig) *MapsClient {
	if config.PlacesBaseURL == "" {
		config.PlacesBaseURL = defaultPlacesBaseURL
	}
	if config.GeocodeBaseURL == "" {
		config.GeocodeBaseURL = defaultGeocodeBaseURL
	}
	return &MapsClient{
		config: config,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: 30 * time.Second,
		}, 3),
		pageDelay:   2 * time.Second,
		detailDelay: 500 * time.Millisecond,
	}
}

// SetHTTPClient overrides the underlying HTTP client (tests).
func (c *MapsClient) SetHTTPClient(client httpretry.HTTPDoer) { c.httpClient = client }

// SetDelays overrides the pacing delays (tests).
func (c *MapsClient) SetDelays(page, detail time.Duration) {
	c.pageDelay = page
	c.detailDelay = detail
}

// Place is one business from a Places text search, optionally merged with
// its details lookup.
type Place struct {
	PlaceID        string   `json:"place_id"`
	Name           string   `json:"name"`
	Address        string   `json:"formatted_address"`
	Phone          string   `json:"formatted_phone_number"`
	Website        string   `json:"website"`
	Rating         float64  `json:"rating"`
	ReviewsCount   int      `json:"user_ratings_total"`
	Types          []string `json:"types"`
	BusinessStatus string   `json:"business_status"`
	City           string   `json:"-"`
	Country        string   `json:"-"`
}

func (c *MapsClient) get(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("maps API error (status %d): %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves a location name to coordinates.
func (c *MapsClient) Geocode(ctx context.Context, location string) (lat, lng float64, err error) {
	query := url.Values{
		"address": {location},
		"key":     {c.config.APIKey},
	}
	var resp geocodeResponse
	if err := c.get(ctx, fmt.Sprintf("%s/json?%s", c.config.GeocodeBaseURL, query.Encode()), &resp); err != nil {
		return 0, 0, err
	}
	if resp.Status != "OK" || len(resp.Results) == 0 {
		return 0, 0, fmt.Errorf("geocode %q: status %s", location, resp.Status)
	}
	loc := resp.Results[0].Geometry.Location
	return loc.Lat, loc.Lng, nil
}

type textSearchResponse struct {
	Status        string  `json:"status"`
	ErrorMessage  string  `json:"error_message"`
	Results       []Place `json:"results"`
	NextPageToken string  `json:"next_page_token"`
}

// SearchBusinesses runs a Places text search around a location, following
// page tokens until maxResults businesses are collected. A ZERO_RESULTS
// status is an empty answer, not an error.
func (c *MapsClient) SearchBusinesses(ctx context.Context, query, location string, maxResults int) ([]Place, error) {
	lat, lng, err := c.Geocode(ctx, location)
	if err != nil {
		logger.Warn("could not geocode location", "location", location, "error", err.Error())
		return nil, nil
	}

	var results []Place
	pageToken := ""
	for len(results) < maxResults {
		params := url.Values{
			"query":    {query},
			"location": {fmt.Sprintf("%f,%f", lat, lng)},
			"radius":   {"50000"},
			"type":     {"establishment"},
			"key":      {c.config.APIKey},
		}
		if pageToken != "" {
			params.Set("pagetoken", pageToken)
			// The token is not valid immediately after Google issues it.
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(c.pageDelay):
			}
		}

		var resp textSearchResponse
		if err := c.get(ctx, fmt.Sprintf("%s/textsearch/json?%s", c.config.PlacesBaseURL, params.Encode()), &resp); err != nil {
			return results, err
		}
		if resp.Status == "ZERO_RESULTS" {
			logger.Info("no results found", "query", query, "location", location)
			break
		}
		if resp.Status != "OK" {
			return results, fmt.Errorf("places search: status %s: %s", resp.Status, resp.ErrorMessage)
		}

		for _, place := range resp.Results {
			if place.Name == "" {
				continue
			}
			if place.BusinessStatus == "" {
				place.BusinessStatus = "OPERATIONAL"
			}
			results = append(results, place)
			if len(results) >= maxResults {
				break
			}
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	logger.Info("search completed", "query", query, "location", location, "results_count", len(results))
	return results, nil
}

type detailsResponse struct {
	Status string `json:"status"`
	Result Place  `json:"result"`
}

// GetPlaceDetails fetches phone, website, and status for one place. A
// failed lookup returns the zero Place; discovery data is still usable
// without details.
func (c *MapsClient) GetPlaceDetails(ctx context.Context, placeID string) (Place, error) {
	params := url.Values{
		"place_id": {placeID},
		"fields":   {"name,formatted_address,formatted_phone_number,website,rating,user_ratings_total,types,business_status"},
		"key":      {c.config.APIKey},
	}
	var resp detailsResponse
	if err := c.get(ctx, fmt.Sprintf("%s/details/json?%s", c.config.PlacesBaseURL, params.Encode()), &resp); err != nil {
		return Place{}, err
	}
	if resp.Status != "OK" {
		logger.Warn("could not get place details", "place_id", placeID, "status", resp.Status)
		return Place{}, fmt.Errorf("place details: status %s", resp.Status)
	}
	return resp.Result, nil
}

// SearchSpec drives one SearchAgencies pass over a city.
type SearchSpec struct {
	City            string
	Country         string
	Queries         []string
	MaxPerQuery     int
	ExcludeKeywords []string
}

// SearchAgencies runs every query against a city and returns unique,
// operational businesses with their details merged in. Non-operational
// places and names containing an excluded keyword are dropped.
func (c *MapsClient) SearchAgencies(ctx context.Context, spec SearchSpec) ([]Place, error) {
	location := fmt.Sprintf("%s, %s", spec.City, spec.Country)
	seen := make(map[string]bool)
	var agencies []Place

	for _, query := range spec.Queries {
		results, err := c.SearchBusinesses(ctx, fmt.Sprintf("%s in %s", query, spec.City), location, spec.MaxPerQuery)
		if err != nil {
			return agencies, err
		}

		for _, place := range results {
			if seen[place.PlaceID] {
				continue
			}
			if excludedName(place.Name, spec.ExcludeKeywords) {
				logger.Debug("excluded by keyword", "name", place.Name)
				continue
			}
			if place.BusinessStatus != "OPERATIONAL" {
				continue
			}
			seen[place.PlaceID] = true

			if details, err := c.GetPlaceDetails(ctx, place.PlaceID); err == nil {
				mergeDetails(&place, details)
			}
			place.City = spec.City
			place.Country = spec.Country
			agencies = append(agencies, place)

			if c.detailDelay > 0 {
				select {
				case <-ctx.Done():
					return agencies, ctx.Err()
				case <-time.After(c.detailDelay):
				}
			}
		}
	}

	logger.Info("agency search completed", "city", spec.City, "total_found", len(agencies))
	return agencies, nil
}

func excludedName(name string, keywords []string) bool {
	lower := strings.ToLower(name)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// mergeDetails overlays non-empty detail fields onto the search result.
func mergeDetails(place *Place, details Place) {
	if details.Phone != "" {
		place.Phone = details.Phone
	}
	if details.Website != "" {
		place.Website = details.Website
	}
	if details.Address != "" {
		place.Address = details.Address
	}
	if details.Rating != 0 {
		place.Rating = details.Rating
	}
	if details.ReviewsCount != 0 {
		place.ReviewsCount = details.ReviewsCount
	}
	if details.BusinessStatus != "" {
		place.BusinessStatus = details.BusinessStatus
	}
}
