package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ignite/lead-automation/internal/domain"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestCalculateSummary(t *testing.T) {
	leads := []domain.Lead{
		{DateAdded: "2025-06-15 09:30", Email1Sent: "TRUE", Response: "Interested"},
		{DateAdded: "2025-06-15 11:00", Email1Sent: "TRUE"},
		{DateAdded: "2025-06-01 08:00", Email1Sent: "FALSE"},
		{DateAdded: "junk value", Email1Sent: "TRUE", Response: "FALSE"}, // sentinel, not a reply
	}

	s := calculateSummary(leads, testNow)
	assert.Equal(t, 2, s.LeadsToday)
	assert.Equal(t, 4, s.TotalLeads)
	assert.Equal(t, 1, s.TotalResponses)
	assert.Equal(t, 3, s.Contacted)
	assert.Equal(t, 33.3, s.ResponseRate)
}

func TestCalculateSummaryNoContacts(t *testing.T) {
	s := calculateSummary([]domain.Lead{{Response: "yes"}}, testNow)
	assert.Equal(t, 0.0, s.ResponseRate, "no division by zero")
}

func TestCalculatePipeline(t *testing.T) {
	leads := []domain.Lead{
		{Status: "New", Email: "a@a.com", Email1Sent: "FALSE"},
		{Status: "new", Email: ""},
		{Status: "Contacted"},
		{Status: "Replied"},
		{Status: "Won"},
		{Status: "Lost"},
		{Status: ""},
	}

	p := calculatePipeline(leads)
	assert.Equal(t, Pipeline{New: 2, Queued: 1, Contacted: 1, Replied: 1, Won: 1, Lost: 1}, p)
}

func TestCalculateEmailSequence(t *testing.T) {
	leads := []domain.Lead{
		// Replied after step 1 only.
		{Email1Sent: "TRUE", Response: "Yes"},
		// Went through step 2, replied there.
		{Email1Sent: "TRUE", Email2Sent: "TRUE", Response: "Finally"},
		// All four steps, no reply.
		{Email1Sent: "TRUE", Email2Sent: "TRUE", Email3Sent: "TRUE", Email4Sent: "TRUE"},
	}

	steps := calculateEmailSequence(leads)
	assert.Len(t, steps, 4)

	assert.Equal(t, "Email 1", steps[0].Name)
	assert.Equal(t, 3, steps[0].Sent)
	assert.Equal(t, 1, steps[0].Responses, "reply attributed to last step sent")
	assert.Equal(t, 33.3, steps[0].ResponseRate)

	assert.Equal(t, "Follow-up 1", steps[1].Name)
	assert.Equal(t, 2, steps[1].Sent)
	assert.Equal(t, 1, steps[1].Responses)

	assert.Equal(t, "Follow-up 3", steps[3].Name)
	assert.Equal(t, 1, steps[3].Sent)
	assert.Equal(t, 0, steps[3].Responses)
	assert.Equal(t, 0.0, steps[3].ResponseRate)
}

func TestCalculateScoreDistribution(t *testing.T) {
	leads := []domain.Lead{
		{LeadScore: "8"},
		{LeadScore: "8"},
		{LeadScore: "3.0"},
		{LeadScore: "0"},    // out of range
		{LeadScore: "11"},   // out of range
		{LeadScore: "junk"}, // unparseable
		{LeadScore: ""},
	}

	d := calculateScoreDistribution(leads)
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}, d.Labels)
	assert.Equal(t, []int{0, 0, 1, 0, 0, 0, 0, 2, 0, 0}, d.Data)
}

func TestCalculateIndustryBreakdown(t *testing.T) {
	leads := []domain.Lead{
		{Industry: "Marketing"},
		{Industry: " Marketing "},
		{Industry: "Media"},
		{Industry: ""},
	}

	d := calculateIndustryBreakdown(leads)
	assert.Equal(t, []string{"Marketing", "Media"}, d.Labels)
	assert.Equal(t, []int{2, 1}, d.Data)
}

func TestCalculateCompanySize(t *testing.T) {
	leads := []domain.Lead{
		{EmployeeCount: "5"},
		{EmployeeCount: "10"},
		{EmployeeCount: "49"},
		{EmployeeCount: "1,500"},
		{EmployeeCount: "500+"},
		{EmployeeCount: "unknown"},
	}

	d := calculateCompanySize(leads)
	assert.Equal(t, []string{"1-10", "11-50", "51-200", "201-500", "501-1000", "1000+"}, d.Labels)
	assert.Equal(t, []int{2, 1, 0, 1, 0, 1}, d.Data)
}

func TestCalculateGeography(t *testing.T) {
	leads := []domain.Lead{
		{City: "Austin", Country: "USA"},
		{City: "Austin", Country: "USA"},
		{City: "Berlin", Country: "Germany"},
		{City: " ", Country: ""},
	}

	g := calculateGeography(leads)
	assert.Equal(t, []NameCount{{"USA", 2}, {"Germany", 1}}, g.Countries)
	assert.Equal(t, []NameCount{{"Austin", 2}, {"Berlin", 1}}, g.Cities)
}

func TestCalculateFullPayload(t *testing.T) {
	d := Calculate([]domain.Lead{{Status: "New", Email: "a@a.com"}}, testNow)
	assert.Equal(t, "2025-06-15 12:00:00", d.LastUpdated)
	assert.Equal(t, 1, d.Summary.TotalLeads)
	assert.Len(t, d.EmailSequence, 4)
}
