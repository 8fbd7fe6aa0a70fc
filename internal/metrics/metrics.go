// Package metrics computes the dashboard aggregations over the CRM.
package metrics

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/lead-automation/internal/domain"
)

// Dashboard is the full metrics payload the dashboard renders.
type Dashboard struct {
	Summary           Summary        `json:"summary"`
	Pipeline          Pipeline       `json:"pipeline"`
	EmailSequence     []SequenceStep `json:"email_sequence"`
	ScoreDistribution Distribution   `json:"score_distribution"`
	IndustryBreakdown Distribution   `json:"industry_breakdown"`
	CompanySize       Distribution   `json:"company_size"`
	Geography         Geography      `json:"geography"`
	LastUpdated       string         `json:"last_updated"`
}

// Summary is the executive header: volumes and response rate.
type Summary struct {
	LeadsToday     int     `json:"leads_today"`
	TotalLeads     int     `json:"total_leads"`
	TotalResponses int     `json:"total_responses"`
	ResponseRate   float64 `json:"response_rate"`
	Contacted      int     `json:"contacted"`
}

// Pipeline counts leads per funnel stage. Queued here means ready to
// contact (status New with an email and no first send), not the CRM
// Queued status.
type Pipeline struct {
	New       int `json:"new"`
	Queued    int `json:"queued"`
	Contacted int `json:"contacted"`
	Replied   int `json:"replied"`
	Won       int `json:"won"`
	Lost      int `json:"lost"`
}

// SequenceStep is per-step sequence performance. Responses attribute to
// the last step sent before the reply, an approximation the sheet data
// cannot improve on.
type SequenceStep struct {
	Step         int     `json:"step"`
	Name         string  `json:"name"`
	Sent         int     `json:"sent"`
	Responses    int     `json:"responses"`
	ResponseRate float64 `json:"response_rate"`
}

// Distribution is a labeled series for bar and pie charts.
type Distribution struct {
	Labels []string `json:"labels"`
	Data   []int    `json:"data"`
}

// NameCount is one geography entry.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Geography is the top-10 country and city breakdown.
type Geography struct {
	Countries []NameCount `json:"countries"`
	Cities    []NameCount `json:"cities"`
}

// Calculate computes every dashboard metric from the decoded CRM leads.
func Calculate(leads []domain.Lead, now time.Time) Dashboard {
	return Dashboard{
		Summary:           calculateSummary(leads, now),
		Pipeline:          calculatePipeline(leads),
		EmailSequence:     calculateEmailSequence(leads),
		ScoreDistribution: calculateScoreDistribution(leads),
		IndustryBreakdown: calculateIndustryBreakdown(leads),
		CompanySize:       calculateCompanySize(leads),
		Geography:         calculateGeography(leads),
		LastUpdated:       now.Format("2006-01-02 15:04:05"),
	}
}

func calculateSummary(leads []domain.Lead, now time.Time) Summary {
	today := now.Format("2006-01-02")
	s := Summary{TotalLeads: len(leads)}

	for _, lead := range leads {
		if datePart(lead.DateAdded) == today {
			s.LeadsToday++
		}
		if lead.HasResponse() {
			s.TotalResponses++
		}
		if lead.Email1Sent == "TRUE" {
			s.Contacted++
		}
	}
	if s.Contacted > 0 {
		s.ResponseRate = round1(float64(s.TotalResponses) / float64(s.Contacted) * 100)
	}
	return s
}

// datePart returns the date portion of a "2006-01-02 15:04" cell, "" for
// junk values.
func datePart(cell string) string {
	fields := strings.Fields(cell)
	if len(fields) == 0 {
		return ""
	}
	if _, err := time.Parse("2006-01-02", fields[0]); err != nil {
		return ""
	}
	return fields[0]
}

func calculatePipeline(leads []domain.Lead) Pipeline {
	var p Pipeline
	for _, lead := range leads {
		switch strings.ToLower(lead.Status) {
		case "new":
			p.New++
			if lead.Email != "" && lead.Email1Sent != "TRUE" {
				p.Queued++
			}
		case "contacted":
			p.Contacted++
		case "replied":
			p.Replied++
		case "won":
			p.Won++
		case "lost":
			p.Lost++
		}
	}
	return p
}

func calculateEmailSequence(leads []domain.Lead) []SequenceStep {
	steps := make([]SequenceStep, 0, 4)
	for step := 1; step <= 4; step++ {
		entry := SequenceStep{Step: step, Name: "Email 1"}
		if step > 1 {
			entry.Name = "Follow-up " + strconv.Itoa(step-1)
		}

		for _, lead := range leads {
			if !lead.EmailSent(step) {
				continue
			}
			entry.Sent++
			// Attribute the response to the last step that went out.
			if lead.HasResponse() && (step == 4 || !lead.EmailSent(step+1)) {
				entry.Responses++
			}
		}
		if entry.Sent > 0 {
			entry.ResponseRate = round1(float64(entry.Responses) / float64(entry.Sent) * 100)
		}
		steps = append(steps, entry)
	}
	return steps
}

func calculateScoreDistribution(leads []domain.Lead) Distribution {
	counts := make([]int, 10)
	for _, lead := range leads {
		if lead.LeadScore == "" {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(lead.LeadScore), 64)
		if err != nil {
			continue
		}
		score := int(f)
		if score >= 1 && score <= 10 {
			counts[score-1]++
		}
	}

	labels := make([]string, 10)
	for i := range labels {
		labels[i] = strconv.Itoa(i + 1)
	}
	return Distribution{Labels: labels, Data: counts}
}

func calculateIndustryBreakdown(leads []domain.Lead) Distribution {
	counts := map[string]int{}
	for _, lead := range leads {
		industry := strings.TrimSpace(lead.Industry)
		if industry != "" {
			counts[industry]++
		}
	}
	top := topN(counts, 10)

	dist := Distribution{}
	for _, entry := range top {
		dist.Labels = append(dist.Labels, entry.Name)
		dist.Data = append(dist.Data, entry.Count)
	}
	return dist
}

// sizeBuckets in display order.
var sizeBuckets = []struct {
	label string
	max   int
}{
	{"1-10", 10},
	{"11-50", 50},
	{"51-200", 200},
	{"201-500", 500},
	{"501-1000", 1000},
	{"1000+", math.MaxInt},
}

func calculateCompanySize(leads []domain.Lead) Distribution {
	counts := make([]int, len(sizeBuckets))
	for _, lead := range leads {
		if lead.EmployeeCount == "" {
			continue
		}
		raw := strings.NewReplacer(",", "", "+", "").Replace(strings.TrimSpace(lead.EmployeeCount))
		n, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		for i, bucket := range sizeBuckets {
			if n <= bucket.max {
				counts[i]++
				break
			}
		}
	}

	dist := Distribution{Data: counts}
	for _, bucket := range sizeBuckets {
		dist.Labels = append(dist.Labels, bucket.label)
	}
	return dist
}

func calculateGeography(leads []domain.Lead) Geography {
	countries := map[string]int{}
	cities := map[string]int{}
	for _, lead := range leads {
		if c := strings.TrimSpace(lead.Country); c != "" {
			countries[c]++
		}
		if c := strings.TrimSpace(lead.City); c != "" {
			cities[c]++
		}
	}
	return Geography{
		Countries: topN(countries, 10),
		Cities:    topN(cities, 10),
	}
}

// topN returns the n highest counts, ties broken by name for stable
// output.
func topN(counts map[string]int, n int) []NameCount {
	entries := make([]NameCount, 0, len(counts))
	for name, count := range counts {
		entries = append(entries, NameCount{Name: name, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
