package sourcing

import (
	"strconv"
	"strings"

	"github.com/ignite/lead-automation/internal/domain"
)

// targetIndustries are the industry substrings the outreach pitch lands
// best with.
var targetIndustries = []string{
	"marketing", "advertising", "media", "communications", "pr", "creative", "digital",
}

// CalculateLeadScore rates a candidate 0-10 on data completeness and fit.
// Pure function of its input: email +2, website +1, phone +1, employee
// count in the 10-100 sweet spot +2 (5-200 +1), target industry +2,
// LinkedIn +1, capped at 10.
func CalculateLeadScore(c domain.Candidate) int {
	score := 0

	if c.Email != "" {
		score += 2
	}
	if c.Website != "" {
		score += 1
	}
	if c.Phone != "" {
		score += 1
	}

	switch emp := parseEmployeeCount(c.EmployeeCount); {
	case emp >= 10 && emp <= 100:
		score += 2
	case emp >= 5 && emp <= 200:
		score += 1
	}

	industry := strings.ToLower(c.Industry)
	for _, target := range targetIndustries {
		if strings.Contains(industry, target) {
			score += 2
			break
		}
	}

	if c.LinkedIn != "" {
		score += 1
	}

	if score > 10 {
		return 10
	}
	return score
}

// parseEmployeeCount reads the free-text employee cell: commas are
// stripped, a "50-100" range counts as its lower bound, and a trailing
// "+" ("50+") is dropped. Junk parses to 0, which scores nothing.
func parseEmployeeCount(s string) int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	if i := strings.Index(s, "-"); i > 0 {
		s = s[:i]
	}
	s = strings.TrimSuffix(s, "+")
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
