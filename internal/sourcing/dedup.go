package sourcing

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/lead-automation/internal/crm"
	"github.com/ignite/lead-automation/internal/domain"
	"github.com/ignite/lead-automation/internal/pkg/logger"
)

// AgencyFinder discovers candidate businesses in a city.
type AgencyFinder interface {
	SearchAgencies(ctx context.Context, spec SearchSpec) ([]Place, error)
}

// Enricher resolves firmographics and contacts for a company.
type Enricher interface {
	EnrichLead(ctx context.Context, companyName, website string) (Enrichment, error)
}

// CandidateRepository is the slice of the CRM repository sourcing needs.
type CandidateRepository interface {
	GetAllEmails(ctx context.Context) (map[string]bool, error)
	Insert(ctx context.Context, c domain.Candidate) (string, error)
}

// City is one sourcing location.
type City struct {
	Name    string `yaml:"name"`
	Country string `yaml:"country"`
}

// RunConfig drives one sourcing run.
type RunConfig struct {
	Cities          []City   `yaml:"cities"`
	Queries         []string `yaml:"queries"`
	ExcludeKeywords []string `yaml:"exclude_keywords"`
	TargetLeads     int      `yaml:"target_leads"`
	MaxPerQuery     int      `yaml:"max_per_query"`
	QueriesPerCity  int      `yaml:"queries_per_city"`
}

// Engine runs lead sourcing: discover, enrich, dedup, score, insert.
//
// Dedup is two-layered. The warm email set, loaded once per run, answers
// membership in memory with no store round trip; the repository's own
// dual-key check still runs at insert as the backstop. Every successful
// insert goes into the set immediately, so a batch containing its own
// duplicate catches it without touching the store.
type Engine struct {
	finder   AgencyFinder
	enricher Enricher
	repo     CandidateRepository
	rng      *rand.Rand
}

// NewEngine creates a sourcing engine.
func NewEngine(finder AgencyFinder, enricher Enricher, repo CandidateRepository) *Engine {
	return &Engine{
		finder:   finder,
		enricher: enricher,
		repo:     repo,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetRand overrides the shuffle source (tests).
func (e *Engine) SetRand(rng *rand.Rand) { e.rng = rng }

// SourceLeads works through shuffled cities until TargetLeads new leads
// are in the CRM or the cities run out. Returns the inserted candidates
// with their assigned IDs in Notes-free form; sourcing failures in one
// city do not stop the run.
func (e *Engine) SourceLeads(ctx context.Context, cfg RunConfig) ([]domain.Candidate, error) {
	if cfg.TargetLeads <= 0 {
		cfg.TargetLeads = 10
	}
	if cfg.MaxPerQuery <= 0 {
		cfg.MaxPerQuery = 5
	}
	if cfg.QueriesPerCity <= 0 {
		cfg.QueriesPerCity = 3
	}

	existing, err := e.repo.GetAllEmails(ctx)
	if err != nil {
		return nil, fmt.Errorf("load existing emails: %w", err)
	}
	logger.Info("starting lead sourcing", "target", cfg.TargetLeads, "known_emails", len(existing))

	cities := make([]City, len(cfg.Cities))
	copy(cities, cfg.Cities)
	e.rng.Shuffle(len(cities), func(i, j int) { cities[i], cities[j] = cities[j], cities[i] })

	var added []domain.Candidate
	for _, city := range cities {
		if len(added) >= cfg.TargetLeads {
			break
		}
		logger.Info("searching city", "city", city.Name, "country", city.Country)

		agencies, err := e.finder.SearchAgencies(ctx, SearchSpec{
			City:            city.Name,
			Country:         city.Country,
			Queries:         e.sampleQueries(cfg.Queries, cfg.QueriesPerCity),
			MaxPerQuery:     cfg.MaxPerQuery,
			ExcludeKeywords: cfg.ExcludeKeywords,
		})
		if err != nil {
			logger.Error("city search failed", "city", city.Name, "error", err.Error())
			continue
		}

		for _, agency := range agencies {
			if len(added) >= cfg.TargetLeads {
				break
			}
			candidate, ok := e.buildCandidate(ctx, agency, existing)
			if !ok {
				continue
			}

			if _, err := e.repo.Insert(ctx, candidate); err != nil {
				if errors.Is(err, crm.ErrDuplicate) {
					continue
				}
				logger.Error("insert failed", "company", candidate.Company, "error", err.Error())
				continue
			}
			existing[strings.ToLower(candidate.Email)] = true
			added = append(added, candidate)
			logger.Info("lead added",
				"company", candidate.Company,
				"email", candidate.Email,
				"score", candidate.LeadScore)
		}
	}

	logger.Info("daily sourcing complete", "new_leads", len(added))
	return added, nil
}

// buildCandidate enriches one discovered agency and decides whether it is
// worth inserting. Agencies without a website or without a reachable
// contact email are dropped, as are emails already known this run.
func (e *Engine) buildCandidate(ctx context.Context, agency Place, existing map[string]bool) (domain.Candidate, bool) {
	if agency.Website == "" {
		return domain.Candidate{}, false
	}

	enrichment, err := e.enricher.EnrichLead(ctx, agency.Name, agency.Website)
	if err != nil {
		logger.Warn("enrichment failed", "company", agency.Name, "error", err.Error())
		return domain.Candidate{}, false
	}
	if !enrichment.HasPrimaryContact() {
		return domain.Candidate{}, false
	}
	email := enrichment.PrimaryContact.Email
	if existing[strings.ToLower(email)] {
		logger.Debug("skipping known email", "email", email)
		return domain.Candidate{}, false
	}

	org := enrichment.Organization
	candidate := domain.Candidate{
		Company:      agency.Name,
		ContactName:  enrichment.PrimaryContact.FullName,
		Email:        email,
		Phone:        agency.Phone,
		Website:      agency.Website,
		Industry:     org.Industry,
		City:         agency.City,
		Country:      agency.Country,
		LinkedIn:     enrichment.PrimaryContact.LinkedInURL,
		Title:        enrichment.PrimaryContact.Title,
		Source:       "google_maps + apollo",
		Description:  org.Description,
		Technologies: org.Technologies,
		Keywords:     org.Keywords,
	}
	if org.EmployeeCount > 0 {
		candidate.EmployeeCount = strconv.Itoa(org.EmployeeCount)
	}
	candidate.LeadScore = CalculateLeadScore(candidate)
	return candidate, true
}

// sampleQueries picks up to n distinct queries at random.
func (e *Engine) sampleQueries(queries []string, n int) []string {
	if len(queries) <= n {
		return queries
	}
	sampled := make([]string, len(queries))
	copy(sampled, queries)
	e.rng.Shuffle(len(sampled), func(i, j int) { sampled[i], sampled[j] = sampled[j], sampled[i] })
	return sampled[:n]
}
