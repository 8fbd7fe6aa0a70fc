package crm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/lead-automation/internal/domain"
	"github.com/ignite/lead-automation/internal/pkg/logger"
)

// Repository exposes identity-based lead access over a RowStore. It owns
// the one-row-per-lead invariant: both dedup checks run before every
// insert. It does not own reply policy; the sync engine pre-checks the
// Response column before calling MarkResponseReceived.
type Repository struct {
	store  RowStore
	schema *Schema
	now    func() time.Time
}

// NewRepository creates a repository over the given store and column layout.
func NewRepository(store RowStore, schema *Schema) *Repository {
	return &Repository{store: store, schema: schema, now: time.Now}
}

// SetClock overrides the repository clock (tests).
func (r *Repository) SetClock(now func() time.Time) { r.now = now }

// Schema returns the column layout the repository operates under.
func (r *Repository) Schema() *Schema { return r.schema }

func (r *Repository) col(field string) int {
	i, ok := r.schema.Col(field)
	if !ok {
		// Only reachable with a schema missing a core identity column,
		// which is a programming error, not data drift.
		panic(fmt.Sprintf("crm: schema %s missing field %s", r.schema.Version(), field))
	}
	return i
}

// FindByEmail returns the lead with the given email, matched
// case-insensitively in a single indexed store lookup. Returns ErrNotFound
// on a miss.
func (r *Repository) FindByEmail(ctx context.Context, email string) (domain.Lead, error) {
	if strings.TrimSpace(email) == "" {
		return domain.Lead{}, ErrNotFound
	}
	row, err := r.store.FindCell(ctx, email, r.col(FieldEmail))
	if errors.Is(err, ErrCellNotFound) {
		return domain.Lead{}, ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, fmt.Errorf("find by email: %w", err)
	}
	values, err := r.store.ReadRow(ctx, row)
	if err != nil {
		return domain.Lead{}, fmt.Errorf("read row %d: %w", row, err)
	}
	return r.schema.Decode(values), nil
}

// FindByCompany returns the first lead matching the company name. When city
// is non-empty, rows whose city differs (case-insensitively) are skipped.
// Ties between duplicate company+city pairs resolve in store iteration
// order, which is not deterministic across backends; callers treating this
// as a strict identity check accept that limitation.
func (r *Repository) FindByCompany(ctx context.Context, company, city string) (domain.Lead, error) {
	if strings.TrimSpace(company) == "" {
		return domain.Lead{}, ErrNotFound
	}
	rows, err := r.store.FindCells(ctx, company, r.col(FieldCompany))
	if errors.Is(err, ErrCellNotFound) {
		return domain.Lead{}, ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, fmt.Errorf("find by company: %w", err)
	}
	for _, idx := range rows {
		values, err := r.store.ReadRow(ctx, idx)
		if err != nil {
			return domain.Lead{}, fmt.Errorf("read row %d: %w", idx, err)
		}
		lead := r.schema.Decode(values)
		if city != "" && !strings.EqualFold(lead.City, city) {
			continue
		}
		return lead, nil
	}
	return domain.Lead{}, ErrNotFound
}

// Insert adds a candidate as a new lead after running both dedup checks:
// first by email, then by company+city. A match returns ("", ErrDuplicate);
// duplicates are an expected outcome of sourcing, not a failure. On
// success the assigned lead ID is returned.
func (r *Repository) Insert(ctx context.Context, c domain.Candidate) (string, error) {
	if c.Email != "" {
		if _, err := r.FindByEmail(ctx, c.Email); err == nil {
			logger.Info("duplicate lead skipped", "email", c.Email)
			return "", ErrDuplicate
		} else if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	if c.Company != "" {
		if _, err := r.FindByCompany(ctx, c.Company, c.City); err == nil {
			logger.Info("duplicate company skipped", "company", c.Company, "city", c.City)
			return "", ErrDuplicate
		} else if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}

	id := r.newLeadID()
	lead := domain.Lead{
		ID:            id,
		Company:       c.Company,
		ContactName:   c.ContactName,
		Email:         c.Email,
		Phone:         c.Phone,
		Website:       c.Website,
		Industry:      c.Industry,
		EmployeeCount: c.EmployeeCount,
		City:          c.City,
		Country:       c.Country,
		LeadScore:     fmt.Sprintf("%d", c.LeadScore),
		Status:        domain.StatusNew,
		DateAdded:     r.now().Format("2006-01-02 15:04"),
		Email1Sent:    "FALSE",
		Email2Sent:    "FALSE",
		Email3Sent:    "FALSE",
		Email4Sent:    "FALSE",
		Opens:         "0",
		Clicks:        "0",
		Notes:         c.Notes,
		Source:        c.Source,
		LinkedIn:      c.LinkedIn,
		Title:         c.Title,
	}

	if err := r.store.AppendRow(ctx, r.schema.Encode(lead)); err != nil {
		return "", fmt.Errorf("append lead: %w", err)
	}
	logger.Info("lead added", "lead_id", id, "company", c.Company)
	return id, nil
}

// newLeadID generates a store-independent lead ID. The timestamp prefix
// keeps IDs sortable in the sheet; the uuid fragment prevents collisions
// when several leads are inserted within one second.
func (r *Repository) newLeadID() string {
	return fmt.Sprintf("LEAD-%s-%s", r.now().Format("20060102150405"), uuid.New().String()[:8])
}

// UpdateFields applies a targeted partial update to the lead with the
// given ID. Field names not present in the current schema are silently
// skipped so callers written against a newer layout keep working.
func (r *Repository) UpdateFields(ctx context.Context, id string, updates map[string]string) error {
	row, err := r.store.FindCell(ctx, id, r.col(FieldID))
	if errors.Is(err, ErrCellNotFound) {
		logger.Warn("lead not found for update", "lead_id", id)
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("locate lead %s: %w", id, err)
	}

	applied := make([]string, 0, len(updates))
	for field, value := range updates {
		col, ok := r.schema.Col(strings.ToLower(field))
		if !ok {
			continue
		}
		if err := r.store.UpdateCell(ctx, row, col, value); err != nil {
			return fmt.Errorf("update %s: %w", field, err)
		}
		applied = append(applied, field)
	}
	logger.Info("lead updated", "lead_id", id, "fields", strings.Join(applied, ","))
	return nil
}

// MarkEmailSent records that sequence step (1-4) went out: flips the send
// flag, stamps last contact, moves the lead to Contacted. Re-invoking with
// the same step rewrites the same values, so the call is idempotent in
// effect.
func (r *Repository) MarkEmailSent(ctx context.Context, id string, step int) error {
	if step < 1 || step > 4 {
		return fmt.Errorf("invalid email step %d", step)
	}
	return r.UpdateFields(ctx, id, map[string]string{
		fmt.Sprintf("email_%d_sent", step): "TRUE",
		FieldLastContact:                   r.now().Format("2006-01-02 15:04"),
		FieldStatus:                        domain.StatusContacted,
	})
}

// MarkResponseReceived writes the reply text and moves the lead to Replied.
// The at-most-once policy lives with the caller: the sync engine checks
// HasResponse before calling.
func (r *Repository) MarkResponseReceived(ctx context.Context, id, text string) error {
	return r.UpdateFields(ctx, id, map[string]string{
		FieldResponse: text,
		FieldStatus:   domain.StatusReplied,
	})
}

// GetAllEmails returns every email in the CRM, lowercased, in one column
// read. Sourcing uses the set for O(1) membership tests instead of a store
// round trip per candidate.
func (r *Repository) GetAllEmails(ctx context.Context) (map[string]bool, error) {
	values, err := r.store.ColumnValues(ctx, r.col(FieldEmail))
	if err != nil {
		return nil, fmt.Errorf("read email column: %w", err)
	}
	emails := make(map[string]bool, len(values))
	for _, v := range values {
		if v != "" {
			emails[strings.ToLower(v)] = true
		}
	}
	return emails, nil
}

// EngagementUpdate carries platform-reported engagement for one lead.
// Counters are overwritten, not incremented: the platform is the source of
// truth for opens and clicks. Response is only written when non-empty, and
// flips the lead to Replied.
type EngagementUpdate struct {
	Opens           *int
	Clicks          *int
	InstantlyStatus string
	Response        string
}

// UpdateEngagement applies platform engagement state to the lead with the
// given email. Returns ErrNotFound when the email has no CRM row.
func (r *Repository) UpdateEngagement(ctx context.Context, email string, u EngagementUpdate) error {
	lead, err := r.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	updates := map[string]string{}
	if u.Opens != nil {
		updates[FieldOpens] = fmt.Sprintf("%d", *u.Opens)
	}
	if u.Clicks != nil {
		updates[FieldClicks] = fmt.Sprintf("%d", *u.Clicks)
	}
	if u.InstantlyStatus != "" {
		updates[FieldInstantlyStatus] = u.InstantlyStatus
	}
	if u.Response != "" {
		updates[FieldResponse] = u.Response
		updates[FieldStatus] = domain.StatusReplied
	}
	if len(updates) == 0 {
		return nil
	}
	return r.UpdateFields(ctx, lead.ID, updates)
}

// LeadsForOutreach returns up to limit leads that are ready for the first
// email: status New, an email on file, step 1 not yet sent.
func (r *Repository) LeadsForOutreach(ctx context.Context, limit int) ([]domain.Lead, error) {
	rows, err := r.store.ReadAllRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	var leads []domain.Lead
	for _, row := range rows {
		lead := r.schema.Decode(row)
		if lead.Status == domain.StatusNew && lead.Email != "" && !lead.EmailSent(1) {
			leads = append(leads, lead)
			if limit > 0 && len(leads) >= limit {
				break
			}
		}
	}
	logger.Info("found leads for outreach", "count", len(leads))
	return leads, nil
}

// LeadsForFollowup returns leads due for follow-up step (2-4): previous
// step sent, this step not, and no reply recorded yet.
func (r *Repository) LeadsForFollowup(ctx context.Context, step int) ([]domain.Lead, error) {
	if step < 2 || step > 4 {
		return nil, fmt.Errorf("invalid followup step %d", step)
	}
	rows, err := r.store.ReadAllRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	var leads []domain.Lead
	for _, row := range rows {
		lead := r.schema.Decode(row)
		if lead.HasResponse() {
			continue
		}
		if lead.Email != "" && lead.EmailSent(step-1) && !lead.EmailSent(step) {
			leads = append(leads, lead)
		}
	}
	logger.Info("found leads for followup", "step", step, "count", len(leads))
	return leads, nil
}

// Stats summarizes the funnel by status.
type Stats struct {
	TotalLeads int `json:"total_leads"`
	New        int `json:"new"`
	Contacted  int `json:"contacted"`
	Replied    int `json:"replied"`
	Won        int `json:"won"`
	Lost       int `json:"lost"`
}

// Stats counts leads per funnel status.
func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	rows, err := r.store.ReadAllRows(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("read rows: %w", err)
	}
	s := Stats{TotalLeads: len(rows)}
	for _, row := range rows {
		switch strings.ToLower(r.schema.Decode(row).Status) {
		case "new":
			s.New++
		case "contacted":
			s.Contacted++
		case "replied":
			s.Replied++
		case "won":
			s.Won++
		case "lost":
			s.Lost++
		}
	}
	return s, nil
}

// AllLeads decodes every row. The dashboard metrics layer consumes this.
func (r *Repository) AllLeads(ctx context.Context) ([]domain.Lead, error) {
	rows, err := r.store.ReadAllRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	leads := make([]domain.Lead, len(rows))
	for i, row := range rows {
		leads[i] = r.schema.Decode(row)
	}
	return leads, nil
}
