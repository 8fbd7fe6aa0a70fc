// Package crm implements the spreadsheet-backed lead store: the versioned
// column schema, the row-store capability it sits on, and the repository
// that enforces lead identity.
package crm

import (
	"github.com/ignite/lead-automation/internal/domain"
)

// Field names used in schemas and targeted updates. These are the
// lowercase_underscore forms of the sheet headers.
const (
	FieldID              = "id"
	FieldCompany         = "company"
	FieldContactName     = "contact_name"
	FieldEmail           = "email"
	FieldPhone           = "phone"
	FieldWebsite         = "website"
	FieldIndustry        = "industry"
	FieldEmployeeCount   = "employee_count"
	FieldCity            = "city"
	FieldCountry         = "country"
	FieldLeadScore       = "lead_score"
	FieldStatus          = "status"
	FieldDateAdded       = "date_added"
	FieldLastContact     = "last_contact"
	FieldEmail1Sent      = "email_1_sent"
	FieldEmail2Sent      = "email_2_sent"
	FieldEmail3Sent      = "email_3_sent"
	FieldEmail4Sent      = "email_4_sent"
	FieldOpens           = "opens"
	FieldClicks          = "clicks"
	FieldResponse        = "response"
	FieldNotes           = "notes"
	FieldSource          = "source"
	FieldLinkedIn        = "linkedin"
	FieldTitle           = "title"
	FieldInstantlyStatus = "instantly_status"
)

// headerNames maps field names to the display headers written to row 1.
var headerNames = map[string]string{
	FieldID:              "ID",
	FieldCompany:         "Company",
	FieldContactName:     "Contact Name",
	FieldEmail:           "Email",
	FieldPhone:           "Phone",
	FieldWebsite:         "Website",
	FieldIndustry:        "Industry",
	FieldEmployeeCount:   "Employee Count",
	FieldCity:            "City",
	FieldCountry:         "Country",
	FieldLeadScore:       "Lead Score",
	FieldStatus:          "Status",
	FieldDateAdded:       "Date Added",
	FieldLastContact:     "Last Contact",
	FieldEmail1Sent:      "Email 1 Sent",
	FieldEmail2Sent:      "Email 2 Sent",
	FieldEmail3Sent:      "Email 3 Sent",
	FieldEmail4Sent:      "Email 4 Sent",
	FieldOpens:           "Opens",
	FieldClicks:          "Clicks",
	FieldResponse:        "Response",
	FieldNotes:           "Notes",
	FieldSource:          "Source",
	FieldLinkedIn:        "LinkedIn",
	FieldTitle:           "Title",
	FieldInstantlyStatus: "Instantly Status",
}

// Schema is one versioned column layout: an ordered list of fields and the
// derived field→index table. Two layouts coexist in production sheets
// because the Opens/Clicks columns were inserted mid-sheet at one point,
// shifting everything after them. All positional knowledge lives here;
// decode/encode never hardcode indices.
type Schema struct {
	version string
	fields  []string
	index   map[string]int
}

// NewSchema builds a schema from an ordered field list.
func NewSchema(version string, fields []string) *Schema {
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		idx[f] = i
	}
	return &Schema{version: version, fields: fields, index: idx}
}

// SchemaV1 is the original 23-column layout, before engagement tracking:
// Response sits directly after the send flags.
var SchemaV1 = NewSchema("v1", []string{
	FieldID, FieldCompany, FieldContactName, FieldEmail, FieldPhone,
	FieldWebsite, FieldIndustry, FieldEmployeeCount, FieldCity, FieldCountry,
	FieldLeadScore, FieldStatus, FieldDateAdded, FieldLastContact,
	FieldEmail1Sent, FieldEmail2Sent, FieldEmail3Sent, FieldEmail4Sent,
	FieldResponse, FieldNotes, FieldSource, FieldLinkedIn, FieldTitle,
})

// SchemaV2 is the current 26-column layout: Opens and Clicks inserted after
// the send flags (shifting Response and everything behind it), and the
// platform status label appended at the end.
var SchemaV2 = NewSchema("v2", []string{
	FieldID, FieldCompany, FieldContactName, FieldEmail, FieldPhone,
	FieldWebsite, FieldIndustry, FieldEmployeeCount, FieldCity, FieldCountry,
	FieldLeadScore, FieldStatus, FieldDateAdded, FieldLastContact,
	FieldEmail1Sent, FieldEmail2Sent, FieldEmail3Sent, FieldEmail4Sent,
	FieldOpens, FieldClicks, FieldResponse, FieldNotes, FieldSource,
	FieldLinkedIn, FieldTitle, FieldInstantlyStatus,
})

// Version returns the schema's version tag.
func (s *Schema) Version() string { return s.version }

// Columns returns the number of columns in this layout.
func (s *Schema) Columns() int { return len(s.fields) }

// Col returns the 0-based column index of a field, or false if the field
// does not exist in this layout.
func (s *Schema) Col(field string) (int, bool) {
	i, ok := s.index[field]
	return i, ok
}

// Headers returns the display header row for this layout.
func (s *Schema) Headers() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = headerNames[f]
	}
	return out
}

// cell returns the value at the field's column, or "" when the row is
// shorter than the layout or the field is missing from it. Short rows are
// routine: the store trims trailing empty cells.
func (s *Schema) cell(row []string, field string) string {
	i, ok := s.index[field]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// Decode maps an ordered row to a Lead. It never fails: missing trailing
// cells decode to empty strings, and numeric-looking fields stay raw.
func (s *Schema) Decode(row []string) domain.Lead {
	return domain.Lead{
		ID:              s.cell(row, FieldID),
		Company:         s.cell(row, FieldCompany),
		ContactName:     s.cell(row, FieldContactName),
		Email:           s.cell(row, FieldEmail),
		Phone:           s.cell(row, FieldPhone),
		Website:         s.cell(row, FieldWebsite),
		Industry:        s.cell(row, FieldIndustry),
		EmployeeCount:   s.cell(row, FieldEmployeeCount),
		City:            s.cell(row, FieldCity),
		Country:         s.cell(row, FieldCountry),
		LeadScore:       s.cell(row, FieldLeadScore),
		Status:          s.cell(row, FieldStatus),
		DateAdded:       s.cell(row, FieldDateAdded),
		LastContact:     s.cell(row, FieldLastContact),
		Email1Sent:      s.cell(row, FieldEmail1Sent),
		Email2Sent:      s.cell(row, FieldEmail2Sent),
		Email3Sent:      s.cell(row, FieldEmail3Sent),
		Email4Sent:      s.cell(row, FieldEmail4Sent),
		Opens:           s.cell(row, FieldOpens),
		Clicks:          s.cell(row, FieldClicks),
		Response:        s.cell(row, FieldResponse),
		Notes:           s.cell(row, FieldNotes),
		Source:          s.cell(row, FieldSource),
		LinkedIn:        s.cell(row, FieldLinkedIn),
		Title:           s.cell(row, FieldTitle),
		InstantlyStatus: s.cell(row, FieldInstantlyStatus),
	}
}

// Encode maps a Lead to an ordered row under this layout. Used for inserts
// only; updates are field-targeted through the repository.
func (s *Schema) Encode(l domain.Lead) []string {
	values := map[string]string{
		FieldID:              l.ID,
		FieldCompany:         l.Company,
		FieldContactName:     l.ContactName,
		FieldEmail:           l.Email,
		FieldPhone:           l.Phone,
		FieldWebsite:         l.Website,
		FieldIndustry:        l.Industry,
		FieldEmployeeCount:   l.EmployeeCount,
		FieldCity:            l.City,
		FieldCountry:         l.Country,
		FieldLeadScore:       l.LeadScore,
		FieldStatus:          l.Status,
		FieldDateAdded:       l.DateAdded,
		FieldLastContact:     l.LastContact,
		FieldEmail1Sent:      l.Email1Sent,
		FieldEmail2Sent:      l.Email2Sent,
		FieldEmail3Sent:      l.Email3Sent,
		FieldEmail4Sent:      l.Email4Sent,
		FieldOpens:           l.Opens,
		FieldClicks:          l.Clicks,
		FieldResponse:        l.Response,
		FieldNotes:           l.Notes,
		FieldSource:          l.Source,
		FieldLinkedIn:        l.LinkedIn,
		FieldTitle:           l.Title,
		FieldInstantlyStatus: l.InstantlyStatus,
	}
	row := make([]string, len(s.fields))
	for i, f := range s.fields {
		row[i] = values[f]
	}
	return row
}
