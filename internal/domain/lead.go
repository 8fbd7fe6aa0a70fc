package domain

import "strings"

// Lead status values as stored in the CRM. The status column is free text
// in the sheet; these are the values the automation writes.
const (
	StatusNew       = "New"
	StatusContacted = "Contacted"
	StatusQueued    = "Queued"
	StatusReplied   = "Replied"
	StatusWon       = "Won"
	StatusLost      = "Lost"
)

// Lead is the canonical CRM record for a prospective company contact.
// All fields are strings: the backing store is a spreadsheet and every cell
// is text. Numeric-looking fields (LeadScore, EmployeeCount, Opens, Clicks)
// are parsed lazily by consumers, which must tolerate junk values.
type Lead struct {
	ID              string
	Company         string
	ContactName     string
	Email           string
	Phone           string
	Website         string
	Industry        string
	EmployeeCount   string
	City            string
	Country         string
	LeadScore       string
	Status          string
	DateAdded       string
	LastContact     string
	Email1Sent      string
	Email2Sent      string
	Email3Sent      string
	Email4Sent      string
	Opens           string
	Clicks          string
	Response        string
	Notes           string
	Source          string
	LinkedIn        string
	Title           string
	InstantlyStatus string // lifecycle label reported by the outreach platform
}

// responseSentinels are column values that mean "no real reply": stale
// boolean imports and placeholder dashes left by manual edits.
var responseSentinels = map[string]bool{
	"":      true,
	"TRUE":  true,
	"FALSE": true,
	"N/A":   true,
	"-":     true,
	"NONE":  true,
}

// HasResponse reports whether the lead's Response column contains a real
// reply rather than an empty or sentinel value.
func (l Lead) HasResponse() bool {
	return !responseSentinels[strings.ToUpper(strings.TrimSpace(l.Response))]
}

// EmailSent reports whether the given sequence step (1-4) has been sent.
func (l Lead) EmailSent(step int) bool {
	switch step {
	case 1:
		return l.Email1Sent == "TRUE"
	case 2:
		return l.Email2Sent == "TRUE"
	case 3:
		return l.Email3Sent == "TRUE"
	case 4:
		return l.Email4Sent == "TRUE"
	}
	return false
}

// Candidate is a sourced lead before it has been inserted into the CRM.
type Candidate struct {
	Company       string
	ContactName   string
	Email         string
	Phone         string
	Website       string
	Industry      string
	EmployeeCount string
	City          string
	Country       string
	LinkedIn      string
	Title         string
	Source        string
	Notes         string
	LeadScore     int

	// Enrichment context used by personalization, not stored in the CRM.
	Description  string
	Technologies []string
	Keywords     []string
}
