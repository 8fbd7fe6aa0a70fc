package instantly

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexInt handles Instantly fields that arrive as either a JSON number or a
// numeric string. Empty strings and nulls decode to 0.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*f = 0
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("FlexInt: cannot parse %q", s)
		}
		*f = FlexInt(n)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexInt(int(n))
	return nil
}

func (f FlexInt) Int() int { return int(f) }

// FlexBool handles reply flags that arrive as bool, number, or string.
type FlexBool bool

func (f *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = false
	case bytes.Equal(data, []byte("true")):
		*f = true
	case bytes.Equal(data, []byte("false")):
		*f = false
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.ToLower(strings.TrimSpace(s))
		*f = FlexBool(s == "true" || s == "1" || s == "yes")
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*f = FlexBool(n != 0)
	}
	return nil
}

func (f FlexBool) Bool() bool { return bool(f) }

// LeadStatus is the campaign-membership status Instantly reports for a
// lead. Some endpoints return the numeric lifecycle code, others a text
// label, so both forms are kept.
type LeadStatus struct {
	code   int
	text   string
	isText bool
}

func (s *LeadStatus) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = LeadStatus{}
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = LeadStatus{text: v, isText: true}
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = LeadStatus{code: int(n)}
	return nil
}

// Code returns the numeric status code, 0 when the platform sent text.
func (s LeadStatus) Code() int { return s.code }

// Text returns the raw text form, "" when the platform sent a code.
func (s LeadStatus) Text() string { return s.text }

// Label renders the status for the CRM: the text form as-is, or the
// code translated through the lifecycle table.
func (s LeadStatus) Label() string {
	if s.isText {
		return s.text
	}
	return StatusLabel(s.code)
}

// statusLabels is the Instantly lead lifecycle table.
var statusLabels = map[int]string{
	0:  "Not Started",
	1:  "Active",
	2:  "Paused",
	3:  "Completed",
	4:  "Bounced",
	5:  "Unsubscribed",
	6:  "Replied",
	7:  "Interested",
	8:  "Not Interested",
	9:  "Meeting Booked",
	10: "Closed",
}

// StatusLabel maps a lifecycle code to its label. Codes the table does not
// know render as "Unknown (n)" rather than failing, so new platform states
// pass through the sync visibly.
func StatusLabel(code int) string {
	if label, ok := statusLabels[code]; ok {
		return label
	}
	return fmt.Sprintf("Unknown (%d)", code)
}

// Campaign is an Instantly campaign.
type Campaign struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Status FlexInt `json:"status"`
}

// CampaignLead is a lead inside a campaign as the leads/list endpoint
// reports it. Engagement counters and reply markers vary in type across
// workspaces, hence the flexible fields.
type CampaignLead struct {
	Email           string     `json:"email"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	CompanyName     string     `json:"company_name"`
	Status          LeadStatus `json:"status"`
	Replied         FlexBool   `json:"replied"`
	ReplyCount      FlexInt    `json:"reply_count"`
	EmailReplyCount FlexInt    `json:"email_reply_count"`
	EmailOpenCount  FlexInt    `json:"email_open_count"`
	EmailClickCount FlexInt    `json:"email_click_count"`
	ReplyText       string     `json:"reply_text"`
	RepliedAt       string     `json:"replied_at"`
	LastReplyAt     string     `json:"last_reply_at"`
}

// HasReplied reports whether any of the three reply markers is set. The
// platform is inconsistent about which one it populates, so a lead counts
// as replied when any marker fires.
func (l CampaignLead) HasReplied() bool {
	if strings.EqualFold(l.Status.Text(), "replied") {
		return true
	}
	if l.Replied.Bool() {
		return true
	}
	return l.ReplyCount.Int() > 0
}

// RepliedWhen returns the best available reply timestamp, "" when unknown.
func (l CampaignLead) RepliedWhen() string {
	if l.RepliedAt != "" {
		return l.RepliedAt
	}
	return l.LastReplyAt
}

// NewLead is the payload for adding one lead to a campaign. Instantly V2
// takes a flat structure with personalization under custom_variables.
type NewLead struct {
	Campaign        string            `json:"campaign"`
	Email           string            `json:"email"`
	FirstName       string            `json:"first_name"`
	LastName        string            `json:"last_name"`
	CompanyName     string            `json:"company_name"`
	Website         string            `json:"website,omitempty"`
	Phone           string            `json:"phone,omitempty"`
	CustomVariables map[string]string `json:"custom_variables,omitempty"`
}

// CampaignAnalytics is the aggregate counter set for one campaign.
type CampaignAnalytics struct {
	LeadsCount        FlexInt `json:"leads_count"`
	ContactedCount    FlexInt `json:"contacted_count"`
	EmailsSentCount   FlexInt `json:"emails_sent_count"`
	OpenCount         FlexInt `json:"open_count"`
	ReplyCount        FlexInt `json:"reply_count"`
	BouncedCount      FlexInt `json:"bounced_count"`
	UnsubscribedCount FlexInt `json:"unsubscribed_count"`
}

// Schedule is a campaign sending window. Days use 0=Sunday through
// 6=Saturday; hours are 24h local to Timezone.
type Schedule struct {
	Days      []int  `json:"days"`
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"`
	Timezone  string `json:"timezone"`
}

// SequenceStep is one email in a campaign sequence. Delay is days after
// the previous step, 0 for the opener. Bodies may reference lead fields
// and custom variables with {{name}} placeholders.
type SequenceStep struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Delay   int    `json:"delay"`
}
