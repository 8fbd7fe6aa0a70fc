package personalize

import (
	"fmt"
	"os"
	"sync"

	"github.com/osteele/liquid"
	"gopkg.in/yaml.v3"

	"github.com/ignite/lead-automation/internal/instantly"
)

// EmailTemplate is one step of an outreach sequence.
type EmailTemplate struct {
	Subject      string `yaml:"subject"`
	BodyTemplate string `yaml:"body_template"`
	DelayDays    int    `yaml:"delay_days"`
}

// Sequence is an ordered set of email templates.
type Sequence struct {
	Emails []EmailTemplate `yaml:"emails"`
}

// Templates is the full template file: named sequences plus the sender
// profile used in prompts.
type Templates struct {
	Sequences map[string]Sequence `yaml:"sequences"`
	Sender    SenderInfo          `yaml:"personalization"`
}

// LoadTemplates reads a YAML template file.
func LoadTemplates(path string) (*Templates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	var templates Templates
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &templates, nil
}

// DefaultSequence returns the sequence named "default".
func (t *Templates) DefaultSequence() (Sequence, error) {
	seq, ok := t.Sequences["default"]
	if !ok || len(seq.Emails) == 0 {
		return Sequence{}, fmt.Errorf("no default sequence in templates")
	}
	return seq, nil
}

// Renderer renders email templates with Liquid, caching parsed templates
// per source string.
type Renderer struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
}

// NewRenderer creates a template renderer.
func NewRenderer() *Renderer {
	return &Renderer{engine: liquid.NewEngine()}
}

func (r *Renderer) template(source string) (*liquid.Template, error) {
	if cached, ok := r.cache.Load(source); ok {
		return cached.(*liquid.Template), nil
	}
	tmpl, err := r.engine.ParseString(source)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	r.cache.Store(source, tmpl)
	return tmpl, nil
}

func (r *Renderer) render(source string, bindings map[string]interface{}) (string, error) {
	tmpl, err := r.template(source)
	if err != nil {
		return "", err
	}
	out, err := tmpl.RenderString(bindings)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return out, nil
}

// SequenceSteps renders a sequence into campaign steps for the platform.
// Variables resolve to the platform's own {{name}} placeholders, so the
// bodies pushed to the campaign are filled per lead at send time from the
// lead fields and custom variables set at enrollment.
func (r *Renderer) SequenceSteps(seq Sequence) ([]instantly.SequenceStep, error) {
	steps := make([]instantly.SequenceStep, 0, len(seq.Emails))
	for i, email := range seq.Emails {
		subject, err := r.render(email.Subject, platformBindings)
		if err != nil {
			return nil, fmt.Errorf("sequence step %d subject: %w", i+1, err)
		}
		body, err := r.render(email.BodyTemplate, platformBindings)
		if err != nil {
			return nil, fmt.Errorf("sequence step %d body: %w", i+1, err)
		}
		steps = append(steps, instantly.SequenceStep{
			Subject: subject,
			Body:    body,
			Delay:   email.DelayDays,
		})
	}
	return steps, nil
}

// platformBindings maps every template variable to the matching platform
// placeholder. Enrollment supplies the per-lead values as custom variables.
var platformBindings = map[string]interface{}{
	"first_name":                "{{first_name}}",
	"company":                   "{{company_name}}",
	"company_name":              "{{company_name}}",
	"industry":                  "{{industry}}",
	"city":                      "{{city}}",
	"personalized_opener":       "{{personalized_opener}}",
	"specific_pain_point":       "{{specific_pain_point}}",
	"industry_specific_insight": "{{industry_specific_insight}}",
}

