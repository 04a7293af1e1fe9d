// Package rules evaluates the naturalization eligibility checks over an
// applicant graph. Every rule is a pure function of the graph and the
// injected Config; the engine keeps no state between runs.
package rules

import (
	"time"

	"github.com/verity/verity/internal/graph"
	"github.com/verity/verity/internal/model"
)

// Check names as they appear in alerts
const (
	CheckNameConsistency     = "Name Consistency"
	CheckDOBConsistency      = "Date of Birth Consistency"
	CheckPassportValidity    = "Passport Validity"
	CheckNationality         = "Nationality"
	CheckPermitExistence     = "Residence Permit Existence"
	CheckPermitValidity      = "Residence Permit Validity"
	CheckPermitParagraph     = "Residence Permit Paragraph"
	CheckResidenceDuration   = "Residence Duration"
	CheckResidenceContinuity = "Residence Continuity"
	CheckStateBenefits       = "State Benefits"
	CheckLivelihood          = "Livelihood Calculation"
	CheckLanguageCert        = "Language Certificate"
	CheckLanguageCertLang    = "Language Certificate Language"
	CheckLanguageCertInst    = "Language Certificate Institute"
	CheckLanguageCertLevel   = "Language Certificate Level"
	CheckNaturalization      = "Naturalization Test"
	CheckNaturalizationRes   = "Naturalization Test Result"
)

// Engine runs the rule set
type Engine struct {
	cfg   Config
	rules []rule
}

// rule reads one run and reports its violations
type rule func(r *run) []model.Alert

// New creates an engine bound to cfg
func New(cfg Config) *Engine {
	if cfg.Now == nil {
		cfg.Now = DefaultConfig().Now
	}
	return &Engine{
		cfg: cfg,
		rules: []rule{
			checkNameConsistency,
			checkDOBConsistency,
			checkPassportValidity,
			checkNationality,
			checkPermitExistence,
			checkPermitValidity,
			checkPermitParagraph,
			checkResidenceDuration,
			checkResidenceContinuity,
			checkStateBenefits,
			checkLivelihood,
			checkLanguageCertificate,
			checkNaturalizationTest,
		},
	}
}

// Evaluate runs every rule against g and returns the alerts in rule order
func (e *Engine) Evaluate(g *graph.Graph) []model.Alert {
	r := newRun(e.cfg, g)

	alerts := []model.Alert{}
	for _, check := range e.rules {
		alerts = append(alerts, check(r)...)
	}
	return alerts
}

// Verdict aggregates alerts into the overall result
func Verdict(alerts []model.Alert) model.Verdict {
	if len(alerts) == 0 {
		return model.VerdictSuccess
	}
	for _, a := range alerts {
		if a.Severity == model.SeverityHigh {
			return model.VerdictCriticalError
		}
	}
	return model.VerdictWarning
}

// docView is one document with its facts keyed by the asserting field
type docView struct {
	filename string
	fields   map[string]*graph.Fact
}

func (d docView) text(field string) (string, bool) {
	f, ok := d.fields[field]
	if !ok {
		return "", false
	}
	return f.String(), true
}

func (d docView) lower(field string) (string, bool) {
	f, ok := d.fields[field]
	if !ok {
		return "", false
	}
	return f.Lower(), true
}

// date returns the parsed value of a Date fact
func (d docView) date(field string) (time.Time, bool) {
	f, ok := d.fields[field]
	if !ok || f.Kind != graph.KindDate {
		return time.Time{}, false
	}
	return f.Date, true
}

// run holds the per-evaluation projections. It is rebuilt on every Evaluate.
type run struct {
	cfg         Config
	identity    []docView
	livelihood  []docView
	integration []docView
	permits     []permit
}

func newRun(cfg Config, g *graph.Graph) *run {
	r := &run{cfg: cfg}
	parts := g.DocumentsByCategory()
	r.identity = views(g, parts[model.CategoryIdentity])
	r.livelihood = views(g, parts[model.CategoryLivelihood])
	r.integration = views(g, parts[model.CategoryIntegration])
	r.permits = projectPermits(r.identity)
	return r
}

func views(g *graph.Graph, docs []graph.Node) []docView {
	out := make([]docView, 0, len(docs))
	for _, d := range docs {
		v := docView{filename: d.Document.Filename, fields: make(map[string]*graph.Fact)}
		for _, a := range g.Facts(d.ID) {
			v.fields[a.Field] = a.Fact
		}
		out = append(out, v)
	}
	return out
}

func alert(check, message string, filenames ...string) model.Alert {
	if filenames == nil {
		filenames = []string{}
	}
	return model.Alert{
		Severity:  model.SeverityHigh,
		Check:     check,
		Message:   message,
		Filenames: filenames,
	}
}
