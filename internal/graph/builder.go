package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/verity/verity/internal/model"
)

// ErrInvalidInput is returned when an extraction cannot be placed in the graph
var ErrInvalidInput = errors.New("invalid graph input")

// Extraction is one document's categorized field map
type Extraction struct {
	Document model.Document
	Fields   map[string]any
}

var (
	dateTokens   = []string{"date", "from", "until", "start", "end"}
	entityTokens = []string{"authority", "institute", "provider", "landlord"}

	// person-identifying name fields are also linked from the applicant
	identityFields = map[string]bool{
		"surname":       true,
		"given_names":   true,
		"examinee_name": true,
		"employee_name": true,
	}
)

// Build folds all extractions into one graph rooted at the applicant.
// The result does not depend on input order beyond first-seen wins on dedup.
func Build(extractions []Extraction) (*Graph, error) {
	g := newGraph()
	for _, ex := range extractions {
		if err := g.fold(ex); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *Graph) fold(ex Extraction) error {
	if ex.Document.Filename == "" {
		return fmt.Errorf("%w: document without filename", ErrInvalidInput)
	}
	if _, ok := model.ParseCategory(string(ex.Document.Category)); !ok {
		return fmt.Errorf("%w: %s has unknown category %q", ErrInvalidInput, ex.Document.Filename, ex.Document.Category)
	}

	doc := g.addDocument(ex.Document)

	// sorted for a stable edge order inside one document
	fields := make([]string, 0, len(ex.Fields))
	for name := range ex.Fields {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	for _, name := range fields {
		g.addField(doc, name, ex.Fields[name])
	}

	g.addPeriod(doc, ex.Fields, "valid_from", "valid_until", KindValidityPeriod, RelHasValidityPeriod)
	g.addPeriod(doc, ex.Fields, "funding_period_start", "funding_period_end", KindFundingPeriod, RelHasFundingPeriod)
	return nil
}

func (g *Graph) addField(doc NodeID, name string, value any) {
	has := "has_" + name
	switch v := value.(type) {
	case nil:
		return
	case bool:
		g.addEdge(doc, g.intern(Fact{Kind: KindBoolean, Field: name, Bool: v}), has, name)
	case float64, float32, int, int64, int32:
		n, _ := toFloat(v)
		g.addEdge(doc, g.intern(Fact{Kind: KindNumeric, Field: name, Number: n}), has, name)
	case string:
		g.addText(doc, name, v)
	}
}

func (g *Graph) addText(doc NodeID, name, value string) {
	lower := strings.ToLower(name)
	has := "has_" + name

	if containsAny(lower, dateTokens) {
		// unparseable dates are dropped, never stored malformed
		if parsed, ok := ParseDate(value); ok {
			g.addEdge(doc, g.intern(Fact{Kind: KindDate, Field: name, Text: value, Date: parsed}), has, name)
		}
		return
	}

	if strings.Contains(lower, "name") {
		id := g.intern(Fact{Kind: KindName, Field: name, Text: value})
		g.addEdge(doc, id, has, name)
		if identityFields[name] {
			g.addEdge(ApplicantID, id, RelIdentifiedAs, name)
		}
		return
	}

	if containsAny(lower, entityTokens) {
		id := g.intern(Fact{Kind: KindEntity, Field: name, Text: value})
		label := has
		if strings.Contains(lower, "authority") {
			label = RelIssuedBy
		}
		g.addEdge(doc, id, label, name)
		return
	}

	g.addEdge(doc, g.intern(Fact{Kind: KindString, Field: name, Text: value}), has, name)
}

func (g *Graph) addPeriod(doc NodeID, fields map[string]any, startField, endField string, kind Kind, label string) {
	rawStart, ok1 := fields[startField].(string)
	rawEnd, ok2 := fields[endField].(string)
	if !ok1 || !ok2 {
		return
	}
	start, ok1 := ParseDate(rawStart)
	end, ok2 := ParseDate(rawEnd)
	if !ok1 || !ok2 {
		return
	}
	field := strings.TrimPrefix(label, "has_")
	g.addEdge(doc, g.intern(Fact{Kind: kind, Field: field, Start: start, End: end}), label, field)
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}
