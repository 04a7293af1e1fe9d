package graph

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verity/verity/internal/model"
)

func passport() Extraction {
	return Extraction{
		Document: model.Document{Filename: "passport.pdf", Category: model.CategoryIdentity, Pages: 1},
		Fields: map[string]any{
			"document_type":     "Passport",
			"surname":           "Mustermann",
			"given_names":       "Hans",
			"date_of_birth":     "1980-01-01",
			"nationality":       "TUR",
			"valid_from":        "2020-01-01",
			"valid_until":       "30.12.2029",
			"issuing_authority": "Generalkonsulat",
			"passport_number":   nil,
		},
	}
}

func payslip() Extraction {
	return Extraction{
		Document: model.Document{Filename: "payslip.pdf", Category: model.CategoryLivelihood, Pages: 2},
		Fields: map[string]any{
			"applicant_name":   "Hans Mustermann",
			"net_income":       2100.5,
			"employer_name":    "ACME GmbH",
			"has_signature":    true,
			"date_of_document": "not a date",
		},
	}
}

func certificate() Extraction {
	return Extraction{
		Document: model.Document{Filename: "telc.pdf", Category: model.CategoryIntegration, Pages: 1},
		Fields: map[string]any{
			"certificate_type": "Language Certificate",
			"institute_name":   "telc gGmbH",
			"examinee_name":    "Herr Hans Mustermann",
			"has_signature":    true,
			"exam_date":        "2023-05-05",
		},
	}
}

func TestBuild_SingleApplicantAndDocumentEdges(t *testing.T) {
	g, err := Build([]Extraction{passport(), payslip(), certificate()})
	require.NoError(t, err)

	applicants := 0
	for _, n := range g.Nodes() {
		if n.Kind == KindApplicant {
			applicants++
		}
	}
	assert.Equal(t, 1, applicants)

	docs := g.Documents()
	require.Len(t, docs, 3)
	for _, d := range docs {
		incoming := 0
		for _, e := range g.Edges() {
			if e.To == d.ID && e.Label == RelHasDocument {
				incoming++
			}
		}
		assert.Equal(t, 1, incoming, d.Document.Filename)
	}
}

func TestBuild_ClassifiesFields(t *testing.T) {
	g, err := Build([]Extraction{passport()})
	require.NoError(t, err)

	byField := map[string]*Fact{}
	labels := map[string]string{}
	doc := g.Documents()[0]
	for _, a := range g.Facts(doc.ID) {
		byField[a.Field] = a.Fact
	}
	for _, e := range g.Edges() {
		if e.From == doc.ID {
			labels[e.Field] = e.Label
		}
	}

	assert.Equal(t, KindString, byField["document_type"].Kind)
	assert.Equal(t, KindName, byField["surname"].Kind)
	assert.Equal(t, KindDate, byField["date_of_birth"].Kind)
	assert.Equal(t, KindDate, byField["valid_until"].Kind)
	assert.Equal(t, 2029, byField["valid_until"].Date.Year())
	assert.Equal(t, KindEntity, byField["issuing_authority"].Kind)
	assert.Equal(t, RelIssuedBy, labels["issuing_authority"])
	assert.Equal(t, "has_surname", labels["surname"])
	assert.NotContains(t, byField, "passport_number")

	period := byField["validity_period"]
	require.NotNil(t, period)
	assert.Equal(t, KindValidityPeriod, period.Kind)
	assert.Equal(t, "2020-01-01 to 2029-12-30", period.String())

	assert.Len(t, g.Identities(), 2)
}

func TestBuild_DropsUnparseableDates(t *testing.T) {
	g, err := Build([]Extraction{payslip()})
	require.NoError(t, err)

	for _, n := range g.Nodes() {
		if n.Fact != nil {
			assert.NotEqual(t, "date_of_document", n.Fact.Field)
		}
	}
}

func TestBuild_NumericAndBooleanFacts(t *testing.T) {
	g, err := Build([]Extraction{payslip()})
	require.NoError(t, err)

	id, ok := g.Lookup(FactKey{Kind: KindNumeric, Field: "net_income", Value: "2100.5"})
	require.True(t, ok)
	assert.Equal(t, 2100.5, g.Node(id).Fact.Number)

	_, ok = g.Lookup(FactKey{Kind: KindBoolean, Field: "has_signature", Value: "true"})
	assert.True(t, ok)
}

func TestBuild_IdempotentDedup(t *testing.T) {
	a := Extraction{
		Document: model.Document{Filename: "a.pdf", Category: model.CategoryIdentity},
		Fields:   map[string]any{"surname": "Mustermann", "nationality": "TUR"},
	}
	b := Extraction{
		Document: model.Document{Filename: "b.pdf", Category: model.CategoryIdentity},
		Fields:   map[string]any{"surname": "Mustermann", "nationality": "TUR"},
	}

	g, err := Build([]Extraction{a, b})
	require.NoError(t, err)

	name, ok := g.Lookup(FactKey{Kind: KindName, Value: "Mustermann"})
	require.True(t, ok)
	// two documents plus one identified_as edge from the applicant
	assert.Equal(t, 3, g.Incoming(name))

	nat, ok := g.Lookup(FactKey{Kind: KindString, Field: "nationality", Value: "TUR"})
	require.True(t, ok)
	assert.Equal(t, 2, g.Incoming(nat))

	count := 0
	for _, n := range g.Nodes() {
		if n.Fact != nil && n.Fact.Kind == KindString && n.Fact.Field == "nationality" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestBuild_NameCollisionKeepsAssertingField(t *testing.T) {
	a := Extraction{
		Document: model.Document{Filename: "id.pdf", Category: model.CategoryIdentity},
		Fields:   map[string]any{"surname": "Weber"},
	}
	b := Extraction{
		Document: model.Document{Filename: "rent.pdf", Category: model.CategoryLivelihood},
		Fields:   map[string]any{"landlord_name": "Weber"},
	}

	g, err := Build([]Extraction{a, b})
	require.NoError(t, err)

	id, ok := g.Lookup(FactKey{Kind: KindName, Value: "Weber"})
	require.True(t, ok)
	assert.Equal(t, "surname", g.Node(id).Fact.Field, "first-seen attributes win")

	rent := g.Documents()[1]
	facts := g.Facts(rent.ID)
	require.Len(t, facts, 1)
	assert.Equal(t, "landlord_name", facts[0].Field)
}

func TestBuild_FundingPeriod(t *testing.T) {
	ex := Extraction{
		Document: model.Document{Filename: "exist.pdf", Category: model.CategoryLivelihood},
		Fields: map[string]any{
			"provider_name":        "BMWK",
			"monthly_amount":       2500.0,
			"funding_period_start": "2024-01-01",
			"funding_period_end":   "31.12.2024",
		},
	}
	g, err := Build([]Extraction{ex})
	require.NoError(t, err)

	_, ok := g.Lookup(FactKey{Kind: KindFundingPeriod, Value: "2024-01-01_2024-12-31"})
	assert.True(t, ok)
}

func TestBuild_RejectsUnknownCategory(t *testing.T) {
	_, err := Build([]Extraction{{Document: model.Document{Filename: "x.pdf", Category: "Misc"}}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

// signature renders a graph as a sorted multiset of content-addressed edges
func signature(g *Graph) []string {
	label := func(id NodeID) string {
		n := g.Node(id)
		switch n.Kind {
		case KindApplicant:
			return "applicant"
		case KindDocument:
			return "doc:" + n.Document.Filename
		default:
			return fmt.Sprintf("%v", n.Fact.Key())
		}
	}
	var sig []string
	for _, e := range g.Edges() {
		sig = append(sig, label(e.From)+"-"+e.Label+"/"+e.Field+"->"+label(e.To))
	}
	for _, n := range g.Nodes() {
		sig = append(sig, "node:"+label(n.ID))
	}
	sort.Strings(sig)
	return sig
}

func TestBuild_Commutative(t *testing.T) {
	inputs := []Extraction{passport(), payslip(), certificate()}
	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 0, 2}, {2, 0, 1}}

	var want []string
	for _, order := range orders {
		var in []Extraction
		for _, i := range order {
			in = append(in, inputs[i])
		}
		g, err := Build(in)
		require.NoError(t, err)
		got := signature(g)
		if want == nil {
			want = got
			continue
		}
		assert.Equal(t, want, got, "order %v", order)
	}
}
