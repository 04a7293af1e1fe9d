package graph

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind tags the variant of a node
type Kind int

const (
	KindApplicant Kind = iota
	KindDocument
	KindBoolean
	KindNumeric
	KindDate
	KindName
	KindEntity
	KindString
	KindValidityPeriod
	KindFundingPeriod
)

func (k Kind) String() string {
	switch k {
	case KindApplicant:
		return "Applicant"
	case KindDocument:
		return "Document"
	case KindBoolean:
		return "BooleanField"
	case KindNumeric:
		return "NumericField"
	case KindDate:
		return "DateField"
	case KindName:
		return "NameField"
	case KindEntity:
		return "EntityField"
	case KindString:
		return "StringField"
	case KindValidityPeriod:
		return "ValidityPeriod"
	case KindFundingPeriod:
		return "FundingPeriod"
	default:
		return "Unknown"
	}
}

// Fact is one typed unit of extracted information.
// Only the members matching Kind are meaningful; facts never change after creation.
type Fact struct {
	Kind  Kind
	Field string

	Bool   bool      // KindBoolean
	Number float64   // KindNumeric
	Text   string    // KindDate (raw), KindName, KindEntity, KindString
	Date   time.Time // KindDate (parsed)

	Start time.Time // KindValidityPeriod, KindFundingPeriod
	End   time.Time
}

// FactKey is the content identity used for deduplication
type FactKey struct {
	Kind  Kind
	Field string
	Value string
}

// Key returns the dedup key. Names and entities are shared across fields.
func (f Fact) Key() FactKey {
	switch f.Kind {
	case KindName, KindEntity:
		return FactKey{Kind: f.Kind, Value: f.Text}
	case KindValidityPeriod, KindFundingPeriod:
		return FactKey{Kind: f.Kind, Value: f.Start.Format(dateLayoutISO) + "_" + f.End.Format(dateLayoutISO)}
	default:
		return FactKey{Kind: f.Kind, Field: f.Field, Value: f.String()}
	}
}

// String renders the fact value as text
func (f Fact) String() string {
	switch f.Kind {
	case KindBoolean:
		return strconv.FormatBool(f.Bool)
	case KindNumeric:
		return strconv.FormatFloat(f.Number, 'f', -1, 64)
	case KindValidityPeriod, KindFundingPeriod:
		return fmt.Sprintf("%s to %s", f.Start.Format(dateLayoutISO), f.End.Format(dateLayoutISO))
	default:
		return f.Text
	}
}

// Lower is the lower-cased text value, the form most rules compare against
func (f Fact) Lower() string {
	return strings.ToLower(f.String())
}

const (
	dateLayoutISO    = "2006-01-02"
	dateLayoutGerman = "02.01.2006"
)

// ParseDate accepts YYYY-MM-DD and DD.MM.YYYY. Dates are midnight UTC.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{dateLayoutISO, dateLayoutGerman} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DaysBetween returns whole days from a to b (negative when b precedes a)
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
