package rules

import "time"

// Config is the immutable rule table handed to New.
// Swapping it changes thresholds and accepted values without touching rule code.
type Config struct {
	// Identity
	NameSimilarityThreshold float64  // pairs below this ratio are flagged
	SalutationPrefixes      []string // stripped from examinee and applicant names
	InvalidNationalities    []string // lower-cased

	// Validity windows in days
	PassportMinValidityDays int
	PermitMinValidityDays   int

	// Residence
	BlockedParagraphs   []string
	MinResidenceYears   float64
	DaysPerYear         float64
	MaxResidenceGapDays int

	// Livelihood
	BlockedBenefits []string // matched as lower-cased substrings of benefit_type
	IncomeFields    []string
	RentFields      []string
	Regelsatz       float64

	// Integration
	GermanLanguages      []string
	AcceptedInstitutes   []string
	AcceptedLevels       []string
	PassedMarkers        []string
	LanguageCertMarker   string
	NaturalizationMarker string

	// Now is the evaluation clock
	Now func() time.Time
}

// DefaultConfig returns the German naturalization rule table (StAG §10)
func DefaultConfig() Config {
	return Config{
		NameSimilarityThreshold: 0.90,
		SalutationPrefixes:      []string{"frau", "herr"},
		InvalidNationalities:    []string{"null", "none", "", "ungeklärt", "staatenlos"},

		PassportMinValidityDays: 60,
		PermitMinValidityDays:   60,

		BlockedParagraphs: []string{
			"16a", "16b", "16d", "16e", "16f", "17", "18f", "19", "19b", "19e",
			"20", "22", "23a", "24", "104c",
		},
		MinResidenceYears:   5,
		DaysPerYear:         365.25,
		MaxResidenceGapDays: 180,

		BlockedBenefits: []string{"bürgergeld", "sgb ii"},
		IncomeFields:    []string{"monthly_amount", "net_income"},
		RentFields:      []string{"total_warm_rent"},
		Regelsatz:       563,

		GermanLanguages:      []string{"deu", "de", "german", "deutsch"},
		AcceptedInstitutes:   []string{"telc", "goethe", "testdaf", "ösd", "dsh", "dtz", "bamf"},
		AcceptedLevels:       []string{"b1", "b2", "c1", "c2", "dsh-1", "dsh-2", "dsh-3"},
		PassedMarkers:        []string{"passed", "bestanden"},
		LanguageCertMarker:   "language",
		NaturalizationMarker: "naturalization",

		Now: time.Now,
	}
}
