package model

import "strings"

// Category is the coarse document class chosen during categorization
type Category string

const (
	CategoryIdentity    Category = "Identity"    // Passports, ID cards, residence permits
	CategoryLivelihood  Category = "Livelihood"  // Payslips, rent contracts, scholarships, benefits
	CategoryIntegration Category = "Integration" // Language certificates, naturalization tests
)

// Categories lists the known categories in evaluation order
func Categories() []Category {
	return []Category{CategoryIdentity, CategoryLivelihood, CategoryIntegration}
}

// ParseCategory maps a backend answer onto a known category.
// Matching is case-insensitive; ok is false for anything unknown.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories() {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, true
		}
	}
	return "", false
}

// DocumentRef is a document declared by an application before it is acquired
type DocumentRef struct {
	Kind        string `json:"type"`                   // Declared kind (e.g. "passport", "mietvertrag")
	Filename    string `json:"filename"`               // Name used in alerts and reports
	LocalSource string `json:"local_source,omitempty"` // Local path; when empty the document is fetched remotely
}

// Document is one submitted file after rendering and categorization
type Document struct {
	Filename string   `json:"filename"`
	Kind     string   `json:"document_type,omitempty"`
	Category Category `json:"category"`
	Pages    int      `json:"page"`
}

// Application is the metadata record of one naturalization application
type Application struct {
	ID        string        `json:"applicationId"`
	FirstName string        `json:"firstName"`
	LastName  string        `json:"lastName"`
	Documents []DocumentRef `json:"submittedDocuments"`
}
