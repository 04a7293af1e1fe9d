package extract

import (
	"log/slog"
	"slices"

	"github.com/verity/verity/internal/model"
)

// Schema describes what the backend is asked to return for one category
type Schema struct {
	Category model.Category
	Prompt   string
	Fields   []string

	// Amounts are monetary fields normalized to numbers
	Amounts []string
}

// Has reports whether field belongs to the schema
func (s *Schema) Has(field string) bool {
	return slices.Contains(s.Fields, field)
}

// IsAmount reports whether field holds a monetary value
func (s *Schema) IsAmount(field string) bool {
	return slices.Contains(s.Amounts, field)
}

// Filter keeps schema fields only and normalizes amounts. Unknown keys are
// dropped; values keep their JSON types.
func (s *Schema) Filter(fields map[string]any, logger *slog.Logger) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if !s.Has(k) {
			logger.Debug("dropping field outside schema", "category", s.Category, "field", k)
			continue
		}
		if s.IsAmount(k) {
			if str, ok := v.(string); ok {
				if amount, ok := ParseAmount(str); ok {
					v = amount
				}
			}
		}
		out[k] = v
	}
	return out
}

// Registry maps categories to schemas
type Registry struct {
	schemas  map[model.Category]*Schema
	fallback *Schema
}

// NewRegistry creates a registry with the built-in schemas. Identity is the
// fallback for unknown categories.
func NewRegistry() *Registry {
	r := &Registry{schemas: make(map[model.Category]*Schema)}

	r.Register(identitySchema())
	r.Register(livelihoodSchema())
	r.Register(integrationSchema())

	r.fallback = r.schemas[model.CategoryIdentity]
	return r
}

// Register adds or replaces the schema for its category
func (r *Registry) Register(s *Schema) {
	r.schemas[s.Category] = s
}

// Find returns the schema for category, or the fallback
func (r *Registry) Find(category model.Category) *Schema {
	if s, ok := r.schemas[category]; ok {
		return s
	}
	return r.fallback
}

func identitySchema() *Schema {
	return &Schema{
		Category: model.CategoryIdentity,
		Prompt:   identityPrompt,
		Fields: []string{
			"document_type", "surname", "given_names", "date_of_birth", "nationality",
			"passport_number", "valid_from", "valid_until", "residence_permit_type",
			"paragraph_remarks", "issuing_authority",
		},
	}
}

func livelihoodSchema() *Schema {
	return &Schema{
		Category: model.CategoryLivelihood,
		Prompt:   livelihoodPrompt,
		Fields: []string{
			"document_category", "date_of_document", "applicant_name", "provider_name",
			"monthly_amount", "funding_period_start", "funding_period_end", "is_original",
			"total_warm_rent", "cold_rent", "rental_start_date", "landlord_name",
			"net_income", "gross_income", "employer_name", "employment_type",
			"monthly_gross", "has_signature", "has_stamp", "benefit_type",
		},
		Amounts: []string{
			"monthly_amount", "net_income", "gross_income", "monthly_gross",
			"total_warm_rent", "cold_rent",
		},
	}
}

func integrationSchema() *Schema {
	return &Schema{
		Category: model.CategoryIntegration,
		Prompt:   integrationPrompt,
		Fields: []string{
			"certificate_type", "institute_name", "exam_date", "examinee_name",
			"achieved_level", "language", "total_score", "result_status",
			"has_signature", "has_stamp",
		},
	}
}
