package pipeline

import (
	"slices"
	"time"

	"github.com/verity/verity/internal/model"
	"github.com/verity/verity/internal/rules"
)

const (
	unknownDocument = "Unknown Document"
	unknownType     = "unknown"
)

// buildReport maps alerts to the external report. Every alert becomes one
// failed check.
func buildReport(applicationID string, outcomes []outcome, alerts []model.Alert, checkedAt time.Time) *model.ValidationReport {
	checks := make([]model.CheckResult, 0, len(alerts))
	for _, a := range alerts {
		title := unknownDocument
		if len(a.Filenames) > 0 {
			title = a.Filenames[0]
		}
		checks = append(checks, model.CheckResult{
			DocumentTitle:     title,
			Type:              documentType(outcomes, a.Filenames),
			CheckDisplayTitle: a.Check,
			Status:            model.CheckFail,
			Message:           a.Message,
		})
	}

	return &model.ValidationReport{
		ApplicationID: applicationID,
		OverallResult: rules.Verdict(alerts),
		CheckedAt:     model.FormatCheckedAt(checkedAt),
		Checks:        checks,
	}
}

// documentType is the declared kind of the first usable document named by
// the alert
func documentType(outcomes []outcome, filenames []string) string {
	for _, o := range outcomes {
		if !o.usable() || !slices.Contains(filenames, o.ref.Filename) {
			continue
		}
		if o.ref.Kind != "" {
			return o.ref.Kind
		}
		return unknownType
	}
	return unknownType
}

// extractedData lists what the backend returned per document, in input order.
// Documents that never reached extraction are left out.
func extractedData(outcomes []outcome) []model.ExtractedDocument {
	out := []model.ExtractedDocument{}
	for _, o := range outcomes {
		data := o.fields
		if data == nil {
			data = o.failure
		}
		if data == nil {
			continue
		}
		out = append(out, model.ExtractedDocument{
			Data: data,
			Metadata: model.DocumentMetadata{
				Filename:     o.ref.Filename,
				Page:         o.doc.Pages,
				Category:     o.doc.Category,
				DocumentType: o.ref.Kind,
			},
		})
	}
	return out
}
