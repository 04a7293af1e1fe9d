package rules

import (
	"fmt"
	"slices"
	"strings"

	"github.com/verity/verity/internal/model"
)

func checkLanguageCertificate(r *run) []model.Alert {
	var alerts []model.Alert
	found := false

	for _, d := range r.integration {
		certType, _ := d.lower("certificate_type")
		if !strings.Contains(certType, r.cfg.LanguageCertMarker) {
			continue
		}
		found = true

		if lang, _ := d.lower("language"); !slices.Contains(r.cfg.GermanLanguages, lang) {
			alerts = append(alerts, alert(CheckLanguageCertLang,
				fmt.Sprintf("Sprachzertifikat nicht für Deutsch: %s (muss DEU/Deutsch sein)", lang),
				d.filename))
		}
		if inst, _ := d.lower("institute_name"); !containsSubstring(inst, r.cfg.AcceptedInstitutes) {
			alerts = append(alerts, alert(CheckLanguageCertInst,
				fmt.Sprintf("Sprachzertifikat von nicht anerkanntem Institut: %s", inst),
				d.filename))
		}
		if level, _ := d.lower("achieved_level"); !containsSubstring(level, r.cfg.AcceptedLevels) {
			alerts = append(alerts, alert(CheckLanguageCertLevel,
				fmt.Sprintf("Sprachniveau zu niedrig: %s (mindestens B1 erforderlich)", level),
				d.filename))
		}
	}

	if !found {
		alerts = append(alerts, alert(CheckLanguageCert, "Kein Sprachzertifikat gefunden!"))
	}
	return alerts
}

func checkNaturalizationTest(r *run) []model.Alert {
	var alerts []model.Alert
	found := false

	for _, d := range r.integration {
		certType, _ := d.lower("certificate_type")
		if !strings.Contains(certType, r.cfg.NaturalizationMarker) {
			continue
		}
		found = true

		if result, _ := d.lower("result_status"); !containsSubstring(result, r.cfg.PassedMarkers) {
			alerts = append(alerts, alert(CheckNaturalizationRes,
				fmt.Sprintf("Einbürgerungstest nicht bestanden: %s", result),
				d.filename))
		}
	}

	if !found {
		alerts = append(alerts, alert(CheckNaturalization, "Kein Einbürgerungstest-Zertifikat gefunden!"))
	}
	return alerts
}

func containsSubstring(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
