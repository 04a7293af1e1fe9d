package rules

import (
	"fmt"
	"slices"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/verity/verity/internal/model"
)

type personName struct {
	name     string
	filename string
}

func checkNameConsistency(r *run) []model.Alert {
	var names []personName

	for _, d := range r.identity {
		surname, ok1 := d.text("surname")
		given, ok2 := d.text("given_names")
		if ok1 && ok2 && surname != "" && given != "" {
			names = append(names, personName{name: strings.TrimSpace(given + " " + surname), filename: d.filename})
		}
	}
	for _, d := range r.integration {
		if n, ok := d.text("examinee_name"); ok {
			names = append(names, personName{name: r.stripSalutation(n), filename: d.filename})
		}
	}
	for _, d := range r.livelihood {
		if n, ok := d.text("applicant_name"); ok {
			names = append(names, personName{name: r.stripSalutation(n), filename: d.filename})
		}
	}

	var alerts []model.Alert
	for i := range names {
		for _, other := range names[i+1:] {
			sim := similarity(names[i].name, other.name)
			if sim < r.cfg.NameSimilarityThreshold {
				alerts = append(alerts, alert(CheckNameConsistency,
					fmt.Sprintf("Namensabweichung erkannt: '%s' vs '%s' (Similarity: %.0f%%)", names[i].name, other.name, sim*100),
					names[i].filename, other.filename))
			}
		}
	}
	return alerts
}

// stripSalutation drops a leading "Frau" or "Herr", case-insensitively
func (r *run) stripSalutation(name string) string {
	name = strings.TrimSpace(name)
	head, rest, found := strings.Cut(name, " ")
	if !found {
		return name
	}
	for _, p := range r.cfg.SalutationPrefixes {
		if strings.EqualFold(head, p) {
			return strings.TrimSpace(rest)
		}
	}
	return name
}

// similarity is the case-insensitive normalized edit similarity in [0,1]
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return levenshtein.Similarity(strings.ToLower(a), strings.ToLower(b), nil)
}

func checkDOBConsistency(r *run) []model.Alert {
	type dob struct {
		raw      string
		filename string
	}
	var all []dob
	for _, d := range r.identity {
		if v, ok := d.text("date_of_birth"); ok {
			all = append(all, dob{raw: v, filename: d.filename})
		}
	}
	if len(all) < 2 {
		return nil
	}

	var alerts []model.Alert
	first := all[0]
	for _, other := range all[1:] {
		if other.raw != first.raw {
			alerts = append(alerts, alert(CheckDOBConsistency,
				fmt.Sprintf("Geburtsdatum-Abweichung: '%s' vs '%s'", first.raw, other.raw),
				first.filename, other.filename))
		}
	}
	return alerts
}

func checkPassportValidity(r *run) []model.Alert {
	deadline := r.cfg.Now().AddDate(0, 0, r.cfg.PassportMinValidityDays)

	var alerts []model.Alert
	for _, d := range r.identity {
		kind, _ := d.text("document_type")
		if !strings.Contains(kind, "Passport") {
			continue
		}
		until, ok := d.date("valid_until")
		if !ok {
			continue
		}
		if until.Before(deadline) {
			alerts = append(alerts, alert(CheckPassportValidity,
				fmt.Sprintf("Pass läuft bald ab oder ist abgelaufen: %s", until.Format("2006-01-02")),
				d.filename))
		}
	}
	return alerts
}

func checkNationality(r *run) []model.Alert {
	var alerts []model.Alert
	for _, d := range r.identity {
		// absent covers null, which the builder never stores as a fact
		nat, ok := d.lower("nationality")
		if !ok || slices.Contains(r.cfg.InvalidNationalities, nat) {
			alerts = append(alerts, alert(CheckNationality,
				fmt.Sprintf("Nationalität ist ungültig oder fehlt: '%s'", nat),
				d.filename))
		}
	}
	return alerts
}
