package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/verity/verity/internal/graph"
	"github.com/verity/verity/internal/model"
)

func checkStateBenefits(r *run) []model.Alert {
	var alerts []model.Alert
	for _, d := range r.livelihood {
		benefit, ok := d.lower("benefit_type")
		if !ok {
			continue
		}
		for _, blocked := range r.cfg.BlockedBenefits {
			if strings.Contains(benefit, blocked) {
				alerts = append(alerts, alert(CheckStateBenefits,
					"Bezug von Bürgergeld/SGB II festgestellt - Einbürgerung blockiert",
					d.filename))
				break
			}
		}
	}
	return alerts
}

func checkLivelihood(r *run) []model.Alert {
	var income, rent float64
	var filenames []string
	seen := make(map[string]bool)
	note := func(filename string) {
		if !seen[filename] {
			seen[filename] = true
			filenames = append(filenames, filename)
		}
	}

	for _, d := range r.livelihood {
		for _, field := range r.cfg.IncomeFields {
			if v, ok := d.number(field); ok {
				income += v
				note(d.filename)
			}
		}
		for _, field := range r.cfg.RentFields {
			if v, ok := d.number(field); ok {
				rent += v
				note(d.filename)
			}
		}
	}

	var alerts []model.Alert
	if income == 0 {
		alerts = append(alerts, alert(CheckLivelihood, "Kein Einkommen nachgewiesen (Stipendium, Gehalt, etc.)"))
	}
	if rent == 0 {
		alerts = append(alerts, alert(CheckLivelihood, "Kein Mietvertrag gefunden"))
	}
	if income > 0 && rent > 0 {
		remaining := income - rent
		if remaining < r.cfg.Regelsatz {
			alerts = append(alerts, alert(CheckLivelihood,
				fmt.Sprintf("Lebensunterhalt nicht gesichert: €%.2f - €%.2f = €%.2f < €%s (Regelsatz)",
					income, rent, remaining, formatAmount(r.cfg.Regelsatz)),
				filenames...))
		}
	}
	return alerts
}

// number returns the value of a Numeric fact
func (d docView) number(field string) (float64, bool) {
	f, ok := d.fields[field]
	if !ok || f.Kind != graph.KindNumeric {
		return 0, false
	}
	return f.Number, true
}

// formatAmount prints whole amounts without decimals
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
