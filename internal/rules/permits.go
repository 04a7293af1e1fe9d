package rules

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/verity/verity/internal/graph"
	"github.com/verity/verity/internal/model"
)

// permit is the residence-permit read projection of one Identity document
type permit struct {
	filename     string
	from         time.Time
	until        time.Time
	hasFrom      bool
	hasUntil     bool
	paragraph    string
	hasParagraph bool
}

var paragraphNumber = regexp.MustCompile(`^(\d+[a-z]?)`)

func projectPermits(identity []docView) []permit {
	var permits []permit
	for _, d := range identity {
		kind, _ := d.text("document_type")
		if !strings.Contains(kind, "Residence Permit") {
			continue
		}
		p := permit{filename: d.filename}
		p.from, p.hasFrom = d.date("valid_from")
		p.until, p.hasUntil = d.date("valid_until")
		p.paragraph, p.hasParagraph = d.text("paragraph_remarks")
		permits = append(permits, p)
	}
	return permits
}

// byStart returns a sorted copy; permits without valid_from sort first
func byStart(permits []permit, descending bool) []permit {
	sorted := make([]permit, len(permits))
	copy(sorted, permits)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].start(), sorted[j].start()
		if descending {
			return a.After(b)
		}
		return a.Before(b)
	})
	return sorted
}

func (p permit) start() time.Time {
	if !p.hasFrom {
		return time.Time{}
	}
	return p.from
}

func (r *run) latestPermit() (permit, bool) {
	if len(r.permits) == 0 {
		return permit{}, false
	}
	return byStart(r.permits, true)[0], true
}

// normalizeParagraph turns "§16b Abs. 1" into "16b"
func normalizeParagraph(raw string) string {
	cleaned := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(raw, "§", "")))
	m := paragraphNumber.FindStringSubmatch(cleaned)
	if m == nil {
		return ""
	}
	return m[1]
}

func checkPermitExistence(r *run) []model.Alert {
	if len(r.permits) > 0 {
		return nil
	}
	return []model.Alert{alert(CheckPermitExistence, "Kein Aufenthaltstitel gefunden!")}
}

func checkPermitValidity(r *run) []model.Alert {
	latest, ok := r.latestPermit()
	if !ok || !latest.hasUntil {
		return nil
	}
	deadline := r.cfg.Now().AddDate(0, 0, r.cfg.PermitMinValidityDays)
	if !latest.until.Before(deadline) {
		return nil
	}
	return []model.Alert{alert(CheckPermitValidity,
		fmt.Sprintf("Aufenthaltstitel läuft bald ab: %s", latest.until.Format("2006-01-02")),
		latest.filename)}
}

func checkPermitParagraph(r *run) []model.Alert {
	latest, ok := r.latestPermit()
	if !ok || !latest.hasParagraph {
		return nil
	}
	num := normalizeParagraph(latest.paragraph)
	if num == "" {
		return nil
	}
	if !slices.Contains(r.cfg.BlockedParagraphs, num) {
		return nil
	}
	return []model.Alert{alert(CheckPermitParagraph,
		fmt.Sprintf("Aufenthaltstitel mit blockiertem Paragraphen: §%s", num),
		latest.filename)}
}

func checkResidenceDuration(r *run) []model.Alert {
	if len(r.permits) == 0 {
		return nil
	}
	totalDays := 0
	filenames := make([]string, 0, len(r.permits))
	for _, p := range r.permits {
		filenames = append(filenames, p.filename)
		if p.hasFrom && p.hasUntil {
			totalDays += graph.DaysBetween(p.from, p.until)
		}
	}
	years := float64(totalDays) / r.cfg.DaysPerYear
	if years >= r.cfg.MinResidenceYears {
		return nil
	}
	return []model.Alert{alert(CheckResidenceDuration,
		fmt.Sprintf("Aufenthaltsdauer zu kurz: %.1f Jahre (mindestens %s Jahre erforderlich)", years, formatAmount(r.cfg.MinResidenceYears)),
		filenames...)}
}

func checkResidenceContinuity(r *run) []model.Alert {
	if len(r.permits) < 2 {
		return nil
	}
	sorted := byStart(r.permits, false)

	var alerts []model.Alert
	for i := 0; i < len(sorted)-1; i++ {
		cur, next := sorted[i], sorted[i+1]
		if !cur.hasUntil || !next.hasFrom {
			continue
		}
		gap := graph.DaysBetween(cur.until, next.from)
		if gap > r.cfg.MaxResidenceGapDays {
			alerts = append(alerts, alert(CheckResidenceContinuity,
				fmt.Sprintf("Lücke im Aufenthalt: %d Tage zwischen Titeln (max. %d Tage erlaubt)", gap, r.cfg.MaxResidenceGapDays),
				cur.filename, next.filename))
		}
	}
	return alerts
}
