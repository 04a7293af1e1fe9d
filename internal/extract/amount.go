package extract

import (
	"strconv"
	"strings"
)

// ParseAmount converts a printed money amount to a number. German
// formatting is assumed when ambiguous: "1.234,56 €" is 1234.56 and
// "2.450" is 2450.
func ParseAmount(s string) (float64, bool) {
	clean := strings.NewReplacer("€", "", "EUR", "", "Euro", "", " ", "", "\u00a0", "").Replace(s)
	if clean == "" {
		return 0, false
	}

	comma := strings.LastIndex(clean, ",")
	dot := strings.LastIndex(clean, ".")

	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			clean = strings.ReplaceAll(clean, ".", "")
			clean = strings.Replace(clean, ",", ".", 1)
		} else {
			clean = strings.ReplaceAll(clean, ",", "")
		}
	case comma >= 0:
		clean = strings.ReplaceAll(clean, ",", ".")
		if strings.Count(clean, ".") > 1 {
			return 0, false
		}
	case dot >= 0:
		// a single dot followed by exactly three digits is a thousands separator
		if strings.Count(clean, ".") > 1 || len(clean)-dot-1 == 3 {
			clean = strings.ReplaceAll(clean, ".", "")
		}
	}

	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
