package classify

import "strings"

// Handling recommendation sets. Category rules and sensitivity rules are
// matched independently; their outputs are concatenated in that order, so
// the same (category, sensitivity) pair always yields the same list.
var (
	strictHandling = []string{
		"Restrict access to personnel with an explicit need to know.",
		"Store only in approved encrypted systems.",
		"Do not forward or copy outside the originating channel.",
		"Report any suspected exposure to the security team immediately.",
	}
	confidentialHandling = []string{
		"Limit distribution to the named recipients.",
		"Encrypt at rest and in transit.",
		"Review before sharing with external parties.",
	}
	highSensitivityCaution = "Handle with additional caution: content sensitivity is high."
)

// Recommend derives handling recommendations from the policy table. The
// match is a case-insensitive substring check, so "Official (Closed) /
// Confidential" still triggers the confidential rule.
func Recommend(category, sensitivity string) []string {
	cat := strings.ToLower(category)
	sens := strings.ToLower(sensitivity)

	var recs []string
	switch {
	case strings.Contains(cat, "restricted") || strings.Contains(cat, "secret"):
		recs = append(recs, strictHandling...)
	case strings.Contains(cat, "confidential"):
		recs = append(recs, confidentialHandling...)
	}

	if strings.Contains(sens, "high") {
		recs = append(recs, highSensitivityCaution)
	}
	return recs
}
