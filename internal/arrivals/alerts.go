package arrivals

import (
	"strings"

	"subwaypulse/internal/catalog"
)

// SentinelPhrase marks an alert that only reports normal service.
const SentinelPhrase = "service is active"

// IsSentinel reports whether the alert is a normal-service notice.
func IsSentinel(a Alert) bool {
	return strings.Contains(strings.ToLower(a.Description), SentinelPhrase)
}

// Visible returns the alerts a rider should see: sentinels are dropped and the
// rest must cover at least one selected line. Informational alerts are
// station-wide and always shown.
func Visible(alerts []Alert, lines map[catalog.LineID]bool) []Alert {
	var out []Alert
	for _, a := range alerts {
		if IsSentinel(a) {
			continue
		}
		if a.Informational {
			out = append(out, a)
			continue
		}
		for _, l := range a.Lines {
			if lines[l] {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// issueLines collects lines covered by at least one non-sentinel,
// non-informational alert.
func issueLines(alerts []Alert) map[catalog.LineID]bool {
	set := make(map[catalog.LineID]bool)
	for _, a := range alerts {
		if a.Informational || IsSentinel(a) {
			continue
		}
		for _, l := range a.Lines {
			set[l] = true
		}
	}
	return set
}
