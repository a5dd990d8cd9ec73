package arrivals

import (
	"math"

	"subwaypulse/internal/catalog"
)

// RawCandidate is an unsorted, possibly duplicated arrival from a source.
type RawCandidate struct {
	Line         catalog.LineID    `json:"line"`
	Direction    catalog.Direction `json:"direction"`
	Minutes      float64           `json:"minutes"`
	Delayed      bool              `json:"delayed"`
	DelaySeconds int               `json:"delaySeconds,omitempty"`
}

// ScheduledArrival is a pipeline output entry. It is created fresh on every
// run and never mutated afterwards.
type ScheduledArrival struct {
	ID          string            `json:"id"`
	Line        catalog.LineID    `json:"line"`
	Direction   catalog.Direction `json:"direction"`
	Destination string            `json:"destination"`
	Minutes     float64           `json:"minutes"`
	Delayed     bool              `json:"delayed"`
	Color       string            `json:"color"`
	Express     bool              `json:"express"`
	HasIssue    bool              `json:"hasIssue"`
}

// ETA is the rounded-up minute count shown on the board.
func (a ScheduledArrival) ETA() int {
	return ceilMinutes(a.Minutes)
}

// ceilMinutes rounds up, saturating so that huge values cannot wrap negative.
func ceilMinutes(m float64) int {
	if m >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Ceil(m))
}

// Alert is a service alert for one or more lines.
type Alert struct {
	ID          string           `json:"id"`
	Lines       []catalog.LineID `json:"lines"`
	Headline    string           `json:"headline,omitempty"`
	Description string           `json:"description"`
	// Informational alerts (offline mode) are shown but never raise an
	// issue badge on arrivals.
	Informational bool `json:"informational,omitempty"`
}

// Covers reports whether the alert affects the line.
func (a Alert) Covers(line catalog.LineID) bool {
	for _, l := range a.Lines {
		if l == line {
			return true
		}
	}
	return false
}
