package arrivals

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"subwaypulse/internal/catalog"
)

// MaxMinutes is the furthest-out arrival the board accepts. Candidates beyond
// it are dropped as implausible.
const MaxMinutes = 24 * 60

// Options tunes the pipeline. Zero values are replaced by defaults.
type Options struct {
	DisplayCount   int           // max arrivals per direction
	DelayThreshold time.Duration // delay beyond which an arrival counts as delayed
	ArrivingSoon   int           // ETA below this many minutes is "arriving soon"
	WalkBuffer     int           // minutes to reach the platform, for dash mode
}

// DefaultOptions returns the observed board settings.
func DefaultOptions() Options {
	return Options{
		DisplayCount:   8,
		DelayThreshold: 60 * time.Second,
		ArrivingSoon:   4,
		WalkBuffer:     7,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.DisplayCount <= 0 {
		o.DisplayCount = d.DisplayCount
	}
	if o.DelayThreshold <= 0 {
		o.DelayThreshold = d.DelayThreshold
	}
	if o.ArrivingSoon <= 0 {
		o.ArrivingSoon = d.ArrivingSoon
	}
	if o.WalkBuffer <= 0 {
		o.WalkBuffer = d.WalkBuffer
	}
	return o
}

// Pipeline turns raw candidates into per-direction schedules. It holds no
// mutable state and is safe for concurrent use.
type Pipeline struct {
	registry *catalog.Registry
	opts     Options
	newID    func() string
}

// New creates a Pipeline.
func New(registry *catalog.Registry, opts Options) *Pipeline {
	return &Pipeline{
		registry: registry,
		opts:     opts.withDefaults(),
		newID:    func() string { return uuid.New().String() },
	}
}

// Options returns the effective options.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Schedule builds the display schedule for one direction at a station.
// Candidates for other directions, for lines that do not serve the station,
// or with minute values outside [0, MaxMinutes] are dropped before deduplication.
func (p *Pipeline) Schedule(st catalog.Station, dir catalog.Direction, raw []RawCandidate, alerts []Alert) []ScheduledArrival {
	var pool []RawCandidate
	for _, c := range raw {
		if c.Direction != dir {
			continue
		}
		if len(st.Lines) > 0 && !st.Serves(c.Line) {
			continue
		}
		if math.IsNaN(c.Minutes) || c.Minutes < 0 || c.Minutes > MaxMinutes {
			continue
		}
		pool = append(pool, c)
	}

	pool = Truncate(Order(Dedup(pool)), p.opts.DisplayCount)

	issues := issueLines(alerts)
	out := make([]ScheduledArrival, 0, len(pool))
	for _, c := range pool {
		out = append(out, p.enrich(c, issues))
	}
	return out
}

func (p *Pipeline) enrich(c RawCandidate, issues map[catalog.LineID]bool) ScheduledArrival {
	delayed := c.Delayed || time.Duration(c.DelaySeconds)*time.Second > p.opts.DelayThreshold
	return ScheduledArrival{
		ID:          p.newID(),
		Line:        c.Line,
		Direction:   c.Direction,
		Destination: p.registry.Destination(c.Line, c.Direction),
		Minutes:     c.Minutes,
		Delayed:     delayed,
		Color:       p.registry.Color(c.Line),
		Express:     p.registry.Express(c.Line),
		HasIssue:    issues[c.Line],
	}
}

// dedupKey identifies an arrival by line and rounded-up minute.
func dedupKey(c RawCandidate) string {
	return fmt.Sprintf("%s-%d", c.Line, ceilMinutes(c.Minutes))
}

// Dedup drops every candidate whose (line, ceil(minutes)) key was already
// seen, keeping the first in input order.
func Dedup(raw []RawCandidate) []RawCandidate {
	seen := make(map[string]bool, len(raw))
	out := make([]RawCandidate, 0, len(raw))
	for _, c := range raw {
		k := dedupKey(c)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out
}

// Order sorts by rounded-up minutes; ties keep input order.
func Order(raw []RawCandidate) []RawCandidate {
	out := make([]RawCandidate, len(raw))
	copy(out, raw)
	sort.SliceStable(out, func(i, j int) bool {
		return ceilMinutes(out[i].Minutes) < ceilMinutes(out[j].Minutes)
	})
	return out
}

// Truncate keeps at most n entries.
func Truncate(raw []RawCandidate, n int) []RawCandidate {
	if n >= 0 && len(raw) > n {
		return raw[:n]
	}
	return raw
}

// Filter keeps arrivals whose line is in lines. An empty set yields an empty
// list.
func Filter(schedule []ScheduledArrival, lines map[catalog.LineID]bool) []ScheduledArrival {
	out := make([]ScheduledArrival, 0, len(schedule))
	for _, a := range schedule {
		if lines[a.Line] {
			out = append(out, a)
		}
	}
	return out
}
