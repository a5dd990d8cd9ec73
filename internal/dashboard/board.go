package dashboard

import (
	"time"

	"subwaypulse/internal/arrivals"
	"subwaypulse/internal/catalog"
)

// Board is a consistent snapshot of the dashboard: the selection plus the
// last committed schedule for the selected station.
type Board struct {
	Station    catalog.Station
	Direction  catalog.Direction
	Lines      []catalog.LineID // active filter, in station order
	Schedules  map[catalog.Direction][]arrivals.ScheduledArrival
	Alerts     []arrivals.Alert // every alert, sentinels included
	Degraded   bool
	Updated    time.Time // zero until the first commit
	InFlight   bool
	Generation uint64 // station selection generation
}

// LineSet returns the active filter as a set.
func (b Board) LineSet() map[catalog.LineID]bool {
	set := make(map[catalog.LineID]bool, len(b.Lines))
	for _, l := range b.Lines {
		set[l] = true
	}
	return set
}

// View is the rendered surface: filtered arrivals and visible alerts.
type View struct {
	StationID    string                                            `json:"stationId"`
	StationName  string                                            `json:"stationName"`
	Direction    catalog.Direction                                 `json:"direction"`
	StationLines []catalog.LineID                                  `json:"stationLines"`
	Lines        []catalog.LineID                                  `json:"lines"`
	Arrivals     []arrivals.ScheduledArrival                       `json:"arrivals"`
	Columns      map[catalog.Direction][]arrivals.ScheduledArrival `json:"columns"`
	Alerts       []arrivals.Alert                                  `json:"alerts"`
	Degraded     bool                                              `json:"degraded"`
	InFlight     bool                                              `json:"inFlight"`
	Updated      *time.Time                                        `json:"updated,omitempty"`
}

// Empty reports whether the active direction has nothing to show.
func (v View) Empty() bool {
	return len(v.Arrivals) == 0
}

// View filters the board by its line selection.
func (b Board) View() View {
	lines := b.LineSet()
	v := View{
		StationID:    b.Station.ID,
		StationName:  b.Station.Name,
		Direction:    b.Direction,
		StationLines: b.Station.Lines,
		Lines:        b.Lines,
		Columns:      make(map[catalog.Direction][]arrivals.ScheduledArrival, len(catalog.Directions)),
		Alerts:       arrivals.Visible(b.Alerts, lines),
		Degraded:     b.Degraded,
		InFlight:     b.InFlight,
	}
	for _, dir := range catalog.Directions {
		v.Columns[dir] = arrivals.Filter(b.Schedules[dir], lines)
	}
	v.Arrivals = v.Columns[b.Direction]
	if !b.Updated.IsZero() {
		u := b.Updated
		v.Updated = &u
	}
	return v
}
