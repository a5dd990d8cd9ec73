package dashboard

import (
	"subwaypulse/internal/catalog"
)

// selection is the user's station, direction and line filter. It is only
// touched with Dashboard.mu held.
type selection struct {
	station   catalog.Station
	direction catalog.Direction
	lines     map[catalog.LineID]bool
}

func newSelection(st catalog.Station) selection {
	return selection{station: st, direction: catalog.North, lines: st.LineSet()}
}

// orderedLines returns the filter in station order.
func (s selection) orderedLines() []catalog.LineID {
	out := make([]catalog.LineID, 0, len(s.lines))
	for _, l := range s.station.Lines {
		if s.lines[l] {
			out = append(out, l)
		}
	}
	return out
}

// SetStation switches station. The line filter is reset to the new station's
// full line set, the displayed schedule is cleared, and any refresh still in
// flight for the previous station will be discarded.
func (d *Dashboard) SetStation(id string) error {
	st, err := d.catalog.Station(id)
	if err != nil {
		return err
	}

	d.mu.Lock()
	dir := d.sel.direction
	d.sel = newSelection(st)
	d.sel.direction = dir
	d.selGen++
	d.schedules = nil
	d.alerts = nil
	d.degraded = false
	d.mu.Unlock()

	d.logger.Info("station selected", "station", st.ID, "name", st.Name)
	d.broadcast()
	d.signal(d.changed)
	return nil
}

// SetDirection changes which column is the active view. It never fetches.
func (d *Dashboard) SetDirection(dir catalog.Direction) {
	d.mu.Lock()
	d.sel.direction = dir
	d.mu.Unlock()
	d.broadcast()
}

// ToggleLine adds or removes a line from the filter. Lines that do not serve
// the current station are ignored and false is returned.
func (d *Dashboard) ToggleLine(line catalog.LineID) bool {
	d.mu.Lock()
	if !d.sel.station.Serves(line) {
		d.mu.Unlock()
		return false
	}
	if d.sel.lines[line] {
		delete(d.sel.lines, line)
	} else {
		d.sel.lines[line] = true
	}
	d.mu.Unlock()

	d.filterChanged()
	return true
}

// SelectAllLines sets the filter to every line at the station.
func (d *Dashboard) SelectAllLines() {
	d.mu.Lock()
	d.sel.lines = d.sel.station.LineSet()
	d.mu.Unlock()
	d.filterChanged()
}

// ClearLines empties the filter. The board then shows no arrivals.
func (d *Dashboard) ClearLines() {
	d.mu.Lock()
	d.sel.lines = make(map[catalog.LineID]bool)
	d.mu.Unlock()
	d.filterChanged()
}

// filterChanged re-filters the committed schedule. Filtering is a pure
// post-fetch step, so a fetch only happens when RefetchOnFilter is set; the
// periodic timer is re-armed either way.
func (d *Dashboard) filterChanged() {
	d.broadcast()
	if d.opts.RefetchOnFilter {
		d.signal(d.changed)
		return
	}
	d.signal(d.rearm)
}
