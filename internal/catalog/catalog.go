package catalog

import (
	"errors"
	"fmt"
)

// ErrUnknownStation is returned when a station ID is not in the catalog.
var ErrUnknownStation = errors.New("unknown station")

// LineID is a short service code such as "1", "A" or "N".
type LineID string

// Direction is one of the two travel directions at a station.
type Direction string

const (
	North Direction = "N" // uptown-bound
	South Direction = "S" // downtown-bound
)

// Directions lists both directions in display order.
var Directions = []Direction{North, South}

// ParseDirection accepts "N"/"S" as well as the board labels.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "N", "n", "uptown", "Uptown":
		return North, nil
	case "S", "s", "downtown", "Downtown":
		return South, nil
	}
	return "", fmt.Errorf("invalid direction %q", s)
}

// Label returns the generic board label for the direction.
func (d Direction) Label() string {
	if d == South {
		return "Downtown"
	}
	return "Uptown"
}

// Station is an immutable catalog entry.
type Station struct {
	ID    string
	Name  string
	Lines []LineID // ordered, unique
}

// Serves reports whether the line stops at the station.
func (s Station) Serves(line LineID) bool {
	for _, l := range s.Lines {
		if l == line {
			return true
		}
	}
	return false
}

// LineSet returns the station's lines as a set.
func (s Station) LineSet() map[LineID]bool {
	set := make(map[LineID]bool, len(s.Lines))
	for _, l := range s.Lines {
		set[l] = true
	}
	return set
}

// Catalog is the read-only set of stations, loaded once at startup.
type Catalog struct {
	stations []Station
	byID     map[string]int
}

// New builds a catalog. Station IDs must be unique and duplicate lines within
// a station are collapsed, keeping first occurrence.
func New(stations []Station) (*Catalog, error) {
	if len(stations) == 0 {
		return nil, errors.New("catalog has no stations")
	}
	c := &Catalog{byID: make(map[string]int, len(stations))}
	for _, s := range stations {
		if s.ID == "" {
			return nil, fmt.Errorf("station %q has no id", s.Name)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate station id %q", s.ID)
		}
		seen := make(map[LineID]bool, len(s.Lines))
		lines := make([]LineID, 0, len(s.Lines))
		for _, l := range s.Lines {
			if l == "" || seen[l] {
				continue
			}
			seen[l] = true
			lines = append(lines, l)
		}
		c.byID[s.ID] = len(c.stations)
		c.stations = append(c.stations, Station{ID: s.ID, Name: s.Name, Lines: lines})
	}
	return c, nil
}

// Station looks up a station by ID.
func (c *Catalog) Station(id string) (Station, error) {
	i, ok := c.byID[id]
	if !ok {
		return Station{}, fmt.Errorf("%w: %s", ErrUnknownStation, id)
	}
	return c.stations[i], nil
}

// Stations returns all stations in catalog order.
func (c *Catalog) Stations() []Station {
	out := make([]Station, len(c.stations))
	copy(out, c.stations)
	return out
}

// Default returns the first station in the catalog.
func (c *Catalog) Default() Station {
	return c.stations[0]
}

// DefaultStations is the built-in station table.
func DefaultStations() []Station {
	return []Station{
		{ID: "127", Name: "Times Sq - 42 St", Lines: []LineID{"1", "2", "3", "7", "N", "Q", "R", "W", "S"}},
		{ID: "635", Name: "Grand Central - 42 St", Lines: []LineID{"4", "5", "6", "7", "S"}},
		{ID: "A27", Name: "59 St - Columbus Circle", Lines: []LineID{"1", "A", "B", "C", "D"}},
		{ID: "R16", Name: "34 St - Herald Sq", Lines: []LineID{"B", "D", "F", "M", "N", "Q", "R", "W"}},
		{ID: "L03", Name: "Union Sq - 14 St", Lines: []LineID{"4", "5", "6", "L", "N", "Q", "R", "W"}},
	}
}
