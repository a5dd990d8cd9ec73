package catalog

// BaselineFeed is requested when a station's first line has no feed mapping.
const BaselineFeed = "gtfs"

// DefaultColor is used for lines missing from the registry.
const DefaultColor = "#808183"

// Line is a Line Registry entry.
type Line struct {
	ID            LineID
	Color         string
	NorthTerminal string
	SouthTerminal string
	Express       bool
	Feed          string
}

// Registry maps line codes to display metadata. Lookups never fail; missing
// entries fall back to defaults.
type Registry struct {
	lines map[LineID]Line
}

// NewRegistry builds a registry from line entries. Later entries win.
func NewRegistry(lines []Line) *Registry {
	r := &Registry{lines: make(map[LineID]Line, len(lines))}
	for _, l := range lines {
		r.lines[l.ID] = l
	}
	return r
}

// Lines returns every registered line in no particular order.
func (r *Registry) Lines() []Line {
	out := make([]Line, 0, len(r.lines))
	for _, l := range r.lines {
		out = append(out, l)
	}
	return out
}

// Lookup returns the registry entry and whether it was present.
func (r *Registry) Lookup(id LineID) (Line, bool) {
	l, ok := r.lines[id]
	return l, ok
}

// Color returns the line's display color.
func (r *Registry) Color(id LineID) string {
	if l, ok := r.lines[id]; ok && l.Color != "" {
		return l.Color
	}
	return DefaultColor
}

// Destination returns the terminal shown for a line heading in dir, falling
// back to "Uptown"/"Downtown".
func (r *Registry) Destination(id LineID, dir Direction) string {
	l, ok := r.lines[id]
	if ok {
		switch dir {
		case North:
			if l.NorthTerminal != "" {
				return l.NorthTerminal
			}
		case South:
			if l.SouthTerminal != "" {
				return l.SouthTerminal
			}
		}
	}
	return dir.Label()
}

// Express reports whether the line runs express. Unknown lines are local.
func (r *Registry) Express(id LineID) bool {
	return r.lines[id].Express
}

// FeedFor picks the realtime feed from the station's first line.
func (r *Registry) FeedFor(s Station) string {
	if len(s.Lines) == 0 {
		return BaselineFeed
	}
	if l, ok := r.lines[s.Lines[0]]; ok && l.Feed != "" {
		return l.Feed
	}
	return BaselineFeed
}

// DefaultLines is the built-in registry table.
func DefaultLines() []Line {
	const (
		red    = "#EE352E"
		green  = "#00933C"
		purple = "#B933AD"
		blue   = "#0039A6"
		orange = "#FF6319"
		lime   = "#6CBE45"
		brown  = "#996633"
		grey   = "#A7A9AC"
		yellow = "#FCCC0A"
	)
	return []Line{
		{ID: "1", Color: red, NorthTerminal: "Van Cortlandt Park", SouthTerminal: "South Ferry", Feed: "gtfs"},
		{ID: "2", Color: red, NorthTerminal: "Wakefield - 241 St", SouthTerminal: "Flatbush Av", Express: true, Feed: "gtfs"},
		{ID: "3", Color: red, NorthTerminal: "Harlem - 148 St", SouthTerminal: "New Lots Av", Express: true, Feed: "gtfs"},
		{ID: "4", Color: green, NorthTerminal: "Woodlawn", SouthTerminal: "Crown Hts - Utica Av", Express: true, Feed: "gtfs"},
		{ID: "5", Color: green, NorthTerminal: "Eastchester - Dyre Av", SouthTerminal: "Flatbush Av", Express: true, Feed: "gtfs"},
		{ID: "6", Color: green, NorthTerminal: "Pelham Bay Park", SouthTerminal: "Brooklyn Bridge", Feed: "gtfs"},
		{ID: "7", Color: purple, NorthTerminal: "Flushing - Main St", SouthTerminal: "34 St - Hudson Yards", Feed: "gtfs"},
		{ID: "S", Color: DefaultColor, NorthTerminal: "Grand Central", SouthTerminal: "Times Sq", Feed: "gtfs"},
		{ID: "A", Color: blue, NorthTerminal: "Inwood - 207 St", SouthTerminal: "Far Rockaway", Express: true, Feed: "gtfs-ace"},
		{ID: "C", Color: blue, NorthTerminal: "168 St", SouthTerminal: "Euclid Av", Feed: "gtfs-ace"},
		{ID: "E", Color: blue, NorthTerminal: "Jamaica Center", SouthTerminal: "World Trade Center", Feed: "gtfs-ace"},
		{ID: "B", Color: orange, NorthTerminal: "Bedford Park Blvd", SouthTerminal: "Brighton Beach", Express: true, Feed: "gtfs-bdfm"},
		{ID: "D", Color: orange, NorthTerminal: "Norwood - 205 St", SouthTerminal: "Coney Island", Express: true, Feed: "gtfs-bdfm"},
		{ID: "F", Color: orange, NorthTerminal: "Jamaica - 179 St", SouthTerminal: "Coney Island", Feed: "gtfs-bdfm"},
		{ID: "M", Color: orange, NorthTerminal: "Forest Hills - 71 Av", SouthTerminal: "Middle Village", Feed: "gtfs-bdfm"},
		{ID: "G", Color: lime, NorthTerminal: "Court Sq", SouthTerminal: "Church Av", Feed: "gtfs-g"},
		{ID: "J", Color: brown, NorthTerminal: "Jamaica Center", SouthTerminal: "Broad St", Feed: "gtfs-jz"},
		{ID: "Z", Color: brown, NorthTerminal: "Jamaica Center", SouthTerminal: "Broad St", Express: true, Feed: "gtfs-jz"},
		{ID: "L", Color: grey, NorthTerminal: "8 Av", SouthTerminal: "Canarsie - Rockaway Pkwy", Feed: "gtfs-l"},
		{ID: "N", Color: yellow, NorthTerminal: "Astoria - Ditmars Blvd", SouthTerminal: "Coney Island", Express: true, Feed: "gtfs-nqrw"},
		{ID: "Q", Color: yellow, NorthTerminal: "96 St", SouthTerminal: "Coney Island", Express: true, Feed: "gtfs-nqrw"},
		{ID: "R", Color: yellow, NorthTerminal: "Forest Hills - 71 Av", SouthTerminal: "Bay Ridge - 95 St", Feed: "gtfs-nqrw"},
		{ID: "W", Color: yellow, NorthTerminal: "Astoria - Ditmars Blvd", SouthTerminal: "Whitehall St", Feed: "gtfs-nqrw"},
	}
}
