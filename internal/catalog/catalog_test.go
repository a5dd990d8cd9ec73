package catalog

import (
	"errors"
	"testing"
)

func TestNew_CollapsesDuplicateLines(t *testing.T) {
	c, err := New([]Station{{ID: "X", Name: "X St", Lines: []LineID{"1", "2", "1", "", "3"}}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	st, err := c.Station("X")
	if err != nil {
		t.Fatalf("Station: %v", err)
	}
	want := []LineID{"1", "2", "3"}
	if len(st.Lines) != len(want) {
		t.Fatalf("lines = %v, want %v", st.Lines, want)
	}
	for i := range want {
		if st.Lines[i] != want[i] {
			t.Errorf("lines[%d] = %q, want %q", i, st.Lines[i], want[i])
		}
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name     string
		stations []Station
	}{
		{"empty", nil},
		{"missing id", []Station{{Name: "Nowhere"}}},
		{"duplicate id", []Station{{ID: "A"}, {ID: "A"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.stations); err == nil {
				t.Error("New should fail")
			}
		})
	}
}

func TestCatalog_UnknownStation(t *testing.T) {
	c, _ := New(DefaultStations())
	_, err := c.Station("nope")
	if !errors.Is(err, ErrUnknownStation) {
		t.Errorf("err = %v, want ErrUnknownStation", err)
	}
	if c.Default().ID != "127" {
		t.Errorf("Default() = %q, want 127", c.Default().ID)
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{"N", North, false},
		{"s", South, false},
		{"uptown", North, false},
		{"Downtown", South, false},
		{"E", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDirection(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseDirection(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}

func TestRegistry_Fallbacks(t *testing.T) {
	r := NewRegistry(DefaultLines())

	if got := r.Color("1"); got != "#EE352E" {
		t.Errorf("Color(1) = %q", got)
	}
	if got := r.Color("X"); got != DefaultColor {
		t.Errorf("Color(X) = %q, want default", got)
	}
	if got := r.Destination("1", North); got != "Van Cortlandt Park" {
		t.Errorf("Destination(1, N) = %q", got)
	}
	if got := r.Destination("X", North); got != "Uptown" {
		t.Errorf("Destination(X, N) = %q, want Uptown", got)
	}
	if got := r.Destination("X", South); got != "Downtown" {
		t.Errorf("Destination(X, S) = %q, want Downtown", got)
	}
	if r.Express("X") {
		t.Error("unknown line should be local")
	}
	if !r.Express("A") {
		t.Error("A should be express")
	}
}

func TestRegistry_PartialTerminal(t *testing.T) {
	r := NewRegistry([]Line{{ID: "Q", NorthTerminal: "96 St"}})
	if got := r.Destination("Q", South); got != "Downtown" {
		t.Errorf("Destination(Q, S) = %q, want Downtown", got)
	}
}

func TestRegistry_FeedFor(t *testing.T) {
	r := NewRegistry(DefaultLines())
	tests := []struct {
		name    string
		station Station
		want    string
	}{
		{"numbered", Station{Lines: []LineID{"1", "A"}}, "gtfs"},
		{"ace", Station{Lines: []LineID{"A", "1"}}, "gtfs-ace"},
		{"nqrw", Station{Lines: []LineID{"N"}}, "gtfs-nqrw"},
		{"unmapped", Station{Lines: []LineID{"X"}}, BaselineFeed},
		{"no lines", Station{}, BaselineFeed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.FeedFor(tt.station); got != tt.want {
				t.Errorf("FeedFor = %q, want %q", got, tt.want)
			}
		})
	}
}
