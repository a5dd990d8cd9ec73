// Package templates renders the board as HTML components. The markup lives in
// board.templ; run `templ generate` after editing it.
package templates

import (
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"subwaypulse/internal/arrivals"
	"subwaypulse/internal/catalog"
	"subwaypulse/internal/dashboard"
	"subwaypulse/internal/theme"
)

// Page carries the document-level fields.
type Page struct {
	Title        string
	AssetVersion string
}

// BoardData is everything the board fragment needs.
type BoardData struct {
	View         dashboard.View
	Stations     []catalog.Station
	ArrivingSoon int
	WalkBuffer   int
	DashMode     bool
	Now          time.Time
}

// EmptyMessage is shown when nothing matches the line filter.
const EmptyMessage = "No trains matching selection"

func assetURL(name, version string) string {
	return "/static/" + name + "?v=" + version
}

func togglePath(l catalog.LineID) string {
	return "/api/lines/" + string(l) + "/toggle"
}

func lineActive(v dashboard.View, l catalog.LineID) bool {
	for _, on := range v.Lines {
		if on == l {
			return true
		}
	}
	return false
}

func pressed(v dashboard.View, l catalog.LineID) string {
	return strconv.FormatBool(lineActive(v, l))
}

func lineButtonClass(v dashboard.View, l catalog.LineID) string {
	cls := "bullet " + theme.ClassFor(l)
	if !lineActive(v, l) {
		cls += " off"
	}
	return cls
}

func columnClass(d BoardData, dir catalog.Direction) string {
	if dir == d.View.Direction {
		return "column active"
	}
	return "column"
}

func arrivalClass(d BoardData, a arrivals.ScheduledArrival) string {
	switch arrivals.Classify(a, d.ArrivingSoon) {
	case arrivals.StatusArrivingSoon:
		return "arrival soon"
	case arrivals.StatusDelayed:
		return "arrival delayed"
	}
	return "arrival"
}

func bulletClass(a arrivals.ScheduledArrival) string {
	cls := "bullet " + theme.ClassFor(a.Line)
	if a.Express {
		cls += " express"
	}
	return cls
}

func etaLabel(a arrivals.ScheduledArrival) string {
	return strconv.Itoa(a.ETA()) + " min"
}

func alertClass(a arrivals.Alert) string {
	if a.Informational {
		return "alert informational"
	}
	return "alert"
}

// relativeAge is only called when the view has an update time.
func relativeAge(d BoardData) string {
	return humanize.RelTime(*d.View.Updated, d.Now, "ago", "from now")
}
