package source

import (
	"strings"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"subwaypulse/internal/arrivals"
	"subwaypulse/internal/catalog"
)

// decodeTripUpdates extracts arrivals at one platform. Platform stop IDs are
// the station ID plus an N/S suffix, e.g. "127N".
func decodeTripUpdates(data []byte, stationID string, dir catalog.Direction, now time.Time) ([]arrivals.RawCandidate, error) {
	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(data, feed); err != nil {
		return nil, err
	}

	platform := stationID + string(dir)
	nowUnix := now.Unix()

	var out []arrivals.RawCandidate
	for _, entity := range feed.GetEntity() {
		tu := entity.GetTripUpdate()
		if tu == nil {
			continue
		}
		line := normalizeRoute(tu.GetTrip().GetRouteId())
		if line == "" {
			continue
		}

		for _, stu := range tu.GetStopTimeUpdate() {
			if stu.GetStopId() != platform {
				continue
			}
			if stu.GetScheduleRelationship() == gtfs.TripUpdate_StopTimeUpdate_SKIPPED {
				continue
			}

			ev := stu.GetArrival()
			if ev.GetTime() == 0 {
				ev = stu.GetDeparture()
			}
			at := ev.GetTime()
			if at == 0 || at < nowUnix {
				continue
			}

			out = append(out, arrivals.RawCandidate{
				Line:         line,
				Direction:    dir,
				Minutes:      float64(at-nowUnix) / 60,
				DelaySeconds: int(ev.GetDelay()),
			})
		}
	}
	return out, nil
}

// decodeAlerts converts GTFS-RT service alerts, collecting affected routes.
func decodeAlerts(data []byte) ([]arrivals.Alert, error) {
	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(data, feed); err != nil {
		return nil, err
	}

	var out []arrivals.Alert
	for _, entity := range feed.GetEntity() {
		a := entity.GetAlert()
		if a == nil {
			continue
		}

		alert := arrivals.Alert{
			ID:          entity.GetId(),
			Headline:    getTranslation(a.GetHeaderText()),
			Description: getTranslation(a.GetDescriptionText()),
		}
		if alert.Description == "" {
			alert.Description = alert.Headline
		}

		routeSet := make(map[catalog.LineID]bool)
		for _, ie := range a.GetInformedEntity() {
			rid := normalizeRoute(ie.GetRouteId())
			if rid != "" && !routeSet[rid] {
				alert.Lines = append(alert.Lines, rid)
				routeSet[rid] = true
			}
		}
		if len(alert.Lines) == 0 {
			continue
		}

		out = append(out, alert)
	}
	return out, nil
}

func getTranslation(ts *gtfs.TranslatedString) string {
	if ts == nil {
		return ""
	}
	for _, t := range ts.GetTranslation() {
		if text := t.GetText(); text != "" {
			return text
		}
	}
	return ""
}

// normalizeRoute maps feed route IDs onto board line codes: shuttles
// ("GS", "FS", "H") become "S" and the diamond-express "X" suffix is dropped.
func normalizeRoute(rid string) catalog.LineID {
	rid = strings.TrimSpace(rid)
	switch rid {
	case "GS", "FS", "H":
		return "S"
	}
	if len(rid) == 2 && strings.HasSuffix(rid, "X") {
		rid = rid[:1]
	}
	return catalog.LineID(rid)
}
