package source

import (
	"context"
	"log/slog"

	"subwaypulse/internal/arrivals"
	"subwaypulse/internal/catalog"
)

// Fallback loads from a primary source and substitutes synthetic data for
// any request that fails. Trains and alerts fail independently.
type Fallback struct {
	primary   Source
	synthetic Source
	logger    *slog.Logger
}

// NewFallback creates the policy. A nil primary means demo mode: the
// synthetic source is used directly and the feed is never marked degraded.
func NewFallback(primary, synthetic Source, logger *slog.Logger) *Fallback {
	return &Fallback{primary: primary, synthetic: synthetic, logger: logger}
}

// Load fetches both directions and the alerts for a station. It never fails.
// A cancelled ctx is not an outage: Load stops early and returns whatever it
// has without marking the feed degraded, and callers should discard it.
func (f *Fallback) Load(ctx context.Context, st catalog.Station) Feed {
	feed := Feed{Candidates: make(map[catalog.Direction][]arrivals.RawCandidate, len(catalog.Directions))}

	for _, dir := range catalog.Directions {
		cands, err := f.candidates(ctx, st, dir)
		if err != nil && ctx.Err() != nil {
			return feed
		}
		if err != nil {
			f.logger.Warn("arrival source unavailable, using synthetic data",
				"station", st.ID, "direction", dir, "error", err)
			feed.Degraded = true
			cands, err = f.synthetic.Candidates(ctx, st, dir)
			if err != nil {
				f.logger.Error("synthetic arrivals failed", "station", st.ID, "error", err)
			}
		}
		feed.Candidates[dir] = cands
	}

	alerts, err := f.alerts(ctx, st)
	if err != nil && ctx.Err() != nil {
		return feed
	}
	if err != nil {
		f.logger.Warn("alert source unavailable, using synthetic alerts",
			"station", st.ID, "error", err)
		feed.Degraded = true
		alerts, err = f.synthetic.Alerts(ctx, st)
		if err != nil {
			f.logger.Error("synthetic alerts failed", "station", st.ID, "error", err)
		}
	}
	feed.Alerts = alerts

	if feed.Degraded {
		feed.Alerts = append(feed.Alerts, OfflineAlert(st))
	}
	return feed
}

func (f *Fallback) candidates(ctx context.Context, st catalog.Station, dir catalog.Direction) ([]arrivals.RawCandidate, error) {
	if f.primary == nil {
		return f.synthetic.Candidates(ctx, st, dir)
	}
	return f.primary.Candidates(ctx, st, dir)
}

func (f *Fallback) alerts(ctx context.Context, st catalog.Station) ([]arrivals.Alert, error) {
	if f.primary == nil {
		return f.synthetic.Alerts(ctx, st)
	}
	return f.primary.Alerts(ctx, st)
}

// OfflineAlert is the low-severity notice shown while running on synthetic
// data.
func OfflineAlert(st catalog.Station) arrivals.Alert {
	return arrivals.Alert{
		ID:            "offline-" + st.ID,
		Lines:         st.Lines,
		Headline:      "Offline Mode",
		Description:   "Live data connection pending; showing estimated arrivals.",
		Informational: true,
	}
}
