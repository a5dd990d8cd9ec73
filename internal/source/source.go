// Package source provides the arrival sources consumed by the dashboard: a
// remote feed client, a synthetic generator, and the fallback policy that
// degrades from one to the other.
package source

import (
	"context"
	"errors"

	"subwaypulse/internal/arrivals"
	"subwaypulse/internal/catalog"
)

var (
	// ErrStatus wraps non-2xx upstream responses.
	ErrStatus = errors.New("unexpected upstream status")
	// ErrDecode wraps payloads that could not be decoded.
	ErrDecode = errors.New("malformed upstream payload")
)

// Source yields raw arrival candidates and alerts for a station. Both calls
// may be slow and may fail independently.
type Source interface {
	Candidates(ctx context.Context, st catalog.Station, dir catalog.Direction) ([]arrivals.RawCandidate, error)
	Alerts(ctx context.Context, st catalog.Station) ([]arrivals.Alert, error)
}

// Feed is everything one refresh needs to build a board.
type Feed struct {
	Candidates map[catalog.Direction][]arrivals.RawCandidate
	Alerts     []arrivals.Alert
	Degraded   bool // synthetic data substituted for at least one request
}
