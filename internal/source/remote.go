package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"subwaypulse/internal/arrivals"
	"subwaypulse/internal/catalog"
)

// Format selects how upstream bodies are decoded.
type Format string

const (
	FormatJSON   Format = "json"
	FormatGTFSRT Format = "gtfsrt"
)

// RemoteConfig configures a Remote source.
type RemoteConfig struct {
	Endpoint string
	APIKey   string // sent as x-api-key when set
	Format   Format
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Remote fetches arrivals and alerts from an HTTP endpoint.
type Remote struct {
	endpoint *url.URL
	apiKey   string
	format   Format
	registry *catalog.Registry
	client   *http.Client
	cache    *Cache
	logger   *slog.Logger
	now      func() time.Time
}

// NewRemote creates a remote source.
func NewRemote(cfg RemoteConfig, registry *catalog.Registry, logger *slog.Logger) (*Remote, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("endpoint %q must be an absolute URL", cfg.Endpoint)
	}
	if cfg.Format == "" {
		cfg.Format = FormatJSON
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Remote{
		endpoint: u,
		apiKey:   cfg.APIKey,
		format:   cfg.Format,
		registry: registry,
		client:   &http.Client{Timeout: cfg.Timeout},
		cache:    NewCache(cfg.CacheTTL),
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Close releases the response cache.
func (r *Remote) Close() {
	r.cache.Close()
}

type trainsPayload struct {
	Arrivals []jsonArrival `json:"arrivals"`
}

type jsonArrival struct {
	arrivals.RawCandidate
	Station string `json:"station,omitempty"`
}

type alertsPayload struct {
	Alerts []arrivals.Alert `json:"alerts"`
}

// Candidates requests the station's feed and returns the arrivals for dir.
func (r *Remote) Candidates(ctx context.Context, st catalog.Station, dir catalog.Direction) ([]arrivals.RawCandidate, error) {
	feed := r.registry.FeedFor(st)
	body, err := r.get(ctx, url.Values{"type": {"trains"}, "line": {feed}})
	if err != nil {
		return nil, fmt.Errorf("trains for %s: %w", st.ID, err)
	}

	if r.format == FormatGTFSRT {
		cands, err := decodeTripUpdates(body, st.ID, dir, r.now())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return cands, nil
	}

	var payload trainsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	var out []arrivals.RawCandidate
	for _, a := range payload.Arrivals {
		if a.Station != "" && a.Station != st.ID {
			continue
		}
		if a.Direction != dir {
			continue
		}
		out = append(out, a.RawCandidate)
	}
	return out, nil
}

// Alerts requests the alerts feed and keeps alerts for the station's lines.
func (r *Remote) Alerts(ctx context.Context, st catalog.Station) ([]arrivals.Alert, error) {
	body, err := r.get(ctx, url.Values{"type": {"alerts"}})
	if err != nil {
		return nil, fmt.Errorf("alerts: %w", err)
	}

	var all []arrivals.Alert
	if r.format == FormatGTFSRT {
		all, err = decodeAlerts(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
	} else {
		var payload alertsPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		all = payload.Alerts
	}

	var out []arrivals.Alert
	for _, a := range all {
		for _, l := range a.Lines {
			if st.Serves(l) {
				out = append(out, a)
				break
			}
		}
	}
	return out, nil
}

func (r *Remote) get(ctx context.Context, params url.Values) ([]byte, error) {
	u := *r.endpoint
	q := u.Query()
	for k, v := range params {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	target := u.String()

	if cached, ok := r.cache.Get(target); ok {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if r.format == FormatGTFSRT {
		req.Header.Set("Accept", "application/x-protobuf")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	if r.apiKey != "" {
		req.Header.Set("x-api-key", r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d from %s", ErrStatus, resp.StatusCode, target)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	r.cache.Set(target, body)
	r.logger.Debug("upstream fetched", "url", target, "bytes", len(body))
	return body, nil
}
