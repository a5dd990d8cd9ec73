// Package dashboard holds the selection state of the single mounted board and
// drives its refreshes.
package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"subwaypulse/internal/arrivals"
	"subwaypulse/internal/catalog"
	"subwaypulse/internal/source"
)

// Trigger says why a refresh was requested.
type Trigger int

const (
	TriggerMount Trigger = iota
	TriggerSelection
	TriggerManual
	TriggerTimer
)

func (t Trigger) String() string {
	switch t {
	case TriggerMount:
		return "mount"
	case TriggerSelection:
		return "selection"
	case TriggerManual:
		return "manual"
	case TriggerTimer:
		return "timer"
	}
	return "unknown"
}

// Loader produces a feed for a station and never fails. *source.Fallback
// implements it.
type Loader interface {
	Load(ctx context.Context, st catalog.Station) source.Feed
}

// Observer is notified after every committed refresh.
type Observer interface {
	BoardCommitted(b Board)
}

// Options configures a Dashboard.
type Options struct {
	Interval        time.Duration // periodic refresh, 30s by default
	RefetchOnFilter bool          // line filter changes also fetch
	Station         string        // initial station ID, catalog default when empty
	Observer        Observer
}

// RefreshState is the advisory fetch status.
type RefreshState struct {
	InFlight    bool
	LastSuccess time.Time
}

// Dashboard is the process-wide board. Each refresh computes a full
// replacement schedule; results are committed only if the selection they
// were requested for is still current.
type Dashboard struct {
	catalog  *catalog.Catalog
	pipeline *arrivals.Pipeline
	loader   Loader
	logger   *slog.Logger
	opts     Options
	now      func() time.Time

	mu           sync.Mutex
	sel          selection
	selGen       uint64 // bumped on every station change
	seq          uint64 // last issued refresh
	committedSeq uint64
	inFlight     int
	schedules    map[catalog.Direction][]arrivals.ScheduledArrival
	alerts       []arrivals.Alert
	degraded     bool
	lastSuccess  time.Time
	subs         map[chan struct{}]struct{}

	changed chan struct{} // selection changed: re-arm and fetch
	rearm   chan struct{} // re-arm only
}

// New creates a Dashboard showing the configured or default station.
func New(cat *catalog.Catalog, pipeline *arrivals.Pipeline, loader Loader, logger *slog.Logger, opts Options) (*Dashboard, error) {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	st := cat.Default()
	if opts.Station != "" {
		var err error
		if st, err = cat.Station(opts.Station); err != nil {
			return nil, err
		}
	}
	return &Dashboard{
		catalog:  cat,
		pipeline: pipeline,
		loader:   loader,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
		sel:      newSelection(st),
		subs:     make(map[chan struct{}]struct{}),
		changed:  make(chan struct{}, 1),
		rearm:    make(chan struct{}, 1),
	}, nil
}

// Catalog returns the station catalog.
func (d *Dashboard) Catalog() *catalog.Catalog {
	return d.catalog
}

// Pipeline returns the arrival pipeline, for classification settings.
func (d *Dashboard) Pipeline() *arrivals.Pipeline {
	return d.pipeline
}

// Run refreshes on mount, then on every selection change and timer tick.
// It blocks until ctx is cancelled and waits for outstanding refreshes.
func (d *Dashboard) Run(ctx context.Context) {
	var wg sync.WaitGroup
	spawn := func(t Trigger) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Refresh(ctx, t)
		}()
	}

	spawn(TriggerMount)

	timer := time.NewTimer(d.opts.Interval)
	rearm := func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(d.opts.Interval)
	}

	for {
		select {
		case <-timer.C:
			spawn(TriggerTimer)
			timer.Reset(d.opts.Interval)
		case <-d.changed:
			rearm()
			spawn(TriggerSelection)
		case <-d.rearm:
			rearm()
		case <-ctx.Done():
			timer.Stop()
			wg.Wait()
			d.logger.Info("dashboard stopped")
			return
		}
	}
}

// Refresh loads and commits a new schedule for the current station. Timer
// ticks are suppressed while another refresh is outstanding; every other
// trigger is honored. It reports whether the result was committed.
func (d *Dashboard) Refresh(ctx context.Context, trigger Trigger) bool {
	d.mu.Lock()
	if trigger == TriggerTimer && d.inFlight > 0 {
		d.mu.Unlock()
		d.logger.Debug("periodic refresh suppressed, fetch in flight")
		return false
	}
	d.seq++
	seq, gen, st := d.seq, d.selGen, d.sel.station
	d.inFlight++
	d.mu.Unlock()
	d.broadcast()

	start := time.Now()
	feed := d.loader.Load(ctx, st)
	schedules := make(map[catalog.Direction][]arrivals.ScheduledArrival, len(catalog.Directions))
	for _, dir := range catalog.Directions {
		schedules[dir] = d.pipeline.Schedule(st, dir, feed.Candidates[dir], feed.Alerts)
	}

	d.mu.Lock()
	d.inFlight--
	cancelled := ctx.Err() != nil
	stale := gen != d.selGen || seq < d.committedSeq
	if !stale && !cancelled {
		d.schedules = schedules
		d.alerts = feed.Alerts
		d.degraded = feed.Degraded
		d.lastSuccess = d.now()
		d.committedSeq = seq
	}
	board := d.boardLocked()
	d.mu.Unlock()
	d.broadcast()

	if cancelled {
		d.logger.Debug("refresh cancelled", "station", st.ID, "trigger", trigger)
		return false
	}
	if stale {
		d.logger.Debug("discarding stale refresh", "station", st.ID, "trigger", trigger)
		return false
	}

	d.logger.Info("board refreshed",
		"station", st.ID,
		"trigger", trigger,
		"north", len(schedules[catalog.North]),
		"south", len(schedules[catalog.South]),
		"alerts", len(feed.Alerts),
		"degraded", feed.Degraded,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	if d.opts.Observer != nil {
		d.opts.Observer.BoardCommitted(board)
	}
	return true
}

// Board returns a snapshot of the current state.
func (d *Dashboard) Board() Board {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.boardLocked()
}

// View returns the rendered surface for the current state.
func (d *Dashboard) View() View {
	return d.Board().View()
}

// State returns the refresh status.
func (d *Dashboard) State() RefreshState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return RefreshState{InFlight: d.inFlight > 0, LastSuccess: d.lastSuccess}
}

func (d *Dashboard) boardLocked() Board {
	schedules := make(map[catalog.Direction][]arrivals.ScheduledArrival, len(d.schedules))
	for dir, s := range d.schedules {
		schedules[dir] = s
	}
	return Board{
		Station:    d.sel.station,
		Direction:  d.sel.direction,
		Lines:      d.sel.orderedLines(),
		Schedules:  schedules,
		Alerts:     d.alerts,
		Degraded:   d.degraded,
		Updated:    d.lastSuccess,
		InFlight:   d.inFlight > 0,
		Generation: d.selGen,
	}
}

// Subscribe returns a channel signalled whenever the board or selection
// changes. Signals coalesce; call cancel when done.
func (d *Dashboard) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	d.mu.Lock()
	d.subs[ch] = struct{}{}
	d.mu.Unlock()
	return ch, func() {
		d.mu.Lock()
		delete(d.subs, ch)
		d.mu.Unlock()
	}
}

func (d *Dashboard) broadcast() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for ch := range d.subs {
		d.signal(ch)
	}
}

func (d *Dashboard) signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
