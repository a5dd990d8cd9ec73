package dashboard

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"subwaypulse/internal/arrivals"
	"subwaypulse/internal/catalog"
	"subwaypulse/internal/source"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fixtureLoader serves fixed feeds per station. Stations with a gate block
// until the gate is closed.
type fixtureLoader struct {
	mu    sync.Mutex
	feeds map[string]source.Feed
	gates map[string]chan struct{}
	calls chan string
}

func newFixtureLoader() *fixtureLoader {
	return &fixtureLoader{
		feeds: map[string]source.Feed{
			"X": {Candidates: map[catalog.Direction][]arrivals.RawCandidate{
				catalog.North: {
					{Line: "1", Direction: catalog.North, Minutes: 4.2},
					{Line: "2", Direction: catalog.North, Minutes: 4.6},
					{Line: "1", Direction: catalog.North, Minutes: 4.9},
					{Line: "3", Direction: catalog.North, Minutes: 10.1},
				},
				catalog.South: {
					{Line: "3", Direction: catalog.South, Minutes: 2},
				},
			}},
			"Y": {
				Candidates: map[catalog.Direction][]arrivals.RawCandidate{
					catalog.North: {{Line: "A", Direction: catalog.North, Minutes: 6}},
				},
				Alerts: []arrivals.Alert{{ID: "y1", Lines: []catalog.LineID{"A"}, Description: "Delays on the A"}},
			},
		},
		gates: make(map[string]chan struct{}),
		calls: make(chan string, 64),
	}
}

func (l *fixtureLoader) gate(station string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	g := make(chan struct{})
	l.gates[station] = g
	return g
}

func (l *fixtureLoader) Load(ctx context.Context, st catalog.Station) source.Feed {
	l.calls <- st.ID
	l.mu.Lock()
	g := l.gates[st.ID]
	feed := l.feeds[st.ID]
	l.mu.Unlock()
	if g != nil {
		select {
		case <-g:
		case <-ctx.Done():
		}
	}
	return feed
}

func waitCall(t *testing.T, l *fixtureLoader, want string) {
	t.Helper()
	select {
	case got := <-l.calls:
		if got != want {
			t.Fatalf("load for %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for load of %q", want)
	}
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.Station{
		{ID: "X", Name: "X St", Lines: []catalog.LineID{"1", "2", "3"}},
		{ID: "Y", Name: "Y Av", Lines: []catalog.LineID{"A", "C"}},
	})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return c
}

func newTestDashboard(t *testing.T, l Loader, opts Options) *Dashboard {
	t.Helper()
	p := arrivals.New(catalog.NewRegistry(catalog.DefaultLines()), arrivals.Options{DisplayCount: 10})
	d, err := New(testCatalog(t), p, l, testLogger, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestRefresh_CommitsSchedule(t *testing.T) {
	l := newFixtureLoader()
	d := newTestDashboard(t, l, Options{})

	if !d.Refresh(context.Background(), TriggerManual) {
		t.Fatal("Refresh should commit")
	}
	v := d.View()
	if v.StationID != "X" || v.Direction != catalog.North {
		t.Fatalf("view = %+v", v)
	}
	want := []catalog.LineID{"1", "2", "3"}
	if len(v.Arrivals) != len(want) {
		t.Fatalf("arrivals = %+v", v.Arrivals)
	}
	for i := range want {
		if v.Arrivals[i].Line != want[i] {
			t.Errorf("[%d] = %s, want %s", i, v.Arrivals[i].Line, want[i])
		}
	}
	if len(v.Columns[catalog.South]) != 1 {
		t.Errorf("south column = %+v", v.Columns[catalog.South])
	}
	if v.Updated == nil {
		t.Error("Updated should be set after commit")
	}
	if d.State().InFlight {
		t.Error("no refresh should be in flight")
	}
}

func TestRefresh_StaleResponseDiscarded(t *testing.T) {
	l := newFixtureLoader()
	gateX := l.gate("X")
	d := newTestDashboard(t, l, Options{})
	ctx := context.Background()

	done := make(chan bool, 1)
	go func() { done <- d.Refresh(ctx, TriggerManual) }()
	waitCall(t, l, "X")

	if err := d.SetStation("Y"); err != nil {
		t.Fatalf("SetStation: %v", err)
	}

	// X resolves while Y has not been fetched yet: the cleared board stays empty.
	close(gateX)
	if <-done {
		t.Fatal("stale refresh for X should not commit")
	}
	b := d.Board()
	if b.Station.ID != "Y" || len(b.Schedules[catalog.North]) != 0 {
		t.Fatalf("board after stale X = %+v", b)
	}

	if !d.Refresh(ctx, TriggerSelection) {
		t.Fatal("refresh for Y should commit")
	}
	waitCall(t, l, "Y")
	v := d.View()
	if len(v.Arrivals) != 1 || v.Arrivals[0].Line != "A" || !v.Arrivals[0].HasIssue {
		t.Errorf("arrivals = %+v, want Y's A train with issue", v.Arrivals)
	}
}

func TestRefresh_StaleAfterNewerCommit(t *testing.T) {
	l := newFixtureLoader()
	gateX := l.gate("X")
	d := newTestDashboard(t, l, Options{})
	ctx := context.Background()

	done := make(chan bool, 1)
	go func() { done <- d.Refresh(ctx, TriggerManual) }()
	waitCall(t, l, "X")

	d.SetStation("Y")
	if !d.Refresh(ctx, TriggerSelection) {
		t.Fatal("refresh for Y should commit")
	}
	close(gateX)
	if <-done {
		t.Fatal("X must not overwrite Y")
	}
	v := d.View()
	if v.StationID != "Y" || len(v.Arrivals) != 1 || v.Arrivals[0].Line != "A" {
		t.Errorf("view = %+v", v)
	}
}

func TestRefresh_OlderRequestSameStationDiscarded(t *testing.T) {
	l := newFixtureLoader()
	gate := l.gate("X")
	d := newTestDashboard(t, l, Options{})
	ctx := context.Background()

	first := make(chan bool, 1)
	go func() { first <- d.Refresh(ctx, TriggerManual) }()
	waitCall(t, l, "X")

	l.mu.Lock()
	delete(l.gates, "X")
	l.mu.Unlock()
	if !d.Refresh(ctx, TriggerManual) {
		t.Fatal("second refresh should commit")
	}
	close(gate)
	if <-first {
		t.Error("older refresh should be discarded after a newer commit")
	}
}

func TestRefresh_TimerSuppressedWhileInFlight(t *testing.T) {
	l := newFixtureLoader()
	gate := l.gate("X")
	d := newTestDashboard(t, l, Options{})
	ctx := context.Background()

	done := make(chan bool, 1)
	go func() { done <- d.Refresh(ctx, TriggerManual) }()
	waitCall(t, l, "X")

	if !d.State().InFlight {
		t.Error("State should report in flight")
	}
	if d.Refresh(ctx, TriggerTimer) {
		t.Error("timer refresh should be suppressed")
	}
	select {
	case id := <-l.calls:
		t.Errorf("suppressed refresh still loaded %q", id)
	default:
	}

	close(gate)
	if !<-done {
		t.Error("manual refresh should commit")
	}
}

func TestSelection_Filters(t *testing.T) {
	l := newFixtureLoader()
	d := newTestDashboard(t, l, Options{})
	d.Refresh(context.Background(), TriggerManual)

	if !d.ToggleLine("1") {
		t.Fatal("ToggleLine(1) should apply")
	}
	v := d.View()
	for _, a := range v.Arrivals {
		if a.Line == "1" {
			t.Error("line 1 should be filtered out")
		}
	}
	if len(v.Lines) != 2 {
		t.Errorf("lines = %v", v.Lines)
	}

	if d.ToggleLine("A") {
		t.Error("ToggleLine for a line not at the station should be ignored")
	}

	d.ClearLines()
	if v := d.View(); !v.Empty() || len(v.Lines) != 0 {
		t.Errorf("cleared view = %+v", v)
	}

	d.SelectAllLines()
	if v := d.View(); len(v.Arrivals) != 3 {
		t.Errorf("select all arrivals = %d, want 3", len(v.Arrivals))
	}

	d.SetDirection(catalog.South)
	if v := d.View(); v.Direction != catalog.South || len(v.Arrivals) != 1 {
		t.Errorf("south view = %+v", v)
	}

	select {
	case id := <-l.calls:
		if id != "X" {
			t.Errorf("unexpected load %q", id)
		}
	default:
	}
	select {
	case id := <-l.calls:
		t.Errorf("filter or direction change fetched %q", id)
	default:
	}
}

func TestSetStation_ResetsFilter(t *testing.T) {
	d := newTestDashboard(t, newFixtureLoader(), Options{})
	d.ToggleLine("1")
	d.ToggleLine("2")
	d.SetDirection(catalog.South)

	if err := d.SetStation("Y"); err != nil {
		t.Fatalf("SetStation: %v", err)
	}
	b := d.Board()
	if len(b.Lines) != 2 || b.Lines[0] != "A" || b.Lines[1] != "C" {
		t.Errorf("lines = %v, want full Y set", b.Lines)
	}
	if b.Direction != catalog.South {
		t.Errorf("direction = %s, want preserved S", b.Direction)
	}

	if err := d.SetStation("nope"); err == nil {
		t.Error("unknown station should fail")
	}
}

func TestNew_UnknownInitialStation(t *testing.T) {
	p := arrivals.New(catalog.NewRegistry(nil), arrivals.Options{})
	if _, err := New(testCatalog(t), p, newFixtureLoader(), testLogger, Options{Station: "Z"}); err == nil {
		t.Error("New should reject unknown station")
	}
}

type recordingObserver struct {
	mu     sync.Mutex
	boards []Board
}

func (o *recordingObserver) BoardCommitted(b Board) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.boards = append(o.boards, b)
}

func TestRun_MountTimerAndTeardown(t *testing.T) {
	l := newFixtureLoader()
	obs := &recordingObserver{}
	d := newTestDashboard(t, l, Options{Interval: 30 * time.Millisecond, Observer: obs})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(stopped)
	}()

	waitCall(t, l, "X") // mount
	waitCall(t, l, "X") // first tick
	waitCall(t, l, "X") // second tick

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	for len(l.calls) > 0 {
		<-l.calls
	}
	time.Sleep(100 * time.Millisecond)
	if n := len(l.calls); n != 0 {
		t.Errorf("%d loads after teardown", n)
	}

	// The last tick may have been cancelled mid-load.
	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.boards) < 2 {
		t.Errorf("observer saw %d commits, want >= 2", len(obs.boards))
	}
}

func TestRefresh_CancelledDoesNotCommit(t *testing.T) {
	obs := &recordingObserver{}
	d := newTestDashboard(t, newFixtureLoader(), Options{Observer: obs})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if d.Refresh(ctx, TriggerManual) {
		t.Fatal("cancelled refresh should not commit")
	}
	v := d.View()
	if v.Updated != nil || len(v.Arrivals) != 0 || v.Degraded {
		t.Errorf("view after cancelled refresh = %+v", v)
	}
	if d.State().InFlight {
		t.Error("cancelled refresh left in-flight count raised")
	}
	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.boards) != 0 {
		t.Errorf("observer saw %d commits, want 0", len(obs.boards))
	}
}

func TestRun_StationChangeFetches(t *testing.T) {
	l := newFixtureLoader()
	d := newTestDashboard(t, l, Options{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	waitCall(t, l, "X")
	d.SetStation("Y")
	waitCall(t, l, "Y")
}

func TestRun_StationChangeRearmsTimer(t *testing.T) {
	const interval = 400 * time.Millisecond
	l := newFixtureLoader()
	d := newTestDashboard(t, l, Options{Interval: interval})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	waitCall(t, l, "X")
	time.Sleep(interval * 3 / 4)
	if err := d.SetStation("Y"); err != nil {
		t.Fatalf("SetStation: %v", err)
	}
	changed := time.Now()
	waitCall(t, l, "Y") // selection fetch
	waitCall(t, l, "Y") // next tick

	// Without the re-arm the original tick would land a quarter interval
	// after the change.
	if elapsed := time.Since(changed); elapsed < interval*3/4 {
		t.Errorf("tick came %v after station change, want about %v", elapsed, interval)
	}
}

func TestRun_RefetchOnFilter(t *testing.T) {
	l := newFixtureLoader()
	d := newTestDashboard(t, l, Options{Interval: time.Hour, RefetchOnFilter: true})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	waitCall(t, l, "X")
	d.ToggleLine("2")
	waitCall(t, l, "X")
}

func TestSubscribe(t *testing.T) {
	d := newTestDashboard(t, newFixtureLoader(), Options{})
	ch, cancel := d.Subscribe()

	d.SetDirection(catalog.South)
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("subscriber not signalled")
	}

	cancel()
	d.SetDirection(catalog.North)
	select {
	case <-ch:
		t.Error("cancelled subscriber should not be signalled")
	default:
	}
}
