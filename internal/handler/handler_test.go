package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-chi/chi/v5"

	"subwaypulse/internal/arrivals"
	"subwaypulse/internal/catalog"
	"subwaypulse/internal/dashboard"
	"subwaypulse/internal/source"
	"subwaypulse/internal/theme"
)

type staticLoader struct{}

func (staticLoader) Load(_ context.Context, st catalog.Station) source.Feed {
	feed := source.Feed{Candidates: map[catalog.Direction][]arrivals.RawCandidate{}}
	for i, l := range st.Lines {
		for _, dir := range catalog.Directions {
			feed.Candidates[dir] = append(feed.Candidates[dir],
				arrivals.RawCandidate{Line: l, Direction: dir, Minutes: float64(2 + 3*i)})
		}
	}
	return feed
}

func newTestHandler(t *testing.T) (*Handler, *dashboard.Dashboard, http.Handler) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cat, err := catalog.New(catalog.DefaultStations())
	if err != nil {
		t.Fatal(err)
	}
	reg := catalog.NewRegistry(catalog.DefaultLines())
	dash, err := dashboard.New(cat, arrivals.New(reg, arrivals.DefaultOptions()), staticLoader{}, logger, dashboard.Options{})
	if err != nil {
		t.Fatal(err)
	}
	th := theme.New(fstest.MapFS{"theme.css": {Data: []byte("body{}")}}, reg)
	if err := th.Initialize(); err != nil {
		t.Fatal(err)
	}
	h := New(dash, th, logger, Options{DashMode: true, Keepalive: time.Hour})
	r := chi.NewRouter()
	h.Routes(r)
	return h, dash, r
}

func do(t *testing.T, router http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decodeAction(t *testing.T, rec *httptest.ResponseRecorder) ActionResponse {
	t.Helper()
	var resp ActionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestBoardJSON(t *testing.T) {
	_, _, router := newTestHandler(t)
	rec := do(t, router, http.MethodGet, "/api/board")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var v dashboard.View
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	if v.StationID != "127" || v.Direction != catalog.North {
		t.Errorf("view = %+v", v)
	}
	if len(v.Lines) != len(v.StationLines) {
		t.Errorf("initial filter should be the full line set: %v vs %v", v.Lines, v.StationLines)
	}
}

func TestStations(t *testing.T) {
	_, _, router := newTestHandler(t)
	rec := do(t, router, http.MethodGet, "/api/stations")
	var out []StationResponse
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out) != len(catalog.DefaultStations()) || out[0].ID != "127" {
		t.Errorf("stations = %+v", out)
	}
}

func TestSelectionEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantApply  bool
	}{
		{"station", http.MethodPost, "/api/station/A27", http.StatusOK, true},
		{"unknown station", http.MethodPost, "/api/station/XYZ", http.StatusNotFound, false},
		{"direction", http.MethodPost, "/api/direction/S", http.StatusOK, true},
		{"bad direction", http.MethodPost, "/api/direction/east", http.StatusBadRequest, false},
		{"toggle served line", http.MethodPost, "/api/lines/7/toggle", http.StatusOK, true},
		{"toggle foreign line", http.MethodPost, "/api/lines/L/toggle", http.StatusOK, false},
		{"all", http.MethodPost, "/api/lines/all", http.StatusOK, true},
		{"none", http.MethodPost, "/api/lines/none", http.StatusOK, true},
		{"wrong method", http.MethodGet, "/api/lines/all", http.StatusMethodNotAllowed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, router := newTestHandler(t)
			rec := do(t, router, tt.method, tt.path)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Code == http.StatusOK {
				if got := decodeAction(t, rec); got.Applied != tt.wantApply {
					t.Errorf("applied = %v, want %v", got.Applied, tt.wantApply)
				}
			}
		})
	}
}

func TestRefreshThenFilter(t *testing.T) {
	_, _, router := newTestHandler(t)

	resp := decodeAction(t, do(t, router, http.MethodPost, "/api/refresh"))
	if !resp.Applied {
		t.Fatal("manual refresh should commit")
	}
	if len(resp.Board.Arrivals) == 0 || resp.Board.Updated == nil {
		t.Fatalf("board after refresh = %+v", resp.Board)
	}

	resp = decodeAction(t, do(t, router, http.MethodPost, "/api/lines/none"))
	if len(resp.Board.Arrivals) != 0 {
		t.Errorf("empty filter should show nothing, got %d", len(resp.Board.Arrivals))
	}

	resp = decodeAction(t, do(t, router, http.MethodPost, "/api/station/635"))
	if len(resp.Board.Lines) != 5 || len(resp.Board.Arrivals) != 0 {
		t.Errorf("new station should reset filter and clear board: %+v", resp.Board)
	}
}

func TestBoardPage(t *testing.T) {
	_, _, router := newTestHandler(t)
	do(t, router, http.MethodPost, "/api/refresh")

	rec := do(t, router, http.MethodGet, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"<!doctype html>", "Times Sq - 42 St", "Updated: ", `<div id="board">`} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestHealthz(t *testing.T) {
	_, _, router := newTestHandler(t)
	rec := do(t, router, http.MethodGet, "/healthz")
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || resp.LastSuccess != nil {
		t.Errorf("health = %+v", resp)
	}
}

func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name string
	var data []string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("reading SSE: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if name != "" {
				return name, strings.Join(data, "\n")
			}
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = append(data, strings.TrimPrefix(line, "data: "))
		}
	}
}

func TestSSEBoard(t *testing.T) {
	_, dash, router := newTestHandler(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sse/board", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}
	r := bufio.NewReader(resp.Body)

	name, data := readEvent(t, r)
	if name != "board" || !strings.Contains(data, "Times Sq - 42 St") {
		t.Fatalf("initial event = %q %q", name, data)
	}

	if err := dash.SetStation("R16"); err != nil {
		t.Fatal(err)
	}
	name, data = readEvent(t, r)
	if name != "board" || !strings.Contains(data, "<h1>34 St - Herald Sq</h1>") {
		t.Errorf("event after station change = %q %q", name, data)
	}
}
