package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"subwaypulse/internal/arrivals"
	"subwaypulse/internal/catalog"
	"subwaypulse/internal/dashboard"
	"subwaypulse/internal/handler"
	"subwaypulse/internal/source"
	"subwaypulse/internal/theme"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type emptyLoader struct{}

func (emptyLoader) Load(context.Context, catalog.Station) source.Feed { return source.Feed{} }

func newTestServer(t *testing.T, opts Options) http.Handler {
	t.Helper()
	static := fstest.MapFS{
		"theme.css": {Data: []byte("body{}")},
		"board.js":  {Data: []byte("// board")},
	}
	cat, err := catalog.New(catalog.DefaultStations())
	if err != nil {
		t.Fatal(err)
	}
	reg := catalog.NewRegistry(catalog.DefaultLines())
	dash, err := dashboard.New(cat, arrivals.New(reg, arrivals.DefaultOptions()), emptyLoader{}, testLogger, dashboard.Options{})
	if err != nil {
		t.Fatal(err)
	}
	th := theme.New(static, reg)
	if err := th.Initialize(); err != nil {
		t.Fatal(err)
	}
	h := handler.New(dash, th, testLogger, handler.Options{})
	return New(h, th, static, opts, testLogger).Handler()
}

func get(srv http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestSecurityHeaders(t *testing.T) {
	rec := get(newTestServer(t, Options{}), "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	for k, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	} {
		if got := rec.Header().Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t, Options{})

	tests := []struct {
		path      string
		wantCache string
		wantBody  string
	}{
		{"/static/theme.css?v=abc", "public, max-age=31536000, immutable", ".line-A"},
		{"/static/theme.css", "no-cache", "body{}"},
		{"/static/board.js?v=abc", "public, max-age=31536000, immutable", "// board"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(srv, tt.path, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if got := rec.Header().Get("Cache-Control"); got != tt.wantCache {
				t.Errorf("Cache-Control = %q, want %q", got, tt.wantCache)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body missing %q", tt.wantBody)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	origin := "https://board.example"
	srv := newTestServer(t, Options{CORSOrigins: []string{origin}})

	rec := get(srv, "/api/board", http.Header{"Origin": {origin}})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != origin {
		t.Errorf("Allow-Origin = %q, want %q", got, origin)
	}

	rec = get(srv, "/api/board", http.Header{"Origin": {"https://evil.example"}})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}

	rec = get(newTestServer(t, Options{}), "/api/board", http.Header{"Origin": {origin}})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("CORS should be off without origins, got %q", got)
	}
}

func TestStatusWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: 200}
	sw.WriteHeader(http.StatusTeapot)
	sw.Flush()
	if sw.status != http.StatusTeapot || rec.Code != http.StatusTeapot {
		t.Errorf("status = %d / %d", sw.status, rec.Code)
	}
	if !rec.Flushed {
		t.Error("Flush should reach the underlying writer")
	}
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	called := false
	h := requestLogger(testLogger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusAccepted)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if !called || rec.Code != http.StatusAccepted {
		t.Errorf("called=%v code=%d", called, rec.Code)
	}
}
