package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"subwaypulse/internal/dashboard"
	"subwaypulse/internal/templates"
	"subwaypulse/internal/theme"
)

// Options tunes handler behavior.
type Options struct {
	DashMode       bool          // show walk-buffer verdicts on arrivals
	RefreshTimeout time.Duration // upper bound on a manual refresh
	Keepalive      time.Duration // SSE comment interval
}

// Handler holds shared dependencies for all HTTP handlers.
type Handler struct {
	dash   *dashboard.Dashboard
	theme  *theme.Theme
	logger *slog.Logger
	opts   Options
	now    func() time.Time
}

// New creates a Handler.
func New(dash *dashboard.Dashboard, th *theme.Theme, logger *slog.Logger, opts Options) *Handler {
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 15 * time.Second
	}
	if opts.Keepalive <= 0 {
		opts.Keepalive = 25 * time.Second
	}
	return &Handler{dash: dash, theme: th, logger: logger, opts: opts, now: time.Now}
}

// Routes registers every board route on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Board)
	r.Get("/healthz", h.Healthz)

	r.Get("/api/board", h.BoardJSON)
	r.Get("/api/stations", h.Stations)
	r.Post("/api/station/{id}", h.SetStation)
	r.Post("/api/direction/{dir}", h.SetDirection)
	r.Post("/api/lines/{line}/toggle", h.ToggleLine)
	r.Post("/api/lines/all", h.SelectAllLines)
	r.Post("/api/lines/none", h.ClearLines)
	r.Post("/api/refresh", h.Refresh)

	r.Get("/sse/board", h.SSEBoard)
}

// boardData snapshots the dashboard for rendering.
func (h *Handler) boardData() templates.BoardData {
	opts := h.dash.Pipeline().Options()
	return templates.BoardData{
		View:         h.dash.View(),
		Stations:     h.dash.Catalog().Stations(),
		ArrivingSoon: opts.ArrivingSoon,
		WalkBuffer:   opts.WalkBuffer,
		DashMode:     h.opts.DashMode,
		Now:          h.now(),
	}
}

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encoding response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, ErrorResponse{Error: msg})
}
