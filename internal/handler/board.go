package handler

import (
	"net/http"
	"time"

	"subwaypulse/internal/catalog"
	"subwaypulse/internal/templates"
)

// Board serves the full board page.
func (h *Handler) Board(w http.ResponseWriter, r *http.Request) {
	p := templates.Page{Title: "SubwayPulse", AssetVersion: h.theme.Version()}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.BoardPage(p, h.boardData()).Render(r.Context(), w); err != nil {
		h.logger.Error("rendering board page", "error", err)
	}
}

// BoardJSON handles GET /api/board.
func (h *Handler) BoardJSON(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.dash.View())
}

// StationResponse is one entry of GET /api/stations.
type StationResponse struct {
	ID    string           `json:"id"`
	Name  string           `json:"name"`
	Lines []catalog.LineID `json:"lines"`
}

// Stations handles GET /api/stations.
func (h *Handler) Stations(w http.ResponseWriter, r *http.Request) {
	stations := h.dash.Catalog().Stations()
	out := make([]StationResponse, len(stations))
	for i, s := range stations {
		out[i] = StationResponse{ID: s.ID, Name: s.Name, Lines: s.Lines}
	}
	h.writeJSON(w, http.StatusOK, out)
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status      string     `json:"status"`
	Degraded    bool       `json:"degraded"`
	InFlight    bool       `json:"inFlight"`
	LastSuccess *time.Time `json:"lastSuccess,omitempty"`
}

// Healthz reports liveness plus the refresh status. A degraded board is
// still healthy.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	state := h.dash.State()
	resp := HealthResponse{
		Status:   "ok",
		Degraded: h.dash.Board().Degraded,
		InFlight: state.InFlight,
	}
	if !state.LastSuccess.IsZero() {
		t := state.LastSuccess
		resp.LastSuccess = &t
	}
	h.writeJSON(w, http.StatusOK, resp)
}
