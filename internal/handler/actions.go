package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"subwaypulse/internal/catalog"
	"subwaypulse/internal/dashboard"
)

// ActionResponse is returned by every selection endpoint.
type ActionResponse struct {
	Applied bool           `json:"applied"`
	Board   dashboard.View `json:"board"`
}

func (h *Handler) applied(w http.ResponseWriter, ok bool) {
	h.writeJSON(w, http.StatusOK, ActionResponse{Applied: ok, Board: h.dash.View()})
}

// SetStation handles POST /api/station/{id}.
func (h *Handler) SetStation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.dash.SetStation(id); err != nil {
		if errors.Is(err, catalog.ErrUnknownStation) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("selecting station", "station", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	h.applied(w, true)
}

// SetDirection handles POST /api/direction/{dir}.
func (h *Handler) SetDirection(w http.ResponseWriter, r *http.Request) {
	dir, err := catalog.ParseDirection(chi.URLParam(r, "dir"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.dash.SetDirection(dir)
	h.applied(w, true)
}

// ToggleLine handles POST /api/lines/{line}/toggle. Lines that do not serve
// the current station are ignored, reported as applied=false.
func (h *Handler) ToggleLine(w http.ResponseWriter, r *http.Request) {
	line := catalog.LineID(chi.URLParam(r, "line"))
	h.applied(w, h.dash.ToggleLine(line))
}

// SelectAllLines handles POST /api/lines/all.
func (h *Handler) SelectAllLines(w http.ResponseWriter, r *http.Request) {
	h.dash.SelectAllLines()
	h.applied(w, true)
}

// ClearLines handles POST /api/lines/none.
func (h *Handler) ClearLines(w http.ResponseWriter, r *http.Request) {
	h.dash.ClearLines()
	h.applied(w, true)
}

// Refresh handles POST /api/refresh. A manual refresh is always issued, even
// with another fetch in flight, and finishes even if the client goes away.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.opts.RefreshTimeout)
	defer cancel()
	h.applied(w, h.dash.Refresh(ctx, dashboard.TriggerManual))
}
