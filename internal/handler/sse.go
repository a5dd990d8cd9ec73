package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"subwaypulse/internal/templates"
)

// SSEBoard streams the rendered board via Server-Sent Events whenever the
// dashboard commits a refresh or the selection changes. The client listens for
// "board" events and swaps the HTML.
func (h *Handler) SSEBoard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	updates, cancel := h.dash.Subscribe()
	defer cancel()

	h.sendBoardEvent(ctx, w, flusher)

	keepalive := time.NewTicker(h.opts.Keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-updates:
			h.sendBoardEvent(ctx, w, flusher)
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

// sendBoardEvent renders the board fragment and sends it as an SSE event.
func (h *Handler) sendBoardEvent(ctx context.Context, w http.ResponseWriter, flusher http.Flusher) {
	var buf bytes.Buffer
	if err := templates.BoardFragment(h.boardData()).Render(ctx, &buf); err != nil {
		h.logger.Error("rendering SSE board", "error", err)
		return
	}

	// SSE format: event name, then data lines (each line prefixed with "data: ")
	fmt.Fprintf(w, "event: board\n")
	for _, line := range bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n")) {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprintf(w, "\n")
	flusher.Flush()
}
