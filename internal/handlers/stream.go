package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sightlinehq/sightline/internal/sse"
)

// StreamHandler serves the live progress feed for a scan over
// server-sent events.
type StreamHandler struct {
	hub    *sse.Hub
	logger *slog.Logger
}

func NewStreamHandler(hub *sse.Hub, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{hub: hub, logger: logger}
}

// Events handles GET /api/stream/events?scan_id=<uuid>. The connection
// stays open until the client disconnects; a comment line goes out
// every 30s to keep intermediaries from closing the stream.
func (h *StreamHandler) Events(w http.ResponseWriter, r *http.Request) {
	scanID := r.URL.Query().Get("scan_id")
	if scanID == "" {
		jsonError(w, "scan_id query parameter is required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events, cancel := h.hub.Subscribe(scanID)
	defer cancel()

	fmt.Fprintf(w, "event: ready\ndata: {\"scan_id\":%q}\n\n", scanID)
	flusher.Flush()

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, ev.Data)
			flusher.Flush()
		}
	}
}
