package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/banshee-data/dyno.report/internal/httputil"
	"github.com/banshee-data/dyno.report/internal/monitoring"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The dashboard is served off the same mux, but the gauges are also
		// embedded in pit-lane tooling on other hosts.
		return true
	},
}

// handleEvents streams every published Reading as a server-sent event. The
// subscription is non-blocking upstream, so a stalled client misses readings
// rather than backing up the pipeline.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.InternalServerError(w, "streaming unsupported")
		return
	}

	id, readings, err := s.pipeline.Subscribe()
	if err != nil {
		httputil.InternalServerError(w, "failed to subscribe: "+err.Error())
		return
	}
	defer s.pipeline.Unsubscribe(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	w.Write([]byte(": ping\n\n"))
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case reading, ok := <-readings:
			if !ok {
				return
			}
			payload, err := json.Marshal(reading)
			if err != nil {
				monitoring.Logf("sse: failed to marshal reading: %v", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// handleLive streams every published Reading over a WebSocket. Client
// messages are read and discarded so pings keep the connection alive.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error to the client.
		monitoring.Logf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	id, readings, err := s.pipeline.Subscribe()
	if err != nil {
		monitoring.Logf("websocket: failed to subscribe: %v", err)
		return
	}
	defer s.pipeline.Unsubscribe(id)

	// Drain client frames so control messages are processed; any read error
	// means the peer is gone.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case reading, ok := <-readings:
			if !ok {
				return
			}
			if err := conn.WriteJSON(reading); err != nil {
				return
			}
		}
	}
}
