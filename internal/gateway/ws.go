package gateway

import (
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleWatchWS mirrors the SSE watch stream over a websocket for clients
// behind proxies that buffer SSE.
func (s *Server) handleWatchWS(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimPrefix(r.URL.Path, "/ws/watch/")
	if runID == "" {
		http.Error(w, "request_id required", http.StatusBadRequest)
		return
	}

	rn, ok := s.runs.get(runID)
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("gateway: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	eventCh, final := rn.subscribe()
	if eventCh == nil {
		_ = conn.WriteJSON(final)
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
			if event.Type == EventComplete || event.Type == EventError {
				return
			}
		}
	}
}
