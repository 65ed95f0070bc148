package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// handleWatchSSE streams run events as Server-Sent Events.
func (s *Server) handleWatchSSE(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimPrefix(r.URL.Path, "/api/watch/")
	if runID == "" {
		http.Error(w, "request_id required", http.StatusBadRequest)
		return
	}

	rn, ok := s.runs.get(runID)
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	eventCh, final := rn.subscribe()
	if eventCh == nil {
		// Run already finished; emit the terminal event and close.
		writeSSE(w, final)
		flusher.Flush()
		fmt.Fprintf(w, "event: close\ndata: {}\n\n")
		flusher.Flush()
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				fmt.Fprintf(w, "event: close\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			writeSSE(w, event)
			flusher.Flush()
			if event.Type == EventComplete || event.Type == EventError {
				return
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// subscribe returns the live event channel, or a nil channel plus the
// terminal event when the run already finished.
func (r *run) subscribe() (<-chan Event, Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events != nil {
		return r.events, Event{}
	}
	final := Event{
		Type:            EventComplete,
		Message:         "workflow completed",
		ProgressPercent: 100,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
	}
	if r.status == statusFailed {
		final.Type = EventError
		final.Message = "workflow failed"
		if r.outcome != nil && r.outcome.Error != "" {
			final.Message = r.outcome.Error
		}
	}
	return nil, final
}
