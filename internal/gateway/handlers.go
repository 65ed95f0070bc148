// Package gateway exposes the pipeline over HTTP: submit a request, poll
// its status, fetch results, and watch progress over SSE or websocket.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"strategist/internal/agent"
	"strategist/internal/artifact"
	"strategist/internal/history"
	"strategist/internal/llm"
	"strategist/internal/pipeline"
)

const (
	statusPending    = "pending"
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusFailed     = "failed"
)

// Server hosts the HTTP surface. History and artifact stores are optional;
// a nil store disables that concern without changing the endpoints.
type Server struct {
	Client        llm.Client
	History       *history.Store
	Artifacts     *artifact.Store
	MaxIterations int
	RunTimeout    time.Duration

	runs      *runStore
	processed atomic.Int64
}

func NewServer(client llm.Client) *Server {
	return &Server{
		Client:        client,
		MaxIterations: pipeline.DefaultMaxIterations,
		RunTimeout:    10 * time.Minute,
		runs:          newRunStore(),
	}
}

type processRequest struct {
	UserInput     string         `json:"user_input"`
	Context       map[string]any `json:"context,omitempty"`
	MaxIterations int            `json:"max_iterations,omitempty"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var in processRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(in.UserInput) == "" {
		http.Error(w, "user_input is required", http.StatusBadRequest)
		return
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	rn := &run{
		id:        id,
		userInput: in.UserInput,
		status:    statusPending,
		message:   "Request received and queued for processing",
		createdAt: now,
		updatedAt: now,
		events:    make(chan Event, 32),
	}
	s.runs.add(rn)
	s.recordHistory(r.Context(), rn)

	go s.execute(rn, in)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"request_id": id,
		"status":     statusPending,
		"message":    "Request received and queued for processing",
	})
}

// execute drives one pipeline run to completion in the background. The run
// outlives the submitting HTTP request, so it gets its own context bounded
// only by the run timeout.
func (s *Server) execute(rn *run, in processRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), s.RunTimeout)
	defer cancel()

	rn.mu.Lock()
	rn.status = statusProcessing
	rn.updatedAt = time.Now().UTC()
	rn.mu.Unlock()

	orch := pipeline.NewOrchestrator(s.Client, pipeline.WithProgress(func(node pipeline.Node, iteration int) {
		rn.publish(Event{
			Type:            EventProgress,
			Message:         fmt.Sprintf("running %s (iteration %d)", node, iteration+1),
			ProgressPercent: progressPercent(node),
		})
	}))

	outcome := orch.ProcessRequest(ctx, in.UserInput, agent.Context(in.Context), in.MaxIterations)

	rn.mu.Lock()
	rn.outcome = &outcome
	rn.progress = 100
	if outcome.Success {
		rn.status = statusCompleted
		rn.message = "workflow completed"
	} else {
		rn.status = statusFailed
		rn.message = outcome.Error
	}
	rn.updatedAt = time.Now().UTC()
	rn.mu.Unlock()
	s.processed.Add(1)

	if outcome.Success {
		rn.publish(Event{Type: EventComplete, Message: "workflow completed", ProgressPercent: 100})
	} else {
		rn.publish(Event{Type: EventError, Message: outcome.Error, ProgressPercent: 100})
	}

	s.recordHistory(ctx, rn)
	s.archive(ctx, rn.id, outcome)
}

func progressPercent(node pipeline.Node) int {
	switch node {
	case pipeline.NodeClarify:
		return 10
	case pipeline.NodePlan:
		return 30
	case pipeline.NodeArchitect:
		return 50
	case pipeline.NodeFeedback:
		return 70
	case pipeline.NodeConsolidate:
		return 85
	case pipeline.NodeCheckLimit:
		return 95
	}
	return 100
}

func (s *Server) recordHistory(ctx context.Context, rn *run) {
	if s.History == nil {
		return
	}
	rn.mu.Lock()
	rec := history.Record{
		ID:        rn.id,
		UserInput: rn.userInput,
		Status:    rn.status,
		CreatedAt: rn.createdAt,
	}
	if rn.outcome != nil {
		now := time.Now().UTC()
		rec.CompletedAt = &now
		if raw, err := json.Marshal(rn.outcome); err == nil {
			var m map[string]any
			if json.Unmarshal(raw, &m) == nil {
				rec.Result = m
			}
		}
	}
	rn.mu.Unlock()
	if err := s.History.Put(ctx, rec); err != nil {
		log.Printf("gateway: history write for %s failed: %v", rn.id, err)
	}
}

func (s *Server) archive(ctx context.Context, id string, outcome pipeline.Outcome) {
	if s.Artifacts == nil {
		return
	}
	key, err := s.Artifacts.SaveResult(ctx, id, outcome)
	if err != nil {
		log.Printf("gateway: archive for %s failed: %v", id, err)
		return
	}
	log.Printf("gateway: archived %s to %s", id, key)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/status/")
	rn, ok := s.runs.get(id)
	if !ok {
		s.statusFromHistory(w, r, id)
		return
	}
	rn.mu.Lock()
	resp := map[string]any{
		"request_id": rn.id,
		"status":     rn.status,
		"progress":   rn.progress,
		"message":    rn.message,
		"created_at": rn.createdAt.Format(time.RFC3339),
		"updated_at": rn.updatedAt.Format(time.RFC3339),
	}
	if rn.outcome != nil {
		resp["iterations_completed"] = rn.outcome.IterationsCompleted
		resp["success"] = rn.outcome.Success
	}
	rn.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) statusFromHistory(w http.ResponseWriter, r *http.Request, id string) {
	if s.History != nil {
		if rec, err := s.History.Get(r.Context(), id); err == nil {
			progress := 0
			if rec.Status == statusCompleted || rec.Status == statusFailed {
				progress = 100
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"request_id": rec.ID,
				"status":     rec.Status,
				"progress":   progress,
				"created_at": rec.CreatedAt.Format(time.RFC3339),
			})
			return
		} else if !errors.Is(err, history.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	http.Error(w, "request not found", http.StatusNotFound)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/results/")
	rn, ok := s.runs.get(id)
	if ok {
		rn.mu.Lock()
		outcome := rn.outcome
		status := rn.status
		rn.mu.Unlock()
		if outcome == nil {
			writeJSON(w, http.StatusOK, map[string]any{
				"request_id": id,
				"status":     status,
				"message":    "Request is not complete. Current status: " + status,
			})
			return
		}
		writeJSON(w, http.StatusOK, outcome)
		return
	}
	if s.History != nil {
		rec, err := s.History.Get(r.Context(), id)
		if err == nil && rec.Result != nil {
			writeJSON(w, http.StatusOK, rec.Result)
			return
		}
		if err != nil && !errors.Is(err, history.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	http.Error(w, "request not found", http.StatusNotFound)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "healthy",
		"timestamp":          time.Now().UTC().Format(time.RFC3339),
		"requests_processed": s.processed.Load(),
	})
}

func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	type item struct {
		RequestID string `json:"request_id"`
		UserInput string `json:"user_input"`
		Status    string `json:"status"`
		CreatedAt string `json:"created_at"`
	}
	items := make([]item, 0)
	seen := map[string]bool{}
	for _, rn := range s.runs.list() {
		rn.mu.Lock()
		items = append(items, item{
			RequestID: rn.id,
			UserInput: rn.userInput,
			Status:    rn.status,
			CreatedAt: rn.createdAt.Format(time.RFC3339),
		})
		rn.mu.Unlock()
		seen[rn.id] = true
	}
	if s.History != nil {
		recs, err := s.History.List(r.Context(), 100)
		if err != nil {
			log.Printf("gateway: history list failed: %v", err)
		}
		for _, rec := range recs {
			if seen[rec.ID] {
				continue
			}
			items = append(items, item{
				RequestID: rec.ID,
				UserInput: rec.UserInput,
				Status:    rec.Status,
				CreatedAt: rec.CreatedAt.Format(time.RFC3339),
			})
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt > items[j].CreatedAt })
	writeJSON(w, http.StatusOK, map[string]any{"count": len(items), "requests": items})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
