package gateway

import (
	"sync"
	"time"

	"strategist/internal/pipeline"
)

// EventType labels a progress event emitted while a run executes.
type EventType string

const (
	EventProgress EventType = "progress"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is one unit of the watch stream for a run.
type Event struct {
	Type            EventType `json:"eventType"`
	Message         string    `json:"message"`
	ProgressPercent int       `json:"progressPercent"`
	Timestamp       string    `json:"timestamp"`
}

// run tracks one in-flight or finished pipeline execution.
type run struct {
	id        string
	userInput string
	createdAt time.Time

	mu        sync.Mutex
	status    string
	progress  int
	message   string
	updatedAt time.Time
	outcome   *pipeline.Outcome
	events    chan Event
}

// runStore holds live runs keyed by request id. Finished runs stay until
// process exit so late status polls still resolve; durable storage is the
// history store's job.
type runStore struct {
	sync.RWMutex
	runs map[string]*run
}

func newRunStore() *runStore {
	return &runStore{runs: make(map[string]*run)}
}

func (s *runStore) add(r *run) {
	s.Lock()
	defer s.Unlock()
	s.runs[r.id] = r
}

func (s *runStore) get(id string) (*run, bool) {
	s.RLock()
	defer s.RUnlock()
	r, ok := s.runs[id]
	return r, ok
}

func (s *runStore) list() []*run {
	s.RLock()
	defer s.RUnlock()
	out := make([]*run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r)
	}
	return out
}

// publish records the run's latest progress and sends the event without
// blocking the pipeline goroutine. A slow or absent watcher drops events;
// terminal events close the channel.
func (r *run) publish(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = ev.ProgressPercent
	r.message = ev.Message
	r.updatedAt = time.Now().UTC()
	if r.events == nil {
		return
	}
	ev.Timestamp = time.Now().UTC().Format(time.RFC3339)
	select {
	case r.events <- ev:
	default:
	}
	if ev.Type == EventComplete || ev.Type == EventError {
		close(r.events)
		r.events = nil
	}
}
