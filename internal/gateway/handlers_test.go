package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"strategist/internal/history"
	"strategist/internal/llm"
	"strategist/internal/pipeline"
)

const planJSON = `[
	{"id": "T1", "description": "Set up", "dependencies": [], "duration": 1, "resources": [], "priority": "high"}
]`

const archJSON = `{
	"technology_stack": {},
	"system_architecture": {},
	"api_design": {},
	"data_model": {},
	"deployment_strategy": "containers"
}`

const feedbackJSON = `{
	"feedback_summary": "looks fine",
	"strengths": [],
	"concerns": [],
	"suggestions": [],
	"additional_requirements": [],
	"follow_up_questions": [],
	"overall_rating": 4,
	"confidence_in_rating": 4
}`

func testServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	fake := llm.NewFakeClient().
		Script("clarify", "What is the scope?").
		Script("plan", planJSON).
		Script("architect", archJSON).
		Script("feedback:cto", feedbackJSON).
		Script("feedback:business_owner", feedbackJSON).
		Script("feedback:end_user", feedbackJSON)

	srv := NewServer(fake)
	store, err := history.NewFromConfig("", filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)
	srv.History = store
	t.Cleanup(func() { _ = store.Close() })

	ts := httptest.NewServer(srv.BuildMux())
	t.Cleanup(ts.Close)
	return srv, ts
}

func submit(t *testing.T, ts *httptest.Server, body string) map[string]any {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/process", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func waitForStatus(t *testing.T, ts *httptest.Server, id, want string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(ts.URL + "/api/status/" + id)
		require.NoError(t, err)
		var out map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		resp.Body.Close()
		if out["status"] == want {
			return out
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("run %s never reached status %q", id, want)
	return nil
}

func TestProcessAcceptsAndCompletes(t *testing.T) {
	_, ts := testServer(t)

	out := submit(t, ts, `{"user_input": "Build a CRM"}`)
	require.Equal(t, statusPending, out["status"])
	id := out["request_id"].(string)
	require.NotEmpty(t, id)

	status := waitForStatus(t, ts, id, statusCompleted)
	require.Equal(t, true, status["success"])
	require.Equal(t, float64(1), status["iterations_completed"])
	require.Equal(t, float64(100), status["progress"])
}

func TestProcessRejectsEmptyInput(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Post(ts.URL+"/api/process", "application/json", bytes.NewBufferString(`{"user_input": "  "}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestResultsCarryFullOutcome(t *testing.T) {
	_, ts := testServer(t)

	out := submit(t, ts, `{"user_input": "Build a CRM"}`)
	id := out["request_id"].(string)
	waitForStatus(t, ts, id, statusCompleted)

	resp, err := http.Get(ts.URL + "/api/results/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var outcome map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&outcome))
	require.Equal(t, "completed", outcome["status"])
	result := outcome["result"].(map[string]any)
	require.Equal(t, "Build a CRM", result["user_input"])
	require.NotEmpty(t, result["technical_architecture"])
}

func TestStatusUnknownRunIs404(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/status/does-not-exist")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRequestsListsSubmittedRuns(t *testing.T) {
	_, ts := testServer(t)

	out := submit(t, ts, `{"user_input": "Build a CRM"}`)
	id := out["request_id"].(string)
	waitForStatus(t, ts, id, statusCompleted)

	resp, err := http.Get(ts.URL + "/api/requests")
	require.NoError(t, err)
	defer resp.Body.Close()

	var listing struct {
		Count    int              `json:"count"`
		Requests []map[string]any `json:"requests"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	require.Equal(t, 1, listing.Count)
	require.Len(t, listing.Requests, 1)
	require.Equal(t, id, listing.Requests[0]["request_id"])
}

func TestHealth(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "healthy", out["status"])
}

func TestWatchUnknownRunIs404(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/watch/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSubscribeFinishedRunYieldsTerminalEvent(t *testing.T) {
	rn := &run{id: "x", status: statusFailed, outcome: &pipeline.Outcome{Error: "boom"}}

	ch, final := rn.subscribe()

	require.Nil(t, ch)
	require.Equal(t, EventError, final.Type)
	require.Equal(t, "boom", final.Message)
}

func TestPublishDropsWhenNoWatcherDrains(t *testing.T) {
	rn := &run{id: "x", events: make(chan Event, 1)}

	// Second publish finds a full buffer and must not block.
	rn.publish(Event{Type: EventProgress, Message: "one"})
	rn.publish(Event{Type: EventProgress, Message: "two"})

	got := <-rn.events
	require.Equal(t, "one", got.Message)
}

func TestHistoryRetainsCompletedRun(t *testing.T) {
	srv, ts := testServer(t)

	out := submit(t, ts, `{"user_input": "Build a CRM"}`)
	id := out["request_id"].(string)
	waitForStatus(t, ts, id, statusCompleted)

	// The durable record is written on completion, independent of the
	// in-memory run store.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := srv.History.Get(t.Context(), id)
		if err == nil && rec.Status == statusCompleted {
			require.NotNil(t, rec.Result)
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("history record for %s never completed", id)
}
