package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"strategist/internal/llm"
	"strategist/internal/tester"
)

func pinPlanClock(t *testing.T) {
	t.Helper()
	orig := TimeNow
	TimeNow = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { TimeNow = orig })
}

func TestPlanEmptyRequirementsFailsBeforeModelCall(t *testing.T) {
	fake := llm.NewFakeClient()
	p := &Planner{LLM: fake}

	_, err := p.Plan(context.Background(), "   ", nil)

	tester.True(t, errors.Is(err, ErrValidation), "expected validation error")
	tester.Eq(t, fake.Calls("plan"), 0, "model must not be invoked")
}

func TestPlanParsesWellFormedTasks(t *testing.T) {
	pinPlanClock(t)
	fake := llm.NewFakeClient().Script("plan", `[
		{"id": "T1", "description": "Set up environment", "dependencies": [], "duration": 2, "resources": ["DevOps"], "priority": "high"},
		{"id": "T2", "description": "Design schema", "dependencies": ["T1"], "duration": 3, "resources": ["Backend"], "priority": "high"}
	]`)
	p := &Planner{LLM: fake}

	tasks, err := p.Plan(context.Background(), "Build a web app", nil)

	tester.NoErr(t, err)
	tester.Eq(t, len(tasks), 2)
	tester.Eq(t, tasks[0].ID, "T1")
	tester.Eq(t, tasks[1].Dependencies, []string{"T1"})
	tester.Eq(t, tasks[1].StartDate, "2025-01-03T00:00:00Z")
}

func TestPlanMissingKeyDiscardsWholePlan(t *testing.T) {
	pinPlanClock(t)
	// Second task lacks "priority": the whole plan is replaced, not repaired.
	fake := llm.NewFakeClient().Script("plan", `[
		{"id": "T1", "description": "ok", "dependencies": [], "duration": 1, "resources": [], "priority": "high"},
		{"id": "T2", "description": "bad", "dependencies": [], "duration": 1, "resources": []}
	]`)
	p := &Planner{LLM: fake}

	tasks, err := p.Plan(context.Background(), "Build something", nil)

	tester.NoErr(t, err)
	tester.Eq(t, len(tasks), 1)
	tester.Eq(t, tasks[0].Description, "Review and refine project requirements")
	tester.Eq(t, tasks[0].StartDate, "2025-01-01T00:00:00Z")
}

func TestPlanModelErrorYieldsFallbackTask(t *testing.T) {
	pinPlanClock(t)
	fake := llm.NewFakeClient()
	fake.Err = errors.New("upstream unavailable")
	p := &Planner{LLM: fake}

	tasks, err := p.Plan(context.Background(), "Build something", nil)

	tester.NoErr(t, err)
	tester.Eq(t, len(tasks), 1)
	tester.Eq(t, tasks[0].ID, "T1")
	tester.Eq(t, tasks[0].Priority, "high")
}

func TestPlanCoercesStringDurations(t *testing.T) {
	pinPlanClock(t)
	fake := llm.NewFakeClient().Script("plan", `[
		{"id": "T1", "description": "d", "dependencies": [], "duration": "4", "resources": [], "priority": "low"}
	]`)
	p := &Planner{LLM: fake}

	tasks, err := p.Plan(context.Background(), "Build something", nil)

	tester.NoErr(t, err)
	tester.Eq(t, tasks[0].Duration, 4)
}
