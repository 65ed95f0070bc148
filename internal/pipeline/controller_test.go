package pipeline

import (
	"context"
	"testing"

	"strategist/internal/agent"
	"strategist/internal/llm"
	"strategist/internal/tester"
)

const scriptedPlan = `[
	{"id": "T1", "description": "Set up environment", "dependencies": [], "duration": 2, "resources": ["DevOps"], "priority": "high"},
	{"id": "T2", "description": "Build API", "dependencies": ["T1"], "duration": 5, "resources": ["Backend"], "priority": "high"}
]`

const scriptedArch = `{
	"technology_stack": {"backend": "Go"},
	"system_architecture": {"components": []},
	"api_design": {"endpoints": []},
	"data_model": {"tables": []},
	"deployment_strategy": "containers"
}`

func cleanFeedback(summary string) string {
	return `{
		"feedback_summary": "` + summary + `",
		"strengths": ["clear plan"],
		"concerns": [],
		"suggestions": [],
		"additional_requirements": [],
		"follow_up_questions": [],
		"overall_rating": 4,
		"confidence_in_rating": 4
	}`
}

func scriptedClient() *llm.FakeClient {
	return llm.NewFakeClient().
		Script("clarify", "What is the budget? Who are the users?").
		Script("plan", scriptedPlan).
		Script("architect", scriptedArch)
}

func newController(client llm.Client, personaTypes ...agent.PersonaType) *Controller {
	personas := make([]*agent.Persona, 0, len(personaTypes))
	for _, pt := range personaTypes {
		personas = append(personas, agent.NewPersona(client, agent.FixedPersona(pt)))
	}
	return &Controller{
		Clarifier: &agent.Clarifier{LLM: client},
		Planner:   &agent.Planner{LLM: client},
		Architect: &agent.Architect{LLM: client},
		Personas:  personas,
	}
}

func TestRunConvergesOnCleanFeedback(t *testing.T) {
	fake := scriptedClient().
		Script("feedback:cto", cleanFeedback("solid architecture")).
		Script("feedback:business_owner", cleanFeedback("good value for money"))
	c := newController(fake, agent.PersonaCTO, agent.PersonaBusinessOwner)

	s := NewState("Build a CRM", nil, 3)
	err := c.Run(context.Background(), s)

	tester.NoErr(t, err)
	tester.Eq(t, s.IterationCount, 1, "one pass suffices")
	tester.False(t, s.NeedsClarification, "converged")
	tester.Eq(t, len(s.ProjectPlan), 2)
	tester.Eq(t, len(s.ClientFeedbacks), 2)
	tester.True(t, s.TechnicalArchitecture["technology_stack"] != nil, "architecture captured")
	tester.Eq(t, fake.Calls("clarify"), 1)
}

func TestRunStopsAtIterationCap(t *testing.T) {
	fake := scriptedClient().
		Script("feedback:cto", cleanFeedback("the scaling story is unclear")).
		Script("feedback:business_owner", cleanFeedback("costs look unclear to me"))
	c := newController(fake, agent.PersonaCTO, agent.PersonaBusinessOwner)

	s := NewState("Build a CRM", nil, 2)
	err := c.Run(context.Background(), s)

	tester.NoErr(t, err)
	tester.Eq(t, s.IterationCount, 2, "stops exactly at the cap")
	tester.True(t, s.NeedsClarification, "never converged")
	tester.Eq(t, fake.Calls("clarify"), 2, "clarify re-entered once")
}

func TestRunCancelledContextStops(t *testing.T) {
	fake := scriptedClient()
	c := newController(fake, agent.PersonaCTO)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewState("Build a CRM", nil, 3)
	err := c.Run(ctx, s)

	tester.Err(t, err, "abandoned run reports the context error")
	tester.Eq(t, fake.Calls("clarify"), 0, "no node ran")
}

func TestRunRecordsFeedbackErrorWhenAllPersonasDegrade(t *testing.T) {
	// Personas fall back internally on model errors; feedback still
	// arrives, flagged as fallback, and consolidation proceeds.
	fake := scriptedClient()
	c := newController(fake, agent.PersonaCTO, agent.PersonaBusinessOwner)

	s := NewState("Build a CRM", nil, 1)
	err := c.Run(context.Background(), s)

	tester.NoErr(t, err)
	tester.Eq(t, len(s.ClientFeedbacks), 2)
	for _, fb := range s.ClientFeedbacks {
		tester.True(t, fb.Metadata.Fallback, "unscripted feedback degrades to fallback")
	}
}

func TestTransitionConsolidateRouting(t *testing.T) {
	s := NewState("x", nil, 3)

	s.NeedsClarification = false
	tester.Eq(t, transition(NodeConsolidate, s), NodeDone)

	s.NeedsClarification = true
	tester.Eq(t, transition(NodeConsolidate, s), NodeCheckLimit)

	s.IterationCount = 3
	tester.Eq(t, transition(NodeCheckLimit, s), NodeDone)

	s.IterationCount = 2
	tester.Eq(t, transition(NodeCheckLimit, s), NodeClarify)
}

func TestProcessRequestOutcome(t *testing.T) {
	fake := scriptedClient().
		Script("feedback:cto", cleanFeedback("solid")).
		Script("feedback:business_owner", cleanFeedback("fine")).
		Script("feedback:end_user", cleanFeedback("usable"))
	orch := NewOrchestrator(fake)

	outcome := orch.ProcessRequest(context.Background(), "Build a CRM", nil, 0)

	tester.True(t, outcome.Success, "completed run")
	tester.Eq(t, outcome.Status, "completed")
	tester.Eq(t, outcome.IterationsCompleted, 1)
	tester.Eq(t, outcome.MaxIterations, DefaultMaxIterations)
	tester.True(t, outcome.Result != nil, "state attached")
}

func TestProcessRequestCancelledFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	orch := NewOrchestrator(scriptedClient())

	outcome := orch.ProcessRequest(ctx, "Build a CRM", nil, 0)

	tester.False(t, outcome.Success, "abandoned run fails")
	tester.Eq(t, outcome.Status, "failed")
	tester.True(t, outcome.Error != "", "error recorded")
}
