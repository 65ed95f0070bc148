// Package pipeline is the iterative orchestration core: a closed
// finite-state machine sequencing clarify → plan → architect → feedback →
// consolidate, with a convergence/termination policy driven by the
// consolidator's needs-clarification decision and an iteration cap.
package pipeline

import (
	"strategist/internal/agent"
)

// State is the mutable record threaded through one end-to-end run. It is
// owned exclusively by that run; concurrent runs each get their own
// instance and share nothing mutable.
type State struct {
	UserInput             string                    `json:"user_input"`
	Context               agent.Context             `json:"context"`
	ClarifiedRequirements string                    `json:"clarified_requirements"`
	ProjectPlan           []agent.Task              `json:"project_plan"`
	TechnicalArchitecture map[string]any            `json:"technical_architecture"`
	ClientFeedbacks       map[string]agent.Feedback `json:"client_feedbacks"`
	FeedbackError         string                    `json:"feedback_error,omitempty"`
	ConsolidatedFeedback  Consolidated              `json:"consolidated_feedback"`
	NeedsClarification    bool                      `json:"needs_clarification"`
	IterationCount        int                       `json:"iteration_count"`
	MaxIterations         int                       `json:"max_iterations"`
	// NodeErrors records error-shaped patches per node so a single stage
	// failure is visible without halting the workflow.
	NodeErrors map[string]string `json:"node_errors,omitempty"`
}

// NewState creates the initial state for one run. maxIterations below 1 is
// raised to 1.
func NewState(userInput string, runCtx agent.Context, maxIterations int) *State {
	if runCtx == nil {
		runCtx = agent.Context{}
	}
	if maxIterations < 1 {
		maxIterations = 1
	}
	return &State{
		UserInput:       userInput,
		Context:         runCtx,
		ClientFeedbacks: map[string]agent.Feedback{},
		MaxIterations:   maxIterations,
	}
}

// Patch is a partial-state update produced by one node. Only the fields a
// node computed are set; nil/zero fields leave the state untouched.
type Patch struct {
	ClarifiedRequirements *string
	ProjectPlan           []agent.Task
	TechnicalArchitecture map[string]any
	ClientFeedbacks       map[string]agent.Feedback
	FeedbackError         *string
	ConsolidatedFeedback  *Consolidated
	NeedsClarification    *bool
	IterationCount        *int
	NodeError             string
	NodeErrorSource       string
}

// Apply merges a patch into the state. The controller is the only caller.
func (s *State) Apply(p Patch) {
	if p.ClarifiedRequirements != nil {
		s.ClarifiedRequirements = *p.ClarifiedRequirements
	}
	if p.ProjectPlan != nil {
		s.ProjectPlan = p.ProjectPlan
	}
	if p.TechnicalArchitecture != nil {
		s.TechnicalArchitecture = p.TechnicalArchitecture
	}
	if p.ClientFeedbacks != nil {
		s.ClientFeedbacks = p.ClientFeedbacks
	}
	if p.FeedbackError != nil {
		s.FeedbackError = *p.FeedbackError
	}
	if p.ConsolidatedFeedback != nil {
		s.ConsolidatedFeedback = *p.ConsolidatedFeedback
	}
	if p.NeedsClarification != nil {
		s.NeedsClarification = *p.NeedsClarification
	}
	if p.IterationCount != nil {
		s.IterationCount = *p.IterationCount
	}
	if p.NodeError != "" {
		if s.NodeErrors == nil {
			s.NodeErrors = map[string]string{}
		}
		s.NodeErrors[p.NodeErrorSource] = p.NodeError
	}
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
func intPtr(n int) *int       { return &n }
