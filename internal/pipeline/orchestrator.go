package pipeline

import (
	"context"
	"log"
	"time"

	"strategist/internal/agent"
	"strategist/internal/llm"
)

// DefaultMaxIterations caps feedback cycles when the caller does not say.
const DefaultMaxIterations = 3

// DefaultPersonas are the stakeholder viewpoints consulted when none are
// configured explicitly.
var DefaultPersonas = []agent.PersonaType{
	agent.PersonaCTO,
	agent.PersonaBusinessOwner,
	agent.PersonaEndUser,
}

// Outcome is the structured result of one end-to-end run.
type Outcome struct {
	Status              string `json:"status"` // completed | failed
	Result              *State `json:"result,omitempty"`
	IterationsCompleted int    `json:"iterations_completed"`
	MaxIterations       int    `json:"max_iterations"`
	Success             bool   `json:"success"`
	Error               string `json:"error,omitempty"`
	Timestamp           string `json:"timestamp"`
}

// Orchestrator owns the controller and runs the full pipeline for one
// request end-to-end. It is safe for concurrent use: every run gets its own
// State and the agents hold no per-run state.
type Orchestrator struct {
	controller    *Controller
	maxIterations int
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithMaxIterations sets the default iteration cap.
func WithMaxIterations(n int) Option {
	return func(o *Orchestrator) {
		if n >= 1 {
			o.maxIterations = n
		}
	}
}

// WithPersonas replaces the default persona set.
func WithPersonas(client llm.Client, types ...agent.PersonaType) Option {
	return func(o *Orchestrator) {
		personas := make([]*agent.Persona, 0, len(types))
		for _, t := range types {
			personas = append(personas, agent.NewPersona(client, agent.FixedPersona(t)))
		}
		o.controller.Personas = personas
	}
}

// WithProgress registers a per-node progress callback.
func WithProgress(fn func(node Node, iteration int)) Option {
	return func(o *Orchestrator) { o.controller.Progress = fn }
}

// NewOrchestrator wires the four stage agents around one model client.
func NewOrchestrator(client llm.Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		controller: &Controller{
			Clarifier: &agent.Clarifier{LLM: client},
			Planner:   &agent.Planner{LLM: client},
			Architect: &agent.Architect{LLM: client},
		},
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(o)
	}
	if len(o.controller.Personas) == 0 {
		personas := make([]*agent.Persona, 0, len(DefaultPersonas))
		for _, t := range DefaultPersonas {
			personas = append(personas, agent.NewPersona(client, agent.FixedPersona(t)))
		}
		o.controller.Personas = personas
	}
	return o
}

// ProcessRequest runs the workflow for one user request. maxIterations <= 0
// falls back to the orchestrator default. Stage-level failures are absorbed
// into fallback content inside the state; only errors that escape all
// node-level handling (context abandonment included) produce a failed
// outcome.
func (o *Orchestrator) ProcessRequest(ctx context.Context, userInput string, runCtx agent.Context, maxIterations int) Outcome {
	if maxIterations <= 0 {
		maxIterations = o.maxIterations
	}
	state := NewState(userInput, runCtx, maxIterations)

	log.Printf("orchestrator: starting workflow with max_iterations=%d", maxIterations)
	if err := o.controller.Run(ctx, state); err != nil {
		log.Printf("orchestrator: workflow failed: %v", err)
		return Outcome{
			Status:              "failed",
			Error:               err.Error(),
			IterationsCompleted: state.IterationCount,
			MaxIterations:       maxIterations,
			Success:             false,
			Timestamp:           time.Now().UTC().Format(time.RFC3339),
		}
	}

	log.Printf("orchestrator: workflow completed after %d iteration(s)", state.IterationCount)
	return Outcome{
		Status:              "completed",
		Result:              state,
		IterationsCompleted: state.IterationCount,
		MaxIterations:       maxIterations,
		Success:             true,
		Timestamp:           time.Now().UTC().Format(time.RFC3339),
	}
}
