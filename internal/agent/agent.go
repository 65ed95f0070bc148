// Package agent implements the four pipeline stage agents: Clarifier,
// Planner, Architect and Persona. Each wraps one model-call contract:
// render a prompt from stage inputs, invoke the model, parse and validate
// the result, fall back to a safe default on failure. Model-invocation and
// parse failures never escape an agent; caller-input violations surface as
// ErrValidation.
package agent

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrValidation marks a caller-supplied input that violates a stage
// precondition. It propagates to the stage's direct caller and is never
// silently defaulted.
var ErrValidation = errors.New("agent: invalid input")

// Context is the free-form key-value context threaded through a run.
type Context map[string]any

// formatContext renders context as sorted "key: value" lines for prompt
// inclusion. Deterministic ordering keeps prompts stable across runs.
func formatContext(ctx Context) string {
	if len(ctx) == 0 {
		return "No previous context"
	}
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %v", k, ctx[k]))
	}
	return strings.Join(lines, "\n")
}

// Task is one entry of a project plan. Start/end dates are computed by the
// timeline step, never model-supplied.
type Task struct {
	ID           string   `json:"id"`
	Description  string   `json:"description"`
	Dependencies []string `json:"dependencies"`
	Duration     int      `json:"duration"`
	Resources    []string `json:"resources"`
	Priority     string   `json:"priority"`
	StartDate    string   `json:"start_date,omitempty"`
	EndDate      string   `json:"end_date,omitempty"`
	Notes        string   `json:"notes,omitempty"`
}
