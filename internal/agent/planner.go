package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"strategist/internal/jsonx"
	"strategist/internal/llm"
)

const plannerSystem = "You are an expert project planner. Your task is to break down project requirements into a detailed, actionable plan."

const plannerPrompt = `You are an expert project planner. Your task is to break down the following project requirements into a detailed, actionable plan.

Project Requirements:
%s

Additional Context:
%s

For the project, please consider:
- Breaking down complex tasks into smaller, manageable subtasks
- Identifying parallel workstreams
- Considering technical dependencies
- Accounting for review and testing phases
- Including buffer time for unexpected delays

Format your response as a JSON array of task objects. Each task should have:
- id: Unique identifier (string, e.g. "T1")
- description: Detailed task description (string)
- dependencies: List of task IDs this task depends on (array of strings)
- duration: Estimated duration in days (number)
- resources: List of required resources/skills (array of strings)
- priority: Priority level (high/medium/low)

Example:
[
  {"id": "T1", "description": "Set up development environment", "dependencies": [], "duration": 2, "resources": ["DevOps"], "priority": "high"},
  {"id": "T2", "description": "Design database schema", "dependencies": ["T1"], "duration": 3, "resources": ["Backend", "Database"], "priority": "high"}
]

Project Plan:`

var plannerRequiredKeys = []string{"id", "description", "dependencies", "duration", "resources", "priority"}

// Planner turns clarified requirements into an ordered task plan with a
// computed timeline.
type Planner struct {
	LLM llm.Client
}

// Plan generates the project plan. Empty requirements fail with
// ErrValidation before any model call. A model or parse failure substitutes
// the single review-and-refine fallback task so the pipeline keeps moving.
func (p *Planner) Plan(ctx context.Context, requirements string, runCtx Context) ([]Task, error) {
	if strings.TrimSpace(requirements) == "" {
		return nil, fmt.Errorf("%w: requirements must be non-empty", ErrValidation)
	}

	prompt := fmt.Sprintf(plannerPrompt, requirements, formatContext(runCtx))

	ctx = llm.WithStage(ctx, "plan")
	text, err := p.LLM.GenerateText(ctx, []llm.Message{
		{Role: "system", Content: plannerSystem},
		{Role: "user", Content: prompt},
	}, llm.GenOptions{Temperature: 0.3, MaxTokens: 2000})

	var tasks []Task
	if err != nil {
		log.Printf("plan: model call failed: %v", err)
		tasks = fallbackPlan()
	} else {
		tasks = parsePlanResponse(text)
	}

	return ComputeTimeline(tasks, TimeNow()), nil
}

// parsePlanResponse extracts the task array and validates that every task
// carries all six required keys. A structurally invalid plan is discarded
// whole in favor of the fallback task; partial plans are worse than an
// honest placeholder.
func parsePlanResponse(text string) []Task {
	raw, err := jsonx.ExtractArray(text)
	if err != nil {
		log.Printf("plan: response parse failed: %v", err)
		return fallbackPlan()
	}
	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		log.Printf("plan: task array decode failed: %v", err)
		return fallbackPlan()
	}
	if len(items) == 0 {
		return fallbackPlan()
	}
	for _, item := range items {
		for _, key := range plannerRequiredKeys {
			if _, ok := item[key]; !ok {
				log.Printf("plan: task missing %q, using fallback plan", key)
				return fallbackPlan()
			}
		}
	}

	tasks := make([]Task, 0, len(items))
	for _, item := range items {
		tasks = append(tasks, Task{
			ID:           jsonx.String(item["id"]),
			Description:  jsonx.String(item["description"]),
			Dependencies: jsonx.StringList(item["dependencies"]),
			Duration:     coerceDuration(item["duration"]),
			Resources:    jsonx.StringList(item["resources"]),
			Priority:     jsonx.String(item["priority"]),
		})
	}
	return tasks
}

// coerceDuration turns a decoded duration into a positive day count,
// defaulting to 1 day when missing or unusable.
func coerceDuration(v any) int {
	switch d := v.(type) {
	case float64:
		if int(d) > 0 {
			return int(d)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(d)); err == nil && n > 0 {
			return n
		}
	}
	return 1
}

func fallbackPlan() []Task {
	return []Task{{
		ID:           "T1",
		Description:  "Review and refine project requirements",
		Dependencies: []string{},
		Duration:     1,
		Resources:    []string{"Project Manager"},
		Priority:     "high",
		Notes:        "Automatic fallback task due to parsing error",
	}}
}
