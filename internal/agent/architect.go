package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"strategist/internal/jsonx"
	"strategist/internal/llm"
)

const architectSystem = "You are an expert software architect. Your task is to design the technical architecture for software projects."

const architectPrompt = `You are an expert software architect. Your task is to design the technical architecture for the following project plan.

Project Overview:
%s

Project Plan:
%s

Additional Context:
%s

Please provide a comprehensive technical architecture that includes:
1. Technology Stack: Frontend, Backend, Database, DevOps, etc.
2. System Architecture: High-level components and their interactions
3. API Design: Key endpoints and data structures
4. Data Model: Database schema or data storage approach
5. Security Considerations: Authentication, authorization, data protection
6. Scalability: How the system will handle growth
7. Deployment Strategy: CI/CD, hosting, infrastructure as code

Format your response as a single JSON object with these top-level keys:
"technology_stack", "system_architecture", "api_design", "data_model",
"deployment_strategy", "security_considerations", "scalability_considerations",
"code_structure", "development_environment", "testing_strategy".

Technical Architecture:`

// requiredSections must be present in any usable architecture.
var requiredSections = []string{
	"technology_stack", "system_architecture", "api_design",
	"data_model", "deployment_strategy",
}

// advisorySections are guaranteed present after enrichment even when the
// model omitted them.
var advisorySections = []string{"security_considerations", "scalability_considerations"}

// Architect designs the technical architecture for a task plan.
type Architect struct {
	LLM llm.Client
}

// DesignArchitecture returns the architecture object for the plan. An empty
// plan fails with ErrValidation. Model or parse failure never aborts: a
// parse failure yields the hand-authored fallback architecture directly,
// while a model failure yields an error object that still embeds the
// complete fallback under "fallback_architecture".
func (a *Architect) DesignArchitecture(ctx context.Context, plan []Task, runCtx Context) (map[string]any, error) {
	if len(plan) == 0 {
		return nil, fmt.Errorf("%w: a non-empty project plan is required", ErrValidation)
	}

	overview := projectOverview(plan, runCtx)
	ctxJSON, _ := json.MarshalIndent(runCtx, "", "  ")
	prompt := fmt.Sprintf(architectPrompt, overview, formatPlan(plan), string(ctxJSON))

	ctx = llm.WithStage(ctx, "architect")
	text, err := a.LLM.GenerateText(ctx, []llm.Message{
		{Role: "system", Content: architectSystem},
		{Role: "user", Content: prompt},
	}, llm.GenOptions{Temperature: 0.5, MaxTokens: 4000})
	if err != nil {
		log.Printf("architect: model call failed: %v", err)
		return map[string]any{
			"error":                 "Failed to generate technical architecture",
			"details":               err.Error(),
			"fallback_architecture": FallbackArchitecture(),
		}, nil
	}

	arch := parseArchitectureResponse(text)
	return enrichArchitecture(arch, plan, runCtx), nil
}

// projectOverview prefers an explicit context overview, then synthesizes
// one from up to 5 dependency-free high-priority tasks.
func projectOverview(plan []Task, runCtx Context) string {
	if v, ok := runCtx["project_overview"].(string); ok && v != "" {
		return v
	}
	var heads []string
	for _, t := range plan {
		if len(t.Dependencies) == 0 && (t.Priority == "high" || t.Priority == "critical") {
			heads = append(heads, t.Description)
			if len(heads) == 5 {
				break
			}
		}
	}
	if len(heads) > 0 {
		return "Project focuses on: " + strings.Join(heads, ", ")
	}
	return "Project details not specified"
}

func formatPlan(plan []Task) string {
	lines := make([]string, 0, len(plan))
	for i, t := range plan {
		priority := t.Priority
		if priority == "" {
			priority = "medium"
		}
		lines = append(lines, fmt.Sprintf("%d. %s (Duration: %d days, Priority: %s)",
			i+1, t.Description, t.Duration, priority))
	}
	return strings.Join(lines, "\n")
}

func parseArchitectureResponse(text string) map[string]any {
	raw, err := jsonx.ExtractObject(text)
	if err != nil {
		log.Printf("architect: response parse failed: %v", err)
		return FallbackArchitecture()
	}
	var arch map[string]any
	if err := json.Unmarshal(raw, &arch); err != nil {
		log.Printf("architect: object decode failed: %v", err)
		return FallbackArchitecture()
	}
	for _, section := range requiredSections {
		if _, ok := arch[section]; !ok {
			log.Printf("architect: response is missing section %q", section)
		}
	}
	return arch
}

// enrichArchitecture appends generation metadata and guarantees the
// advisory sections exist. Extra model-supplied fields are preserved.
func enrichArchitecture(arch map[string]any, plan []Task, runCtx Context) map[string]any {
	contextKeys := make([]string, 0, len(runCtx))
	for k := range runCtx {
		contextKeys = append(contextKeys, k)
	}
	arch["metadata"] = map[string]any{
		"generated_at":     time.Now().UTC().Format(time.RFC3339),
		"plan_tasks_count": len(plan),
		"context_keys":     contextKeys,
	}
	for _, section := range advisorySections {
		if _, ok := arch[section]; !ok {
			arch[section] = []any{strings.ReplaceAll(section, "_", " ") + " not specified"}
		}
	}
	return arch
}

// FallbackArchitecture is the complete hand-authored architecture used when
// the model output is unusable. All five required sections are populated so
// downstream stages always receive a usable structure.
func FallbackArchitecture() map[string]any {
	return map[string]any{
		"technology_stack": map[string]any{
			"frontend": []any{map[string]any{"name": "React", "version": "18.2.0", "justification": "Popular, well-supported frontend framework"}},
			"backend":  []any{map[string]any{"name": "Go", "version": "1.24", "justification": "Fast, statically typed backend with a strong standard library"}},
			"database": []any{map[string]any{"name": "PostgreSQL", "version": "15.0", "justification": "Reliable, feature-rich relational database"}},
			"devops": []any{
				map[string]any{"name": "Docker", "version": "24.0", "justification": "Containerization for consistent environments"},
				map[string]any{"name": "GitHub Actions", "version": "", "justification": "CI/CD pipeline automation"},
			},
		},
		"system_architecture": map[string]any{
			"components": []any{
				map[string]any{
					"name":             "Frontend Application",
					"description":      "User interface built with React",
					"responsibilities": []any{"Render UI", "Handle user interactions"},
					"interactions":     []any{"Communicates with API Gateway"},
				},
				map[string]any{
					"name":             "API Gateway",
					"description":      "Entry point for all client requests",
					"responsibilities": []any{"Route requests", "Handle authentication"},
					"interactions":     []any{"Processes requests from Frontend", "Delegates to backend services"},
				},
				map[string]any{
					"name":             "Database",
					"description":      "PostgreSQL database for persistent storage",
					"responsibilities": []any{"Data persistence", "Data retrieval"},
					"interactions":     []any{"Used by backend services"},
				},
			},
			"diagram": "[Frontend] <-> [API Gateway] <-> [Backend Services] <-> [Database]",
		},
		"api_design": map[string]any{
			"endpoints": []any{
				map[string]any{
					"path":        "/api/health",
					"method":      "GET",
					"description": "Health check endpoint",
					"request":     map[string]any{},
					"response":    map[string]any{"status": "ok"},
				},
			},
		},
		"data_model": map[string]any{
			"tables": []any{
				map[string]any{
					"name": "users",
					"fields": []any{
						map[string]any{"name": "id", "type": "UUID", "constraints": "PRIMARY KEY"},
						map[string]any{"name": "email", "type": "VARCHAR(255)", "constraints": "UNIQUE, NOT NULL"},
						map[string]any{"name": "created_at", "type": "TIMESTAMP", "constraints": "DEFAULT CURRENT_TIMESTAMP"},
					},
					"relationships": []any{},
				},
			},
		},
		"security_considerations": []any{
			"Implement HTTPS",
			"Use JWT for authentication",
			"Validate all user inputs",
			"Implement rate limiting",
		},
		"scalability_considerations": []any{
			"Use connection pooling for database connections",
			"Implement caching for frequently accessed data",
			"Consider read replicas for read-heavy workloads",
		},
		"deployment_strategy": "Containerized deployment with Docker and Kubernetes",
		"code_structure": map[string]any{
			"frontend": []any{"src/components/", "src/pages/", "src/services/", "src/styles/"},
			"backend":  []any{"cmd/", "internal/api/", "internal/model/", "internal/service/"},
		},
		"development_environment": []any{
			"Node.js v18+ for frontend development",
			"Go 1.24+ for backend development",
			"Docker and Docker Compose for containerization",
		},
		"testing_strategy": []any{
			"Unit tests for all business logic",
			"Integration tests for API endpoints",
			"End-to-end tests for critical user flows",
			"Automated testing in CI/CD pipeline",
		},
		"metadata": map[string]any{
			"fallback":     true,
			"generated_at": time.Now().UTC().Format(time.RFC3339),
		},
	}
}
