package pipeline

import (
	"sort"
	"strings"
	"time"

	"strategist/internal/agent"
)

// Consolidated merges all personas' feedback into one summary and one
// continue/stop signal.
type Consolidated struct {
	Summary            string   `json:"summary"`
	CriticalIssues     []string `json:"critical_issues"`
	NeedsClarification bool     `json:"needs_clarification"`
	Error              string   `json:"error,omitempty"`
	Timestamp          string   `json:"timestamp"`
}

// Consolidate aggregates per-persona feedback. It is a pure function of its
// input (the timestamp aside): the same mapping always yields the same
// needs-clarification decision and critical-issue list. Persona arrival
// order is irrelevant; lines are emitted in sorted persona order.
//
// The decision rule is a deliberate heuristic union, not a weighted score:
// clarification is needed when critical issues were flagged, when fewer
// than two personas produced a usable summary, or when any summary line
// contains "unclear".
func Consolidate(feedbacks map[string]agent.Feedback, errNote string) Consolidated {
	now := time.Now().UTC().Format(time.RFC3339)
	if len(feedbacks) == 0 || errNote != "" {
		return Consolidated{
			Error:              "No valid feedback to consolidate",
			NeedsClarification: false,
			Timestamp:          now,
		}
	}

	personas := make([]string, 0, len(feedbacks))
	for p := range feedbacks {
		personas = append(personas, p)
	}
	sort.Strings(personas)

	var lines []string
	var critical []string
	for _, persona := range personas {
		fb := feedbacks[persona]
		if summary := strings.TrimSpace(fb.FeedbackSummary); summary != "" {
			lines = append(lines, persona+": "+summary)
		}
		// One critical concern flags the persona's whole concern list.
		for _, c := range fb.Concerns {
			if strings.Contains(strings.ToLower(c), "critical") {
				critical = append(critical, fb.Concerns...)
				break
			}
		}
	}

	needs := len(critical) > 0 || len(lines) < 2
	if !needs {
		for _, line := range lines {
			if strings.Contains(strings.ToLower(line), "unclear") {
				needs = true
				break
			}
		}
	}

	summary := "No detailed feedback available"
	if len(lines) > 0 {
		summary = strings.Join(lines, "\n")
	}
	return Consolidated{
		Summary:            summary,
		CriticalIssues:     critical,
		NeedsClarification: needs,
		Timestamp:          now,
	}
}
