package agent

import (
	"encoding/json"
	"time"

	"strategist/internal/jsonx"
)

// Feedback is one persona's structured review of an architecture. The five
// list-typed fields are always sequences after parsing, never raw scalars.
type Feedback struct {
	FeedbackSummary        string           `json:"feedback_summary"`
	Strengths              []string         `json:"strengths"`
	Concerns               []string         `json:"concerns"`
	Suggestions            []string         `json:"suggestions"`
	AdditionalRequirements []string         `json:"additional_requirements"`
	FollowUpQuestions      []string         `json:"follow_up_questions"`
	OverallRating          int              `json:"overall_rating"`
	ConfidenceInRating     int              `json:"confidence_in_rating"`
	Metadata               FeedbackMetadata `json:"metadata"`
	// Extra preserves unrecognized model-supplied fields.
	Extra map[string]any `json:"extra,omitempty"`
}

// FeedbackMetadata is appended by the agent, not the model.
type FeedbackMetadata struct {
	PersonaType string `json:"persona_type"`
	PersonaName string `json:"persona_name"`
	GeneratedAt string `json:"generated_at"`
	Fallback    bool   `json:"fallback,omitempty"`
	Error       string `json:"error,omitempty"`
}

var feedbackKnownKeys = map[string]bool{
	"feedback_summary":        true,
	"strengths":               true,
	"concerns":                true,
	"suggestions":             true,
	"additional_requirements": true,
	"follow_up_questions":     true,
	"overall_rating":          true,
	"confidence_in_rating":    true,
	"metadata":                true,
}

// decodeFeedback maps a raw JSON object onto Feedback with field coercion:
// scalars in list positions become single-element slices and ratings are
// clamped into 1..5.
func decodeFeedback(raw json.RawMessage) (Feedback, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Feedback{}, err
	}
	fb := Feedback{
		FeedbackSummary:        jsonx.String(obj["feedback_summary"]),
		Strengths:              jsonx.StringList(obj["strengths"]),
		Concerns:               jsonx.StringList(obj["concerns"]),
		Suggestions:            jsonx.StringList(obj["suggestions"]),
		AdditionalRequirements: jsonx.StringList(obj["additional_requirements"]),
		FollowUpQuestions:      jsonx.StringList(obj["follow_up_questions"]),
		OverallRating:          jsonx.ClampRating(obj["overall_rating"], 3),
		ConfidenceInRating:     jsonx.ClampRating(obj["confidence_in_rating"], 3),
	}
	for k, v := range obj {
		if feedbackKnownKeys[k] {
			continue
		}
		if fb.Extra == nil {
			fb.Extra = make(map[string]any)
		}
		fb.Extra[k] = v
	}
	return fb, nil
}

// fallbackFeedback is the fully-formed degraded feedback. Callers detect it
// via Metadata.Fallback.
func fallbackFeedback(p PersonaInfo, errText string) Feedback {
	return Feedback{
		FeedbackSummary:        "Unable to generate detailed feedback due to an error.",
		Strengths:              []string{"Unable to assess strengths"},
		Concerns:               []string{"Error generating feedback: " + errText},
		Suggestions:            []string{"Please try again or provide more context about the project."},
		AdditionalRequirements: []string{},
		FollowUpQuestions: []string{
			"Can you provide more details about the project goals?",
			"What are the main technical constraints we should consider?",
		},
		OverallRating:      3,
		ConfidenceInRating: 1,
		Metadata: FeedbackMetadata{
			PersonaType: string(p.Type),
			PersonaName: p.Name,
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
			Fallback:    true,
			Error:       errText,
		},
	}
}
