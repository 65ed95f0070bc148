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

// PersonaType identifies a stakeholder viewpoint.
type PersonaType string

const (
	PersonaCTO              PersonaType = "cto"
	PersonaBusinessOwner    PersonaType = "business_owner"
	PersonaProductManager   PersonaType = "product_manager"
	PersonaEndUser          PersonaType = "end_user"
	PersonaSecurityExpert   PersonaType = "security_expert"
	PersonaCostConscious    PersonaType = "cost_conscious"
	PersonaInnovationSeeker PersonaType = "innovation_seeker"
)

// AllPersonaTypes is the closed enumeration, in declaration order.
var AllPersonaTypes = []PersonaType{
	PersonaCTO,
	PersonaBusinessOwner,
	PersonaProductManager,
	PersonaEndUser,
	PersonaSecurityExpert,
	PersonaCostConscious,
	PersonaInnovationSeeker,
}

// PersonaInfo carries the identity used to steer the feedback prompt.
type PersonaInfo struct {
	Type        PersonaType
	Name        string
	Description string
	Priorities  []string
}

var personaCatalog = map[PersonaType]PersonaInfo{
	PersonaCTO: {
		Type: PersonaCTO, Name: "CTO",
		Description: "A technical leader focused on system scalability, maintainability, and technical excellence.",
		Priorities:  []string{"scalability", "technical debt", "team productivity", "technology choices"},
	},
	PersonaBusinessOwner: {
		Type: PersonaBusinessOwner, Name: "Business Owner",
		Description: "A non-technical business owner focused on ROI, time-to-market, and business value.",
		Priorities:  []string{"cost", "time-to-market", "business value", "competitive advantage"},
	},
	PersonaProductManager: {
		Type: PersonaProductManager, Name: "Product Manager",
		Description: "Focused on user experience, feature set, and product roadmap alignment.",
		Priorities:  []string{"user experience", "feature set", "roadmap alignment", "market fit"},
	},
	PersonaEndUser: {
		Type: PersonaEndUser, Name: "End User",
		Description: "A typical user of the application, focused on usability and functionality.",
		Priorities:  []string{"ease of use", "performance", "features", "reliability"},
	},
	PersonaSecurityExpert: {
		Type: PersonaSecurityExpert, Name: "Security Expert",
		Description: "Focused on security, compliance, and data protection aspects.",
		Priorities:  []string{"security", "compliance", "data protection", "risk mitigation"},
	},
	PersonaCostConscious: {
		Type: PersonaCostConscious, Name: "Cost-Conscious Stakeholder",
		Description: "Primarily concerned with budget constraints and cost optimization.",
		Priorities:  []string{"cost efficiency", "ROI", "budget constraints", "resource optimization"},
	},
	PersonaInnovationSeeker: {
		Type: PersonaInnovationSeeker, Name: "Innovation Seeker",
		Description: "Focused on cutting-edge technologies and innovative solutions.",
		Priorities:  []string{"innovation", "modern tech stack", "competitive edge", "future-proofing"},
	},
}

// PersonaByType returns the catalog entry for a persona type, or a
// balanced general-stakeholder identity for unknown types.
func PersonaByType(t PersonaType) PersonaInfo {
	if p, ok := personaCatalog[t]; ok {
		return p
	}
	return PersonaInfo{
		Type: t, Name: "General Stakeholder",
		Description: "A general stakeholder with balanced concerns.",
		Priorities:  []string{"overall project success"},
	}
}

const personaPrompt = `You are simulating feedback from a %s perspective on a technical architecture.

Persona Description:
%s

Key Priorities:
%s

Project Overview:
%s

Technical Architecture:
%s

Your task is to provide constructive feedback on this architecture from your persona's perspective. Consider:
1. How well does this architecture align with your priorities?
2. What are the potential risks or concerns?
3. What improvements or alternatives would you suggest?
4. Any specific requirements or constraints to consider?

Provide your feedback in the following JSON structure:
{
  "feedback_summary": "Brief overall impression",
  "strengths": ["..."],
  "concerns": ["..."],
  "suggestions": ["..."],
  "additional_requirements": ["..."],
  "overall_rating": 3,
  "confidence_in_rating": 3,
  "follow_up_questions": ["..."]
}

Ratings are integers from 1 (poor/low) to 5 (excellent/high).

%s's Feedback:`

// Persona simulates stakeholder feedback on a technical architecture.
type Persona struct {
	LLM      llm.Client
	identity PersonaInfo
}

// NewPersona constructs a feedback agent with the identity chosen by the
// selector. A nil selector defaults to round-robin.
func NewPersona(client llm.Client, sel Selector) *Persona {
	if sel == nil {
		sel = &RoundRobinPersona{}
	}
	return &Persona{LLM: client, identity: PersonaByType(sel.Select())}
}

// Identity returns the persona this agent speaks as.
func (p *Persona) Identity() PersonaInfo { return p.identity }

// ProvideFeedback reviews the architecture from this persona's viewpoint.
// An empty architecture fails with ErrValidation; any model or parse
// failure returns the fully-formed fallback feedback flagged with
// Metadata.Fallback so callers can detect the degradation.
func (p *Persona) ProvideFeedback(ctx context.Context, architecture map[string]any, runCtx Context) (Feedback, error) {
	if len(architecture) == 0 {
		return Feedback{}, fmt.Errorf("%w: a non-empty technical architecture is required", ErrValidation)
	}

	overview := "Not specified"
	if v, ok := runCtx["project_overview"].(string); ok && v != "" {
		overview = v
	}
	archJSON, _ := json.MarshalIndent(architecture, "", "  ")
	prompt := fmt.Sprintf(personaPrompt,
		p.identity.Name,
		p.identity.Description,
		"- "+strings.Join(p.identity.Priorities, "\n- "),
		overview,
		string(archJSON),
		p.identity.Name,
	)

	ctx = llm.WithStage(ctx, "feedback:"+string(p.identity.Type))
	text, err := p.LLM.GenerateText(ctx, []llm.Message{
		{Role: "system", Content: fmt.Sprintf("You are a %s providing feedback on a technical architecture.", p.identity.Name)},
		{Role: "user", Content: prompt},
	}, llm.GenOptions{Temperature: 0.7, MaxTokens: 1000})
	if err != nil {
		log.Printf("feedback(%s): model call failed: %v", p.identity.Type, err)
		return fallbackFeedback(p.identity, err.Error()), nil
	}

	raw, err := jsonx.ExtractObject(text)
	if err != nil {
		log.Printf("feedback(%s): response parse failed: %v", p.identity.Type, err)
		return fallbackFeedback(p.identity, "Failed to parse feedback response"), nil
	}
	fb, err := decodeFeedback(raw)
	if err != nil {
		log.Printf("feedback(%s): feedback decode failed: %v", p.identity.Type, err)
		return fallbackFeedback(p.identity, "Failed to parse feedback response"), nil
	}
	fb.Metadata = FeedbackMetadata{
		PersonaType: string(p.identity.Type),
		PersonaName: p.identity.Name,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	return fb, nil
}
