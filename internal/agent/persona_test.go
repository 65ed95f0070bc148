package agent

import (
	"context"
	"errors"
	"testing"

	"strategist/internal/llm"
	"strategist/internal/tester"
)

func TestNewPersonaSelectorChoosesIdentity(t *testing.T) {
	p := NewPersona(llm.NewFakeClient(), FixedPersona(PersonaCTO))
	tester.Eq(t, p.Identity().Name, "CTO")

	rr := &RoundRobinPersona{}
	first := NewPersona(llm.NewFakeClient(), rr)
	second := NewPersona(llm.NewFakeClient(), rr)
	tester.Eq(t, first.Identity().Type, PersonaCTO)
	tester.Eq(t, second.Identity().Type, PersonaBusinessOwner)
}

func TestRandomPersonaIsDeterministicPerSeed(t *testing.T) {
	a := NewRandomPersona(7)
	b := NewRandomPersona(7)
	for i := 0; i < 10; i++ {
		tester.Eq(t, a.Select(), b.Select())
	}
}

func TestPersonaByTypeUnknownFallsBackToGeneral(t *testing.T) {
	p := PersonaByType(PersonaType("astronaut"))
	tester.Eq(t, p.Name, "General Stakeholder")
}

func TestProvideFeedbackEmptyArchitectureFails(t *testing.T) {
	p := NewPersona(llm.NewFakeClient(), FixedPersona(PersonaCTO))

	_, err := p.ProvideFeedback(context.Background(), nil, nil)

	tester.True(t, errors.Is(err, ErrValidation), "expected validation error")
}

func TestProvideFeedbackCoercesScalarsIntoLists(t *testing.T) {
	fake := llm.NewFakeClient().Script("feedback:cto", `{
		"feedback_summary": "Looks reasonable",
		"strengths": "clean separation of concerns",
		"concerns": ["vendor lock-in"],
		"suggestions": [],
		"additional_requirements": [],
		"follow_up_questions": [],
		"overall_rating": 9,
		"confidence_in_rating": "4"
	}`)
	p := NewPersona(fake, FixedPersona(PersonaCTO))

	fb, err := p.ProvideFeedback(context.Background(), map[string]any{"technology_stack": "Go"}, nil)

	tester.NoErr(t, err)
	tester.Eq(t, fb.Strengths, []string{"clean separation of concerns"})
	tester.Eq(t, fb.OverallRating, 5, "rating clamped into range")
	tester.Eq(t, fb.ConfidenceInRating, 4)
	tester.Eq(t, fb.Metadata.PersonaType, "cto")
	tester.False(t, fb.Metadata.Fallback, "not a fallback")
}

func TestProvideFeedbackModelErrorYieldsFallback(t *testing.T) {
	fake := llm.NewFakeClient()
	fake.Err = errors.New("timeout")
	p := NewPersona(fake, FixedPersona(PersonaEndUser))

	fb, err := p.ProvideFeedback(context.Background(), map[string]any{"x": 1}, nil)

	tester.NoErr(t, err)
	tester.True(t, fb.Metadata.Fallback, "fallback flagged")
	tester.Eq(t, fb.OverallRating, 3)
	tester.Eq(t, fb.ConfidenceInRating, 1)
	tester.Eq(t, fb.Metadata.PersonaName, "End User")
}

func TestProvideFeedbackUnparsableResponseYieldsFallback(t *testing.T) {
	fake := llm.NewFakeClient().Script("feedback:cto", "no JSON here at all")
	p := NewPersona(fake, FixedPersona(PersonaCTO))

	fb, err := p.ProvideFeedback(context.Background(), map[string]any{"x": 1}, nil)

	tester.NoErr(t, err)
	tester.True(t, fb.Metadata.Fallback, "fallback flagged")
	tester.Eq(t, fb.Metadata.Error, "Failed to parse feedback response")
}

func TestProvideFeedbackPreservesExtraFields(t *testing.T) {
	fake := llm.NewFakeClient().Script("feedback:cto", `{
		"feedback_summary": "ok",
		"overall_rating": 3,
		"confidence_in_rating": 3,
		"estimated_cost": "high"
	}`)
	p := NewPersona(fake, FixedPersona(PersonaCTO))

	fb, err := p.ProvideFeedback(context.Background(), map[string]any{"x": 1}, nil)

	tester.NoErr(t, err)
	tester.Eq(t, fb.Extra["estimated_cost"].(string), "high")
}
