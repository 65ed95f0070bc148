package agent

import (
	"context"
	"errors"
	"testing"

	"strategist/internal/llm"
	"strategist/internal/tester"
)

func TestClarifyEmptyInputPromptsWithoutModelCall(t *testing.T) {
	fake := llm.NewFakeClient()
	c := &Clarifier{LLM: fake}

	got := c.Clarify(context.Background(), "  ", nil)

	tester.Eq(t, got, "Please provide a valid input to proceed.")
	tester.Eq(t, fake.Calls("clarify"), 0)
}

func TestClarifyReturnsModelText(t *testing.T) {
	fake := llm.NewFakeClient().Script("clarify", "1. Who are the users?\n2. What is the budget?\n")
	c := &Clarifier{LLM: fake}

	got := c.Clarify(context.Background(), "Build me an app", nil)

	tester.Eq(t, got, "1. Who are the users?\n2. What is the budget?")
}

func TestClarifyModelErrorDegradesToApology(t *testing.T) {
	fake := llm.NewFakeClient()
	fake.Err = errors.New("boom")
	c := &Clarifier{LLM: fake}

	got := c.Clarify(context.Background(), "Build me an app", nil)

	tester.Eq(t, got, "I encountered an error while processing your request. Please try again with more specific details.")
}
