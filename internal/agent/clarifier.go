package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"strategist/internal/llm"
)

const clarifierSystem = "You are a helpful assistant that clarifies ambiguous or incomplete user requests."

const clarifierPrompt = `You are an AI Strategy Assistant specializing in helping users define clear project requirements.

Current conversation context:
%s

User's initial input:
%s

Your task is to ask clarifying questions to gather all necessary information. Consider the following aspects:
1. Project goals and objectives
2. Target audience and user needs
3. Technical constraints or requirements
4. Timeline and resources
5. Success criteria

Ask up to 3 specific, targeted questions that would help clarify the requirements. Be concise but thorough.

Clarifying questions:`

// Clarifier surfaces the ambiguities in a raw project request.
type Clarifier struct {
	LLM llm.Client
}

// Clarify returns clarifying questions (or refined requirements) as plain
// text. Empty input yields a prompting message and a model failure yields a
// user-facing apology string; this stage degrades to text rather than to a
// JSON fallback.
func (c *Clarifier) Clarify(ctx context.Context, userInput string, runCtx Context) string {
	if strings.TrimSpace(userInput) == "" {
		return "Please provide a valid input to proceed."
	}

	conversation := "No previous context"
	if h, ok := runCtx["conversation_history"].(string); ok && h != "" {
		conversation = h
	}
	prompt := fmt.Sprintf(clarifierPrompt, conversation, userInput)

	ctx = llm.WithStage(ctx, "clarify")
	text, err := c.LLM.GenerateText(ctx, []llm.Message{
		{Role: "system", Content: clarifierSystem},
		{Role: "user", Content: prompt},
	}, llm.GenOptions{Temperature: 0.7, MaxTokens: 1000})
	if err != nil {
		log.Printf("clarify: model call failed: %v", err)
		return "I encountered an error while processing your request. Please try again with more specific details."
	}
	return strings.TrimSpace(text)
}
