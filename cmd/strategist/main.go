// Command strategist runs the full workflow once for a single request and
// prints the outcome as JSON. Useful for scripting and smoke checks without
// the HTTP gateway.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"strategist/internal/agent"
	"strategist/internal/config"
	"strategist/internal/llm"
	"strategist/internal/pipeline"
)

func main() {
	input := flag.String("input", "", "project request to process")
	contextJSON := flag.String("context", "", "optional JSON object with extra context")
	maxIterations := flag.Int("max-iterations", 0, "feedback iteration cap (0 uses the default)")
	pretty := flag.Bool("pretty", true, "indent the JSON output")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if strings.TrimSpace(*input) == "" {
		fmt.Fprintln(os.Stderr, "usage: strategist -input \"describe your project\" [-context '{...}'] [-max-iterations N]")
		os.Exit(2)
	}

	var runCtx agent.Context
	if strings.TrimSpace(*contextJSON) != "" {
		if err := json.Unmarshal([]byte(*contextJSON), &runCtx); err != nil {
			log.Fatalf("context: invalid JSON: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := buildClient(ctx, cfg)
	if err != nil {
		log.Fatalf("llm: %v", err)
	}
	defer client.Close()

	orch := pipeline.NewOrchestrator(client, pipeline.WithProgress(func(node pipeline.Node, iteration int) {
		log.Printf("node %s (iteration %d)", node, iteration+1)
	}))

	outcome := orch.ProcessRequest(ctx, *input, runCtx, *maxIterations)

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(outcome); err != nil {
		log.Fatalf("encode outcome: %v", err)
	}
	if !outcome.Success {
		os.Exit(1)
	}
}

func buildClient(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	var (
		base llm.Client
		err  error
	)
	switch cfg.LLM.Provider {
	case "gemini":
		base, err = llm.NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
	default:
		base, err = llm.NewOpenRouterClient(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout)
	}
	if err != nil {
		return nil, err
	}
	return llm.Wrap(base,
		llm.Retry(cfg.LLM.Retries, 500*time.Millisecond),
		llm.RateLimit(cfg.LLM.RPS, cfg.LLM.Burst),
		llm.WithLogging(nil),
	), nil
}
