package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"strategist/internal/artifact"
	"strategist/internal/config"
	"strategist/internal/gateway"
	"strategist/internal/history"
	"strategist/internal/llm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := buildClient(ctx, cfg)
	if err != nil {
		log.Fatalf("llm: %v", err)
	}
	defer client.Close()

	srv := gateway.NewServer(client)

	hist, err := history.NewFromConfig(cfg.History.DSN, cfg.History.Path)
	if err != nil {
		log.Fatalf("history: %v", err)
	}
	defer hist.Close()
	srv.History = hist

	if cfg.Artifact.Enabled {
		store, err := artifact.NewStore(artifact.Config{
			Endpoint:  cfg.Artifact.Endpoint,
			Region:    cfg.Artifact.Region,
			AccessKey: cfg.Artifact.AccessKey,
			SecretKey: cfg.Artifact.SecretKey,
			Bucket:    cfg.Artifact.Bucket,
			UseSSL:    cfg.Artifact.UseSSL,
		})
		if err != nil {
			log.Printf("artifact store disabled: %v", err)
		} else {
			srv.Artifacts = store
		}
	}

	if err := srv.Serve(ctx, cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
	log.Printf("server stopped")
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
