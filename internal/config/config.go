// Package config loads process configuration once at startup. Everything
// downstream receives an explicit *Config; stage logic never reads the
// environment itself.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	Env      string
	LLM      LLMConfig
	History  HistoryConfig
	Artifact ArtifactConfig
}

type LLMConfig struct {
	Provider string // "openrouter" or "gemini"
	APIKey   string
	Model    string
	Timeout  time.Duration
	RPS      float64
	Burst    int
	Retries  int
}

type HistoryConfig struct {
	DSN  string // postgres DSN; empty selects the file backend
	Path string // JSON file path for the file backend
}

type ArtifactConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Load reads .env, flags and environment variables. A missing model API key
// is a configuration error: it fails here, once, instead of surfacing
// mid-pipeline.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8080", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	llmCfg, err := loadLLMConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:     *port,
		Env:      env,
		LLM:      llmCfg,
		History:  loadHistoryConfig(),
		Artifact: loadArtifactConfig(),
	}, nil
}

func loadLLMConfig() (LLMConfig, error) {
	provider := strings.ToLower(firstNonEmpty(strings.TrimSpace(os.Getenv("LLM_PROVIDER")), "openrouter"))

	var apiKey, model string
	switch provider {
	case "gemini":
		apiKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
		model = firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_MODEL")), "gemini-2.5-flash")
		if apiKey == "" {
			return LLMConfig{}, fmt.Errorf("config: GEMINI_API_KEY is not set")
		}
	case "openrouter":
		apiKey = strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY"))
		model = firstNonEmpty(strings.TrimSpace(os.Getenv("OPENROUTER_MODEL")), "openai/gpt-3.5-turbo")
		if apiKey == "" {
			return LLMConfig{}, fmt.Errorf("config: OPENROUTER_API_KEY is not set")
		}
	default:
		return LLMConfig{}, fmt.Errorf("config: unknown LLM provider %q", provider)
	}

	timeout := 60 * time.Second
	if v := strings.TrimSpace(os.Getenv("LLM_TIMEOUT_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			timeout = time.Duration(n) * time.Second
		}
	}
	rps := 0.0
	if v := strings.TrimSpace(os.Getenv("LLM_RPS")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			rps = f
		}
	}
	burst := 0
	if v := strings.TrimSpace(os.Getenv("LLM_BURST")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			burst = n
		}
	}
	retries := 3
	if v := strings.TrimSpace(os.Getenv("LLM_RETRIES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			retries = n
		}
	}

	return LLMConfig{
		Provider: provider,
		APIKey:   apiKey,
		Model:    model,
		Timeout:  timeout,
		RPS:      rps,
		Burst:    burst,
		Retries:  retries,
	}, nil
}

func loadHistoryConfig() HistoryConfig {
	return HistoryConfig{
		DSN:  strings.TrimSpace(os.Getenv("HISTORY_PG_DSN")),
		Path: firstNonEmpty(strings.TrimSpace(os.Getenv("HISTORY_PATH")), "history.json"),
	}
}

func loadArtifactConfig() ArtifactConfig {
	endpoint := strings.TrimSpace(os.Getenv("ARTIFACT_S3_ENDPOINT"))
	useSSL := true
	if raw := strings.TrimSpace(os.Getenv("ARTIFACT_S3_USE_SSL")); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			useSSL = v
		}
	}
	return ArtifactConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_BUCKET")), "strategist-artifacts"),
		UseSSL:    useSSL,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
