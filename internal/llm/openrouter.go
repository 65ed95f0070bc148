package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultOpenRouterURL = "https://openrouter.ai/api/v1/chat/completions"

// OpenRouterClient calls the OpenRouter Chat Completions API
// (OpenAI-compatible). See: https://openrouter.ai/docs/api-reference
type OpenRouterClient struct {
	http    *http.Client
	apiKey  string
	model   string
	baseURL string
}

// NewOpenRouterClient creates an OpenRouter client. The API key is required;
// a missing key is a configuration error and fails construction.
func NewOpenRouterClient(apiKey, model string, timeout time.Duration) (*OpenRouterClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("openrouter: api key is required")
	}
	if model == "" {
		model = "openai/gpt-3.5-turbo"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenRouterClient{
		http:    &http.Client{Timeout: timeout},
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultOpenRouterURL,
	}, nil
}

func (c *OpenRouterClient) Name() string { return "OpenRouter:" + c.model }
func (c *OpenRouterClient) Close() error { return nil }

type chatReq struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateText sends the messages as-is and returns the first choice's text.
func (c *OpenRouterClient) GenerateText(ctx context.Context, messages []Message, opts GenOptions) (string, error) {
	reqBody := chatReq{
		Model:       c.model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	b, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		const max = 2048
		if len(body) > max {
			body = body[:max]
		}
		err := fmt.Errorf("openrouter: unexpected status %s: %s", resp.Status, string(body))
		// Auth failures and context-length overruns do not heal on retry.
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return "", NewPermanentError(err)
		}
		if resp.StatusCode == 400 && strings.Contains(string(body), "context_length_exceeded") {
			return "", NewPermanentError(err)
		}
		return "", err
	}
	var out chatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", ErrInvalidResponse
	}
	return out.Choices[0].Message.Content, nil
}
