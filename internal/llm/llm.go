package llm

import (
	"context"
	"errors"
)

// Message is one turn of a chat-style model request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenOptions tunes a single generation call. Zero values mean
// "provider default".
type GenOptions struct {
	Temperature float32
	MaxTokens   int
}

// Client is the model-invocation collaborator. Implementations must treat
// provider/network failures as plain errors; callers decide the fallback.
type Client interface {
	Name() string
	GenerateText(ctx context.Context, messages []Message, opts GenOptions) (string, error)
	Close() error
}

var ErrInvalidResponse = errors.New("llm: empty or malformed response from model")

// PermanentError marks an error that retry middleware must not retry
// (e.g. context-length exceeded, auth rejection).
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) *PermanentError { return &PermanentError{Err: err} }
