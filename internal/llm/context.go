package llm

import "context"

type ctxKeyStage struct{}

// WithStage tags the context with the pipeline stage issuing the call.
// Middleware uses it for log attribution only.
func WithStage(ctx context.Context, stage string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKeyStage{}, stage)
}

// StageFrom returns the stage name stored in the context, or "unknown".
func StageFrom(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if v, ok := ctx.Value(ctxKeyStage{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}
