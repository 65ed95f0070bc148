package llm

import (
	"context"
	"sync"
)

// FakeClient returns scripted responses per stage for offline/testing.
// Responses are keyed by the stage name carried in the context. When a
// stage has multiple queued responses they are consumed in order; the last
// one repeats. An empty queue yields Err (if set) or ErrInvalidResponse.
type FakeClient struct {
	mu        sync.Mutex
	responses map[string][]string
	cursor    map[string]int
	calls     map[string]int
	Err       error
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		responses: make(map[string][]string),
		cursor:    make(map[string]int),
		calls:     make(map[string]int),
	}
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

// Script queues responses for a stage.
func (f *FakeClient) Script(stage string, responses ...string) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[stage] = append(f.responses[stage], responses...)
	return f
}

// Calls reports how many times a stage invoked the model.
func (f *FakeClient) Calls(stage string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[stage]
}

func (f *FakeClient) GenerateText(ctx context.Context, messages []Message, opts GenOptions) (string, error) {
	stage := StageFrom(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[stage]++
	if f.Err != nil {
		return "", f.Err
	}
	queue := f.responses[stage]
	if len(queue) == 0 {
		return "", ErrInvalidResponse
	}
	i := f.cursor[stage]
	if i >= len(queue) {
		i = len(queue) - 1
	} else {
		f.cursor[stage] = i + 1
	}
	return queue[i], nil
}
