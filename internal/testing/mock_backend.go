package testing

import (
	"context"
	"sync"

	"pkdindustries/deskshack/internal/llm"
)

// ScriptedBackend implements llm.Backend for testing. It returns queued
// completions in order and records every request it receives so tests can
// assert on what the orchestrator actually sent.
type ScriptedBackend struct {
	mu          sync.Mutex
	Completions []*llm.Completion
	Errors      []error // paired by index with Completions, nil = success
	Requests    []*llm.CompletionRequest
	calls       int
}

var _ llm.Backend = (*ScriptedBackend)(nil)

func (b *ScriptedBackend) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.Completion, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Requests = append(b.Requests, req)
	i := b.calls
	b.calls++

	if i < len(b.Errors) && b.Errors[i] != nil {
		return nil, b.Errors[i]
	}
	if i < len(b.Completions) {
		return b.Completions[i], nil
	}
	return &llm.Completion{Content: "", FinishReason: "stop"}, nil
}

func (b *ScriptedBackend) Name() string { return "scripted" }

// Calls reports how many completions were requested
func (b *ScriptedBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}
