package llm

import (
	"context"
	"fmt"
	"time"

	ai "github.com/sashabaranov/go-openai"
)

// CompletionRequest describes one call to the model backend. When Tools is
// empty the backend must not solicit tool calls.
type CompletionRequest struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	Messages    []ai.ChatCompletionMessage
	Tools       []ai.Tool
}

// Completion is the backend's answer: either terminal text, or a non-empty
// ordered list of tool calls plus the finish reason the provider reported.
type Completion struct {
	Content      string
	ToolCalls    []ai.ToolCall
	FinishReason string
}

// Backend abstracts the LLM inference service to its request/response
// contract. Implementations fail with a *BackendError on transport, auth,
// or rate-limit problems; the caller does not distinguish subtypes.
type Backend interface {
	Complete(ctx context.Context, req *CompletionRequest) (*Completion, error)
	Name() string
}

// BackendError wraps any failure of the model backend.
type BackendError struct {
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("model backend: %v", e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
