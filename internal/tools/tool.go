package tools

import (
	"context"
	"fmt"

	ai "github.com/sashabaranov/go-openai"
)

// Tool is a named, schema-described local operation the model may request.
type Tool interface {
	// Definition returns the declaration advertised to the model.
	Definition() ai.Tool
	// Execute runs the tool with validated arguments and returns a payload.
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// ToolError marks a handler rejection or internal failure. It is captured
// as a result and folded back into the conversation, never an abort.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Result is the outcome of dispatching one tool call. Exactly one of
// Payload and Err is meaningful.
type Result struct {
	ToolCallID string
	Name       string
	Payload    string
	Err        error
}

// Content renders the result as conversation text for the tool-role
// message, so the model can react to failures as data.
func (r Result) Content() string {
	if r.Err != nil {
		return fmt.Sprintf("Error: %v", r.Err)
	}
	return r.Payload
}

// Message converts the result into the tool-role message echoing the
// tool_call_id the backend needs for correlation.
func (r Result) Message() ai.ChatCompletionMessage {
	return ai.ChatCompletionMessage{
		Role:       ai.ChatMessageRoleTool,
		Name:       r.Name,
		Content:    r.Content(),
		ToolCallID: r.ToolCallID,
	}
}
