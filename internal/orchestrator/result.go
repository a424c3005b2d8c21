package orchestrator

import (
	"encoding/json"

	ai "github.com/sashabaranov/go-openai"

	"pkdindustries/deskshack/internal/flags"
	"pkdindustries/deskshack/internal/tools"
)

// ToolCall records one tool request as the model made it, with any priority
// escalation already applied to the arguments.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Result is the complete outcome of one user turn: what tools ran, what
// they produced, the final text shown to the user, and the flag snapshot
// the turn was evaluated under.
type Result struct {
	ToolCalls     []ToolCall
	ToolResults   []tools.Result
	FinalResponse string
	Flags         flags.Snapshot
}

// UsedTools reports whether the turn went through the tool round.
func (r *Result) UsedTools() bool {
	return len(r.ToolCalls) > 0
}

// ToolNames lists the dispatched tools in request order.
func (r *Result) ToolNames() []string {
	names := make([]string, 0, len(r.ToolCalls))
	for _, call := range r.ToolCalls {
		names = append(names, call.Name)
	}
	return names
}

// ResultFor pairs a tool result back to its originating call by ID.
func (r *Result) ResultFor(toolCallID string) (tools.Result, bool) {
	for _, res := range r.ToolResults {
		if res.ToolCallID == toolCallID {
			return res, true
		}
	}
	return tools.Result{}, false
}

func summarizeCalls(calls []ai.ToolCall) []ToolCall {
	summaries := make([]ToolCall, 0, len(calls))
	for _, call := range calls {
		var args map[string]any
		// Malformed arguments still surface the call itself; the paired
		// result carries the decode error.
		_ = json.Unmarshal([]byte(call.Function.Arguments), &args)
		summaries = append(summaries, ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: args,
		})
	}
	return summaries
}
