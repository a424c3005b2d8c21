package orchestrator

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"sync"
	"time"

	ai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pkdindustries/deskshack/internal/core"
	"pkdindustries/deskshack/internal/flags"
	"pkdindustries/deskshack/internal/llm"
	"pkdindustries/deskshack/internal/tools"
)

var tracer = otel.Tracer("deskshack/orchestrator")

// Orchestrator drives the two-phase model-call protocol: one call with the
// full tool set, dispatch of whatever tools the model requested, then one
// call without tools for the final answer. One round of tool use per user
// turn is the contract; a backend that requests tools again in round two
// produces that content literally.
type Orchestrator struct {
	backend  llm.Backend
	registry *tools.Registry
	flags    flags.Provider
}

func New(backend llm.Backend, registry *tools.Registry, provider flags.Provider) *Orchestrator {
	return &Orchestrator{
		backend:  backend,
		registry: registry,
		flags:    provider,
	}
}

// HandleRequest processes one user turn against the session held by ctx.
// Tool failures are folded into the conversation as data; only a backend
// transport failure aborts the turn, and the already-appended user message
// is deliberately not rolled back.
func (o *Orchestrator) HandleRequest(ctx core.ChatContextInterface, userMessage string) (*Result, error) {
	cfg := ctx.GetConfig()
	sess := ctx.GetSession()
	log := ctx.GetLogger()
	start := time.Now()
	defer core.LogDuration(log, "handle_request", start)

	sctx, span := tracer.Start(ctx, "handle_request", trace.WithAttributes(
		attribute.String("model", cfg.Model.Model),
		attribute.Int("user_message_length", len(userMessage)),
		attribute.Int("tools.declared", len(o.registry.Names())),
	))
	defer span.End()

	sess.AddMessage(ai.ChatCompletionMessage{
		Role:    ai.ChatMessageRoleUser,
		Content: userMessage,
	})

	snapshot := o.evaluateFlags(sctx)
	log.Debugw("Evaluated feature flags", "provider", o.flags.Name(), "flags", snapshot.String())

	history := sess.History()
	if snapshot.EnhancedResponses && len(history) > 0 && history[0].Role == ai.ChatMessageRoleSystem {
		// Mutates only the in-flight copy, never the stored conversation.
		history[0].Content += cfg.Bot.EnhancedPrompt
	}

	routing, err := o.complete(sctx, "model_call", &llm.CompletionRequest{
		Model:       cfg.Model.Model,
		Temperature: cfg.Model.Temperature,
		MaxTokens:   cfg.Model.MaxTokens,
		Timeout:     cfg.API.Timeout,
		Messages:    history,
		Tools:       o.registry.Definitions(),
	})
	if err != nil {
		return nil, err
	}

	result := &Result{Flags: snapshot}
	var final string

	if len(routing.ToolCalls) == 0 {
		final = routing.Content
	} else {
		calls := slices.Clone(routing.ToolCalls)
		if snapshot.PriorityRouting && containsUrgencySignal(userMessage) {
			calls = escalateTicketPriority(calls)
			log.Infow("Priority routing applied", "tool_calls", len(calls))
		}

		results := o.executeToolCalls(sctx, ctx, calls)

		// One in-flight conversation serves both model calls, so the final
		// round sees the same system prompt (enhanced or not) and the full
		// tool exchange regardless of session retention. The session records
		// the same messages for later turns.
		assistant := ai.ChatCompletionMessage{
			Role:      ai.ChatMessageRoleAssistant,
			Content:   routing.Content,
			ToolCalls: calls,
		}
		history = append(history, assistant)
		sess.AddMessage(assistant)
		for _, r := range results {
			msg := r.Message()
			history = append(history, msg)
			sess.AddMessage(msg)
		}

		// Final round omits tool declarations; no further tool calls are
		// solicited this turn.
		answer, err := o.complete(sctx, "model_final_response", &llm.CompletionRequest{
			Model:       cfg.Model.Model,
			Temperature: cfg.Model.FinalTemperature,
			MaxTokens:   cfg.Model.MaxTokens,
			Timeout:     cfg.API.Timeout,
			Messages:    history,
		})
		if err != nil {
			return nil, err
		}
		if len(answer.ToolCalls) > 0 {
			log.Warnw("Backend requested tools in the final round; treating response as literal text",
				"tool_calls", len(answer.ToolCalls))
		}
		final = answer.Content

		result.ToolCalls = summarizeCalls(calls)
		result.ToolResults = results
	}

	final = Truncate(final, snapshot.MaxResponseLength)
	result.FinalResponse = final

	sess.AddMessage(ai.ChatCompletionMessage{
		Role:    ai.ChatMessageRoleAssistant,
		Content: final,
	})

	span.SetAttributes(
		attribute.Int("response_length", len(final)),
		attribute.Int("tool_calls_made", len(result.ToolCalls)),
	)
	return result, nil
}

// evaluateFlags captures one snapshot for the whole request, attributing
// every key/value to the span.
func (o *Orchestrator) evaluateFlags(ctx context.Context) flags.Snapshot {
	_, span := tracer.Start(ctx, "feature_flag_evaluation")
	defer span.End()

	snapshot := flags.Evaluate(o.flags)
	span.SetAttributes(snapshot.Attributes()...)
	return snapshot
}

func (o *Orchestrator) complete(ctx context.Context, spanName string, req *llm.CompletionRequest) (*llm.Completion, error) {
	ctx, span := tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.tools_available", len(req.Tools)),
	))
	defer span.End()

	completion, err := o.backend.Complete(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("llm.finish_reason", completion.FinishReason))
	return completion, nil
}

// executeToolCalls dispatches every call through the registry. Handlers
// share no mutable state across calls, so dispatch runs concurrently, but
// results are reassembled in the order the model emitted the requests.
func (o *Orchestrator) executeToolCalls(ctx context.Context, reqCtx core.ChatContextInterface, calls []ai.ToolCall) []tools.Result {
	ctx, span := tracer.Start(ctx, "execute_tool_calls", trace.WithAttributes(
		attribute.Int("tool_calls.count", len(calls)),
	))
	defer span.End()

	results := make([]tools.Result, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call ai.ToolCall) {
			defer wg.Done()
			results[i] = o.registry.Dispatch(ctx, call)
			if results[i].Err != nil {
				reqCtx.GetLogger().Warnw("Tool call failed", "tool", call.Function.Name, "error", results[i].Err)
			}
		}(i, call)
	}
	wg.Wait()

	span.SetAttributes(attribute.Int("tool_calls.executed", len(results)))
	return results
}

// containsUrgencySignal reports whether the raw user text sounds urgent.
func containsUrgencySignal(message string) bool {
	return strings.Contains(strings.ToLower(message), "urgent")
}

// escalateTicketPriority rewrites the priority argument of any pending
// create_ticket call to high. Runs before dispatch, never after.
func escalateTicketPriority(calls []ai.ToolCall) []ai.ToolCall {
	for i, call := range calls {
		if call.Function.Name != "create_ticket" {
			continue
		}
		var args map[string]any
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			continue
		}
		args["priority"] = tools.PriorityHigh
		raw, err := json.Marshal(args)
		if err != nil {
			continue
		}
		calls[i].Function.Arguments = string(raw)
	}
	return calls
}

// Truncate limits text to max bytes, replacing the tail with an ellipsis
// marker when it was cut.
func Truncate(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	if max <= 3 {
		return text[:max]
	}
	return text[:max-3] + "..."
}
