package orchestrator

import (
	"strings"
	"testing"

	ai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkdindustries/deskshack/internal/flags"
	"pkdindustries/deskshack/internal/llm"
	mocktest "pkdindustries/deskshack/internal/testing"
	"pkdindustries/deskshack/internal/tools"
)

type fixture struct {
	orch    *Orchestrator
	ctx     *mocktest.MockChatContext
	backend *mocktest.ScriptedBackend
	tickets *tools.TicketStore
}

func newFixture(t *testing.T, backend *mocktest.ScriptedBackend, provider flags.Provider) *fixture {
	t.Helper()

	tickets := tools.NewTicketStore()
	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(&tools.CreateTicketTool{Store: tickets}))
	require.NoError(t, registry.Register(&tools.OrderStatusTool{Store: tools.NewOrderStore()}))
	require.NoError(t, registry.Register(&tools.ResetPasswordTool{Store: tools.NewResetStore()}))

	return &fixture{
		orch:    New(backend, registry, provider),
		ctx:     mocktest.NewMockChatContext(mocktest.DefaultTestConfig(), nil),
		backend: backend,
		tickets: tickets,
	}
}

func toolCall(id, name, args string) ai.ToolCall {
	return ai.ToolCall{
		ID:       id,
		Type:     ai.ToolTypeFunction,
		Function: ai.FunctionCall{Name: name, Arguments: args},
	}
}

func TestDirectAnswer(t *testing.T) {
	backend := &mocktest.ScriptedBackend{
		Completions: []*llm.Completion{
			{Content: "Hello! How can I help?", FinishReason: "stop"},
		},
	}
	f := newFixture(t, backend, flags.Static{})

	result, err := f.orch.HandleRequest(f.ctx, "hi there")
	require.NoError(t, err)

	assert.Equal(t, "Hello! How can I help?", result.FinalResponse)
	assert.False(t, result.UsedTools())
	assert.Equal(t, 1, backend.Calls())

	// First call advertises the full tool set
	require.Len(t, backend.Requests, 1)
	assert.Len(t, backend.Requests[0].Tools, 3)

	history := f.ctx.Session.History()
	require.Len(t, history, 3)
	assert.Equal(t, ai.ChatMessageRoleSystem, history[0].Role)
	assert.Equal(t, "hi there", history[1].Content)
	assert.Equal(t, "Hello! How can I help?", history[2].Content)
}

func TestToolRound(t *testing.T) {
	backend := &mocktest.ScriptedBackend{
		Completions: []*llm.Completion{
			{
				ToolCalls: []ai.ToolCall{
					toolCall("call_1", "create_ticket", `{"summary":"login broken","user_email":"sam@example.com"}`),
				},
				FinishReason: "tool_calls",
			},
			{Content: "I've opened a ticket for you.", FinishReason: "stop"},
		},
	}
	f := newFixture(t, backend, flags.Static{})

	result, err := f.orch.HandleRequest(f.ctx, "I can't log in")
	require.NoError(t, err)

	assert.Equal(t, "I've opened a ticket for you.", result.FinalResponse)
	assert.True(t, result.UsedTools())
	assert.Equal(t, []string{"create_ticket"}, result.ToolNames())
	assert.Equal(t, 1, f.tickets.Len())

	res, ok := result.ResultFor("call_1")
	require.True(t, ok)
	require.NoError(t, res.Err)
	assert.Contains(t, res.Payload, "ticket_id")

	// Final round drops tool declarations and uses the final temperature
	require.Equal(t, 2, backend.Calls())
	second := backend.Requests[1]
	assert.Empty(t, second.Tools)
	assert.Equal(t, f.ctx.Config.Model.FinalTemperature, second.Temperature)

	// Conversation folds in the assistant request and the tool result
	history := f.ctx.Session.History()
	require.Len(t, history, 5)
	assert.Equal(t, ai.ChatMessageRoleAssistant, history[2].Role)
	require.Len(t, history[2].ToolCalls, 1)
	assert.Equal(t, ai.ChatMessageRoleTool, history[3].Role)
	assert.Equal(t, "call_1", history[3].ToolCallID)
	assert.Equal(t, "I've opened a ticket for you.", history[4].Content)
}

func TestPriorityEscalation(t *testing.T) {
	script := func() *mocktest.ScriptedBackend {
		return &mocktest.ScriptedBackend{
			Completions: []*llm.Completion{
				{
					ToolCalls: []ai.ToolCall{
						toolCall("call_1", "create_ticket",
							`{"summary":"site down","user_email":"sam@example.com","priority":"normal"}`),
					},
					FinishReason: "tool_calls",
				},
				{Content: "Ticket filed.", FinishReason: "stop"},
			},
		}
	}

	t.Run("Urgent message with routing enabled escalates to high", func(t *testing.T) {
		f := newFixture(t, script(), flags.Static{Values: map[string]any{
			flags.KeyPriorityRouting: true,
		}})

		result, err := f.orch.HandleRequest(f.ctx, "URGENT: the whole site is down!")
		require.NoError(t, err)

		require.Len(t, result.ToolCalls, 1)
		assert.Equal(t, tools.PriorityHigh, result.ToolCalls[0].Arguments["priority"])

		stored := f.tickets.All()
		require.Len(t, stored, 1)
		assert.Equal(t, tools.PriorityHigh, stored[0].Priority)
	})

	t.Run("Urgent message with routing disabled keeps requested priority", func(t *testing.T) {
		f := newFixture(t, script(), flags.Static{})

		_, err := f.orch.HandleRequest(f.ctx, "URGENT: the whole site is down!")
		require.NoError(t, err)

		stored := f.tickets.All()
		require.Len(t, stored, 1)
		assert.Equal(t, tools.PriorityNormal, stored[0].Priority)
	})

	t.Run("Calm message with routing enabled keeps requested priority", func(t *testing.T) {
		f := newFixture(t, script(), flags.Static{Values: map[string]any{
			flags.KeyPriorityRouting: true,
		}})

		_, err := f.orch.HandleRequest(f.ctx, "the site seems to be down")
		require.NoError(t, err)

		stored := f.tickets.All()
		require.Len(t, stored, 1)
		assert.Equal(t, tools.PriorityNormal, stored[0].Priority)
	})
}

func TestUnknownToolDoesNotAbort(t *testing.T) {
	backend := &mocktest.ScriptedBackend{
		Completions: []*llm.Completion{
			{
				ToolCalls:    []ai.ToolCall{toolCall("call_1", "search_flights", `{"to":"LHR"}`)},
				FinishReason: "tool_calls",
			},
			{Content: "I can't book flights, but I can help with orders.", FinishReason: "stop"},
		},
	}
	f := newFixture(t, backend, flags.Static{})

	result, err := f.orch.HandleRequest(f.ctx, "book me a flight")
	require.NoError(t, err)

	require.Len(t, result.ToolResults, 1)
	assert.ErrorContains(t, result.ToolResults[0].Err, "unknown tool")
	assert.Equal(t, "I can't book flights, but I can help with orders.", result.FinalResponse)

	// The failure reached the model as a tool message, not an abort
	history := f.ctx.Session.History()
	assert.Equal(t, ai.ChatMessageRoleTool, history[3].Role)
	assert.Contains(t, history[3].Content, "Error:")
}

func TestParallelCallsKeepRequestOrder(t *testing.T) {
	backend := &mocktest.ScriptedBackend{
		Completions: []*llm.Completion{
			{
				ToolCalls: []ai.ToolCall{
					toolCall("call_1", "fetch_order_status", `{"order_id":"A1234"}`),
					toolCall("call_2", "reset_password", `{"email":"sam@example.com"}`),
					toolCall("call_3", "fetch_order_status", `{"order_id":"Z9999"}`),
				},
				FinishReason: "tool_calls",
			},
			{Content: "Here's everything you asked for.", FinishReason: "stop"},
		},
	}
	f := newFixture(t, backend, flags.Static{})

	result, err := f.orch.HandleRequest(f.ctx, "check my order and reset my password")
	require.NoError(t, err)

	require.Len(t, result.ToolResults, 3)
	assert.Equal(t, "call_1", result.ToolResults[0].ToolCallID)
	assert.Equal(t, "call_2", result.ToolResults[1].ToolCallID)
	assert.Equal(t, "call_3", result.ToolResults[2].ToolCallID)
	assert.Contains(t, result.ToolResults[0].Payload, "Shipped")
	assert.Contains(t, result.ToolResults[2].Payload, `"found":false`)
}

func TestBackendErrorAbortsTurn(t *testing.T) {
	backend := &mocktest.ScriptedBackend{
		Errors: []error{&llm.BackendError{Err: assert.AnError}},
	}
	f := newFixture(t, backend, flags.Static{})

	result, err := f.orch.HandleRequest(f.ctx, "hello?")
	assert.Nil(t, result)

	var berr *llm.BackendError
	require.ErrorAs(t, err, &berr)

	// The user message stays; only this turn failed
	history := f.ctx.Session.History()
	require.Len(t, history, 2)
	assert.Equal(t, "hello?", history[1].Content)
}

func TestFinalRoundToolCallsAreInert(t *testing.T) {
	backend := &mocktest.ScriptedBackend{
		Completions: []*llm.Completion{
			{
				ToolCalls:    []ai.ToolCall{toolCall("call_1", "fetch_order_status", `{"order_id":"B5678"}`)},
				FinishReason: "tool_calls",
			},
			{
				Content:      "Your order is processing.",
				ToolCalls:    []ai.ToolCall{toolCall("call_2", "fetch_order_status", `{"order_id":"B5678"}`)},
				FinishReason: "tool_calls",
			},
		},
	}
	f := newFixture(t, backend, flags.Static{})

	result, err := f.orch.HandleRequest(f.ctx, "where's order B5678?")
	require.NoError(t, err)

	assert.Equal(t, "Your order is processing.", result.FinalResponse)
	assert.Equal(t, 2, backend.Calls())
	assert.Len(t, result.ToolResults, 1)
}

func TestEnhancedResponses(t *testing.T) {
	t.Run("Direct answer sees the supplement", func(t *testing.T) {
		backend := &mocktest.ScriptedBackend{
			Completions: []*llm.Completion{
				{Content: "A thorough answer.", FinishReason: "stop"},
			},
		}
		f := newFixture(t, backend, flags.Static{Values: map[string]any{
			flags.KeyEnhancedResponses: true,
		}})

		_, err := f.orch.HandleRequest(f.ctx, "tell me about shipping")
		require.NoError(t, err)

		// The supplement reaches the model for this request only
		sent := backend.Requests[0].Messages[0].Content
		assert.True(t, strings.HasSuffix(sent, f.ctx.Config.Bot.EnhancedPrompt))

		stored := f.ctx.Session.History()[0].Content
		assert.Equal(t, f.ctx.Config.Bot.Prompt, stored)
	})

	t.Run("Both rounds of a tool turn see the supplement", func(t *testing.T) {
		backend := &mocktest.ScriptedBackend{
			Completions: []*llm.Completion{
				{
					ToolCalls:    []ai.ToolCall{toolCall("call_1", "fetch_order_status", `{"order_id":"A1234"}`)},
					FinishReason: "tool_calls",
				},
				{Content: "Your order shipped.", FinishReason: "stop"},
			},
		}
		f := newFixture(t, backend, flags.Static{Values: map[string]any{
			flags.KeyEnhancedResponses: true,
		}})

		_, err := f.orch.HandleRequest(f.ctx, "where is order A1234?")
		require.NoError(t, err)

		require.Equal(t, 2, backend.Calls())
		supplement := f.ctx.Config.Bot.EnhancedPrompt
		assert.True(t, strings.HasSuffix(backend.Requests[0].Messages[0].Content, supplement))
		assert.True(t, strings.HasSuffix(backend.Requests[1].Messages[0].Content, supplement))

		// The stored prompt stays unenhanced for future requests
		assert.Equal(t, f.ctx.Config.Bot.Prompt, f.ctx.Session.History()[0].Content)
	})
}

func TestTightRetentionKeepsFinalRoundComplete(t *testing.T) {
	backend := &mocktest.ScriptedBackend{
		Completions: []*llm.Completion{
			{
				ToolCalls: []ai.ToolCall{
					toolCall("call_1", "fetch_order_status", `{"order_id":"A1234"}`),
					toolCall("call_2", "fetch_order_status", `{"order_id":"B5678"}`),
				},
				FinishReason: "tool_calls",
			},
			{Content: "Both orders are on their way.", FinishReason: "stop"},
		},
	}

	cfg := mocktest.DefaultTestConfig()
	cfg.Session.MaxHistory = 2

	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(&tools.OrderStatusTool{Store: tools.NewOrderStore()}))
	orch := New(backend, registry, flags.Static{})
	ctx := mocktest.NewMockChatContext(cfg, nil)

	result, err := orch.HandleRequest(ctx, "where are orders A1234 and B5678?")
	require.NoError(t, err)
	assert.Len(t, result.ToolResults, 2)

	// The final round sees the complete tool exchange even though the
	// session retains almost nothing
	require.Equal(t, 2, backend.Calls())
	msgs := backend.Requests[1].Messages
	require.Len(t, msgs, 5)
	assert.Equal(t, ai.ChatMessageRoleSystem, msgs[0].Role)
	assert.Equal(t, ai.ChatMessageRoleUser, msgs[1].Role)
	assert.Equal(t, ai.ChatMessageRoleAssistant, msgs[2].Role)
	require.Len(t, msgs[2].ToolCalls, 2)
	assert.Equal(t, ai.ChatMessageRoleTool, msgs[3].Role)
	assert.Equal(t, ai.ChatMessageRoleTool, msgs[4].Role)

	// The trimmed session never leads with a stranded tool reply
	history := ctx.Session.History()
	require.GreaterOrEqual(t, len(history), 2)
	assert.NotEqual(t, ai.ChatMessageRoleTool, history[1].Role)
	assert.Equal(t, result.FinalResponse, history[len(history)-1].Content)
}

func TestTruncation(t *testing.T) {
	long := strings.Repeat("a", 30)
	backend := &mocktest.ScriptedBackend{
		Completions: []*llm.Completion{
			{Content: long, FinishReason: "stop"},
		},
	}
	f := newFixture(t, backend, flags.Static{Values: map[string]any{
		flags.KeyMaxResponseLength: 20,
	}})

	result, err := f.orch.HandleRequest(f.ctx, "hi")
	require.NoError(t, err)

	assert.Len(t, result.FinalResponse, 20)
	assert.True(t, strings.HasSuffix(result.FinalResponse, "..."))
	assert.Equal(t, long[:17]+"...", result.FinalResponse)
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"shorter than limit", "hello", 10, "hello"},
		{"exactly at limit", "hello", 5, "hello"},
		{"over limit gets marker", "hello world", 8, "hello..."},
		{"zero limit means unlimited", "hello", 0, "hello"},
		{"tiny limit cuts without marker", "hello", 2, "he"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Truncate(tc.in, tc.max))
		})
	}
}

func TestContainsUrgencySignal(t *testing.T) {
	assert.True(t, containsUrgencySignal("this is URGENT"))
	assert.True(t, containsUrgencySignal("urgently need help"))
	assert.False(t, containsUrgencySignal("no rush at all"))
}
