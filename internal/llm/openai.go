package llm

import (
	"context"
	"errors"

	ai "github.com/sashabaranov/go-openai"

	"pkdindustries/deskshack/internal/config"
)

// OpenAIBackend talks to the OpenAI chat completions API (or any
// API-compatible endpoint when a custom base URL is configured).
type OpenAIBackend struct {
	client *ai.Client
}

func NewOpenAIBackend(cfg *config.APIConfig) *OpenAIBackend {
	aiConfig := ai.DefaultConfig(cfg.OpenAIKey)
	if cfg.OpenAIURL != "" {
		aiConfig.BaseURL = cfg.OpenAIURL
	}
	return &OpenAIBackend{
		client: ai.NewClientWithConfig(aiConfig),
	}
}

func (b *OpenAIBackend) Name() string {
	return "openai"
}

func (b *OpenAIBackend) Complete(ctx context.Context, req *CompletionRequest) (*Completion, error) {
	if len(req.Messages) == 0 {
		return nil, &BackendError{Err: errors.New("empty conversation")}
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	aiReq := ai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if len(req.Tools) > 0 {
		aiReq.Tools = req.Tools
		aiReq.ToolChoice = "auto"
	}

	response, err := b.client.CreateChatCompletion(ctx, aiReq)
	if err != nil {
		return nil, &BackendError{Err: err}
	}
	if len(response.Choices) == 0 {
		return nil, &BackendError{Err: errors.New("no choices")}
	}

	choice := response.Choices[0]
	return &Completion{
		Content:      choice.Message.Content,
		ToolCalls:    choice.Message.ToolCalls,
		FinishReason: string(choice.FinishReason),
	}, nil
}
