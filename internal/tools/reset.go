package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	ai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ResetPasswordTool records a pending reset and returns a one-time token.
// The response shape is constant whether or not the account exists, so the
// tool can never be used to probe for accounts.
type ResetPasswordTool struct {
	Store *ResetStore
}

var _ Tool = (*ResetPasswordTool)(nil)

func (t *ResetPasswordTool) Definition() ai.Tool {
	return ai.Tool{
		Type: ai.ToolTypeFunction,
		Function: &ai.FunctionDefinition{
			Name:        "reset_password",
			Description: "Initiate password reset for a user account",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"email": {
						Type:        jsonschema.String,
						Description: "User's email address for password reset",
					},
				},
				Required: []string{"email"},
			},
		},
	}
}

func (t *ResetPasswordTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	email, _ := args["email"].(string)
	token := fmt.Sprintf("%x", uuid.New())[:12]

	t.Store.Add(Reset{
		Email:     email,
		Token:     token,
		Status:    "pending",
		CreatedAt: time.Now(),
	})

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("reset.email", email),
		attribute.Bool("reset.token_generated", true),
	)

	payload, err := json.Marshal(map[string]any{
		"email":        email,
		"reset_token":  token,
		"instructions": "Password reset link emailed if account exists.",
	})
	if err != nil {
		return "", err
	}
	return string(payload), nil
}
