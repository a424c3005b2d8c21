package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	ai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// CreateTicketTool opens a support ticket in the injected store.
type CreateTicketTool struct {
	Store *TicketStore
}

var _ Tool = (*CreateTicketTool)(nil)

func (t *CreateTicketTool) Definition() ai.Tool {
	return ai.Tool{
		Type: ai.ToolTypeFunction,
		Function: &ai.FunctionDefinition{
			Name:        "create_ticket",
			Description: "Create a support ticket for customer issues",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"summary": {
						Type:        jsonschema.String,
						Description: "Brief summary of the customer's issue",
					},
					"user_email": {
						Type:        jsonschema.String,
						Description: "Customer's email address",
					},
					"priority": {
						Type:        jsonschema.String,
						Enum:        []string{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent},
						Description: "Priority level of the ticket",
					},
				},
				Required: []string{"summary", "user_email"},
			},
		},
	}
}

func (t *CreateTicketTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	summary, _ := args["summary"].(string)
	email, _ := args["user_email"].(string)
	priority, _ := args["priority"].(string)
	if priority == "" {
		priority = PriorityNormal
	}

	ticketID := fmt.Sprintf("TIC-%s", strings.ToUpper(fmt.Sprintf("%x", uuid.New())[:8]))
	t.Store.Add(Ticket{
		ID:        ticketID,
		Summary:   summary,
		Email:     email,
		Priority:  priority,
		Status:    "open",
		CreatedAt: time.Now(),
	})

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("ticket.id", ticketID),
		attribute.String("ticket.priority", priority),
	)

	payload, err := json.Marshal(map[string]any{
		"ticket_id": ticketID,
		"status":    "open",
		"priority":  priority,
	})
	if err != nil {
		return "", err
	}
	return string(payload), nil
}
