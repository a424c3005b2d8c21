package tools

import (
	"context"
	"encoding/json"

	ai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OrderStatusTool looks up an order in the injected table. An absent order
// is a legitimate outcome, not a failure.
type OrderStatusTool struct {
	Store *OrderStore
}

var _ Tool = (*OrderStatusTool)(nil)

func (t *OrderStatusTool) Definition() ai.Tool {
	return ai.Tool{
		Type: ai.ToolTypeFunction,
		Function: &ai.FunctionDefinition{
			Name:        "fetch_order_status",
			Description: "Get the current status of a customer order",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"order_id": {
						Type:        jsonschema.String,
						Description: "The order ID to look up (e.g., A1234, B5678)",
					},
				},
				Required: []string{"order_id"},
			},
		},
	}
}

func (t *OrderStatusTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	orderID, _ := args["order_id"].(string)
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("order.id", orderID))

	order, found := t.Store.Get(orderID)
	span.SetAttributes(attribute.Bool("order.found", found))
	if !found {
		payload, err := json.Marshal(map[string]any{
			"found":    false,
			"order_id": orderID,
		})
		if err != nil {
			return "", err
		}
		return string(payload), nil
	}

	span.SetAttributes(attribute.String("order.status", order.Status))
	payload, err := json.Marshal(map[string]any{
		"found":    true,
		"order_id": orderID,
		"status":   order.Status,
		"eta_days": order.ETADays,
		"items":    order.Items,
		"carrier":  order.Carrier,
	})
	if err != nil {
		return "", err
	}
	return string(payload), nil
}
