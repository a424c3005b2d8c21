package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTicketTool(t *testing.T) {
	store := NewTicketStore()
	tool := &CreateTicketTool{Store: store}

	payload, err := tool.Execute(context.Background(), map[string]any{
		"summary":    "cannot log in",
		"user_email": "sam@example.com",
		"priority":   PriorityHigh,
	})
	require.NoError(t, err)

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &resp))
	assert.Regexp(t, `^TIC-[0-9A-F]{8}$`, resp["ticket_id"])
	assert.Equal(t, "open", resp["status"])
	assert.Equal(t, PriorityHigh, resp["priority"])

	ticket, ok := store.Get(resp["ticket_id"].(string))
	require.True(t, ok)
	assert.Equal(t, "cannot log in", ticket.Summary)
	assert.Equal(t, "sam@example.com", ticket.Email)
	assert.Equal(t, PriorityHigh, ticket.Priority)
}

func TestOrderStatusTool(t *testing.T) {
	tool := &OrderStatusTool{Store: NewOrderStore()}

	t.Run("Known order returns full status", func(t *testing.T) {
		payload, err := tool.Execute(context.Background(), map[string]any{"order_id": "A1234"})
		require.NoError(t, err)

		var resp map[string]any
		require.NoError(t, json.Unmarshal([]byte(payload), &resp))
		assert.Equal(t, true, resp["found"])
		assert.Equal(t, "Shipped", resp["status"])
		assert.Equal(t, float64(2), resp["eta_days"])
		assert.Equal(t, float64(3), resp["items"])
		assert.Equal(t, "AcmeExpress", resp["carrier"])
	})

	t.Run("Unknown order is a successful not-found payload", func(t *testing.T) {
		payload, err := tool.Execute(context.Background(), map[string]any{"order_id": "Z9999"})
		require.NoError(t, err)

		var resp map[string]any
		require.NoError(t, json.Unmarshal([]byte(payload), &resp))
		assert.Equal(t, false, resp["found"])
		assert.Equal(t, "Z9999", resp["order_id"])
	})
}

func TestResetPasswordTool(t *testing.T) {
	store := NewResetStore()
	tool := &ResetPasswordTool{Store: store}

	payload, err := tool.Execute(context.Background(), map[string]any{"email": "kim@example.com"})
	require.NoError(t, err)

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &resp))
	assert.Equal(t, "kim@example.com", resp["email"])
	assert.Len(t, resp["reset_token"], 12)
	// Same instructions whether or not the account exists
	assert.Equal(t, "Password reset link emailed if account exists.", resp["instructions"])

	pending, ok := store.Get("kim@example.com")
	require.True(t, ok)
	assert.Equal(t, "pending", pending.Status)
	assert.Equal(t, resp["reset_token"], pending.Token)
}
