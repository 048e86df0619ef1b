// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripstack/travel-mcp/internal/auth"
	"github.com/tripstack/travel-mcp/internal/mcp"
)

func callRequest(name string, arguments map[string]interface{}) *mcp.CallToolRequest {
	req := &mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = arguments
	return req
}

func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))
	return payload
}

func TestFindFlights(t *testing.T) {
	deps := newTestDeps()
	caller := verifiedCaller()

	t.Run("route with matches", func(t *testing.T) {
		result, err := deps.findFlights(context.Background(), callRequest(FindFlightsToolName,
			map[string]interface{}{"origin": "SEA", "destination": "JFK", "date": "2026-09-01"}), caller)
		require.NoError(t, err)
		require.False(t, result.IsError)

		payload := decodeResult(t, result)
		flights := payload["flights"].([]interface{})
		assert.Len(t, flights, 2)
	})

	t.Run("price ceiling filters", func(t *testing.T) {
		result, err := deps.findFlights(context.Background(), callRequest(FindFlightsToolName,
			map[string]interface{}{"origin": "SEA", "destination": "JFK", "date": "2026-09-01", "maxPrice": float64(400)}), caller)
		require.NoError(t, err)

		payload := decodeResult(t, result)
		flights := payload["flights"].([]interface{})
		require.Len(t, flights, 1)
	})

	t.Run("no matches is a business failure", func(t *testing.T) {
		result, err := deps.findFlights(context.Background(), callRequest(FindFlightsToolName,
			map[string]interface{}{"origin": "SEA", "destination": "CDG", "date": "2026-09-01"}), caller)
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

func TestFindHotels(t *testing.T) {
	deps := newTestDeps()
	caller := verifiedCaller()

	result, err := deps.findHotels(context.Background(), callRequest(FindHotelsToolName,
		map[string]interface{}{"city": "seattle", "checkIn": "2026-09-01", "checkOut": "2026-09-03"}), caller)
	require.NoError(t, err)
	require.False(t, result.IsError)

	payload := decodeResult(t, result)
	hotels := payload["hotels"].([]interface{})
	assert.Len(t, hotels, 3, "city match is case-insensitive")
}

func TestBookHotel(t *testing.T) {
	deps := newTestDeps()
	caller := verifiedCaller()

	t.Run("books a known hotel", func(t *testing.T) {
		result, err := deps.bookHotel(context.Background(), callRequest(BookHotelToolName, map[string]interface{}{
			"hotelId":   "HTL-SEA-001",
			"checkIn":   "2026-09-01",
			"checkOut":  "2026-09-03",
			"guestName": "Ada Lovelace",
		}), caller)
		require.NoError(t, err)
		require.False(t, result.IsError)

		payload := decodeResult(t, result)
		assert.NotEmpty(t, payload["confirmationId"])
		assert.Equal(t, "confirmed", payload["status"])
	})

	t.Run("unknown hotel is a business failure", func(t *testing.T) {
		result, err := deps.bookHotel(context.Background(), callRequest(BookHotelToolName, map[string]interface{}{
			"hotelId":   "HTL-NOPE",
			"checkIn":   "2026-09-01",
			"checkOut":  "2026-09-03",
			"guestName": "Ada Lovelace",
		}), caller)
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

func TestListBookings_RequiresTenant(t *testing.T) {
	deps := newTestDeps()
	caller := &auth.Context{UserID: "user-1", Verified: true} // no tenant claim

	_, err := deps.listBookings(context.Background(), callRequest(ListBookingsToolName, nil), caller)
	// Credential vending refuses an empty tenant; the dispatcher turns this
	// into -32603 and never retries with a different tenant.
	require.Error(t, err)
}

func TestLoyaltyStatus(t *testing.T) {
	deps := newTestDeps()

	t.Run("known tier", func(t *testing.T) {
		caller := verifiedCaller()
		caller.TenantTier = "gold"
		result, err := deps.loyaltyStatus(context.Background(), callRequest(LoyaltyStatusToolName, nil), caller)
		require.NoError(t, err)

		payload := decodeResult(t, result)
		assert.Equal(t, "gold", payload["tier"])
		assert.Contains(t, payload["benefits"], "room upgrades")
	})

	t.Run("unknown tier falls back to basic", func(t *testing.T) {
		caller := verifiedCaller()
		caller.TenantTier = "diamond"
		result, err := deps.loyaltyStatus(context.Background(), callRequest(LoyaltyStatusToolName, nil), caller)
		require.NoError(t, err)

		payload := decodeResult(t, result)
		assert.Equal(t, []interface{}{"standard support"}, payload["benefits"])
	})
}

func TestPromptFallbackTools(t *testing.T) {
	deps := newTestDeps()
	caller := verifiedCaller()

	t.Run("list_prompts mirrors the catalog", func(t *testing.T) {
		result, err := deps.listPrompts(context.Background(), callRequest(ListPromptsToolName, nil), caller)
		require.NoError(t, err)

		payload := decodeResult(t, result)
		prompts := payload["prompts"].([]interface{})
		assert.Len(t, prompts, len(deps.Catalog))
	})

	t.Run("get_prompt renders", func(t *testing.T) {
		result, err := deps.getPrompt(context.Background(), callRequest(GetPromptToolName, map[string]interface{}{
			"name": "plan_trip",
			"arguments": map[string]interface{}{
				"destination": "Tokyo",
				"start_date":  "2026-09-01",
				"end_date":    "2026-09-05",
			},
		}), caller)
		require.NoError(t, err)
		require.False(t, result.IsError)

		payload := decodeResult(t, result)
		messages := payload["messages"].([]interface{})
		require.Len(t, messages, 1)
	})

	t.Run("get_prompt unknown name", func(t *testing.T) {
		result, err := deps.getPrompt(context.Background(), callRequest(GetPromptToolName,
			map[string]interface{}{"name": "nope"}), caller)
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})

	t.Run("get_prompt missing required arguments", func(t *testing.T) {
		result, err := deps.getPrompt(context.Background(), callRequest(GetPromptToolName,
			map[string]interface{}{"name": "plan_trip"}), caller)
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}
