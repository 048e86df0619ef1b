// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

// Package tools defines the server's tool surface and builds the
// per-request registry from the caller's verification state.
package tools

import (
	"context"

	"github.com/tripstack/travel-mcp/internal/auth"
	"github.com/tripstack/travel-mcp/internal/mcp"
)

// WhoamiToolName is the canonical identity/debugging tool. It is the only
// public tool: invocable by every caller, with or without a token.
const WhoamiToolName = "whoami"

// whoamiResult is the JSON payload returned as the tool's text content.
type whoamiResult struct {
	Authenticated bool            `json:"authenticated"`
	UserInfo      whoamiUserInfo  `json:"userInfo"`
	TokenInfo     whoamiTokenInfo `json:"tokenInfo"`
}

type whoamiUserInfo struct {
	UserID     string   `json:"userId"`
	TenantID   string   `json:"tenantId"`
	TenantTier string   `json:"tenantTier"`
	Email      string   `json:"email,omitempty"`
	Username   string   `json:"username,omitempty"`
	Groups     []string `json:"groups,omitempty"`
}

type whoamiTokenInfo struct {
	Present    bool   `json:"present"`
	IsUnsigned bool   `json:"isUnsigned"`
	Reason     string `json:"reason"`
	ExpiresAt  *int64 `json:"expiresAt,omitempty"`
	IssuedAt   *int64 `json:"issuedAt,omitempty"`
}

func whoamiTool() *mcp.Tool {
	return &mcp.Tool{
		Name: WhoamiToolName,
		Description: "Report the caller's identity as the server sees it: decoded claims, " +
			"tenant assignment, and whether the presented token is trusted. Works without " +
			"a token and with unsigned tokens; useful for debugging authentication.",
		InputSchema: mcp.ObjectSchema(nil),
	}
}

// whoamiHandler reports both the claims and the trust decision. The raw
// token and the verifier's classification arrive on the caller context the
// dispatcher passes to every handler; nothing here reads global state.
func whoamiHandler(ctx context.Context, req *mcp.CallToolRequest, caller *auth.Context) (*mcp.CallToolResult, error) {
	result := whoamiResult{
		Authenticated: caller.Verified,
		UserInfo: whoamiUserInfo{
			UserID:     caller.UserID,
			TenantID:   caller.TenantID,
			TenantTier: caller.TenantTier,
			Email:      caller.Email(),
			Username:   caller.Username(),
			Groups:     caller.Groups(),
		},
		TokenInfo: whoamiTokenInfo{
			Present:    caller.Token != "",
			IsUnsigned: caller.Unsigned,
			Reason:     caller.Reason,
			ExpiresAt:  numericClaim(caller, "exp"),
			IssuedAt:   numericClaim(caller, "iat"),
		},
	}
	return mcp.NewJSONResult(result), nil
}

// numericClaim reads a numeric claim as unix seconds.
func numericClaim(caller *auth.Context, name string) *int64 {
	if caller.Claims == nil {
		return nil
	}
	if f, ok := caller.Claims[name].(float64); ok {
		v := int64(f)
		return &v
	}
	return nil
}
