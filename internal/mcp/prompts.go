// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

package mcp

import (
	"context"

	"github.com/tripstack/travel-mcp/internal/auth"
)

// Prompt describes a prompt template exposed through prompts/list.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// PromptArgument describes one parameter a prompt accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// PromptMessage is one rendered message of a prompt expansion.
type PromptMessage struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

// PromptHandler renders a prompt for the given caller.
type PromptHandler func(ctx context.Context, req *GetPromptRequest, caller *auth.Context) (*GetPromptResult, error)

// GetPromptRequest carries the parameters of a prompts/get call.
type GetPromptRequest struct {
	Params struct {
		Name      string            `json:"name"`
		Arguments map[string]string `json:"arguments,omitempty"`
	} `json:"params"`
}

// GetPromptResult is the prompts/get response payload.
type GetPromptResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// ListPromptsResult is the prompts/list response payload.
type ListPromptsResult struct {
	Prompts []Prompt `json:"prompts"`
}
