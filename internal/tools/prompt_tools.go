// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

package tools

import (
	"context"
	"fmt"

	"github.com/tripstack/travel-mcp/internal/auth"
	"github.com/tripstack/travel-mcp/internal/mcp"
	"github.com/tripstack/travel-mcp/internal/prompts"
)

// Fallback tool names for clients that do not speak prompts/list and
// prompts/get. Both return exactly the payloads the prompt methods return.
const (
	ListPromptsToolName = "list_prompts"
	GetPromptToolName   = "get_prompt"
)

// promptDescriptor converts a catalog template into its MCP descriptor.
func promptDescriptor(t *prompts.Template) *mcp.Prompt {
	arguments := make([]mcp.PromptArgument, 0, len(t.Arguments))
	for _, arg := range t.Arguments {
		arguments = append(arguments, mcp.PromptArgument{
			Name:        arg.Name,
			Description: arg.Description,
			Required:    arg.Required,
		})
	}
	return &mcp.Prompt{
		Name:        t.Name,
		Description: t.Description,
		Arguments:   arguments,
	}
}

// renderPrompt expands a template into the prompts/get result shape.
func renderPrompt(t *prompts.Template, arguments map[string]string) (*mcp.GetPromptResult, error) {
	text, err := t.Render(arguments)
	if err != nil {
		return nil, err
	}
	return &mcp.GetPromptResult{
		Description: t.Description,
		Messages: []mcp.PromptMessage{
			{Role: "user", Content: mcp.NewTextContent(text)},
		},
	}, nil
}

// newPromptHandler binds one catalog template to the prompts/get method.
func newPromptHandler(t *prompts.Template) mcp.PromptHandler {
	return func(ctx context.Context, req *mcp.GetPromptRequest, caller *auth.Context) (*mcp.GetPromptResult, error) {
		return renderPrompt(t, req.Params.Arguments)
	}
}

func listPromptsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        ListPromptsToolName,
		Description: "List available prompt templates (fallback for clients without prompts support).",
		InputSchema: mcp.ObjectSchema(nil),
	}
}

func (d *Deps) listPrompts(ctx context.Context, req *mcp.CallToolRequest, caller *auth.Context) (*mcp.CallToolResult, error) {
	descriptors := make([]mcp.Prompt, 0, len(d.Catalog))
	for _, t := range d.Catalog {
		descriptors = append(descriptors, *promptDescriptor(t))
	}
	return mcp.NewJSONResult(mcp.ListPromptsResult{Prompts: descriptors}), nil
}

func getPromptTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        GetPromptToolName,
		Description: "Render a prompt template (fallback for clients without prompts support).",
		InputSchema: mcp.ObjectSchema(map[string]*mcp.SchemaProperty{
			"name":      mcp.StringProperty("Prompt template name"),
			"arguments": {Type: "object", Description: "Template arguments as string values"},
		}, "name"),
	}
}

func (d *Deps) getPrompt(ctx context.Context, req *mcp.CallToolRequest, caller *auth.Context) (*mcp.CallToolResult, error) {
	name, _ := req.Params.Arguments["name"].(string)
	template, ok := prompts.Find(d.Catalog, name)
	if !ok {
		return mcp.NewErrorResult(fmt.Sprintf("unknown prompt: %s", name)), nil
	}

	arguments := make(map[string]string)
	if raw, ok := req.Params.Arguments["arguments"].(map[string]interface{}); ok {
		for k, v := range raw {
			if s, ok := v.(string); ok {
				arguments[k] = s
			}
		}
	}

	result, err := renderPrompt(template, arguments)
	if err != nil {
		return mcp.NewErrorResult(err.Error()), nil
	}
	return mcp.NewJSONResult(result), nil
}
