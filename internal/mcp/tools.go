// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/tripstack/travel-mcp/internal/auth"
)

// Tool visibility classes. Public tools are registered for every caller;
// authenticated tools exist only in registries built for verified callers.
const (
	VisibilityPublic        = "public"
	VisibilityAuthenticated = "authenticated"
)

// Tool describes a callable tool: its name, description and declarative
// input schema.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	InputSchema InputSchema `json:"inputSchema"`
}

// InputSchema is the declarative argument schema advertised in tools/list
// and enforced before a handler runs.
type InputSchema struct {
	Type       string                     `json:"type"`
	Properties map[string]*SchemaProperty `json:"properties,omitempty"`
	Required   []string                   `json:"required,omitempty"`
}

// SchemaProperty describes one argument.
type SchemaProperty struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Format      string   `json:"format,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Minimum     *float64 `json:"minimum,omitempty"`
	Maximum     *float64 `json:"maximum,omitempty"`
}

// ObjectSchema builds an input schema from properties and required names.
func ObjectSchema(properties map[string]*SchemaProperty, required ...string) InputSchema {
	sort.Strings(required)
	return InputSchema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// StringProperty is a shorthand for a plain string argument.
func StringProperty(description string) *SchemaProperty {
	return &SchemaProperty{Type: "string", Description: description}
}

// DateProperty is a string argument carrying an ISO 8601 date.
func DateProperty(description string) *SchemaProperty {
	return &SchemaProperty{Type: "string", Format: "date", Description: description}
}

// EnumProperty is a string argument restricted to the given values.
func EnumProperty(description string, values ...string) *SchemaProperty {
	return &SchemaProperty{Type: "string", Description: description, Enum: values}
}

// IntProperty is a bounded integer argument.
func IntProperty(description string, minimum, maximum float64) *SchemaProperty {
	return &SchemaProperty{Type: "integer", Description: description, Minimum: &minimum, Maximum: &maximum}
}

// Validate checks arguments against the schema and returns a descriptive
// error listing every violation.
func (s InputSchema) Validate(arguments map[string]interface{}) error {
	schemaJSON, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to serialize schema: %w", err)
	}
	if arguments == nil {
		arguments = map[string]interface{}{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(arguments),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, violation := range result.Errors() {
		violations = append(violations, violation.String())
	}
	return fmt.Errorf("invalid arguments: %s", strings.Join(violations, "; "))
}

// ToolHandler executes a tool call. The caller context is passed explicitly
// so handlers (the whoami tool in particular) can observe the raw bearer
// token and the verifier's classification without any process-global state.
type ToolHandler func(ctx context.Context, req *CallToolRequest, caller *auth.Context) (*CallToolResult, error)

// CallToolRequest carries the parameters of a tools/call invocation.
type CallToolRequest struct {
	Params struct {
		Name      string                 `json:"name"`
		Arguments map[string]interface{} `json:"arguments,omitempty"`
	} `json:"params"`
}

// ListToolsResult is the tools/list response payload.
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}
