// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/tripstack/travel-mcp/internal/auth"
	"github.com/tripstack/travel-mcp/internal/log"
)

// ErrNotFound lets a resource handler report that the addressed entity does
// not exist (or must not be revealed); the dispatcher maps it to the same
// not-found envelope an unknown URI produces.
var ErrNotFound = errors.New("not found")

// Implementation identifies the server in initialize responses.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerCapabilities advertises the method families this server supports.
type ServerCapabilities struct {
	Tools     *ToolsCapability     `json:"tools,omitempty"`
	Resources *ResourcesCapability `json:"resources,omitempty"`
	Prompts   *PromptsCapability   `json:"prompts,omitempty"`
}

// ToolsCapability is the tools capability block.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ResourcesCapability is the resources capability block.
type ResourcesCapability struct {
	Subscribe   bool `json:"subscribe,omitempty"`
	ListChanged bool `json:"listChanged,omitempty"`
}

// PromptsCapability is the prompts capability block.
type PromptsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// InitializeResult is the initialize response payload.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
}

// Dispatcher routes JSON-RPC methods to the registry built for one caller.
//
// A dispatcher is bound to exactly one request's auth context and must not
// be shared across requests. Its lifecycle is constructed → connected (to a
// transport) → closed; Close is idempotent and is triggered when the HTTP
// response finishes.
type Dispatcher struct {
	registry   *Registry
	caller     *auth.Context
	serverInfo Implementation
	logger     log.Logger
	closed     atomic.Bool
}

// NewDispatcher creates a dispatcher for one request.
func NewDispatcher(registry *Registry, caller *auth.Context, serverInfo Implementation, logger log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.NewNop()
	}
	if caller == nil {
		caller = auth.Anonymous(auth.ReasonMissing)
	}
	return &Dispatcher{
		registry:   registry,
		caller:     caller,
		serverInfo: serverInfo,
		logger:     logger,
	}
}

// Caller returns the auth context this dispatcher is bound to.
func (d *Dispatcher) Caller() *auth.Context {
	return d.caller
}

// Close releases the dispatcher. Handlers observe cancellation through the
// request context; Close only flips the state so late calls are rejected.
func (d *Dispatcher) Close() {
	d.closed.Store(true)
}

type requestHandlerFunc func(ctx context.Context, req *JSONRPCRequest) JSONRPCMessage

// dispatchTable maps method names to handlers.
func (d *Dispatcher) dispatchTable() map[string]requestHandlerFunc {
	return map[string]requestHandlerFunc{
		MethodInitialize:    d.handleInitialize,
		MethodPing:          d.handlePing,
		MethodToolsList:     d.handleToolsList,
		MethodToolsCall:     d.handleToolsCall,
		MethodResourcesList: d.handleResourcesList,
		MethodResourcesRead: d.handleResourcesRead,
		MethodPromptsList:   d.handlePromptsList,
		MethodPromptsGet:    d.handlePromptsGet,
	}
}

// HandleRequest routes one request and always produces a response frame;
// known failure classes never escape as Go errors.
func (d *Dispatcher) HandleRequest(ctx context.Context, req *JSONRPCRequest) JSONRPCMessage {
	if d.closed.Load() {
		return NewJSONRPCError(req.ID, ErrCodeInternal, "dispatcher closed", nil)
	}
	if err := ctx.Err(); err != nil {
		return NewJSONRPCError(req.ID, ErrCodeInternal, "request cancelled", nil)
	}

	handler, ok := d.dispatchTable()[req.Method]
	if !ok {
		return NewJSONRPCError(req.ID, ErrCodeMethodNotFound, "method not found", nil)
	}
	return handler(ctx, req)
}

// HandleNotification acknowledges a notification. Per JSON-RPC semantics it
// produces no response frame.
func (d *Dispatcher) HandleNotification(ctx context.Context, notification *JSONRPCNotification) {
	switch notification.Method {
	case MethodNotificationsInitialized:
		d.logger.Debugf("client initialized (user=%s)", d.caller.UserID)
	default:
		// Unknown notifications are ignored.
	}
}

func (d *Dispatcher) handleInitialize(ctx context.Context, req *JSONRPCRequest) JSONRPCMessage {
	capabilities := ServerCapabilities{
		Tools: &ToolsCapability{},
	}
	if len(d.registry.resourcesOrder) > 0 || len(d.registry.templates) > 0 {
		capabilities.Resources = &ResourcesCapability{}
	}
	if len(d.registry.promptsOrder) > 0 {
		capabilities.Prompts = &PromptsCapability{}
	}

	return NewJSONRPCResponse(req.ID, &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    capabilities,
		ServerInfo:      d.serverInfo,
	})
}

func (d *Dispatcher) handlePing(ctx context.Context, req *JSONRPCRequest) JSONRPCMessage {
	return NewJSONRPCResponse(req.ID, map[string]interface{}{})
}

func (d *Dispatcher) handleToolsList(ctx context.Context, req *JSONRPCRequest) JSONRPCMessage {
	return NewJSONRPCResponse(req.ID, &ListToolsResult{Tools: d.registry.Tools()})
}

func (d *Dispatcher) handleToolsCall(ctx context.Context, req *JSONRPCRequest) JSONRPCMessage {
	var callReq CallToolRequest
	if err := parseParams(req.Params, &callReq.Params); err != nil {
		return NewJSONRPCError(req.ID, ErrCodeInvalidParams, "invalid params", err.Error())
	}
	if callReq.Params.Name == "" {
		return NewJSONRPCError(req.ID, ErrCodeInvalidParams, "missing tool name", nil)
	}

	// An unknown name and a protected name look identical from here: the
	// registry for an unverified caller simply does not contain protected
	// tools, so their existence is never revealed.
	registered, ok := d.registry.tool(callReq.Params.Name)
	if !ok {
		return NewJSONRPCError(req.ID, ErrCodeMethodNotFound,
			fmt.Sprintf("tool not found: %s", callReq.Params.Name), nil)
	}

	if err := registered.tool.InputSchema.Validate(callReq.Params.Arguments); err != nil {
		return NewJSONRPCError(req.ID, ErrCodeInvalidParams, err.Error(), nil)
	}

	result, err := registered.handler(ctx, &callReq, d.caller)
	if err != nil {
		d.logger.Errorf("tool %s failed: %v", callReq.Params.Name, err)
		return NewJSONRPCError(req.ID, ErrCodeInternal, "internal error", nil)
	}
	if result == nil {
		result = NewErrorResult("tool produced no result")
	}
	return NewJSONRPCResponse(req.ID, result)
}

func (d *Dispatcher) handleResourcesList(ctx context.Context, req *JSONRPCRequest) JSONRPCMessage {
	return NewJSONRPCResponse(req.ID, &ListResourcesResult{Resources: d.registry.Resources()})
}

func (d *Dispatcher) handleResourcesRead(ctx context.Context, req *JSONRPCRequest) JSONRPCMessage {
	var readReq ReadResourceRequest
	if err := parseParams(req.Params, &readReq.Params); err != nil {
		return NewJSONRPCError(req.ID, ErrCodeInvalidParams, "invalid params", err.Error())
	}
	if readReq.Params.URI == "" {
		return NewJSONRPCError(req.ID, ErrCodeInvalidParams, "missing resource uri", nil)
	}

	if registered, ok := d.registry.resource(readReq.Params.URI); ok {
		contents, err := registered.handler(ctx, &readReq, d.caller)
		return d.resourceResponse(req, readReq.Params.URI, contents, err)
	}

	if registered, params, ok := d.registry.matchTemplate(readReq.Params.URI); ok {
		contents, err := registered.handler(ctx, &readReq, d.caller, params)
		return d.resourceResponse(req, readReq.Params.URI, contents, err)
	}

	return NewJSONRPCError(req.ID, ErrCodeMethodNotFound,
		fmt.Sprintf("resource not found: %s", readReq.Params.URI), nil)
}

func (d *Dispatcher) resourceResponse(req *JSONRPCRequest, uri string, contents ResourceContents, err error) JSONRPCMessage {
	if errors.Is(err, ErrNotFound) {
		return NewJSONRPCError(req.ID, ErrCodeMethodNotFound,
			fmt.Sprintf("resource not found: %s", uri), nil)
	}
	if err != nil {
		d.logger.Errorf("resource %s failed: %v", uri, err)
		return NewJSONRPCError(req.ID, ErrCodeInternal, "internal error", nil)
	}
	return NewJSONRPCResponse(req.ID, &ReadResourceResult{Contents: []ResourceContents{contents}})
}

func (d *Dispatcher) handlePromptsList(ctx context.Context, req *JSONRPCRequest) JSONRPCMessage {
	return NewJSONRPCResponse(req.ID, &ListPromptsResult{Prompts: d.registry.Prompts()})
}

func (d *Dispatcher) handlePromptsGet(ctx context.Context, req *JSONRPCRequest) JSONRPCMessage {
	var getReq GetPromptRequest
	if err := parseParams(req.Params, &getReq.Params); err != nil {
		return NewJSONRPCError(req.ID, ErrCodeInvalidParams, "invalid params", err.Error())
	}
	if getReq.Params.Name == "" {
		return NewJSONRPCError(req.ID, ErrCodeInvalidParams, "missing prompt name", nil)
	}

	registered, ok := d.registry.prompt(getReq.Params.Name)
	if !ok {
		return NewJSONRPCError(req.ID, ErrCodeMethodNotFound,
			fmt.Sprintf("prompt not found: %s", getReq.Params.Name), nil)
	}

	result, err := registered.handler(ctx, &getReq, d.caller)
	if err != nil {
		// Prompt rendering failures are caller errors (missing required
		// arguments), not internal faults.
		return NewJSONRPCError(req.ID, ErrCodeInvalidParams, err.Error(), nil)
	}
	return NewJSONRPCResponse(req.ID, result)
}
