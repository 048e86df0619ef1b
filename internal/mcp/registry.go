// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

package mcp

import (
	"fmt"
)

// Registry holds the tools, resources and prompts visible to one caller.
//
// A registry is constructed per request from the caller's verification
// state and is read-only afterwards, so it needs no locking. Protected
// entries are simply never registered for unverified callers, which is what
// makes tools/list and tools/call agree by construction: both consult the
// same set.
type Registry struct {
	tools      map[string]*registeredTool
	toolsOrder []string

	resources      map[string]*registeredResource
	resourcesOrder []string
	templates      []*registeredTemplate

	prompts      map[string]*registeredPrompt
	promptsOrder []string
}

type registeredTool struct {
	tool       *Tool
	visibility string
	handler    ToolHandler
}

type registeredResource struct {
	resource *Resource
	handler  ResourceHandler
}

type registeredTemplate struct {
	template *ResourceTemplate
	handler  ResourceTemplateHandler
}

type registeredPrompt struct {
	prompt  *Prompt
	handler PromptHandler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:     make(map[string]*registeredTool),
		resources: make(map[string]*registeredResource),
		prompts:   make(map[string]*registeredPrompt),
	}
}

// RegisterTool adds a tool. Names must be unique within the registry.
func (r *Registry) RegisterTool(tool *Tool, visibility string, handler ToolHandler) error {
	if tool == nil || tool.Name == "" {
		return fmt.Errorf("tool requires a name")
	}
	if handler == nil {
		return fmt.Errorf("tool %s requires a handler", tool.Name)
	}
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool %s already registered", tool.Name)
	}
	r.tools[tool.Name] = &registeredTool{tool: tool, visibility: visibility, handler: handler}
	r.toolsOrder = append(r.toolsOrder, tool.Name)
	return nil
}

// RegisterResource adds a resource keyed by URI.
func (r *Registry) RegisterResource(resource *Resource, handler ResourceHandler) error {
	if resource == nil || resource.URI == "" {
		return fmt.Errorf("resource requires a URI")
	}
	if handler == nil {
		return fmt.Errorf("resource %s requires a handler", resource.URI)
	}
	if _, exists := r.resources[resource.URI]; exists {
		return fmt.Errorf("resource %s already registered", resource.URI)
	}
	r.resources[resource.URI] = &registeredResource{resource: resource, handler: handler}
	r.resourcesOrder = append(r.resourcesOrder, resource.URI)
	return nil
}

// RegisterResourceTemplate adds a template-addressed resource family.
func (r *Registry) RegisterResourceTemplate(template *ResourceTemplate, handler ResourceTemplateHandler) error {
	if template == nil || template.URITemplate == nil {
		return fmt.Errorf("resource template requires a URI template")
	}
	if handler == nil {
		return fmt.Errorf("resource template %s requires a handler", template.Name)
	}
	r.templates = append(r.templates, &registeredTemplate{template: template, handler: handler})
	return nil
}

// RegisterPrompt adds a prompt.
func (r *Registry) RegisterPrompt(prompt *Prompt, handler PromptHandler) error {
	if prompt == nil || prompt.Name == "" {
		return fmt.Errorf("prompt requires a name")
	}
	if handler == nil {
		return fmt.Errorf("prompt %s requires a handler", prompt.Name)
	}
	if _, exists := r.prompts[prompt.Name]; exists {
		return fmt.Errorf("prompt %s already registered", prompt.Name)
	}
	r.prompts[prompt.Name] = &registeredPrompt{prompt: prompt, handler: handler}
	r.promptsOrder = append(r.promptsOrder, prompt.Name)
	return nil
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []Tool {
	tools := make([]Tool, 0, len(r.toolsOrder))
	for _, name := range r.toolsOrder {
		tools = append(tools, *r.tools[name].tool)
	}
	return tools
}

// tool looks up a registered tool by name.
func (r *Registry) tool(name string) (*registeredTool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Resources returns the registered resources in registration order.
func (r *Registry) Resources() []Resource {
	resources := make([]Resource, 0, len(r.resourcesOrder))
	for _, uri := range r.resourcesOrder {
		resources = append(resources, *r.resources[uri].resource)
	}
	return resources
}

// resource looks up a registered resource by exact URI.
func (r *Registry) resource(uri string) (*registeredResource, bool) {
	res, ok := r.resources[uri]
	return res, ok
}

// matchTemplate tries the registered templates against a URI and returns
// the first match with its extracted variables.
func (r *Registry) matchTemplate(uri string) (*registeredTemplate, map[string]string, bool) {
	for _, t := range r.templates {
		values := t.template.URITemplate.Match(uri)
		if len(values) == 0 {
			continue
		}
		params := make(map[string]string, len(values))
		for name, value := range values {
			params[name] = value.String()
		}
		return t, params, true
	}
	return nil, nil, false
}

// Prompts returns the registered prompts in registration order.
func (r *Registry) Prompts() []Prompt {
	prompts := make([]Prompt, 0, len(r.promptsOrder))
	for _, name := range r.promptsOrder {
		prompts = append(prompts, *r.prompts[name].prompt)
	}
	return prompts
}

// prompt looks up a registered prompt by name.
func (r *Registry) prompt(name string) (*registeredPrompt, bool) {
	p, ok := r.prompts[name]
	return p, ok
}
