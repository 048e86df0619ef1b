// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

package mcp

import (
	"context"

	"github.com/yosida95/uritemplate/v3"

	"github.com/tripstack/travel-mcp/internal/auth"
)

// Resource describes a readable resource. URIs are opaque strings with a
// scheme; their interpretation belongs to the handler.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ResourceTemplate describes a family of resources addressed through a URI
// template such as travelpolicy://{tenantId}/policy.
type ResourceTemplate struct {
	Name        string                `json:"name"`
	URITemplate *uritemplate.Template `json:"uriTemplate"`
	Description string                `json:"description,omitempty"`
	MimeType    string                `json:"mimeType,omitempty"`
}

// ResourceContents is the polymorphic payload of a resources/read response.
type ResourceContents interface {
	isResourceContents()
}

// TextResourceContents carries textual resource data.
type TextResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text"`
}

func (TextResourceContents) isResourceContents() {}

// BlobResourceContents carries base64-encoded binary resource data.
type BlobResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Blob     string `json:"blob"`
}

func (BlobResourceContents) isResourceContents() {}

// ResourceHandler reads a resource for the given caller.
type ResourceHandler func(ctx context.Context, req *ReadResourceRequest, caller *auth.Context) (ResourceContents, error)

// ResourceTemplateHandler reads a template-addressed resource; params holds
// the variables extracted from the matched URI.
type ResourceTemplateHandler func(ctx context.Context, req *ReadResourceRequest, caller *auth.Context, params map[string]string) (ResourceContents, error)

// ReadResourceRequest carries the parameters of a resources/read call.
type ReadResourceRequest struct {
	Params struct {
		URI string `json:"uri"`
	} `json:"params"`
}

// ListResourcesResult is the resources/list response payload.
type ListResourcesResult struct {
	Resources []Resource `json:"resources"`
}

// ReadResourceResult is the resources/read response payload.
type ReadResourceResult struct {
	Contents []ResourceContents `json:"contents"`
}
