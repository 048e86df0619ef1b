// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

package mcp

import (
	"encoding/json"
	"fmt"
)

// Content part types.
const (
	ContentTypeText  = "text"
	ContentTypeImage = "image"
)

// Content represents one part of a tool result or prompt message.
type Content interface {
	isContent()
}

// TextContent is a text part.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (TextContent) isContent() {}

// ImageContent is a base64-encoded image part.
type ImageContent struct {
	Type     string `json:"type"`
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

func (ImageContent) isContent() {}

// NewTextContent creates a text content part.
func NewTextContent(text string) TextContent {
	return TextContent{Type: ContentTypeText, Text: text}
}

// NewImageContent creates an image content part from base64 data.
func NewImageContent(data, mimeType string) ImageContent {
	return ImageContent{Type: ContentTypeImage, Data: data, MimeType: mimeType}
}

// parseContent rebuilds a concrete Content value from a decoded JSON map.
func parseContent(m map[string]interface{}) (Content, error) {
	contentType, _ := m["type"].(string)
	switch contentType {
	case ContentTypeText:
		text, _ := m["text"].(string)
		return NewTextContent(text), nil
	case ContentTypeImage:
		data, _ := m["data"].(string)
		mimeType, _ := m["mimeType"].(string)
		return NewImageContent(data, mimeType), nil
	default:
		return nil, fmt.Errorf("unsupported content type: %q", contentType)
	}
}

// CallToolResult is what a tool handler returns. Business failures travel
// here with IsError set, not as JSON-RPC errors, so the model keeps its
// normal response channel.
type CallToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// UnmarshalJSON rebuilds the polymorphic Content slice.
func (r *CallToolResult) UnmarshalJSON(data []byte) error {
	var temp struct {
		Content []json.RawMessage `json:"content"`
		IsError bool              `json:"isError"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	r.IsError = temp.IsError
	r.Content = make([]Content, 0, len(temp.Content))
	for _, raw := range temp.Content {
		var m map[string]interface{}
		if err := json.Unmarshal(raw, &m); err != nil {
			return err
		}
		content, err := parseContent(m)
		if err != nil {
			return err
		}
		r.Content = append(r.Content, content)
	}
	return nil
}

// NewTextResult creates a successful single-text result.
func NewTextResult(text string) *CallToolResult {
	return &CallToolResult{Content: []Content{NewTextContent(text)}}
}

// NewJSONResult marshals v and wraps it as a single text part.
func NewJSONResult(v interface{}) *CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return NewErrorResult(fmt.Sprintf("failed to serialize result: %v", err))
	}
	return NewTextResult(string(data))
}

// NewErrorResult creates a business-failure result.
func NewErrorResult(text string) *CallToolResult {
	return &CallToolResult{
		Content: []Content{NewTextContent(text)},
		IsError: true,
	}
}
