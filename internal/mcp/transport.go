// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

package mcp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/tripstack/travel-mcp/internal/log"
)

// Transport converts dispatcher output into one HTTP response: either a
// single JSON body or an SSE stream on the same POST. It is created per
// request and closed when the response finishes; there is no session id and
// no resumability.
type Transport struct {
	w       http.ResponseWriter
	flusher http.Flusher
	sse     bool
	batch   bool
	logger  log.Logger

	mu      sync.Mutex
	pending []JSONRPCMessage
	started bool
	closed  bool
}

// NewTransport builds the response transport for one request. SSE is
// selected when the client advertises Accept: text/event-stream and the
// connection supports flushing; otherwise replies are buffered into a
// single application/json body.
func NewTransport(w http.ResponseWriter, r *http.Request, batch bool, logger log.Logger) *Transport {
	if logger == nil {
		logger = log.NewNop()
	}
	flusher, canFlush := w.(http.Flusher)

	return &Transport{
		w:       w,
		flusher: flusher,
		sse:     canFlush && acceptsSSE(r),
		batch:   batch,
		logger:  logger,
	}
}

func acceptsSSE(r *http.Request) bool {
	for _, accept := range r.Header.Values("Accept") {
		if strings.Contains(accept, "text/event-stream") {
			return true
		}
	}
	return false
}

// SSE reports whether the transport is streaming.
func (t *Transport) SSE() bool {
	return t.sse
}

// Send emits one response or notification frame. In SSE mode the frame is
// written and flushed immediately, in emission order; in JSON mode it is
// buffered until Close.
func (t *Transport) Send(msg JSONRPCMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return fmt.Errorf("transport closed")
	}
	if !t.sse {
		t.pending = append(t.pending, msg)
		return nil
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	if !t.started {
		t.w.Header().Set("Content-Type", "text/event-stream")
		t.w.Header().Set("Cache-Control", "no-cache")
		t.w.Header().Set("Connection", "keep-alive")
		t.w.WriteHeader(http.StatusOK)
		t.started = true
	}

	if _, err := fmt.Fprint(t.w, formatSSEEvent(data)); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	t.flusher.Flush()
	return nil
}

// Close ends the response. In JSON mode the buffered frames are written as
// a single object (or array, for batch requests); when every frame of the
// request was a notification the reply is 202 Accepted with no body.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	if t.sse {
		if !t.started {
			t.w.Header().Set("Content-Type", "text/event-stream")
			t.w.Header().Set("Cache-Control", "no-cache")
			t.w.WriteHeader(http.StatusOK)
		}
		return nil
	}

	if len(t.pending) == 0 {
		t.w.WriteHeader(http.StatusAccepted)
		return nil
	}

	var body interface{}
	if t.batch {
		body = t.pending
	} else {
		body = t.pending[0]
	}

	t.w.Header().Set("Content-Type", "application/json")
	t.w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(t.w).Encode(body); err != nil {
		return fmt.Errorf("failed to encode response body: %w", err)
	}
	return nil
}

// formatSSEEvent frames one event. Events are unnamed; multi-line payloads
// are folded into repeated data: lines per the SSE grammar.
func formatSSEEvent(data []byte) string {
	var builder strings.Builder
	builder.WriteString("data: ")
	builder.WriteString(strings.ReplaceAll(string(data), "\n", "\ndata: "))
	builder.WriteString("\n\n")
	return builder.String()
}
