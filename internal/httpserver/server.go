// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

// Package httpserver is the HTTP front door: CORS, body limits, the health
// endpoint, the auth preflight with its public-method policy, and the
// per-request assembly of registry, dispatcher and transport.
package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/tripstack/travel-mcp/internal/auth"
	"github.com/tripstack/travel-mcp/internal/config"
	"github.com/tripstack/travel-mcp/internal/log"
	"github.com/tripstack/travel-mcp/internal/mcp"
	"github.com/tripstack/travel-mcp/internal/version"
)

const (
	mcpPath    = "/mcp"
	healthPath = "/health"

	// maxBodyBytes rejects oversize request bodies before parsing.
	maxBodyBytes = 1 << 20
)

// Options wires a Server.
type Options struct {
	Config        *config.Config
	Logger        log.Logger
	Verifier      *auth.Verifier
	BuildRegistry func(*auth.Context) *mcp.Registry
	PublicTools   map[string]bool
	ServerInfo    mcp.Implementation
}

// Server is the stateless HTTP service. All request-scoped state lives on
// the stack of one ServeHTTP call; the server itself only holds the
// process-lived collaborators.
type Server struct {
	cfg           *config.Config
	logger        log.Logger
	verifier      *auth.Verifier
	buildRegistry func(*auth.Context) *mcp.Registry
	publicTools   map[string]bool
	serverInfo    mcp.Implementation
	startedAt     time.Time
}

// New creates the server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Server{
		cfg:           opts.Config,
		logger:        logger,
		verifier:      opts.Verifier,
		buildRegistry: opts.BuildRegistry,
		publicTools:   opts.PublicTools,
		serverInfo:    opts.ServerInfo,
		startedAt:     time.Now(),
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(healthPath, s.handleHealth)
	mux.HandleFunc(mcpPath, s.withRecovery(s.handleMCP))
	return mux
}

// ListenAndServe starts the server on the configured port.
func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// No WriteTimeout: SSE responses stay open as long as the
		// dispatcher is emitting; the load balancer owns request deadlines.
	}
	s.logger.Infof("listening on %s", srv.Addr)
	return srv.ListenAndServe()
}

// withRecovery turns an escaped panic into the generic 500 envelope.
func (s *Server) withRecovery(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Errorf("panic serving %s: %v\n%s", r.URL.Path, rec, debug.Stack())
				writeJSON(w, http.StatusInternalServerError,
					mcp.NewJSONRPCError(nil, mcp.ErrCodeInternal, "internal-server-error", nil))
			}
		}()
		next(w, r)
	}
}

// setCORSHeaders applies the permissive CORS policy: any origin, the
// standard verb list, and the two headers clients actually send.
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, PUT, PATCH")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

// handleHealth reports process metadata. It bypasses auth entirely.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	info := version.Get(s.serverInfo.Name)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"name":          info.Name,
		"version":       info.Version,
		"gitCommit":     info.GitCommit,
		"buildDate":     info.BuildDate,
		"goVersion":     info.GoVersion,
		"uptimeSeconds": int64(time.Since(s.startedAt).Seconds()),
	})
}

// handleMCP runs the whole per-request pipeline.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
		// The only productive verb.
	default:
		// Stateless server: no GET stream to resume, no DELETE session to end.
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed,
			mcp.NewJSONRPCError(nil, mcp.ErrCodeInvalidRequest,
				"method not allowed: stateless endpoint accepts POST only", nil))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge,
				mcp.NewJSONRPCError(nil, mcp.ErrCodeInvalidRequest, "request body too large", nil))
			return
		}
		writeJSON(w, http.StatusBadRequest,
			mcp.NewJSONRPCError(nil, mcp.ErrCodeInvalidRequest, "failed to read request body", nil))
		return
	}

	envelopes, batch, err := mcp.ParseEnvelopes(body)
	if err != nil {
		// Protocol errors ride HTTP 200; only transport-level failures
		// change the status code.
		writeJSON(w, http.StatusOK,
			mcp.NewJSONRPCError(nil, mcp.ErrCodeParse, "parse error", err.Error()))
		return
	}

	caller := s.verifier.Verify(r.Context(), r.Header.Get("Authorization"))

	if denied, id := s.preflight(envelopes, caller); denied {
		code := auth.WireCode(caller.Reason)
		writeJSON(w, http.StatusUnauthorized,
			mcp.NewJSONRPCError(id, mcp.ErrCodeUnauthorized, auth.WireMessage(code),
				map[string]interface{}{"reason": code}))
		return
	}

	registry := s.buildRegistry(caller)
	dispatcher := mcp.NewDispatcher(registry, caller, s.serverInfo, s.logger)
	defer dispatcher.Close()

	transport := mcp.NewTransport(w, r, batch, s.logger)
	defer func() {
		if err := transport.Close(); err != nil {
			s.logger.Debugf("transport close: %v", err)
		}
	}()

	ctx := r.Context()
	for _, envelope := range envelopes {
		// A disconnected client cancels the request context; stop emitting.
		if ctx.Err() != nil {
			s.logger.Debugf("client disconnected, aborting request processing")
			return
		}

		switch {
		case envelope.Malformed != nil:
			s.send(transport, envelope.Malformed)
		case envelope.Notification != nil:
			dispatcher.HandleNotification(ctx, envelope.Notification)
		case envelope.Request != nil:
			s.send(transport, dispatcher.HandleRequest(ctx, envelope.Request))
		}
	}
}

func (s *Server) send(transport *mcp.Transport, msg mcp.JSONRPCMessage) {
	if err := transport.Send(msg); err != nil {
		s.logger.Debugf("failed to send frame: %v", err)
	}
}

// preflight applies the public-access policy before any dispatch happens.
//
// Public membership is computed over the (method, tool-name) pair: tools/call
// is public exactly when the named tool is public. Public frames tolerate
// any token state and run with an anonymous context.
//
// For everything else, a verified caller passes. An unverified caller whose
// token was a real signed JWT that failed verification (expired, bad
// signature, wrong issuer or audience) is rejected outright. Callers with
// no usable token — absent, malformed or deliberately unsigned — are
// rejected for non-tool methods, but tools/call frames are let through so
// the registry can answer tool-not-found without confirming that a
// protected tool of that name exists.
func (s *Server) preflight(envelopes []mcp.Envelope, caller *auth.Context) (denied bool, id interface{}) {
	if caller.Verified {
		return false, nil
	}
	for _, envelope := range envelopes {
		if envelope.Malformed != nil {
			continue
		}
		method := envelope.Method()
		if s.isPublic(method, envelope.ToolName()) {
			continue
		}
		if method == mcp.MethodToolsCall && !caller.Signed {
			continue
		}
		if envelope.Request != nil {
			return true, envelope.Request.ID
		}
		return true, nil
	}
	return false, nil
}

// isPublic implements the public-method set.
func (s *Server) isPublic(method, toolName string) bool {
	switch method {
	case mcp.MethodInitialize, mcp.MethodPing, mcp.MethodNotificationsInitialized, mcp.MethodToolsList:
		return true
	case mcp.MethodToolsCall:
		return s.publicTools[toolName]
	default:
		return false
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
