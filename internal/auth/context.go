// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

// Package auth implements the authentication plane: bearer token
// extraction, JWT classification and verification against a remote JWKS,
// and the per-request caller context handed to tool handlers.
package auth

// AnonymousUserID is the user id assigned when no valid subject is known.
const AnonymousUserID = "anonymous"

// DefaultTenantTier is assumed when the token carries no tier claim.
const DefaultTenantTier = "basic"

// Classification reasons produced by the verifier. These are internal and
// stable; the pipeline maps them to wire codes (see WireCode).
const (
	ReasonOK               = "ok"
	ReasonMissing          = "missing"
	ReasonBadFormat        = "bad-format"
	ReasonEmpty            = "empty"
	ReasonMalformed        = "malformed"
	ReasonUnsigned         = "unsigned"
	ReasonExpired          = "expired"
	ReasonNotYetValid      = "not-yet-valid"
	ReasonInvalidSignature = "invalid-signature"
	ReasonWrongIssuer      = "wrong-issuer"
	ReasonWrongAudience    = "wrong-audience"
	ReasonUnverified       = "unverified"
	ReasonUnknown          = "unknown"
)

// Wire codes surfaced to clients on 401 responses.
const (
	CodeMissingToken     = "missing-token"
	CodeBadAuthFormat    = "bad-auth-format"
	CodeEmptyToken       = "empty-token"
	CodeTokenExpired     = "token-expired"
	CodeTokenInvalid     = "token-invalid"
	CodeUnsignedToken    = "unsigned-token-not-accepted"
)

// Context is the caller identity derived for a single request. It is built
// on receipt of the POST and discarded when the response closes; nothing in
// it is shared across requests.
//
// Invariant: Verified implies Token is non-empty and UserID is not
// "anonymous". The dispatcher must never expose protected tools when
// Verified is false.
type Context struct {
	// UserID is the opaque subject identifier, "anonymous" when unknown.
	UserID string

	// TenantID is empty when no tenant claim was present.
	TenantID string

	// TenantTier defaults to "basic".
	TenantTier string

	// Token is the raw compact token, empty for anonymous callers.
	Token string

	// Claims is the full decoded claim set. Read-only; may be non-nil even
	// when Verified is false (decoded-only tokens).
	Claims map[string]interface{}

	// Verified is true only when signature, issuer and audience all passed.
	Verified bool

	// Signed reports whether the presented token was a real signed JWT
	// (alg present, not "none", kid present). The pipeline uses this to
	// distinguish hard auth failures from anonymous fallback.
	Signed bool

	// Unsigned reports whether the token was structurally a JWT but
	// deliberately unsigned (alg "none" or no kid).
	Unsigned bool

	// Reason is the verifier's classification, one of the Reason*
	// constants above.
	Reason string
}

// Anonymous returns a caller context with no identity and the given
// classification reason.
func Anonymous(reason string) *Context {
	return &Context{
		UserID:     AnonymousUserID,
		TenantTier: DefaultTenantTier,
		Reason:     reason,
	}
}

// WireCode maps a classification reason to the stable machine-readable code
// carried on 401 responses.
func WireCode(reason string) string {
	switch reason {
	case ReasonMissing:
		return CodeMissingToken
	case ReasonBadFormat:
		return CodeBadAuthFormat
	case ReasonEmpty:
		return CodeEmptyToken
	case ReasonExpired:
		return CodeTokenExpired
	case ReasonUnsigned:
		return CodeUnsignedToken
	default:
		return CodeTokenInvalid
	}
}

// WireMessage returns the human-readable message paired with a wire code.
func WireMessage(code string) string {
	switch code {
	case CodeMissingToken:
		return "Missing Authorization header"
	case CodeBadAuthFormat:
		return "Invalid Authorization header format, expected 'Bearer TOKEN'"
	case CodeEmptyToken:
		return "Empty bearer token"
	case CodeTokenExpired:
		return "Token has expired"
	case CodeUnsignedToken:
		return "Unsigned tokens are not accepted for this method"
	default:
		return "Invalid token"
	}
}

// Groups returns the group memberships from the claim set, checking the
// claim names used by the supported identity providers in order.
func (c *Context) Groups() []string {
	if c.Claims == nil {
		return nil
	}
	for _, claim := range []string{"cognito:groups", "roles", "groups"} {
		raw, ok := c.Claims[claim]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case []string:
			return v
		case []interface{}:
			groups := make([]string, 0, len(v))
			for _, g := range v {
				if s, ok := g.(string); ok {
					groups = append(groups, s)
				}
			}
			return groups
		case string:
			if v != "" {
				return []string{v}
			}
		}
	}
	return nil
}

// stringClaim returns a claim as a string, or "" when absent or non-string.
func (c *Context) stringClaim(name string) string {
	if c.Claims == nil {
		return ""
	}
	s, _ := c.Claims[name].(string)
	return s
}

// Email returns the email claim when present.
func (c *Context) Email() string { return c.stringClaim("email") }

// Username returns the identity provider's username claim when present.
func (c *Context) Username() string { return c.stringClaim("cognito:username") }
