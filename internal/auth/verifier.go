// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/tripstack/travel-mcp/internal/log"
)

// bearerPrefix is matched case-sensitively with exactly one space.
const bearerPrefix = "Bearer "

// acceptableSkew tolerates small clock drift between the identity provider
// and this server when validating exp/nbf/iat.
const acceptableSkew = 30 * time.Second

// VerifierOptions configures a Verifier.
type VerifierOptions struct {
	// JWKSURL is the signing key document location. Empty disables the
	// signed path entirely: tokens are decoded but never verified. That
	// mode exists for local development and must not be deployed.
	JWKSURL string

	// Issuer is the required iss claim.
	Issuer string

	// ClientID is the required aud claim.
	ClientID string

	Logger log.Logger
}

// Verifier classifies and verifies bearer tokens. It never returns an
// error for a classification outcome; every outcome is a Context with a
// Reason. The only process-lived state it touches is the JWKS key cache.
type Verifier struct {
	issuer   string
	clientID string
	cache    *keyCache
	logger   log.Logger
}

// NewVerifier creates a verifier bound to one identity provider.
func NewVerifier(opts VerifierOptions) *Verifier {
	v := &Verifier{
		issuer:   opts.Issuer,
		clientID: opts.ClientID,
		logger:   opts.Logger,
	}
	if v.logger == nil {
		v.logger = log.NewNop()
	}
	if opts.JWKSURL != "" {
		v.cache = newKeyCache(opts.JWKSURL)
	}
	return v
}

// Verify classifies the raw Authorization header value and produces the
// caller context for this request.
func (v *Verifier) Verify(ctx context.Context, authorization string) *Context {
	raw, reason := extractBearer(authorization)
	if reason != ReasonOK {
		return Anonymous(reason)
	}

	header, claims, err := decodeCompact(raw)
	if err != nil {
		v.logger.Debugf("token structural decode failed: %v", err)
		return Anonymous(ReasonMalformed)
	}

	alg, _ := header["alg"].(string)
	kid, _ := header["kid"].(string)

	// Unsigned detection: missing alg, alg "none", or no key id. Such
	// tokens carry claims but no proof; they are projected into an
	// unverified context so public methods can still observe them.
	if alg == "" || alg == "none" || kid == "" {
		authCtx := &Context{
			Token:    raw,
			Claims:   claims,
			Unsigned: true,
			Reason:   ReasonUnsigned,
		}
		projectClaims(authCtx, claims)
		return authCtx
	}

	// Signed path without a configured user pool: decode-only fallback.
	if v.cache == nil {
		v.logger.Warnf("no user pool configured; token decoded without verification")
		authCtx := &Context{
			Token:  raw,
			Claims: claims,
			Signed: true,
			Reason: ReasonUnverified,
		}
		projectClaims(authCtx, claims)
		return authCtx
	}

	reason = v.verifySigned(ctx, raw, kid)
	authCtx := &Context{
		Token:  raw,
		Claims: claims,
		Signed: true,
		Reason: reason,
	}
	projectClaims(authCtx, claims)
	if reason == ReasonOK {
		// A verified context must carry a real subject.
		if authCtx.UserID == AnonymousUserID {
			authCtx.Reason = ReasonUnknown
		} else {
			authCtx.Verified = true
		}
	}
	return authCtx
}

// verifySigned runs signature and claim validation, mapping every failure
// class to a distinct reason.
func (v *Verifier) verifySigned(ctx context.Context, raw, kid string) string {
	key, err := v.cache.Key(ctx, kid)
	if err != nil {
		if errors.Is(err, errKeyNotFound) {
			return ReasonInvalidSignature
		}
		v.logger.Errorf("JWKS key retrieval failed: %v", err)
		return ReasonUnknown
	}

	token, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.RS256, key),
		jwt.WithValidate(false),
	)
	if err != nil {
		return ReasonInvalidSignature
	}

	err = jwt.Validate(token,
		jwt.WithAcceptableSkew(acceptableSkew),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.clientID),
	)
	switch {
	case err == nil:
		return ReasonOK
	case errors.Is(err, jwt.ErrTokenExpired()):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenNotYetValid()):
		return ReasonNotYetValid
	case errors.Is(err, jwt.ErrInvalidIssuer()):
		return ReasonWrongIssuer
	case errors.Is(err, jwt.ErrInvalidAudience()):
		return ReasonWrongAudience
	default:
		v.logger.Debugf("token claim validation failed: %v", err)
		return ReasonUnknown
	}
}

// extractBearer pulls the compact token out of the Authorization header.
func extractBearer(authorization string) (token, reason string) {
	if authorization == "" {
		return "", ReasonMissing
	}
	if !strings.HasPrefix(authorization, bearerPrefix) {
		return "", ReasonBadFormat
	}
	token = strings.TrimSpace(authorization[len(bearerPrefix):])
	if token == "" {
		return "", ReasonEmpty
	}
	return token, ReasonOK
}

// decodeCompact splits a compact JWT and decodes its header and payload
// segments without any signature processing.
func decodeCompact(raw string) (header, claims map[string]interface{}, err error) {
	parts := strings.Split(raw, ".")
	if len(parts) < 2 {
		return nil, nil, errors.New("compact token needs at least two segments")
	}
	if header, err = decodeSegment(parts[0]); err != nil {
		return nil, nil, err
	}
	if claims, err = decodeSegment(parts[1]); err != nil {
		return nil, nil, err
	}
	return header, claims, nil
}

func decodeSegment(segment string) (map[string]interface{}, error) {
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(segment, "="))
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// projectClaims fills the identity fields from the decoded claim set.
// Tenant claims follow the custom-attribute convention set by the user
// registration flow, with a bare fallback for tokens minted elsewhere.
func projectClaims(authCtx *Context, claims map[string]interface{}) {
	authCtx.UserID = AnonymousUserID
	authCtx.TenantTier = DefaultTenantTier
	if claims == nil {
		return
	}
	if sub, _ := claims["sub"].(string); sub != "" {
		authCtx.UserID = sub
	}
	if tenant, _ := claims["custom:tenantId"].(string); tenant != "" {
		authCtx.TenantID = tenant
	} else if tenant, _ := claims["tenantId"].(string); tenant != "" {
		authCtx.TenantID = tenant
	}
	if tier, _ := claims["custom:tenantTier"].(string); tier != "" {
		authCtx.TenantTier = tier
	}
}
