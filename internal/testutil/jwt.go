// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

// Package testutil provides JWT and JWKS fixtures for tests: a generated
// RSA keypair, an httptest JWKS endpoint, and signed token minting.
package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// IdentityProvider is an in-test stand-in for the JWKS side of a user pool.
type IdentityProvider struct {
	// KID is the key id advertised in the JWKS document.
	KID string

	// Issuer and ClientID are the values tokens are minted with by default.
	Issuer   string
	ClientID string

	// Server serves the JWKS document.
	Server *httptest.Server

	privateKey *rsa.PrivateKey
}

// NewIdentityProvider generates a keypair and starts a JWKS endpoint.
// The server is shut down automatically when the test finishes.
func NewIdentityProvider(t *testing.T, issuer, clientID string) *IdentityProvider {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}

	idp := &IdentityProvider{
		KID:        "test-key-1",
		Issuer:     issuer,
		ClientID:   clientID,
		privateKey: privateKey,
	}

	public, err := jwk.FromRaw(privateKey.Public())
	if err != nil {
		t.Fatalf("failed to build JWK: %v", err)
	}
	_ = public.Set(jwk.KeyIDKey, idp.KID)
	_ = public.Set(jwk.AlgorithmKey, jwa.RS256)

	set := jwk.NewSet()
	_ = set.AddKey(public)
	document, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("failed to marshal JWKS: %v", err)
	}

	idp.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(document)
	}))
	t.Cleanup(idp.Server.Close)

	return idp
}

// JWKSURL returns the fixture's JWKS endpoint.
func (p *IdentityProvider) JWKSURL() string {
	return p.Server.URL
}

// TokenOption mutates a token under construction.
type TokenOption func(jwt.Token)

// WithClaim sets an arbitrary claim.
func WithClaim(name string, value interface{}) TokenOption {
	return func(tok jwt.Token) {
		_ = tok.Set(name, value)
	}
}

// WithExpiry overrides the exp claim.
func WithExpiry(at time.Time) TokenOption {
	return func(tok jwt.Token) {
		_ = tok.Set(jwt.ExpirationKey, at)
	}
}

// WithIssuer overrides the iss claim.
func WithIssuer(issuer string) TokenOption {
	return func(tok jwt.Token) {
		_ = tok.Set(jwt.IssuerKey, issuer)
	}
}

// WithAudience overrides the aud claim.
func WithAudience(audience string) TokenOption {
	return func(tok jwt.Token) {
		_ = tok.Set(jwt.AudienceKey, []string{audience})
	}
}

// MintToken signs a token for the given subject with sensible defaults:
// current iat, one hour expiry, the provider's issuer and audience.
func (p *IdentityProvider) MintToken(t *testing.T, subject string, options ...TokenOption) string {
	t.Helper()

	tok := jwt.New()
	_ = tok.Set(jwt.SubjectKey, subject)
	_ = tok.Set(jwt.IssuerKey, p.Issuer)
	_ = tok.Set(jwt.AudienceKey, []string{p.ClientID})
	_ = tok.Set(jwt.IssuedAtKey, time.Now())
	_ = tok.Set(jwt.ExpirationKey, time.Now().Add(time.Hour))

	for _, option := range options {
		option(tok)
	}

	private, err := jwk.FromRaw(p.privateKey)
	if err != nil {
		t.Fatalf("failed to build signing JWK: %v", err)
	}
	_ = private.Set(jwk.KeyIDKey, p.KID)

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, private))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return string(signed)
}

// MintTokenWithKID signs a token with a different kid so verification
// cannot find the key.
func (p *IdentityProvider) MintTokenWithKID(t *testing.T, subject, kid string) string {
	t.Helper()

	tok := jwt.New()
	_ = tok.Set(jwt.SubjectKey, subject)
	_ = tok.Set(jwt.IssuerKey, p.Issuer)
	_ = tok.Set(jwt.AudienceKey, []string{p.ClientID})
	_ = tok.Set(jwt.IssuedAtKey, time.Now())
	_ = tok.Set(jwt.ExpirationKey, time.Now().Add(time.Hour))

	private, err := jwk.FromRaw(p.privateKey)
	if err != nil {
		t.Fatalf("failed to build signing JWK: %v", err)
	}
	_ = private.Set(jwk.KeyIDKey, kid)

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, private))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return string(signed)
}

// UnsignedToken is a compact JWT with {"alg":"none"} and no signature,
// matching what development clients send.
const UnsignedToken = "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJzdWIiOiJ1c2VyMSIsImN1c3RvbTp0ZW5hbnRJZCI6IkFCQzEyMyJ9."
