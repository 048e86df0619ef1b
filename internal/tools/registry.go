// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/yosida95/uritemplate/v3"

	"github.com/tripstack/travel-mcp/internal/auth"
	"github.com/tripstack/travel-mcp/internal/log"
	"github.com/tripstack/travel-mcp/internal/mcp"
	"github.com/tripstack/travel-mcp/internal/prompts"
	"github.com/tripstack/travel-mcp/internal/store"
	"github.com/tripstack/travel-mcp/internal/tenant"
)

// policyTemplate addresses the tenant travel-policy documents.
var policyTemplate = uritemplate.MustNew("travelpolicy://{tenantId}/policy")

// Deps bundles the process-lived collaborators the tool handlers use.
type Deps struct {
	Logger   log.Logger
	Vendor   *tenant.Vendor
	Bookings *store.Bookings
	Policies *store.PolicyStore
	Catalog  []*prompts.Template
}

// PublicToolNames is the set of tools callable without a verified token.
func PublicToolNames() map[string]bool {
	return map[string]bool{WhoamiToolName: true}
}

// BuildRegistry constructs the registry visible to one caller. Anonymous
// and unverified callers see exactly the public surface; verified callers
// additionally get the travel tools, the tenant policy resource and the
// prompt catalog. Registration order is cosmetic only.
func (d *Deps) BuildRegistry(caller *auth.Context) *mcp.Registry {
	registry := mcp.NewRegistry()
	logger := d.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	add := func(err error) {
		// Names are package constants, so collisions indicate a wiring bug.
		if err != nil {
			logger.Errorf("registry construction: %v", err)
		}
	}

	add(registry.RegisterTool(whoamiTool(), mcp.VisibilityPublic, whoamiHandler))

	if !caller.Verified {
		return registry
	}

	add(registry.RegisterTool(listBookingsTool(), mcp.VisibilityAuthenticated, d.listBookings))
	add(registry.RegisterTool(findFlightsTool(), mcp.VisibilityAuthenticated, d.findFlights))
	add(registry.RegisterTool(findHotelsTool(), mcp.VisibilityAuthenticated, d.findHotels))
	add(registry.RegisterTool(bookHotelTool(), mcp.VisibilityAuthenticated, d.bookHotel))
	add(registry.RegisterTool(cancelBookingTool(), mcp.VisibilityAuthenticated, d.cancelBooking))
	add(registry.RegisterTool(loyaltyStatusTool(), mcp.VisibilityAuthenticated, d.loyaltyStatus))
	add(registry.RegisterTool(listPromptsTool(), mcp.VisibilityAuthenticated, d.listPrompts))
	add(registry.RegisterTool(getPromptTool(), mcp.VisibilityAuthenticated, d.getPrompt))

	if caller.TenantID != "" && d.Policies != nil {
		add(registry.RegisterResource(d.policyResource(caller.TenantID)))
		add(registry.RegisterResourceTemplate(&mcp.ResourceTemplate{
			Name:        "travel-policy",
			URITemplate: policyTemplate,
			Description: "Tenant travel policy document",
			MimeType:    "text/markdown",
		}, d.readPolicyTemplate))
	}

	for _, template := range d.Catalog {
		add(registry.RegisterPrompt(promptDescriptor(template), newPromptHandler(template)))
	}

	return registry
}

// policyResource is the caller's own policy document under its concrete URI.
func (d *Deps) policyResource(tenantID string) (*mcp.Resource, mcp.ResourceHandler) {
	uri := fmt.Sprintf("travelpolicy://%s/policy", tenantID)
	resource := &mcp.Resource{
		URI:         uri,
		Name:        "travel-policy",
		Description: "Travel policy for this tenant",
		MimeType:    "text/markdown",
	}
	handler := func(ctx context.Context, req *mcp.ReadResourceRequest, caller *auth.Context) (mcp.ResourceContents, error) {
		return d.readPolicy(ctx, caller, tenantID, uri)
	}
	return resource, handler
}

// readPolicyTemplate serves template-addressed policy reads. A URI naming a
// different tenant is reported as not-found; cross-tenant reads are denied
// without confirming the other tenant exists.
func (d *Deps) readPolicyTemplate(ctx context.Context, req *mcp.ReadResourceRequest, caller *auth.Context, params map[string]string) (mcp.ResourceContents, error) {
	tenantID := params["tenantId"]
	if tenantID == "" || tenantID != caller.TenantID {
		return nil, mcp.ErrNotFound
	}
	return d.readPolicy(ctx, caller, tenantID, req.Params.URI)
}

func (d *Deps) readPolicy(ctx context.Context, caller *auth.Context, tenantID, uri string) (mcp.ResourceContents, error) {
	creds, err := d.Vendor.Assume(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	document, err := d.Policies.Get(ctx, creds, tenantID)
	if errors.Is(err, store.ErrPolicyNotFound) {
		return nil, mcp.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return mcp.TextResourceContents{
		URI:      uri,
		MimeType: "text/markdown",
		Text:     document,
	}, nil
}
