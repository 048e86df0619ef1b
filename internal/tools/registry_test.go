// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

package tools

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripstack/travel-mcp/internal/auth"
	"github.com/tripstack/travel-mcp/internal/mcp"
	"github.com/tripstack/travel-mcp/internal/prompts"
	"github.com/tripstack/travel-mcp/internal/store"
	"github.com/tripstack/travel-mcp/internal/tenant"
)

type stubSTS struct{}

func (stubSTS) AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
	return &sts.AssumeRoleOutput{
		Credentials: &ststypes.Credentials{
			AccessKeyId:     aws.String("AKIDEXAMPLE"),
			SecretAccessKey: aws.String("secret"),
			SessionToken:    aws.String("token"),
			Expiration:      aws.Time(time.Now().Add(15 * time.Minute)),
		},
	}, nil
}

type stubDynamo struct{}

func (stubDynamo) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return &dynamodb.QueryOutput{}, nil
}

func (stubDynamo) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{}, nil
}

func (stubDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return &dynamodb.PutItemOutput{}, nil
}

func (stubDynamo) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return &dynamodb.UpdateItemOutput{}, nil
}

type stubS3 struct{}

func (stubS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("# policy"))}, nil
}

func newTestDeps() *Deps {
	return &Deps{
		Vendor: tenant.NewVendorWithClient(stubSTS{}, "arn:aws:iam::123456789012:role/data-plane", nil),
		Bookings: store.NewBookingsWithClient("bookings", nil, func(aws.Credentials) store.DynamoAPI {
			return stubDynamo{}
		}),
		Policies: store.NewPolicyStoreWithClient("policies", nil, func(aws.Credentials) store.S3API {
			return stubS3{}
		}),
		Catalog: prompts.Catalog(),
	}
}

func verifiedCaller() *auth.Context {
	return &auth.Context{
		UserID:     "user-42",
		TenantID:   "ABC123",
		TenantTier: "basic",
		Token:      "a.b.c",
		Signed:     true,
		Verified:   true,
		Reason:     auth.ReasonOK,
	}
}

func toolNames(registry *mcp.Registry) []string {
	tools := registry.Tools()
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	return names
}

func TestBuildRegistry_Anonymous(t *testing.T) {
	deps := newTestDeps()

	for _, caller := range []*auth.Context{
		auth.Anonymous(auth.ReasonMissing),
		{UserID: "user1", TenantID: "ABC123", Unsigned: true, Reason: auth.ReasonUnsigned, Token: "x.y."},
		{UserID: "user1", Signed: true, Reason: auth.ReasonExpired, Token: "a.b.c"},
	} {
		registry := deps.BuildRegistry(caller)
		assert.Equal(t, []string{WhoamiToolName}, toolNames(registry),
			"unverified caller (reason %s) must see exactly the public surface", caller.Reason)
		assert.Empty(t, registry.Resources())
		assert.Empty(t, registry.Prompts())
	}
}

func TestBuildRegistry_Verified(t *testing.T) {
	deps := newTestDeps()
	registry := deps.BuildRegistry(verifiedCaller())

	names := toolNames(registry)
	assert.Contains(t, names, WhoamiToolName)
	assert.Contains(t, names, ListBookingsToolName)
	assert.Contains(t, names, FindFlightsToolName)
	assert.Contains(t, names, FindHotelsToolName)
	assert.Contains(t, names, BookHotelToolName)
	assert.Contains(t, names, CancelBookingToolName)
	assert.Contains(t, names, LoyaltyStatusToolName)
	assert.Contains(t, names, ListPromptsToolName)
	assert.Contains(t, names, GetPromptToolName)

	resources := registry.Resources()
	require.Len(t, resources, 1)
	assert.Equal(t, "travelpolicy://ABC123/policy", resources[0].URI)

	assert.Len(t, registry.Prompts(), len(prompts.Catalog()))
}

// The set of tools visible in tools/list equals the set invocable through
// tools/call for the same caller.
func TestBuildRegistry_ListCallAgreement(t *testing.T) {
	deps := newTestDeps()

	for name, caller := range map[string]*auth.Context{
		"anonymous": auth.Anonymous(auth.ReasonMissing),
		"verified":  verifiedCaller(),
	} {
		t.Run(name, func(t *testing.T) {
			registry := deps.BuildRegistry(caller)
			dispatcher := mcp.NewDispatcher(registry, caller, mcp.Implementation{Name: "t", Version: "0"}, nil)
			defer dispatcher.Close()

			// Everything listed is invocable: a call may fail on missing
			// arguments or downstream faults, but never with tool-not-found.
			for _, tool := range registry.Tools() {
				msg := dispatcher.HandleRequest(context.Background(),
					mcp.NewJSONRPCRequest(1, mcp.MethodToolsCall,
						map[string]interface{}{"name": tool.Name, "arguments": map[string]interface{}{}}))
				if errResp, ok := msg.(*mcp.JSONRPCError); ok {
					assert.NotEqual(t, mcp.ErrCodeMethodNotFound, errResp.Error.Code,
						"tool %s listed but not invocable", tool.Name)
				}
			}
		})
	}
}

// A protected tool invoked by an unverified caller yields tool-not-found,
// never a distinct forbidden error.
func TestBuildRegistry_ProtectedToolHidden(t *testing.T) {
	deps := newTestDeps()
	caller := auth.Anonymous(auth.ReasonMissing)
	registry := deps.BuildRegistry(caller)
	dispatcher := mcp.NewDispatcher(registry, caller, mcp.Implementation{Name: "t", Version: "0"}, nil)
	defer dispatcher.Close()

	msg := dispatcher.HandleRequest(context.Background(),
		mcp.NewJSONRPCRequest(3, mcp.MethodToolsCall,
			map[string]interface{}{"name": ListBookingsToolName, "arguments": map[string]interface{}{}}))

	errResp, ok := msg.(*mcp.JSONRPCError)
	require.True(t, ok)
	assert.Equal(t, mcp.ErrCodeMethodNotFound, errResp.Error.Code)
	assert.NotContains(t, errResp.Error.Message, "forbidden")
}

func TestBuildRegistry_PolicyTemplateDeniesCrossTenant(t *testing.T) {
	deps := newTestDeps()
	caller := verifiedCaller()
	registry := deps.BuildRegistry(caller)
	dispatcher := mcp.NewDispatcher(registry, caller, mcp.Implementation{Name: "t", Version: "0"}, nil)
	defer dispatcher.Close()

	msg := dispatcher.HandleRequest(context.Background(),
		mcp.NewJSONRPCRequest(1, mcp.MethodResourcesRead,
			map[string]interface{}{"uri": "travelpolicy://OTHER/policy"}))

	// Another tenant's policy URI is indistinguishable from a missing one.
	errResp, ok := msg.(*mcp.JSONRPCError)
	require.True(t, ok)
	assert.Equal(t, mcp.ErrCodeMethodNotFound, errResp.Error.Code)
}

func TestPublicToolNames(t *testing.T) {
	public := PublicToolNames()
	assert.True(t, public[WhoamiToolName])
	assert.Len(t, public, 1)
}
