// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

// Package tenant vends short-lived, tenant-scoped AWS credentials.
//
// Every data-plane call a tool handler makes runs under credentials
// obtained here: the downstream role is assumed with a single session tag
// tenantId=<value>, and the data-plane policies reference
// ${aws:PrincipalTag/tenantId} as the required leading key. Row-level
// isolation therefore holds by construction; a handler cannot read another
// tenant's rows no matter what key it asks for.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/google/uuid"

	"github.com/tripstack/travel-mcp/internal/log"
)

// Errors returned by the vendor.
var (
	ErrMissingTenant  = errors.New("tenant id is required")
	ErrMissingRoleARN = errors.New("role ARN is not configured")
	ErrAssumeFailed   = errors.New("failed to assume tenant role")
)

const (
	// sessionTagKey is the tag the downstream row-key conditions reference.
	sessionTagKey = "tenantId"

	// sessionDurationSeconds bounds one handler call comfortably.
	sessionDurationSeconds = 900

	// cacheMaxEntries bounds the optional per-tenant credential cache.
	cacheMaxEntries = 64

	// cacheSafetyMargin is subtracted from the credential expiry so cached
	// entries are always evicted before the credentials themselves expire.
	cacheSafetyMargin = 2 * time.Minute
)

// sessionNamePattern is the AWS RoleSessionName character set.
var sessionNamePattern = regexp.MustCompile(`[^a-zA-Z0-9_+=,.@-]`)

// STSClient is the subset of the STS API the vendor uses. Narrowed to an
// interface so tests can inject a fake.
type STSClient interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

// Vendor assumes the downstream data-plane role with a tenant session tag.
type Vendor struct {
	client  STSClient
	roleARN string
	logger  log.Logger

	mu      sync.Mutex
	cache   map[string]cachedCredentials
	now     func() time.Time
}

type cachedCredentials struct {
	creds   aws.Credentials
	staleAt time.Time
}

// NewVendor builds a vendor with a regional STS client from the default
// credential chain. An empty role ARN is allowed at construction time so
// the server can start without a data plane; Assume then fails cleanly.
func NewVendor(ctx context.Context, region, roleARN string, logger log.Logger) (*Vendor, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewVendorWithClient(sts.NewFromConfig(cfg), roleARN, logger), nil
}

// NewVendorWithClient builds a vendor around an existing STS client.
func NewVendorWithClient(client STSClient, roleARN string, logger log.Logger) *Vendor {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Vendor{
		client:  client,
		roleARN: roleARN,
		logger:  logger,
		cache:   make(map[string]cachedCredentials),
		now:     time.Now,
	}
}

// Assume returns credentials scoped to the given tenant, valid for the
// duration of one handler call. Results are cached per tenant with a TTL
// strictly below the credential expiry.
func (v *Vendor) Assume(ctx context.Context, tenantID string) (aws.Credentials, error) {
	if tenantID == "" {
		return aws.Credentials{}, ErrMissingTenant
	}
	if v.roleARN == "" {
		return aws.Credentials{}, ErrMissingRoleARN
	}

	if creds, ok := v.cached(tenantID); ok {
		return creds, nil
	}

	input := &sts.AssumeRoleInput{
		RoleArn:         aws.String(v.roleARN),
		RoleSessionName: aws.String(sessionName(tenantID)),
		DurationSeconds: aws.Int32(sessionDurationSeconds),
		Tags: []ststypes.Tag{
			{Key: aws.String(sessionTagKey), Value: aws.String(tenantID)},
		},
	}

	output, err := v.client.AssumeRole(ctx, input)
	if err != nil {
		v.logger.Errorf("AssumeRole for tenant %s failed: %v", tenantID, err)
		return aws.Credentials{}, fmt.Errorf("%w: %w", ErrAssumeFailed, err)
	}
	if output == nil || output.Credentials == nil {
		return aws.Credentials{}, fmt.Errorf("%w: empty credentials in response", ErrAssumeFailed)
	}

	creds := aws.Credentials{
		AccessKeyID:     aws.ToString(output.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(output.Credentials.SecretAccessKey),
		SessionToken:    aws.ToString(output.Credentials.SessionToken),
		Expires:         aws.ToTime(output.Credentials.Expiration),
		CanExpire:       true,
	}
	v.store(tenantID, creds)
	return creds, nil
}

func (v *Vendor) cached(tenantID string) (aws.Credentials, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	entry, ok := v.cache[tenantID]
	if !ok || v.now().After(entry.staleAt) {
		delete(v.cache, tenantID)
		return aws.Credentials{}, false
	}
	return entry.creds, true
}

func (v *Vendor) store(tenantID string, creds aws.Credentials) {
	staleAt := creds.Expires.Add(-cacheSafetyMargin)
	if !v.now().Before(staleAt) {
		// Credential lifetime too short to be worth caching.
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, exists := v.cache[tenantID]; !exists && len(v.cache) >= cacheMaxEntries {
		oldestKey := ""
		var oldest time.Time
		for k, e := range v.cache {
			if oldestKey == "" || e.staleAt.Before(oldest) {
				oldestKey = k
				oldest = e.staleAt
			}
		}
		delete(v.cache, oldestKey)
	}
	v.cache[tenantID] = cachedCredentials{creds: creds, staleAt: staleAt}
}

// sessionName builds a RoleSessionName that satisfies the AWS character and
// length constraints regardless of the tenant id contents.
func sessionName(tenantID string) string {
	cleaned := sessionNamePattern.ReplaceAllString(tenantID, "-")
	if len(cleaned) > 32 {
		cleaned = cleaned[:32]
	}
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("travel-mcp-%s-%s", cleaned, suffix)
}
