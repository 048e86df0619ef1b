// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tripstack/travel-mcp/internal/log"
)

// ErrPolicyNotFound reports that the tenant has no policy document.
var ErrPolicyNotFound = errors.New("travel policy not found")

// policyObjectKey is the per-tenant object layout inside the policy bucket.
// The tenant prefix is the leading path component, mirroring the leading
// key condition on the bookings table.
const policyObjectKey = "%s/travel-policy.md"

// maxPolicySize caps a policy document read.
const maxPolicySize = 1 << 20

// S3API is the subset of the S3 API the policy store uses.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// PolicyStore serves tenant travel-policy documents from the policy bucket.
type PolicyStore struct {
	bucket    string
	logger    log.Logger
	newClient func(aws.Credentials) S3API
}

// NewPolicyStore creates a policy store for the given bucket and region.
func NewPolicyStore(bucket, region string, logger log.Logger) *PolicyStore {
	if logger == nil {
		logger = log.NewNop()
	}
	return &PolicyStore{
		bucket: bucket,
		logger: logger,
		newClient: func(creds aws.Credentials) S3API {
			cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
				awsconfig.WithRegion(region),
				awsconfig.WithCredentialsProvider(
					credentials.NewStaticCredentialsProvider(
						creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken),
				),
			)
			if err != nil {
				panic(fmt.Sprintf("failed to build S3 config: %v", err))
			}
			return s3.NewFromConfig(cfg)
		},
	}
}

// NewPolicyStoreWithClient creates a store with an injected client factory.
func NewPolicyStoreWithClient(bucket string, logger log.Logger, newClient func(aws.Credentials) S3API) *PolicyStore {
	if logger == nil {
		logger = log.NewNop()
	}
	return &PolicyStore{bucket: bucket, logger: logger, newClient: newClient}
}

// Get reads the tenant's travel policy document.
func (p *PolicyStore) Get(ctx context.Context, creds aws.Credentials, tenantID string) (string, error) {
	key := fmt.Sprintf(policyObjectKey, tenantID)

	output, err := p.newClient(creds).GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		p.logger.Debugf("policy read for tenant %s failed: %v", tenantID, err)
		return "", fmt.Errorf("%w: s3://%s/%s", ErrPolicyNotFound, p.bucket, key)
	}
	defer output.Body.Close()

	body, err := io.ReadAll(io.LimitReader(output.Body, maxPolicySize))
	if err != nil {
		return "", fmt.Errorf("failed to read policy object: %w", err)
	}
	return string(body), nil
}
