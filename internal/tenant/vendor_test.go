// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

package tenant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRoleARN = "arn:aws:iam::123456789012:role/travel-data-plane"

type fakeSTS struct {
	calls  []*sts.AssumeRoleInput
	err    error
	expiry time.Time
}

func (f *fakeSTS) AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	expiry := f.expiry
	if expiry.IsZero() {
		expiry = time.Now().Add(15 * time.Minute)
	}
	return &sts.AssumeRoleOutput{
		Credentials: &ststypes.Credentials{
			AccessKeyId:     aws.String("AKIDEXAMPLE"),
			SecretAccessKey: aws.String("secret"),
			SessionToken:    aws.String("session-token"),
			Expiration:      aws.Time(expiry),
		},
	}, nil
}

func TestVendor_Assume(t *testing.T) {
	fake := &fakeSTS{}
	vendor := NewVendorWithClient(fake, testRoleARN, nil)

	creds, err := vendor.Assume(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "AKIDEXAMPLE", creds.AccessKeyID)
	assert.True(t, creds.CanExpire)

	require.Len(t, fake.calls, 1)
	input := fake.calls[0]
	assert.Equal(t, testRoleARN, aws.ToString(input.RoleArn))
	assert.EqualValues(t, sessionDurationSeconds, aws.ToInt32(input.DurationSeconds))

	// Exactly one session tag, carrying the tenant id. The downstream
	// row-key conditions depend on this bit for bit.
	require.Len(t, input.Tags, 1)
	assert.Equal(t, "tenantId", aws.ToString(input.Tags[0].Key))
	assert.Equal(t, "ABC123", aws.ToString(input.Tags[0].Value))
}

func TestVendor_EmptyTenant(t *testing.T) {
	vendor := NewVendorWithClient(&fakeSTS{}, testRoleARN, nil)
	_, err := vendor.Assume(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingTenant)
}

func TestVendor_MissingRole(t *testing.T) {
	vendor := NewVendorWithClient(&fakeSTS{}, "", nil)
	_, err := vendor.Assume(context.Background(), "ABC123")
	assert.ErrorIs(t, err, ErrMissingRoleARN)
}

func TestVendor_AssumeFailure(t *testing.T) {
	fake := &fakeSTS{err: errors.New("access denied")}
	vendor := NewVendorWithClient(fake, testRoleARN, nil)

	_, err := vendor.Assume(context.Background(), "ABC123")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAssumeFailed)
}

func TestVendor_CacheReuse(t *testing.T) {
	fake := &fakeSTS{}
	vendor := NewVendorWithClient(fake, testRoleARN, nil)
	ctx := context.Background()

	_, err := vendor.Assume(ctx, "ABC123")
	require.NoError(t, err)
	_, err = vendor.Assume(ctx, "ABC123")
	require.NoError(t, err)
	assert.Len(t, fake.calls, 1, "second call should hit the cache")

	// A different tenant never shares credentials.
	_, err = vendor.Assume(ctx, "XYZ789")
	require.NoError(t, err)
	assert.Len(t, fake.calls, 2)
}

func TestVendor_CacheEvictsBeforeExpiry(t *testing.T) {
	fake := &fakeSTS{}
	vendor := NewVendorWithClient(fake, testRoleARN, nil)
	ctx := context.Background()

	current := time.Now()
	vendor.now = func() time.Time { return current }
	fake.expiry = current.Add(15 * time.Minute)

	_, err := vendor.Assume(ctx, "ABC123")
	require.NoError(t, err)

	// Inside the safety margin but before actual expiry: must re-assume,
	// never serve credentials that are about to lapse.
	current = current.Add(15*time.Minute - cacheSafetyMargin + time.Second)
	_, err = vendor.Assume(ctx, "ABC123")
	require.NoError(t, err)
	assert.Len(t, fake.calls, 2)
}

func TestVendor_ShortLivedCredentialsNotCached(t *testing.T) {
	fake := &fakeSTS{expiry: time.Now().Add(30 * time.Second)}
	vendor := NewVendorWithClient(fake, testRoleARN, nil)
	ctx := context.Background()

	_, err := vendor.Assume(ctx, "ABC123")
	require.NoError(t, err)
	_, err = vendor.Assume(ctx, "ABC123")
	require.NoError(t, err)
	assert.Len(t, fake.calls, 2)
}

func TestSessionName(t *testing.T) {
	name := sessionName("ABC 123/with*weird chars")
	assert.Regexp(t, `^[a-zA-Z0-9_+=,.@-]+$`, name)
	assert.LessOrEqual(t, len(name), 64)
	assert.Contains(t, name, "travel-mcp-")
}
