// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

// Package store implements the tenant-partitioned data plane: the bookings
// table and the travel-policy object store. Every operation takes the
// vended per-tenant credentials explicitly; the stores never hold ambient
// AWS identity, so a call can only ever act under the tenant tag it was
// given.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/tripstack/travel-mcp/internal/log"
)

// Booking statuses.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Errors returned by the bookings store.
var (
	ErrBookingNotFound  = errors.New("booking not found")
	ErrAlreadyCancelled = errors.New("booking already cancelled")
)

// Booking is one row in the bookings table. The table key schema is
// tenantId (HASH) / bookingId (RANGE); the leading key matches the
// principal tag on the vended credentials.
type Booking struct {
	TenantID  string `dynamodbav:"tenantId" json:"tenantId"`
	BookingID string `dynamodbav:"bookingId" json:"bookingId"`
	Kind      string `dynamodbav:"kind" json:"kind"`
	Status    string `dynamodbav:"status" json:"status"`
	HotelID   string `dynamodbav:"hotelId,omitempty" json:"hotelId,omitempty"`
	City      string `dynamodbav:"city,omitempty" json:"city,omitempty"`
	CheckIn   string `dynamodbav:"checkIn,omitempty" json:"checkIn,omitempty"`
	CheckOut  string `dynamodbav:"checkOut,omitempty" json:"checkOut,omitempty"`
	GuestName string `dynamodbav:"guestName,omitempty" json:"guestName,omitempty"`
	CreatedBy string `dynamodbav:"createdBy" json:"createdBy"`
	CreatedAt string `dynamodbav:"createdAt" json:"createdAt"`
}

// DynamoAPI is the subset of the DynamoDB API the store uses.
type DynamoAPI interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Bookings reads and writes the bookings table. A fresh DynamoDB client is
// built per call from the caller-supplied credentials so the session tag on
// those credentials governs what the call can touch.
type Bookings struct {
	table     string
	logger    log.Logger
	newClient func(aws.Credentials) DynamoAPI
}

// NewBookings creates a bookings store for the given table and region.
func NewBookings(table, region string, logger log.Logger) *Bookings {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Bookings{
		table:  table,
		logger: logger,
		newClient: func(creds aws.Credentials) DynamoAPI {
			cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
				awsconfig.WithRegion(region),
				awsconfig.WithCredentialsProvider(
					credentials.NewStaticCredentialsProvider(
						creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken),
				),
			)
			if err != nil {
				// LoadDefaultConfig with static credentials cannot fail in
				// practice; surface it loudly if it ever does.
				panic(fmt.Sprintf("failed to build DynamoDB config: %v", err))
			}
			return dynamodb.NewFromConfig(cfg)
		},
	}
}

// NewBookingsWithClient creates a store with an injected client factory.
func NewBookingsWithClient(table string, logger log.Logger, newClient func(aws.Credentials) DynamoAPI) *Bookings {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Bookings{table: table, logger: logger, newClient: newClient}
}

// List returns the tenant's bookings, optionally filtered by status.
func (b *Bookings) List(ctx context.Context, creds aws.Credentials, tenantID, status string) ([]Booking, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(b.table),
		KeyConditionExpression: aws.String("tenantId = :tenant"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":tenant": &ddbtypes.AttributeValueMemberS{Value: tenantID},
		},
	}
	if status != "" {
		input.FilterExpression = aws.String("#status = :status")
		input.ExpressionAttributeNames = map[string]string{"#status": "status"}
		input.ExpressionAttributeValues[":status"] = &ddbtypes.AttributeValueMemberS{Value: status}
	}

	output, err := b.newClient(creds).Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}

	bookings := make([]Booking, 0, len(output.Items))
	for _, item := range output.Items {
		var booking Booking
		if err := attributevalue.UnmarshalMap(item, &booking); err != nil {
			return nil, fmt.Errorf("failed to unmarshal booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, nil
}

// Put writes a booking row.
func (b *Bookings) Put(ctx context.Context, creds aws.Credentials, booking Booking) error {
	item, err := attributevalue.MarshalMap(booking)
	if err != nil {
		return fmt.Errorf("failed to marshal booking: %w", err)
	}
	_, err = b.newClient(creds).PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(b.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put booking: %w", err)
	}
	return nil
}

// Cancel flips a booking to cancelled. Unknown ids and repeated cancels are
// business failures the tool layer reports in-band.
func (b *Bookings) Cancel(ctx context.Context, creds aws.Credentials, tenantID, bookingID string) (Booking, error) {
	client := b.newClient(creds)

	key := map[string]ddbtypes.AttributeValue{
		"tenantId":  &ddbtypes.AttributeValueMemberS{Value: tenantID},
		"bookingId": &ddbtypes.AttributeValueMemberS{Value: bookingID},
	}

	got, err := client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(b.table),
		Key:       key,
	})
	if err != nil {
		return Booking{}, fmt.Errorf("failed to load booking: %w", err)
	}
	if len(got.Item) == 0 {
		return Booking{}, ErrBookingNotFound
	}

	var booking Booking
	if err := attributevalue.UnmarshalMap(got.Item, &booking); err != nil {
		return Booking{}, fmt.Errorf("failed to unmarshal booking: %w", err)
	}
	if booking.Status == StatusCancelled {
		return booking, ErrAlreadyCancelled
	}

	_, err = client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(b.table),
		Key:              key,
		UpdateExpression: aws.String("SET #status = :cancelled"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":cancelled": &ddbtypes.AttributeValueMemberS{Value: StatusCancelled},
		},
	})
	if err != nil {
		return Booking{}, fmt.Errorf("failed to cancel booking: %w", err)
	}

	booking.Status = StatusCancelled
	return booking, nil
}

// NowStamp formats a booking timestamp.
func NowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
