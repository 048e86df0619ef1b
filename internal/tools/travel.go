// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tripstack/travel-mcp/internal/auth"
	"github.com/tripstack/travel-mcp/internal/mcp"
	"github.com/tripstack/travel-mcp/internal/store"
)

// Protected tool names.
const (
	ListBookingsToolName  = "list_bookings"
	FindFlightsToolName   = "find_flights"
	FindHotelsToolName    = "find_hotels"
	BookHotelToolName     = "book_hotel"
	CancelBookingToolName = "cancel_booking"
	LoyaltyStatusToolName = "loyalty_status"
)

func listBookingsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        ListBookingsToolName,
		Description: "List the tenant's travel bookings, optionally filtered by status.",
		InputSchema: mcp.ObjectSchema(map[string]*mcp.SchemaProperty{
			"status": mcp.EnumProperty("Only return bookings with this status",
				store.StatusConfirmed, store.StatusCancelled),
		}),
	}
}

// listBookings queries the bookings table under tenant-scoped credentials.
// Credential or data-plane faults propagate as errors and surface to the
// client as -32603; they are never retried with a different tenant.
func (d *Deps) listBookings(ctx context.Context, req *mcp.CallToolRequest, caller *auth.Context) (*mcp.CallToolResult, error) {
	creds, err := d.Vendor.Assume(ctx, caller.TenantID)
	if err != nil {
		return nil, err
	}

	status, _ := req.Params.Arguments["status"].(string)
	bookings, err := d.Bookings.List(ctx, creds, caller.TenantID, status)
	if err != nil {
		return nil, err
	}
	return mcp.NewJSONResult(map[string]interface{}{
		"tenantId": caller.TenantID,
		"count":    len(bookings),
		"bookings": bookings,
	}), nil
}

func findFlightsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        FindFlightsToolName,
		Description: "Search available flights between two airports on a date.",
		InputSchema: mcp.ObjectSchema(map[string]*mcp.SchemaProperty{
			"origin":      mcp.StringProperty("Origin airport code, e.g. SEA"),
			"destination": mcp.StringProperty("Destination airport code, e.g. JFK"),
			"date":        mcp.DateProperty("Departure date (YYYY-MM-DD)"),
			"maxPrice":    mcp.IntProperty("Maximum ticket price in USD", 1, 20000),
		}, "origin", "destination", "date"),
	}
}

func (d *Deps) findFlights(ctx context.Context, req *mcp.CallToolRequest, caller *auth.Context) (*mcp.CallToolResult, error) {
	origin, _ := req.Params.Arguments["origin"].(string)
	dest, _ := req.Params.Arguments["destination"].(string)
	date, _ := req.Params.Arguments["date"].(string)
	maxPrice, _ := req.Params.Arguments["maxPrice"].(float64)

	flights := findFlights(origin, dest, maxPrice)
	if len(flights) == 0 {
		return mcp.NewErrorResult(fmt.Sprintf("no flights found from %s to %s on %s", origin, dest, date)), nil
	}
	return mcp.NewJSONResult(map[string]interface{}{
		"date":    date,
		"flights": flights,
	}), nil
}

func findHotelsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        FindHotelsToolName,
		Description: "Search hotels in a city for a stay window.",
		InputSchema: mcp.ObjectSchema(map[string]*mcp.SchemaProperty{
			"city":     mcp.StringProperty("City to search in"),
			"checkIn":  mcp.DateProperty("Check-in date (YYYY-MM-DD)"),
			"checkOut": mcp.DateProperty("Check-out date (YYYY-MM-DD)"),
			"guests":   mcp.IntProperty("Number of guests", 1, 8),
		}, "city", "checkIn", "checkOut"),
	}
}

func (d *Deps) findHotels(ctx context.Context, req *mcp.CallToolRequest, caller *auth.Context) (*mcp.CallToolResult, error) {
	city, _ := req.Params.Arguments["city"].(string)
	hotels := findHotels(city)
	if len(hotels) == 0 {
		return mcp.NewErrorResult(fmt.Sprintf("no hotels found in %s", city)), nil
	}
	return mcp.NewJSONResult(map[string]interface{}{
		"city":   city,
		"hotels": hotels,
	}), nil
}

func bookHotelTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        BookHotelToolName,
		Description: "Book a hotel stay for the tenant. Returns a confirmation id.",
		InputSchema: mcp.ObjectSchema(map[string]*mcp.SchemaProperty{
			"hotelId":   mcp.StringProperty("Hotel id from find_hotels"),
			"checkIn":   mcp.DateProperty("Check-in date (YYYY-MM-DD)"),
			"checkOut":  mcp.DateProperty("Check-out date (YYYY-MM-DD)"),
			"guestName": mcp.StringProperty("Name of the primary guest"),
		}, "hotelId", "checkIn", "checkOut", "guestName"),
	}
}

func (d *Deps) bookHotel(ctx context.Context, req *mcp.CallToolRequest, caller *auth.Context) (*mcp.CallToolResult, error) {
	hotelID, _ := req.Params.Arguments["hotelId"].(string)
	hotel, ok := hotelByID(hotelID)
	if !ok {
		// Unknown hotel is a business failure, not a protocol error.
		return mcp.NewErrorResult(fmt.Sprintf("unknown hotel id: %s", hotelID)), nil
	}

	creds, err := d.Vendor.Assume(ctx, caller.TenantID)
	if err != nil {
		return nil, err
	}

	checkIn, _ := req.Params.Arguments["checkIn"].(string)
	checkOut, _ := req.Params.Arguments["checkOut"].(string)
	guestName, _ := req.Params.Arguments["guestName"].(string)

	booking := store.Booking{
		TenantID:  caller.TenantID,
		BookingID: uuid.NewString(),
		Kind:      "hotel",
		Status:    store.StatusConfirmed,
		HotelID:   hotel.ID,
		City:      hotel.City,
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		GuestName: guestName,
		CreatedBy: caller.UserID,
		CreatedAt: store.NowStamp(),
	}
	if err := d.Bookings.Put(ctx, creds, booking); err != nil {
		return nil, err
	}

	return mcp.NewJSONResult(map[string]interface{}{
		"confirmationId": booking.BookingID,
		"hotel":          hotel,
		"checkIn":        checkIn,
		"checkOut":       checkOut,
		"status":         booking.Status,
	}), nil
}

func cancelBookingTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        CancelBookingToolName,
		Description: "Cancel one of the tenant's bookings by id.",
		InputSchema: mcp.ObjectSchema(map[string]*mcp.SchemaProperty{
			"bookingId": mcp.StringProperty("Booking id to cancel"),
		}, "bookingId"),
	}
}

func (d *Deps) cancelBooking(ctx context.Context, req *mcp.CallToolRequest, caller *auth.Context) (*mcp.CallToolResult, error) {
	creds, err := d.Vendor.Assume(ctx, caller.TenantID)
	if err != nil {
		return nil, err
	}

	bookingID, _ := req.Params.Arguments["bookingId"].(string)
	booking, err := d.Bookings.Cancel(ctx, creds, caller.TenantID, bookingID)
	switch {
	case errors.Is(err, store.ErrBookingNotFound):
		return mcp.NewErrorResult(fmt.Sprintf("booking not found: %s", bookingID)), nil
	case errors.Is(err, store.ErrAlreadyCancelled):
		return mcp.NewErrorResult(fmt.Sprintf("booking already cancelled: %s", bookingID)), nil
	case err != nil:
		return nil, err
	}

	return mcp.NewJSONResult(map[string]interface{}{
		"bookingId": booking.BookingID,
		"status":    booking.Status,
	}), nil
}

func loyaltyStatusTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        LoyaltyStatusToolName,
		Description: "Report the tenant's loyalty tier and its benefits.",
		InputSchema: mcp.ObjectSchema(nil),
	}
}

func (d *Deps) loyaltyStatus(ctx context.Context, req *mcp.CallToolRequest, caller *auth.Context) (*mcp.CallToolResult, error) {
	benefits := map[string][]string{
		"basic":    {"standard support"},
		"silver":   {"standard support", "late checkout"},
		"gold":     {"priority support", "late checkout", "room upgrades"},
		"platinum": {"priority support", "late checkout", "room upgrades", "lounge access"},
	}

	tier := caller.TenantTier
	tierBenefits, ok := benefits[tier]
	if !ok {
		tierBenefits = benefits["basic"]
	}
	return mcp.NewJSONResult(map[string]interface{}{
		"tenantId": caller.TenantID,
		"tier":     tier,
		"benefits": tierBenefits,
	}), nil
}
