// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

package tools

import "strings"

// The flight and hotel inventory behind find_flights and find_hotels. The
// real supplier feeds are external collaborators; the server ships a small
// deterministic catalog so the search tools have stable behavior.

// Hotel is one bookable property.
type Hotel struct {
	ID          string  `json:"hotelId"`
	Name        string  `json:"name"`
	City        string  `json:"city"`
	NightlyRate float64 `json:"nightlyRate"`
	Rating      float64 `json:"rating"`
}

// Flight is one bookable itinerary.
type Flight struct {
	ID        string  `json:"flightId"`
	Carrier   string  `json:"carrier"`
	Origin    string  `json:"origin"`
	Dest      string  `json:"destination"`
	Departure string  `json:"departure"`
	Arrival   string  `json:"arrival"`
	Price     float64 `json:"price"`
}

var hotelCatalog = []Hotel{
	{ID: "HTL-SEA-001", Name: "Rainier Grand", City: "Seattle", NightlyRate: 189, Rating: 4.4},
	{ID: "HTL-SEA-002", Name: "Pike Street Suites", City: "Seattle", NightlyRate: 139, Rating: 4.0},
	{ID: "HTL-SEA-003", Name: "Sound View Inn", City: "Seattle", NightlyRate: 99, Rating: 3.6},
	{ID: "HTL-NYC-001", Name: "Hudson Park Hotel", City: "New York", NightlyRate: 289, Rating: 4.5},
	{ID: "HTL-NYC-002", Name: "Midtown Anchor", City: "New York", NightlyRate: 199, Rating: 4.1},
	{ID: "HTL-LON-001", Name: "Thames Court", City: "London", NightlyRate: 240, Rating: 4.3},
	{ID: "HTL-LON-002", Name: "Paddington Rows", City: "London", NightlyRate: 165, Rating: 3.9},
	{ID: "HTL-TYO-001", Name: "Shinjuku Garden Hotel", City: "Tokyo", NightlyRate: 210, Rating: 4.6},
}

var flightCatalog = []Flight{
	{ID: "FL-1042", Carrier: "Cascadia Air", Origin: "SEA", Dest: "JFK", Departure: "08:05", Arrival: "16:25", Price: 412},
	{ID: "FL-1188", Carrier: "Cascadia Air", Origin: "SEA", Dest: "JFK", Departure: "13:40", Arrival: "22:01", Price: 356},
	{ID: "FL-2210", Carrier: "TransPacific", Origin: "SEA", Dest: "NRT", Departure: "11:15", Arrival: "14:30", Price: 890},
	{ID: "FL-3077", Carrier: "Atlantic Blue", Origin: "JFK", Dest: "LHR", Departure: "19:50", Arrival: "07:45", Price: 540},
	{ID: "FL-3090", Carrier: "Atlantic Blue", Origin: "JFK", Dest: "LHR", Departure: "22:10", Arrival: "10:05", Price: 485},
	{ID: "FL-4402", Carrier: "Cascadia Air", Origin: "JFK", Dest: "SEA", Departure: "09:30", Arrival: "12:55", Price: 398},
	{ID: "FL-5518", Carrier: "TransPacific", Origin: "LHR", Dest: "NRT", Departure: "12:00", Arrival: "08:10", Price: 1020},
}

// findHotels filters the catalog by city.
func findHotels(city string) []Hotel {
	var matches []Hotel
	for _, hotel := range hotelCatalog {
		if strings.EqualFold(hotel.City, city) {
			matches = append(matches, hotel)
		}
	}
	return matches
}

// hotelByID looks up one property.
func hotelByID(id string) (Hotel, bool) {
	for _, hotel := range hotelCatalog {
		if hotel.ID == id {
			return hotel, true
		}
	}
	return Hotel{}, false
}

// findFlights filters the catalog by route and optional price ceiling.
func findFlights(origin, dest string, maxPrice float64) []Flight {
	var matches []Flight
	for _, flight := range flightCatalog {
		if !strings.EqualFold(flight.Origin, origin) || !strings.EqualFold(flight.Dest, dest) {
			continue
		}
		if maxPrice > 0 && flight.Price > maxPrice {
			continue
		}
		matches = append(matches, flight)
	}
	return matches
}
