// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

// Package prompts holds the declarative prompt catalog and the template
// renderer backing prompts/list and prompts/get.
//
// Rendering substitutes {{var}} tokens verbatim, with no escaping. That is
// acceptable for LLM-facing text, which is the only consumer here; rendered
// output is NOT safe to embed into HTML or JSON contexts.
package prompts

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholderPattern matches {{var}} tokens.
var placeholderPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Argument describes one parameter a template accepts.
type Argument struct {
	Name        string
	Description string
	Required    bool
}

// Template is one entry of the prompt catalog. Synthesize, when set,
// derives synthetic variables from the caller's arguments before
// substitution; it must be pure so rendering stays deterministic.
type Template struct {
	Name        string
	Description string
	Arguments   []Argument
	Text        string
	Synthesize  func(args map[string]string)
}

// Render expands the template with the given arguments.
func (t *Template) Render(arguments map[string]string) (string, error) {
	vars := make(map[string]string, len(arguments)+2)
	for k, v := range arguments {
		vars[k] = v
	}

	var missing []string
	for _, arg := range t.Arguments {
		if arg.Required && vars[arg.Name] == "" {
			missing = append(missing, arg.Name)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("missing required arguments: %s", strings.Join(missing, ", "))
	}

	if t.Synthesize != nil {
		t.Synthesize(vars)
	}

	return placeholderPattern.ReplaceAllStringFunc(t.Text, func(token string) string {
		name := token[2 : len(token)-2]
		return vars[name]
	}), nil
}

// Catalog returns the prompt templates this server ships. The catalog is
// built once at startup and treated as immutable afterwards.
func Catalog() []*Template {
	return []*Template{
		{
			Name:        "plan_trip",
			Description: "Plan a complete trip itinerary within the tenant's travel policy",
			Arguments: []Argument{
				{Name: "destination", Description: "Destination city", Required: true},
				{Name: "start_date", Description: "Trip start date (YYYY-MM-DD)", Required: true},
				{Name: "end_date", Description: "Trip end date (YYYY-MM-DD)", Required: true},
				{Name: "budget", Description: "Total budget in USD"},
				{Name: "preferences", Description: "Traveler preferences"},
			},
			Text: "Plan a business trip to {{destination}} from {{start_date}} to {{end_date}}.\n" +
				"{{budget_text}}\n" +
				"Traveler preferences: {{preferences}}.\n" +
				"Use find_flights and find_hotels to assemble options, check them against " +
				"the tenant travel policy, and finish with a day-by-day itinerary.",
			Synthesize: func(vars map[string]string) {
				if budget := vars["budget"]; budget != "" {
					vars["budget_text"] = fmt.Sprintf("The total budget is %s USD; stay within it.", budget)
				} else {
					vars["budget_text"] = "No budget limit was given; prefer policy-compliant mid-range options."
				}
				if vars["preferences"] == "" {
					vars["preferences"] = "no specific preferences"
				}
			},
		},
		{
			Name:        "hotel_deal",
			Description: "Find the best hotel deal for a stay",
			Arguments: []Argument{
				{Name: "city", Description: "City to stay in", Required: true},
				{Name: "nights", Description: "Number of nights"},
				{Name: "budget", Description: "Nightly budget in USD"},
			},
			Text: "Find the best hotel deal in {{city}} for {{nights_text}}.\n" +
				"{{budget_text}}\n" +
				"Use find_hotels, compare at least three options and explain the trade-offs.",
			Synthesize: func(vars map[string]string) {
				if nights := vars["nights"]; nights != "" {
					vars["nights_text"] = nights + " nights"
				} else {
					vars["nights_text"] = "a flexible number of nights"
				}
				if budget := vars["budget"]; budget != "" {
					vars["budget_text"] = fmt.Sprintf("Keep the nightly rate under %s USD.", budget)
				} else {
					vars["budget_text"] = "There is no hard nightly budget."
				}
			},
		},
		{
			Name:        "trip_budget_review",
			Description: "Review existing bookings against a budget",
			Arguments: []Argument{
				{Name: "budget", Description: "Total budget in USD", Required: true},
			},
			Text: "Review the tenant's current bookings with list_bookings and compare the " +
				"total spend against a budget of {{budget}} USD. Flag anything that looks " +
				"out of policy and suggest cancellations if the budget is exceeded.",
		},
	}
}

// Find returns the template with the given name.
func Find(catalog []*Template, name string) (*Template, bool) {
	for _, t := range catalog {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}
