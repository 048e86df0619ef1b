// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplate_Render(t *testing.T) {
	template := &Template{
		Name: "greeting",
		Arguments: []Argument{
			{Name: "name", Required: true},
			{Name: "mood"},
		},
		Text: "Hello {{name}}, you seem {{mood}}.",
		Synthesize: func(vars map[string]string) {
			if vars["mood"] == "" {
				vars["mood"] = "fine"
			}
		},
	}

	t.Run("substitutes arguments", func(t *testing.T) {
		rendered, err := template.Render(map[string]string{"name": "Ada", "mood": "curious"})
		require.NoError(t, err)
		assert.Equal(t, "Hello Ada, you seem curious.", rendered)
	})

	t.Run("synthetic default for optional argument", func(t *testing.T) {
		rendered, err := template.Render(map[string]string{"name": "Ada"})
		require.NoError(t, err)
		assert.Equal(t, "Hello Ada, you seem fine.", rendered)
	})

	t.Run("missing required argument", func(t *testing.T) {
		_, err := template.Render(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name")
	})

	t.Run("rendering is pure", func(t *testing.T) {
		args := map[string]string{"name": "Ada"}
		first, err := template.Render(args)
		require.NoError(t, err)
		second, err := template.Render(args)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		// The caller's argument map is never mutated.
		assert.NotContains(t, args, "mood")
	})

	t.Run("unknown placeholder renders empty", func(t *testing.T) {
		bare := &Template{Name: "bare", Text: "value: {{missing}}!"}
		rendered, err := bare.Render(nil)
		require.NoError(t, err)
		assert.Equal(t, "value: !", rendered)
	})
}

func TestCatalog(t *testing.T) {
	catalog := Catalog()
	require.NotEmpty(t, catalog)

	names := make(map[string]bool)
	for _, template := range catalog {
		assert.False(t, names[template.Name], "duplicate prompt %s", template.Name)
		names[template.Name] = true
	}
	assert.True(t, names["plan_trip"])
	assert.True(t, names["hotel_deal"])
}

func TestCatalog_PlanTrip(t *testing.T) {
	catalog := Catalog()
	planTrip, ok := Find(catalog, "plan_trip")
	require.True(t, ok)

	t.Run("with budget", func(t *testing.T) {
		rendered, err := planTrip.Render(map[string]string{
			"destination": "Tokyo",
			"start_date":  "2026-09-01",
			"end_date":    "2026-09-05",
			"budget":      "3000",
		})
		require.NoError(t, err)
		assert.Contains(t, rendered, "Tokyo")
		assert.Contains(t, rendered, "3000 USD")
		assert.Contains(t, rendered, "no specific preferences")
		assert.NotContains(t, rendered, "{{")
	})

	t.Run("without budget", func(t *testing.T) {
		rendered, err := planTrip.Render(map[string]string{
			"destination": "Tokyo",
			"start_date":  "2026-09-01",
			"end_date":    "2026-09-05",
		})
		require.NoError(t, err)
		assert.Contains(t, rendered, "No budget limit")
	})

	t.Run("missing required dates", func(t *testing.T) {
		_, err := planTrip.Render(map[string]string{"destination": "Tokyo"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "start_date")
		assert.Contains(t, err.Error(), "end_date")
	})
}

func TestFind(t *testing.T) {
	catalog := Catalog()
	_, ok := Find(catalog, "plan_trip")
	assert.True(t, ok)
	_, ok = Find(catalog, "does_not_exist")
	assert.False(t, ok)
}
