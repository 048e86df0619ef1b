// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

// Package version carries build metadata stamped in via -ldflags.
package version

import "runtime"

var (
	// Version is the semantic version of the binary.
	Version = "0.0.0-dev"

	// GitCommit is the short commit hash the binary was built from.
	GitCommit = "unknown"

	// BuildDate is the UTC build timestamp in RFC 3339 format.
	BuildDate = "unknown"
)

// Info is the metadata block reported by /health and by initialize.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
}

// Get returns the build metadata for the named server.
func Get(name string) Info {
	return Info{
		Name:      name,
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}
