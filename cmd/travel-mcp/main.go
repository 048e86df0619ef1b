// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

// Command travel-mcp runs the multi-tenant travel MCP server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tripstack/travel-mcp/internal/auth"
	"github.com/tripstack/travel-mcp/internal/config"
	"github.com/tripstack/travel-mcp/internal/httpserver"
	"github.com/tripstack/travel-mcp/internal/log"
	"github.com/tripstack/travel-mcp/internal/mcp"
	"github.com/tripstack/travel-mcp/internal/prompts"
	"github.com/tripstack/travel-mcp/internal/store"
	"github.com/tripstack/travel-mcp/internal/tenant"
	"github.com/tripstack/travel-mcp/internal/tools"
	"github.com/tripstack/travel-mcp/internal/version"
)

const serverName = "travel-mcp"

func main() {
	root := &cobra.Command{
		Use:           serverName,
		Short:         "Multi-tenant travel MCP server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Get(serverName)
			fmt.Printf("%s %s (%s, built %s, %s)\n",
				info.Name, info.Version, info.GitCommit, info.BuildDate, info.GoVersion)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := log.New(cfg.LogLevel)
	if err != nil {
		return err
	}

	if cfg.IDPUserPoolID == "" {
		logger.Warnf("IDP_USER_POOL_ID is not set: tokens will be decoded but never verified (local development only)")
	}

	verifier := auth.NewVerifier(auth.VerifierOptions{
		JWKSURL:  cfg.JWKSURL(),
		Issuer:   cfg.Issuer(),
		ClientID: cfg.IDPClientID,
		Logger:   logger,
	})

	vendor, err := tenant.NewVendor(ctx, cfg.IDPRegion, cfg.RoleARN, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize credential vendor: %w", err)
	}

	deps := &tools.Deps{
		Logger:   logger,
		Vendor:   vendor,
		Bookings: store.NewBookings(cfg.TableName, cfg.IDPRegion, logger),
		Policies: store.NewPolicyStore(cfg.BucketName, cfg.IDPRegion, logger),
		Catalog:  prompts.Catalog(),
	}

	server := httpserver.New(httpserver.Options{
		Config:        cfg,
		Logger:        logger,
		Verifier:      verifier,
		BuildRegistry: deps.BuildRegistry,
		PublicTools:   tools.PublicToolNames(),
		ServerInfo: mcp.Implementation{
			Name:    serverName,
			Version: version.Version,
		},
	})

	logger.Infof("starting %s %s on port %d", serverName, version.Version, cfg.Port)
	return server.ListenAndServe()
}
