// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultPort is used when PORT is not set.
	DefaultPort = 3000

	// DefaultLogLevel is used when LOG_LEVEL is not set.
	DefaultLogLevel = "info"
)

// Config holds all runtime configuration for the server.
//
// The identity-provider block (IDP_*) binds the JWT verifier to a Cognito
// user pool. When UserPoolID is empty the verifier runs in decode-only mode
// and never marks a caller as verified; that mode exists for local
// development only.
type Config struct {
	// HTTP listener.
	Port int `mapstructure:"port"`

	// Logging.
	LogLevel string `mapstructure:"log_level"`

	// Identity provider binding.
	IDPUserPoolID string `mapstructure:"idp_user_pool_id"`
	IDPClientID   string `mapstructure:"idp_client_id"`
	IDPRegion     string `mapstructure:"idp_region"`

	// Downstream data plane.
	RoleARN    string `mapstructure:"role_arn"`
	TableName  string `mapstructure:"table_name"`
	BucketName string `mapstructure:"bucket_name"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", DefaultPort)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("idp_region", "us-east-1")

	// AutomaticEnv alone does not populate Unmarshal; bind each key explicitly.
	for _, key := range []string{
		"port", "log_level",
		"idp_user_pool_id", "idp_client_id", "idp_region",
		"role_arn", "table_name", "bucket_name",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	return &cfg, nil
}

// JWKSURL returns the well-known JWKS document URL for the configured pool,
// or empty when no user pool is configured.
func (c *Config) JWKSURL() string {
	if c.IDPUserPoolID == "" {
		return ""
	}
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s/.well-known/jwks.json",
		c.IDPRegion, c.IDPUserPoolID)
}

// Issuer returns the expected iss claim for tokens minted by the configured
// pool, or empty when no user pool is configured.
func (c *Config) Issuer() string {
	if c.IDPUserPoolID == "" {
		return ""
	}
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.IDPRegion, c.IDPUserPoolID)
}
