// Package config loads CLI configuration from the environment. A .env file
// in the working directory is folded in first so local development does not
// need exported variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the environment-derived CLI configuration. Flags override these
// values; see the cmd package.
type Config struct {
	// ClientID identifies the OAuth client.
	ClientID string `env:"AUTHFLOW_CLIENT_ID"`

	// ClientSecret authenticates confidential clients. Never logged.
	ClientSecret string `env:"AUTHFLOW_CLIENT_SECRET"`

	// Issuer is the OIDC issuer URL for live discovery.
	Issuer string `env:"AUTHFLOW_ISSUER"`

	// Provider selects a built-in preset instead of live discovery.
	Provider string `env:"AUTHFLOW_PROVIDER"`

	// Scopes are the requested scopes.
	Scopes []string `env:"AUTHFLOW_SCOPES" envSeparator:","`

	// ListenAddr is the loopback callback listener address.
	ListenAddr string `env:"AUTHFLOW_LISTEN_ADDR" envDefault:"127.0.0.1:0"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// Missing .env files are fine; malformed ones are not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}
