// Package almaclient provides the main entry point for creating Alma API clients
package almaclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/client"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
)

// New creates a new Alma API client.
func New(ctx context.Context, config *alma.Config) (alma.Client, error) {
	if config == nil {
		return nil, alma.ErrConfigRequired
	}

	config.APIEndpoint = normalizeEndpoint(config.APIEndpoint)

	client, err := client.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return client, nil
}

// normalizeEndpoint trims the trailing slash and defaults the scheme to https.
// An empty endpoint stays empty and selects the default one.
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSuffix(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return ""
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	return endpoint
}

// NewWithKeysFile creates a client with the default endpoint and the keys of path.
func NewWithKeysFile(ctx context.Context, path string) (alma.Client, error) {
	return New(ctx, &alma.Config{
		KeysFile: path,
	})
}

// NewFromConfigFile loads the configuration with LoadConfig, then creates the client.
func NewFromConfigFile(ctx context.Context, path string) (alma.Client, error) {
	config, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	return New(ctx, config)
}
