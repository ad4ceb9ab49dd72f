package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/auth"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/constants"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/http"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/snapshot"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
)

// Client implements the alma.Client interface. Every entity it builds shares
// its transport, key store and snapshot store.
type Client struct {
	httpClient *http.Client
	keys       alma.KeyProvider
	snapshots  alma.SnapshotStore
	logger     alma.Logger
	closers    []io.Closer
}

var _ alma.Client = (*Client)(nil)

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *alma.Config, logger alma.Logger) ([]http.Option, error) {
	httpOpts := []http.Option{http.WithLogger(logger)}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.RetryMax < 0 {
		return nil, fmt.Errorf("%w: %d", constants.ErrInvalidRetryCeiling, config.RetryMax)
	}

	if config.RetryMax > 0 || config.RetryDelay > 0 {
		ceiling := constants.DefaultRetryCeiling
		delay := constants.DefaultRetryDelay

		if config.RetryMax > 0 {
			ceiling = config.RetryMax
		}

		if config.RetryDelay > 0 {
			delay = config.RetryDelay
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(ceiling, delay))
	}

	switch {
	case config.RequestInterval < 0:
		httpOpts = append(httpOpts, http.WithRequestInterval(0))
	case config.RequestInterval > 0:
		httpOpts = append(httpOpts, http.WithRequestInterval(config.RequestInterval))
	}

	switch {
	case config.RemainingThreshold < 0:
		httpOpts = append(httpOpts, http.WithRemainingThreshold(0))
	case config.RemainingThreshold > 0:
		httpOpts = append(httpOpts, http.WithRemainingThreshold(config.RemainingThreshold))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.ExitFunc != nil {
		httpOpts = append(httpOpts, http.WithExitFunc(config.ExitFunc))
	}

	return httpOpts, nil
}

// createKeyProvider returns the configured provider or loads the keys file.
// Without KeysFile the path is read from the alma_api_keys environment variable.
func createKeyProvider(config *alma.Config) (alma.KeyProvider, error) {
	if config.Keys != nil {
		return config.Keys, nil
	}

	path := config.KeysFile
	if path == "" {
		path = os.Getenv(constants.KeysFileEnv)
	}

	keys, err := auth.LoadKeyStoreFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading API keys: %w", err)
	}

	return keys, nil
}

// createSnapshotStore returns the configured store or builds the backend
// named by SnapshotBackend. The closer is nil when nothing must be released.
func createSnapshotStore(config *alma.Config, logger alma.Logger) (alma.SnapshotStore, io.Closer, error) {
	if config.Snapshots != nil {
		return config.Snapshots, nil, nil
	}

	switch config.SnapshotBackend {
	case "", constants.SnapshotBackendFile:
		return snapshot.NewFileStore(nil, config.SnapshotRoot, logger), nil, nil
	case constants.SnapshotBackendNATS:
		if config.NATSURL == "" {
			return nil, nil, constants.ErrNATSURLRequired
		}

		bucket := config.NATSBucket
		if bucket == "" {
			bucket = constants.DefaultNATSBucket
		}

		store, err := snapshot.ConnectObjectStore(config.NATSURL, bucket, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting snapshot store: %w", err)
		}

		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", constants.ErrUnknownBackend, config.SnapshotBackend)
	}
}

// New creates a new Alma API client.
func New(_ context.Context, config *alma.Config) (*Client, error) {
	if config == nil {
		return nil, alma.ErrConfigRequired
	}

	logger := config.Logger
	if logger == nil {
		logger = alma.NewSlogLogger(nil)
	}

	baseURL := config.APIEndpoint
	if baseURL == "" {
		baseURL = constants.DefaultAPIEndpoint
	}

	httpOpts, err := createHTTPClientOptions(config, logger)
	if err != nil {
		return nil, err
	}

	keys, err := createKeyProvider(config)
	if err != nil {
		return nil, err
	}

	snapshots, closer, err := createSnapshotStore(config, logger)
	if err != nil {
		return nil, err
	}

	client := &Client{
		httpClient: http.NewClient(baseURL, keys, httpOpts...),
		keys:       keys,
		snapshots:  snapshots,
		logger:     logger,
	}

	if closer != nil {
		client.closers = append(client.closers, closer)
	}

	return client, nil
}

// Snapshots returns the store used by Save.
func (c *Client) Snapshots() alma.SnapshotStore {
	return c.snapshots
}

// Close releases the snapshot backend connection, if any.
func (c *Client) Close() error {
	var errs []error

	for _, closer := range c.closers {
		err := closer.Close()
		if err != nil {
			errs = append(errs, err)
		}
	}

	c.closers = nil

	return errors.Join(errs...)
}
