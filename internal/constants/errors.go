package constants

import "errors"

// Configuration errors.
var (
	ErrAPIEndpointRequired = errors.New("API endpoint is required")
	ErrKeysFileRequired    = errors.New("no API keys file configured")
	ErrInvalidRetryCeiling = errors.New("retry ceiling must be at least 1")
	ErrUnknownBackend      = errors.New("unknown snapshot backend")
	ErrNATSURLRequired     = errors.New("NATS URL is required for the nats snapshot backend")
)

// Key store errors.
var (
	ErrUnsupportedKeysFormat = errors.New("unsupported API keys file format")
)

// File system errors.
var (
	ErrMissingExtension           = errors.New("snapshot path has no file extension")
	ErrDirectoryTraversalDetected = errors.New("directory traversal detected in file path")
)

// CLI errors.
var (
	ErrSetSelectorRequired = errors.New("either --id or --name is required")
	ErrUnknownOutputFormat = errors.New("unknown output format")
)
