package almaclient

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/constants"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
)

// Configuration keys, as written in the config file. Every key can be set in
// the environment with the ALMA_ prefix, e.g. ALMA_RETRY_MAX.
const (
	keyAPIEndpoint        = "api_endpoint"
	keyKeysFile           = "keys_file"
	keyRetryMax           = "retry_max"
	keyRetryDelay         = "retry_delay"
	keyRequestInterval    = "request_interval"
	keyRemainingThreshold = "remaining_threshold"
	keyHTTPTimeout        = "http_timeout"
	keyDebug              = "debug"
	keyUserAgent          = "user_agent"
	keySnapshotRoot       = "snapshot_root"
	keySnapshotBackend    = "snapshot_backend"
	keyNATSURL            = "nats_url"
	keyNATSBucket         = "nats_bucket"
)

// NewViper returns a viper instance with the defaults and the environment
// bindings of the client configuration.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix("ALMA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyAPIEndpoint, constants.DefaultAPIEndpoint)
	v.SetDefault(keyRetryMax, constants.DefaultRetryCeiling)
	v.SetDefault(keyRetryDelay, constants.DefaultRetryDelay)
	v.SetDefault(keyRequestInterval, constants.DefaultRequestInterval)
	v.SetDefault(keyRemainingThreshold, constants.DefaultRemainingThreshold)
	v.SetDefault(keyHTTPTimeout, constants.DefaultHTTPTimeout)
	v.SetDefault(keySnapshotRoot, constants.DefaultSnapshotRoot)
	v.SetDefault(keySnapshotBackend, constants.SnapshotBackendFile)
	v.SetDefault(keyNATSBucket, constants.DefaultNATSBucket)

	// The keys file keeps its historical variable name.
	_ = v.BindEnv(keyKeysFile, "ALMA_KEYS_FILE", constants.KeysFileEnv)

	return v
}

// LoadConfig reads a YAML or JSON configuration file. An empty path uses the
// environment and the defaults only.
func LoadConfig(path string) (*alma.Config, error) {
	v := NewViper()

	if path != "" {
		v.SetConfigFile(path)

		err := v.ReadInConfig()
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	return ConfigFromViper(v), nil
}

// ConfigFromViper builds a client configuration from v.
func ConfigFromViper(v *viper.Viper) *alma.Config {
	return &alma.Config{
		APIEndpoint:        v.GetString(keyAPIEndpoint),
		KeysFile:           v.GetString(keyKeysFile),
		RetryMax:           v.GetInt(keyRetryMax),
		RetryDelay:         v.GetDuration(keyRetryDelay),
		RequestInterval:    v.GetDuration(keyRequestInterval),
		RemainingThreshold: v.GetInt(keyRemainingThreshold),
		HTTPTimeout:        v.GetDuration(keyHTTPTimeout),
		Debug:              v.GetBool(keyDebug),
		UserAgent:          v.GetString(keyUserAgent),
		SnapshotRoot:       v.GetString(keySnapshotRoot),
		SnapshotBackend:    v.GetString(keySnapshotBackend),
		NATSURL:            v.GetString(keyNATSURL),
		NATSBucket:         v.GetString(keyNATSBucket),
	}
}
