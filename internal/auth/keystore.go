package auth

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/constants"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
)

// SupportedAPI is one area/permission/environment triple a key grants.
type SupportedAPI struct {
	Area        string `json:"Area"        yaml:"Area"`
	Permissions string `json:"Permissions" yaml:"Permissions"`
	Env         string `json:"Env"         yaml:"Env"`
}

// APIKey is a key and the APIs it grants.
type APIKey struct {
	Key           string         `json:"API_Key"        yaml:"API_Key"`
	SupportedAPIs []SupportedAPI `json:"Supported_APIs" yaml:"Supported_APIs"`
}

// KeyStore maps zone codes to their API keys. It is loaded once and
// read-only afterwards, so it can be shared by any number of entities.
type KeyStore struct {
	keys map[string][]APIKey
}

// NewKeyStore builds a store from already decoded keys.
func NewKeyStore(keys map[string][]APIKey) *KeyStore {
	copied := make(map[string][]APIKey, len(keys))
	for zone, zoneKeys := range keys {
		copied[zone] = append([]APIKey(nil), zoneKeys...)
	}

	return &KeyStore{keys: copied}
}

// LoadKeyStore reads a keys file from fs. Files ending in .yaml or .yml are
// decoded as YAML, anything else as JSON.
func LoadKeyStore(fs afero.Fs, path string) (*KeyStore, error) {
	if path == "" {
		return nil, constants.ErrKeysFileRequired
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading API keys file: %w", err)
	}

	keys := map[string][]APIKey{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &keys)
	case ".json", "":
		err = jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &keys)
	default:
		return nil, fmt.Errorf("%w: %s", constants.ErrUnsupportedKeysFormat, path)
	}

	if err != nil {
		return nil, fmt.Errorf("decoding API keys file %s: %w", path, err)
	}

	return &KeyStore{keys: keys}, nil
}

// LoadKeyStoreFile reads a keys file from the OS filesystem.
func LoadKeyStoreFile(path string) (*KeyStore, error) {
	return LoadKeyStore(afero.NewOsFs(), path)
}

// GetKey returns the first key of zone granting exactly area, permission and
// env. A read request falls back to a read-write key of the same area.
func (s *KeyStore) GetKey(zone alma.Zone, area string, permission alma.Permission, env alma.Environment) (string, error) {
	if key, ok := s.find(zone, area, permission, env); ok {
		return key, nil
	}

	if permission == alma.ReadOnly {
		if key, ok := s.find(zone, area, alma.ReadWrite, env); ok {
			return key, nil
		}
	}

	return "", fmt.Errorf("%w: zone %s, area %s, permission %s, env %s", alma.ErrKeyNotFound, zone, area, permission, env)
}

func (s *KeyStore) find(zone alma.Zone, area string, permission alma.Permission, env alma.Environment) (string, bool) {
	for _, key := range s.keys[string(zone)] {
		for _, api := range key.SupportedAPIs {
			if api.Area == area && api.Permissions == string(permission) && api.Env == string(env) {
				return key.Key, true
			}
		}
	}

	return "", false
}

// IZCodes returns every institution zone code, sorted.
func (s *KeyStore) IZCodes() []alma.Zone {
	codes := make([]alma.Zone, 0, len(s.keys))

	for zone := range s.keys {
		if zone != constants.NetworkZone {
			codes = append(codes, alma.Zone(zone))
		}
	}

	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	return codes
}
