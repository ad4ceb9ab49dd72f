package constants

import "time"

// File and directory permissions.
const (
	// RecordsDirPerm is the permission for snapshot directories.
	RecordsDirPerm = 0750

	// RecordsFilePerm is the permission for snapshot files.
	RecordsFilePerm = 0640

	// LogDirPerm is the permission for the process log directory.
	LogDirPerm = 0750
)

// Remote service endpoints.
const (
	// DefaultAPIEndpoint is the Alma API base URL used when none is configured.
	DefaultAPIEndpoint = "https://api-eu.hosted.exlibrisgroup.com/almaws/v1"

	// KeysFileEnv is the legacy environment variable holding the API keys file path.
	KeysFileEnv = "alma_api_keys"
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for a single HTTP attempt.
	DefaultHTTPTimeout = 60 * time.Second

	// ShortHTTPTimeout is used by the CLI for quick lookups.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry and throttling.
const (
	// DefaultRetryCeiling is the total number of attempts made on transport failures.
	DefaultRetryCeiling = 3

	// DefaultRetryDelay is the fixed delay between two attempts.
	DefaultRetryDelay = 3 * time.Second

	// DefaultRequestInterval is waited before every attempt (25 requests per second).
	DefaultRequestInterval = 40 * time.Millisecond

	// DefaultRemainingThreshold stops the process when the daily quota header falls below it.
	DefaultRemainingThreshold = 5000

	// ExitCodeTransport is the process exit code used after exhausted retries.
	ExitCodeTransport = 1
)

// HTTP headers.
const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderAccept        = "Accept"
	HeaderUserAgent     = "User-Agent"
	HeaderAPIRemaining  = "X-Exl-Api-Remaining"

	// AuthorizationScheme prefixes the API key in the Authorization header.
	AuthorizationScheme = "apikey "

	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "almapiwrapper-go"
)

// Pagination.
const (
	// PageSize is the number of members requested per listing call.
	PageSize = 100

	// MaxSearchResults bounds a name lookup on the sets endpoint.
	MaxSearchResults = 100
)

// Remote payload conventions.
const (
	// XMLErrorNamespace is the namespace of errorMessage elements in XML error bodies.
	XMLErrorNamespace = "http://com/exlibris/urm/general/xmlbeans"

	// UnknownErrorMessage is used when no message can be extracted from a response.
	UnknownErrorMessage = "unknown error"

	// NetworkZone is the zone code of the network zone.
	NetworkZone = "NZ"

	// AllZones selects every institution zone known to the key store.
	AllZones = "all"
)

// Set content types and kinds.
const (
	SetTypeItemized = "ITEMIZED"
	SetTypeLogical  = "LOGICAL"

	ContentBibMMS = "BIB_MMS"
	ContentIEP    = "IEP"
	ContentUser   = "USER"
)

// API areas used for key lookup.
const (
	AreaBibs  = "Bibs"
	AreaUsers = "Users"
	AreaConf  = "Conf"
)

// Output formats.
const (
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatTable = "table"
)

// Snapshot storage.
const (
	// DefaultSnapshotRoot is the directory that holds saved records.
	DefaultSnapshotRoot = "records"

	// SnapshotBackendFile stores snapshots on the local filesystem.
	SnapshotBackendFile = "file"

	// SnapshotBackendNATS stores snapshots in a NATS JetStream object store.
	SnapshotBackendNATS = "nats"

	// DefaultNATSBucket is the object store bucket used for snapshots.
	DefaultNATSBucket = "alma-records"

	// VersionWidth is the zero-padded width of the snapshot version suffix.
	VersionWidth = 2
)
