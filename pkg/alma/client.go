package alma

import (
	"context"
	"time"

	"github.com/beevik/etree"
)

// Entity is a remote-backed record. Its payload is fetched on first use and
// cached; any failed operation puts it in error state, after which mutating
// operations are skipped and return the receiver unchanged.
type Entity interface {
	// String returns a short reference used in logs, e.g. IzBib('991...', 'UBS', 'P').
	String() string
	Zone() Zone
	Environment() Environment
	Format() Format

	// Data returns the cached payload or fetches it once.
	Data(ctx context.Context) (Payload, error)
	// SetData overwrites the cached payload, also in error state.
	SetData(p Payload)

	HasError() bool
	ErrorMessage() string
	// Err returns the *EntityError of the error state or nil.
	Err() error
	// ResetError clears the error state.
	ResetError()
}

// Bib is a bibliographic record.
type Bib interface {
	Entity
	MMSID() string
	// RecordMMSID reads controlfield 001.
	RecordMMSID(ctx context.Context) (string, error)
	SortFields(ctx context.Context) Bib
	AddFields(ctx context.Context, fields ...*etree.Element) Bib
	Update(ctx context.Context) Bib
	Save(ctx context.Context) Bib
}

// IzBib is a bibliographic record of an institution zone.
type IzBib interface {
	Bib
	NZMMSID(ctx context.Context) (string, error)
	LocalFields(ctx context.Context) ([]*etree.Element, error)
	Delete(ctx context.Context) Bib
	// Holdings lists the holdings of the record, fetched once and cached.
	Holdings(ctx context.Context) ([]Holding, error)
	InvalidateHoldings()
}

// Holding is a holding record attached to a bibliographic record of an
// institution zone.
type Holding interface {
	Entity
	MMSID() string
	HoldingID() string
	// Library reads 852$b.
	Library(ctx context.Context) (string, error)
	// Location reads 852$c.
	Location(ctx context.Context) (string, error)
	// CallNumber reads 852$h.
	CallNumber(ctx context.Context) (string, error)
	SetLibrary(ctx context.Context, code string) Holding
	SetLocation(ctx context.Context, code string) Holding
	SetCallNumber(ctx context.Context, callNumber string) Holding
	// Items lists the items of the holding, fetched once and cached.
	Items(ctx context.Context) ([]Item, error)
	InvalidateItems()
	Update(ctx context.Context) Holding
	// Delete removes the holding. With force its items are deleted first.
	Delete(ctx context.Context, force bool) Holding
	Save(ctx context.Context) Holding
}

// NewHolding is a holding payload not yet created under its bibliographic record.
type NewHolding interface {
	Entity
	Create(ctx context.Context) Holding
}

// Item is a physical item of a holding.
type Item interface {
	Entity
	MMSID() string
	HoldingID() string
	ItemID() string
	Barcode(ctx context.Context) (string, error)
	SetBarcode(ctx context.Context, barcode string) Item
	Update(ctx context.Context) Item
	Delete(ctx context.Context) Item
	Save(ctx context.Context) Item
}

// NewItem is an item payload not yet created under its holding.
type NewItem interface {
	Entity
	Create(ctx context.Context) Item
}

// NzBib is a bibliographic record of the network zone.
type NzBib interface {
	Bib
}

// User is a patron or staff account.
type User interface {
	Entity
	PrimaryID() string
	SetPassword(ctx context.Context, password string) User
	Update(ctx context.Context, override string) User
	Save(ctx context.Context) User
	Delete(ctx context.Context) User
}

// NewUser is a user payload not yet created remotely.
type NewUser interface {
	Entity
	Create(ctx context.Context) User
}

// Collection is a collection of bibliographic records.
type Collection interface {
	Entity
	PID() string
	Bibs(ctx context.Context) ([]Member, error)
	AddBib(ctx context.Context, mmsID string) Collection
	RemoveBib(ctx context.Context, mmsID string) Collection
	InvalidateMembers()
	Save(ctx context.Context) Collection
}

// RecSet is a set of records. Its dynamic type is chosen at construction:
// a LogicalSet or an ItemizedSet when a payload was supplied, a generic set
// otherwise.
type RecSet interface {
	Entity
	ID() string
	Name() string
	Kind() SetKind
	State() SetState
	SetType(ctx context.Context) (string, error)
	ContentType(ctx context.Context) (string, error)
	MemberCount(ctx context.Context) (int, error)
	Members(ctx context.Context) ([]Member, error)
	InvalidateMembers()
	Delete(ctx context.Context) RecSet
	Save(ctx context.Context) RecSet
}

// LogicalSet is a set defined by a query.
type LogicalSet interface {
	RecSet
	Query(ctx context.Context) (string, error)
}

// ItemizedSet is a set with explicit members.
type ItemizedSet interface {
	RecSet
	AddMembers(ctx context.Context, ids []string, failOnInvalidID bool) ItemizedSet
	RemoveMembers(ctx context.Context, ids []string, failOnInvalidID bool) ItemizedSet
}

// NewSet is a set payload not yet created remotely.
type NewSet interface {
	Entity
	Create(ctx context.Context) RecSet
}

// LogicalSetSpec describes a logical set to create.
type LogicalSetSpec struct {
	Name        string
	Description string
	Query       string
	Owner       string
	Private     bool
}

// ItemizedSetSpec describes an itemized set to create. When FromLogicalSet is
// set, the new set is filled with its members and Content is ignored.
type ItemizedSetSpec struct {
	Name           string
	Description    string
	Content        string
	Owner          string
	Private        bool
	FromLogicalSet RecSet
}

// SnapshotStore writes versioned copies of payloads and reads them back.
type SnapshotStore interface {
	Save(ctx context.Context, p Payload, basePath string) (string, error)
	Latest(ctx context.Context, dir, prefix string) (Payload, error)
}

// EntityOptions holds the optional construction parameters of an entity.
type EntityOptions struct {
	Data    Payload
	SetID   string
	SetName string
}

// EntityOption sets an optional construction parameter.
type EntityOption func(*EntityOptions)

// WithData supplies the payload at construction; no fetch happens.
func WithData(p Payload) EntityOption {
	return func(o *EntityOptions) {
		o.Data = p
	}
}

// WithSetID addresses a set by id.
func WithSetID(id string) EntityOption {
	return func(o *EntityOptions) {
		o.SetID = id
	}
}

// WithSetName addresses a set by name; the id is looked up on first fetch.
func WithSetName(name string) EntityOption {
	return func(o *EntityOptions) {
		o.SetName = name
	}
}

// ApplyEntityOptions folds opts into an EntityOptions value.
func ApplyEntityOptions(opts ...EntityOption) EntityOptions {
	var options EntityOptions
	for _, opt := range opts {
		opt(&options)
	}

	return options
}

// Client builds entities bound to one transport and one key store.
type Client interface {
	IzBib(mmsID string, zone Zone, env Environment, opts ...EntityOption) IzBib
	NzBib(mmsID string, env Environment, opts ...EntityOption) NzBib
	User(primaryID string, zone Zone, env Environment, opts ...EntityOption) User
	NewUser(zone Zone, env Environment, data Payload) NewUser
	Collection(pid string, zone Zone, env Environment) Collection
	RecSet(zone Zone, env Environment, opts ...EntityOption) RecSet
	NewLogicalSet(zone Zone, env Environment, spec LogicalSetSpec) NewSet
	NewItemizedSet(zone Zone, env Environment, spec ItemizedSetSpec) NewSet
	NewSetFromData(zone Zone, env Environment, data Payload) NewSet

	Holding(mmsID, holdingID string, zone Zone, env Environment, opts ...EntityOption) Holding
	NewHolding(mmsID string, zone Zone, env Environment, data Payload) NewHolding
	Item(mmsID, holdingID, itemID string, zone Zone, env Environment, opts ...EntityOption) Item
	// ItemByBarcode looks the item up by barcode on first fetch.
	ItemByBarcode(barcode string, zone Zone, env Environment) Item
	NewItem(mmsID, holdingID string, zone Zone, env Environment, data Payload) NewItem

	// FetchUsers searches users; zone "all" searches every institution zone.
	FetchUsers(ctx context.Context, query string, zone Zone, env Environment) ([]User, error)

	Snapshots() SnapshotStore

	// Close releases the snapshot backend connection, if any.
	Close() error
}

// KeyProvider returns the API key for a zone, an API area, a permission and an environment.
type KeyProvider interface {
	GetKey(zone Zone, area string, permission Permission, env Environment) (string, error)
	IZCodes() []Zone
}

// Config represents client configuration.
//
// Keys are resolved from Keys when set, otherwise loaded once from KeysFile
// (JSON or YAML). Transport failures are retried RetryMax times in total with
// a fixed RetryDelay; after that the process is terminated through ExitFunc.
type Config struct {
	// APIEndpoint: base URL of the remote API. Defaults to the EU endpoint.
	APIEndpoint string

	// KeysFile: path to the API keys file.
	KeysFile string
	// Keys: preloaded key provider; takes precedence over KeysFile.
	Keys KeyProvider

	// RetryMax: total attempts on transport failures. Defaults to 3.
	RetryMax int
	// RetryDelay: fixed wait between attempts. Defaults to 3s.
	RetryDelay time.Duration
	// RequestInterval: wait before each attempt. Defaults to 40ms; negative disables.
	RequestInterval time.Duration
	// RemainingThreshold: terminate when X-Exl-Api-Remaining falls below it. 0 uses
	// the default of 5000; negative disables the check.
	RemainingThreshold int
	// HTTPTimeout: timeout of a single attempt.
	HTTPTimeout time.Duration
	// ExitFunc: called after exhausted retries. Defaults to os.Exit.
	ExitFunc func(code int)

	// Debug: enables request/response logging.
	Debug bool
	// Logger: structured logger; defaults to slog.Default().
	Logger Logger
	// UserAgent: overrides the default User-Agent header.
	UserAgent string

	// SnapshotRoot: directory of saved records. Defaults to "records".
	SnapshotRoot string
	// SnapshotBackend: "file" (default) or "nats".
	SnapshotBackend string
	// NATSURL and NATSBucket configure the nats snapshot backend.
	NATSURL    string
	NATSBucket string
	// Snapshots: preconfigured store; takes precedence over SnapshotBackend.
	Snapshots SnapshotStore
}
