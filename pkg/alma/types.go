package alma

import (
	"fmt"
	"strings"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/constants"
)

// Zone is a logical partition of the remote data: an institution zone code
// (for example "UBS") or the network zone "NZ".
type Zone string

// NetworkZone is the network-scoped zone.
const NetworkZone Zone = constants.NetworkZone

// IsNetwork reports whether the zone is the network zone.
func (z Zone) IsNetwork() bool {
	return z == NetworkZone
}

// Environment selects the production or the sandbox instance.
type Environment string

const (
	Production Environment = "P"
	Sandbox    Environment = "S"
)

// ParseEnvironment accepts "P", "S", "production" or "sandbox" (case-insensitive).
func ParseEnvironment(value string) (Environment, error) {
	switch strings.ToLower(value) {
	case "p", "production", "":
		return Production, nil
	case "s", "sandbox":
		return Sandbox, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidEnvironment, value)
	}
}

// Format is the wire shape of a payload.
type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

// Extension returns the file extension used for snapshots of this format.
func (f Format) Extension() string {
	return string(f)
}

// MediaType returns the HTTP media type of the format.
func (f Format) MediaType() string {
	return "application/" + string(f)
}

// Permission is the access level requested from the key store.
type Permission string

const (
	ReadOnly  Permission = "R"
	ReadWrite Permission = "RW"
)

// SetKind is the concrete variant of a set chosen at construction time.
type SetKind int

const (
	// SetKindGeneric is a handle built without payload; it never changes after fetch.
	SetKindGeneric SetKind = iota
	SetKindLogical
	SetKindItemized
)

func (k SetKind) String() string {
	switch k {
	case SetKindLogical:
		return "LogicalSet"
	case SetKindItemized:
		return "ItemizedSet"
	default:
		return "RecSet"
	}
}

// SetState tracks how much of a set is known locally.
type SetState int

const (
	// SetUnresolved has no id, no name and no payload.
	SetUnresolved SetState = iota
	// SetNamed knows the name only.
	SetNamed
	// SetIdentified knows the id.
	SetIdentified
	// SetPopulated holds the full payload and the member count.
	SetPopulated
)

func (s SetState) String() string {
	switch s {
	case SetNamed:
		return "named"
	case SetIdentified:
		return "identified"
	case SetPopulated:
		return "populated"
	default:
		return "unresolved"
	}
}

// Member maps a remote identifier of a set or collection to a typed entity.
// Entity is nil when the content type has no mapping.
type Member struct {
	ID     string
	Entity Entity
}
