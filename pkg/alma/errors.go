package alma

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	jsoniter "github.com/json-iterator/go"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/constants"
)

// Common static errors that can be wrapped with context.
var (
	ErrInsufficientParameters = errors.New("insufficient construction parameters")
	ErrApplication            = errors.New("remote application error")
	ErrTransportExhausted     = errors.New("transport retries exhausted")
	ErrQuotaExhausted         = errors.New("remaining API quota below threshold")
	ErrKeyNotFound            = errors.New("no corresponding API key found")
	ErrSnapshotNotFound       = errors.New("snapshot not found")
	ErrEntityInError          = errors.New("entity is in error state")
	ErrNoPayload              = errors.New("entity has no payload")
	ErrInvalidEnvironment     = errors.New("invalid environment")
	ErrPathNotFound           = errors.New("path not found in payload")
	ErrConfigRequired         = errors.New("config is required")
	ErrUnknownFormat          = errors.New("unknown payload format")
	ErrSetNotFound            = errors.New("no set found with this name")
	ErrMemberCountUnavailable = errors.New("member count not available")
)

// ErrorKind classifies an entity failure.
type ErrorKind int

const (
	// KindConstruction marks missing identifying parameters, detected before any I/O.
	KindConstruction ErrorKind = iota
	// KindApplication marks a well-formed non-success response.
	KindApplication
	// KindLocalIO marks a local file failure.
	KindLocalIO
	// KindConfiguration marks a request that could not be built locally, such
	// as a missing API key.
	KindConfiguration
)

func (k ErrorKind) String() string {
	switch k {
	case KindConstruction:
		return "construction"
	case KindApplication:
		return "application"
	case KindConfiguration:
		return "configuration"
	default:
		return "local I/O"
	}
}

// EntityError is the error state of an entity.
type EntityError struct {
	Kind       ErrorKind
	Entity     string
	Op         string
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *EntityError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s - %d: %s / %s", e.Entity, e.StatusCode, e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %s / %s", e.Entity, e.Op, e.Message)
}

// Is matches the sentinel of the error kind.
func (e *EntityError) Is(target error) bool {
	switch e.Kind {
	case KindConstruction:
		return target == ErrInsufficientParameters
	case KindApplication:
		return target == ErrApplication
	case KindLocalIO:
		return target == ErrSnapshotNotFound
	case KindConfiguration:
		return target == ErrKeyNotFound
	}

	return false
}

// APIError is one entry of the remote errorList.
type APIError struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
	TrackingID   string `json:"trackingId,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.ErrorCode == "" {
		return e.ErrorMessage
	}

	return fmt.Sprintf("%s (code: %s)", e.ErrorMessage, e.ErrorCode)
}

// ResponseError is the JSON error body returned by the remote service.
type ResponseError struct {
	ErrorsExist bool `json:"errorsExist"`
	ErrorList   struct {
		Error []APIError `json:"error"`
	} `json:"errorList"`
}

// Error implements the error interface for ResponseError.
func (e *ResponseError) Error() string {
	first := e.FirstError()
	if first == nil {
		return constants.UnknownErrorMessage
	}

	return first.Error()
}

// FirstError returns the first error or nil.
func (e *ResponseError) FirstError() *APIError {
	if len(e.ErrorList.Error) > 0 {
		return &e.ErrorList.Error[0]
	}

	return nil
}

// ParseResponseError parses a JSON error body.
func ParseResponseError(data []byte) (*ResponseError, error) {
	var errResp ResponseError

	err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &errResp)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal response error: %w", err)
	}

	return &errResp, nil
}

// ExtractErrorMessage pulls the human-readable message out of an error body.
// JSON is tried when the content type says so, otherwise the namespaced XML
// errorMessage element; anything else yields "unknown error".
func ExtractErrorMessage(contentType string, body []byte) string {
	if contentType == "" {
		return constants.UnknownErrorMessage
	}

	if strings.Contains(contentType, "json") {
		errResp, err := ParseResponseError(body)
		if err != nil {
			return constants.UnknownErrorMessage
		}

		first := errResp.FirstError()
		if first == nil || first.ErrorMessage == "" {
			return constants.UnknownErrorMessage
		}

		return first.ErrorMessage
	}

	return extractXMLErrorMessage(body)
}

func extractXMLErrorMessage(body []byte) string {
	doc := etree.NewDocument()

	_, err := doc.ReadFrom(bytes.NewReader(body))
	if err != nil || doc.Root() == nil {
		return constants.UnknownErrorMessage
	}

	var found string

	walkElements(doc.Root(), func(el *etree.Element) bool {
		if el.Tag == "errorMessage" && el.NamespaceURI() == constants.XMLErrorNamespace {
			found = el.Text()

			return false
		}

		return true
	})

	if found == "" {
		return constants.UnknownErrorMessage
	}

	return found
}

// walkElements visits el and its descendants depth-first until visit returns false.
func walkElements(el *etree.Element, visit func(*etree.Element) bool) bool {
	if !visit(el) {
		return false
	}

	for _, child := range el.ChildElements() {
		if !walkElements(child, visit) {
			return false
		}
	}

	return true
}
