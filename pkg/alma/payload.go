package alma

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	jsoniter "github.com/json-iterator/go"
)

// Payload is the parsed in-memory representation of a remote record. It is
// either an *XMLPayload or a *JSONPayload and owns its tree exclusively: an
// entity that needs its own copy takes Clone().
type Payload interface {
	Format() Format
	// Find returns the text found at path.
	Find(path string) (string, bool)
	// Set replaces the value found at path.
	Set(path string, value any) error
	// Bytes returns the compact serialized form sent to the remote service.
	Bytes() []byte
	// String returns the pretty serialized form written to snapshots.
	String() string
	Clone() Payload
}

var payloadJSON = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// ParsePayload parses data according to format.
func ParsePayload(format Format, data []byte) (Payload, error) {
	switch format {
	case FormatXML:
		return ParseXML(data)
	case FormatJSON:
		return ParseJSON(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// XMLPayload wraps hierarchical markup.
type XMLPayload struct {
	doc *etree.Document
}

// ParseXML parses an XML document, dropping blank text between elements.
func ParseXML(data []byte) (*XMLPayload, error) {
	doc := etree.NewDocument()

	_, err := doc.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing xml payload: %w", err)
	}

	if doc.Root() == nil {
		return nil, fmt.Errorf("parsing xml payload: %w", ErrNoPayload)
	}

	stripBlankText(doc.Root())

	return &XMLPayload{doc: doc}, nil
}

// NewXMLPayload wraps doc. The payload takes ownership of doc.
func NewXMLPayload(doc *etree.Document) *XMLPayload {
	return &XMLPayload{doc: doc}
}

func (p *XMLPayload) Format() Format {
	return FormatXML
}

// Document exposes the tree for structural edits.
func (p *XMLPayload) Document() *etree.Document {
	return p.doc
}

// Root returns the root element.
func (p *XMLPayload) Root() *etree.Element {
	return p.doc.Root()
}

// Element returns the first element matching the etree path.
func (p *XMLPayload) Element(path string) *etree.Element {
	return p.doc.FindElement(path)
}

// Elements returns every element matching the etree path.
func (p *XMLPayload) Elements(path string) []*etree.Element {
	return p.doc.FindElements(path)
}

// Find accepts etree paths such as ".//record" or "set/type".
func (p *XMLPayload) Find(path string) (string, bool) {
	el := p.doc.FindElement(path)
	if el == nil {
		return "", false
	}

	return el.Text(), true
}

func (p *XMLPayload) Set(path string, value any) error {
	el := p.doc.FindElement(path)
	if el == nil {
		return fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}

	el.SetText(fmt.Sprint(value))

	return nil
}

func (p *XMLPayload) Bytes() []byte {
	data, err := p.doc.WriteToBytes()
	if err != nil {
		return nil
	}

	return data
}

func (p *XMLPayload) String() string {
	pretty := p.doc.Copy()
	pretty.Indent(2)

	data, err := pretty.WriteToString()
	if err != nil {
		return ""
	}

	return data
}

func (p *XMLPayload) Clone() Payload {
	return &XMLPayload{doc: p.doc.Copy()}
}

// stripBlankText removes whitespace-only text between child elements.
func stripBlankText(el *etree.Element) {
	if len(el.ChildElements()) > 0 {
		var blanks []etree.Token

		for _, token := range el.Child {
			if cd, ok := token.(*etree.CharData); ok && strings.TrimSpace(cd.Data) == "" {
				blanks = append(blanks, cd)
			}
		}

		for _, token := range blanks {
			el.RemoveChild(token)
		}
	}

	for _, child := range el.ChildElements() {
		stripBlankText(child)
	}
}

// JSONPayload wraps key/value data.
type JSONPayload struct {
	content map[string]any
}

// ParseJSON parses a JSON object.
func ParseJSON(data []byte) (*JSONPayload, error) {
	content := map[string]any{}

	err := payloadJSON.Unmarshal(data, &content)
	if err != nil {
		return nil, fmt.Errorf("parsing json payload: %w", err)
	}

	// null decodes to a nil map
	if content == nil {
		return nil, fmt.Errorf("parsing json payload: %w", ErrNoPayload)
	}

	return &JSONPayload{content: content}, nil
}

// NewJSONPayload builds a payload from a value encodable as a JSON object.
// The value is re-parsed so the payload never aliases caller data.
func NewJSONPayload(value any) (*JSONPayload, error) {
	data, err := payloadJSON.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encoding json payload: %w", err)
	}

	return ParseJSON(data)
}

func (p *JSONPayload) Format() Format {
	return FormatJSON
}

// Content exposes the decoded object for structural edits.
func (p *JSONPayload) Content() map[string]any {
	return p.content
}

// Get returns the raw value at a slash separated path ("user_group/value",
// "user_note/0/note_text").
func (p *JSONPayload) Get(path string) (any, bool) {
	var current any = p.content

	for _, key := range splitPath(path) {
		switch node := current.(type) {
		case map[string]any:
			value, ok := node[key]
			if !ok {
				return nil, false
			}

			current = value
		case []any:
			index, err := strconv.Atoi(key)
			if err != nil || index < 0 || index >= len(node) {
				return nil, false
			}

			current = node[index]
		default:
			return nil, false
		}
	}

	return current, true
}

func (p *JSONPayload) Find(path string) (string, bool) {
	value, ok := p.Get(path)
	if !ok {
		return "", false
	}

	switch v := value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	case nil:
		return "", false
	default:
		return "", false
	}
}

// Set creates intermediate objects when missing.
func (p *JSONPayload) Set(path string, value any) error {
	keys := splitPath(path)
	if len(keys) == 0 {
		return fmt.Errorf("%w: %q", ErrPathNotFound, path)
	}

	current := p.content

	for _, key := range keys[:len(keys)-1] {
		next, ok := current[key].(map[string]any)
		if !ok {
			if _, exists := current[key]; exists {
				return fmt.Errorf("%w: %s", ErrPathNotFound, path)
			}

			next = map[string]any{}
			current[key] = next
		}

		current = next
	}

	current[keys[len(keys)-1]] = value

	return nil
}

func (p *JSONPayload) Bytes() []byte {
	data, err := payloadJSON.Marshal(p.content)
	if err != nil {
		return nil
	}

	return data
}

func (p *JSONPayload) String() string {
	data, err := payloadJSON.MarshalIndent(p.content, "", "  ")
	if err != nil {
		return ""
	}

	return string(data)
}

func (p *JSONPayload) Clone() Payload {
	clone, err := ParseJSON(p.Bytes())
	if err != nil {
		return &JSONPayload{content: map[string]any{}}
	}

	return clone
}

func splitPath(path string) []string {
	parts := strings.Split(strings.Trim(path, "/"), "/")

	keys := parts[:0]
	for _, part := range parts {
		if part != "" {
			keys = append(keys, part)
		}
	}

	return keys
}
