package schema

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

// Format is the detected shape of a definition document.
type Format string

const (
	// FormatDefinition is a native form definition in YAML or JSON.
	FormatDefinition Format = "definition"
	// FormatOpenAPI is an OpenAPI 3 document whose component schemas
	// describe forms.
	FormatOpenAPI Format = "openapi"
)

// Document wraps a raw definition payload and its origin.
type Document struct {
	source Source
	raw    []byte
	format Format
}

// NewDocument constructs a Document and detects its format.
func NewDocument(src Source, raw []byte) (Document, error) {
	if src == nil {
		return Document{}, errors.New("schema: source is required")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return Document{}, errors.New("schema: raw document is empty")
	}

	clone := append([]byte(nil), raw...)
	return Document{source: src, raw: clone, format: detectFormat(clone)}, nil
}

// MustNewDocument panics if the document cannot be created.
func MustNewDocument(src Source, raw []byte) Document {
	doc, err := NewDocument(src, raw)
	if err != nil {
		panic(err)
	}
	return doc
}

// Source returns the origin of the document.
func (d Document) Source() Source {
	return d.source
}

// Raw returns a copy of the payload.
func (d Document) Raw() []byte {
	return append([]byte(nil), d.raw...)
}

// Format reports whether the payload is a native definition or OpenAPI.
func (d Document) Format() Format {
	return d.format
}

// Location returns the string identifier for the origin.
func (d Document) Location() string {
	if d.source == nil {
		return ""
	}
	return d.source.Location()
}

func detectFormat(raw []byte) Format {
	var probe struct {
		OpenAPI string `yaml:"openapi"`
	}
	if err := yaml.Unmarshal(raw, &probe); err == nil && probe.OpenAPI != "" {
		return FormatOpenAPI
	}
	return FormatDefinition
}
