// Package render writes parsed debug logs as JSON, YAML or an annotated tree.
package render

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Output formats understood by NewEncoder.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formats lists the accepted output formats.
var Formats = []string{FormatJSON, FormatYAML}

// Encoder writes a stream of documents.
type Encoder interface {
	Encode(v any) error
	// Close flushes anything buffered. It does not close the underlying writer.
	Close() error
}

// NewEncoder returns the encoder for format, writing to w.
func NewEncoder(format string, w io.Writer, pretty bool) (Encoder, error) {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return NewJSONEncoder(w, pretty), nil
	case FormatYAML, "yml":
		return NewYAMLEncoder(w), nil
	default:
		return nil, errors.Errorf("unknown output format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// JSONEncoder writes one JSON document per Encode, newline separated.
type JSONEncoder struct {
	enc *json.Encoder
}

// NewJSONEncoder returns a JSONEncoder. With pretty set, documents are
// indented by two spaces.
func NewJSONEncoder(w io.Writer, pretty bool) *JSONEncoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &JSONEncoder{enc: enc}
}

func (e *JSONEncoder) Encode(v any) error {
	return errors.Wrap(e.enc.Encode(v), "encoding json")
}

func (e *JSONEncoder) Close() error {
	return nil
}

// YAMLEncoder writes YAML documents separated by "---".
type YAMLEncoder struct {
	enc *yaml.Encoder
}

// NewYAMLEncoder returns a YAMLEncoder indenting by two spaces.
func NewYAMLEncoder(w io.Writer) *YAMLEncoder {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return &YAMLEncoder{enc: enc}
}

func (e *YAMLEncoder) Encode(v any) error {
	return errors.Wrap(e.enc.Encode(v), "encoding yaml")
}

func (e *YAMLEncoder) Close() error {
	return errors.Wrap(e.enc.Close(), "flushing yaml")
}
