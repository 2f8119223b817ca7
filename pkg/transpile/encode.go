package transpile

import (
	"fmt"

	"github.com/go-json-experiment/json"
	yaml "github.com/goccy/go-yaml"
)

// Format is a transpile output format name.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnsupportedFormat is returned for any format this package does
// not implement (e.g. "toml" — no TOML encoder is wired in, so it is
// left unsupported rather than hand-rolled against the standard
// library).
var ErrUnsupportedFormat = fmt.Errorf("transpile: unsupported format")

// Encode renders doc in the requested format.
func Encode(doc *Document, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.Marshal(doc, json.Deterministic(true))
	case FormatYAML:
		return yaml.Marshal(doc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
