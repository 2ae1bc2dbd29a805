package output

import (
	"strings"

	"github.com/salmonumbrella/csvnotes/internal/apperr"
)

// Format represents the output format type.
type Format string

const (
	// FormatText is human-readable output (default on a terminal).
	FormatText Format = "text"
	// FormatJSON is pretty-printed JSON.
	FormatJSON Format = "json"
	// FormatNDJSON is one JSON value per line.
	FormatNDJSON Format = "ndjson"
	// FormatTable is aligned columns for lists.
	FormatTable Format = "table"
	// FormatYAML is YAML.
	FormatYAML Format = "yaml"
)

// ParseFormat converts a string to a Format. Empty defaults to text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatNDJSON:
		return FormatNDJSON, nil
	case FormatTable:
		return FormatTable, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		return "", apperr.Validationf("invalid --output format %q (expected text|json|ndjson|table|yaml)", s)
	}
}

// IsStructured reports whether the format is machine-readable.
func IsStructured(format Format) bool {
	switch format {
	case FormatJSON, FormatNDJSON, FormatYAML:
		return true
	default:
		return false
	}
}
