// Package render turns a parsed table or hierarchy into output documents:
// one JSON tree, or one Markdown note per row.
package render

import (
	"strings"

	"github.com/salmonumbrella/csvnotes/internal/apperr"
)

// Format is a conversion target.
type Format string

const (
	// FormatJSON writes a single nested JSON document.
	FormatJSON Format = "json"
	// FormatMarkdown writes one note per row with YAML frontmatter.
	FormatMarkdown Format = "markdown"
	// FormatDataview is FormatMarkdown plus type and tags fields.
	FormatDataview Format = "dataview"
)

// Formats lists every supported target, in help order.
var Formats = []Format{FormatJSON, FormatMarkdown, FormatDataview}

// ParseFormat converts a string to a Format. Empty defaults to json; "md" is
// accepted for markdown.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	case FormatDataview:
		return FormatDataview, nil
	default:
		return "", apperr.Configf("invalid format %q (expected json|markdown|dataview)", s)
	}
}

// IsNotes reports whether f writes one file per row.
func (f Format) IsNotes() bool {
	return f == FormatMarkdown || f == FormatDataview
}
