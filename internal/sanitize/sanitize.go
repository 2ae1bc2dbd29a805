// Package sanitize normalises cell and column text into frontmatter keys,
// tags and file names.
package sanitize

import (
	"regexp"
	"strings"
)

// DefaultFilenameLength bounds generated note names.
const DefaultFilenameLength = 100

var (
	fieldInvalid    = regexp.MustCompile(`[^a-z0-9_-]`)
	underscoreRuns  = regexp.MustCompile(`_+`)
	hyphenRuns      = regexp.MustCompile(`-+`)
	tagInvalid      = regexp.MustCompile(`[^a-z0-9_\s-]`)
	tagSeparators   = regexp.MustCompile(`[\s_]+`)
	filenameInvalid = regexp.MustCompile(`[^\w\s-]`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
)

// FieldName turns a column name into a frontmatter key matching
// ^[a-z0-9_-]+$ with no leading or trailing separator. Input that
// sanitizes to nothing becomes "unknown_field".
func FieldName(s string) string {
	out := strings.ToLower(s)
	out = fieldInvalid.ReplaceAllString(out, "_")
	out = underscoreRuns.ReplaceAllString(out, "_")
	out = strings.Trim(out, "_-")
	if out == "" {
		return "unknown_field"
	}
	return out
}

// TagName turns a value into a tag matching ^[a-z0-9-]*$. The result may be
// empty; callers skip empty tags.
func TagName(s string) string {
	out := strings.ToLower(s)
	out = tagInvalid.ReplaceAllString(out, "")
	out = tagSeparators.ReplaceAllString(out, "-")
	out = hyphenRuns.ReplaceAllString(out, "-")
	return strings.Trim(out, "-")
}

// Filename makes s safe as a file name stem: word characters, hyphens and
// underscores only, cut to max bytes. Empty results become "untitled".
func Filename(s string, max int) string {
	if max <= 0 {
		max = DefaultFilenameLength
	}
	out := filenameInvalid.ReplaceAllString(s, "")
	out = whitespaceRuns.ReplaceAllString(out, "_")
	out = underscoreRuns.ReplaceAllString(out, "_")
	out = strings.Trim(out, "_")
	if len(out) > max {
		out = strings.TrimRight(out[:max], "_-")
	}
	if out == "" {
		return "untitled"
	}
	return out
}

var yamlEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
)

// EscapeYAML escapes s for use inside a double-quoted YAML scalar.
func EscapeYAML(s string) string {
	return yamlEscaper.Replace(s)
}
