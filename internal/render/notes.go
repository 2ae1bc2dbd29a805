package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/salmonumbrella/csvnotes/internal/hierarchy"
	"github.com/salmonumbrella/csvnotes/internal/sanitize"
	"github.com/salmonumbrella/csvnotes/internal/table"
)

// NotesConfig describes one markdown render.
type NotesConfig struct {
	SourceFile  string
	Structure   []string
	DataColumns []string
	Format      Format
	Generated   time.Time
	FilenameMax int
}

// Note is one rendered row.
type Note struct {
	Filename  string `json:"filename"`
	SourceRow int    `json:"source_row"`
	Content   string `json:"-"`
}

// Notes renders one note per row. Rows are independent: there is no tree
// and duplicate structure values simply produce more files.
func Notes(tbl *table.Table, cfg NotesConfig) []Note {
	keys := FieldKeys(cfg.Structure, cfg.DataColumns, cfg.Format)
	notes := make([]Note, 0, len(tbl.Rows))
	for i, row := range tbl.Rows {
		notes = append(notes, Note{
			Filename:  NoteFilename(row, cfg.Structure, cfg.FilenameMax),
			SourceRow: i + 1,
			Content:   noteContent(row, i+1, cfg, keys),
		})
	}
	return notes
}

// FieldKeys maps each structure and data column to its frontmatter key.
// Columns that sanitize to a key already taken (by an earlier column or by
// source_file, source_row, imported, and for dataview type and tags) get a
// numeric suffix so the frontmatter never repeats a key.
func FieldKeys(structure, dataColumns []string, format Format) map[string]string {
	used := map[string]bool{"source_file": true, "source_row": true, "imported": true}
	if format == FormatDataview {
		used["type"] = true
		used["tags"] = true
	}
	keys := make(map[string]string, len(structure)+len(dataColumns))
	for _, col := range append(append([]string(nil), structure...), dataColumns...) {
		if _, ok := keys[col]; ok {
			continue
		}
		key := sanitize.FieldName(col)
		for n := 2; used[key]; n++ {
			key = fmt.Sprintf("%s_%d", sanitize.FieldName(col), n)
		}
		used[key] = true
		keys[col] = key
	}
	return keys
}

// NoteFilename joins the sanitized structure values with "-" and appends
// ".md". Empty values become Empty_<column>.
func NoteFilename(row table.Row, structure []string, max int) string {
	if max <= 0 {
		max = sanitize.DefaultFilenameLength
	}
	parts := make([]string, 0, len(structure))
	for _, col := range structure {
		v := row.Get(col)
		if v.IsEmpty() {
			parts = append(parts, sanitize.Filename("Empty_"+col, max))
			continue
		}
		parts = append(parts, sanitize.Filename(v.String(), max))
	}
	base := strings.Join(parts, "-")
	if len(base) > max {
		base = strings.TrimRight(base[:max], "_-")
	}
	if base == "" {
		base = "untitled"
	}
	return base + ".md"
}

func noteContent(row table.Row, sourceRow int, cfg NotesConfig, keys map[string]string) string {
	var sb strings.Builder
	writeFrontmatter(&sb, row, sourceRow, cfg, keys)
	writeBody(&sb, row, cfg)
	return sb.String()
}

func writeFrontmatter(sb *strings.Builder, row table.Row, sourceRow int, cfg NotesConfig, keys map[string]string) {
	sb.WriteString("---\n")
	for _, col := range cfg.Structure {
		fmt.Fprintf(sb, "%s: \"%s\"\n", keys[col], sanitize.EscapeYAML(row.Get(col).String()))
	}
	for _, col := range cfg.DataColumns {
		fmt.Fprintf(sb, "%s: %s\n", keys[col], yamlScalar(row.Get(col)))
	}
	fmt.Fprintf(sb, "source_file: \"%s\"\n", sanitize.EscapeYAML(cfg.SourceFile))
	fmt.Fprintf(sb, "source_row: %d\n", sourceRow)
	fmt.Fprintf(sb, "imported: %s\n", cfg.Generated.UTC().Format(hierarchy.TimeLayout))

	if cfg.Format == FormatDataview {
		kind := "item"
		if len(cfg.Structure) > 0 {
			kind = cfg.Structure[0]
		}
		fmt.Fprintf(sb, "type: \"%s\"\n", sanitize.FieldName(kind))
		sb.WriteString("tags:\n")
		sb.WriteString("  - imported\n")
		for _, col := range cfg.Structure {
			v := row.Get(col)
			if v.IsEmpty() {
				continue
			}
			if tag := sanitize.TagName(v.String()); tag != "" {
				fmt.Fprintf(sb, "  - \"%s\"\n", tag)
			}
		}
	}
	sb.WriteString("---\n\n")
}

// yamlScalar writes booleans and numbers bare and everything else as a
// quoted string. Null becomes "".
func yamlScalar(v table.Value) string {
	switch v.Kind() {
	case table.KindBool:
		b, _ := v.Bool()
		return strconv.FormatBool(b)
	case table.KindNumber:
		return v.String()
	default:
		return `"` + sanitize.EscapeYAML(v.String()) + `"`
	}
}

func writeBody(sb *strings.Builder, row table.Row, cfg NotesConfig) {
	title := make([]string, len(cfg.Structure))
	for i, col := range cfg.Structure {
		title[i] = displayOr(row.Get(col), "Unknown")
	}
	fmt.Fprintf(sb, "# %s\n\n", strings.Join(title, " - "))

	sb.WriteString("## Overview\n\n")
	for _, col := range cfg.Structure {
		fmt.Fprintf(sb, "- **%s**: %s\n", col, displayOr(row.Get(col), "N/A"))
	}
	sb.WriteString("\n")

	if len(cfg.DataColumns) > 0 {
		sb.WriteString("## Details\n\n")
		for _, col := range cfg.DataColumns {
			v := row.Get(col)
			if v.IsEmpty() {
				continue
			}
			fmt.Fprintf(sb, "- **%s**: %s\n", col, v.String())
		}
		sb.WriteString("\n")
	}

	sb.WriteString("---\n\n")
	fmt.Fprintf(sb, "*This note was automatically imported from %s on %s.*\n",
		cfg.SourceFile, cfg.Generated.Format("2006-01-02"))
}

func displayOr(v table.Value, fallback string) string {
	if v.IsEmpty() {
		return fallback
	}
	return v.String()
}
