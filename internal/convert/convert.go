// Package convert runs the whole pipeline for one file: read it from the
// vault, parse, validate columns, resolve the structure, build and render,
// then write the result back into the vault.
package convert

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/salmonumbrella/csvnotes/internal/apperr"
	"github.com/salmonumbrella/csvnotes/internal/hierarchy"
	"github.com/salmonumbrella/csvnotes/internal/render"
	"github.com/salmonumbrella/csvnotes/internal/table"
	"github.com/salmonumbrella/csvnotes/internal/templates"
	"github.com/salmonumbrella/csvnotes/internal/validate"
	"github.com/salmonumbrella/csvnotes/internal/vault"
)

// DefaultFolderRoot prefixes the default notes folder: Imported/<name>.
const DefaultFolderRoot = "Imported"

var discard = log.New(io.Discard)

// Converter carries the collaborators a conversion needs. Templates may be
// nil when no template store is configured.
type Converter struct {
	Vault       vault.Vault
	Templates   *templates.Store
	Logger      *log.Logger
	Reserved    []string
	FilenameMax int
	Now         func() time.Time
}

// New returns a Converter over v.
func New(v vault.Vault, store *templates.Store, logger *log.Logger) *Converter {
	return &Converter{Vault: v, Templates: store, Logger: logger}
}

func (c *Converter) logger() *log.Logger {
	if c.Logger == nil {
		return discard
	}
	return c.Logger
}

func (c *Converter) reserved() []string {
	if c.Reserved == nil {
		return validate.DefaultReserved
	}
	return c.Reserved
}

func (c *Converter) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// Request describes one conversion. The structure comes from Structure if
// set, else from the named Template, else from the named Preset.
type Request struct {
	Source
	Structure []string
	Excluded  []string
	Template  string
	Preset    string
	Format    render.Format
	Folder    string
	Collision hierarchy.Collision
	// DryRun renders without writing anything.
	DryRun bool
	// Stdout keeps the JSON document in the Outcome instead of writing it.
	Stdout bool
}

// Outcome reports what Process did.
type Outcome struct {
	Source        string         `json:"source"`
	Format        render.Format  `json:"format"`
	StructureFrom string         `json:"structure_from"`
	Structure     []string       `json:"structure"`
	Excluded      []string       `json:"excluded"`
	DataColumns   []string       `json:"data_columns"`
	Rows          int            `json:"rows"`
	Collisions    int            `json:"collisions"`
	Warnings      []string       `json:"warnings"`
	DryRun        bool           `json:"dry_run"`
	Output        string         `json:"output,omitempty"`
	Summary       string         `json:"summary,omitempty"`
	Report        *render.Report `json:"report,omitempty"`
	Planned       []string       `json:"planned,omitempty"`

	// Document is the JSON output when it was not written (dry run or
	// stdout). Sample is the first rendered note of a markdown dry run.
	Document []byte       `json:"-"`
	Sample   *render.Note `json:"-"`
}

// Process converts one file. Configuration problems are returned before
// anything is written. Per-row write failures end up in Outcome.Report. A
// panic anywhere in the pipeline is recovered and reported as a generic
// failure for the file.
func (c *Converter) Process(ctx context.Context, req Request) (out *Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger().Error("conversion panicked", "file", req.Path, "panic", r)
			out = nil
			err = fmt.Errorf("failed to process %s", req.Path)
		}
	}()

	format := req.Format
	if format == "" {
		format = render.FormatJSON
	}
	if _, err := render.ParseFormat(string(format)); err != nil {
		return nil, err
	}
	collision := req.Collision
	if collision == "" {
		collision = hierarchy.CollisionOverwrite
	}

	tbl, err := c.Load(ctx, req.Source)
	if err != nil {
		return nil, err
	}

	out = &Outcome{
		Source:   req.Path,
		Format:   format,
		Rows:     len(tbl.Rows),
		Warnings: []string{},
		DryRun:   req.DryRun,
	}

	check := validate.Columns(tbl.Columns, c.reserved())
	out.Warnings = append(out.Warnings, check.Warnings...)
	out.Warnings = append(out.Warnings, check.Errors...)
	out.Warnings = append(out.Warnings, tbl.Warnings()...)

	structure, excluded, from, warnings, err := c.resolveStructure(tbl, req)
	if err != nil {
		return nil, err
	}
	out.Warnings = append(out.Warnings, warnings...)
	if err := hierarchy.CheckStructure(tbl.Columns, structure, excluded); err != nil {
		return nil, err
	}
	out.StructureFrom = from
	out.Structure = structure
	out.Excluded = excluded
	out.DataColumns = hierarchy.DataColumns(tbl.Columns, structure, excluded)

	for _, w := range out.Warnings {
		c.logger().Warn(w, "file", req.Path)
	}

	now := c.now()
	if format.IsNotes() {
		err = c.writeNotes(ctx, tbl, req, format, now, out)
	} else {
		err = c.writeJSON(ctx, tbl, req, collision, now, out)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Converter) resolveStructure(tbl *table.Table, req Request) (structure, excluded []string, from string, warnings []string, err error) {
	excluded, warnings = presentColumns(tbl, req.Excluded)

	switch {
	case len(req.Structure) > 0:
		return append([]string{}, req.Structure...), excluded, "flags", warnings, nil

	case req.Template != "":
		if c.Templates == nil {
			return nil, nil, "", nil, apperr.Configf("no template store configured")
		}
		ok, err := c.Templates.Exists(req.Template)
		if err != nil {
			return nil, nil, "", nil, err
		}
		if !ok {
			return nil, nil, "", nil, apperr.NotFoundf("template %q not found", req.Template)
		}
		check, err := c.Templates.Validate(req.Template, tbl.Columns)
		if err != nil {
			return nil, nil, "", nil, err
		}
		if !check.Valid {
			return nil, nil, "", nil, apperr.Configf("template %q: %s", req.Template, check.Error)
		}
		if _, err := c.Templates.Load(req.Template); err != nil {
			return nil, nil, "", nil, err
		}
		warnings = append(warnings, check.Warnings...)
		return check.AvailableStructure, mergeColumns(check.AvailableExcluded, excluded), "template", warnings, nil

	case req.Preset != "":
		structure, err := PresetStructure(req.Preset, tbl.Columns)
		if err != nil {
			return nil, nil, "", nil, err
		}
		if len(structure) == 0 {
			return nil, nil, "", nil, apperr.Configf("preset %q matched no columns", req.Preset)
		}
		return structure, excluded, "preset", warnings, nil

	default:
		return nil, nil, "", nil, apperr.Configf("no structure given (use --structure, --template or --preset)")
	}
}

// presentColumns keeps the requested columns found in the header and warns
// about the rest.
func presentColumns(tbl *table.Table, cols []string) ([]string, []string) {
	kept := []string{}
	var warnings []string
	for _, col := range cols {
		if tbl.HasColumn(col) {
			kept = append(kept, col)
			continue
		}
		warnings = append(warnings, fmt.Sprintf("Excluded column not found: %s", col))
	}
	return kept, warnings
}

func mergeColumns(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := []string{}
	for _, col := range append(append([]string{}, a...), b...) {
		if seen[col] {
			continue
		}
		seen[col] = true
		out = append(out, col)
	}
	return out
}

func (c *Converter) writeJSON(ctx context.Context, tbl *table.Table, req Request, collision hierarchy.Collision, now time.Time, out *Outcome) error {
	res, err := hierarchy.Build(tbl, hierarchy.Config{
		SourceFile: tbl.Name,
		Structure:  out.Structure,
		Excluded:   out.Excluded,
		Collision:  collision,
		Now:        func() time.Time { return now },
	})
	if err != nil {
		return err
	}
	out.Collisions = len(res.Collisions)
	msg := "row overwrote an earlier row"
	if collision == hierarchy.CollisionMerge {
		msg = "row merged with an earlier row"
	}
	for _, col := range res.Collisions {
		c.logger().Warn(msg,
			"path", strings.Join(col.Path, hierarchy.PathSeparator),
			"row", col.SourceRow,
			"policy", string(collision))
	}

	doc, err := render.JSON(res)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", req.Path, err)
	}
	if req.DryRun || req.Stdout {
		out.Document = doc
		return nil
	}

	folder := req.Folder
	if folder == "" {
		folder = path.Dir(strings.ReplaceAll(req.Path, "\\", "/"))
	}
	written, err := render.WriteUnique(ctx, c.Vault, folder, tbl.Name+render.JSONSuffix, doc)
	if err != nil {
		return err
	}
	out.Output = written
	c.logger().Info("wrote json", "file", written, "entries", res.Metadata.TotalEntries)
	return nil
}

func (c *Converter) writeNotes(ctx context.Context, tbl *table.Table, req Request, format render.Format, now time.Time, out *Outcome) error {
	notes := render.Notes(tbl, render.NotesConfig{
		SourceFile:  tbl.Name,
		Structure:   out.Structure,
		DataColumns: out.DataColumns,
		Format:      format,
		Generated:   now,
		FilenameMax: c.FilenameMax,
	})

	folder := req.Folder
	if folder == "" {
		folder = vault.Join(DefaultFolderRoot, tbl.Name)
	}
	out.Output = folder

	if req.DryRun {
		out.Planned = make([]string, 0, len(notes))
		for _, n := range notes {
			out.Planned = append(out.Planned, vault.Join(folder, n.Filename))
		}
		if len(notes) > 0 {
			out.Sample = &notes[0]
		}
		return nil
	}

	report, err := render.WriteNotes(ctx, c.Vault, folder, notes)
	if err != nil {
		return err
	}
	out.Report = report
	for _, e := range report.Errors {
		c.logger().Error("note not written", "row", e.Row, "file", e.Filename, "err", e.Message)
	}

	summary, err := render.WriteSummary(ctx, c.Vault, report)
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("summary not written: %v", err))
		c.logger().Warn("summary not written", "folder", folder, "err", err)
	} else {
		out.Summary = summary
	}
	c.logger().Info("wrote notes", "folder", folder, "written", report.SuccessCount, "failed", report.ErrorCount)
	return nil
}
