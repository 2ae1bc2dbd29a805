package convert

import (
	"context"
	"fmt"

	"github.com/salmonumbrella/csvnotes/internal/apperr"
	"github.com/salmonumbrella/csvnotes/internal/table"
	"github.com/salmonumbrella/csvnotes/internal/validate"
	"github.com/salmonumbrella/csvnotes/internal/vault"
)

// Extensions are the file types Load understands.
var Extensions = []string{"csv", "tsv", "txt", "xlsx"}

func supported(ext string) bool {
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Source identifies the table to read.
type Source struct {
	Path      string
	Sheet     string
	Delimiter rune
}

// Load reads and parses a table from the vault. The table is named after
// the file stem.
func (c *Converter) Load(ctx context.Context, src Source) (*table.Table, error) {
	ext := vault.Ext(src.Path)
	if !supported(ext) {
		return nil, apperr.Configf("unsupported file type %q (expected csv, tsv, txt or xlsx)", ext)
	}
	data, err := c.Vault.ReadFile(ctx, src.Path)
	if err != nil {
		return nil, err
	}

	opts := table.DefaultOptions()
	opts.Delimiter = src.Delimiter

	var tbl *table.Table
	switch ext {
	case "xlsx":
		tbl, err = table.ReadXLSX(data, src.Sheet, opts)
	case "tsv":
		if opts.Delimiter == 0 {
			opts.Delimiter = '\t'
		}
		tbl, err = table.Parse(string(data), opts)
	default:
		tbl, err = table.Parse(string(data), opts)
	}
	if err != nil {
		return nil, apperr.Validationf("%s: %v", src.Path, err)
	}
	tbl.Name = vault.Stem(src.Path)

	c.logger().Debug("loaded table", "file", src.Path, "columns", len(tbl.Columns), "rows", len(tbl.Rows), "issues", len(tbl.Issues))
	return tbl, nil
}

// Inspection describes a file without converting it.
type Inspection struct {
	Source     string                `json:"source"`
	Columns    []string              `json:"columns"`
	Rows       int                   `json:"rows"`
	Validation validate.Result       `json:"validation"`
	Issues     []table.Issue         `json:"issues"`
	Warnings   []string              `json:"warnings"`
	Preview    []table.Row           `json:"preview"`
	Profile    []table.ColumnProfile `json:"profile"`
}

// DefaultPreviewRows is how many rows Inspect returns by default.
const DefaultPreviewRows = 5

// Inspect loads src and reports its header, column problems, data-quality
// warnings, leading rows and a per-column profile.
func (c *Converter) Inspect(ctx context.Context, src Source, previewRows int) (*Inspection, error) {
	tbl, err := c.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	if previewRows <= 0 {
		previewRows = DefaultPreviewRows
	}

	preview := append([]table.Row{}, tbl.Preview(previewRows)...)
	issues := tbl.Issues
	if issues == nil {
		issues = []table.Issue{}
	}
	warnings := tbl.Warnings()
	if warnings == nil {
		warnings = []string{}
	}

	return &Inspection{
		Source:     src.Path,
		Columns:    tbl.Columns,
		Rows:       len(tbl.Rows),
		Validation: validate.Columns(tbl.Columns, c.reserved()),
		Issues:     issues,
		Warnings:   warnings,
		Preview:    preview,
		Profile:    tbl.Profile(),
	}, nil
}

// ListFiles returns the convertible files in the vault.
func (c *Converter) ListFiles(ctx context.Context) ([]string, error) {
	files, err := c.Vault.ListFiles(ctx, Extensions...)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	if files == nil {
		files = []string{}
	}
	return files, nil
}
