package render

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/salmonumbrella/csvnotes/internal/vault"
)

// SummaryFile is the report written next to generated notes.
const SummaryFile = "_import_summary.md"

// maxSuffix bounds the _N search for a free file name.
const maxSuffix = 10000

// FileRecord is one written note.
type FileRecord struct {
	Row      int    `json:"row"`
	Original string `json:"original"`
	Created  string `json:"created"`
}

// RowError is one note that could not be written.
type RowError struct {
	Row      int    `json:"row"`
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

// Report collects per-row outcomes of WriteNotes.
type Report struct {
	Folder       string       `json:"folder"`
	Total        int          `json:"total"`
	SuccessCount int          `json:"success_count"`
	ErrorCount   int          `json:"error_count"`
	Files        []FileRecord `json:"files"`
	Errors       []RowError   `json:"errors"`
}

// WriteNotes creates folder and writes every note into it. Existing files are
// never overwritten: a taken name gets an _1, _2, ... suffix. A failed row is
// recorded and the next row is attempted. When ctx is canceled the remaining
// rows are recorded as errors and no further writes are issued.
func WriteNotes(ctx context.Context, v vault.Vault, folder string, notes []Note) (*Report, error) {
	if err := v.CreateDirectory(ctx, folder); err != nil {
		return nil, fmt.Errorf("creating output folder: %w", err)
	}

	report := &Report{
		Folder: folder,
		Total:  len(notes),
		Files:  []FileRecord{},
		Errors: []RowError{},
	}
	for i, note := range notes {
		if err := ctx.Err(); err != nil {
			for _, rest := range notes[i:] {
				report.addError(rest, err)
			}
			break
		}
		created, err := WriteUnique(ctx, v, folder, note.Filename, []byte(note.Content))
		if err != nil {
			report.addError(note, err)
			continue
		}
		report.SuccessCount++
		report.Files = append(report.Files, FileRecord{
			Row:      note.SourceRow,
			Original: note.Filename,
			Created:  created,
		})
	}
	return report, nil
}

func (r *Report) addError(note Note, err error) {
	r.ErrorCount++
	r.Errors = append(r.Errors, RowError{Row: note.SourceRow, Filename: note.Filename, Message: err.Error()})
}

// WriteUnique writes content as folder/filename, or as the first free
// filename_N variant when that name is taken. It returns the path written.
func WriteUnique(ctx context.Context, v vault.Vault, folder, filename string, content []byte) (string, error) {
	ext := path.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	for n := 0; n <= maxSuffix; n++ {
		name := filename
		if n > 0 {
			name = fmt.Sprintf("%s_%d%s", base, n, ext)
		}
		p := vault.Join(folder, name)

		exists, err := v.Exists(ctx, p)
		if err != nil {
			return "", err
		}
		if exists {
			continue
		}
		err = v.WriteFile(ctx, p, content)
		if errors.Is(err, vault.ErrExists) {
			continue
		}
		if err != nil {
			return "", err
		}
		return p, nil
	}
	return "", fmt.Errorf("no free file name for %s", filename)
}

// Summary renders report as a Markdown document.
func Summary(report *Report) string {
	var sb strings.Builder
	sb.WriteString("# Markdown Generation Results\n\n")
	fmt.Fprintf(&sb, "**Output Folder**: %s\n", report.Folder)
	fmt.Fprintf(&sb, "**Total Processed**: %d\n", report.Total)
	fmt.Fprintf(&sb, "**Successful**: %d\n", report.SuccessCount)
	fmt.Fprintf(&sb, "**Errors**: %d\n\n", report.ErrorCount)

	if report.ErrorCount > 0 {
		sb.WriteString("## Errors\n\n")
		for _, e := range report.Errors {
			fmt.Fprintf(&sb, "- Row %d (%s): %s\n", e.Row, e.Filename, e.Message)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Created Files\n\n")
	for _, f := range report.Files {
		fmt.Fprintf(&sb, "- %s\n", f.Created)
	}
	return sb.String()
}

// WriteSummary stores Summary(report) as _import_summary.md in the report
// folder, suffixing the name if one already exists.
func WriteSummary(ctx context.Context, v vault.Vault, report *Report) (string, error) {
	return WriteUnique(ctx, v, report.Folder, SummaryFile, []byte(Summary(report)))
}
