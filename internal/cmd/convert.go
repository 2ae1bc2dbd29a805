package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/salmonumbrella/csvnotes/internal/apperr"
	"github.com/salmonumbrella/csvnotes/internal/convert"
	"github.com/salmonumbrella/csvnotes/internal/hierarchy"
	"github.com/salmonumbrella/csvnotes/internal/output"
	"github.com/salmonumbrella/csvnotes/internal/render"
)

// maxPlannedShown caps the planned file list in text dry runs.
const maxPlannedShown = 10

var (
	convertStructure []string
	convertExclude   []string
	convertFormat    string
	convertTemplate  string
	convertPreset    string
	convertFolder    string
	convertCollision string
	convertStdout    bool
	convertDryRun    bool
	convertSheet     string
	convertDelimiter string
)

var convertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "Convert a file to nested JSON or Markdown notes",
	Long: `Convert groups the rows of a CSV, TSV or XLSX file by the structure
columns and writes the result into the vault.

  --format json      one <name>_structured.json next to the file
  --format markdown  one note per row in Imported/<name>/
  --format dataview  like markdown, with Dataview-friendly frontmatter

The structure comes from --structure, else --template, else --preset.
Existing files are never overwritten; a numeric suffix is added instead.`,
	Example: `  csvnotes convert people.csv --structure Team,Role
  csvnotes convert tasks.xlsx --template weekly --format dataview
  csvnotes convert data.csv --preset simple --stdout --query '.data | keys'`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringSliceVar(&convertStructure, "structure", nil, "Grouping columns, outermost first")
	convertCmd.Flags().StringSliceVar(&convertExclude, "exclude", nil, "Columns to leave out")
	convertCmd.Flags().StringVar(&convertFormat, "format", "", "Output kind (json|markdown|dataview)")
	convertCmd.Flags().StringVar(&convertFormat, "to", "", "Alias for --format")
	convertCmd.Flags().StringVar(&convertTemplate, "template", "", "Use a saved template")
	convertCmd.Flags().StringVar(&convertPreset, "preset", "", "Use a built-in preset (see 'csvnotes presets')")
	convertCmd.Flags().StringVar(&convertFolder, "folder", "", "Vault folder to write into")
	convertCmd.Flags().StringVar(&convertCollision, "on-collision", "", "Duplicate path policy (overwrite|merge)")
	convertCmd.Flags().BoolVar(&convertStdout, "stdout", false, "Print the JSON document instead of writing it")
	convertCmd.Flags().BoolVar(&convertDryRun, "dry-run", false, "Show what would be written without writing")
	convertCmd.Flags().StringVar(&convertSheet, "sheet", "", "Worksheet to read from an xlsx file (default: first)")
	convertCmd.Flags().StringVar(&convertDelimiter, "delimiter", "", "Field delimiter (default: guessed)")
	rootCmd.AddCommand(convertCmd)
}

// convertResult is the structured view of a conversion, including the
// rendered document or sample note when nothing was written.
type convertResult struct {
	*convert.Outcome
	Document      json.RawMessage `json:"document,omitempty"`
	SampleFile    string          `json:"sample_file,omitempty"`
	SampleContent string          `json:"sample_content,omitempty"`
}

func runConvert(cmd *cobra.Command, args []string) error {
	if err := requireRuntime(); err != nil {
		return err
	}
	req, err := buildConvertRequest(args[0])
	if err != nil {
		return err
	}

	out, err := converter.Process(cmd.Context(), req)
	if err != nil {
		return err
	}

	if req.Stdout && !req.DryRun {
		if queryExpr != "" || GetOutputFormat() == output.FormatYAML {
			return printStructured(cmd, json.RawMessage(out.Document))
		}
		_, err := stdoutFromContext(cmd.Context()).Write(out.Document)
		return err
	}

	if structuredOutputRequested() {
		res := convertResult{Outcome: out}
		if len(out.Document) > 0 {
			res.Document = json.RawMessage(out.Document)
		}
		if out.Sample != nil {
			res.SampleFile = out.Sample.Filename
			res.SampleContent = out.Sample.Content
		}
		return printStructured(cmd, res)
	}

	printConvertText(stdoutFromContext(cmd.Context()), out)
	return nil
}

func buildConvertRequest(path string) (convert.Request, error) {
	src, err := sourceFor(path, convertSheet, convertDelimiter)
	if err != nil {
		return convert.Request{}, err
	}

	formatStr := convertFormat
	if formatStr == "" {
		formatStr = settings.ConvertFormat
	}
	format, err := render.ParseFormat(formatStr)
	if err != nil {
		return convert.Request{}, err
	}

	collisionStr := convertCollision
	if collisionStr == "" {
		collisionStr = settings.OnCollision
	}
	collision, err := hierarchy.ParseCollision(collisionStr)
	if err != nil {
		return convert.Request{}, err
	}

	if convertStdout && format.IsNotes() {
		return convert.Request{}, apperr.Configf("--stdout only applies to --format json")
	}

	folder := strings.TrimSpace(convertFolder)
	if folder == "" {
		folder = strings.TrimSpace(settings.OutputFolder)
	}

	return convert.Request{
		Source:    src,
		Structure: splitList(convertStructure),
		Excluded:  splitList(convertExclude),
		Template:  strings.TrimSpace(convertTemplate),
		Preset:    strings.TrimSpace(convertPreset),
		Format:    format,
		Folder:    folder,
		Collision: collision,
		DryRun:    convertDryRun,
		Stdout:    convertStdout,
	}, nil
}

func printConvertText(w io.Writer, out *convert.Outcome) {
	title := "Converted " + out.Source
	if out.DryRun {
		title = "Dry run: " + out.Source
	}

	var sb strings.Builder
	fmt.Fprintln(&sb, headingStyle.Render(title))
	field(&sb, "Format", out.Format)
	field(&sb, "Structure", fmt.Sprintf("%s (from %s)", joinOrDash(out.Structure), out.StructureFrom))
	field(&sb, "Excluded", joinOrDash(out.Excluded))
	field(&sb, "Data columns", joinOrDash(out.DataColumns))
	field(&sb, "Rows", out.Rows)
	if out.Format == render.FormatJSON {
		field(&sb, "Collisions", out.Collisions)
	}
	if out.Output != "" {
		field(&sb, "Output", out.Output)
	}
	if out.Report != nil {
		field(&sb, "Written", successStyle.Render(fmt.Sprint(out.Report.SuccessCount)))
		if out.Report.ErrorCount > 0 {
			field(&sb, "Failed", errorStyle.Render(fmt.Sprint(out.Report.ErrorCount)))
		}
	}
	if out.Summary != "" {
		field(&sb, "Summary", out.Summary)
	}
	fmt.Fprintln(w, boxStyle.Render(strings.TrimRight(sb.String(), "\n")))

	bullets(w, "Warnings", warnStyle, out.Warnings)
	if out.Report != nil {
		failures := make([]string, 0, len(out.Report.Errors))
		for _, e := range out.Report.Errors {
			failures = append(failures, fmt.Sprintf("Row %d (%s): %s", e.Row, e.Filename, e.Message))
		}
		bullets(w, "Failed rows", errorStyle, failures)
	}

	if !out.DryRun {
		return
	}
	if len(out.Document) > 0 {
		fmt.Fprintln(w, headingStyle.Render("Document"))
		_, _ = w.Write(out.Document)
	}
	if len(out.Planned) > 0 {
		shown := out.Planned
		if len(shown) > maxPlannedShown {
			shown = append(append([]string{}, shown[:maxPlannedShown]...), fmt.Sprintf("... and %d more", len(out.Planned)-maxPlannedShown))
		}
		bullets(w, "Would write", successStyle, shown)
	}
	if out.Sample != nil {
		fmt.Fprintln(w, headingStyle.Render("Sample note: "+out.Sample.Filename))
		fmt.Fprint(w, out.Sample.Content)
	}
}
