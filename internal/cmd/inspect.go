package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/salmonumbrella/csvnotes/internal/convert"
	"github.com/salmonumbrella/csvnotes/internal/output"
	"github.com/salmonumbrella/csvnotes/internal/table"
)

var (
	inspectSheet     string
	inspectDelimiter string
	inspectRows      int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show columns, problems and a preview of a file",
	Long: `Inspect reads a file without converting it and reports its columns,
column name problems, malformed records, data-quality warnings, the first
rows and a per-column profile.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectSheet, "sheet", "", "Worksheet to read from an xlsx file (default: first)")
	inspectCmd.Flags().StringVar(&inspectDelimiter, "delimiter", "", "Field delimiter (default: guessed)")
	inspectCmd.Flags().IntVar(&inspectRows, "rows", convert.DefaultPreviewRows, "Number of preview rows")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	if err := requireRuntime(); err != nil {
		return err
	}
	src, err := sourceFor(args[0], inspectSheet, inspectDelimiter)
	if err != nil {
		return err
	}
	info, err := converter.Inspect(cmd.Context(), src, inspectRows)
	if err != nil {
		return err
	}
	if structuredOutputRequested() {
		return printStructured(cmd, info)
	}

	w := stdoutFromContext(cmd.Context())
	fmt.Fprintln(w, headingStyle.Render(info.Source))
	field(w, "Rows", info.Rows)
	field(w, "Columns", joinOrDash(info.Columns))
	fmt.Fprintln(w)

	bullets(w, "Column errors", errorStyle, info.Validation.Errors)
	bullets(w, "Column warnings", warnStyle, info.Validation.Warnings)
	issues := make([]string, 0, len(info.Issues))
	for _, i := range info.Issues {
		issues = append(issues, i.String())
	}
	bullets(w, "Parse issues", warnStyle, issues)
	bullets(w, "Data warnings", warnStyle, info.Warnings)

	if len(info.Profile) > 0 {
		fmt.Fprintln(w, headingStyle.Render("Profile"))
		if err := printStructured(cmd, profileTable(info.Profile)); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	if len(info.Preview) > 0 {
		fmt.Fprintln(w, headingStyle.Render("Preview"))
		return printStructured(cmd, previewTable(info.Columns, info.Preview))
	}
	return nil
}

// sourceFor builds a convert.Source, falling back to the configured
// delimiter.
func sourceFor(path, sheet, delimiter string) (convert.Source, error) {
	if delimiter == "" && settings != nil {
		delimiter = settings.Delimiter
	}
	delim, err := parseDelimiter(delimiter)
	if err != nil {
		return convert.Source{}, err
	}
	return convert.Source{Path: path, Sheet: sheet, Delimiter: delim}, nil
}

func profileTable(profile []table.ColumnProfile) output.Table {
	t := output.Table{Headers: []string{"COLUMN", "KIND", "FILLED", "DISTINCT", "MIN", "MAX", "MEAN"}}
	for _, p := range profile {
		t.AddRow(
			p.Column,
			p.Kind,
			strconv.FormatFloat(p.FillRate*100, 'f', 0, 64)+"%",
			strconv.Itoa(p.Distinct),
			optionalFloat(p.Min),
			optionalFloat(p.Max),
			optionalFloat(p.Mean),
		)
	}
	return t
}

func previewTable(columns []string, rows []table.Row) output.Table {
	t := output.Table{Headers: columns}
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = row.Get(col).String()
		}
		t.AddRow(cells...)
	}
	return t
}

func optionalFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'g', 6, 64)
}
