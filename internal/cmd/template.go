package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/salmonumbrella/csvnotes/internal/apperr"
	"github.com/salmonumbrella/csvnotes/internal/output"
	"github.com/salmonumbrella/csvnotes/internal/templates"
)

var (
	templateStructure   []string
	templateExclude     []string
	templateDescription string
	templateColumns     []string
	templateSheet       string
	templateExportFile  string
	templateClearYes    bool
)

var templateCmd = &cobra.Command{
	Use:     "template",
	Aliases: []string{"templates"},
	Short:   "Manage saved conversion templates",
	Long: `Templates store a structure and excluded columns under a name so a
conversion can be repeated with --template <name>.`,
}

var templateSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save or replace a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRuntime(); err != nil {
			return err
		}
		t, err := templateStore.Save(args[0], templates.Config{
			Structure:   splitList(templateStructure),
			Excluded:    splitList(templateExclude),
			Description: strings.TrimSpace(templateDescription),
		})
		if err != nil {
			return err
		}
		logger.Debug("template saved", "name", t.Name, "columns", t.Metadata.ColumnCount)
		if structuredOutputRequested() {
			return printStructured(cmd, t)
		}
		fmt.Fprintf(stdoutFromContext(cmd.Context()), "%s Saved template %s\n", successStyle.Render("✓"), t.Name)
		return nil
	},
}

var templateShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRuntime(); err != nil {
			return err
		}
		t, err := templateStore.Get(args[0])
		if err != nil {
			return err
		}
		if structuredOutputRequested() {
			return printStructured(cmd, t)
		}
		w := stdoutFromContext(cmd.Context())
		fmt.Fprintln(w, headingStyle.Render(t.Name))
		if t.Description != "" {
			field(w, "Description", t.Description)
		}
		field(w, "Structure", joinOrDash(t.Structure))
		field(w, "Excluded", joinOrDash(t.Excluded))
		field(w, "Created", t.Created.Local().Format("2006-01-02 15:04"))
		field(w, "Last used", t.LastUsed.Local().Format("2006-01-02 15:04"))
		if t.Imported != nil {
			field(w, "Imported", t.Imported.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var templateListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List templates, most recently used first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRuntime(); err != nil {
			return err
		}
		all, err := templateStore.All()
		if err != nil {
			return err
		}
		t := output.Table{Headers: []string{"NAME", "STRUCTURE", "EXCLUDED", "LAST USED"}}
		for _, tpl := range all {
			t.AddRow(tpl.Name, strings.Join(tpl.Structure, " > "), strconv.Itoa(len(tpl.Excluded)), tpl.LastUsed.Local().Format("2006-01-02 15:04"))
		}
		return printListing(cmd, all, t)
	},
}

var templateDeleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a template",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRuntime(); err != nil {
			return err
		}
		if err := templateStore.Delete(args[0]); err != nil {
			return err
		}
		if structuredOutputRequested() {
			return printStructured(cmd, map[string]string{"status": "deleted", "name": args[0]})
		}
		fmt.Fprintf(stdoutFromContext(cmd.Context()), "Deleted template %s\n", args[0])
		return nil
	},
}

var templateValidateCmd = &cobra.Command{
	Use:   "validate <name> [file]",
	Short: "Check a template against a file's columns",
	Long: `Validate reports whether every structure column of the template exists
in the header of <file>, or in the list given with --columns.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runTemplateValidate,
}

var templateExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all templates as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRuntime(); err != nil {
			return err
		}
		data, err := templateStore.Export()
		if err != nil {
			return err
		}
		if templateExportFile == "" || templateExportFile == "-" {
			_, err := stdoutFromContext(cmd.Context()).Write(data)
			return err
		}
		if err := writeLocalFile(templateExportFile, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", templateExportFile, err)
		}
		if structuredOutputRequested() {
			return printStructured(cmd, map[string]string{"status": "exported", "file": templateExportFile})
		}
		fmt.Fprintf(stdoutFromContext(cmd.Context()), "Exported templates to %s\n", templateExportFile)
		return nil
	},
}

var templateImportCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Import templates from an export file",
	Long:  `Import adds the templates of an export file. Names that already exist are skipped.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRuntime(); err != nil {
			return err
		}
		data, err := readInput(args[0], stdinFromContext(cmd.Context()))
		if err != nil {
			return err
		}
		res, err := templateStore.Import(data)
		if err != nil {
			return err
		}
		for _, e := range res.Errors {
			logger.Warn(e)
		}
		if structuredOutputRequested() {
			return printStructured(cmd, res)
		}
		w := stdoutFromContext(cmd.Context())
		field(w, "Imported", successStyle.Render(strconv.Itoa(res.Imported)))
		field(w, "Skipped", res.Skipped)
		bullets(w, "Errors", errorStyle, res.Errors)
		return nil
	},
}

var templateStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show template usage statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRuntime(); err != nil {
			return err
		}
		stats, err := templateStore.Stats()
		if err != nil {
			return err
		}
		if structuredOutputRequested() {
			return printStructured(cmd, stats)
		}
		w := stdoutFromContext(cmd.Context())
		field(w, "Templates", stats.Total)
		recent := stats.MostRecentlyUsed
		if recent == "" {
			recent = "-"
		}
		field(w, "Most recently used", recent)
		field(w, "Used this week", stats.UsedThisWeek)
		field(w, "Average structure length", stats.AverageStructureLength)
		return nil
	},
}

var templateClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every template",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRuntime(); err != nil {
			return err
		}
		if !templateClearYes {
			return apperr.Validationf("refusing to delete all templates without --yes")
		}
		if err := templateStore.Clear(); err != nil {
			return err
		}
		if structuredOutputRequested() {
			return printStructured(cmd, map[string]string{"status": "cleared"})
		}
		fmt.Fprintln(stdoutFromContext(cmd.Context()), "Deleted all templates")
		return nil
	},
}

func init() {
	templateSaveCmd.Flags().StringSliceVar(&templateStructure, "structure", nil, "Grouping columns, outermost first")
	templateSaveCmd.Flags().StringSliceVar(&templateExclude, "exclude", nil, "Columns to leave out")
	templateSaveCmd.Flags().StringVar(&templateDescription, "description", "", "Free-form description")
	_ = templateSaveCmd.MarkFlagRequired("structure")

	templateValidateCmd.Flags().StringSliceVar(&templateColumns, "columns", nil, "Columns to check against instead of a file")
	templateValidateCmd.Flags().StringVar(&templateSheet, "sheet", "", "Worksheet to read from an xlsx file")

	templateExportCmd.Flags().StringVar(&templateExportFile, "file", "", "Write to this path instead of stdout")
	templateClearCmd.Flags().BoolVarP(&templateClearYes, "yes", "y", false, "Confirm deleting every template")

	templateCmd.AddCommand(templateSaveCmd)
	templateCmd.AddCommand(templateShowCmd)
	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateDeleteCmd)
	templateCmd.AddCommand(templateValidateCmd)
	templateCmd.AddCommand(templateExportCmd)
	templateCmd.AddCommand(templateImportCmd)
	templateCmd.AddCommand(templateStatsCmd)
	templateCmd.AddCommand(templateClearCmd)
	rootCmd.AddCommand(templateCmd)
}

func runTemplateValidate(cmd *cobra.Command, args []string) error {
	if err := requireRuntime(); err != nil {
		return err
	}

	columns := splitList(templateColumns)
	switch {
	case len(args) == 2:
		src, err := sourceFor(args[1], templateSheet, "")
		if err != nil {
			return err
		}
		tbl, err := converter.Load(cmd.Context(), src)
		if err != nil {
			return err
		}
		columns = tbl.Columns
	case len(columns) == 0:
		return apperr.Validationf("give a file or --columns to validate against")
	}

	check, err := templateStore.Validate(args[0], columns)
	if err != nil {
		return err
	}
	if structuredOutputRequested() {
		if err := printStructured(cmd, check); err != nil {
			return err
		}
	} else {
		w := stdoutFromContext(cmd.Context())
		if check.Valid {
			fmt.Fprintf(w, "%s Template %s matches\n", successStyle.Render("✓"), args[0])
		} else {
			fmt.Fprintf(w, "%s %s\n", errorStyle.Render("✗"), check.Error)
		}
		bullets(w, "Missing columns", errorStyle, check.MissingColumns)
		bullets(w, "Warnings", warnStyle, check.Warnings)
	}
	if !check.Valid {
		return apperr.Validationf("template %q does not match", args[0])
	}
	return nil
}
