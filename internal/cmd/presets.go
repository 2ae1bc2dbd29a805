package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/salmonumbrella/csvnotes/internal/convert"
	"github.com/salmonumbrella/csvnotes/internal/output"
	"github.com/salmonumbrella/csvnotes/internal/render"
)

var (
	previewStructure []string
	previewData      []string
	previewFormat    string
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List built-in structure presets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t := output.Table{Headers: []string{"ID", "NAME", "COLUMNS"}}
		for _, p := range convert.Presets {
			cols := strings.Join(p.Columns, " > ")
			if cols == "" {
				cols = "first two columns"
			}
			t.AddRow(p.ID, p.Name, cols)
		}
		return printListing(cmd, convert.Presets, t)
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show example output for a structure without reading a file",
	Example: `  csvnotes preview --structure Team,Role --data Name,Email
  csvnotes preview --structure Project --data Status --format dataview`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := render.ParseFormat(previewFormat)
		if err != nil {
			return err
		}
		structure := splitList(previewStructure)
		data := splitList(previewData)
		w := stdoutFromContext(cmd.Context())

		if format.IsNotes() {
			note := render.PreviewMarkdown(structure, data, format, nowFunc())
			if structuredOutputRequested() {
				return printStructured(cmd, map[string]string{"filename": note.Filename, "content": note.Content})
			}
			fmt.Fprintln(w, headingStyle.Render(note.Filename))
			fmt.Fprint(w, note.Content)
			return nil
		}

		doc, err := render.PreviewJSON(structure, data, nowFunc())
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(w, doc)
		return err
	},
}

func init() {
	previewCmd.Flags().StringSliceVar(&previewStructure, "structure", nil, "Grouping columns, outermost first")
	previewCmd.Flags().StringSliceVar(&previewData, "data", nil, "Data columns")
	previewCmd.Flags().StringVar(&previewFormat, "format", "json", "Output kind (json|markdown|dataview)")
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(previewCmd)
}
