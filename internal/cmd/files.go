package cmd

import (
	"github.com/spf13/cobra"

	"github.com/salmonumbrella/csvnotes/internal/output"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List convertible files in the vault",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRuntime(); err != nil {
			return err
		}
		files, err := converter.ListFiles(cmd.Context())
		if err != nil {
			return err
		}

		t := output.Table{Headers: []string{"FILE"}}
		for _, f := range files {
			t.AddRow(f)
		}
		return printListing(cmd, files, t)
	},
}

func init() {
	rootCmd.AddCommand(filesCmd)
}
