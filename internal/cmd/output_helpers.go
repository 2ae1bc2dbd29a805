package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/salmonumbrella/csvnotes/internal/output"
)

func structuredOutputRequested() bool {
	return output.IsStructured(GetOutputFormat())
}

func printStructured(cmd *cobra.Command, data interface{}) error {
	ctx := commandContext(cmd)
	printer := output.NewPrinter(stdoutFromContext(ctx), GetOutputFormat())
	return printer.Print(ctx, data)
}

// printListing prints data in structured modes and t otherwise.
func printListing(cmd *cobra.Command, data interface{}, t output.Table) error {
	if structuredOutputRequested() {
		return printStructured(cmd, data)
	}
	return printStructured(cmd, t)
}

func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	if rootCmd != nil && rootCmd.Context() != nil {
		return rootCmd.Context()
	}
	return context.Background()
}
