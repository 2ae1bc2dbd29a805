package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/salmonumbrella/csvnotes/internal/config"
	"github.com/salmonumbrella/csvnotes/internal/output"
)

var (
	// Version is set at build time
	version = "dev"
	// Commit is set at build time
	commit = "none"
	// Date is set at build time
	date = "unknown"
)

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = v
	rootCmd.SetVersionTemplate(versionTemplate())
}

func versionTemplate() string {
	return fmt.Sprintf("csvnotes version %s (commit: %s, built: %s)\n", version, commit, date)
}

// Global flags
var (
	vaultPath  string
	outputFmt  string
	outputType output.Format
	debug      bool
	configFile string
	queryExpr  string
	queryFile  string
	errorFmt   string
	quietFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "csvnotes",
	Short: "Turn spreadsheets into nested JSON or Markdown notes",
	Long: `csvnotes converts CSV, TSV and XLSX files inside a notes vault into a
nested JSON document or one Markdown note per row.

Pick the grouping columns with --structure, a saved --template or a
--preset, then write the result back into the vault.

Environment Variables:
  CSVNOTES_VAULT      Vault directory (default: current directory)
  CSVNOTES_TEMPLATES  Template file (default: ~/.config/csvnotes/templates.yaml)

A .env file in the working directory is read on start.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnv(); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}

		skipConfigLoad := isConfigCommand(cmd)
		cfg := &config.Config{}
		if !skipConfigLoad {
			loaded, err := loadConfigFromFlag()
			if err != nil {
				return formatConfigLoadError(err)
			}
			cfg = loaded
		}

		// Output format selection: --output > config > json when piped > text
		formatStr := outputFmt
		if !flagChanged(cmd, "output") {
			switch {
			case strings.TrimSpace(cfg.OutputFormat) != "":
				formatStr = strings.TrimSpace(cfg.OutputFormat)
			case !isTerminal(cmd.OutOrStdout()):
				formatStr = "json"
			}
		}
		format, err := output.ParseFormat(formatStr)
		if err != nil {
			return err
		}
		outputType = format
		outputFmt = string(format)

		if queryExpr != "" && queryFile != "" {
			return fmt.Errorf("use only one of --query or --query-file")
		}
		if queryFile != "" {
			loaded, err := readInput(queryFile, cmd.InOrStdin())
			if err != nil {
				return err
			}
			queryExpr = strings.TrimSpace(string(loaded))
		}

		// Default quiet mode for non-interactive structured output
		if !flagChanged(cmd, "quiet") && !isTerminal(cmd.OutOrStdout()) && output.IsStructured(outputType) {
			quietFlag = true
		}

		ctx := cmd.Context()
		ctx = withIO(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		ctx = output.WithFormat(ctx, outputType)
		ctx = output.WithQuery(ctx, queryExpr)
		ctx = output.WithQuiet(ctx, quietFlag)
		ctx = WithErrorFormat(ctx, errorFmt)
		cmd.SetContext(ctx)
		logger = newLogger(cmd.ErrOrStderr())

		if err := validateErrorFormat(errorFmt); err != nil {
			return err
		}

		if skipConfigLoad || cmd.Name() == "completion" || cmd.Name() == "help" || cmd.Name() == "presets" || cmd.Name() == "preview" {
			return nil
		}
		return setupRuntime(cmd, cfg)
	},
}

// Execute runs the root command. Canceling ctx stops a running conversion
// between rows.
func Execute(ctx context.Context) error {
	cmd, err := rootCmd.ExecuteContextC(ctx)
	if err != nil {
		ctx := rootCmd.Context()
		if cmd != nil && cmd.Context() != nil {
			ctx = cmd.Context()
		}
		printCommandError(ctx, err)
		return err
	}
	return nil
}

// GetOutputFormat returns the configured output format
func GetOutputFormat() output.Format {
	if outputType != "" {
		return outputType
	}
	parsed, err := output.ParseFormat(outputFmt)
	if err != nil {
		return output.FormatText
	}
	return parsed
}

// newLogger writes leveled logs to w: errors only with --quiet, everything
// with --debug.
func newLogger(w io.Writer) *log.Logger {
	l := log.NewWithOptions(w, log.Options{Prefix: "csvnotes"})
	switch {
	case debug:
		l.SetLevel(log.DebugLevel)
		l.SetReportTimestamp(true)
	case quietFlag:
		l.SetLevel(log.ErrorLevel)
	default:
		l.SetLevel(log.InfoLevel)
	}
	return l
}

func isConfigCommand(cmd *cobra.Command) bool {
	return cmd.Name() == "config" || (cmd.Parent() != nil && cmd.Parent().Name() == "config")
}

func init() {
	rootCmd.SetVersionTemplate(versionTemplate())

	rootCmd.PersistentFlags().StringVar(&vaultPath, "vault", "", "Vault directory (env: CSVNOTES_VAULT)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "text", "Output format (text|json|ndjson|table|yaml)")
	rootCmd.PersistentFlags().StringVar(&queryExpr, "query", "", "jq expression to filter JSON output")
	rootCmd.PersistentFlags().StringVar(&queryFile, "query-file", "", "Read jq expression from file (use - for stdin)")
	rootCmd.PersistentFlags().StringVar(&errorFmt, "error-format", "auto", "Error output format (auto|text|json|yaml)")
	rootCmd.PersistentFlags().BoolVar(&quietFlag, "quiet", false, "Only log errors")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: ~/.config/csvnotes/config.yaml)")
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
