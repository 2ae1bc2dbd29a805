package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/salmonumbrella/csvnotes/internal/apperr"
	"github.com/salmonumbrella/csvnotes/internal/config"
	"github.com/salmonumbrella/csvnotes/internal/hierarchy"
	"github.com/salmonumbrella/csvnotes/internal/output"
	"github.com/salmonumbrella/csvnotes/internal/render"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage CLI configuration stored in ~/.config/csvnotes/config.yaml.

Flags and CSVNOTES_* environment variables take precedence over these
values. Run 'csvnotes config keys' for the supported keys.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfigFromFlag()
		if err != nil {
			return formatConfigLoadError(err)
		}
		values := configOutput(cfg)
		if structuredOutputRequested() {
			return printStructured(cmd, values)
		}

		w := stdoutFromContext(cmd.Context())
		fmt.Fprintln(w, headingStyle.Render("Config:"))
		for _, key := range supportedConfigKeys() {
			fmt.Fprintf(w, "  %s: %v\n", key, values[key])
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Unset a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List supported configuration keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		keys := supportedConfigKeys()
		sort.Strings(keys)

		if structuredOutputRequested() {
			return printStructured(cmd, keys)
		}

		w := stdoutFromContext(cmd.Context())
		fmt.Fprintln(w, "Supported keys:")
		for _, key := range keys {
			fmt.Fprintf(w, "  %s\n", key)
		}
		return nil
	},
}

func supportedConfigKeys() []string {
	return []string{
		"vault",
		"output_format",
		"convert_format",
		"output_folder",
		"templates_file",
		"reserved_fields",
		"filename_max_length",
		"delimiter",
		"on_collision",
	}
}

// applyConfigValue validates value for key before storing it.
func applyConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "vault":
		cfg.Vault = value
	case "output_format":
		if _, err := output.ParseFormat(value); err != nil {
			return err
		}
		cfg.OutputFormat = value
	case "convert_format":
		f, err := render.ParseFormat(value)
		if err != nil {
			return err
		}
		cfg.ConvertFormat = string(f)
	case "output_folder":
		cfg.OutputFolder = value
	case "templates_file":
		cfg.TemplatesFile = value
	case "reserved_fields":
		cfg.ReservedFields = splitList([]string{value})
	case "filename_max_length":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return apperr.Validationf("filename_max_length must be a positive integer, got %q", value)
		}
		cfg.FilenameMaxLength = n
	case "delimiter":
		if _, err := parseDelimiter(value); err != nil {
			return err
		}
		cfg.Delimiter = value
	case "on_collision":
		c, err := hierarchy.ParseCollision(value)
		if err != nil {
			return err
		}
		cfg.OnCollision = string(c)
	default:
		return apperr.Validationf("unknown config key: %s", key)
	}
	return nil
}

func clearConfigValue(cfg *config.Config, key string) error {
	switch key {
	case "vault":
		cfg.Vault = ""
	case "output_format":
		cfg.OutputFormat = ""
	case "convert_format":
		cfg.ConvertFormat = ""
	case "output_folder":
		cfg.OutputFolder = ""
	case "templates_file":
		cfg.TemplatesFile = ""
	case "reserved_fields":
		cfg.ReservedFields = nil
	case "filename_max_length":
		cfg.FilenameMaxLength = 0
	case "delimiter":
		cfg.Delimiter = ""
	case "on_collision":
		cfg.OnCollision = ""
	default:
		return apperr.Validationf("unknown config key: %s", key)
	}
	return nil
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configKeysCmd)

	rootCmd.AddCommand(configCmd)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := strings.ToLower(strings.TrimSpace(args[0]))
	value := strings.TrimSpace(args[1])

	cfg, err := loadConfigFromFlag()
	if err != nil {
		return formatConfigLoadError(err)
	}
	if err := applyConfigValue(cfg, key, value); err != nil {
		return err
	}

	path, err := configPath()
	if err != nil {
		return err
	}
	if err := cfg.Save(path); err != nil {
		return err
	}

	if structuredOutputRequested() {
		return printStructured(cmd, map[string]string{
			"status": "updated",
			"key":    key,
			"value":  value,
		})
	}
	fmt.Fprintf(stdoutFromContext(commandContext(cmd)), "Updated %s\n", key)
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	key := strings.ToLower(strings.TrimSpace(args[0]))

	cfg, err := loadConfigFromFlag()
	if err != nil {
		return formatConfigLoadError(err)
	}
	if err := clearConfigValue(cfg, key); err != nil {
		return err
	}

	path, err := configPath()
	if err != nil {
		return err
	}
	if err := cfg.Save(path); err != nil {
		return err
	}

	if structuredOutputRequested() {
		return printStructured(cmd, map[string]string{
			"status": "unset",
			"key":    key,
		})
	}
	fmt.Fprintf(stdoutFromContext(commandContext(cmd)), "Unset %s\n", key)
	return nil
}

func configOutput(cfg *config.Config) map[string]interface{} {
	reserved := cfg.ReservedFields
	if reserved == nil {
		reserved = []string{}
	}
	return map[string]interface{}{
		"vault":               cfg.Vault,
		"output_format":       cfg.OutputFormat,
		"convert_format":      cfg.ConvertFormat,
		"output_folder":       cfg.OutputFolder,
		"templates_file":      cfg.TemplatesFile,
		"reserved_fields":     reserved,
		"filename_max_length": cfg.FilenameMaxLength,
		"delimiter":           cfg.Delimiter,
		"on_collision":        cfg.OnCollision,
	}
}
