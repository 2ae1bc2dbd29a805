package cmd

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/salmonumbrella/csvnotes/internal/apperr"
	"github.com/salmonumbrella/csvnotes/internal/config"
	"github.com/salmonumbrella/csvnotes/internal/convert"
	"github.com/salmonumbrella/csvnotes/internal/templates"
)

// Shared state built by the root command before a subcommand runs.
var (
	logger        = log.Default()
	settings      = &config.Config{}
	converter     *convert.Converter
	templateStore *templates.Store
)

// loadConfigFromFlag loads config from --config if provided, otherwise from default path.
func loadConfigFromFlag() (*config.Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

func configPath() (string, error) {
	if strings.TrimSpace(configFile) != "" {
		return configFile, nil
	}
	return config.DefaultConfigPath()
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil {
		return false
	}
	if cmd.Flags().Changed(name) {
		return true
	}
	return cmd.InheritedFlags().Changed(name)
}

func formatConfigLoadError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("load config: %w", err)
}

// setupRuntime opens the vault and the template store.
func setupRuntime(cmd *cobra.Command, cfg *config.Config) error {
	root := resolveVaultRoot(cmd, cfg)
	v, err := openVault(root)
	if err != nil {
		return fmt.Errorf("open vault: %w", err)
	}

	tplPath, err := resolveTemplatesPath(cfg)
	if err != nil {
		return err
	}
	templateStore = templates.NewStore(templates.FilePersistence{Path: tplPath}, templates.WithClock(nowFunc))

	converter = convert.New(v, templateStore, logger)
	converter.Now = nowFunc
	converter.FilenameMax = cfg.FilenameMaxLength
	if len(cfg.ReservedFields) > 0 {
		converter.Reserved = cfg.ReservedFields
	}
	settings = cfg

	logger.Debug("runtime ready", "vault", root, "templates", tplPath)
	return nil
}

// resolveVaultRoot applies flag > env > config > working directory.
func resolveVaultRoot(cmd *cobra.Command, cfg *config.Config) string {
	if flagChanged(cmd, "vault") && strings.TrimSpace(vaultPath) != "" {
		return strings.TrimSpace(vaultPath)
	}
	if v := strings.TrimSpace(envGet("CSVNOTES_VAULT")); v != "" {
		return v
	}
	if cfg != nil && strings.TrimSpace(cfg.Vault) != "" {
		return strings.TrimSpace(cfg.Vault)
	}
	return "."
}

func resolveTemplatesPath(cfg *config.Config) (string, error) {
	if v := strings.TrimSpace(envGet("CSVNOTES_TEMPLATES")); v != "" {
		return v, nil
	}
	if cfg != nil && strings.TrimSpace(cfg.TemplatesFile) != "" {
		return strings.TrimSpace(cfg.TemplatesFile), nil
	}
	return config.DefaultTemplatesPath()
}

// parseDelimiter accepts a single character, or "tab" / "\t".
func parseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case "tab", `\t`, "\t":
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, apperr.Validationf("invalid delimiter %q (expected one character or \"tab\")", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// splitList splits a comma separated flag value, trimming blanks.
func splitList(values []string) []string {
	out := []string{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func requireRuntime() error {
	if converter == nil || templateStore == nil {
		return fmt.Errorf("vault not initialised")
	}
	return nil
}
