package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/salmonumbrella/csvnotes/internal/apperr"
	"github.com/salmonumbrella/csvnotes/internal/output"
	"github.com/salmonumbrella/csvnotes/internal/vault"
)

func validateErrorFormat(format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "auto", "text", "json", "yaml":
		return nil
	default:
		return apperr.Validationf("invalid --error-format %q (expected auto|text|json|yaml)", format)
	}
}

func effectiveErrorFormat(ctx context.Context) string {
	format := strings.ToLower(strings.TrimSpace(ErrorFormatFromContext(ctx)))
	if format == "" || format == "auto" {
		switch output.FormatFromContext(ctx) {
		case output.FormatJSON, output.FormatNDJSON:
			return "json"
		case output.FormatYAML:
			return "yaml"
		default:
			return "text"
		}
	}
	return format
}

func printCommandError(ctx context.Context, err error) {
	if err == nil {
		return
	}

	switch effectiveErrorFormat(ctx) {
	case "json":
		enc := json.NewEncoder(stderrFromContext(ctx))
		enc.SetEscapeHTML(false)
		_ = enc.Encode(buildErrorEnvelope(err))
		return
	case "yaml":
		enc := yaml.NewEncoder(stderrFromContext(ctx))
		enc.SetIndent(2)
		_ = enc.Encode(buildErrorEnvelope(err))
		_ = enc.Close()
		return
	}

	_, _ = fmt.Fprintln(stderrFromContext(ctx), errorStyle.Render("Error:"), err)
}

func buildErrorEnvelope(err error) map[string]interface{} {
	errMap := map[string]interface{}{
		"message":  err.Error(),
		"type":     "error",
		"category": "system",
	}

	var configErr apperr.ConfigError
	var validationErr apperr.ValidationError
	var notFoundErr apperr.NotFoundError
	var ioErr apperr.IOError

	switch {
	case errors.As(err, &configErr):
		errMap["type"] = "validation"
		errMap["subtype"] = "config"
		errMap["category"] = "user"
	case errors.As(err, &validationErr):
		errMap["type"] = "validation"
		errMap["category"] = "user"
	case errors.As(err, &notFoundErr):
		errMap["type"] = "not_found"
		errMap["category"] = "user"
	case errors.Is(err, vault.ErrOutsideVault):
		errMap["type"] = "validation"
		errMap["subtype"] = "path"
		errMap["category"] = "user"
	case errors.As(err, &ioErr):
		errMap["type"] = "io"
		if errors.Is(err, vault.ErrTooLarge) {
			errMap["category"] = "user"
		}
	case errors.Is(err, context.Canceled):
		errMap["type"] = "canceled"
		errMap["category"] = "user"
	}

	return map[string]interface{}{"error": errMap}
}
