package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/salmonumbrella/csvnotes/internal/apperr"
	"github.com/salmonumbrella/csvnotes/internal/output"
	"github.com/salmonumbrella/csvnotes/internal/vault"
)

func TestValidateErrorFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"", false},
		{"auto", false},
		{"TEXT", false},
		{" json ", false},
		{"yaml", false},
		{"xml", true},
		{"ndjson", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			err := validateErrorFormat(tt.format)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateErrorFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
			}
		})
	}
}

func TestEffectiveErrorFormat(t *testing.T) {
	tests := []struct {
		name         string
		errorFormat  string
		outputFormat output.Format
		want         string
	}{
		{"empty defaults to text", "", output.FormatText, "text"},
		{"auto with json output", "auto", output.FormatJSON, "json"},
		{"auto with ndjson output", "auto", output.FormatNDJSON, "json"},
		{"auto with yaml output", "auto", output.FormatYAML, "yaml"},
		{"auto with table output", "auto", output.FormatTable, "text"},
		{"explicit json overrides", "json", output.FormatText, "json"},
		{"explicit text overrides", "text", output.FormatJSON, "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := WithErrorFormat(context.Background(), tt.errorFormat)
			ctx = output.WithFormat(ctx, tt.outputFormat)
			if got := effectiveErrorFormat(ctx); got != tt.want {
				t.Errorf("effectiveErrorFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildErrorEnvelope(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantType     string
		wantCategory string
		wantSubtype  string
	}{
		{"generic error", errors.New("boom"), "error", "system", ""},
		{"config error", apperr.Configf("structure column %q not found", "X"), "validation", "user", "config"},
		{"wrapped validation error", fmt.Errorf("load: %w", apperr.Validationf("bad delimiter")), "validation", "user", ""},
		{"not found", apperr.NotFoundf("file not found: a.csv"), "not_found", "user", ""},
		{"io error", apperr.IOError{Op: "write", Path: "a.md", Err: errors.New("disk full")}, "io", "system", ""},
		{"too large", apperr.IOError{Op: "read", Path: "big.csv", Err: vault.ErrTooLarge}, "io", "user", ""},
		{"outside vault", fmt.Errorf("read: %w", vault.ErrOutsideVault), "validation", "user", "path"},
		{"canceled", fmt.Errorf("write notes: %w", context.Canceled), "canceled", "user", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := buildErrorEnvelope(tt.err)
			errMap, ok := result["error"].(map[string]interface{})
			if !ok {
				t.Fatal("expected 'error' map in result")
			}
			if errMap["message"] != tt.err.Error() {
				t.Errorf("message = %v, want %v", errMap["message"], tt.err.Error())
			}
			if errMap["type"] != tt.wantType {
				t.Errorf("type = %v, want %v", errMap["type"], tt.wantType)
			}
			if errMap["category"] != tt.wantCategory {
				t.Errorf("category = %v, want %v", errMap["category"], tt.wantCategory)
			}
			if tt.wantSubtype != "" && errMap["subtype"] != tt.wantSubtype {
				t.Errorf("subtype = %v, want %v", errMap["subtype"], tt.wantSubtype)
			}
		})
	}
}

func TestPrintCommandError(t *testing.T) {
	newCtx := func(format string) (context.Context, *bytes.Buffer) {
		errBuf := &bytes.Buffer{}
		ctx := withIO(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, errBuf)
		ctx = WithErrorFormat(ctx, format)
		return output.WithFormat(ctx, output.FormatText), errBuf
	}

	t.Run("nil", func(t *testing.T) {
		ctx, errBuf := newCtx("text")
		printCommandError(ctx, nil)
		if errBuf.Len() != 0 {
			t.Errorf("expected no output, got %q", errBuf.String())
		}
	})

	t.Run("text", func(t *testing.T) {
		ctx, errBuf := newCtx("text")
		printCommandError(ctx, errors.New("test error message"))
		got := strings.TrimSpace(errBuf.String())
		if !strings.HasSuffix(got, "test error message") || !strings.Contains(got, "Error:") {
			t.Errorf("unexpected text error %q", got)
		}
	})

	t.Run("json", func(t *testing.T) {
		ctx, errBuf := newCtx("json")
		printCommandError(ctx, apperr.NotFoundf("template \"x\" not found"))
		var result map[string]map[string]interface{}
		if err := json.Unmarshal(errBuf.Bytes(), &result); err != nil {
			t.Fatalf("failed to parse JSON output: %v", err)
		}
		if result["error"]["type"] != "not_found" {
			t.Errorf("type = %v, want not_found", result["error"]["type"])
		}
	})

	t.Run("yaml", func(t *testing.T) {
		ctx, errBuf := newCtx("yaml")
		printCommandError(ctx, apperr.Validationf("validation failed"))
		var result map[string]map[string]interface{}
		if err := yaml.Unmarshal(errBuf.Bytes(), &result); err != nil {
			t.Fatalf("failed to parse YAML output: %v", err)
		}
		if result["error"]["message"] != "validation failed" || result["error"]["type"] != "validation" {
			t.Errorf("unexpected envelope %v", result)
		}
	})
}
