package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/salmonumbrella/csvnotes/internal/config"
	"github.com/salmonumbrella/csvnotes/internal/output"
)

func TestSetVersionInfo(t *testing.T) {
	origVersion, origCommit, origDate := version, commit, date
	defer func() {
		SetVersionInfo(origVersion, origCommit, origDate)
	}()

	SetVersionInfo("1.2.3", "abc123", "2025-01-01")

	if version != "1.2.3" || commit != "abc123" || date != "2025-01-01" {
		t.Fatalf("unexpected version info %q %q %q", version, commit, date)
	}
	if rootCmd.Version != "1.2.3" {
		t.Errorf("rootCmd.Version = %q", rootCmd.Version)
	}
	if got := versionTemplate(); got != "csvnotes version 1.2.3 (commit: abc123, built: 2025-01-01)\n" {
		t.Errorf("versionTemplate() = %q", got)
	}
}

func TestGetOutputFormat(t *testing.T) {
	prevType, prevFmt := outputType, outputFmt
	defer func() { outputType, outputFmt = prevType, prevFmt }()

	outputType, outputFmt = output.FormatJSON, "text"
	if got := GetOutputFormat(); got != output.FormatJSON {
		t.Errorf("GetOutputFormat() = %v, want json", got)
	}

	outputType, outputFmt = "", "yaml"
	if got := GetOutputFormat(); got != output.FormatYAML {
		t.Errorf("GetOutputFormat() = %v, want yaml", got)
	}

	outputFmt = "invalid"
	if got := GetOutputFormat(); got != output.FormatText {
		t.Errorf("GetOutputFormat() = %v, want text", got)
	}
}

func TestIsTerminal(t *testing.T) {
	if isTerminal(&bytes.Buffer{}) {
		t.Error("expected false for bytes.Buffer")
	}
	if isTerminal(nil) {
		t.Error("expected false for nil")
	}
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer f.Close()
	if isTerminal(f) {
		t.Error("expected false for regular file")
	}
}

func TestNewLoggerLevels(t *testing.T) {
	prevDebug, prevQuiet := debug, quietFlag
	defer func() { debug, quietFlag = prevDebug, prevQuiet }()

	debug, quietFlag = false, false
	if l := newLogger(&bytes.Buffer{}); l.GetLevel() != log.InfoLevel {
		t.Errorf("default level = %v", l.GetLevel())
	}
	quietFlag = true
	if l := newLogger(&bytes.Buffer{}); l.GetLevel() != log.ErrorLevel {
		t.Errorf("quiet level = %v", l.GetLevel())
	}
	debug = true
	if l := newLogger(&bytes.Buffer{}); l.GetLevel() != log.DebugLevel {
		t.Errorf("debug level = %v", l.GetLevel())
	}
}

func TestParseDelimiter(t *testing.T) {
	tests := map[string]rune{"": 0, ",": ',', ";": ';', "tab": '\t', "TAB": '\t', `\t`: '\t', "|": '|'}
	for in, want := range tests {
		got, err := parseDelimiter(in)
		if err != nil || got != want {
			t.Errorf("parseDelimiter(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := parseDelimiter(",,"); err == nil {
		t.Error("expected error for two characters")
	}
}

func TestSplitList(t *testing.T) {
	got := splitList([]string{" a, b", "", "c ,,d"})
	if strings.Join(got, "|") != "a|b|c|d" {
		t.Fatalf("splitList = %v", got)
	}
	if got := splitList(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", got)
	}
}

func TestResolveTemplatesPath(t *testing.T) {
	prevEnv := envGet
	defer func() { envGet = prevEnv }()

	envGet = func(string) string { return "" }
	p, err := resolveTemplatesPath(&config.Config{TemplatesFile: "/cfg/t.yaml"})
	if err != nil || p != "/cfg/t.yaml" {
		t.Fatalf("config path: %q, %v", p, err)
	}

	envGet = func(key string) string {
		if key == "CSVNOTES_TEMPLATES" {
			return "/env/t.yaml"
		}
		return ""
	}
	p, err = resolveTemplatesPath(&config.Config{TemplatesFile: "/cfg/t.yaml"})
	if err != nil || p != "/env/t.yaml" {
		t.Fatalf("env path: %q, %v", p, err)
	}
}

func TestQueryFileAndConflicts(t *testing.T) {
	e := newCLIEnv(t, map[string]string{"people.csv": peopleCSV})

	queryPath := filepath.Join(t.TempDir(), "q.jq")
	if err := os.WriteFile(queryPath, []byte(".[0]\n"), 0o600); err != nil {
		t.Fatalf("write query: %v", err)
	}
	out := e.mustRun(t, "files", "--query-file", queryPath)
	if strings.TrimSpace(out) != `"people.csv"` {
		t.Fatalf("unexpected query output %q", out)
	}

	if _, _, err := e.run(t, "files", "--query", ".", "--query-file", queryPath); err == nil {
		t.Fatal("expected error for --query with --query-file")
	}
	if _, _, err := e.run(t, "files", "-o", "xml"); err == nil {
		t.Fatal("expected error for bad output format")
	}
	if _, _, err := e.run(t, "files", "--error-format", "xml"); err == nil {
		t.Fatal("expected error for bad error format")
	}
}

func TestOutputFormatFromConfig(t *testing.T) {
	e := newCLIEnv(t, map[string]string{"people.csv": peopleCSV})
	if err := os.WriteFile(e.configPath, []byte("output_format: yaml\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out := e.mustRun(t, "files")
	if strings.TrimSpace(out) != "- people.csv" {
		t.Fatalf("expected yaml list, got %q", out)
	}
}

func TestPresetsAndPreview(t *testing.T) {
	e := newCLIEnv(t, nil)

	var presets []struct {
		ID string `json:"id"`
	}
	decodeJSON(t, e.mustRun(t, "presets"), &presets)
	if len(presets) != 3 || presets[0].ID != "hierarchical" {
		t.Fatalf("unexpected presets %+v", presets)
	}

	var doc struct {
		Metadata struct {
			Structure string `json:"structure"`
		} `json:"metadata"`
		Data map[string]any `json:"data"`
	}
	decodeJSON(t, e.mustRun(t, "preview", "--structure", "Team,Role", "--data", "Name"), &doc)
	if doc.Metadata.Structure != "Team → Role" || len(doc.Data) == 0 {
		t.Fatalf("unexpected preview %+v", doc)
	}

	out := e.mustRun(t, "-o", "text", "preview", "--structure", "Team", "--data", "Name", "--format", "dataview")
	if !strings.Contains(out, "---\n") || !strings.Contains(out, "tags:") {
		t.Fatalf("unexpected markdown preview:\n%s", out)
	}
	if e.vaultRoot != "" {
		t.Fatal("preview should not open the vault")
	}
}
