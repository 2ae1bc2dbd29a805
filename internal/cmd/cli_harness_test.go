package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/salmonumbrella/csvnotes/internal/convert"
	"github.com/salmonumbrella/csvnotes/internal/vault"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

const peopleCSV = "Name,Team,Role\nAda,Eng,Lead\nBob,Ops,Staff\nCy,Eng,Dev\n"

// cliEnv runs the root command against an in-memory vault with its config
// and template files in a temp dir.
type cliEnv struct {
	vault         *vault.Memory
	vaultRoot     string
	configPath    string
	templatesPath string
	env           map[string]string
}

func newCLIEnv(t *testing.T, files map[string]string) *cliEnv {
	t.Helper()
	restore := snapshotCLIState()
	t.Cleanup(restore)

	dir := t.TempDir()
	e := &cliEnv{
		vault:         vault.NewMemory(files),
		configPath:    filepath.Join(dir, "config.yaml"),
		templatesPath: filepath.Join(dir, "templates.yaml"),
		env:           map[string]string{},
	}
	e.env["CSVNOTES_TEMPLATES"] = e.templatesPath

	envGet = func(key string) string { return e.env[key] }
	loadEnv = func() error { return nil }
	openVault = func(root string) (vault.Vault, error) {
		e.vaultRoot = root
		return e.vault, nil
	}
	nowFunc = func() time.Time { return fixedNow }
	return e
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errBuf)
	rootCmd.SetIn(&bytes.Buffer{})
	resetCommandState()
	rootCmd.SetArgs(append([]string{"--config", e.configPath}, args...))

	err := Execute(context.Background())
	return out.String(), errBuf.String(), err
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, errOut, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("%v: %v\nstderr: %s", args, err, errOut)
	}
	return out
}

func decodeJSON(t *testing.T, raw string, v interface{}) {
	t.Helper()
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		t.Fatalf("parse output: %v\n%s", err, raw)
	}
}

func TestCLIHarnessFilesJSON(t *testing.T) {
	e := newCLIEnv(t, map[string]string{
		"people.csv":       peopleCSV,
		"data/tasks.xlsx":  "x",
		"notes/readme.md":  "# hi",
		"exports/list.tsv": "a\tb\n1\t2\n",
	})
	e.env["CSVNOTES_VAULT"] = "/vault/from/env"

	out := e.mustRun(t, "files")

	var files []string
	decodeJSON(t, out, &files)
	want := []string{"data/tasks.xlsx", "exports/list.tsv", "people.csv"}
	if len(files) != len(want) {
		t.Fatalf("expected %v, got %v", want, files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, files)
		}
	}
	if e.vaultRoot != "/vault/from/env" {
		t.Fatalf("expected vault from env, got %q", e.vaultRoot)
	}
}

func TestCLIHarnessFilesTable(t *testing.T) {
	e := newCLIEnv(t, map[string]string{"people.csv": peopleCSV})

	out := e.mustRun(t, "--vault", "/flag/vault", "-o", "table", "files")
	if out != "FILE\npeople.csv\n" {
		t.Fatalf("unexpected table output: %q", out)
	}
	if e.vaultRoot != "/flag/vault" {
		t.Fatalf("expected vault from flag, got %q", e.vaultRoot)
	}
}

func snapshotCLIState() func() {
	prevVault := vaultPath
	prevOutputFmt := outputFmt
	prevOutputType := outputType
	prevDebug := debug
	prevConfig := configFile
	prevQueryExpr := queryExpr
	prevQueryFile := queryFile
	prevErrorFmt := errorFmt
	prevQuiet := quietFlag

	prevEnvGet := envGet
	prevLoadEnv := loadEnv
	prevOpenVault := openVault
	prevWriteLocal := writeLocalFile
	prevNow := nowFunc

	prevLogger := logger
	prevSettings := settings
	prevConverter := converter
	prevStore := templateStore

	prevOut := rootCmd.OutOrStdout()
	prevErr := rootCmd.ErrOrStderr()
	prevIn := rootCmd.InOrStdin()
	prevCtx := rootCmd.Context()

	return func() {
		resetCommandState()
		vaultPath = prevVault
		outputFmt = prevOutputFmt
		outputType = prevOutputType
		debug = prevDebug
		configFile = prevConfig
		queryExpr = prevQueryExpr
		queryFile = prevQueryFile
		errorFmt = prevErrorFmt
		quietFlag = prevQuiet

		envGet = prevEnvGet
		loadEnv = prevLoadEnv
		openVault = prevOpenVault
		writeLocalFile = prevWriteLocal
		nowFunc = prevNow

		logger = prevLogger
		settings = prevSettings
		converter = prevConverter
		templateStore = prevStore

		rootCmd.SetOut(prevOut)
		rootCmd.SetErr(prevErr)
		rootCmd.SetIn(prevIn)
		rootCmd.SetContext(prevCtx)
		rootCmd.SetArgs(nil)
	}
}

// resetCommandState puts every global flag variable back to its default and
// clears the Changed marks cobra relies on.
func resetCommandState() {
	vaultPath = ""
	outputFmt = "text"
	outputType = ""
	debug = false
	queryExpr = ""
	queryFile = ""
	errorFmt = "auto"
	quietFlag = false

	inspectSheet, inspectDelimiter, inspectRows = "", "", convert.DefaultPreviewRows

	convertStructure, convertExclude = nil, nil
	convertFormat, convertTemplate, convertPreset, convertFolder, convertCollision = "", "", "", "", ""
	convertStdout, convertDryRun = false, false
	convertSheet, convertDelimiter = "", ""

	templateStructure, templateExclude, templateColumns = nil, nil, nil
	templateDescription, templateSheet, templateExportFile = "", "", ""
	templateClearYes = false

	previewStructure, previewData, previewFormat = nil, nil, "json"

	walkCommands(rootCmd, func(c *cobra.Command) {
		resetFlagChanges(c)
		if c != rootCmd {
			c.SetContext(nil)
		}
	})
}

func walkCommands(c *cobra.Command, fn func(*cobra.Command)) {
	fn(c)
	for _, sub := range c.Commands() {
		walkCommands(sub, fn)
	}
}

func resetFlagChanges(cmdFlagSet interface {
	Flags() *pflag.FlagSet
	PersistentFlags() *pflag.FlagSet
	InheritedFlags() *pflag.FlagSet
},
) {
	if cmdFlagSet == nil {
		return
	}
	cmdFlagSet.Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
	})
	cmdFlagSet.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
	})
	cmdFlagSet.InheritedFlags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
	})
}
