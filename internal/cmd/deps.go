package cmd

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/salmonumbrella/csvnotes/internal/vault"
)

var (
	envGet    = os.Getenv
	loadEnv   = loadDotenv
	openVault = func(root string) (vault.Vault, error) {
		return vault.NewDir(root)
	}
	writeLocalFile = os.WriteFile
	nowFunc        = time.Now
)

// loadDotenv reads ./.env into the environment. Variables that are already
// set win, and a missing file is fine.
func loadDotenv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
