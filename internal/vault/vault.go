// Package vault is the file capability the converter reads tables from and
// writes results into. Paths are vault-relative and slash separated.
package vault

import (
	"context"
	"errors"
	"path"
	"strings"
)

// MaxFileSize is the largest file ReadFile accepts by default (50 MiB).
const MaxFileSize = 50 * 1024 * 1024

var (
	// ErrExists is returned by WriteFile when the target is already taken.
	ErrExists = errors.New("file already exists")
	// ErrTooLarge is returned by ReadFile for files over the size limit.
	ErrTooLarge = errors.New("file too large")
	// ErrOutsideVault is returned for paths that escape the vault root.
	ErrOutsideVault = errors.New("path escapes vault root")
)

// Vault is the set of file operations the converter needs.
type Vault interface {
	// ListFiles returns vault-relative paths whose extension matches one of
	// exts (case-insensitive, with or without the dot), sorted.
	ListFiles(ctx context.Context, exts ...string) ([]string, error)
	ReadFile(ctx context.Context, p string) ([]byte, error)
	// WriteFile creates p. It never overwrites: an existing file yields ErrExists.
	WriteFile(ctx context.Context, p string, content []byte) error
	// CreateDirectory creates p and its parents; an existing directory is fine.
	CreateDirectory(ctx context.Context, p string) error
	Exists(ctx context.Context, p string) (bool, error)
}

// Clean normalises a vault-relative path and rejects escapes.
func Clean(p string) (string, error) {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	cleaned := path.Clean("/" + p)
	if strings.Contains(p, "..") {
		for _, part := range strings.Split(p, "/") {
			if part == ".." {
				return "", ErrOutsideVault
			}
		}
	}
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" {
		cleaned = "."
	}
	return cleaned, nil
}

// Join joins vault path elements with a slash.
func Join(elem ...string) string {
	return strings.TrimPrefix(path.Join(elem...), "/")
}

// Stem returns the base name of p without its extension.
func Stem(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Ext returns the lower-cased extension of p without the dot.
func Ext(p string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
}

func matchExt(p string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := Ext(p)
	for _, want := range exts {
		if strings.EqualFold(strings.TrimPrefix(want, "."), ext) {
			return true
		}
	}
	return false
}
