package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/salmonumbrella/csvnotes/internal/apperr"
)

// Dir is a Vault backed by a directory on disk.
type Dir struct {
	root        string
	maxFileSize int64
}

// DirOption configures a Dir.
type DirOption func(*Dir)

// WithMaxFileSize overrides the ReadFile size limit.
func WithMaxFileSize(n int64) DirOption {
	return func(d *Dir) {
		d.maxFileSize = n
	}
}

// NewDir opens the vault rooted at root. The directory must exist.
func NewDir(root string, opts ...DirOption) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving vault path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.NotFoundf("vault not found: %s", root)
		}
		return nil, apperr.IOError{Op: "stat", Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, apperr.Configf("vault is not a directory: %s", root)
	}

	d := &Dir{root: abs, maxFileSize: MaxFileSize}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Root returns the absolute vault directory.
func (d *Dir) Root() string { return d.root }

func (d *Dir) resolve(p string) (string, string, error) {
	rel, err := Clean(p)
	if err != nil {
		return "", "", apperr.Validationf("invalid path %q: %v", p, err)
	}
	return rel, filepath.Join(d.root, filepath.FromSlash(rel)), nil
}

// ListFiles walks the vault, skipping hidden directories such as .obsidian.
func (d *Dir) ListFiles(ctx context.Context, exts ...string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(d.root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := entry.Name()
		if entry.IsDir() {
			if p != d.root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !matchExt(name, exts) {
			return nil
		}
		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperr.IOError{Op: "list", Path: d.root, Err: err}
	}
	sort.Strings(files)
	return files, nil
}

// ReadFile reads p, refusing files larger than the size limit.
func (d *Dir) ReadFile(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel, full, err := d.resolve(p)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.NotFoundf("file not found: %s", rel)
		}
		return nil, apperr.IOError{Op: "read", Path: rel, Err: err}
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, apperr.IOError{Op: "read", Path: rel, Err: err}
	}
	if info.IsDir() {
		return nil, apperr.Validationf("%s is a directory", rel)
	}
	if d.maxFileSize > 0 && info.Size() > d.maxFileSize {
		return nil, apperr.IOError{Op: "read", Path: rel, Err: ErrTooLarge}
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apperr.IOError{Op: "read", Path: rel, Err: err}
	}
	return data, nil
}

// WriteFile creates p exclusively, creating parent directories as needed.
func (d *Dir) WriteFile(ctx context.Context, p string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel, full, err := d.resolve(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return apperr.IOError{Op: "write", Path: rel, Err: err}
	}
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return apperr.IOError{Op: "write", Path: rel, Err: ErrExists}
		}
		return apperr.IOError{Op: "write", Path: rel, Err: err}
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return apperr.IOError{Op: "write", Path: rel, Err: err}
	}
	if err := f.Close(); err != nil {
		return apperr.IOError{Op: "write", Path: rel, Err: err}
	}
	return nil
}

// CreateDirectory is idempotent.
func (d *Dir) CreateDirectory(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel, full, err := d.resolve(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(full, 0o755); err != nil {
		return apperr.IOError{Op: "mkdir", Path: rel, Err: err}
	}
	return nil
}

// Exists reports whether p names a file or directory.
func (d *Dir) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	rel, full, err := d.resolve(p)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, apperr.IOError{Op: "stat", Path: rel, Err: err}
	}
}
