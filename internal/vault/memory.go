package vault

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/salmonumbrella/csvnotes/internal/apperr"
)

// Memory is an in-memory Vault. Used by tests and dry runs.
type Memory struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]bool

	// WriteHook, when set, runs before every write; a non-nil error fails
	// the write.
	WriteHook func(p string) error
}

// NewMemory returns an empty in-memory vault seeded with files.
func NewMemory(files map[string]string) *Memory {
	m := &Memory{files: make(map[string][]byte), dirs: map[string]bool{".": true}}
	for p, content := range files {
		rel, err := Clean(p)
		if err != nil {
			continue
		}
		m.files[rel] = []byte(content)
		m.addParents(rel)
	}
	return m
}

func (m *Memory) addParents(rel string) {
	for {
		i := strings.LastIndex(rel, "/")
		if i < 0 {
			return
		}
		rel = rel[:i]
		m.dirs[rel] = true
	}
}

func (m *Memory) ListFiles(ctx context.Context, exts ...string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for p := range m.files {
		if matchExt(p, exts) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) ReadFile(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel, err := Clean(p)
	if err != nil {
		return nil, apperr.Validationf("invalid path %q: %v", p, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[rel]
	if !ok {
		return nil, apperr.NotFoundf("file not found: %s", rel)
	}
	if len(data) > MaxFileSize {
		return nil, apperr.IOError{Op: "read", Path: rel, Err: ErrTooLarge}
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) WriteFile(ctx context.Context, p string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel, err := Clean(p)
	if err != nil {
		return apperr.Validationf("invalid path %q: %v", p, err)
	}
	if m.WriteHook != nil {
		if err := m.WriteHook(rel); err != nil {
			return apperr.IOError{Op: "write", Path: rel, Err: err}
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[rel]; ok || m.dirs[rel] {
		return apperr.IOError{Op: "write", Path: rel, Err: ErrExists}
	}
	m.files[rel] = append([]byte(nil), content...)
	m.addParents(rel)
	return nil
}

func (m *Memory) CreateDirectory(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel, err := Clean(p)
	if err != nil {
		return apperr.Validationf("invalid path %q: %v", p, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[rel] = true
	m.addParents(rel)
	return nil
}

func (m *Memory) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	rel, err := Clean(p)
	if err != nil {
		return false, apperr.Validationf("invalid path %q: %v", p, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[rel]
	return ok || m.dirs[rel], nil
}

// Content returns the stored bytes for p as a string.
func (m *Memory) Content(p string) (string, bool) {
	rel, err := Clean(p)
	if err != nil {
		return "", false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[rel]
	return string(data), ok
}
