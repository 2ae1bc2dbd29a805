// Package templates stores named conversion setups (structure and excluded
// columns) so they can be reapplied to files with the same header.
package templates

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/salmonumbrella/csvnotes/internal/apperr"
)

// FormatVersion is written into template metadata and exports.
const FormatVersion = "1.0"

// Metadata is derived from the template's column lists.
type Metadata struct {
	Version       string `yaml:"version" json:"version"`
	ColumnCount   int    `yaml:"column_count" json:"columnCount"`
	ExcludedCount int    `yaml:"excluded_count" json:"excludedCount"`
}

// Template is a saved conversion setup.
type Template struct {
	Name        string     `yaml:"name" json:"name"`
	Structure   []string   `yaml:"structure" json:"structure"`
	Excluded    []string   `yaml:"excluded" json:"excluded"`
	Created     time.Time  `yaml:"created" json:"created"`
	LastUsed    time.Time  `yaml:"last_used" json:"lastUsed"`
	Imported    *time.Time `yaml:"imported,omitempty" json:"imported,omitempty"`
	Description string     `yaml:"description,omitempty" json:"description"`
	Metadata    Metadata   `yaml:"metadata" json:"metadata"`
}

func (t Template) clone() Template {
	t.Structure = append([]string{}, t.Structure...)
	t.Excluded = append([]string{}, t.Excluded...)
	if t.Imported != nil {
		imported := *t.Imported
		t.Imported = &imported
	}
	return t
}

// Config is the user-supplied part of a template.
type Config struct {
	Structure   []string
	Excluded    []string
	Description string
}

// Store is the template registry. It loads lazily from its persistence on
// first use and writes through on every change.
type Store struct {
	mu     sync.Mutex
	p      Persistence
	now    func() time.Time
	state  *State
	loaded bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore returns a store backed by p.
func NewStore(p Persistence, opts ...Option) *Store {
	s := &Store{p: p, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) ensureLoaded() error {
	if s.loaded {
		return nil
	}
	state, err := s.p.Load()
	if err != nil {
		return err
	}
	if state == nil {
		state = &State{}
	}
	if state.Templates == nil {
		state.Templates = make(map[string]Template)
	}
	s.state = state
	s.loaded = true
	return nil
}

func (s *Store) persist() error {
	return s.p.Save(s.state)
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

// CheckConfig rejects an empty structure, duplicate structure columns and
// columns listed as both structure and excluded.
func CheckConfig(structure, excluded []string) error {
	if len(structure) == 0 {
		return apperr.Validationf("Template structure cannot be empty")
	}
	seen := make(map[string]bool, len(structure))
	var dups []string
	for _, col := range structure {
		if seen[col] {
			dups = append(dups, col)
		}
		seen[col] = true
	}
	if len(dups) > 0 {
		return apperr.Validationf("Duplicate columns in structure: %s", strings.Join(dups, ", "))
	}
	var conflicts []string
	for _, col := range excluded {
		if seen[col] {
			conflicts = append(conflicts, col)
		}
	}
	if len(conflicts) > 0 {
		return apperr.Validationf("Columns cannot be both in structure and excluded: %s", strings.Join(conflicts, ", "))
	}
	return nil
}

// Save stores cfg under name, replacing any template of that name.
func (s *Store) Save(name string, cfg Config) (*Template, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validationf("Template name must be a non-empty string")
	}
	if err := CheckConfig(cfg.Structure, cfg.Excluded); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	now := s.timestamp()
	t := Template{
		Name:        name,
		Structure:   append([]string{}, cfg.Structure...),
		Excluded:    append([]string{}, cfg.Excluded...),
		Created:     now,
		LastUsed:    now,
		Description: cfg.Description,
		Metadata: Metadata{
			Version:       FormatVersion,
			ColumnCount:   len(cfg.Structure),
			ExcludedCount: len(cfg.Excluded),
		},
	}
	s.state.Templates[name] = t
	if err := s.persist(); err != nil {
		return nil, err
	}
	out := t.clone()
	return &out, nil
}

// Load returns a copy of the named template. Loading marks the template as
// used: lastUsed is bumped and the store is persisted.
func (s *Store) Load(name string) (*Template, error) {
	name = strings.TrimSpace(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	t, ok := s.state.Templates[name]
	if !ok {
		return nil, apperr.NotFoundf("template %q not found", name)
	}
	t.LastUsed = s.timestamp()
	s.state.Templates[name] = t
	if err := s.persist(); err != nil {
		return nil, err
	}
	out := t.clone()
	return &out, nil
}

// Get returns a copy of the named template without marking it used.
func (s *Store) Get(name string) (*Template, error) {
	name = strings.TrimSpace(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	t, ok := s.state.Templates[name]
	if !ok {
		return nil, apperr.NotFoundf("template %q not found", name)
	}
	out := t.clone()
	return &out, nil
}

// Delete removes name. Deleting an absent template is not an error.
func (s *Store) Delete(name string) error {
	name = strings.TrimSpace(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	if _, ok := s.state.Templates[name]; !ok {
		return nil
	}
	delete(s.state.Templates, name)
	return s.persist()
}

// Names returns template names in sorted order.
func (s *Store) Names() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(s.state.Templates))
	for name := range s.state.Templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// All returns every template, most recently used first.
func (s *Store) All() ([]Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	return s.all(), nil
}

func (s *Store) all() []Template {
	out := make([]Template, 0, len(s.state.Templates))
	for name, t := range s.state.Templates {
		t = t.clone()
		if t.Name == "" {
			t.Name = name
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].LastUsed.Equal(out[j].LastUsed) {
			return out[i].LastUsed.After(out[j].LastUsed)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Exists reports whether name is stored.
func (s *Store) Exists(name string) (bool, error) {
	name = strings.TrimSpace(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return false, err
	}
	_, ok := s.state.Templates[name]
	return ok, nil
}

// Clear removes every template.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	s.state.Templates = make(map[string]Template)
	return s.persist()
}

// Validation is the result of checking a template against a header.
type Validation struct {
	Valid              bool     `json:"valid"`
	Error              string   `json:"error,omitempty"`
	MissingColumns     []string `json:"missing_columns"`
	Warnings           []string `json:"warnings"`
	AvailableStructure []string `json:"available_structure"`
	AvailableExcluded  []string `json:"available_excluded"`
}

// Validate checks the named template against available columns. A missing
// structure column makes it invalid; a missing excluded column is only a
// warning.
func (s *Store) Validate(name string, available []string) (*Validation, error) {
	name = strings.TrimSpace(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	v := &Validation{
		MissingColumns:     []string{},
		Warnings:           []string{},
		AvailableStructure: []string{},
		AvailableExcluded:  []string{},
	}
	t, ok := s.state.Templates[name]
	if !ok {
		v.Error = "Template not found"
		return v, nil
	}

	have := make(map[string]bool, len(available))
	for _, col := range available {
		have[col] = true
	}
	for _, col := range t.Structure {
		if have[col] {
			v.AvailableStructure = append(v.AvailableStructure, col)
		} else {
			v.MissingColumns = append(v.MissingColumns, col)
		}
	}
	var missingExcluded []string
	for _, col := range t.Excluded {
		if have[col] {
			v.AvailableExcluded = append(v.AvailableExcluded, col)
		} else {
			missingExcluded = append(missingExcluded, col)
		}
	}
	if len(missingExcluded) > 0 {
		v.Warnings = append(v.Warnings, "Excluded columns no longer available: "+strings.Join(missingExcluded, ", "))
	}
	v.Valid = len(v.MissingColumns) == 0
	if !v.Valid {
		v.Error = "Missing columns: " + strings.Join(v.MissingColumns, ", ")
	}
	return v, nil
}

// Export is the portable template bundle.
type Export struct {
	Version    string              `json:"version"`
	ExportDate time.Time           `json:"exportDate"`
	Templates  map[string]Template `json:"templates"`
}

// Export encodes every template as indented JSON.
func (s *Store) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	bundle := Export{
		Version:    FormatVersion,
		ExportDate: s.timestamp(),
		Templates:  s.state.Templates,
	}
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding templates: %w", err)
	}
	return append(data, '\n'), nil
}

// ImportResult counts what Import did.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// Import adds templates from an Export bundle. Names that already exist are
// skipped, and invalid entries are reported without stopping the import.
func (s *Store) Import(data []byte) (*ImportResult, error) {
	var bundle struct {
		Templates map[string]json.RawMessage `json:"templates"`
	}
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, apperr.Validationf("Failed to import templates: %v", err)
	}
	if bundle.Templates == nil {
		return nil, apperr.Validationf("Failed to import templates: Invalid template file format")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(bundle.Templates))
	for name := range bundle.Templates {
		names = append(names, name)
	}
	sort.Strings(names)

	res := &ImportResult{Errors: []string{}}
	now := s.timestamp()
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			res.Errors = append(res.Errors, "Template name must be a non-empty string")
			continue
		}
		var t Template
		if err := json.Unmarshal(bundle.Templates[raw], &t); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Template %q: %v", name, err))
			continue
		}
		if err := CheckConfig(t.Structure, t.Excluded); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Template %q: %v", name, err))
			continue
		}
		if _, ok := s.state.Templates[name]; ok {
			res.Skipped++
			continue
		}

		t.Name = name
		if t.Excluded == nil {
			t.Excluded = []string{}
		}
		if t.Created.IsZero() {
			t.Created = now
		}
		if t.LastUsed.IsZero() {
			t.LastUsed = now
		}
		imported := now
		t.Imported = &imported
		t.Metadata = Metadata{
			Version:       FormatVersion,
			ColumnCount:   len(t.Structure),
			ExcludedCount: len(t.Excluded),
		}
		s.state.Templates[name] = t
		res.Imported++
	}

	if err := s.persist(); err != nil {
		return nil, err
	}
	return res, nil
}

// Stats summarises template usage.
type Stats struct {
	Total                  int    `json:"total"`
	MostRecentlyUsed       string `json:"most_recently_used,omitempty"`
	UsedThisWeek           int    `json:"used_this_week"`
	AverageStructureLength int    `json:"average_structure_length"`
}

// Stats reports totals, the most recently used template, how many were
// used in the last seven days and the rounded mean structure length.
func (s *Store) Stats() (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	all := s.all()
	st := &Stats{Total: len(all)}
	if len(all) == 0 {
		return st, nil
	}
	st.MostRecentlyUsed = all[0].Name

	weekAgo := s.timestamp().Add(-7 * 24 * time.Hour)
	sum := 0
	for _, t := range all {
		if t.LastUsed.After(weekAgo) {
			st.UsedThisWeek++
		}
		sum += len(t.Structure)
	}
	st.AverageStructureLength = int(math.Round(float64(sum) / float64(len(all))))
	return st, nil
}
