package templates

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salmonumbrella/csvnotes/internal/apperr"
)

type memPersistence struct {
	state   *State
	saves   int
	saveErr error
}

func (m *memPersistence) Load() (*State, error) {
	if m.state == nil {
		return &State{}, nil
	}
	return m.state, nil
}

func (m *memPersistence) Save(s *State) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.state = s
	return nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestStore() (*Store, *memPersistence, *clock) {
	p := &memPersistence{}
	c := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	return NewStore(p, WithClock(c.now)), p, c
}

func TestSaveAndLoadBumpsLastUsed(t *testing.T) {
	s, p, c := newTestStore()

	saved, err := s.Save("  Issues  ", Config{Structure: []string{"Project", "Type"}, Excluded: []string{"Secret"}, Description: "bugs"})
	require.NoError(t, err)
	assert.Equal(t, "Issues", saved.Name)
	assert.Equal(t, Metadata{Version: "1.0", ColumnCount: 2, ExcludedCount: 1}, saved.Metadata)
	assert.Equal(t, 1, p.saves)

	c.t = c.t.Add(time.Hour)
	loaded, err := s.Load("Issues")
	require.NoError(t, err)
	assert.Equal(t, c.t, loaded.LastUsed)
	assert.Equal(t, c.t.Add(-time.Hour), loaded.Created)
	assert.Equal(t, 2, p.saves)

	loaded.Structure[0] = "mutated"
	again, err := s.Get("Issues")
	require.NoError(t, err)
	assert.Equal(t, []string{"Project", "Type"}, again.Structure)
	assert.Equal(t, 2, p.saves, "Get must not persist")
}

func TestNamesAreTrimmedOnEveryLookup(t *testing.T) {
	s, _, _ := newTestStore()

	_, err := s.Save(" x ", Config{Structure: []string{"A"}})
	require.NoError(t, err)

	ok, err := s.Exists(" x ")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.Get(" x ")
	require.NoError(t, err)
	assert.Equal(t, "x", got.Name)

	_, err = s.Load("x ")
	require.NoError(t, err)

	v, err := s.Validate("  x", []string{"A"})
	require.NoError(t, err)
	assert.True(t, v.Valid)

	require.NoError(t, s.Delete(" x "))
	ok, err = s.Exists("x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	s, p, _ := newTestStore()

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"", Config{Structure: []string{"a"}}, "non-empty"},
		{"t", Config{}, "cannot be empty"},
		{"t", Config{Structure: []string{"a", "a"}}, "Duplicate columns in structure: a"},
		{"t", Config{Structure: []string{"a"}, Excluded: []string{"a"}}, "both in structure and excluded: a"},
	}
	for _, tt := range tests {
		_, err := s.Save(tt.name, tt.cfg)
		require.Error(t, err)
		var verr apperr.ValidationError
		assert.True(t, errors.As(err, &verr))
		assert.Contains(t, err.Error(), tt.want)
	}
	assert.Equal(t, 0, p.saves)
}

func TestLoadMissing(t *testing.T) {
	s, _, _ := newTestStore()
	_, err := s.Load("nope")
	var nf apperr.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestDeleteNamesAllClear(t *testing.T) {
	s, _, c := newTestStore()
	for _, name := range []string{"b", "a", "c"} {
		_, err := s.Save(name, Config{Structure: []string{"x"}})
		require.NoError(t, err)
		c.t = c.t.Add(time.Minute)
	}

	names, err := s.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names)

	all, err := s.All()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].Name)
	assert.Equal(t, "b", all[2].Name)

	require.NoError(t, s.Delete("a"))
	require.NoError(t, s.Delete("a"))
	ok, err := s.Exists("a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Clear())
	names, err = s.Names()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestValidate(t *testing.T) {
	s, _, _ := newTestStore()
	_, err := s.Save("t", Config{Structure: []string{"Project", "Type"}, Excluded: []string{"Secret", "Notes"}})
	require.NoError(t, err)

	v, err := s.Validate("t", []string{"Project", "Notes", "Desc"})
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, "Missing columns: Type", v.Error)
	assert.Equal(t, []string{"Type"}, v.MissingColumns)
	assert.Equal(t, []string{"Project"}, v.AvailableStructure)
	assert.Equal(t, []string{"Notes"}, v.AvailableExcluded)
	assert.Equal(t, []string{"Excluded columns no longer available: Secret"}, v.Warnings)

	v, err = s.Validate("t", []string{"Project", "Type"})
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Empty(t, v.Error)

	v, err = s.Validate("missing", nil)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, "Template not found", v.Error)
}

func TestExportImportRoundTrip(t *testing.T) {
	src, _, _ := newTestStore()
	_, err := src.Save("one", Config{Structure: []string{"a", "b"}})
	require.NoError(t, err)
	_, err = src.Save("two", Config{Structure: []string{"c"}, Excluded: []string{"d"}})
	require.NoError(t, err)

	data, err := src.Export()
	require.NoError(t, err)
	var bundle map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &bundle))
	assert.Equal(t, "1.0", bundle["version"])
	assert.Contains(t, bundle, "exportDate")

	dst, _, _ := newTestStore()
	_, err = dst.Save("one", Config{Structure: []string{"keep"}})
	require.NoError(t, err)

	res, err := dst.Import(data)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, res.Errors)

	kept, err := dst.Get("one")
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, kept.Structure)

	two, err := dst.Get("two")
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, two.Excluded)
	assert.NotNil(t, two.Imported)
}

func TestImportReportsBadEntries(t *testing.T) {
	s, _, _ := newTestStore()
	res, err := s.Import([]byte(`{"templates":{
		"good":{"structure":["a"]},
		"empty":{"structure":[]},
		"wrong":{"structure":"a"}
	}}`))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], `Template "empty": Template structure cannot be empty`)
	assert.Contains(t, res.Errors[1], `Template "wrong"`)

	_, err = s.Import([]byte(`{"version":"1.0"}`))
	assert.ErrorContains(t, err, "Invalid template file format")

	_, err = s.Import([]byte(`not json`))
	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	s, _, c := newTestStore()
	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, &Stats{}, st)

	_, err = s.Save("old", Config{Structure: []string{"a"}})
	require.NoError(t, err)
	c.t = c.t.Add(10 * 24 * time.Hour)
	_, err = s.Save("new", Config{Structure: []string{"a", "b"}})
	require.NoError(t, err)

	st, err = s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, "new", st.MostRecentlyUsed)
	assert.Equal(t, 1, st.UsedThisWeek)
	assert.Equal(t, 2, st.AverageStructureLength)
}

func TestPersistenceErrorsSurface(t *testing.T) {
	p := &memPersistence{saveErr: errors.New("disk full")}
	s := NewStore(p)
	_, err := s.Save("t", Config{Structure: []string{"a"}})
	assert.ErrorContains(t, err, "disk full")
}

func TestFilePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "templates.yaml")
	fp := FilePersistence{Path: path}

	state, err := fp.Load()
	require.NoError(t, err)
	assert.Empty(t, state.Templates)

	s := NewStore(fp)
	_, err = s.Save("issues", Config{Structure: []string{"Project", "Type"}, Excluded: []string{"Secret"}})
	require.NoError(t, err)

	reopened := NewStore(FilePersistence{Path: path})
	tmpl, err := reopened.Get("issues")
	require.NoError(t, err)
	assert.Equal(t, []string{"Project", "Type"}, tmpl.Structure)
	assert.Equal(t, []string{"Secret"}, tmpl.Excluded)
	assert.Equal(t, 2, tmpl.Metadata.ColumnCount)
}
