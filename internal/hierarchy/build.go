// Package hierarchy groups flat rows into a nested tree keyed by the values
// of an ordered list of structure columns.
package hierarchy

import (
	"fmt"
	"strings"
	"time"

	"github.com/salmonumbrella/csvnotes/internal/apperr"
	"github.com/salmonumbrella/csvnotes/internal/table"
)

// PathSeparator joins structure columns and values for display.
const PathSeparator = " → "

// TimeLayout is the ISO-8601 form used for generated timestamps.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Collision decides what happens when two rows land on the same key path.
type Collision string

const (
	// CollisionOverwrite keeps only the last row (last write wins).
	CollisionOverwrite Collision = "overwrite"
	// CollisionMerge keeps every row as an array under the shared key.
	CollisionMerge Collision = "merge"
)

// ParseCollision accepts overwrite (default) or merge.
func ParseCollision(s string) (Collision, error) {
	switch Collision(strings.ToLower(strings.TrimSpace(s))) {
	case "", CollisionOverwrite:
		return CollisionOverwrite, nil
	case CollisionMerge:
		return CollisionMerge, nil
	default:
		return "", apperr.Configf("invalid collision policy %q (expected overwrite|merge)", s)
	}
}

// Config describes one build.
type Config struct {
	SourceFile string
	Structure  []string
	Excluded   []string
	Collision  Collision
	// Now stamps Metadata.Generated; defaults to time.Now.
	Now func() time.Time
}

// Metadata is the header written next to the tree.
type Metadata struct {
	SourceFile      string   `json:"sourceFile"`
	Structure       string   `json:"structure"`
	DataColumns     []string `json:"dataColumns"`
	ExcludedColumns []string `json:"excludedColumns"`
	TotalEntries    int      `json:"totalEntries"`
	Generated       string   `json:"generated"`
}

// CollisionRecord notes a row that landed on an occupied key path.
type CollisionRecord struct {
	Path      []string `json:"path"`
	SourceRow int      `json:"source_row"`
	Prior     int      `json:"prior"`
}

// Result is the output of Build. It is owned by the caller for one render.
type Result struct {
	Metadata   Metadata          `json:"metadata"`
	Data       *Node             `json:"data"`
	Collisions []CollisionRecord `json:"-"`
}

// DataColumns returns columns that are neither structure nor excluded, in
// header order.
func DataColumns(columns, structure, excluded []string) []string {
	skip := make(map[string]bool, len(structure)+len(excluded))
	for _, c := range structure {
		skip[c] = true
	}
	for _, c := range excluded {
		skip[c] = true
	}
	out := []string{}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if skip[c] || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// CheckStructure rejects an empty structure, duplicate or missing structure
// columns, and columns that are both structure and excluded.
func CheckStructure(columns, structure, excluded []string) error {
	if len(structure) == 0 {
		return apperr.Configf("structure must name at least one column")
	}

	seen := make(map[string]bool, len(structure))
	var dups []string
	for _, c := range structure {
		if seen[c] {
			dups = append(dups, c)
		}
		seen[c] = true
	}
	if len(dups) > 0 {
		return apperr.Configf("Duplicate columns in structure: %s", strings.Join(dups, ", "))
	}

	have := make(map[string]bool, len(columns))
	for _, c := range columns {
		have[c] = true
	}
	var missing []string
	for _, c := range structure {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return apperr.Configf("Structure references missing columns: %s", strings.Join(missing, ", "))
	}

	var overlap []string
	for _, c := range excluded {
		if seen[c] {
			overlap = append(overlap, c)
		}
	}
	if len(overlap) > 0 {
		return apperr.Configf("Columns cannot be both in structure and excluded: %s", strings.Join(overlap, ", "))
	}
	return nil
}

// Build groups tbl's rows by cfg.Structure. Rows are visited in file order,
// which fixes key order at every level. Once checks pass, no row can fail:
// empty structure values fall back to a per-row Empty_ key.
func Build(tbl *table.Table, cfg Config) (*Result, error) {
	if tbl == nil {
		return nil, apperr.Configf("no data loaded")
	}
	if err := CheckStructure(tbl.Columns, cfg.Structure, cfg.Excluded); err != nil {
		return nil, err
	}
	collision := cfg.Collision
	if collision == "" {
		collision = CollisionOverwrite
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	dataColumns := DataColumns(tbl.Columns, cfg.Structure, cfg.Excluded)
	excluded := append([]string{}, cfg.Excluded...)

	res := &Result{
		Metadata: Metadata{
			SourceFile:      cfg.SourceFile,
			Structure:       strings.Join(cfg.Structure, PathSeparator),
			DataColumns:     dataColumns,
			ExcludedColumns: excluded,
			TotalEntries:    len(tbl.Rows),
			Generated:       now().UTC().Format(TimeLayout),
		},
		Data: newNode(),
	}

	last := len(cfg.Structure) - 1
	for i, row := range tbl.Rows {
		cursor := res.Data
		path := make([]string, 0, len(cfg.Structure))
		for level, col := range cfg.Structure {
			key := GenerateKey(row.Get(col), col, i)
			path = append(path, key)
			if level < last {
				cursor = cursor.childOrCreate(key)
				continue
			}
			leaf := newLeaf(row, i, cfg.Structure, dataColumns)
			if prior := cursor.putLeaf(key, leaf, collision); prior > 0 {
				res.Collisions = append(res.Collisions, CollisionRecord{Path: path, SourceRow: i + 1, Prior: prior})
			}
		}
	}
	return res, nil
}

// GenerateKey returns the trimmed display form of v, or
// Empty_<column>_<rowIndex> when v is null or blank. Empty keys are unique
// per row so blank rows never group together.
func GenerateKey(v table.Value, column string, rowIndex int) string {
	if v.IsEmpty() {
		return fmt.Sprintf("Empty_%s_%d", column, rowIndex)
	}
	return strings.TrimSpace(v.String())
}

func newLeaf(row table.Row, index int, structure, dataColumns []string) *Leaf {
	values := make(map[string]table.Value, len(dataColumns))
	for _, col := range dataColumns {
		values[col] = row.Get(col)
	}
	parts := make([]string, len(structure))
	for i, col := range structure {
		parts[i] = row.Get(col).String()
	}
	return &Leaf{
		Columns: dataColumns,
		Values:  values,
		Meta: LeafMeta{
			SourceRow:     index + 1,
			StructurePath: strings.Join(parts, PathSeparator),
		},
	}
}
