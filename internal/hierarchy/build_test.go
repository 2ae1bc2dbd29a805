package hierarchy

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salmonumbrella/csvnotes/internal/apperr"
	"github.com/salmonumbrella/csvnotes/internal/table"
)

var fixedNow = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

func parse(t *testing.T, text string) *table.Table {
	t.Helper()
	tbl, err := table.Parse(text, table.DefaultOptions())
	require.NoError(t, err)
	return tbl
}

func buildJSON(t *testing.T, res *Result) map[string]interface{} {
	t.Helper()
	data, err := json.Marshal(res)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestBuildLastWriteWins(t *testing.T) {
	tbl := parse(t, "Project,Type,Desc\nAlpha,Bug,crash\nAlpha,Bug,typo\n")

	res, err := Build(tbl, Config{SourceFile: "issues", Structure: []string{"Project", "Type"}, Now: fixedNow})
	require.NoError(t, err)

	out := buildJSON(t, res)
	data := out["data"].(map[string]interface{})
	leaf := data["Alpha"].(map[string]interface{})["Bug"].(map[string]interface{})
	assert.Equal(t, "typo", leaf["Desc"])
	meta := leaf[MetadataKey].(map[string]interface{})
	assert.Equal(t, float64(2), meta["sourceRow"])
	assert.Equal(t, "Alpha → Bug", meta["structurePath"])

	require.Len(t, res.Collisions, 1)
	assert.Equal(t, []string{"Alpha", "Bug"}, res.Collisions[0].Path)
	assert.Equal(t, 2, res.Collisions[0].SourceRow)
	assert.Equal(t, 1, res.Data.LeafCount())
}

func TestBuildKeepsLongNumericKeysDistinct(t *testing.T) {
	tbl := parse(t, "ID,Team\n9007199254740993,A\n9007199254740992,B\n12345678901234567890,C\n")

	res, err := Build(tbl, Config{Structure: []string{"ID"}, Now: fixedNow})
	require.NoError(t, err)
	assert.Empty(t, res.Collisions)
	assert.Equal(t, []string{"9007199254740993", "9007199254740992", "12345678901234567890"}, res.Data.Keys())

	doc, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(doc), `"12345678901234567890"`)
}

func TestBuildLongNumericLeafValuesKeepEveryDigit(t *testing.T) {
	tbl := parse(t, "Team,ID\nA,12345678901234567890\nB,9007199254740993\n")

	res, err := Build(tbl, Config{Structure: []string{"Team"}, Now: fixedNow})
	require.NoError(t, err)

	data := buildJSON(t, res)["data"].(map[string]interface{})
	assert.Equal(t, "12345678901234567890", data["A"].(map[string]interface{})["ID"])
	assert.Equal(t, "9007199254740993", data["B"].(map[string]interface{})["ID"])
}

func TestBuildMergeKeepsEveryRow(t *testing.T) {
	tbl := parse(t, "Project,Type,Desc\nAlpha,Bug,crash\nAlpha,Bug,typo\n")

	res, err := Build(tbl, Config{Structure: []string{"Project", "Type"}, Collision: CollisionMerge, Now: fixedNow})
	require.NoError(t, err)

	out := buildJSON(t, res)
	leaves := out["data"].(map[string]interface{})["Alpha"].(map[string]interface{})["Bug"].([]interface{})
	require.Len(t, leaves, 2)
	assert.Equal(t, "crash", leaves[0].(map[string]interface{})["Desc"])
	assert.Equal(t, "typo", leaves[1].(map[string]interface{})["Desc"])
	assert.Equal(t, 2, res.Data.LeafCount())
}

func TestBuildMetadata(t *testing.T) {
	tbl := parse(t, "Project,Type,Desc,Secret\nAlpha,Bug,crash,x\n")

	res, err := Build(tbl, Config{
		SourceFile: "issues",
		Structure:  []string{"Project", "Type"},
		Excluded:   []string{"Secret"},
		Now:        fixedNow,
	})
	require.NoError(t, err)

	assert.Equal(t, Metadata{
		SourceFile:      "issues",
		Structure:       "Project → Type",
		DataColumns:     []string{"Desc"},
		ExcludedColumns: []string{"Secret"},
		TotalEntries:    1,
		Generated:       "2024-05-01T12:00:00.000Z",
	}, res.Metadata)

	leaf := res.Data.entries["Alpha"].child.Leaves("Bug")[0]
	assert.Equal(t, []string{"Desc"}, leaf.Columns)
	_, leaked := leaf.Values["Secret"]
	assert.False(t, leaked, "excluded column leaked into leaf")
}

func TestBuildEmptyValuesGetUniqueKeys(t *testing.T) {
	tbl := parse(t, "Project,Type,Desc\n,Bug,a\n   ,Bug,b\nAlpha,,c\nAlpha,,d\n")

	res, err := Build(tbl, Config{Structure: []string{"Project", "Type"}, Now: fixedNow})
	require.NoError(t, err)

	assert.Equal(t, []string{"Empty_Project_0", "Empty_Project_1", "Alpha"}, res.Data.Keys())
	alpha, ok := res.Data.Child("Alpha")
	require.True(t, ok)
	assert.Equal(t, []string{"Empty_Type_2", "Empty_Type_3"}, alpha.Keys())
	assert.Equal(t, 4, res.Data.LeafCount())
	assert.Empty(t, res.Collisions)
}

func TestBuildPreservesRowOrder(t *testing.T) {
	tbl := parse(t, "Group,Item\nzeta,1\nalpha,2\nmid,3\nalpha,4\n")

	res, err := Build(tbl, Config{Structure: []string{"Group", "Item"}, Now: fixedNow})
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, res.Data.Keys())

	data, err := json.Marshal(res.Data)
	require.NoError(t, err)
	assert.True(t, strings.Index(string(data), `"zeta"`) < strings.Index(string(data), `"alpha"`))
}

func TestBuildTrimsKeysAndStringifiesValues(t *testing.T) {
	tbl := parse(t, "Year,Done,Name\n2024,true,  padded  \n")

	res, err := Build(tbl, Config{Structure: []string{"Year", "Done", "Name"}, Now: fixedNow})
	require.NoError(t, err)

	year, ok := res.Data.Child("2024")
	require.True(t, ok)
	done, ok := year.Child("true")
	require.True(t, ok)
	assert.Len(t, done.Leaves("padded"), 1)
}

func TestBuildDepthAndSourceRows(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("A,B,C,Val\n")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&sb, "a%d,b%d,c%d,%d\n", i%3, i%5, i%2, i)
	}
	tbl := parse(t, sb.String())
	structure := []string{"A", "B", "C"}

	res, err := Build(tbl, Config{Structure: structure, Now: fixedNow})
	require.NoError(t, err)

	distinct := map[string]bool{}
	for i, row := range tbl.Rows {
		var parts []string
		for _, col := range structure {
			parts = append(parts, GenerateKey(row.Get(col), col, i))
		}
		distinct[strings.Join(parts, "\x00")] = true
	}

	leaves := 0
	res.Data.Walk(func(path []string, leaf *Leaf) {
		leaves++
		assert.Len(t, path, len(structure))
		assert.GreaterOrEqual(t, leaf.Meta.SourceRow, 1)
		assert.LessOrEqual(t, leaf.Meta.SourceRow, len(tbl.Rows))
	})
	assert.Equal(t, len(distinct), leaves)
	assert.Equal(t, len(distinct), res.Data.LeafCount())
}

func TestBuildConfigErrors(t *testing.T) {
	tbl := parse(t, "Project,Type,Desc\nAlpha,Bug,crash\n")

	tests := []struct {
		name      string
		structure []string
		excluded  []string
		want      string
	}{
		{"empty structure", nil, nil, "at least one column"},
		{"missing column", []string{"Project", "Nope"}, nil, "Structure references missing columns: Nope"},
		{"duplicate", []string{"Project", "Project"}, nil, "Duplicate columns in structure: Project"},
		{"overlap", []string{"Project"}, []string{"Project"}, "both in structure and excluded: Project"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Build(tbl, Config{Structure: tt.structure, Excluded: tt.excluded})
			require.Error(t, err)
			assert.Nil(t, res)
			var cfgErr apperr.ConfigError
			assert.True(t, errors.As(err, &cfgErr))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBuildNilTable(t *testing.T) {
	_, err := Build(nil, Config{Structure: []string{"a"}})
	assert.Error(t, err)
}

func TestParseCollision(t *testing.T) {
	c, err := ParseCollision("")
	require.NoError(t, err)
	assert.Equal(t, CollisionOverwrite, c)

	c, err = ParseCollision(" MERGE ")
	require.NoError(t, err)
	assert.Equal(t, CollisionMerge, c)

	_, err = ParseCollision("append")
	assert.Error(t, err)
}

func TestLeafMarshalKeepsColumnOrderAndSkipsReservedKey(t *testing.T) {
	leaf := &Leaf{
		Columns: []string{"b", MetadataKey, "a"},
		Values: map[string]table.Value{
			"b":         table.String("R&D <x>"),
			MetadataKey: table.String("shadowed"),
			"a":         table.Number(1),
		},
		Meta: LeafMeta{SourceRow: 3, StructurePath: "x"},
	}
	data, err := leaf.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"b":"R&D <x>","a":1,"_metadata":{"sourceRow":3,"structurePath":"x"}}`, string(data))
}
