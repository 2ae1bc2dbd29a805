package table

import (
	"github.com/montanaflynn/stats"
)

// ColumnProfile describes the contents of one column.
type ColumnProfile struct {
	Column   string   `json:"column" yaml:"column"`
	Kind     string   `json:"kind" yaml:"kind"`
	Empty    int      `json:"empty" yaml:"empty"`
	Distinct int      `json:"distinct" yaml:"distinct"`
	FillRate float64  `json:"fill_rate" yaml:"fill_rate"`
	Min      *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max      *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Mean     *float64 `json:"mean,omitempty" yaml:"mean,omitempty"`
	Median   *float64 `json:"median,omitempty" yaml:"median,omitempty"`
}

// Profile summarises each column. A column's kind is the single kind shared
// by all its non-empty cells, or "mixed". Numeric summaries cover the number
// cells only.
func (t *Table) Profile() []ColumnProfile {
	cols := uniqueColumns(t.Columns)
	out := make([]ColumnProfile, 0, len(cols))
	for _, col := range cols {
		p := ColumnProfile{Column: col}
		kinds := map[Kind]bool{}
		distinct := map[string]bool{}
		var nums stats.Float64Data
		for _, row := range t.Rows {
			v := row.Get(col)
			if v.IsEmpty() {
				p.Empty++
				continue
			}
			kinds[v.Kind()] = true
			distinct[v.String()] = true
			if n, ok := v.Num(); ok {
				nums = append(nums, n)
			}
		}
		p.Distinct = len(distinct)
		p.Kind = profileKind(kinds)
		if len(t.Rows) > 0 {
			p.FillRate = float64(len(t.Rows)-p.Empty) / float64(len(t.Rows))
		}
		if len(nums) > 0 {
			p.Min = statOrNil(nums.Min)
			p.Max = statOrNil(nums.Max)
			p.Mean = statOrNil(nums.Mean)
			p.Median = statOrNil(nums.Median)
		}
		out = append(out, p)
	}
	return out
}

func profileKind(kinds map[Kind]bool) string {
	switch len(kinds) {
	case 0:
		return KindNull.String()
	case 1:
		for k := range kinds {
			return k.String()
		}
	}
	return "mixed"
}

func statOrNil(fn func() (float64, error)) *float64 {
	v, err := fn()
	if err != nil {
		return nil
	}
	return &v
}
