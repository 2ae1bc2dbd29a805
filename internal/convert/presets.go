package convert

import (
	"strings"

	"github.com/salmonumbrella/csvnotes/internal/apperr"
)

// Preset is a named structure suggestion.
type Preset struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

// Presets are the built-in suggestions. "simple" has no fixed columns and
// uses the first two columns of the file.
var Presets = []Preset{
	{ID: "hierarchical", Name: "Hierarchical", Columns: []string{"Subject", "Type", "Project", "Item"}},
	{ID: "project", Name: "Project-Based", Columns: []string{"Project", "Type", "Item"}},
	{ID: "simple", Name: "Simple Grouping"},
}

// PresetStructure applies preset id to a header. Preset columns missing
// from the header are dropped.
func PresetStructure(id string, columns []string) ([]string, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, p := range Presets {
		if p.ID != id {
			continue
		}
		if p.ID == "simple" {
			n := 2
			if len(columns) < n {
				n = len(columns)
			}
			return append([]string{}, columns[:n]...), nil
		}
		have := make(map[string]bool, len(columns))
		for _, c := range columns {
			have[c] = true
		}
		out := []string{}
		for _, c := range p.Columns {
			if have[c] {
				out = append(out, c)
			}
		}
		return out, nil
	}
	return nil, apperr.Configf("Unknown preset: %s", id)
}
