package templates

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// State is everything the store persists.
type State struct {
	Templates map[string]Template `yaml:"templates"`
}

// Persistence loads and saves the store state.
type Persistence interface {
	Load() (*State, error)
	Save(*State) error
}

// FilePersistence keeps the state in a YAML file.
type FilePersistence struct {
	Path string
}

// Load reads the state file. A missing file is an empty state.
func (f FilePersistence) Load() (*State, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, fmt.Errorf("reading templates: %w", err)
	}

	var state State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &state, nil
}

// Save writes the state file, creating its directory.
func (f FilePersistence) Save(state *State) error {
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling templates: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("creating templates directory: %w", err)
	}

	if err := os.WriteFile(f.Path, data, 0o600); err != nil {
		return fmt.Errorf("writing templates: %w", err)
	}
	return nil
}
