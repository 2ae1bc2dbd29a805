// Package config reads and writes the csvnotes settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// AppName names the config directory.
const AppName = "csvnotes"

// Config holds CLI configuration. Zero values mean "use the default".
type Config struct {
	Vault             string   `yaml:"vault,omitempty"`
	OutputFormat      string   `yaml:"output_format,omitempty"`  // text, json, ndjson, yaml, table
	ConvertFormat     string   `yaml:"convert_format,omitempty"` // json, markdown, dataview
	OutputFolder      string   `yaml:"output_folder,omitempty"`
	TemplatesFile     string   `yaml:"templates_file,omitempty"`
	ReservedFields    []string `yaml:"reserved_fields,omitempty"`
	FilenameMaxLength int      `yaml:"filename_max_length,omitempty"`
	Delimiter         string   `yaml:"delimiter,omitempty"`
	OnCollision       string   `yaml:"on_collision,omitempty"` // overwrite, merge
}

// ConfigDir returns the config directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", AppName), nil
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultTemplatesPath returns where saved templates live unless
// templates_file says otherwise.
func DefaultTemplatesPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "templates.yaml"), nil
}

// Load loads config from the given path. A missing file is an empty config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes config to the given path, creating its directory.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
