package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Entry is a predefined outfit offered as a quick-select option
type Entry struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Prompt      string `yaml:"prompt" json:"prompt"`
	Icon        string `yaml:"icon" json:"icon"`
	Sensitive   bool   `yaml:"sensitive,omitempty" json:"sensitive,omitempty"`
}

var entries = mustParse(catalogYAML)

// Parse decodes and validates a catalog document
func Parse(data []byte) ([]Entry, error) {
	var parsed []Entry
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	seen := make(map[string]bool, len(parsed))
	for i, e := range parsed {
		if e.ID == "" || e.Prompt == "" {
			return nil, fmt.Errorf("catalog entry %d is missing id or prompt", i)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("duplicate catalog entry %q", e.ID)
		}
		seen[e.ID] = true
	}
	return parsed, nil
}

func mustParse(data []byte) []Entry {
	parsed, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return parsed
}

// All returns a copy of every catalog entry in display order
func All() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Lookup finds an entry by id
func Lookup(id string) (Entry, bool) {
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}
