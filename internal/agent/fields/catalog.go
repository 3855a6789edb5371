package fields

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog holds the closed word lists used by the vocabulary-driven extractors.
type Catalog struct {
	EngineMakers []string `yaml:"engineMakers"`
	Models       []string `yaml:"models"`
	Brands       []string `yaml:"brands"`
}

// DefaultCatalog returns the compiled-in word lists.
func DefaultCatalog() Catalog {
	return Catalog{
		EngineMakers: []string{"Cummins", "Detroit", "Paccar", "Volvo", "Navistar"},
		Models:       []string{"T680", "T800", "Cascadia", "VNL", "ProStar", "LT", "W900", "T880", "Anthem"},
		Brands:       []string{"Kenworth", "Freightliner", "International", "Volvo", "Mack", "Peterbilt"},
	}
}

// LoadCatalog reads a YAML catalog. Lists missing from the file keep their defaults.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog document.
func ParseCatalog(data []byte) (Catalog, error) {
	var parsed Catalog
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return Catalog{}, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := DefaultCatalog()
	if words := clean(parsed.EngineMakers); len(words) > 0 {
		c.EngineMakers = words
	}
	if words := clean(parsed.Models); len(words) > 0 {
		c.Models = words
	}
	if words := clean(parsed.Brands); len(words) > 0 {
		c.Brands = words
	}
	return c, nil
}

func clean(words []string) []string {
	out := make([]string, 0, len(words))
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		key := strings.ToLower(w)
		if w == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, w)
	}
	return out
}
