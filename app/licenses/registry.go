package licenses

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixed ids used when a rights category decides the license without a
// registry match.
const (
	IDNotSpecified      = "notspecified"
	IDOtherPublicDomain = "other-pd"
	IDOtherClosed       = "other-closed"
)

//go:embed registry.yml
var defaultRegistry []byte

// License is one immutable registry entry.
type License struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
}

// Registry holds the known licenses, loaded once at process start.
// Registry order is the authoritative tie-break for matching.
type Registry struct {
	licenses []License
}

// NewRegistry returns a registry with the built-in license list.
func NewRegistry() (*Registry, error) {
	return parseRegistry(defaultRegistry)
}

// NewRegistryFromFile loads a registry from a YAML file.
func NewRegistryFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read license registry: %w", err)
	}
	return parseRegistry(data)
}

func parseRegistry(data []byte) (*Registry, error) {
	var licenses []License
	if err := yaml.Unmarshal(data, &licenses); err != nil {
		return nil, fmt.Errorf("failed to parse license registry: %w", err)
	}
	for i, lic := range licenses {
		if lic.ID == "" {
			return nil, fmt.Errorf("license registry entry %d has no id", i)
		}
	}
	return &Registry{licenses: licenses}, nil
}

// Match tries to match free text (URL, id or title) against the registry.
// Exact string match only, checked against url, id and title per entry;
// the first match wins.
func (r *Registry) Match(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	for _, lic := range r.licenses {
		if text == lic.URL || text == lic.ID || text == lic.Title {
			return lic.ID, true
		}
	}
	return "", false
}

// Get returns the registry entry for an id.
func (r *Registry) Get(id string) (License, bool) {
	for _, lic := range r.licenses {
		if lic.ID == id {
			return lic, true
		}
	}
	return License{}, false
}

// Count returns the number of registry entries.
func (r *Registry) Count() int {
	return len(r.licenses)
}
