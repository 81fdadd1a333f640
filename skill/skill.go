package skill

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Skill types.
const (
	// TypeTool unlocks a set of tools and an optional prompt fragment.
	TypeTool = "tool"
	// TypeAgent creates a dedicated sub-agent on activation; the skill then
	// appears as a handoff target.
	TypeAgent = "agent"
)

// Skill is one declarative skill definition.
type Skill struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Type        string   `yaml:"type"`
	Tools       []string `yaml:"tools,omitempty"`
	Prompt      string   `yaml:"prompt,omitempty"`
}

// Validate checks the definition is usable.
func (s *Skill) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("skill: name is required")
	}
	switch s.Type {
	case TypeTool, TypeAgent:
	case "":
		s.Type = TypeTool
	default:
		return fmt.Errorf("skill %s: unknown type %q", s.Name, s.Type)
	}
	return nil
}

// Manifest is a YAML document holding skill definitions.
type Manifest struct {
	Skills []*Skill `yaml:"skills"`
}

// ParseManifest decodes a manifest from YAML bytes and validates every
// entry.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse skill manifest: %w", err)
	}
	for _, s := range m.Skills {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read skill manifest %s: %w", path, err)
	}
	return ParseManifest(data)
}
