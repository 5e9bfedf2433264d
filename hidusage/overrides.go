package hidusage

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Overrides is the on-disk schema for additional usage tables, typically
// vendor pages the built-in set cannot know about.
type Overrides struct {
	Pages []PageOverride `yaml:"pages"`
}

type PageOverride struct {
	Code   uint16          `yaml:"code"`
	Name   string          `yaml:"name"`
	Alias  string          `yaml:"alias"`
	Usages []UsageOverride `yaml:"usages"`
}

type UsageOverride struct {
	ID    uint16 `yaml:"id"`
	Name  string `yaml:"name"`
	Alias string `yaml:"alias"`
}

// RegisterOverrides installs every page from a parsed override set.
func RegisterOverrides(o Overrides) {
	for _, p := range o.Pages {
		usages := make(map[uint16]UsageInfo, len(p.Usages))
		for _, u := range p.Usages {
			usages[u.ID] = UsageInfo{ID: u.ID, Name: u.Name, Alias: u.Alias}
		}
		Register(PageInfo{
			Code:   p.Code,
			Name:   p.Name,
			Alias:  p.Alias,
			Usages: usages,
		})
	}
}

// LoadOverrides reads a YAML override file and registers its pages.
func LoadOverrides(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read usage overrides: %w", err)
	}
	var o Overrides
	if err := yaml.Unmarshal(b, &o); err != nil {
		return fmt.Errorf("failed to parse usage overrides: %w", err)
	}
	RegisterOverrides(o)
	return nil
}
