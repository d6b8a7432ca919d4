// Package knowledge provides the sales plan and objection playbook the coach
// is configured with.
package knowledge

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vnote-labs/coach/internal/domain"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Knowledge bundles the plan, playbook and optional script.
type Knowledge struct {
	Plan     domain.SalesPlan                `yaml:"plan"`
	Playbook []domain.ObjectionPlaybookEntry `yaml:"playbook"`
	Script   *domain.Script                  `yaml:"script,omitempty"`
}

// Default returns a fresh copy of the built-in knowledge.
func Default() Knowledge {
	var k Knowledge
	if err := yaml.Unmarshal(defaultsYAML, &k); err != nil {
		panic(fmt.Sprintf("knowledge: embedded defaults: %v", err))
	}
	return k
}

// DefaultPlan returns the built-in sales plan.
func DefaultPlan() domain.SalesPlan {
	return Default().Plan
}

// DefaultPlaybook returns the built-in objection playbook.
func DefaultPlaybook() []domain.ObjectionPlaybookEntry {
	return Default().Playbook
}

// LoadFile reads a YAML override from path and applies it over the
// defaults. Keys present in the file replace the default value; lists are
// replaced, not appended.
func LoadFile(path string) (Knowledge, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Knowledge{}, fmt.Errorf("reading knowledge file: %w", err)
	}
	k := Default()
	if err := yaml.Unmarshal(data, &k); err != nil {
		return Knowledge{}, fmt.Errorf("parsing knowledge file %s: %w", path, err)
	}
	if err := k.Validate(); err != nil {
		return Knowledge{}, fmt.Errorf("knowledge file %s: %w", path, err)
	}
	return k, nil
}

// Validate checks the fields the engine depends on.
func (k Knowledge) Validate() error {
	if strings.TrimSpace(k.Plan.Persona.Name) == "" {
		return fmt.Errorf("plan persona name is required")
	}
	seen := make(map[string]bool)
	for _, item := range k.Plan.Checklist {
		key := domain.NameKey(item.Name)
		if key == "" {
			return fmt.Errorf("checklist item with empty name")
		}
		if seen[key] {
			return fmt.Errorf("duplicate checklist item %q", item.Name)
		}
		seen[key] = true
	}
	for _, entry := range k.Playbook {
		if strings.TrimSpace(entry.Category) == "" {
			return fmt.Errorf("playbook entry with empty category")
		}
	}
	return nil
}

// ObjectionMatcher finds the playbook category whose trigger phrases appear
// as whole words in a text. Patterns are compiled once per playbook.
type ObjectionMatcher struct {
	rules []objectionRule
}

type objectionRule struct {
	category string
	pattern  *regexp.Regexp
}

// NewObjectionMatcher compiles one case-insensitive pattern per playbook
// entry. Entries without triggers never match.
func NewObjectionMatcher(playbook []domain.ObjectionPlaybookEntry) *ObjectionMatcher {
	m := &ObjectionMatcher{}
	for _, entry := range playbook {
		var alts []string
		for _, trigger := range entry.Triggers {
			if trigger = strings.TrimSpace(trigger); trigger != "" {
				alts = append(alts, regexp.QuoteMeta(trigger))
			}
		}
		if len(alts) == 0 {
			continue
		}
		m.rules = append(m.rules, objectionRule{
			category: entry.Category,
			pattern:  regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`),
		})
	}
	return m
}

// Detect returns the category of the first entry, in playbook order, with a
// trigger in text.
func (m *ObjectionMatcher) Detect(text string) (string, bool) {
	if m == nil {
		return "", false
	}
	for _, r := range m.rules {
		if r.pattern.MatchString(text) {
			return r.category, true
		}
	}
	return "", false
}

// Find returns the playbook entry for category.
func Find(playbook []domain.ObjectionPlaybookEntry, category string) (domain.ObjectionPlaybookEntry, bool) {
	key := domain.NameKey(category)
	for _, entry := range playbook {
		if domain.NameKey(entry.Category) == key {
			return entry, true
		}
	}
	return domain.ObjectionPlaybookEntry{}, false
}
