package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spigell/resume-matcher/internal/errs"
)

// Skill is a canonical skill with its lower-cased search terms. The canonical
// name itself is always the first term.
type Skill struct {
	Name  string
	Terms []string
}

// SkillCatalog maps canonical skills to their synonyms. It is immutable after construction.
type SkillCatalog struct {
	skills  []Skill
	byLower map[string]int
}

// NewSkillCatalog builds a catalog from canonical name -> synonyms.
// Canonical names must be case-insensitively distinct.
func NewSkillCatalog(raw map[string][]string) (*SkillCatalog, error) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	c := &SkillCatalog{
		skills:  make([]Skill, 0, len(names)),
		byLower: make(map[string]int, len(names)),
	}

	for _, name := range names {
		canonical := strings.TrimSpace(name)
		if canonical == "" {
			return nil, fmt.Errorf("empty canonical skill name")
		}

		lower := strings.ToLower(canonical)
		if _, ok := c.byLower[lower]; ok {
			return nil, &errs.Error{
				Kind:     errs.KindConfig,
				Skill:    canonical,
				JobIndex: errs.NoJob,
				Err:      fmt.Errorf("canonical skill %q is duplicated ignoring case", canonical),
			}
		}

		terms := []string{lower}
		seen := map[string]bool{lower: true}
		for _, synonym := range raw[name] {
			term := strings.ToLower(strings.TrimSpace(synonym))
			if term == "" || seen[term] {
				continue
			}
			seen[term] = true
			terms = append(terms, term)
		}

		c.byLower[lower] = len(c.skills)
		c.skills = append(c.skills, Skill{Name: canonical, Terms: terms})
	}

	return c, nil
}

// LoadSkills reads and validates a skill catalog file.
func LoadSkills(path string) (*SkillCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Config(path, err)
	}

	if err := validateDocument(skillsSchema, data); err != nil {
		return nil, errs.Config(path, err)
	}

	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errs.Config(path, err)
	}

	c, err := NewSkillCatalog(raw)
	if err != nil {
		return nil, errs.Config(path, err)
	}

	return c, nil
}

// Skills returns the skills ordered by canonical name.
func (c *SkillCatalog) Skills() []Skill {
	return c.skills
}

// Len returns the number of canonical skills.
func (c *SkillCatalog) Len() int {
	return len(c.skills)
}

// Canonical returns the canonical names in alphabetical order.
func (c *SkillCatalog) Canonical() []string {
	names := make([]string, 0, len(c.skills))
	for _, s := range c.skills {
		names = append(names, s.Name)
	}
	return names
}

// Lookup finds a skill by canonical name ignoring case.
func (c *SkillCatalog) Lookup(name string) (Skill, bool) {
	idx, ok := c.byLower[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Skill{}, false
	}
	return c.skills[idx], true
}
