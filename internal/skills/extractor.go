// Package skills finds catalog skills in free text.
package skills

import (
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/catalog"
	"github.com/spigell/resume-matcher/internal/errs"
	"github.com/spigell/resume-matcher/internal/logger"
)

type compiledSkill struct {
	name     string
	patterns []*regexp.Regexp
}

// Extractor matches text against a skill catalog. Patterns are compiled once and
// the extractor is safe for concurrent use.
type Extractor struct {
	skills []compiledSkill
	logger *zap.Logger
}

// NewExtractor compiles the patterns of every catalog term.
func NewExtractor(c *catalog.SkillCatalog, log *zap.Logger) (*Extractor, error) {
	e := &Extractor{
		skills: make([]compiledSkill, 0, c.Len()),
		logger: logger.ForComponent(log, "skills", ""),
	}

	for _, skill := range c.Skills() {
		compiled := compiledSkill{name: skill.Name}
		for _, term := range skill.Terms {
			re, err := WordPattern(term)
			if err != nil {
				return nil, &errs.Error{Kind: errs.KindConfig, Stage: "extract", Skill: skill.Name, JobIndex: errs.NoJob, Err: err}
			}
			compiled.patterns = append(compiled.patterns, re)
		}
		e.skills = append(e.skills, compiled)
	}

	return e, nil
}

// Extract returns the distinct canonical skills found in text, sorted alphabetically.
// An empty text yields an empty, non-nil slice.
func (e *Extractor) Extract(text string) []string {
	found := make([]string, 0)
	low := strings.ToLower(text)
	if strings.TrimSpace(low) == "" {
		return found
	}

	for _, skill := range e.skills {
		for _, re := range skill.patterns {
			if re.MatchString(low) {
				found = append(found, skill.name)
				break
			}
		}
	}

	sort.Strings(found)
	e.logger.Debug("extracted skills", logger.Stage("extract"), zap.Strings("skills", found))

	return found
}

// ExtractSet is Extract as a set.
func (e *Extractor) ExtractSet(text string) map[string]bool {
	found := e.Extract(text)
	set := make(map[string]bool, len(found))
	for _, s := range found {
		set[s] = true
	}
	return set
}
