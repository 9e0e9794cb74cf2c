// Package catalog loads the static data the engine works on: the skill
// catalog, the job catalog and the learning resource map. Everything is read
// once at startup and never mutated afterwards.
package catalog

import "fmt"

// Paths locates the catalog files.
type Paths struct {
	Skills      string
	Jobs        string
	LearningMap string
}

// Catalog bundles the loaded catalogs.
type Catalog struct {
	Skills   *SkillCatalog
	Jobs     []Job
	Learning LearningMap
}

// Load reads every catalog file. Any failure is a configuration error and the
// returned catalog is nil so that nothing is served half-loaded.
func Load(paths Paths, maxJobs int) (*Catalog, error) {
	skills, err := LoadSkills(paths.Skills)
	if err != nil {
		return nil, fmt.Errorf("load skills: %w", err)
	}

	jobs, err := LoadJobs(paths.Jobs, maxJobs)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}

	learning, err := LoadLearningMap(paths.LearningMap)
	if err != nil {
		return nil, fmt.Errorf("load learning map: %w", err)
	}

	return &Catalog{Skills: skills, Jobs: jobs, Learning: learning}, nil
}

// JobTexts returns the job descriptions in catalog order.
func (c *Catalog) JobTexts() []string {
	texts := make([]string, 0, len(c.Jobs))
	for _, j := range c.Jobs {
		texts = append(texts, j.Description)
	}
	return texts
}

// RequiredSkills returns the distinct required skills of every job in first-seen order.
func (c *Catalog) RequiredSkills() []string {
	var all []string
	for _, j := range c.Jobs {
		all = append(all, j.RequiredSkills...)
	}
	return dedupe(all)
}
