package catalog

import (
	"encoding/json"
	"os"

	"github.com/spigell/resume-matcher/internal/errs"
)

// Resource is a titled link.
type Resource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// LearningItem describes how to learn one skill.
type LearningItem struct {
	Resources []Resource `json:"resources"`
	Project   Resource   `json:"project"`
	Time      string     `json:"time"`
}

// LearningMap maps a skill name to its learning item.
type LearningMap map[string]LearningItem

// LoadLearningMap reads the learning resource map. Structural problems are
// configuration errors listing every offending field.
func LoadLearningMap(path string) (LearningMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Config(path, err)
	}

	if err := validateDocument(learningMapSchema, data); err != nil {
		return nil, errs.Config(path, err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errs.Config(path, err)
	}

	learning := make(LearningMap, len(raw))
	if err := decodeStrict(raw, &learning); err != nil {
		return nil, errs.Config(path, err)
	}

	return learning, nil
}
