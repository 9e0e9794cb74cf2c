// Package planner turns missing skills into a week-by-week learning plan.
package planner

import (
	"net/url"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/catalog"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/matching"
)

// DefaultMaxEntries caps the plan length.
const DefaultMaxEntries = 8

// DefaultTime is the duration suggested for skills without a learning map entry.
const DefaultTime = "3 days"

// Entry is one week of the plan.
type Entry struct {
	Week      int                `json:"week"`
	Topic     string             `json:"topic"`
	Resources []catalog.Resource `json:"resources"`
	Project   catalog.Resource   `json:"project"`
	Time      string             `json:"time"`
}

// Builder builds plans from a learning map. It is read-only and safe for concurrent use.
type Builder struct {
	learning   catalog.LearningMap
	maxEntries int
	logger     *zap.Logger
}

func New(learning catalog.LearningMap, maxEntries int, log *zap.Logger) *Builder {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Builder{
		learning:   learning,
		maxEntries: maxEntries,
		logger:     logger.ForComponent(log, "planner", ""),
	}
}

// Build orders missing skills with the top job's missing skills first and
// returns one entry per skill, capped at the configured maximum.
func (b *Builder) Build(missing []string, matched []matching.MatchResult) []Entry {
	var topMissing []string
	if len(matched) > 0 {
		topMissing = matched[0].MissingSkills
	} else {
		b.logger.Warn("no matched jobs provided", logger.Stage("plan"))
	}

	topics := Prioritize(missing, topMissing, b.maxEntries)
	b.logger.Info("prioritized skills order", logger.Stage("plan"), zap.Strings("skills", topics))

	plan := make([]Entry, 0, len(topics))
	for i, skill := range topics {
		item, ok := b.learning[skill]
		if !ok {
			item = DefaultEntry(skill)
		}
		plan = append(plan, Entry{
			Week:      i + 1,
			Topic:     skill,
			Resources: item.Resources,
			Project:   item.Project,
			Time:      item.Time,
		})
	}

	return plan
}

// Prioritize lists topMissing, then the rest of missing, keeping the first
// occurrence of every skill and at most limit skills. A non-positive limit
// keeps everything.
func Prioritize(missing, topMissing []string, limit int) []string {
	out := make([]string, 0, len(topMissing)+len(missing))
	seen := make(map[string]bool, cap(out))

	for _, group := range [][]string{topMissing, missing} {
		for _, skill := range group {
			if seen[skill] {
				continue
			}
			if limit > 0 && len(out) == limit {
				return out
			}
			seen[skill] = true
			out = append(out, skill)
		}
	}

	return out
}

// DefaultEntry synthesizes search-based resources for a skill that has no
// learning map entry.
func DefaultEntry(skill string) catalog.LearningItem {
	q := url.QueryEscape(skill)
	return catalog.LearningItem{
		Resources: []catalog.Resource{
			{Title: "Learn " + skill + " Basics", URL: "https://www.youtube.com/search?q=learn+" + q},
			{Title: skill + " Official Docs", URL: "https://google.com/search?q=" + q + "+official+docs"},
		},
		Project: catalog.Resource{
			Title: "Build a " + skill + " Mini Project",
			URL:   "https://www.google.com/search?q=" + q + "+project",
		},
		Time: DefaultTime,
	}
}
