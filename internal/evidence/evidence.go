// Package evidence collects sentences that justify a skill from a document and
// from the job catalog.
package evidence

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/catalog"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/skills"
	"github.com/spigell/resume-matcher/internal/utils"
)

// DefaultSnippetChars bounds a snippet before the ellipsis.
const DefaultSnippetChars = 100

// Confidence levels.
const (
	High   = 0.9
	Medium = 0.7
	Low    = 0.5
)

// NoResumeContext replaces resume snippets when the document never mentions a skill.
const NoResumeContext = "No specific context found in resume"

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// Entry is the evidence gathered for one skill.
type Entry struct {
	Skill      string   `json:"skill"`
	Resume     []string `json:"resume"`
	JD         []string `json:"jd"`
	Confidence float64  `json:"confidence"`
}

// NoJobRequires is the job-side placeholder for skill.
func NoJobRequires(skill string) string {
	return fmt.Sprintf("No job requires %s", skill)
}

// Builder gathers evidence against a fixed job catalog. It is safe for concurrent use.
type Builder struct {
	jobs         []catalog.Job
	snippetChars int
	logger       *zap.Logger
}

func New(jobs []catalog.Job, snippetChars int, log *zap.Logger) *Builder {
	if snippetChars <= 0 {
		snippetChars = DefaultSnippetChars
	}
	return &Builder{
		jobs:         jobs,
		snippetChars: snippetChars,
		logger:       logger.ForComponent(log, "evidence", ""),
	}
}

// Build returns exactly one entry per distinct skill.
func (b *Builder) Build(text string, skillNames []string) map[string]Entry {
	sentences := b.sentences(text)
	out := make(map[string]Entry, len(skillNames))

	for _, skill := range skillNames {
		if _, ok := out[skill]; ok {
			continue
		}
		out[skill] = b.entry(skill, sentences, false)
	}

	b.logger.Info("generated evidence", logger.Stage("evidence"), zap.Int("skills", len(out)))
	return out
}

// BuildFromJobs returns evidence from full job descriptions only, for callers
// that have no document. Resume snippets are always the placeholder.
func (b *Builder) BuildFromJobs(skillNames []string) map[string]Entry {
	out := make(map[string]Entry, len(skillNames))
	for _, skill := range skillNames {
		if _, ok := out[skill]; ok {
			continue
		}
		out[skill] = b.entry(skill, nil, true)
	}

	b.logger.Info("generated job evidence", logger.Stage("evidence"), zap.Int("skills", len(out)))
	return out
}

func (b *Builder) entry(skill string, sentences []string, fullJobs bool) Entry {
	var resume []string
	if strings.TrimSpace(skill) != "" && len(sentences) > 0 {
		re, err := skills.WordPattern(skill)
		if err != nil {
			b.logger.Warn("skipping resume evidence", logger.Stage("evidence"), zap.String("skill", skill), zap.Error(err))
		} else {
			for _, s := range sentences {
				if re.MatchString(s) {
					resume = append(resume, utils.Truncate(s, b.snippetChars))
				}
			}
		}
	}

	jd := b.JobSnippets(skill, fullJobs)

	e := Entry{Skill: skill, Resume: resume, JD: jd, Confidence: confidence(len(resume) > 0, len(jd) > 0)}
	if len(e.Resume) == 0 {
		e.Resume = []string{NoResumeContext}
	}
	if len(e.JD) == 0 {
		e.JD = []string{NoJobRequires(skill)}
	}
	return e
}

// JobSnippets returns the descriptions of every job requiring skill, in
// catalog order. Descriptions are truncated unless full is set.
func (b *Builder) JobSnippets(skill string, full bool) []string {
	var out []string
	for i := range b.jobs {
		if !b.jobs[i].Requires(skill) {
			continue
		}
		desc := b.jobs[i].Description
		if !full {
			desc = utils.Truncate(desc, b.snippetChars)
		}
		out = append(out, desc)
	}
	return out
}

func (b *Builder) sentences(text string) []string {
	var out []string
	for _, part := range sentenceSplit.Split(text, -1) {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func confidence(resume, jobs bool) float64 {
	switch {
	case resume && jobs:
		return High
	case resume:
		return Medium
	default:
		return Low
	}
}
