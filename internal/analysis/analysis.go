// Package analysis orchestrates a full document analysis: skill extraction,
// job matching, learning plan and evidence.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/catalog"
	"github.com/spigell/resume-matcher/internal/errs"
	"github.com/spigell/resume-matcher/internal/evidence"
	"github.com/spigell/resume-matcher/internal/filtering"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/metrics"
	"github.com/spigell/resume-matcher/internal/planner"
)

// ErrEmptyDocument is returned when there is nothing to analyze.
var ErrEmptyDocument = errors.New("document has no text")

// Report is the outcome of one analysis.
type Report struct {
	RequestID       string                    `json:"requestId"`
	GeneratedAt     time.Time                 `json:"generatedAt"`
	ResumeChars     int                       `json:"resumeChars"`
	ExtractedSkills []string                  `json:"extractedSkills"`
	MissingSkills   []string                  `json:"missingSkills"`
	MatchedJobs     []matching.MatchResult    `json:"matchedJobs"`
	EvidenceBySkill map[string]evidence.Entry `json:"evidenceBySkill"`
	LearningPlan    []planner.Entry           `json:"learningPlan"`
	Degraded        bool                      `json:"degraded"`
	DegradedReason  string                    `json:"degradedReason,omitempty"`
}

// Options tune a Service.
type Options struct {
	TopK    int
	Filters *filtering.Config
}

// Service runs analyses. It is safe for concurrent use.
type Service struct {
	engine   *matching.Engine
	plans    *planner.Builder
	evidence *evidence.Builder
	filters  []filtering.Filter
	opts     Options
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// New creates a service. Filter settings are validated here and are fixed for
// the service's lifetime.
func New(engine *matching.Engine, plans *planner.Builder, ev *evidence.Builder, opts Options, log *zap.Logger, m *metrics.Collector) (*Service, error) {
	filters, err := filtering.Default(opts.Filters)
	if err != nil {
		return nil, errs.Config("filters", err)
	}

	return &Service{
		engine:   engine,
		plans:    plans,
		evidence: ev,
		filters:  filters,
		opts:     opts,
		logger:   logger.ForComponent(log, "analysis", ""),
		metrics:  m,
	}, nil
}

// Filters returns the configured filter steps.
func (s *Service) Filters() []filtering.Filter { return s.filters }

// Analyze analyzes a plain-text document. Blank text is an input error; text
// without any catalog skill is analyzed normally.
func (s *Service) Analyze(ctx context.Context, text string) (report *Report, err error) {
	defer func() { s.metrics.Analysis("analyze", err) }()

	if strings.TrimSpace(text) == "" {
		return nil, errs.Input("analyze", ErrEmptyDocument)
	}

	report = s.newReport()
	log := s.requestLogger(report.RequestID)

	report.ResumeChars = utf8.RuneCountInString(text)
	report.ExtractedSkills = s.engine.Extractor().Extract(text)
	log.Info("extracted skills", logger.Stage("extract"), zap.Strings("skills", report.ExtractedSkills))

	matches, err := s.match(ctx, log, text)
	if err != nil {
		return nil, err
	}
	s.applyMatches(report, matches)

	report.MissingSkills = unionMissing(report.MatchedJobs)
	report.LearningPlan = s.plans.Build(report.MissingSkills, report.MatchedJobs)
	report.EvidenceBySkill = s.evidence.Build(text, report.ExtractedSkills)

	log.Info("analysis completed",
		zap.Int("matched_jobs", len(report.MatchedJobs)),
		zap.Int("missing_skills", len(report.MissingSkills)),
		zap.Int("plan_weeks", len(report.LearningPlan)),
		zap.Bool("degraded", report.Degraded),
	)
	return report, nil
}

// Recommend analyzes a bare skill list. Names known to the skill catalog are
// replaced by their canonical spelling. Missing skills are every skill
// required anywhere in the job catalog that the list lacks.
func (s *Service) Recommend(ctx context.Context, skillList []string) (report *Report, err error) {
	defer func() { s.metrics.Analysis("recommend", err) }()

	have := cleanSkills(s.engine.Catalog().Skills, skillList)
	if len(have) == 0 {
		return nil, errs.Input("recommend", ErrEmptyDocument)
	}

	report = s.newReport()
	log := s.requestLogger(report.RequestID)
	report.ExtractedSkills = have

	matches, err := s.match(ctx, log, strings.Join(have, " "))
	if err != nil {
		return nil, err
	}
	s.applyMatches(report, matches)

	haveSet := make(map[string]bool, len(have))
	for _, skill := range have {
		haveSet[skill] = true
	}
	report.MissingSkills = make([]string, 0)
	for _, skill := range s.engine.Catalog().RequiredSkills() {
		if !haveSet[skill] {
			report.MissingSkills = append(report.MissingSkills, skill)
		}
	}
	sort.Strings(report.MissingSkills)

	report.LearningPlan = s.plans.Build(report.MissingSkills, report.MatchedJobs)
	report.EvidenceBySkill = s.evidence.BuildFromJobs(have)

	log.Info("successfully generated recommendations",
		zap.Int("matched_jobs", len(report.MatchedJobs)),
		zap.Int("missing_skills", len(report.MissingSkills)),
	)
	return report, nil
}

func (s *Service) newReport() *Report {
	return &Report{
		RequestID:   uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
	}
}

func (s *Service) requestLogger(id string) *zap.Logger {
	return logger.WithFields(s.logger, zap.String(logger.FieldRequestID, id))
}

func (s *Service) match(ctx context.Context, log *zap.Logger, text string) (*matching.Matches, error) {
	matches, err := s.engine.Match(ctx, text, s.opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("match jobs: %w", err)
	}

	filtered, err := filtering.Run(ctx, filtering.Deps{Logger: log}, s.filters, matches)
	if err != nil {
		return nil, fmt.Errorf("filter matches: %w", err)
	}

	if len(filtered.Items) > 0 {
		top := filtered.Items[0]
		log.Info("matched jobs",
			logger.Stage("match"),
			zap.Int("count", len(filtered.Items)),
			zap.String("top_job", top.Title+" - "+top.Company),
			zap.Strings("top_missing", top.MissingSkills),
		)
	}
	return filtered, nil
}

func (s *Service) applyMatches(report *Report, m *matching.Matches) {
	report.MatchedJobs = m.Items
	report.Degraded = m.Degraded
	report.DegradedReason = m.Reason
}

// unionMissing collects the missing skills of every job in rank order,
// keeping the first occurrence.
func unionMissing(jobs []matching.MatchResult) []string {
	out := make([]string, 0)
	seen := make(map[string]bool)
	for _, j := range jobs {
		for _, skill := range j.MissingSkills {
			if !seen[skill] {
				seen[skill] = true
				out = append(out, skill)
			}
		}
	}
	return out
}

func cleanSkills(known *catalog.SkillCatalog, list []string) []string {
	out := make([]string, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, skill := range list {
		skill = strings.TrimSpace(skill)
		if known != nil {
			if canonical, ok := known.Lookup(skill); ok {
				skill = canonical.Name
			}
		}
		if skill == "" || seen[skill] {
			continue
		}
		seen[skill] = true
		out = append(out, skill)
	}
	sort.Strings(out)
	return out
}
