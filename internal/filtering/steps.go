package filtering

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/matching"
)

const (
	minimumScoreName     = "minimum_score"
	excludeCompaniesName = "exclude_companies"
)

type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

type minimumScoreFilter struct {
	toggle
	minimum float64
}

// NewMinimumScore creates a filter that drops matches scoring below the configured minimum.
func NewMinimumScore() Filter {
	return &minimumScoreFilter{}
}

func (f *minimumScoreFilter) Name() string { return minimumScoreName }

func (f *minimumScoreFilter) Validate(cfg *Config) error {
	var minimum float64
	if cfg != nil {
		minimum = cfg.MinimumScore
	}
	if minimum < 0 || minimum > 1 {
		return fmt.Errorf("minimum score must be within [0, 1], got %.3f", minimum)
	}
	f.minimum = minimum
	return nil
}

func (f *minimumScoreFilter) Apply(_ context.Context, deps Deps, m *matching.Matches) (*matching.Matches, Step, error) {
	out, step := keep(m, func(r matching.MatchResult) bool { return r.Score >= f.minimum })
	if step.Dropped > 0 {
		logger.OrNop(deps.Logger).Debug("dropping low scoring matches",
			zap.Float64("minimum_score", f.minimum),
			zap.Int("dropped", step.Dropped),
		)
	}
	return out, step, nil
}

func (f *minimumScoreFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"minimum_score": fmt.Sprintf("%.3f", f.minimum)},
	}
}

type excludeCompaniesFilter struct {
	toggle
	companies map[string]bool
	names     []string
}

// NewExcludeCompanies creates a filter that removes matches from the configured companies.
// Company names compare case-insensitively.
func NewExcludeCompanies() Filter {
	return &excludeCompaniesFilter{}
}

func (f *excludeCompaniesFilter) Name() string { return excludeCompaniesName }

func (f *excludeCompaniesFilter) Validate(cfg *Config) error {
	companies := map[string]bool{}
	var names []string
	if cfg != nil {
		for _, c := range cfg.ExcludeCompanies {
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			companies[strings.ToLower(c)] = true
			names = append(names, c)
		}
	}
	f.companies, f.names = companies, names
	return nil
}

func (f *excludeCompaniesFilter) Apply(_ context.Context, deps Deps, m *matching.Matches) (*matching.Matches, Step, error) {
	var excluded []string
	out, step := keep(m, func(r matching.MatchResult) bool {
		if f.companies[strings.ToLower(strings.TrimSpace(r.Company))] {
			excluded = append(excluded, r.Title)
			return false
		}
		return true
	})

	if len(excluded) > 0 {
		logger.OrNop(deps.Logger).Info("excluding matches by company",
			zap.Strings("excluded_companies", f.names),
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", step.Left),
		)
	}
	return out, step, nil
}

func (f *excludeCompaniesFilter) Status() Status {
	details := map[string]string{}
	if len(f.names) > 0 {
		details["companies"] = strings.Join(f.names, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
