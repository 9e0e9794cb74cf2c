// Package filtering applies optional post-match steps to ranked jobs.
package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/matching"
)

// Filter represents a single filtering step applied to ranked matches.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, m *matching.Matches) (*matching.Matches, Step, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger *zap.Logger
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Config contains configuration settings consumed by the filters.
type Config struct {
	MinimumScore     float64
	ExcludeCompanies []string
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

type statusProvider interface {
	Status() Status
}

// Default returns every known step configured from cfg. Steps without settings
// stay in the list disabled. The returned filters are read-only and may be
// shared by concurrent Run calls.
func Default(cfg *Config) ([]Filter, error) {
	steps := []Filter{NewMinimumScore(), NewExcludeCompanies()}
	if cfg == nil || cfg.MinimumScore <= 0 {
		DisableByName(steps, minimumScoreName, "minimum score is not set")
	}
	if cfg == nil || len(cfg.ExcludeCompanies) == 0 {
		DisableByName(steps, excludeCompaniesName, "no companies excluded")
	}
	if err := Configure(steps, cfg); err != nil {
		return nil, err
	}
	return steps, nil
}

// Configure validates cfg for every enabled step and stores the settings in it.
// It must finish before the steps are used by Run.
func Configure(steps []Filter, cfg *Config) error {
	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(cfg); err != nil {
			return fmt.Errorf("%s: %w", step.Name(), err)
		}
	}
	return nil
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
// Call it before the steps are shared.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the enabled filters in order. Neither the steps nor the input
// matches are modified, so Run is safe for concurrent use.
func Run(ctx context.Context, deps Deps, steps []Filter, m *matching.Matches) (*matching.Matches, error) {
	log := logger.OrNop(deps.Logger)

	for _, step := range steps {
		if !step.IsEnabled() {
			log.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, deps, m)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		log.Info("filter step",
			logger.Stage("filter"),
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		m = next
	}

	return m, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// keep returns a copy of m holding only the items accepted by ok.
func keep(m *matching.Matches, ok func(matching.MatchResult) bool) (*matching.Matches, Step) {
	out := &matching.Matches{Degraded: m.Degraded, Reason: m.Reason, Items: make([]matching.MatchResult, 0, len(m.Items))}
	for _, item := range m.Items {
		if ok(item) {
			out.Items = append(out.Items, item)
		}
	}
	return out, Step{Initial: len(m.Items), Dropped: len(m.Items) - len(out.Items), Left: len(out.Items)}
}
