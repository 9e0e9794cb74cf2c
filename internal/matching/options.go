package matching

import (
	"fmt"
	"strings"

	"github.com/spigell/resume-matcher/internal/index"
	"github.com/spigell/resume-matcher/internal/vector"
)

const (
	DefaultTopK             = 5
	DefaultSemanticWeight   = 0.7
	DefaultKeywordWeight    = 0.3
	DefaultMaxQueryChars    = 10000
	DefaultDescriptionChars = 240
)

// DegradedMode selects what Match does when semantic ranking is unavailable.
type DegradedMode string

const (
	// DegradeLexical ranks every job by keyword overlap alone.
	DegradeLexical DegradedMode = "lexical"
	// DegradeFail returns ErrMatchingUnavailable.
	DegradeFail DegradedMode = "fail"
)

func ParseDegradedMode(name string) (DegradedMode, error) {
	switch DegradedMode(strings.ToLower(strings.TrimSpace(name))) {
	case "", DegradeLexical:
		return DegradeLexical, nil
	case DegradeFail:
		return DegradeFail, nil
	default:
		return "", fmt.Errorf("unknown degraded mode %q", name)
	}
}

// Weights combine the two ranking signals.
type Weights struct {
	Semantic float64
	Keyword  float64
}

// DefaultWeights favours semantic similarity.
var DefaultWeights = Weights{Semantic: DefaultSemanticWeight, Keyword: DefaultKeywordWeight}

// Options tune the engine. Zero values fall back to the defaults above.
type Options struct {
	TopK             int
	Weights          Weights
	MaxQueryChars    int
	DescriptionChars int
	Scheme           vector.Scheme
	Metric           index.Metric
	Degraded         DegradedMode
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.Weights == (Weights{}) {
		o.Weights = DefaultWeights
	}
	if o.MaxQueryChars <= 0 {
		o.MaxQueryChars = DefaultMaxQueryChars
	}
	if o.DescriptionChars <= 0 {
		o.DescriptionChars = DefaultDescriptionChars
	}
	if o.Metric == "" {
		o.Metric = index.MetricIP
	}
	if o.Degraded == "" {
		o.Degraded = DegradeLexical
	}
	return o
}
