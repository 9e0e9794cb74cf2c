package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/analysis"
	"github.com/spigell/resume-matcher/internal/catalog"
	"github.com/spigell/resume-matcher/internal/embedcache"
	"github.com/spigell/resume-matcher/internal/encoder"
	"github.com/spigell/resume-matcher/internal/encoder/gemini"
	"github.com/spigell/resume-matcher/internal/evidence"
	"github.com/spigell/resume-matcher/internal/filtering"
	"github.com/spigell/resume-matcher/internal/index"
	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/metrics"
	"github.com/spigell/resume-matcher/internal/planner"
	"github.com/spigell/resume-matcher/internal/secrets"
	"github.com/spigell/resume-matcher/internal/skills"
	"github.com/spigell/resume-matcher/internal/vector"
)

// components is everything a command needs to serve analyses.
type components struct {
	engine  *matching.Engine
	service *analysis.Service
	metrics *metrics.Collector
}

func buildComponents(ctx context.Context, config *Config, logger *zap.Logger) (*components, error) {
	cat, err := catalog.Load(catalog.Paths{
		Skills:      config.Data.Skills,
		Jobs:        config.Data.Jobs,
		LearningMap: config.Data.LearningMap,
	}, config.Data.MaxJobs)
	if err != nil {
		return nil, err
	}

	logger.Info("catalogs loaded",
		zap.Int("skills", cat.Skills.Len()),
		zap.Int("jobs", len(cat.Jobs)),
		zap.Int("learning_map", len(cat.Learning)),
	)

	extractor, err := skills.NewExtractor(cat.Skills, logger)
	if err != nil {
		return nil, err
	}

	enc, err := newEncoder(ctx, config.Encoder, logger)
	if err != nil {
		return nil, err
	}

	opts, err := matchingOptions(config)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	cache := embedcache.New(config.Cache.Path, logger)
	engine := matching.New(cat, extractor, enc, cache, opts, logger, m)

	service, err := analysis.New(
		engine,
		planner.New(cat.Learning, config.Plan.MaxEntries, logger),
		evidence.New(cat.Jobs, config.Evidence.SnippetChars, logger),
		analysis.Options{
			TopK: config.Matching.TopK,
			Filters: &filtering.Config{
				MinimumScore:     config.Filters.MinimumScore,
				ExcludeCompanies: config.Filters.ExcludeCompanies,
			},
		},
		logger,
		m,
	)
	if err != nil {
		return nil, err
	}

	return &components{engine: engine, service: service, metrics: m}, nil
}

func matchingOptions(config *Config) (matching.Options, error) {
	scheme, err := vector.ParseScheme(config.Cache.Quantization)
	if err != nil {
		return matching.Options{}, fmt.Errorf("cache.quantization: %w", err)
	}
	metric, err := index.ParseMetric(config.Index.Metric)
	if err != nil {
		return matching.Options{}, fmt.Errorf("index.metric: %w", err)
	}
	mode, err := matching.ParseDegradedMode(config.Matching.DegradedMode)
	if err != nil {
		return matching.Options{}, fmt.Errorf("matching.degraded-mode: %w", err)
	}

	return matching.Options{
		TopK: config.Matching.TopK,
		Weights: matching.Weights{
			Semantic: config.Matching.SemanticWeight,
			Keyword:  config.Matching.KeywordWeight,
		},
		MaxQueryChars:    config.Matching.MaxQueryChars,
		DescriptionChars: config.Matching.DescriptionChars,
		Scheme:           scheme,
		Metric:           metric,
		Degraded:         mode,
	}, nil
}

func newEncoder(ctx context.Context, cfg EncoderConfig, logger *zap.Logger) (encoder.Encoder, error) {
	switch cfg.Provider {
	case "", "hashing":
		return encoder.NewHashing(cfg.Dimension), nil
	case "gemini":
		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: cfg.Gemini.APIKeyFile,
			Env:  "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set encoder.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
		}

		return gemini.New(ctx, gemini.Config{
			APIKey:            apiKey,
			Model:             cfg.Gemini.Model,
			Dimension:         cfg.Dimension,
			TaskType:          cfg.Gemini.TaskType,
			BatchSize:         cfg.Gemini.BatchSize,
			Concurrency:       cfg.Gemini.Concurrency,
			RequestsPerSecond: cfg.Gemini.RequestsPerSecond,
			MaxRetries:        cfg.Gemini.MaxRetries,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported encoder provider: %s", cfg.Provider)
	}
}
