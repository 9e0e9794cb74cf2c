// Package matching ranks catalog jobs against a document.
//
// The Engine owns the similarity index over job embeddings. The index is built
// on first use (or by Warmup) exactly once, even under concurrent callers, and
// is read-only afterwards.
package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/catalog"
	"github.com/spigell/resume-matcher/internal/embedcache"
	"github.com/spigell/resume-matcher/internal/encoder"
	"github.com/spigell/resume-matcher/internal/errs"
	"github.com/spigell/resume-matcher/internal/index"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/metrics"
	"github.com/spigell/resume-matcher/internal/skills"
	"github.com/spigell/resume-matcher/internal/utils"
	"github.com/spigell/resume-matcher/internal/vector"
)

// ErrMatchingUnavailable is returned when semantic ranking fails and the engine
// is configured not to degrade.
var ErrMatchingUnavailable = errors.New("matching unavailable")

// MatchResult is one ranked job.
type MatchResult struct {
	JobIndex      int      `json:"jobIndex"`
	Title         string   `json:"title"`
	Company       string   `json:"company"`
	Score         float64  `json:"score"`
	Semantic      float64  `json:"semanticScore"`
	Keyword       float64  `json:"keywordScore"`
	MatchedSkills []string `json:"matchedSkills"`
	MissingSkills []string `json:"missingSkills"`
	Description   string   `json:"description"`
	SalaryRange   string   `json:"salaryRange"`
}

// Matches is the outcome of one Match call.
type Matches struct {
	Items []MatchResult `json:"items"`
	// Degraded is set when ranking fell back to keyword overlap only.
	Degraded bool   `json:"degraded"`
	Reason   string `json:"reason,omitempty"`
}

// Engine matches documents against a job catalog. It is safe for concurrent use.
type Engine struct {
	catalog   *catalog.Catalog
	extractor *skills.Extractor
	encoder   encoder.Encoder
	cache     *embedcache.Cache
	opts      Options
	logger    *zap.Logger
	metrics   *metrics.Collector

	once        sync.Once
	ready       atomic.Bool
	index       *index.Flat
	buildErr    error
	cacheResult embedcache.Result
}

// New creates an engine. The cache may be nil, in which case job embeddings are
// computed in memory on first use.
func New(cat *catalog.Catalog, ext *skills.Extractor, enc encoder.Encoder, cache *embedcache.Cache, opts Options, log *zap.Logger, m *metrics.Collector) *Engine {
	if cache == nil {
		cache = embedcache.New("", log)
	}
	return &Engine{
		catalog:   cat,
		extractor: ext,
		encoder:   enc,
		cache:     cache,
		opts:      opts.withDefaults(),
		logger:    logger.ForComponent(log, "matching", enc.Model()),
		metrics:   m,
	}
}

func (e *Engine) Options() Options { return e.opts }

func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

func (e *Engine) Extractor() *skills.Extractor { return e.extractor }

// Warmup builds the index if it is not built yet and reports how the job
// embeddings were obtained.
func (e *Engine) Warmup(ctx context.Context) (embedcache.Result, error) {
	_, err := e.ensureIndex(ctx)
	return e.cacheResult, err
}

// Ready reports whether the index was built successfully. It never triggers a build.
func (e *Engine) Ready() bool {
	return e.ready.Load()
}

// ensureIndex builds the index once. The build is detached from ctx
// cancellation so a cancelled first caller does not leave the engine degraded.
func (e *Engine) ensureIndex(ctx context.Context) (*index.Flat, error) {
	e.once.Do(func() {
		e.index, e.buildErr = e.build(context.WithoutCancel(ctx))
		e.ready.Store(e.buildErr == nil)
	})
	return e.index, e.buildErr
}

func (e *Engine) build(ctx context.Context) (*index.Flat, error) {
	start := time.Now()
	texts := e.catalog.JobTexts()

	set, res, err := e.cache.LoadOrCompute(ctx, texts, e.encoder, e.opts.Scheme)
	e.cacheResult = res
	switch {
	case res.Hit:
		e.metrics.CacheLoad("hit")
	case res.Recomputed:
		e.metrics.CacheLoad("stale")
	default:
		e.metrics.CacheLoad("miss")
	}
	if !res.Hit {
		e.metrics.EncoderCall("jobs", encodeErr(set, err))
	}

	if set == nil {
		e.metrics.IndexBuild(err)
		e.logger.Error("failed to build job index", logger.Stage("index"), zap.Error(err))
		return nil, err
	}
	if err != nil {
		// Persisting failed but the vectors are usable.
		e.logger.Warn("serving job index from memory", logger.Stage("index"), zap.Error(err))
	}

	idx, err := index.Build(set, e.opts.Metric)
	e.metrics.IndexBuild(err)
	if err != nil {
		return nil, errs.Capability("index", err)
	}

	e.logger.Info("job index ready",
		logger.Stage("index"),
		zap.Int("jobs", idx.Len()),
		zap.String("metric", string(idx.Metric())),
		zap.String("scheme", idx.Scheme().String()),
		zap.Bool("cache_hit", res.Hit),
		zap.Duration("took", time.Since(start)),
	)
	return idx, nil
}

func encodeErr(set *vector.Set, err error) error {
	if set == nil {
		return err
	}
	return nil
}

// Match ranks jobs against text and returns at most topK results, best first.
// A non-positive topK uses the configured default. A text without any catalog
// skill is matched normally; its keyword scores are simply zero.
func (e *Engine) Match(ctx context.Context, text string, topK int) (*Matches, error) {
	start := time.Now()
	if topK <= 0 {
		topK = e.opts.TopK
	}

	have := e.extractor.ExtractSet(text)

	idx, err := e.ensureIndex(ctx)
	if err != nil {
		return e.degrade(err, have, topK, start)
	}

	query := utils.Clip(text, e.opts.MaxQueryChars)
	vec, err := encoder.EncodeOne(ctx, e.encoder, query, true)
	e.metrics.EncoderCall("query", err)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return e.degrade(errs.Capability("encode", err), have, topK, start)
	}

	qset, err := vector.Quantize([][]float32{vec}, e.opts.Scheme)
	if err != nil {
		return e.degrade(errs.Capability("quantize", err), have, topK, start)
	}

	hits, err := idx.Search(qset, topK)
	if err != nil {
		return e.degrade(errs.Capability("search", err), have, topK, start)
	}

	scored := make([]ranked, 0, len(hits))
	for _, h := range hits {
		scored = append(scored, e.score(h.Index, h.Similarity, have))
	}

	out := &Matches{Items: sortRanked(scored)}
	e.metrics.ObserveMatch("semantic", start)
	e.logger.Debug("matched jobs",
		logger.Stage("match"),
		zap.Int("document_skills", len(have)),
		zap.Int("results", len(out.Items)),
	)
	return out, nil
}

func (e *Engine) degrade(cause error, have map[string]bool, topK int, start time.Time) (*Matches, error) {
	if e.opts.Degraded == DegradeFail {
		e.metrics.ObserveMatch("unavailable", start)
		return nil, fmt.Errorf("%w: %w", ErrMatchingUnavailable, cause)
	}

	all := make([]ranked, 0, len(e.catalog.Jobs))
	for i := range e.catalog.Jobs {
		all = append(all, e.score(i, 0, have))
	}

	items := sortRanked(all)
	if len(items) > topK {
		items = items[:topK]
	}

	e.metrics.ObserveMatch("lexical", start)
	e.logger.Warn("semantic matching unavailable, ranking by keywords",
		logger.Stage("match"),
		zap.Int("results", len(items)),
		zap.Error(cause),
	)

	return &Matches{Items: items, Degraded: true, Reason: cause.Error()}, nil
}

type ranked struct {
	fused  float64
	result MatchResult
}

func (e *Engine) score(jobIndex int, semantic float64, have map[string]bool) ranked {
	job := &e.catalog.Jobs[jobIndex]
	keyword := KeywordScore(job.RequiredSkills, have)
	fused := Fuse(semantic, keyword, e.opts.Weights)
	matched, missing := splitSkills(job.RequiredSkills, have)

	return ranked{
		fused: fused,
		result: MatchResult{
			JobIndex:      jobIndex,
			Title:         job.TitleOrUnknown(),
			Company:       job.CompanyOrUnknown(),
			Score:         round3(fused),
			Semantic:      semantic,
			Keyword:       keyword,
			MatchedSkills: matched,
			MissingSkills: missing,
			Description:   utils.Clip(job.Description, e.opts.DescriptionChars),
			SalaryRange:   job.SalaryOrUnknown(),
		},
	}
}

func sortRanked(rs []ranked) []MatchResult {
	sort.SliceStable(rs, func(a, b int) bool {
		if rs[a].fused != rs[b].fused {
			return rs[a].fused > rs[b].fused
		}
		return rs[a].result.JobIndex < rs[b].result.JobIndex
	})
	out := make([]MatchResult, len(rs))
	for i, r := range rs {
		out[i] = r.result
	}
	return out
}
