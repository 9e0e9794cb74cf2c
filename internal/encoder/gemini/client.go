// Package gemini implements the text encoder on top of the Gemini embedding API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/spigell/resume-matcher/internal/logger"
)

const (
	defaultModel       = "gemini-embedding-001"
	defaultDimension   = 768
	defaultTaskType    = "SEMANTIC_SIMILARITY"
	defaultBatchSize   = 100
	defaultConcurrency = 4
	defaultRPS         = 5
	defaultMaxRetries  = 3
)

// Config configures the Gemini encoder. Zero values fall back to defaults.
type Config struct {
	APIKey            string
	Model             string
	Dimension         int
	TaskType          string
	BatchSize         int
	Concurrency       int
	RequestsPerSecond float64
	MaxRetries        int
}

func (c Config) withDefaults() Config {
	if c.Model = strings.TrimSpace(c.Model); c.Model == "" {
		c.Model = defaultModel
	}
	if c.Dimension <= 0 {
		c.Dimension = defaultDimension
	}
	if c.TaskType = strings.TrimSpace(c.TaskType); c.TaskType == "" {
		c.TaskType = defaultTaskType
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = defaultRPS
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	return c
}

// embedder is the subset of genai.Models used by the encoder.
type embedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Encoder embeds texts with Gemini. It is safe for concurrent use.
type Encoder struct {
	models  embedder
	cfg     Config
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// New creates an encoder configured for the Gemini API backend.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Encoder, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newEncoder(client.Models, cfg, log), nil
}

func newEncoder(models embedder, cfg Config, log *zap.Logger) *Encoder {
	cfg = cfg.withDefaults()
	log = logger.ForComponent(log, "gemini", cfg.Model)

	e := &Encoder{
		models:  models,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:  log,
	}

	e.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gemini-embed",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return e
}

func (e *Encoder) Dimension() int { return e.cfg.Dimension }

func (e *Encoder) Model() string {
	if e == nil {
		return ""
	}
	return e.cfg.Model
}
