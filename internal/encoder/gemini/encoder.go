package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"

	"github.com/spigell/resume-matcher/internal/encoder"
	"github.com/spigell/resume-matcher/internal/utils"
	"github.com/spigell/resume-matcher/internal/vector"
)

// maxQuotaDelay is the longest server-requested delay worth waiting for.
const maxQuotaDelay = 30 * time.Second

var wait = utils.WaitFor

var retryAfterPattern = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*(s|sec|secs|seconds)?\b`)

// Encode splits texts into batches and embeds them concurrently. Blank texts
// get a zero vector without an API call.
func (e *Encoder) Encode(ctx context.Context, texts []string, normalize bool) ([][]float32, error) {
	out := make([][]float32, len(texts))

	pending := make([]int, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			out[i] = make([]float32, e.cfg.Dimension)
			continue
		}
		pending = append(pending, i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)

	for start := 0; start < len(pending); start += e.cfg.BatchSize {
		end := min(start+e.cfg.BatchSize, len(pending))
		batch := pending[start:end]

		g.Go(func() error {
			batchTexts := make([]string, len(batch))
			for i, idx := range batch {
				batchTexts[i] = texts[idx]
			}

			vecs, err := e.embedBatch(gctx, batchTexts)
			if err != nil {
				return fmt.Errorf("embed texts %d..%d: %w", batch[0], batch[len(batch)-1], err)
			}

			for i, idx := range batch {
				out[idx] = vecs[i]
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if normalize {
		for _, v := range out {
			vector.Normalize(v)
		}
	}

	return out, nil
}

func (e *Encoder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	res, err := e.breaker.Execute(func() (interface{}, error) {
		return e.embedWithRetry(ctx, texts)
	})
	if err != nil {
		return nil, err
	}
	return res.([][]float32), nil
}

func (e *Encoder) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: text}},
		})
	}

	cfg := &genai.EmbedContentConfig{
		TaskType:             e.cfg.TaskType,
		OutputDimensionality: genai.Ptr(int32(e.cfg.Dimension)),
	}

	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := e.models.EmbedContent(ctx, e.cfg.Model, contents, cfg)
		if err == nil {
			return e.collect(resp, len(texts))
		}
		lastErr = err

		delay, retry := retryDelay(err, attempt)
		if !retry || attempt == e.cfg.MaxRetries {
			break
		}

		e.logger.Warn("retrying gemini embed request",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Int("batch_size", len(texts)),
			zap.Error(err),
		)

		if err := wait(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("embed content: %w", lastErr)
}

func (e *Encoder) collect(resp *genai.EmbedContentResponse, want int) ([][]float32, error) {
	if resp == nil {
		return nil, errors.New("gemini api returned empty response")
	}

	vecs := make([][]float32, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		if emb == nil {
			vecs = append(vecs, nil)
			continue
		}
		vecs = append(vecs, emb.Values)
	}

	if err := encoder.CheckDimensions(vecs, want, e.cfg.Dimension); err != nil {
		return nil, err
	}
	return vecs, nil
}

// retryDelay decides whether err is temporary. Server errors back off
// exponentially; quota errors are retried only when the requested delay is short.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var ptr *genai.APIError
		if !errors.As(err, &ptr) || ptr == nil {
			return 0, false
		}
		apiErr = *ptr
	}

	backoff := time.Duration(1<<(attempt-1)) * time.Second

	switch {
	case apiErr.Code >= http.StatusInternalServerError:
		return backoff, true
	case apiErr.Code == http.StatusTooManyRequests:
		delay, ok := parseRetryAfter(apiErr.Message)
		if !ok {
			return backoff, true
		}
		if delay > maxQuotaDelay {
			return 0, false
		}
		return delay, true
	default:
		return 0, false
	}
}

func parseRetryAfter(message string) (time.Duration, bool) {
	m := retryAfterPattern.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}
