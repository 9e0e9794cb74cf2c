package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeEmbedder struct {
	mu      sync.Mutex
	calls   int
	batches []int
	errs    []error
	dim     int
}

func (f *fakeEmbedder) EmbedContent(_ context.Context, _ string, contents []*genai.Content, cfg *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.batches = append(f.batches, len(contents))
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}

	dim := f.dim
	if cfg != nil && cfg.OutputDimensionality != nil {
		dim = int(*cfg.OutputDimensionality)
	}

	resp := &genai.EmbedContentResponse{}
	for _, c := range contents {
		values := make([]float32, dim)
		values[0] = float32(len(c.Parts[0].Text))
		values[1] = 1
		resp.Embeddings = append(resp.Embeddings, &genai.ContentEmbedding{Values: values})
	}
	return resp, nil
}

func stubWait(t *testing.T) *[]time.Duration {
	t.Helper()
	var waits []time.Duration
	original := wait
	wait = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	t.Cleanup(func() { wait = original })
	return &waits
}

func testConfig() Config {
	return Config{Dimension: 4, BatchSize: 2, Concurrency: 2, RequestsPerSecond: 1000, MaxRetries: 3}
}

func TestEncodeBatchesAndKeepsOrder(t *testing.T) {
	fake := &fakeEmbedder{}
	enc := newEncoder(fake, testConfig(), zap.NewNop())

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := enc.Encode(context.Background(), texts, false)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}

	if fake.calls != 3 {
		t.Fatalf("expected 3 batch calls, got %d", fake.calls)
	}
	for i, v := range vecs {
		if int(v[0]) != len(texts[i]) {
			t.Fatalf("vector %d out of order: %v", i, v)
		}
	}
}

func TestEncodeBlankTextSkipsAPI(t *testing.T) {
	fake := &fakeEmbedder{}
	enc := newEncoder(fake, testConfig(), zap.NewNop())

	vecs, err := enc.Encode(context.Background(), []string{"   "}, true)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if fake.calls != 0 {
		t.Fatalf("expected no api calls, got %d", fake.calls)
	}
	if len(vecs[0]) != 4 {
		t.Fatalf("expected zero vector of width 4, got %v", vecs[0])
	}
	for _, x := range vecs[0] {
		if x != 0 {
			t.Fatalf("expected zero vector, got %v", vecs[0])
		}
	}
}

func TestEncodeNormalizes(t *testing.T) {
	fake := &fakeEmbedder{}
	enc := newEncoder(fake, testConfig(), zap.NewNop())

	vecs, err := enc.Encode(context.Background(), []string{"abc"}, true)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}

	var norm float64
	for _, x := range vecs[0] {
		norm += float64(x) * float64(x)
	}
	if norm < 0.999 || norm > 1.001 {
		t.Fatalf("expected unit vector, got squared norm %f", norm)
	}
}

func TestEncodeRetriesTemporaryErrors(t *testing.T) {
	waits := stubWait(t)
	fake := &fakeEmbedder{errs: []error{
		genai.APIError{Code: http.StatusServiceUnavailable, Message: "overloaded"},
	}}
	enc := newEncoder(fake, testConfig(), zap.NewNop())

	if _, err := enc.Encode(context.Background(), []string{"retry me"}, false); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if fake.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", fake.calls)
	}
	if len(*waits) != 1 || (*waits)[0] != time.Second {
		t.Fatalf("expected one 1s backoff, got %v", *waits)
	}
}

func TestEncodeHonoursShortQuotaDelay(t *testing.T) {
	waits := stubWait(t)
	fake := &fakeEmbedder{errs: []error{
		genai.APIError{Code: http.StatusTooManyRequests, Message: "quota exceeded, retry in 2s"},
	}}
	enc := newEncoder(fake, testConfig(), zap.NewNop())

	if _, err := enc.Encode(context.Background(), []string{"quota"}, false); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if len(*waits) != 1 || (*waits)[0] != 2*time.Second {
		t.Fatalf("expected 2s wait, got %v", *waits)
	}
}

func TestEncodeDoesNotRetryLongQuotaDelay(t *testing.T) {
	waits := stubWait(t)
	fake := &fakeEmbedder{errs: []error{
		genai.APIError{Code: http.StatusTooManyRequests, Message: "quota exceeded, retry after 60 seconds"},
	}}
	enc := newEncoder(fake, testConfig(), zap.NewNop())

	_, err := enc.Encode(context.Background(), []string{"quota"}, false)
	if err == nil {
		t.Fatal("expected error for long quota delay")
	}
	if fake.calls != 1 {
		t.Fatalf("expected a single call, got %d", fake.calls)
	}
	if len(*waits) != 0 {
		t.Fatalf("expected no waits, got %v", *waits)
	}
}

func TestEncodeDoesNotRetryClientErrors(t *testing.T) {
	stubWait(t)
	fake := &fakeEmbedder{errs: []error{
		genai.APIError{Code: http.StatusBadRequest, Message: "bad request"},
	}}
	enc := newEncoder(fake, testConfig(), zap.NewNop())

	_, err := enc.Encode(context.Background(), []string{"x"}, false)
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusBadRequest {
		t.Fatalf("expected wrapped api error, got %v", err)
	}
}

type shortEmbedder struct{}

func (shortEmbedder) EmbedContent(context.Context, string, []*genai.Content, *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	return &genai.EmbedContentResponse{Embeddings: []*genai.ContentEmbedding{{Values: []float32{1}}}}, nil
}

func TestEncodeRejectsWrongDimension(t *testing.T) {
	enc := newEncoder(shortEmbedder{}, testConfig(), zap.NewNop())

	_, err := enc.Encode(context.Background(), []string{"x"}, false)
	if err == nil || !strings.Contains(err.Error(), "dimension") {
		t.Fatalf("expected dimension error, got %v", err)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.Model != defaultModel || cfg.Dimension != defaultDimension || cfg.TaskType != defaultTaskType {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(context.Background(), Config{}, zap.NewNop()); err == nil {
		t.Fatal("expected error without api key")
	}
}
