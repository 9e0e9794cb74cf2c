package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	t.Parallel()

	c := New()
	c.CacheLoad("hit")
	c.CacheLoad("hit")
	c.CacheLoad("miss")
	c.EncoderCall("query", nil)
	c.EncoderCall("query", errors.New("boom"))
	c.IndexBuild(nil)
	c.ObserveMatch("lexical", time.Now())
	c.Analysis("analyze", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.CacheLoads.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheLoads.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.EncoderCalls.WithLabelValues("query", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.IndexBuilds.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Matches.WithLabelValues("lexical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.AnalysesServed.WithLabelValues("analyze", "ok")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.MatchDuration))
}

func TestNilCollectorIsNoop(t *testing.T) {
	t.Parallel()

	var c *Collector
	c.CacheLoad("hit")
	c.EncoderCall("query", nil)
	c.IndexBuild(nil)
	c.ObserveMatch("semantic", time.Now())
	c.Analysis("analyze", nil)
	assert.Nil(t, c.Registry())
}

func TestHandlerExposesMetrics(t *testing.T) {
	t.Parallel()

	c := New()
	c.CacheLoad("stale")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `resume_matcher_embedding_cache_loads_total{outcome="stale"} 1`))
}
