// Package metrics exposes engine counters through a private prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "resume_matcher"

// Collector holds the engine metrics. A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	CacheLoads     *prometheus.CounterVec
	EncoderCalls   *prometheus.CounterVec
	MatchDuration  prometheus.Histogram
	Matches        *prometheus.CounterVec
	IndexBuilds    *prometheus.CounterVec
	AnalysesServed *prometheus.CounterVec
}

func New() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		CacheLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_loads_total",
			Help:      "Embedding cache lookups by outcome (hit, miss, stale).",
		}, []string{"outcome"}),
		EncoderCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "encoder_calls_total",
			Help:      "Encoder invocations by purpose and status.",
		}, []string{"purpose", "status"}),
		MatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_duration_seconds",
			Help:      "Time spent ranking jobs for one document.",
			Buckets:   prometheus.DefBuckets,
		}),
		Matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Match requests by mode (semantic, lexical, unavailable).",
		}, []string{"mode"}),
		IndexBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_builds_total",
			Help:      "Similarity index constructions by status.",
		}, []string{"status"}),
		AnalysesServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Completed analyses by kind and status.",
		}, []string{"kind", "status"}),
	}

	registry.MustRegister(
		c.CacheLoads,
		c.EncoderCalls,
		c.MatchDuration,
		c.Matches,
		c.IndexBuilds,
		c.AnalysesServed,
	)

	return c
}

// Registry returns the registry holding every engine metric.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) CacheLoad(outcome string) {
	if c == nil {
		return
	}
	c.CacheLoads.WithLabelValues(outcome).Inc()
}

func (c *Collector) EncoderCall(purpose string, err error) {
	if c == nil {
		return
	}
	c.EncoderCalls.WithLabelValues(purpose, status(err)).Inc()
}

func (c *Collector) IndexBuild(err error) {
	if c == nil {
		return
	}
	c.IndexBuilds.WithLabelValues(status(err)).Inc()
}

// ObserveMatch records one match request that started at start.
func (c *Collector) ObserveMatch(mode string, start time.Time) {
	if c == nil {
		return
	}
	c.Matches.WithLabelValues(mode).Inc()
	c.MatchDuration.Observe(time.Since(start).Seconds())
}

func (c *Collector) Analysis(kind string, err error) {
	if c == nil {
		return
	}
	c.AnalysesServed.WithLabelValues(kind, status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
