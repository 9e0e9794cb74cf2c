// Package index implements exact nearest-neighbour search over a vector set.
package index

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spigell/resume-matcher/internal/vector"
)

// Metric selects how neighbours are ranked.
type Metric string

const (
	// MetricIP ranks by inner product. For unit vectors this is cosine similarity.
	MetricIP Metric = "ip"
	// MetricL2 ranks by squared Euclidean distance.
	MetricL2 Metric = "l2"
)

// ErrInvalidK is returned for a non-positive neighbour count.
var ErrInvalidK = errors.New("k must be positive")

func ParseMetric(name string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(name))) {
	case "", MetricIP:
		return MetricIP, nil
	case MetricL2:
		return MetricL2, nil
	default:
		return "", fmt.Errorf("unknown index metric %q", name)
	}
}

// Neighbor is one search hit. Similarity is cosine-equivalent for both metrics.
type Neighbor struct {
	Index      int
	Distance   float64
	Similarity float64
}

// Flat scans every vector on each query. It is read-only after Build and safe
// for concurrent searches.
type Flat struct {
	set    *vector.Set
	metric Metric
}

func Build(set *vector.Set, metric Metric) (*Flat, error) {
	if set == nil {
		return nil, errors.New("nil vector set")
	}
	if metric != MetricIP && metric != MetricL2 {
		return nil, fmt.Errorf("unknown index metric %q", metric)
	}
	return &Flat{set: set, metric: metric}, nil
}

func (f *Flat) Len() int { return f.set.Len() }

func (f *Flat) Metric() Metric { return f.metric }

func (f *Flat) Scheme() vector.Scheme { return f.set.Scheme }

// Search returns the min(k, Len) closest vectors to the first vector of
// query, most similar first. Equal scores are ordered by ascending index.
func (f *Flat) Search(query *vector.Set, k int) ([]Neighbor, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if f.Len() == 0 {
		return []Neighbor{}, nil
	}
	if err := f.set.Compatible(query); err != nil {
		return nil, err
	}

	hits := make([]Neighbor, f.Len())
	for i := range hits {
		hits[i] = f.score(i, query)
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Distance != hits[b].Distance {
			return hits[a].Distance < hits[b].Distance
		}
		return hits[a].Index < hits[b].Index
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func (f *Flat) score(i int, query *vector.Set) Neighbor {
	if f.metric == MetricL2 {
		d := f.set.SquaredDistance(i, query, 0)
		return Neighbor{Index: i, Distance: d, Similarity: 1 - d/2}
	}
	s := f.set.Similarity(i, query, 0)
	return Neighbor{Index: i, Distance: 1 - s, Similarity: s}
}
