package index

import (
	"errors"
	"math"
	"testing"

	"github.com/spigell/resume-matcher/internal/vector"
)

func mustSet(t *testing.T, vecs [][]float32, scheme vector.Scheme) *vector.Set {
	t.Helper()
	for _, v := range vecs {
		vector.Normalize(v)
	}
	set, err := vector.Quantize(vecs, scheme)
	if err != nil {
		t.Fatalf("Quantize returned error: %v", err)
	}
	return set
}

func TestSearchOrdersBySimilarity(t *testing.T) {
	t.Parallel()

	for _, metric := range []Metric{MetricIP, MetricL2} {
		t.Run(string(metric), func(t *testing.T) {
			t.Parallel()

			jobs := mustSet(t, [][]float32{{0, 1}, {1, 0}, {1, 1}}, vector.SchemeNone)
			query := mustSet(t, [][]float32{{1, 0.1}}, vector.SchemeNone)

			idx, err := Build(jobs, metric)
			if err != nil {
				t.Fatalf("Build returned error: %v", err)
			}

			hits, err := idx.Search(query, 3)
			if err != nil {
				t.Fatalf("Search returned error: %v", err)
			}

			got := []int{hits[0].Index, hits[1].Index, hits[2].Index}
			want := []int{1, 2, 0}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("unexpected order %v, want %v", got, want)
				}
			}
			for i := 1; i < len(hits); i++ {
				if hits[i].Similarity > hits[i-1].Similarity {
					t.Fatalf("similarity not descending: %+v", hits)
				}
			}
		})
	}
}

func TestSearchMetricsAgreeOnUnitVectors(t *testing.T) {
	t.Parallel()

	jobs := mustSet(t, [][]float32{{3, 4}, {-1, 2}, {0.5, -2}}, vector.SchemeNone)
	query := mustSet(t, [][]float32{{1, 1}}, vector.SchemeNone)

	ip, _ := Build(jobs, MetricIP)
	l2, _ := Build(jobs, MetricL2)

	a, err := ip.Search(query, 3)
	if err != nil {
		t.Fatalf("ip search: %v", err)
	}
	b, err := l2.Search(query, 3)
	if err != nil {
		t.Fatalf("l2 search: %v", err)
	}

	for i := range a {
		if a[i].Index != b[i].Index {
			t.Fatalf("metrics disagree at %d: %v vs %v", i, a, b)
		}
		if math.Abs(a[i].Similarity-b[i].Similarity) > 1e-5 {
			t.Fatalf("similarity mismatch at %d: %f vs %f", i, a[i].Similarity, b[i].Similarity)
		}
	}
}

func TestSearchBreaksTiesByIndex(t *testing.T) {
	t.Parallel()

	jobs := mustSet(t, [][]float32{{1, 0}, {0, 1}, {1, 0}, {1, 0}}, vector.SchemeBinary)
	query := mustSet(t, [][]float32{{1, -1}}, vector.SchemeBinary)

	idx, _ := Build(jobs, MetricIP)
	hits, err := idx.Search(query, 4)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}

	want := []int{0, 2, 3, 1}
	for i, h := range hits {
		if h.Index != want[i] {
			t.Fatalf("unexpected order %+v, want indices %v", hits, want)
		}
	}
}

func TestSearchCapsK(t *testing.T) {
	t.Parallel()

	jobs := mustSet(t, [][]float32{{1, 0}, {0, 1}}, vector.SchemeInt8)
	query := mustSet(t, [][]float32{{1, 0}}, vector.SchemeInt8)

	idx, _ := Build(jobs, MetricIP)
	hits, err := idx.Search(query, 10)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if math.Abs(hits[0].Similarity-1) > 1e-9 {
		t.Fatalf("expected exact match similarity 1, got %f", hits[0].Similarity)
	}
}

func TestSearchRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	jobs := mustSet(t, [][]float32{{1, 0}}, vector.SchemeNone)
	idx, _ := Build(jobs, MetricIP)

	if _, err := idx.Search(mustSet(t, [][]float32{{1, 0}}, vector.SchemeNone), 0); !errors.Is(err, ErrInvalidK) {
		t.Fatalf("expected ErrInvalidK, got %v", err)
	}
	if _, err := idx.Search(mustSet(t, [][]float32{{1, 0}}, vector.SchemeBinary), 1); err == nil {
		t.Fatal("expected scheme mismatch error")
	}
	if _, err := idx.Search(mustSet(t, [][]float32{{1, 0, 0}}, vector.SchemeNone), 1); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	t.Parallel()

	idx, err := Build(&vector.Set{Scheme: vector.SchemeNone, Dim: 2}, MetricIP)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	hits, err := idx.Search(mustSet(t, [][]float32{{1, 0}}, vector.SchemeNone), 5)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits, got %v", hits)
	}
}

func TestParseMetric(t *testing.T) {
	t.Parallel()

	if m, err := ParseMetric(""); err != nil || m != MetricIP {
		t.Fatalf("expected default ip, got %q %v", m, err)
	}
	if m, err := ParseMetric("L2"); err != nil || m != MetricL2 {
		t.Fatalf("expected l2, got %q %v", m, err)
	}
	if _, err := ParseMetric("cosine"); err == nil {
		t.Fatal("expected error for unknown metric")
	}
}
