package encoder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/resume-matcher/internal/vector"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestHashingDeterministicAndNormalized(t *testing.T) {
	h := NewHashing(64)
	assert.Equal(t, 64, h.Dimension())
	assert.Equal(t, "hashing-64", h.Model())

	vecs, err := h.Encode(context.Background(), []string{"Go and Kubernetes", "Go and Kubernetes"}, true)
	require.NoError(t, err)
	require.NoError(t, CheckDimensions(vecs, 2, 64))

	assert.Equal(t, vecs[0], vecs[1])
	assert.InDelta(t, 1.0, cosine(vecs[0], vecs[0]), 1e-5)
}

func TestHashingSharedVocabularyIsCloser(t *testing.T) {
	h := NewHashing(DefaultHashingDimension)
	vecs, err := h.Encode(context.Background(), []string{
		"python data pipelines with sql",
		"sql and python for data pipelines",
		"frontend react typescript design",
	}, true)
	require.NoError(t, err)

	assert.Greater(t, cosine(vecs[0], vecs[1]), cosine(vecs[0], vecs[2]))
}

func TestHashingEmptyText(t *testing.T) {
	v, err := EncodeOne(context.Background(), NewHashing(0), "", true)
	require.NoError(t, err)
	require.Len(t, v, DefaultHashingDimension)

	set, err := vector.Quantize([][]float32{v}, vector.SchemeNone)
	require.NoError(t, err)
	assert.Zero(t, set.Similarity(0, set, 0))
}

func TestHashingHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHashing(8).Encode(ctx, []string{"x"}, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTokenizeKeepsTechSuffixes(t *testing.T) {
	assert.Equal(t, []string{"c++", "c#", "node.js", "end"}, tokenize("C++, C#; node.js. END."))
}

func TestCheckDimensions(t *testing.T) {
	assert.Error(t, CheckDimensions([][]float32{{1}}, 2, 1))
	assert.Error(t, CheckDimensions([][]float32{{1, 2}}, 1, 1))
	assert.NoError(t, CheckDimensions([][]float32{{1}}, 1, 1))
}
