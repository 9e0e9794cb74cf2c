package encoder

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/spigell/resume-matcher/internal/vector"
)

// DefaultHashingDimension is the width of the hashing encoder when none is configured.
const DefaultHashingDimension = 384

// Hashing is an offline encoder: a signed feature-hashing bag of words.
// Texts sharing vocabulary land close to each other, which is enough for
// offline runs and deterministic tests.
type Hashing struct {
	dim int
}

// NewHashing returns a hashing encoder of the given dimension.
func NewHashing(dim int) *Hashing {
	if dim <= 0 {
		dim = DefaultHashingDimension
	}
	return &Hashing{dim: dim}
}

func (h *Hashing) Dimension() int { return h.dim }

func (h *Hashing) Model() string { return fmt.Sprintf("hashing-%d", h.dim) }

func (h *Hashing) Encode(ctx context.Context, texts []string, normalize bool) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.encode(text)
		if normalize {
			vector.Normalize(out[i])
		}
	}
	return out, nil
}

func (h *Hashing) encode(text string) []float32 {
	v := make([]float32, h.dim)
	for _, token := range tokenize(text) {
		hasher := fnv.New64a()
		hasher.Write([]byte(token))
		sum := hasher.Sum64()

		idx := int(sum % uint64(h.dim))
		if sum>>63 == 1 {
			v[idx]--
		} else {
			v[idx]++
		}
	}
	return v
}

// tokenize keeps + # . inside tokens so that c++, c# and node.js survive.
func tokenize(text string) []string {
	var tokens []string
	var word strings.Builder
	flush := func() {
		w := strings.TrimRight(word.String(), ".")
		word.Reset()
		if w != "" {
			tokens = append(tokens, w)
		}
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' || r == '.' {
			word.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}
