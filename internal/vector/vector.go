// Package vector holds embedding vectors in one of three precisions and scores
// them against a query of the same precision.
//
// Every scheme reports a cosine-equivalent similarity for unit vectors:
//
//   - none: float32 inner product
//   - int8: components scaled by 127 and rounded, inner product divided by 127²
//   - binary: one sign bit per component, similarity 1 - 2·hamming/dim
package vector

import (
	"fmt"
	"math"
	"math/bits"
	"strings"
)

// Scheme is a quantization scheme.
type Scheme uint8

const (
	SchemeNone Scheme = iota
	SchemeInt8
	SchemeBinary
)

const int8Scale = 127

func (s Scheme) String() string {
	switch s {
	case SchemeNone:
		return "none"
	case SchemeInt8:
		return "int8"
	case SchemeBinary:
		return "binary"
	default:
		return fmt.Sprintf("scheme(%d)", uint8(s))
	}
}

// ParseScheme parses a scheme name. An empty name means no quantization.
func ParseScheme(name string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none", "float32":
		return SchemeNone, nil
	case "int8":
		return SchemeInt8, nil
	case "binary":
		return SchemeBinary, nil
	default:
		return 0, fmt.Errorf("unknown quantization scheme %q", name)
	}
}

// Normalize scales v to unit length in place. Zero vectors are left untouched.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}

// Set is a collection of same-dimension vectors sharing a scheme. Only the
// slice matching Scheme is populated.
type Set struct {
	Scheme Scheme
	Dim    int

	Floats [][]float32
	Codes  [][]int8
	Bits   [][]uint64
}

// Words returns the number of uint64 words holding one binary vector.
func Words(dim int) int {
	return (dim + 63) / 64
}

// Quantize converts float vectors into a set with the given scheme. All vectors
// must share one non-zero dimension.
func Quantize(vecs [][]float32, scheme Scheme) (*Set, error) {
	set := &Set{Scheme: scheme}
	if len(vecs) == 0 {
		return set, nil
	}

	set.Dim = len(vecs[0])
	if set.Dim == 0 {
		return nil, fmt.Errorf("vector 0 is empty")
	}
	for i, v := range vecs {
		if len(v) != set.Dim {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), set.Dim)
		}
	}

	switch scheme {
	case SchemeNone:
		set.Floats = make([][]float32, len(vecs))
		for i, v := range vecs {
			set.Floats[i] = append([]float32(nil), v...)
		}
	case SchemeInt8:
		set.Codes = make([][]int8, len(vecs))
		for i, v := range vecs {
			set.Codes[i] = quantizeInt8(v)
		}
	case SchemeBinary:
		set.Bits = make([][]uint64, len(vecs))
		for i, v := range vecs {
			set.Bits[i] = quantizeBinary(v)
		}
	default:
		return nil, fmt.Errorf("unknown quantization scheme %d", scheme)
	}

	return set, nil
}

func quantizeInt8(v []float32) []int8 {
	out := make([]int8, len(v))
	for i, x := range v {
		q := math.Round(float64(x) * int8Scale)
		if q > int8Scale {
			q = int8Scale
		}
		if q < -int8Scale {
			q = -int8Scale
		}
		out[i] = int8(q)
	}
	return out
}

func quantizeBinary(v []float32) []uint64 {
	out := make([]uint64, Words(len(v)))
	for i, x := range v {
		if x > 0 {
			out[i/64] |= 1 << (uint(i) % 64)
		}
	}
	return out
}

// Len returns the number of vectors.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	switch s.Scheme {
	case SchemeInt8:
		return len(s.Codes)
	case SchemeBinary:
		return len(s.Bits)
	default:
		return len(s.Floats)
	}
}

// Compatible reports whether q can be scored against s.
func (s *Set) Compatible(q *Set) error {
	if q == nil || q.Len() == 0 {
		return fmt.Errorf("empty query")
	}
	if q.Scheme != s.Scheme {
		return fmt.Errorf("query scheme %s, index scheme %s", q.Scheme, s.Scheme)
	}
	if q.Dim != s.Dim {
		return fmt.Errorf("query dimension %d, index dimension %d", q.Dim, s.Dim)
	}
	return nil
}

// Similarity scores vector i of s against vector j of q. The caller checks
// Compatible first.
func (s *Set) Similarity(i int, q *Set, j int) float64 {
	switch s.Scheme {
	case SchemeInt8:
		var dot int64
		a, b := s.Codes[i], q.Codes[j]
		for k := range a {
			dot += int64(a[k]) * int64(b[k])
		}
		return float64(dot) / (int8Scale * int8Scale)
	case SchemeBinary:
		a, b := s.Bits[i], q.Bits[j]
		hamming := 0
		for k := range a {
			hamming += bits.OnesCount64(a[k] ^ b[k])
		}
		return 1 - 2*float64(hamming)/float64(s.Dim)
	default:
		var dot float64
		a, b := s.Floats[i], q.Floats[j]
		for k := range a {
			dot += float64(a[k]) * float64(b[k])
		}
		return dot
	}
}

// SquaredDistance returns the squared Euclidean distance between vector i of s
// and vector j of q in the dequantized space.
func (s *Set) SquaredDistance(i int, q *Set, j int) float64 {
	switch s.Scheme {
	case SchemeInt8:
		var sum int64
		a, b := s.Codes[i], q.Codes[j]
		for k := range a {
			d := int64(a[k]) - int64(b[k])
			sum += d * d
		}
		return float64(sum) / (int8Scale * int8Scale)
	case SchemeBinary:
		// Sign vectors scaled to unit length: every differing bit adds (2/sqrt(dim))².
		a, b := s.Bits[i], q.Bits[j]
		hamming := 0
		for k := range a {
			hamming += bits.OnesCount64(a[k] ^ b[k])
		}
		return 4 * float64(hamming) / float64(s.Dim)
	default:
		var sum float64
		a, b := s.Floats[i], q.Floats[j]
		for k := range a {
			d := float64(a[k]) - float64(b[k])
			sum += d * d
		}
		return sum
	}
}

// Equal reports whether both sets hold identical data.
func (s *Set) Equal(o *Set) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Scheme != o.Scheme || s.Dim != o.Dim || s.Len() != o.Len() {
		return false
	}
	for i := 0; i < s.Len(); i++ {
		switch s.Scheme {
		case SchemeInt8:
			for k := range s.Codes[i] {
				if s.Codes[i][k] != o.Codes[i][k] {
					return false
				}
			}
		case SchemeBinary:
			for k := range s.Bits[i] {
				if s.Bits[i][k] != o.Bits[i][k] {
					return false
				}
			}
		default:
			for k := range s.Floats[i] {
				if math.Float32bits(s.Floats[i][k]) != math.Float32bits(o.Floats[i][k]) {
					return false
				}
			}
		}
	}
	return true
}
