// Package encoder defines the text encoder capability consumed by the engine.
package encoder

import (
	"context"
	"fmt"
)

// Encoder turns texts into fixed-width dense vectors.
type Encoder interface {
	// Encode returns one vector per text, in input order. When normalize is
	// set every vector has unit length.
	Encode(ctx context.Context, texts []string, normalize bool) ([][]float32, error)
	// Dimension is the width of every returned vector.
	Dimension() int
	// Model identifies the encoder; it is part of the embedding cache key.
	Model() string
}

// EncodeOne encodes a single text.
func EncodeOne(ctx context.Context, enc Encoder, text string, normalize bool) ([]float32, error) {
	vecs, err := enc.Encode(ctx, []string{text}, normalize)
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("encoder returned %d vectors for 1 text", len(vecs))
	}
	return vecs[0], nil
}

// CheckDimensions verifies an encoder response.
func CheckDimensions(vecs [][]float32, texts, dim int) error {
	if len(vecs) != texts {
		return fmt.Errorf("encoder returned %d vectors for %d texts", len(vecs), texts)
	}
	for i, v := range vecs {
		if len(v) != dim {
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
	}
	return nil
}
