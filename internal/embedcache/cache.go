// Package embedcache persists job embeddings between runs.
//
// The artifact is keyed by a hash of the encoder identity, the quantization
// scheme and every job text. An artifact whose key, shape or payload does not
// match is discarded and recomputed.
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/encoder"
	"github.com/spigell/resume-matcher/internal/errs"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/vector"
)

// DefaultPath is the artifact location used when none is configured.
const DefaultPath = "job_emb_cache.bin"

// Key identifies a corpus embedded by one encoder in one scheme.
type Key [sha256.Size]byte

// Result reports how LoadOrCompute obtained the vectors.
type Result struct {
	// Hit is set when vectors came from a valid artifact.
	Hit bool
	// Recomputed is set when an existing artifact was rejected.
	Recomputed bool
	// Persisted is set when a fresh artifact was written.
	Persisted bool
}

// Cache loads and stores the embedding artifact at Path. An empty path keeps
// vectors in memory only.
type Cache struct {
	path   string
	logger *zap.Logger
}

func New(path string, log *zap.Logger) *Cache {
	return &Cache{
		path:   path,
		logger: logger.ForComponent(log, "embedcache", ""),
	}
}

func (c *Cache) Path() string { return c.path }

// NewKey hashes the encoder identity, scheme and texts. Texts are length
// prefixed so that different splits of the same bytes never collide.
func NewKey(model string, dim int, scheme vector.Scheme, texts []string) Key {
	h := sha256.New()
	var buf [8]byte

	writeString := func(s string) {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(s)))
		h.Write(buf[:])
		h.Write([]byte(s))
	}

	writeString(model)
	binary.LittleEndian.PutUint64(buf[:], uint64(dim))
	h.Write(buf[:])
	h.Write([]byte{byte(scheme)})
	binary.LittleEndian.PutUint64(buf[:], uint64(len(texts)))
	h.Write(buf[:])
	for _, t := range texts {
		writeString(t)
	}

	var key Key
	copy(key[:], h.Sum(nil))
	return key
}

// LoadOrCompute returns one vector per text. It reads the artifact when it is
// valid for texts, otherwise it encodes the texts and writes a new artifact.
//
// When only the write fails the vectors are still returned together with a
// capability error so the caller may keep serving from memory.
func (c *Cache) LoadOrCompute(ctx context.Context, texts []string, enc encoder.Encoder, scheme vector.Scheme) (*vector.Set, Result, error) {
	var res Result
	dim := enc.Dimension()
	key := NewKey(enc.Model(), dim, scheme, texts)

	if c.path != "" {
		set, err := readArtifact(c.path, key, scheme, dim, len(texts))
		switch {
		case err == nil:
			c.logger.Info("loaded job embeddings from cache",
				zap.String("path", c.path),
				zap.Int("jobs", set.Len()),
				zap.String("scheme", scheme.String()),
			)
			res.Hit = true
			return set, res, nil
		case errors.Is(err, fs.ErrNotExist):
			c.logger.Debug("embedding cache not found", zap.String("path", c.path))
		default:
			c.logger.Warn("discarding embedding cache", zap.String("path", c.path), zap.Error(err))
			res.Recomputed = true
		}
	}

	set, err := compute(ctx, texts, enc, scheme)
	if err != nil {
		return nil, res, err
	}

	if c.path == "" {
		return set, res, nil
	}

	if err := writeArtifact(c.path, key, set); err != nil {
		c.logger.Warn("failed to persist embedding cache", zap.String("path", c.path), zap.Error(err))
		return set, res, errs.Capability("cache_write", err)
	}

	res.Persisted = true
	c.logger.Info("saved job embeddings to cache",
		zap.String("path", c.path),
		zap.Int("jobs", set.Len()),
		zap.String("scheme", scheme.String()),
	)
	return set, res, nil
}

func compute(ctx context.Context, texts []string, enc encoder.Encoder, scheme vector.Scheme) (*vector.Set, error) {
	dim := enc.Dimension()
	if len(texts) == 0 {
		return &vector.Set{Scheme: scheme, Dim: dim}, nil
	}

	vecs, err := enc.Encode(ctx, texts, true)
	if err != nil {
		return nil, errs.Capability("encode", err)
	}
	if err := encoder.CheckDimensions(vecs, len(texts), dim); err != nil {
		return nil, errs.Capability("encode", err)
	}

	set, err := vector.Quantize(vecs, scheme)
	if err != nil {
		return nil, errs.Capability("quantize", fmt.Errorf("quantize job embeddings: %w", err))
	}
	return set, nil
}
