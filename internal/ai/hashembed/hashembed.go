// Package hashembed is a deterministic bag-of-words embedder that needs no
// network access. Texts sharing words get similar vectors.
package hashembed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultDimensions is used when New receives a non-positive size.
const DefaultDimensions = 256

// Embedder hashes lowercased word tokens into a fixed number of buckets and
// L2-normalizes the result.
type Embedder struct {
	dims int
}

// New returns an Embedder producing vectors of length dims.
func New(dims int) *Embedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Embedder{dims: dims}
}

// Dimensions returns the vector length.
func (e *Embedder) Dimensions() int { return e.dims }

// Model identifies the embedding scheme, for cache keys.
func (e *Embedder) Model() string { return "hash-bow" }

// Embed implements matching.Embedder. Empty text yields a zero vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dims)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})

	for _, token := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum32()
		idx := int(sum % uint32(e.dims))
		if sum&(1<<31) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}
