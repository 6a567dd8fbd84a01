// Package memorytest provides deterministic fakes for memory service
// tests: an embedder with canned and hash-derived vectors, and store
// wrappers that fail on demand.
package memorytest

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand/v2"

	"github.com/chayo-ai/memoryd/memory"
)

// StaticEmbedder returns canned vectors for known texts and a
// deterministic pseudo-random unit vector for everything else. Unknown
// texts hash to nearly-orthogonal vectors, so they score low against
// anything canned.
type StaticEmbedder struct {
	Dim     int
	Vectors map[string][]float32

	// Err, when set, makes every call fail. Calls counts invocations so
	// atomicity tests can assert how far ingestion got.
	Err   error
	Calls int
}

var _ memory.Embedder = (*StaticEmbedder)(nil)

func NewStaticEmbedder(dim int) *StaticEmbedder {
	return &StaticEmbedder{
		Dim:     dim,
		Vectors: make(map[string][]float32),
	}
}

// Set registers a canned vector for a text. The vector is normalized so
// inner products equal cosine similarities.
func (e *StaticEmbedder) Set(text string, vector []float32) *StaticEmbedder {
	e.Vectors[text] = normalize(vector)
	return e
}

func (e *StaticEmbedder) Dimension() int {
	return e.Dim
}

func (e *StaticEmbedder) Embed(ctx context.Context, texts ...string) ([][]float32, error) {
	e.Calls++
	if e.Err != nil {
		return nil, e.Err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := e.Vectors[text]; ok {
			vec := make([]float32, len(v))
			copy(vec, v)
			out[i] = vec
			continue
		}
		out[i] = e.pseudoVector(text)
	}
	return out, nil
}

func (e *StaticEmbedder) pseudoVector(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	rng := rand.New(rand.NewPCG(h.Sum64(), 0x9e3779b97f4a7c15))

	vec := make([]float32, e.Dim)
	for i := range vec {
		vec[i] = float32(rng.NormFloat64())
	}
	return normalize(vec)
}

func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

// FailingStore wraps a Store and fails selected operations, for testing
// degradation paths.
type FailingStore struct {
	memory.Store

	StatsErr  error
	InsertErr error
}

func (s *FailingStore) Stats(ctx context.Context, organizationID string) (*memory.StoreStats, error) {
	if s.StatsErr != nil {
		return nil, s.StatsErr
	}
	return s.Store.Stats(ctx, organizationID)
}

func (s *FailingStore) Insert(ctx context.Context, segments []*memory.MemorySegment) error {
	if s.InsertErr != nil {
		return s.InsertErr
	}
	return s.Store.Insert(ctx, segments)
}
