package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chayo-ai/memoryd/errors"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// InMemoryStore is a simple in-memory implementation of Store. It backs
// tests and sqlite-less deployments; similarity is exact cosine computed
// with a single matrix-vector product over the tenant's active segments.
type InMemoryStore struct {
	mu       sync.RWMutex
	vecDim   int
	segments map[string]map[string]*MemorySegment // organizationID -> segmentID -> segment
}

var (
	_ Store = (*InMemoryStore)(nil)
)

func NewInMemoryStore(dimension int) *InMemoryStore {
	return &InMemoryStore{
		vecDim:   dimension,
		segments: make(map[string]map[string]*MemorySegment),
	}
}

func (s *InMemoryStore) Insert(ctx context.Context, segments []*MemorySegment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate everything before touching state so the batch stays atomic
	for _, segment := range segments {
		if segment.OrganizationID == "" {
			return errors.Wrapf(errors.ErrInvalidParams, "segment is missing an organization id")
		}
		if segment.Text == "" {
			return errors.Wrapf(errors.ErrInvalidParams, "segment is missing text")
		}
		if len(segment.Embedding) != s.vecDim {
			return errors.Wrapf(errors.ErrInvalidParams, "embedding dimension mismatch: got %d, store is configured for %d", len(segment.Embedding), s.vecDim)
		}
	}

	now := time.Now()
	for _, segment := range segments {
		if segment.ID == "" {
			segment.ID = uuid.NewString()
		}
		if segment.Status == "" {
			segment.Status = SegmentStatusActive
		}
		if segment.CreatedAt.IsZero() {
			segment.CreatedAt = now
		}

		org, ok := s.segments[segment.OrganizationID]
		if !ok {
			org = make(map[string]*MemorySegment)
			s.segments[segment.OrganizationID] = org
		}
		org[segment.ID] = copySegment(segment)
	}

	return nil
}

func (s *InMemoryStore) Search(ctx context.Context, organizationID string, queryEmbedding []float32, threshold float64, limit int) ([]ScoredSegment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(queryEmbedding) != s.vecDim {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "query embedding dimension mismatch: got %d, store is configured for %d", len(queryEmbedding), s.vecDim)
	}

	var candidates []*MemorySegment
	for _, segment := range s.segments[organizationID] {
		if segment.Active() {
			candidates = append(candidates, segment)
		}
	}
	if len(candidates) == 0 {
		return []ScoredSegment{}, nil
	}

	queryVec := make([]float64, s.vecDim)
	for i, v := range queryEmbedding {
		queryVec[i] = float64(v)
	}
	queryNorm := floats.Norm(queryVec, 2)
	if queryNorm == 0 {
		return []ScoredSegment{}, nil
	}

	// One (N x d) * (d) product yields all inner products at once
	data := make([]float64, len(candidates)*s.vecDim)
	norms := make([]float64, len(candidates))
	for i, segment := range candidates {
		row := data[i*s.vecDim : (i+1)*s.vecDim]
		for j, v := range segment.Embedding {
			row[j] = float64(v)
		}
		norms[i] = floats.Norm(row, 2)
	}

	var scores mat.VecDense
	scores.MulVec(mat.NewDense(len(candidates), s.vecDim, data), mat.NewVecDense(s.vecDim, queryVec))

	results := make([]ScoredSegment, 0, len(candidates))
	for i, segment := range candidates {
		if norms[i] == 0 {
			continue
		}
		score := scores.AtVec(i) / (norms[i] * queryNorm)
		if score < threshold {
			continue
		}
		results = append(results, ScoredSegment{
			Segment: copySegment(segment),
			Score:   score,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Segment.CreatedAt.After(results[j].Segment.CreatedAt)
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

func (s *InMemoryStore) Get(ctx context.Context, organizationID, segmentID string) (*MemorySegment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	segment, ok := s.segments[organizationID][segmentID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "segment %s", segmentID)
	}
	return copySegment(segment), nil
}

func (s *InMemoryStore) MarkSuperseded(ctx context.Context, organizationID, segmentID, successorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	segment, ok := s.segments[organizationID][segmentID]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "segment %s", segmentID)
	}
	if !segment.Active() {
		// active -> superseded is the only legal transition; marking an
		// already superseded segment again is a no-op.
		return nil
	}

	segment.Status = SegmentStatusSuperseded
	segment.SupersededBy = successorID
	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, organizationID, segmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.segments[organizationID][segmentID]; !ok {
		return errors.Wrapf(errors.ErrNotFound, "segment %s", segmentID)
	}
	delete(s.segments[organizationID], segmentID)
	return nil
}

func (s *InMemoryStore) DeleteByOrganization(ctx context.Context, organizationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.segments, organizationID)
	return nil
}

func (s *InMemoryStore) Stats(ctx context.Context, organizationID string) (*StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &StoreStats{
		ByKind: make(map[SegmentKind]int64),
	}
	for _, segment := range s.segments[organizationID] {
		stats.Total++
		if segment.Active() {
			stats.Active++
		} else {
			stats.Superseded++
		}
		stats.ByKind[segment.Metadata.Kind]++
		if stats.NewestCreatedAt == nil || segment.CreatedAt.After(*stats.NewestCreatedAt) {
			createdAt := segment.CreatedAt
			stats.NewestCreatedAt = &createdAt
		}
	}

	return stats, nil
}

func (s *InMemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.segments = make(map[string]map[string]*MemorySegment)
	return nil
}

// copySegment guards stored state against external mutation.
func copySegment(segment *MemorySegment) *MemorySegment {
	out := *segment
	out.Embedding = make([]float32, len(segment.Embedding))
	copy(out.Embedding, segment.Embedding)
	if segment.Metadata.Extra != nil {
		extra := make(map[string]any, len(segment.Metadata.Extra))
		for k, v := range segment.Metadata.Extra {
			extra[k] = v
		}
		out.Metadata.Extra = extra
	}
	return &out
}
