package memory

import (
	"context"
	"time"
)

type (
	// Store defines the vector store contract the memory service builds
	// on. Every operation is scoped to one organization; implementations
	// must never let a query observe another tenant's rows.
	Store interface {
		// Insert persists segments atomically - either all segments are
		// stored or none.
		Insert(ctx context.Context, segments []*MemorySegment) error

		// Search returns active segments of the organization scoring at
		// least threshold against the query embedding, ordered by
		// descending score and truncated to limit. An empty result is a
		// normal outcome, not an error.
		Search(ctx context.Context, organizationID string, queryEmbedding []float32, threshold float64, limit int) ([]ScoredSegment, error)

		// Get retrieves one segment regardless of its status.
		Get(ctx context.Context, organizationID, segmentID string) (*MemorySegment, error)

		// MarkSuperseded transitions an active segment to superseded,
		// recording its successor. The transition is one-way.
		MarkSuperseded(ctx context.Context, organizationID, segmentID, successorID string) error

		// Delete removes one segment and its vector.
		Delete(ctx context.Context, organizationID, segmentID string) error

		// DeleteByOrganization purges every segment of a tenant.
		DeleteByOrganization(ctx context.Context, organizationID string) error

		// Stats aggregates segment counts and recency for a tenant.
		Stats(ctx context.Context, organizationID string) (*StoreStats, error)

		// Close releases store resources.
		Close() error
	}

	StoreStats struct {
		Total           int64
		Active          int64
		Superseded      int64
		ByKind          map[SegmentKind]int64
		NewestCreatedAt *time.Time
	}
)
