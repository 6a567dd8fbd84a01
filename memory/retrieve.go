package memory

import (
	"context"

	"github.com/chayo-ai/memoryd/errors"
)

// SearchSimilarConversations returns the active segments of the
// organization scoring at least threshold against the query embedding,
// ordered by descending score. "No relevant memory" is an empty slice,
// never an error.
func (s *service) SearchSimilarConversations(ctx context.Context, organizationID string, queryEmbedding []float32, threshold float64, limit int) ([]ScoredSegment, error) {
	if organizationID == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "organization id is required")
	}
	if len(queryEmbedding) == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "query embedding is required")
	}
	if limit <= 0 {
		limit = s.config.RetrievalLimit
	}

	results, err := s.store.Search(ctx, organizationID, queryEmbedding, threshold, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to search segments")
	}

	return results, nil
}

// RetrieveRelevantMemory embeds a query string and searches with the
// configured retrieval threshold. This is the path prompt construction
// uses.
func (s *service) RetrieveRelevantMemory(ctx context.Context, organizationID, query string, limit int) ([]ScoredSegment, error) {
	query = normalizeText(query)
	if query == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "query is required")
	}

	embeddings, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to embed query")
	}

	return s.SearchSimilarConversations(ctx, organizationID, embeddings[0], s.config.RetrievalThreshold, limit)
}

// GetBusinessKnowledgeSummary aggregates segment counts and recency for
// dashboards. It is best-effort: a failing store read degrades to an
// empty summary instead of failing the caller's request.
func (s *service) GetBusinessKnowledgeSummary(ctx context.Context, organizationID string) (*KnowledgeSummary, error) {
	if organizationID == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "organization id is required")
	}

	summary := &KnowledgeSummary{
		OrganizationID: organizationID,
	}

	stats, err := s.store.Stats(ctx, organizationID)
	if err != nil {
		s.logger.Warn("failed to compute knowledge summary, returning empty summary",
			"organizationId", organizationID,
			"error", err.Error())
		return summary, nil
	}

	summary.TotalSegments = stats.Total
	summary.ActiveSegments = stats.Active
	summary.SupersededSegments = stats.Superseded
	summary.NewestSegmentAt = stats.NewestCreatedAt
	if len(stats.ByKind) > 0 {
		summary.SegmentsByKind = stats.ByKind
	}

	return summary, nil
}

// DeleteMemory hard-deletes one segment.
func (s *service) DeleteMemory(ctx context.Context, organizationID, segmentID string) error {
	if organizationID == "" || segmentID == "" {
		return errors.Wrapf(errors.ErrInvalidParams, "organization id and segment id are required")
	}

	if err := s.store.Delete(ctx, organizationID, segmentID); err != nil {
		return err
	}

	s.logger.Info("deleted memory segment",
		"organizationId", organizationID,
		"segmentId", segmentID)
	return nil
}

// DeleteOrganizationEmbeddings purges every segment of a tenant.
func (s *service) DeleteOrganizationEmbeddings(ctx context.Context, organizationID string) error {
	if organizationID == "" {
		return errors.Wrapf(errors.ErrInvalidParams, "organization id is required")
	}

	if err := s.store.DeleteByOrganization(ctx, organizationID); err != nil {
		return errors.Wrapf(err, "failed to purge organization embeddings")
	}

	s.logger.Info("purged organization embeddings", "organizationId", organizationID)
	return nil
}
