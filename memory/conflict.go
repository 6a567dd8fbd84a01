package memory

import (
	"context"

	"github.com/chayo-ai/memoryd/errors"
)

// conflictSearchLimit caps how many near-duplicates one update inspects.
const conflictSearchLimit = 5

// UpdateMemory stores new information with conflict awareness: the
// incoming text is embedded and compared against existing segments at
// the conflict threshold, which is stricter than retrieval's. Without a
// match the update is plain new knowledge; with matches the configured
// strategy decides. The update is copy-on-write: the existing segment is
// only marked superseded after its successor is fully persisted.
func (s *service) UpdateMemory(ctx context.Context, organizationID string, update MemoryUpdate, strategy ConflictStrategy) (*UpdateResult, error) {
	if organizationID == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "organization id is required")
	}

	text := normalizeText(update.Text)
	if text == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "update text is required")
	}
	update.Text = text

	if strategy == "" {
		strategy = ConflictStrategyAuto
	}

	embeddings, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to embed update text")
	}
	embedding := embeddings[0]

	matches, err := s.store.Search(ctx, organizationID, embedding, s.config.ConflictThreshold, conflictSearchLimit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to search for conflicting segments")
	}

	if len(matches) == 0 {
		return s.createFromUpdate(ctx, organizationID, update, embedding)
	}

	// One handler per declared strategy; the unimplemented ones fail
	// loudly instead of silently behaving like auto.
	switch strategy {
	case ConflictStrategyAuto:
		return s.resolveNewestWins(ctx, organizationID, update, embedding, matches)
	case ConflictStrategyManual:
		return s.resolveManual(ctx, organizationID, update, matches)
	case ConflictStrategyMerge:
		return s.resolveMerge(ctx, organizationID, update, matches)
	default:
		return nil, errors.Wrapf(errors.ErrInvalidParams, "unknown conflict strategy %q", strategy)
	}
}

// createFromUpdate writes the update as brand-new knowledge.
func (s *service) createFromUpdate(ctx context.Context, organizationID string, update MemoryUpdate, embedding []float32) (*UpdateResult, error) {
	metadata := updateMetadata(update, nil)
	if err := metadata.Validate(); err != nil {
		return nil, err
	}

	segment := &MemorySegment{
		OrganizationID: organizationID,
		Text:           update.Text,
		Embedding:      embedding,
		Metadata:       metadata,
	}
	if err := s.store.Insert(ctx, []*MemorySegment{segment}); err != nil {
		return nil, errors.Wrapf(err, "failed to store new segment")
	}

	s.logger.Debug("memory update created new knowledge",
		"organizationId", organizationID,
		"segmentId", segment.ID)

	return &UpdateResult{
		Success:   true,
		Created:   true,
		SegmentID: segment.ID,
	}, nil
}

// resolveNewestWins implements the auto strategy: recency decides. The
// newest matching segment is superseded by a successor carrying the
// updated text; older matches are left alone.
func (s *service) resolveNewestWins(ctx context.Context, organizationID string, update MemoryUpdate, embedding []float32, matches []ScoredSegment) (*UpdateResult, error) {
	target := matches[0]
	for _, match := range matches[1:] {
		if match.Segment.CreatedAt.After(target.Segment.CreatedAt) {
			target = match
		}
	}

	metadata := updateMetadata(update, target.Segment)
	if err := metadata.Validate(); err != nil {
		return nil, err
	}

	successor := &MemorySegment{
		OrganizationID: organizationID,
		Text:           update.Text,
		Embedding:      embedding,
		Metadata:       metadata,
	}

	// Successor first; the old segment stays untouched unless the new
	// write fully succeeds.
	if err := s.store.Insert(ctx, []*MemorySegment{successor}); err != nil {
		return nil, errors.Wrapf(err, "failed to store superseding segment")
	}

	if err := s.store.MarkSuperseded(ctx, organizationID, target.Segment.ID, successor.ID); err != nil {
		return nil, errors.Wrapf(err, "stored superseding segment %s but failed to mark %s superseded", successor.ID, target.Segment.ID)
	}

	s.logger.Info("memory update superseded existing segment",
		"organizationId", organizationID,
		"segmentId", successor.ID,
		"supersededId", target.Segment.ID,
		"similarity", target.Score)

	return &UpdateResult{
		Success:      true,
		Created:      false,
		SegmentID:    successor.ID,
		SupersededID: target.Segment.ID,
	}, nil
}

// resolveManual is declared but not implemented: the platform has no
// review queue for a human to adjudicate the conflict yet.
func (s *service) resolveManual(ctx context.Context, organizationID string, update MemoryUpdate, matches []ScoredSegment) (*UpdateResult, error) {
	return nil, errors.Wrapf(errors.ErrUnsupportedStrategy, "manual conflict resolution is not implemented")
}

// resolveMerge is declared but not implemented: merging contradictory
// texts needs an LLM adjudication step that is not built.
func (s *service) resolveMerge(ctx context.Context, organizationID string, update MemoryUpdate, matches []ScoredSegment) (*UpdateResult, error) {
	return nil, errors.Wrapf(errors.ErrUnsupportedStrategy, "merge conflict resolution is not implemented")
}

// updateMetadata derives the successor's metadata: explicit metadata on
// the update wins, otherwise the superseded segment's kind carries over,
// otherwise the update is recorded as a business fact.
func updateMetadata(update MemoryUpdate, superseded *MemorySegment) Metadata {
	if update.Metadata != nil {
		return *update.Metadata
	}

	if superseded != nil {
		metadata := superseded.Metadata
		metadata.Extra = mergeExtra(superseded.Metadata.Extra, nil)
		return metadata
	}

	return Metadata{
		Kind:      SegmentKindBusinessFact,
		FieldName: "general",
	}
}
