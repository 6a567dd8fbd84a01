package memory

import (
	"context"
	"log/slog"

	"github.com/chayo-ai/memoryd/config"
	"github.com/chayo-ai/memoryd/errors"
)

type (
	// Service orchestrates conversation-memory storage, retrieval and
	// conflict-aware updates for one deployment.
	Service interface {
		StoreSingleMessage(ctx context.Context, organizationID, text, role string, extra map[string]any) (*MemorySegment, error)
		ProcessBusinessConversations(ctx context.Context, organizationID string, conversations []Conversation, format TranscriptFormat) ([]*MemorySegment, error)
		SearchSimilarConversations(ctx context.Context, organizationID string, queryEmbedding []float32, threshold float64, limit int) ([]ScoredSegment, error)
		RetrieveRelevantMemory(ctx context.Context, organizationID, query string, limit int) ([]ScoredSegment, error)
		UpdateMemory(ctx context.Context, organizationID string, update MemoryUpdate, strategy ConflictStrategy) (*UpdateResult, error)
		GetBusinessKnowledgeSummary(ctx context.Context, organizationID string) (*KnowledgeSummary, error)
		DeleteMemory(ctx context.Context, organizationID, segmentID string) error
		DeleteOrganizationEmbeddings(ctx context.Context, organizationID string) error
		Close() error
	}

	// service carries no locking across calls: two concurrent
	// UpdateMemory calls racing on the same semantic content can each
	// supersede the same segment and leave two active winners. Retrieval
	// ranks the full active set, so the race degrades ranking, never
	// correctness of tenant data.
	service struct {
		store    Store
		embedder Embedder
		logger   *slog.Logger
		config   *config.MemoryConfig
	}
)

var (
	_ Service = (*service)(nil)
)

// NewService creates a memory service with the default store selected by
// configuration: SQLite with sqlite-vec when enabled, in-memory otherwise.
func NewService(ctx context.Context, conf *config.MemoryConfig, logger *slog.Logger, embedder Embedder) (Service, error) {
	if conf.EmbeddingDimension <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "embedding dimension must be positive")
	}
	if embedder != nil && embedder.Dimension() != conf.EmbeddingDimension {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "embedder produces %d-dim vectors, config expects %d", embedder.Dimension(), conf.EmbeddingDimension)
	}

	var (
		store Store
		err   error
	)
	if conf.SqliteEnabled {
		if conf.SqlitePath == "" {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "sqlite memory store path is not configured")
		}
		store, err = newSqliteStore(conf.SqlitePath, conf.EmbeddingDimension)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create sqlite memory store")
		}
	} else {
		store = NewInMemoryStore(conf.EmbeddingDimension)
	}

	return NewServiceWithStore(ctx, conf, logger, embedder, store)
}

// NewServiceWithStore creates a memory service on a caller-provided store
func NewServiceWithStore(ctx context.Context, conf *config.MemoryConfig, logger *slog.Logger, embedder Embedder, store Store) (Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &service{
		store:    store,
		embedder: embedder,
		logger:   logger,
		config:   conf,
	}, nil
}

func (s *service) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
