package config

import (
	"context"

	"github.com/chayo-ai/memoryd/internal/di"
)

type MemoryConfig struct {
	// Core Database Settings
	// SqliteEnabled controls whether the SQLite-backed segment store is used.
	// When disabled the service falls back to the in-memory store.
	// Default: true
	SqliteEnabled bool `env:"MEMORY_SQLITE_ENABLED" json:"sqliteEnabled,omitempty"`

	// SqlitePath specifies the file path for the SQLite database
	// Default: ":memory:"
	SqlitePath string `env:"MEMORY_SQLITE_PATH" json:"sqlitePath,omitempty"`

	// Embedding Settings
	// EmbeddingModel is the hosted embedding model used for all segments.
	// Every segment in one deployment must share the same model, because
	// vectors from different models are not comparable.
	// Default: "text-embedding-3-small"
	EmbeddingModel string `env:"MEMORY_EMBEDDING_MODEL" json:"embeddingModel,omitempty"`

	// EmbeddingDimension is the fixed vector length for this deployment.
	// A stored or queried vector of any other length is rejected.
	// Default: 1536
	EmbeddingDimension int `env:"MEMORY_EMBEDDING_DIMENSION" json:"embeddingDimension,omitempty"`

	// EmbedBatchSize caps how many texts go into one embedding API call
	// during batch ingestion.
	// Default: 64
	EmbedBatchSize int `env:"MEMORY_EMBED_BATCH_SIZE" json:"embedBatchSize,omitempty"`

	// Retrieval Settings
	// RetrievalThreshold is the minimum similarity score for a segment to
	// appear in retrieval results.
	// Default: 0.7
	RetrievalThreshold float64 `env:"MEMORY_RETRIEVAL_THRESHOLD" json:"retrievalThreshold,omitempty"`

	// RetrievalLimit is the default top-k when a caller does not pass one.
	// Default: 5
	RetrievalLimit int `env:"MEMORY_RETRIEVAL_LIMIT" json:"retrievalLimit,omitempty"`

	// Conflict Settings
	// ConflictThreshold is the similarity floor for conflict detection.
	// It is intentionally stricter than RetrievalThreshold: superseding a
	// segment requires near-duplicate semantic overlap, not mere topical
	// relevance.
	// Default: 0.92
	ConflictThreshold float64 `env:"MEMORY_CONFLICT_THRESHOLD" json:"conflictThreshold,omitempty"`

	// Ingestion Settings
	// MinMessageLength rejects trivial acknowledgements ("ok", "thanks")
	// so they never pollute the memory store.
	// Default: 12
	MinMessageLength int `env:"MEMORY_MIN_MESSAGE_LENGTH" json:"minMessageLength,omitempty"`

	// MaxChunkChars caps the size of one conversation chunk so each
	// embedding stays semantically focused.
	// Default: 1200
	MaxChunkChars int `env:"MEMORY_MAX_CHUNK_CHARS" json:"maxChunkChars,omitempty"`
}

// NewMemoryConfig creates a new MemoryConfig with sensible defaults
// These defaults can be overridden by environment variables
func NewMemoryConfig() *MemoryConfig {
	return &MemoryConfig{
		SqliteEnabled: true,
		SqlitePath:    ":memory:",

		EmbeddingModel:     "text-embedding-3-small",
		EmbeddingDimension: 1536,
		EmbedBatchSize:     64,

		RetrievalThreshold: 0.7,
		RetrievalLimit:     5,

		ConflictThreshold: 0.92,

		MinMessageLength: 12,
		MaxChunkChars:    1200,
	}
}

var MemoryConfigKey = di.NewKey()

func init() {
	di.Register(MemoryConfigKey, func(ctx context.Context, c *di.Container) (any, error) {
		conf := NewMemoryConfig()
		return conf, resolveConfig(conf, c.Env == di.EnvTest)
	})
}
