//go:build !without_sqlite

package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/chayo-ai/memoryd/errors"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SqliteStore implements Store using SQLite with the sqlite-vec extension
type SqliteStore struct {
	db     *gorm.DB
	vecDim int
}

// SegmentRecord represents the database structure for memory segments
type SegmentRecord struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	OrganizationID string `gorm:"index"`
	Text           string
	Status         string `gorm:"index"`
	SupersededBy   string

	Metadata datatypes.JSONType[Metadata]
}

func (SegmentRecord) TableName() string {
	return "memory_segments"
}

var (
	_ Store = (*SqliteStore)(nil)
)

// NewSqliteStore creates a new SQLite-based segment store
func NewSqliteStore(dbPath string, dimension int) (*SqliteStore, error) {
	// Initialize sqlite-vec extension
	sqlite_vec.Auto()

	db, err := gorm.Open(
		sqlite.Open(fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL&_foreign_keys=on", dbPath)),
		&gorm.Config{},
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite database")
	}

	store := &SqliteStore{
		db:     db,
		vecDim: dimension,
	}

	if err := db.AutoMigrate(&SegmentRecord{}); err != nil {
		return nil, errors.Wrapf(err, "failed to migrate memory_segments table")
	}

	if err := store.createVectorTable(); err != nil {
		return nil, err
	}

	return store, nil
}

// createVectorTable creates the sqlite-vec virtual table
func (s *SqliteStore) createVectorTable() error {
	// Verify sqlite-vec is loaded
	var sqliteVersion, vecVersion string
	err := s.db.Raw("SELECT sqlite_version(), vec_version()").Row().Scan(&sqliteVersion, &vecVersion)
	if err != nil {
		return errors.Wrapf(err, "sqlite-vec extension not properly loaded")
	}

	// The organization id is a partition key so KNN scans never cross a
	// tenant boundary inside the index.
	createTableSQL := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS segment_vectors USING vec0(
			segment_id TEXT PRIMARY KEY,
			organization_id TEXT partition key,
			embedding float[%d] distance_metric=cosine
		);
	`, s.vecDim)

	if err := s.db.Exec(createTableSQL).Error; err != nil {
		return errors.Wrapf(err, "failed to create segment_vectors table")
	}

	return nil
}

// Insert implements Store.Insert
func (s *SqliteStore) Insert(ctx context.Context, segments []*MemorySegment) error {
	if len(segments) == 0 {
		return nil
	}

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

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, segment := range segments {
			if segment.ID == "" {
				segment.ID = uuid.NewString()
			}
			if segment.Status == "" {
				segment.Status = SegmentStatusActive
			}

			record := SegmentRecord{
				ID:             segment.ID,
				OrganizationID: segment.OrganizationID,
				Text:           segment.Text,
				Status:         string(segment.Status),
				SupersededBy:   segment.SupersededBy,
				Metadata:       datatypes.NewJSONType(segment.Metadata),
			}
			if !segment.CreatedAt.IsZero() {
				record.CreatedAt = segment.CreatedAt
			}

			if err := tx.Create(&record).Error; err != nil {
				return errors.Wrapf(err, "failed to save segment record")
			}
			segment.CreatedAt = record.CreatedAt

			serializedEmbedding, err := sqlite_vec.SerializeFloat32(segment.Embedding)
			if err != nil {
				return errors.Wrapf(err, "failed to serialize embedding")
			}

			insertSQL := "INSERT INTO segment_vectors (segment_id, organization_id, embedding) VALUES (?, ?, ?)"
			if err := tx.Exec(insertSQL, segment.ID, segment.OrganizationID, serializedEmbedding).Error; err != nil {
				return errors.Wrapf(err, "failed to insert segment vector")
			}
		}

		return nil
	})
}

// Search implements Store.Search
func (s *SqliteStore) Search(ctx context.Context, organizationID string, queryEmbedding []float32, threshold float64, limit int) ([]ScoredSegment, error) {
	if organizationID == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "organization id is required")
	}
	if len(queryEmbedding) != s.vecDim {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "query embedding dimension mismatch: got %d, store is configured for %d", len(queryEmbedding), s.vecDim)
	}
	if limit <= 0 {
		return []ScoredSegment{}, nil
	}

	serializedQuery, err := sqlite_vec.SerializeFloat32(queryEmbedding)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to serialize query embedding")
	}

	// Over-fetch because superseded rows are filtered after the KNN pass
	searchSQL := `
		SELECT segment_id, distance
		FROM segment_vectors
		WHERE embedding MATCH ? AND organization_id = ?
		ORDER BY distance
		LIMIT ?
	`
	rows, err := s.db.WithContext(ctx).Raw(searchSQL, serializedQuery, organizationID, limit*4).Rows()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to execute search query")
	}
	defer rows.Close()

	distanceMap := make(map[string]float64)
	var ids []string
	for rows.Next() {
		var id string
		var distance float64
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, errors.Wrapf(err, "failed to scan result row")
		}
		ids = append(ids, id)
		distanceMap[id] = distance
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read search results")
	}

	if len(ids) == 0 {
		return []ScoredSegment{}, nil
	}

	var records []SegmentRecord
	if err := s.db.WithContext(ctx).
		Where("id IN ? AND organization_id = ? AND status = ?", ids, organizationID, string(SegmentStatusActive)).
		Find(&records).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to fetch segment records")
	}

	results := make([]ScoredSegment, 0, len(records))
	for _, record := range records {
		// Cosine distance to similarity
		score := 1.0 - distanceMap[record.ID]
		if score < threshold {
			continue
		}
		results = append(results, ScoredSegment{
			Segment: record.toSegment(),
			Score:   score,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Segment.CreatedAt.After(results[j].Segment.CreatedAt)
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// Get implements Store.Get
func (s *SqliteStore) Get(ctx context.Context, organizationID, segmentID string) (*MemorySegment, error) {
	var record SegmentRecord
	if err := s.db.WithContext(ctx).
		First(&record, "id = ? AND organization_id = ?", segmentID, organizationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(errors.ErrNotFound, "segment %s", segmentID)
		}
		return nil, errors.Wrapf(err, "failed to fetch segment record")
	}

	return record.toSegment(), nil
}

// MarkSuperseded implements Store.MarkSuperseded
func (s *SqliteStore) MarkSuperseded(ctx context.Context, organizationID, segmentID, successorID string) error {
	result := s.db.WithContext(ctx).
		Model(&SegmentRecord{}).
		Where("id = ? AND organization_id = ? AND status = ?", segmentID, organizationID, string(SegmentStatusActive)).
		Updates(map[string]any{
			"status":        string(SegmentStatusSuperseded),
			"superseded_by": successorID,
		})
	if result.Error != nil {
		return errors.Wrapf(result.Error, "failed to mark segment superseded")
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).
			Model(&SegmentRecord{}).
			Where("id = ? AND organization_id = ?", segmentID, organizationID).
			Count(&count).Error; err != nil {
			return errors.Wrapf(err, "failed to check segment existence")
		}
		if count == 0 {
			return errors.Wrapf(errors.ErrNotFound, "segment %s", segmentID)
		}
		// Already superseded; the transition is one-way and idempotent.
	}

	return nil
}

// Delete implements Store.Delete
func (s *SqliteStore) Delete(ctx context.Context, organizationID, segmentID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&SegmentRecord{}, "id = ? AND organization_id = ?", segmentID, organizationID)
		if result.Error != nil {
			return errors.Wrapf(result.Error, "failed to delete segment record")
		}
		if result.RowsAffected == 0 {
			return errors.Wrapf(errors.ErrNotFound, "segment %s", segmentID)
		}

		if err := tx.Exec("DELETE FROM segment_vectors WHERE segment_id = ?", segmentID).Error; err != nil {
			return errors.Wrapf(err, "failed to delete segment vector")
		}

		return nil
	})
}

// DeleteByOrganization implements Store.DeleteByOrganization
func (s *SqliteStore) DeleteByOrganization(ctx context.Context, organizationID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM segment_vectors WHERE organization_id = ?", organizationID).Error; err != nil {
			return errors.Wrapf(err, "failed to delete segment vectors")
		}

		if err := tx.Delete(&SegmentRecord{}, "organization_id = ?", organizationID).Error; err != nil {
			return errors.Wrapf(err, "failed to delete segment records")
		}

		return nil
	})
}

// Stats implements Store.Stats
func (s *SqliteStore) Stats(ctx context.Context, organizationID string) (*StoreStats, error) {
	stats := &StoreStats{
		ByKind: make(map[SegmentKind]int64),
	}

	tx := s.db.WithContext(ctx)

	if err := tx.Model(&SegmentRecord{}).
		Where("organization_id = ?", organizationID).
		Count(&stats.Total).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to count segments")
	}

	if err := tx.Model(&SegmentRecord{}).
		Where("organization_id = ? AND status = ?", organizationID, string(SegmentStatusActive)).
		Count(&stats.Active).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to count active segments")
	}
	stats.Superseded = stats.Total - stats.Active

	rows, err := tx.Model(&SegmentRecord{}).
		Select("json_extract(metadata, '$.kind') AS kind, COUNT(*) AS count").
		Where("organization_id = ?", organizationID).
		Group("kind").
		Rows()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to group segments by kind")
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, errors.Wrapf(err, "failed to scan kind row")
		}
		stats.ByKind[SegmentKind(kind)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read kind rows")
	}

	if stats.Total > 0 {
		var newest SegmentRecord
		if err := tx.
			Where("organization_id = ?", organizationID).
			Order("created_at DESC").
			First(&newest).Error; err != nil {
			return nil, errors.Wrapf(err, "failed to read newest segment timestamp")
		}
		createdAt := newest.CreatedAt
		stats.NewestCreatedAt = &createdAt
	}

	return stats, nil
}

// Close implements Store.Close
func (s *SqliteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newSqliteStore(dbPath string, dimension int) (Store, error) {
	return NewSqliteStore(dbPath, dimension)
}

func (r *SegmentRecord) toSegment() *MemorySegment {
	return &MemorySegment{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		Text:           r.Text,
		Metadata:       r.Metadata.Data(),
		Status:         SegmentStatus(r.Status),
		SupersededBy:   r.SupersededBy,
		CreatedAt:      r.CreatedAt,
	}
}
