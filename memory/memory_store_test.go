package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/chayo-ai/memoryd/errors"
	"github.com/chayo-ai/memoryd/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 8

// unitVec returns the unit vector along one axis, handy for exact cosine
// expectations.
func unitVec(axis int) []float32 {
	vec := make([]float32, testDim)
	vec[axis] = 1
	return vec
}

func newSegment(orgID, text string, embedding []float32) *memory.MemorySegment {
	return &memory.MemorySegment{
		OrganizationID: orgID,
		Text:           text,
		Embedding:      embedding,
		Metadata: memory.Metadata{
			Kind: memory.SegmentKindConversation,
			Role: memory.RoleUser,
		},
	}
}

func TestInMemoryStore_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore(testDim)
	defer store.Close()

	segment := newSegment("org-1", "We open at 9am on weekdays", unitVec(0))
	segment.Metadata.Extra = map[string]any{"channel": "whatsapp"}

	err := store.Insert(ctx, []*memory.MemorySegment{segment})
	require.NoError(t, err)
	require.NotEmpty(t, segment.ID)
	require.Equal(t, memory.SegmentStatusActive, segment.Status)
	require.False(t, segment.CreatedAt.IsZero())

	retrieved, err := store.Get(ctx, "org-1", segment.ID)
	require.NoError(t, err)
	assert.Equal(t, segment.Text, retrieved.Text)
	assert.Equal(t, "whatsapp", retrieved.Metadata.Extra["channel"])

	// Stored state must not alias caller memory
	retrieved.Embedding[0] = 42
	again, err := store.Get(ctx, "org-1", segment.ID)
	require.NoError(t, err)
	assert.Equal(t, float32(1), again.Embedding[0])

	_, err = store.Get(ctx, "org-1", "non-existent")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestInMemoryStore_InsertValidation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore(testDim)
	defer store.Close()

	valid := newSegment("org-1", "Parking is available behind the building", unitVec(0))
	badDim := newSegment("org-1", "We close at noon on Saturdays", []float32{1, 0})

	// One bad segment fails the whole batch
	err := store.Insert(ctx, []*memory.MemorySegment{valid, badDim})
	require.ErrorIs(t, err, errors.ErrInvalidParams)

	stats, err := store.Stats(ctx, "org-1")
	require.NoError(t, err)
	assert.Zero(t, stats.Total)

	err = store.Insert(ctx, []*memory.MemorySegment{newSegment("", "Missing tenant", unitVec(0))})
	assert.ErrorIs(t, err, errors.ErrInvalidParams)

	err = store.Insert(ctx, []*memory.MemorySegment{newSegment("org-1", "", unitVec(0))})
	assert.ErrorIs(t, err, errors.ErrInvalidParams)
}

func TestInMemoryStore_SearchOrderingAndThreshold(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore(testDim)
	defer store.Close()

	exact := newSegment("org-1", "We open at 9am", unitVec(0))
	near := newSegment("org-1", "Opening hours are in the morning", []float32{0.9, 0.436, 0, 0, 0, 0, 0, 0})
	unrelated := newSegment("org-1", "The dentist drives a red car", unitVec(3))

	require.NoError(t, store.Insert(ctx, []*memory.MemorySegment{exact, near, unrelated}))

	results, err := store.Search(ctx, "org-1", unitVec(0), 0.7, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Descending score, exact match first
	assert.Equal(t, exact.ID, results[0].Segment.ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, near.ID, results[1].Segment.ID)
	assert.InDelta(t, 0.9, results[1].Score, 1e-3)

	// A stricter threshold drops the near match
	results, err = store.Search(ctx, "org-1", unitVec(0), 0.95, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, exact.ID, results[0].Segment.ID)

	// Limit truncates after ordering
	results, err = store.Search(ctx, "org-1", unitVec(0), 0.7, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, exact.ID, results[0].Segment.ID)

	// Dimension mismatch is an error, not an empty result
	_, err = store.Search(ctx, "org-1", []float32{1, 0}, 0.7, 10)
	assert.ErrorIs(t, err, errors.ErrInvalidParams)
}

func TestInMemoryStore_SearchTenantIsolation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore(testDim)
	defer store.Close()

	mine := newSegment("org-1", "Our wifi password is sunshine", unitVec(0))
	theirs := newSegment("org-2", "Our wifi password is moonlight", unitVec(0))
	require.NoError(t, store.Insert(ctx, []*memory.MemorySegment{mine, theirs}))

	results, err := store.Search(ctx, "org-1", unitVec(0), 0.0, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, mine.ID, results[0].Segment.ID)

	// Unknown tenant sees nothing
	results, err = store.Search(ctx, "org-3", unitVec(0), 0.0, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestInMemoryStore_MarkSuperseded(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore(testDim)
	defer store.Close()

	old := newSegment("org-1", "We open at 9am", unitVec(0))
	successor := newSegment("org-1", "We open at 8am now", unitVec(0))
	require.NoError(t, store.Insert(ctx, []*memory.MemorySegment{old, successor}))

	require.NoError(t, store.MarkSuperseded(ctx, "org-1", old.ID, successor.ID))

	retrieved, err := store.Get(ctx, "org-1", old.ID)
	require.NoError(t, err)
	assert.Equal(t, memory.SegmentStatusSuperseded, retrieved.Status)
	assert.Equal(t, successor.ID, retrieved.SupersededBy)

	// Superseded segments never appear in search
	results, err := store.Search(ctx, "org-1", unitVec(0), 0.0, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, successor.ID, results[0].Segment.ID)

	// Marking again is a no-op and keeps the original successor
	require.NoError(t, store.MarkSuperseded(ctx, "org-1", old.ID, "someone-else"))
	retrieved, err = store.Get(ctx, "org-1", old.ID)
	require.NoError(t, err)
	assert.Equal(t, successor.ID, retrieved.SupersededBy)

	err = store.MarkSuperseded(ctx, "org-1", "non-existent", successor.ID)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestInMemoryStore_DeleteAndPurge(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore(testDim)
	defer store.Close()

	first := newSegment("org-1", "First remembered fact", unitVec(0))
	second := newSegment("org-1", "Second remembered fact", unitVec(1))
	other := newSegment("org-2", "Another tenant's fact", unitVec(0))
	require.NoError(t, store.Insert(ctx, []*memory.MemorySegment{first, second, other}))

	require.NoError(t, store.Delete(ctx, "org-1", first.ID))
	_, err := store.Get(ctx, "org-1", first.ID)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	err = store.Delete(ctx, "org-1", first.ID)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	// Purging one tenant leaves the other untouched
	require.NoError(t, store.DeleteByOrganization(ctx, "org-1"))
	stats, err := store.Stats(ctx, "org-1")
	require.NoError(t, err)
	assert.Zero(t, stats.Total)

	stats, err = store.Stats(ctx, "org-2")
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Total)
}

func TestInMemoryStore_Stats(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore(testDim)
	defer store.Close()

	conv := newSegment("org-1", "Customer asked about vaccines", unitVec(0))
	fact := newSegment("org-1", "We are closed on Sundays", unitVec(1))
	fact.Metadata = memory.Metadata{Kind: memory.SegmentKindBusinessFact, FieldName: "hours"}
	fact.CreatedAt = time.Now().Add(time.Hour)
	require.NoError(t, store.Insert(ctx, []*memory.MemorySegment{conv, fact}))
	require.NoError(t, store.MarkSuperseded(ctx, "org-1", conv.ID, fact.ID))

	stats, err := store.Stats(ctx, "org-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Total)
	assert.EqualValues(t, 1, stats.Active)
	assert.EqualValues(t, 1, stats.Superseded)
	assert.EqualValues(t, 1, stats.ByKind[memory.SegmentKindConversation])
	assert.EqualValues(t, 1, stats.ByKind[memory.SegmentKindBusinessFact])
	require.NotNil(t, stats.NewestCreatedAt)
	assert.True(t, stats.NewestCreatedAt.Equal(fact.CreatedAt))
}
