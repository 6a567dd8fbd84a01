package organization_test

import (
	"context"
	"testing"

	"github.com/chayo-ai/memoryd/errors"
	"github.com/chayo-ai/memoryd/organization"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, organization.AutoMigrate(db))

	return db
}

func TestGormStore_Get(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := organization.NewStore(db)

	org := &organization.Organization{
		ID:            "org-1",
		Name:          "Sunrise Dental",
		AssistantName: "Dani",
		Features:      []string{"memory", "whatsapp"},
	}
	require.NoError(t, db.Create(org).Error)

	found, err := store.Get(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, "Sunrise Dental", found.Name)
	assert.Equal(t, "Dani", found.AssistantName)
	assert.True(t, found.HasFeature("memory"))
	assert.False(t, found.HasFeature("voice"))

	_, err = store.Get(ctx, "org-2")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	_, err = store.Get(ctx, "")
	assert.ErrorIs(t, err, errors.ErrInvalidParams)
}
