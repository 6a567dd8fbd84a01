package organization

import (
	"context"

	"github.com/chayo-ai/memoryd/errors"
	"gorm.io/gorm"
)

type (
	// Store resolves tenant metadata. Reads only; provisioning belongs
	// to the platform's dashboard, not this service.
	Store interface {
		Get(ctx context.Context, organizationID string) (*Organization, error)
	}

	GormStore struct {
		db *gorm.DB
	}
)

var (
	_ Store = (*GormStore)(nil)
)

func NewStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate creates the organizations table when it does not exist
// yet. Deployments sharing a database with the dashboard already have
// it; standalone ones need this.
func AutoMigrate(db *gorm.DB) error {
	return errors.WithStack(db.AutoMigrate(&Organization{}))
}

func (s *GormStore) Get(ctx context.Context, organizationID string) (*Organization, error) {
	if organizationID == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "organization id is required")
	}

	var org Organization
	if err := s.db.WithContext(ctx).First(&org, "id = ?", organizationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(errors.ErrNotFound, "organization %s", organizationID)
		}
		return nil, errors.Wrapf(err, "failed to fetch organization %s", organizationID)
	}

	return &org, nil
}
