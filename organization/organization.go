package organization

import (
	"time"

	"gorm.io/datatypes"
)

// Organization is the tenant row as provisioned by the platform's
// onboarding flow. This package only ever reads it.
type Organization struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name          string                      `json:"name"`
	AssistantName string                      `json:"assistant_name"`
	Features      datatypes.JSONSlice[string] `json:"features"`
}

func (Organization) TableName() string {
	return "organizations"
}

// HasFeature reports whether a feature flag is enabled for the tenant.
func (o *Organization) HasFeature(name string) bool {
	for _, feature := range o.Features {
		if feature == name {
			return true
		}
	}
	return false
}
