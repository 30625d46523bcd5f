package user

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the user-facing identity record. The ID matches the identity
// provider's subject, so no separate foreign key is needed.
type Profile struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	DisplayName *string   `gorm:"size:255"`
	AvatarURL   *string   `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null;default:current_timestamp"`
	UpdatedAt   time.Time `gorm:"not null;default:current_timestamp;autoUpdateTime"`
}

// TableName specifies the table name for the Profile model
func (Profile) TableName() string {
	return "profiles"
}

// UpdateProfileInput represents the input for updating a profile
type UpdateProfileInput struct {
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

// CompleterProfile is the denormalized slice of a profile attached to
// activity logs at read time.
type CompleterProfile struct {
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
}
