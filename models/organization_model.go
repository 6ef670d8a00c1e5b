package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization is the company/academy profile attached to a business or
// academy user. When the owner appears in a conversation, the organization
// name and logo take precedence over the personal profile.
type Organization struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OwnerID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	Name    string    `gorm:"size:255;not null" json:"name"`
	LogoURL *string   `gorm:"size:255" json:"logo_url"`

	Owner User `gorm:"foreignkey:OwnerID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
