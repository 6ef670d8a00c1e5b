package models

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	Type      string `gorm:"size:30;not null;default:'message'" json:"type"`
	Title     string `gorm:"size:255;not null" json:"title"`
	Message   string `gorm:"type:text" json:"message"`
	ActionURL string `gorm:"size:500" json:"action_url"`
	Read      bool   `gorm:"default:false" json:"read"`

	CreatedAt time.Time `json:"created_at"`
}
