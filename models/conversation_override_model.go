package models

import (
	"time"

	"github.com/google/uuid"
)

// ConversationOverride is the per-user, per-conversation record layered on
// top of message-derived state. It lets a user force a conversation unread or
// archived when no message mutation can represent that state. One row per
// (user_id, conversation_id); ForceUnread is cleared on read, never deleted.
type ConversationOverride struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_override_user_conversation" json:"user_id"`
	ConversationID string    `gorm:"size:255;not null;uniqueIndex:idx_override_user_conversation" json:"conversation_id"`

	ForceUnread bool `gorm:"default:false" json:"force_unread"`
	Archived    bool `gorm:"default:false" json:"archived"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
