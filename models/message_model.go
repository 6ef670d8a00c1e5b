package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Message is the flat, append-mostly record every conversation is derived
// from. A message is immutable after insert except for IsRead/ReadAt and
// ArchivedBy.
type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ConversationID string    `gorm:"size:255;not null;index" json:"conversation_id"`
	SenderID       uuid.UUID `gorm:"type:uuid;not null" json:"sender_id"`
	RecipientID    uuid.UUID `gorm:"type:uuid;not null;index" json:"recipient_id"`

	MessageType string  `gorm:"size:30;not null;default:'text'" json:"message_type"`
	Content     string  `gorm:"type:text" json:"content"`
	FileURL     *string `gorm:"size:500" json:"file_url,omitempty"`
	FileName    *string `gorm:"size:255" json:"file_name,omitempty"`
	FileSize    *int64  `json:"file_size,omitempty"`

	IsRead bool       `gorm:"default:false" json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`

	// ArchivedBy is a membership set, not a boolean. A conversation counts as
	// archived for a user only when that user's id is present on every one of
	// its messages.
	ArchivedBy pq.StringArray `gorm:"type:text[]" json:"archived_by"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	MessageTypeText              = "text"
	MessageTypeFile              = "file"
	MessageTypeInvitation        = "invitation"
	MessageTypeApplicationUpdate = "application_update"
)
