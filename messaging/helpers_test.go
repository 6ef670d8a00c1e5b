package messaging

import (
	"time"

	"github.com/agencianocode/talent-digital-io/models"
	"github.com/google/uuid"
)

var testBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return testBase.Add(time.Duration(minutes) * time.Minute)
}

func newTestMessage(conversationID string, sender, recipient uuid.UUID, content string, createdAt time.Time) models.Message {
	return models.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       sender,
		RecipientID:    recipient,
		MessageType:    models.MessageTypeText,
		Content:        content,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
}

func seedMessage(m *memStore, msg models.Message) models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return msg
}

func conversationByID(conversations []Conversation, id string) *Conversation {
	for i := range conversations {
		if conversations[i].ID == id {
			return &conversations[i]
		}
	}
	return nil
}
