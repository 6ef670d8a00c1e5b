package messaging

import (
	"context"
	"sort"
	"time"

	"github.com/agencianocode/talent-digital-io/models"
	"github.com/google/uuid"
)

const unknownParticipantName = "Unknown User"

// Participant is the resolved display identity of one side of a conversation.
type Participant struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url"`
}

// Conversation is a derived grouping of messages sharing a conversation id.
// It is never persisted as its own row; every load recomputes it from the
// message and override stores.
type Conversation struct {
	ID            string           `json:"id"`
	Type          ConversationType `json:"type"`
	Participants  [2]Participant   `json:"participants"`
	LastMessage   *models.Message  `json:"last_message"`
	LastMessageAt time.Time        `json:"last_message_at"`
	UnreadCount   int              `json:"unread_count"`
	Archived      bool             `json:"archived"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// LoadConversations fetches the user's messages and overrides and folds them
// into conversation summaries, newest first.
func LoadConversations(ctx context.Context, s Store, userID uuid.UUID) ([]Conversation, error) {
	messages, err := s.ListUserMessages(ctx, userID)
	if err != nil {
		return nil, err
	}
	overrides, err := s.ListOverrides(ctx, userID)
	if err != nil {
		return nil, err
	}

	participantIDs := make(map[uuid.UUID]bool)
	for _, msg := range messages {
		participantIDs[msg.SenderID] = true
		participantIDs[msg.RecipientID] = true
	}
	ids := make([]uuid.UUID, 0, len(participantIDs))
	for id := range participantIDs {
		ids = append(ids, id)
	}
	profiles, err := s.GetProfiles(ctx, ids)
	if err != nil {
		return nil, err
	}

	return DeriveConversations(userID, messages, overrides, profiles), nil
}

// DeriveConversations folds a flat message list into conversation summaries.
// Messages must be ordered created_at descending, which is how the store
// returns them. Overrides apply last: force_unread lifts a zero count to one,
// archived ORs into the message-derived flag and never downgrades it.
func DeriveConversations(userID uuid.UUID, messages []models.Message, overrides []models.ConversationOverride, profiles map[uuid.UUID]Profile) []Conversation {
	buckets := make(map[string]*Conversation)
	archivedOnEvery := make(map[string]bool)
	order := make([]string, 0)

	for i := range messages {
		msg := &messages[i]
		conv, ok := buckets[msg.ConversationID]
		if !ok {
			conv = &Conversation{
				ID:   msg.ConversationID,
				Type: ClassifyConversationType(msg.ConversationID),
				Participants: [2]Participant{
					resolveParticipant(msg.SenderID, profiles),
					resolveParticipant(msg.RecipientID, profiles),
				},
				LastMessage:   msg,
				LastMessageAt: msg.CreatedAt,
				UpdatedAt:     msg.CreatedAt,
			}
			buckets[msg.ConversationID] = conv
			archivedOnEvery[msg.ConversationID] = true
			order = append(order, msg.ConversationID)
		}

		if msg.CreatedAt.After(conv.LastMessageAt) {
			conv.LastMessage = msg
			conv.LastMessageAt = msg.CreatedAt
			conv.UpdatedAt = msg.CreatedAt
		}
		if msg.RecipientID == userID && !msg.IsRead {
			conv.UnreadCount++
		}
		if !containsID(msg.ArchivedBy, userID) {
			archivedOnEvery[msg.ConversationID] = false
		}
	}

	for id, conv := range buckets {
		conv.Archived = archivedOnEvery[id]
	}
	for _, override := range overrides {
		conv, ok := buckets[override.ConversationID]
		if !ok {
			continue
		}
		if override.ForceUnread && conv.UnreadCount == 0 {
			conv.UnreadCount = 1
		}
		if override.Archived {
			conv.Archived = true
		}
	}

	conversations := make([]Conversation, 0, len(order))
	for _, id := range order {
		conversations = append(conversations, *buckets[id])
	}
	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})
	return conversations
}

func resolveParticipant(userID uuid.UUID, profiles map[uuid.UUID]Profile) Participant {
	p := Participant{UserID: userID, DisplayName: unknownParticipantName}
	if profile, ok := profiles[userID]; ok && profile.DisplayName != "" {
		p.DisplayName = profile.DisplayName
		p.AvatarURL = profile.AvatarURL
	}
	return p
}

func containsID(set []string, userID uuid.UUID) bool {
	id := userID.String()
	for _, member := range set {
		if member == id {
			return true
		}
	}
	return false
}
